package handler

import "net/http"

// Readiness は稼働中のルーム数などを返す準備状態の確認です。
type Readiness func() bool

// NewHealthHandler は ready が false を返す間 503 を返します。ready が nil なら常に 200 です。
func NewHealthHandler(ready Readiness) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
