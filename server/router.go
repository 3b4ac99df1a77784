package server

import (
	"net/http"

	"arena/server/domain"
	"arena/server/handler"
)

// Routes は HTTP ルーティングの依存です。
type Routes struct {
	PubSub      domain.PubSub
	RoomManager domain.RoomManager
	Endpoint    domain.EndpointConfig
	Origins     []string
	Ready       handler.Readiness
	Metrics     http.Handler
}

func Route(r Routes) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", handler.NewAcceptHandler(r.PubSub, r.RoomManager, r.Endpoint, r.Origins...))
	mux.Handle("/health", handler.NewHealthHandler(r.Ready))
	if r.Metrics != nil {
		mux.Handle("/metrics", r.Metrics)
	}
	return mux
}
