package spatial

import (
	"math"
	"slices"
	"sync/atomic"
)

// Index は範囲検索のための空間インデックスの契約です。
// 呼び出し側は最初の Update 前の空の結果や、少し古い結果を許容しなければなりません。
type Index[T any] interface {
	// Search は矩形 (x1,y1)-(x2,y2) を distance だけ広げた範囲にある要素を返します。
	Search(x1, y1, x2, y2, distance float64) []T
	// Update は要素集合の再構築を依頼します。実装によっては何もしません。
	Update(items []T)
}

// Locator は要素の現在位置を返します。
type Locator[T any] func(item T) (x, y float64)

// Scan は全件走査による Index 実装です。
// 要素集合はアトミックに差し替えられるため、別 goroutine から Update できます。
type Scan[T any] struct {
	locate Locator[T]
	items  atomic.Pointer[[]T]
}

var _ Index[int] = (*Scan[int])(nil)

func NewScan[T any](locate Locator[T]) *Scan[T] {
	return &Scan[T]{locate: locate}
}

func (s *Scan[T]) Update(items []T) {
	snapshot := slices.Clone(items)
	s.items.Store(&snapshot)
}

func (s *Scan[T]) Search(x1, y1, x2, y2, distance float64) []T {
	p := s.items.Load()
	if p == nil {
		return nil
	}
	minX, maxX := math.Min(x1, x2)-distance, math.Max(x1, x2)+distance
	minY, maxY := math.Min(y1, y2)-distance, math.Max(y1, y2)+distance

	var out []T
	for _, item := range *p {
		x, y := s.locate(item)
		if x < minX || x > maxX || y < minY || y > maxY {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (s *Scan[T]) Len() int {
	p := s.items.Load()
	if p == nil {
		return 0
	}
	return len(*p)
}
