package pqueue

import (
	"sort"
)

func WithOrderAsc[T any]() Option[T] {
	return func(q *Queue[T]) {
		q.order = orderAsc
	}
}

func WithOrderDesc[T any]() Option[T] {
	return func(q *Queue[T]) {
		q.order = orderDesc
	}
}

// WithCap bounds the queue: once full, pushing drops the lowest priority item.
func WithCap[T any](size uint) Option[T] {
	return func(q *Queue[T]) {
		q.cap = int(size)
	}
}

type Option[T any] func(*Queue[T])

type order uint8

const (
	orderAsc order = iota
	orderDesc
)

type item[T any] struct {
	value T
	prior float64
}

func New[T any](opts ...Option[T]) *Queue[T] {
	p := &Queue[T]{order: orderAsc, cap: -1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Queue keeps its items sorted by priority. Items with equal priority keep
// their insertion order.
type Queue[T any] struct {
	order order
	cap   int
	items []item[T]
}

func (q *Queue[T]) PopAll() []T {
	pulled := make([]T, len(q.items))
	for i := range q.items {
		pulled[i] = q.items[i].value
	}
	q.items = q.items[:0]
	return pulled
}

func (q *Queue[T]) Head() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	x := q.items[0]
	q.items = q.items[1:]
	return x.value, true
}

func (q *Queue[T]) Tail() (T, bool) {
	var zero T
	l := len(q.items) - 1
	if l < 0 {
		return zero, false
	}
	x := q.items[l]
	q.items = q.items[:l]
	return x.value, true
}

func (q *Queue[T]) Push(val T, priority float64) {
	q.items = append(q.items, item[T]{value: val, prior: priority})
	sort.Stable(q)
	if q.cap < 0 {
		return
	}
	if q.cap < len(q.items) {
		q.items = q.items[:q.cap]
	}
}

// Full reports whether a capped queue holds cap items.
func (q *Queue[T]) Full() bool { return q.cap >= 0 && len(q.items) >= q.cap }

func (q *Queue[T]) Cap() int { return q.cap }

func (q *Queue[T]) Len() int { return len(q.items) }

func (q *Queue[T]) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *Queue[T]) Less(i, j int) bool {
	if q.order == orderAsc {
		return q.items[i].prior < q.items[j].prior
	}
	return q.items[i].prior > q.items[j].prior
}

func (q *Queue[T]) Seek(idx int) (T, float64) {
	it := q.items[idx]
	return it.value, it.prior
}
