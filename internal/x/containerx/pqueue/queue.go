package pqueue

import (
	"container/heap"
)

// Queue is a single-ended priority-queue that allows updating and removal of
// arbitrary elements.
//
// Elements for which Less returns true sort closer to the front of the queue.
type Queue[E comparable] struct {
	// Less returns true if a should be closer to the front of the queue
	// than b. It must not be nil.
	Less func(a, b E) bool

	heap  qheap[E]
	index map[E]*item[E]
}

// Len returns the number of elements on the queue.
func (q *Queue[E]) Len() int {
	return len(q.heap.items)
}

// Push adds an element to the queue.
//
// It returns true if e is at the front of the queue. Pushing an element that
// is already on the queue is equivalent to calling Update().
func (q *Queue[E]) Push(e E) bool {
	if it, ok := q.index[e]; ok {
		q.heap.less = q.Less
		heap.Fix(&q.heap, it.index)
		return it.index == 0
	}

	if q.index == nil {
		q.index = map[E]*item[E]{}
	}

	it := &item[E]{elem: e}
	q.index[e] = it

	q.heap.less = q.Less
	heap.Push(&q.heap, it)

	return it.index == 0
}

// Peek returns the element at the front of the queue without removing it.
//
// It returns false if the queue is empty.
func (q *Queue[E]) Peek() (E, bool) {
	if len(q.heap.items) == 0 {
		var zero E
		return zero, false
	}

	return q.heap.items[0].elem, true
}

// Pop removes the element at the front of the queue and returns it.
//
// It returns false if the queue is empty.
func (q *Queue[E]) Pop() (E, bool) {
	if len(q.heap.items) == 0 {
		var zero E
		return zero, false
	}

	q.heap.less = q.Less
	it := heap.Pop(&q.heap).(*item[E])
	delete(q.index, it.elem)

	return it.elem, true
}

// Remove removes e from the queue.
//
// It returns false if e is not on the queue.
func (q *Queue[E]) Remove(e E) bool {
	it, ok := q.index[e]
	if !ok {
		return false
	}

	q.heap.less = q.Less
	heap.Remove(&q.heap, it.index)
	delete(q.index, e)

	return true
}

// Update reorders the queue after the priority of e has changed.
//
// It returns false if e is not on the queue.
func (q *Queue[E]) Update(e E) bool {
	it, ok := q.index[e]
	if !ok {
		return false
	}

	q.heap.less = q.Less
	heap.Fix(&q.heap, it.index)

	return true
}

type item[E any] struct {
	elem  E
	index int
}

// qheap is the implementation of heap.Interface.
type qheap[E any] struct {
	less  func(a, b E) bool
	items []*item[E]
}

func (h *qheap[E]) Len() int {
	return len(h.items)
}

func (h *qheap[E]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *qheap[E]) Less(i, j int) bool {
	return h.less(h.items[i].elem, h.items[j].elem)
}

func (h *qheap[E]) Push(x any) {
	it := x.(*item[E])
	it.index = len(h.items)
	h.items = append(h.items, it)
}

func (h *qheap[E]) Pop() any {
	n := len(h.items) - 1
	it := h.items[n]

	h.items[n] = nil
	h.items = h.items[:n]

	return it
}
