// Package util
//
// This file provides the deadline heap used by the garbage collector.
//
// A DeadlineHeap is a binary min-heap of (key, deadline) pairs combined with a
// map from key to heap slot. That gives:
//   - O(log n) Schedule, Cancel and PopDue per item
//   - O(1) lookups by key
//   - at most one deadline per key (re-scheduling moves the existing item)
//
// The heap is not thread-safe; callers synchronize access.
//
// Example usage:
//
//	h := NewDeadlineHeap()
//	h.Schedule(1001, 20)
//	h.Schedule(1002, 10)
//	h.Cancel(1001)
//	due := h.PopDue(15) // [1002]
package util

import (
	"container/heap"
	"strconv"
)

// deadline is a scheduled key. index is its slot in the heap.
type deadline struct {
	key   uint64
	at    uint64
	index int
}

func (d *deadline) String() string {
	return "{Key: " + strconv.FormatUint(d.key, 10) + ", At: " + strconv.FormatUint(d.at, 10) + "}"
}

// deadlines implements heap.Interface ordered by deadline.
type deadlines []*deadline

func (d deadlines) Len() int           { return len(d) }
func (d deadlines) Less(i, j int) bool { return d[i].at < d[j].at }
func (d deadlines) Swap(i, j int) {
	d[i], d[j] = d[j], d[i]
	d[i].index = i
	d[j].index = j
}

func (d *deadlines) Push(x interface{}) {
	item := x.(*deadline)
	item.index = len(*d)
	*d = append(*d, item)
}

func (d *deadlines) Pop() interface{} {
	old := *d
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*d = old[:n-1]
	return item
}

// DeadlineHeap schedules keys for removal at a logical time.
type DeadlineHeap struct {
	items deadlines
	byKey map[uint64]*deadline
}

// NewDeadlineHeap creates an empty heap.
func NewDeadlineHeap() *DeadlineHeap {
	return &DeadlineHeap{
		items: make(deadlines, 0),
		byKey: make(map[uint64]*deadline),
	}
}

// Len returns the number of scheduled keys.
func (h *DeadlineHeap) Len() int { return len(h.items) }

// Schedule sets the deadline of key to at, replacing an earlier one.
// at=0 cancels the key.
func (h *DeadlineHeap) Schedule(key, at uint64) {
	if at == 0 {
		h.Cancel(key)
		return
	}
	if item, ok := h.byKey[key]; ok {
		item.at = at
		heap.Fix(&h.items, item.index)
		return
	}
	item := &deadline{key: key, at: at}
	heap.Push(&h.items, item)
	h.byKey[key] = item
}

// Cancel removes the deadline of key. It returns the removed deadline.
func (h *DeadlineHeap) Cancel(key uint64) (uint64, bool) {
	item, ok := h.byKey[key]
	if !ok {
		return 0, false
	}
	heap.Remove(&h.items, item.index)
	delete(h.byKey, key)
	return item.at, true
}

// Deadline returns the deadline of key.
func (h *DeadlineHeap) Deadline(key uint64) (uint64, bool) {
	item, ok := h.byKey[key]
	if !ok {
		return 0, false
	}
	return item.at, true
}

// Next returns the earliest scheduled key and its deadline.
func (h *DeadlineHeap) Next() (key, at uint64, ok bool) {
	if len(h.items) == 0 {
		return 0, 0, false
	}
	return h.items[0].key, h.items[0].at, true
}

// PopDue removes and returns all keys with a deadline <= now, earliest first.
func (h *DeadlineHeap) PopDue(now uint64) []uint64 {
	var due []uint64
	for len(h.items) > 0 && h.items[0].at <= now {
		item := heap.Pop(&h.items).(*deadline)
		delete(h.byKey, item.key)
		due = append(due, item.key)
	}
	return due
}
