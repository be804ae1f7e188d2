package util

import (
	"math/rand"
	"reflect"
	"sort"
	"testing"
)

func TestDeadlineHeapSchedule(t *testing.T) {
	h := NewDeadlineHeap()
	h.Schedule(1, 100)
	h.Schedule(2, 200)
	h.Schedule(3, 50)

	if h.Len() != 3 {
		t.Errorf("Len() = %d, want 3", h.Len())
	}
	key, at, ok := h.Next()
	if !ok || key != 3 || at != 50 {
		t.Errorf("Next() = (%d, %d, %v), want (3, 50, true)", key, at, ok)
	}

	// re-scheduling moves the existing item
	h.Schedule(3, 300)
	if h.Len() != 3 {
		t.Errorf("Len() after reschedule = %d, want 3", h.Len())
	}
	if at, _ := h.Deadline(3); at != 300 {
		t.Errorf("Deadline(3) = %d, want 300", at)
	}
	if key, _, _ := h.Next(); key != 1 {
		t.Errorf("Next() key = %d, want 1", key)
	}

	// a zero deadline cancels
	h.Schedule(1, 0)
	if _, ok := h.Deadline(1); ok {
		t.Error("Schedule(key, 0) should cancel the key")
	}
}

func TestDeadlineHeapCancel(t *testing.T) {
	h := NewDeadlineHeap()
	h.Schedule(1, 10)
	h.Schedule(2, 20)

	tests := []struct {
		name   string
		key    uint64
		wantAt uint64
		wantOk bool
	}{
		{"existing key", 1, 10, true},
		{"already cancelled", 1, 0, false},
		{"unknown key", 42, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at, ok := h.Cancel(tt.key)
			if at != tt.wantAt || ok != tt.wantOk {
				t.Errorf("Cancel(%d) = (%d, %v), want (%d, %v)", tt.key, at, ok, tt.wantAt, tt.wantOk)
			}
		})
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}
}

func TestDeadlineHeapPopDue(t *testing.T) {
	h := NewDeadlineHeap()
	for key, at := range map[uint64]uint64{1: 30, 2: 10, 3: 20, 4: 40} {
		h.Schedule(key, at)
	}

	if due := h.PopDue(5); len(due) != 0 {
		t.Errorf("PopDue(5) = %v, want none", due)
	}
	if due := h.PopDue(20); !reflect.DeepEqual(due, []uint64{2, 3}) {
		t.Errorf("PopDue(20) = %v, want [2 3]", due)
	}
	if h.Len() != 2 {
		t.Errorf("Len() = %d, want 2", h.Len())
	}
	if due := h.PopDue(100); !reflect.DeepEqual(due, []uint64{1, 4}) {
		t.Errorf("PopDue(100) = %v, want [1 4]", due)
	}
	if _, ok := h.Deadline(1); ok {
		t.Error("popped key should not be scheduled anymore")
	}
}

func TestDeadlineHeapRandomOrder(t *testing.T) {
	h := NewDeadlineHeap()
	r := rand.New(rand.NewSource(1))

	want := make([]uint64, 0, 1000)
	for key := uint64(0); key < 1000; key++ {
		at := uint64(r.Intn(10000)) + 1
		h.Schedule(key, at)
		want = append(want, at)
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	got := make([]uint64, 0, 1000)
	for h.Len() > 0 {
		_, at, _ := h.Next()
		got = append(got, at)
		h.PopDue(at)
	}

	// PopDue drains all items with the same deadline at once
	compact := func(xs []uint64) []uint64 {
		var out []uint64
		for _, x := range xs {
			if len(out) == 0 || out[len(out)-1] != x {
				out = append(out, x)
			}
		}
		return out
	}
	if !reflect.DeepEqual(got, compact(want)) {
		t.Error("deadlines were not popped in ascending order")
	}
}
