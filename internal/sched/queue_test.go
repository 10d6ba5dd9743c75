package sched

import (
	"sync"
	"testing"
)

func TestGlobalQueue_EmptyPop(t *testing.T) {
	q := &globalQueue{}
	if _, ok := q.pop(); ok {
		t.Fatal("pop on empty queue returned an entry")
	}
	if got := q.size(); got != 0 {
		t.Errorf("size = %d, want 0", got)
	}
}

func TestGlobalQueue_FIFO(t *testing.T) {
	q := &globalQueue{}
	var order []int

	for i := 0; i < 100; i++ {
		q.push(func(*localDeque) { order = append(order, i) })
	}
	if got := q.size(); got != 100 {
		t.Fatalf("size = %d, want 100", got)
	}

	for i := 0; i < 100; i++ {
		fn, ok := q.pop()
		if !ok {
			t.Fatalf("pop %d returned nothing", i)
		}
		fn(nil)
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("position %d ran request %d, want arrival order", i, got)
		}
	}
	if got := q.size(); got != 0 {
		t.Errorf("size after drain = %d, want 0", got)
	}
}

// Interleaved push and pop exercises the prefix compaction.
func TestGlobalQueue_Interleaved(t *testing.T) {
	q := &globalQueue{}
	next := 0
	var order []int

	for round := 0; round < 40; round++ {
		for i := 0; i < 5; i++ {
			id := next
			next++
			q.push(func(*localDeque) { order = append(order, id) })
		}
		for i := 0; i < 4; i++ {
			fn, ok := q.pop()
			if !ok {
				t.Fatalf("round %d: queue unexpectedly empty", round)
			}
			fn(nil)
		}
	}
	for fn, ok := q.pop(); ok; fn, ok = q.pop() {
		fn(nil)
	}

	for i, got := range order {
		if got != i {
			t.Fatalf("position %d ran request %d, want arrival order", i, got)
		}
	}
}

func TestGlobalQueue_ConcurrentPush(t *testing.T) {
	q := &globalQueue{}
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.push(func(*localDeque) {})
			}
		}()
	}
	wg.Wait()

	if got := q.size(); got != 800 {
		t.Fatalf("size = %d, want 800", got)
	}
}
