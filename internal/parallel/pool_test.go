package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4, 0)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if pool.QueueSize() != 16 {
		t.Errorf("QueueSize() = %d, want 16", pool.QueueSize())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaults(t *testing.T) {
	pool := NewWorkerPool(-5, -1)
	defer pool.Close()

	if pool.Workers() != runtime.GOMAXPROCS(0) {
		t.Errorf("Workers() = %d, want GOMAXPROCS", pool.Workers())
	}
	if pool.QueueSize() < 8 {
		t.Errorf("QueueSize() = %d, want >= 8", pool.QueueSize())
	}
}

func TestWorkerPool_SubmitAndWait(t *testing.T) {
	pool := NewWorkerPool(4, 0)
	defer pool.Close()

	var counter atomic.Int64
	for i := range 200 {
		if !pool.Submit(uint64(i), func() { counter.Add(1) }) {
			t.Fatal("Submit rejected work on a running pool")
		}
	}
	pool.Wait()

	if counter.Load() != 200 {
		t.Errorf("counter = %d, want 200", counter.Load())
	}
}

func TestWorkerPool_PerKeyOrder(t *testing.T) {
	pool := NewWorkerPool(4, 2)
	defer pool.Close()

	const keys, perKey = 8, 50
	var mu sync.Mutex
	seen := make(map[uint64][]int)
	var running [keys]atomic.Int32
	var overlap atomic.Bool

	for i := range perKey {
		for k := range uint64(keys) {
			pool.Submit(k, func() {
				if running[k].Add(1) > 1 {
					overlap.Store(true)
				}
				mu.Lock()
				seen[k] = append(seen[k], i)
				mu.Unlock()
				running[k].Add(-1)
			})
		}
	}
	pool.Wait()

	if overlap.Load() {
		t.Error("two items of one key ran concurrently")
	}
	for k := range uint64(keys) {
		got := seen[k]
		if len(got) != perKey {
			t.Fatalf("key %d ran %d items, want %d", k, len(got), perKey)
		}
		for i, v := range got {
			if v != i {
				t.Fatalf("key %d item %d ran as %d: out of order", k, i, v)
			}
		}
	}
}

func TestWorkerPool_Backpressure(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	defer pool.Close()

	release := make(chan struct{})
	pool.Submit(0, func() { <-release }) // occupies the worker
	pool.Submit(0, func() {})            // fills the queue

	accepted := make(chan struct{})
	go func() {
		pool.Submit(0, func() {})
		close(accepted)
	}()

	select {
	case <-accepted:
		t.Fatal("Submit did not block on a full queue")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatal("Submit stayed blocked after the queue drained")
	}
	pool.Wait()
}

func TestWorkerPool_CloseDrainsAndRejects(t *testing.T) {
	pool := NewWorkerPool(2, 0)

	var counter atomic.Int64
	for i := range 20 {
		pool.Submit(uint64(i), func() {
			time.Sleep(time.Millisecond)
			counter.Add(1)
		})
	}
	pool.Close()
	pool.Close()

	if counter.Load() != 20 {
		t.Errorf("Close ran %d queued items, want 20", counter.Load())
	}
	if pool.IsRunning() {
		t.Error("pool running after Close")
	}
	if pool.Submit(0, func() {}) {
		t.Error("Submit accepted work after Close")
	}
	if pool.Submit(0, nil) {
		t.Error("Submit accepted nil work")
	}
	if pool.QueuedWork() != 0 {
		t.Errorf("QueuedWork() = %d after Close", pool.QueuedWork())
	}
	pool.Wait()
}
