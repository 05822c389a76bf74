// Package parallel provides the bounded worker pool the chunk bridge runs on.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a fixed set of goroutines with one bounded queue each.
//
// Work is submitted under a key. All work for the same key lands on the same
// worker queue and runs in submission order, one item at a time; work for
// different keys may run concurrently. Workers never steal from each other,
// since stealing would reorder work within a key.
//
// A full queue blocks Submit, which gives callers backpressure instead of
// unbounded goroutine growth.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	// workers is the number of worker goroutines.
	workers int

	// workQueues holds per-worker work queues.
	workQueues []chan func()

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// pending counts submitted work that has not finished yet; idle is
	// signalled when it drops to zero.
	pendingMu sync.Mutex
	idle      *sync.Cond
	pending   int

	// closeMu orders Submit against Close so no work is queued after the
	// workers drained their queues.
	closeMu sync.RWMutex

	// running indicates whether the pool is accepting work.
	running atomic.Bool

	// queueSize is the buffer size for each worker's queue.
	queueSize int
}

// NewWorkerPool creates a pool with the given number of workers and per-worker
// queue depth. Non-positive workers selects GOMAXPROCS; non-positive
// queueSize selects four items per worker with a minimum of 8.
// The pool starts immediately.
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queueSize <= 0 {
		queueSize = workers * 4
		if queueSize < 8 {
			queueSize = 8
		}
	}

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
		queueSize:  queueSize,
	}
	p.idle = sync.NewCond(&p.pendingMu)
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.workQueues[id]
	for {
		select {
		case <-p.done:
			p.drainQueue(myQueue)
			return
		case work := <-myQueue:
			work()
		}
	}
}

// drainQueue executes all remaining work in a queue.
func (p *WorkerPool) drainQueue(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

// queueFor maps a key to its worker queue with a 64-bit finalizer mix so
// neighbouring chunk coordinates spread across workers.
func (p *WorkerPool) queueFor(key uint64) chan func() {
	key ^= key >> 33
	key *= 0xff51afd7ed558ccd
	key ^= key >> 33
	return p.workQueues[key%uint64(p.workers)]
}

// Submit queues fn under key and reports whether it was accepted.
// It blocks while the key's queue is full. After Close it returns false.
func (p *WorkerPool) Submit(key uint64, fn func()) bool {
	if fn == nil {
		return false
	}
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if !p.running.Load() {
		return false
	}

	p.pendingMu.Lock()
	p.pending++
	p.pendingMu.Unlock()

	p.queueFor(key) <- func() {
		defer p.finish()
		fn()
	}
	return true
}

func (p *WorkerPool) finish() {
	p.pendingMu.Lock()
	p.pending--
	if p.pending == 0 {
		p.idle.Broadcast()
	}
	p.pendingMu.Unlock()
}

// Wait blocks until no submitted work is queued or running.
func (p *WorkerPool) Wait() {
	p.pendingMu.Lock()
	for p.pending > 0 {
		p.idle.Wait()
	}
	p.pendingMu.Unlock()
}

// Close stops accepting new work, runs everything already queued and stops
// the workers. Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.closeMu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.closeMu.Unlock()
		return
	}
	p.closeMu.Unlock()

	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// QueueSize returns the capacity of each worker queue.
func (p *WorkerPool) QueueSize() int {
	return p.queueSize
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns the total number of work items currently queued.
// This is an approximation as queues can change while iterating.
func (p *WorkerPool) QueuedWork() int {
	total := 0
	for _, q := range p.workQueues {
		total += len(q)
	}
	return total
}
