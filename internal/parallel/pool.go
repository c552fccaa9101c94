// Package parallel splits per-pixel work across a pool of goroutines.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// minRowsPerTask keeps tasks large enough to amortise scheduling.
const minRowsPerTask = 16

// WorkerPool is a pool of goroutines for parallel pixel processing.
//
// The pool distributes work items across multiple workers, each with their own
// queue. Workers steal from other queues when their own is empty, which keeps
// rows of uneven cost (a blur near a transparent edge, for example) balanced.
//
// Thread safety: WorkerPool is safe for concurrent use. The foreground render
// path and the prefetch worker share the default pool.
type WorkerPool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
}

// NewWorkerPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
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

var (
	defaultOnce sync.Once
	defaultPool *WorkerPool
)

// Default returns the process-wide pool, created on first use.
func Default() *WorkerPool {
	defaultOnce.Do(func() {
		defaultPool = NewWorkerPool(0)
	})
	return defaultPool
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
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drainQueue(myQueue)
				return
			case work := <-myQueue:
				work()
			}
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

// steal attempts to take work from another worker's queue.
func (p *WorkerPool) steal(myID int) func() {
	for i := range p.workers {
		if i == myID {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// ExecuteAll distributes work across workers and waits for all to complete.
// On a closed pool the work runs on the calling goroutine.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 {
		return
	}
	if !p.running.Load() {
		for _, fn := range work {
			fn()
		}
		return
	}

	var completion sync.WaitGroup
	completion.Add(len(work))
	for i, fn := range work {
		wrapped := func() {
			defer completion.Done()
			fn()
		}
		select {
		case p.workQueues[i%p.workers] <- wrapped:
		case <-p.done:
			wrapped()
		}
	}
	completion.Wait()
}

// Rows calls fn over disjoint row bands [y0, y1) covering [0, height) and
// waits for all of them. Small images run inline.
func (p *WorkerPool) Rows(height int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	bands := min(p.workers, height/minRowsPerTask)
	if bands <= 1 {
		fn(0, height)
		return
	}
	step := (height + bands - 1) / bands
	work := make([]func(), 0, bands)
	for y0 := 0; y0 < height; y0 += step {
		y1 := min(y0+step, height)
		work = append(work, func() { fn(y0, y1) })
	}
	p.ExecuteAll(work)
}

// Close stops the workers after draining queued work.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
