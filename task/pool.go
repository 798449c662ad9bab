// Package task runs capture jobs off the main loop and tracks them until
// they finish.
package task

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned when work is submitted to a closed pool.
var ErrPoolClosed = errors.New("task: pool closed")

// Pool is a pool of goroutines for encode and write jobs.
//
// The pool distributes work items across multiple workers, each with their own
// queue. Workers can steal work from other workers when their own queue is empty.
// This helps balance load when one job (a long animation) is much slower than
// the others.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	// workers is the number of worker goroutines.
	workers int

	// queues holds per-worker work queues.
	queues []chan func()

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// mu orders submissions before Close so no work is queued after the
	// workers drained their queues.
	mu sync.RWMutex

	// running indicates whether the pool is accepting work.
	running atomic.Bool

	// overflow holds work submitted while every queue was full. Workers
	// take from it when their own queue and stealing come up empty.
	omu      sync.Mutex
	overflow []func()

	// more wakes one idle worker when overflow grows.
	more chan struct{}
}

// NewPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := max(workers*4, 8)

	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
		more:    make(chan struct{}, 1),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

// worker is the main loop for each worker goroutine.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	mine := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(mine)
			return
		case work := <-mine:
			work()
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			if extra := p.popOverflow(); extra != nil {
				extra()
				continue
			}
			select {
			case <-p.done:
				p.drain(mine)
				return
			case work := <-mine:
				work()
			case <-p.more:
				if extra := p.popOverflow(); extra != nil {
					extra()
				}
			}
		}
	}
}

// drain executes all remaining work in a queue and in the overflow list.
func (p *Pool) drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
			continue
		default:
		}
		extra := p.popOverflow()
		if extra == nil {
			return
		}
		extra()
	}
}

// pushOverflow appends fn to the overflow list and wakes a worker.
func (p *Pool) pushOverflow(fn func()) {
	p.omu.Lock()
	p.overflow = append(p.overflow, fn)
	p.omu.Unlock()
	p.wake()
}

// popOverflow removes the oldest overflow item, or returns nil.
func (p *Pool) popOverflow() func() {
	p.omu.Lock()
	defer p.omu.Unlock()
	if len(p.overflow) == 0 {
		return nil
	}
	fn := p.overflow[0]
	p.overflow[0] = nil
	p.overflow = p.overflow[1:]
	if len(p.overflow) > 0 {
		p.wake()
	}
	return fn
}

func (p *Pool) wake() {
	select {
	case p.more <- struct{}{}:
	default:
	}
}

// steal takes work from any queue other than skip's.
// Returns nil if no work is available.
func (p *Pool) steal(skip int) func() {
	for i := range p.workers {
		if i == skip {
			continue
		}
		select {
		case work := <-p.queues[i]:
			return work
		default:
		}
	}
	return nil
}

// Submit queues fn on the worker with the shortest queue. It never blocks:
// when every queue is full, fn waits in an unbounded overflow list. It
// returns false and drops fn when the pool is closed.
func (p *Pool) Submit(fn func()) bool {
	if fn == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running.Load() {
		return false
	}

	minIdx := 0
	for i := 1; i < p.workers; i++ {
		if len(p.queues[i]) < len(p.queues[minIdx]) {
			minIdx = i
		}
	}
	select {
	case p.queues[minIdx] <- fn:
	default:
		p.pushOverflow(fn)
	}
	return true
}

// ExecuteAll runs every item and waits for all of them to complete.
//
// Items that do not fit a worker queue run on the calling goroutine, which
// also steals queued work while it waits. ExecuteAll may therefore be called
// from inside a job without exhausting the workers, and items queued while
// the pool closes still run. On a closed pool the items run sequentially on
// the caller.
func (p *Pool) ExecuteAll(work []func()) {
	if len(work) == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(work))
	running := p.running.Load()
	for i, fn := range work {
		wrapped := func() {
			defer wg.Done()
			fn()
		}
		if !running {
			wrapped()
			continue
		}
		select {
		case p.queues[i%p.workers] <- wrapped:
		default:
			wrapped()
		}
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	for {
		select {
		case <-finished:
			return
		default:
		}
		stolen := p.steal(-1)
		if stolen == nil {
			// Every item is running or done.
			<-finished
			return
		}
		stolen()
	}
}

// Close stops accepting work, runs everything already queued and stops the
// workers. Close is safe to call multiple times.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.mu.Unlock()
		return
	}
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns the total number of work items currently queued.
// This is an approximation as queues can change while iterating.
func (p *Pool) QueuedWork() int {
	total := 0
	for _, q := range p.queues {
		total += len(q)
	}
	p.omu.Lock()
	total += len(p.overflow)
	p.omu.Unlock()
	return total
}
