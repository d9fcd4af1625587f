// Package workers provides the fixed-size task pool used by the detector to
// run its two parallel pipeline regions. Tasks are submitted in a batch and
// Run blocks until every submitted task has completed, which gives the
// barrier semantics the pipeline relies on.
package workers

import (
	"runtime"
	"sync"
)

// TasksPerThreadTarget is the ratio used to size task batches: work is
// chunked so that each worker receives roughly this many tasks, balancing
// scheduling overhead against load balance.
const TasksPerThreadTarget = 10

// Pool is a fixed set of worker goroutines executing batches of tasks.
// It is not safe for concurrent use by multiple callers; the detector owns
// its pool exclusively.
type Pool struct {
	n       int
	jobs    chan func()
	wg      sync.WaitGroup
	pending []func()
	closed  bool
	mu      sync.Mutex
}

// NewPool creates a pool with n workers. n <= 0 selects runtime.NumCPU().
func NewPool(n int) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p := &Pool{
		n:    n,
		jobs: make(chan func(), n),
	}
	for _i := 0; _i < n; _i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for task := range p.jobs {
		task()
		p.wg.Done()
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.n }

// Submit queues a task for the next Run. It does not start execution.
func (p *Pool) Submit(task func()) {
	p.pending = append(p.pending, task)
}

// Run dispatches all submitted tasks to the workers and blocks until every
// one of them has completed.
func (p *Pool) Run() {
	tasks := p.pending
	p.pending = nil
	p.wg.Add(len(tasks))
	for _, t := range tasks {
		p.jobs <- t
	}
	p.wg.Wait()
}

// Close shuts the workers down. The pool must be idle.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
}

// ChunkSize returns the per-task chunk length for splitting sz work items
// across nthreads workers at the target tasks-per-thread ratio.
func ChunkSize(sz, nthreads int) int {
	return 1 + sz/(TasksPerThreadTarget*nthreads)
}
