package batch

import "sync"

// Pool is a fixed set of worker goroutines that execute submitted tasks one
// at a time each. Its size can be changed with Resize between drained phases
// instead of tearing the pool down and building a new one per batch.
type Pool struct {
	mu    sync.Mutex
	size  int
	tasks chan func()
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewPool starts a pool with size workers (at least one).
func NewPool(size int) *Pool {
	p := &Pool{
		tasks: make(chan func()),
		stop:  make(chan struct{}),
	}
	p.Resize(size)
	return p
}

// Size returns the current number of workers.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// Submit hands task to the next free worker, blocking until one takes it.
// At most Size tasks run at the same time; extra submissions queue behind them.
// Submit must not be called after Close.
func (p *Pool) Submit(task func()) {
	p.tasks <- task
}

// Resize grows or shrinks the pool to n workers (at least one). It must only
// be called while no tasks are in flight: shrinking hands a stop signal to
// idle workers and waits for them to take it.
func (p *Pool) Resize(n int) {
	if n < 1 {
		n = 1
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for p.size < n {
		p.wg.Add(1)
		go p.worker()
		p.size++
	}
	for p.size > n {
		p.stop <- struct{}{}
		p.size--
	}
}

// Close stops every worker and waits for them to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	close(p.tasks)
	p.size = 0
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task()
		case <-p.stop:
			return
		}
	}
}
