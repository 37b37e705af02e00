package worker

import (
	"context"
	"sync"
)

// Task is one unit of work producing R
type Task[R any] func(ctx context.Context) R

// Pool runs tasks on a fixed number of goroutines and gathers their results
type Pool[R any] struct {
	workers int
	tasks   chan Task[R]
	results chan R
	out     []R
	done    chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewPool creates a pool bound to ctx. Workers below one are raised to one.
func NewPool[R any](ctx context.Context, workers int) *Pool[R] {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool[R]{
		workers: workers,
		tasks:   make(chan Task[R], workers),
		results: make(chan R, workers),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers and the result collector
func (p *Pool[R]) Start() {
	go func() {
		defer close(p.done)
		for r := range p.results {
			p.out = append(p.out, r)
		}
	}()

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-p.ctx.Done():
					return
				case task, ok := <-p.tasks:
					if !ok {
						return
					}
					p.results <- task(p.ctx)
				}
			}
		}()
	}
}

// Submit queues task. It returns false once the pool's context is done.
func (p *Pool[R]) Submit(task Task[R]) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.tasks <- task:
		return true
	}
}

// Wait stops accepting tasks and returns every result in completion order.
// Tasks still queued when the context ends produce no result.
func (p *Pool[R]) Wait() []R {
	close(p.tasks)
	p.wg.Wait()
	close(p.results)
	<-p.done
	p.cancel()
	return p.out
}

// ForEach runs fn for every index in [0, n) with at most workers in flight.
// Dispatch stops when ctx is done; indices already started run to completion
// and ctx.Err() is returned.
func ForEach(ctx context.Context, workers, n int, fn func(ctx context.Context, i int)) error {
	if workers <= 0 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	var err error
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case sem <- struct{}{}:
		}
		if err != nil {
			break
		}
		if ctx.Err() != nil {
			<-sem
			err = ctx.Err()
			break
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(ctx, i)
		}(i)
	}

	wg.Wait()
	return err
}
