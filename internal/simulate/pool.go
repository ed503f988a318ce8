package simulate

import (
	"context"
	"sync"
)

// pool is a fixed-size goroutine pool with a bounded queue. It bounds how
// many node executions run at once so a burst of single-step runs cannot
// exhaust goroutines.
type pool[T any] struct {
	queue chan T
	run   func(ctx context.Context, t T)
	wg    sync.WaitGroup
}

// newPool starts n workers with queue capacity cap.
func newPool[T any](ctx context.Context, n, cap int, run func(context.Context, T)) *pool[T] {
	p := &pool[T]{
		queue: make(chan T, cap),
		run:   run,
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case t, ok := <-p.queue:
					if !ok {
						return
					}
					p.run(ctx, t)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	return p
}

// submit enqueues without blocking; false means the queue is full.
func (p *pool[T]) submit(t T) bool {
	select {
	case p.queue <- t:
		return true
	default:
		return false
	}
}

// drain closes the queue and waits for workers to finish.
func (p *pool[T]) drain() {
	close(p.queue)
	p.wg.Wait()
}
