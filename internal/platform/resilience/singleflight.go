package resilience

import (
	"context"
	"sync"
)

// Group deduplicates concurrent calls for the same key. Late callers block on
// the in-flight call and receive its result.
type Group[T any] struct {
	mu    sync.Mutex
	calls map[string]*call[T]
}

type call[T any] struct {
	wg   sync.WaitGroup
	done chan struct{}
	val  T
	err  error

	// Set only for calls started by DoContext.
	waiters int
	cancel  context.CancelFunc
}

// Do runs fn once per key at a time. shared reports whether the result came
// from a call started by someone else.
func (g *Group[T]) Do(key string, fn func() (T, error)) (val T, err error, shared bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*call[T])
	}

	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}

	c := &call[T]{}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	defer func() {
		c.wg.Done()
		g.mu.Lock()
		delete(g.calls, key)
		g.mu.Unlock()
	}()

	c.val, c.err = fn()
	return c.val, c.err, false
}

// DoContext is Do for work that outlives any single caller. fn runs in its
// own goroutine under a context that keeps ctx's values but not its
// cancellation. Each caller stops waiting when its own ctx ends and gets
// ctx.Err(); fn's context is cancelled once every caller has stopped waiting.
func (g *Group[T]) DoContext(ctx context.Context, key string, fn func(ctx context.Context) (T, error)) (val T, err error, shared bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*call[T])
	}

	c, shared := g.calls[key]
	if shared && c.done != nil {
		c.waiters++
	} else if shared {
		// A plain Do call holds the key.
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	} else {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c = &call[T]{done: make(chan struct{}), waiters: 1, cancel: cancel}
		c.wg.Add(1)
		g.calls[key] = c
		go g.run(runCtx, key, c, fn)
	}
	g.mu.Unlock()

	select {
	case <-c.done:
		return c.val, c.err, shared
	case <-ctx.Done():
		g.leave(key, c)
		var zero T
		return zero, ctx.Err(), shared
	}
}

func (g *Group[T]) run(ctx context.Context, key string, c *call[T], fn func(ctx context.Context) (T, error)) {
	defer func() {
		c.cancel()
		g.mu.Lock()
		if g.calls[key] == c {
			delete(g.calls, key)
		}
		g.mu.Unlock()
		close(c.done)
		c.wg.Done()
	}()
	c.val, c.err = fn(ctx)
}

// leave drops one waiter. The last one out cancels the call and frees the key
// so the next caller starts fresh instead of joining a cancelled call.
func (g *Group[T]) leave(key string, c *call[T]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c.waiters--
	if c.waiters > 0 {
		return
	}
	c.cancel()
	if g.calls[key] == c {
		delete(g.calls, key)
	}
}

func (g *Group[T]) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.calls[key]
	return ok
}

// Waiters reports how many DoContext callers are waiting on key.
func (g *Group[T]) Waiters(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.calls[key]; ok {
		return c.waiters
	}
	return 0
}
