package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"
)

var (
	// ErrTimeout is returned when a native call exceeds its time budget.
	ErrTimeout = errors.New("native call timed out")
	// ErrClosed is returned by Do after Close.
	ErrClosed = errors.New("worker closed")
)

// Pool serializes native calls (capture, input injection, region selection)
// onto a single OS-thread-locked goroutine. Each call is bounded by a
// timeout; a call that overruns is abandoned and a fresh worker thread takes
// over the queue, so one stuck call cannot wedge the engine.
type Pool struct {
	jobs    chan job
	quit    chan struct{}
	timeout time.Duration

	mu     sync.Mutex
	gen    uint64
	closed bool
	// wg counts only the current generation; an abandoned thread may never
	// return.
	wg sync.WaitGroup
}

type job struct {
	name string
	fn   func() error
	done chan error
}

// New creates a worker with the given per-call timeout. A non-positive
// timeout disables the bound.
func New(timeout time.Duration) *Pool {
	p := &Pool{
		jobs:    make(chan job),
		quit:    make(chan struct{}),
		timeout: timeout,
	}
	p.spawn()
	return p
}

// spawn starts a new generation and releases the previous one from wg.
func (p *Pool) spawn() {
	p.mu.Lock()
	p.wg.Add(1)
	if p.gen > 0 {
		p.wg.Done()
	}
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	go p.run(gen)
}

func (p *Pool) exit(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen == p.gen {
		p.wg.Done()
	}
}

func (p *Pool) stale(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return gen != p.gen
}

func (p *Pool) run(gen uint64) {
	defer p.exit(gen)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-p.quit:
			return
		case j := <-p.jobs:
			j.done <- call(j)
			if p.stale(gen) {
				log.Printf("Worker: abandoned thread finished %s and exits", j.name)
				return
			}
		}
	}
}

func call(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("native call %s panicked: %v", j.name, r)
		}
	}()
	return j.fn()
}

// Do runs fn on the worker thread and waits for it. It returns ErrTimeout
// if fn does not finish within the pool's timeout, and ctx.Err() if ctx ends
// first. A panic inside fn is returned as an error.
func (p *Pool) Do(ctx context.Context, name string, fn func() error) error {
	j := job{name: name, fn: fn, done: make(chan error, 1)}

	select {
	case p.jobs <- j:
	case <-p.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	var expired <-chan time.Time
	if p.timeout > 0 {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case err := <-j.done:
		return err
	case <-expired:
		log.Printf("Worker: %s exceeded %v, replacing worker thread", name, p.timeout)
		p.spawn()
		return fmt.Errorf("%s: %w", name, ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting calls and waits for the current worker to drain.
// Threads abandoned after a timeout are not waited for.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	close(p.quit)
	p.wg.Wait()
}
