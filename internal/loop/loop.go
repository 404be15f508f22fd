// Package loop runs a page session's controllers on a single goroutine.
//
// Events from any source are posted as closures and executed one at a time
// in arrival order. Frame callbacks run after the queue has drained, which
// is when a browser would paint. Controllers therefore need no locking.
package loop

import (
	"context"
	"errors"
	"sync"

	"github.com/conneroisu/tabi/internal/browser"
)

// ErrStopped is returned by Post after the loop has exited.
var ErrStopped = errors.New("loop: stopped")

// Loop is a cooperative single-threaded executor.
type Loop struct {
	queue chan func()
	done  chan struct{}

	mu      sync.Mutex
	stopped bool

	// frames is only touched from the loop goroutine.
	nextFrame int
	frames    map[int]func()
	order     []int
}

// New creates a loop whose queue holds up to size pending events.
func New(size int) *Loop {
	if size <= 0 {
		size = 256
	}
	return &Loop{
		queue:  make(chan func(), size),
		done:   make(chan struct{}),
		frames: make(map[int]func()),
	}
}

// Post schedules fn. It blocks while the queue is full and fails once the
// loop has stopped or ctx is done.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		return ErrStopped
	}
	select {
	case l.queue <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do posts fn and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestFrame implements browser.Frames. It must be called from the loop
// goroutine.
func (l *Loop) RequestFrame(fn func()) browser.Cancel {
	l.nextFrame++
	id := l.nextFrame
	l.frames[id] = fn
	l.order = append(l.order, id)
	return func() { delete(l.frames, id) }
}

// Run executes events until ctx is done. Pending frames run whenever the
// queue is empty.
func (l *Loop) Run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		if len(l.order) > 0 {
			select {
			case fn := <-l.queue:
				fn()
				continue
			case <-ctx.Done():
				return
			default:
				l.flushFrames()
				continue
			}
		}

		select {
		case fn := <-l.queue:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) flushFrames() {
	pending := l.order
	l.order = nil
	for _, id := range pending {
		fn, ok := l.frames[id]
		if !ok {
			continue
		}
		delete(l.frames, id)
		fn()
	}
}
