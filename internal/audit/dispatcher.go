package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Sink receives dispatched events.
type Sink[E any] interface {
	Append(ctx context.Context, event E) error
}

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher asynchronously forwards events to a sink.
type Dispatcher[E any] struct {
	cfg       Config
	sink      Sink[E]
	onError   func(E, error)
	ch        chan E
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closeOnce sync.Once

	// mu is held for reading across every send so Close can close ch safely.
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts a dispatcher goroutine. It returns nil when cfg is disabled
// or sink is nil; a nil *Dispatcher accepts and discards events.
//
// onError, when set, is called from the dispatcher goroutine for every failed or
// panicking Append.
func NewDispatcher[E any](cfg Config, sink Sink[E], onError func(E, error)) *Dispatcher[E] {
	if !cfg.Enabled || sink == nil {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}

	d := &Dispatcher[E]{
		cfg:     cfg,
		sink:    sink,
		onError: onError,
		ch:      make(chan E, cfg.BufferSize),
		done:    make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher[E]) run() {
	defer d.wg.Done()

	for event := range d.ch {
		d.deliver(event)
	}
}

func (d *Dispatcher[E]) deliver(event E) {
	err := d.safeAppend(event)
	if err == nil {
		return
	}
	d.failed.Add(1)
	if d.onError != nil {
		d.onError(event, err)
	}
}

func (d *Dispatcher[E]) safeAppend(event E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("audit sink panic: %v", r)
		}
	}()
	return d.sink.Append(context.Background(), event)
}

// Emit enqueues event. With DropIfFull a full buffer drops the event and counts it;
// otherwise Emit blocks until there is room or ctx is done. Every event that does not
// reach the buffer, including those emitted during or after Close, counts as dropped.
func (d *Dispatcher[E]) Emit(ctx context.Context, event E) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
		d.dropped.Add(1)
	}
}

// Close stops accepting events and waits until buffered events are delivered.
func (d *Dispatcher[E]) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		close(d.done)

		d.mu.Lock()
		d.closed = true
		close(d.ch)
		d.mu.Unlock()

		d.wg.Wait()
	})
}

func (d *Dispatcher[E]) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *Dispatcher[E]) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
