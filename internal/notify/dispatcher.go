// Package notify delivers domain events to best-effort side channels.
//
// Callers hand events to a Dispatcher and return immediately. Workers fan
// each event out to every configured Sink; failures are logged and
// dropped, and never travel back to the caller.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/logging"
)

// Sink is one outbound channel.
type Sink interface {
	Name() string
	// Configured reports whether the sink has what it needs to send.
	// Unconfigured sinks are skipped without error.
	Configured() bool
	// Dispatch sends ev and reports success. It must not panic and must
	// respect ctx.
	Dispatch(ctx context.Context, ev domain.Event) bool
}

type Options struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 100
	}
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

// Dispatcher is a bounded queue drained by a fixed set of workers.
type Dispatcher struct {
	sinks   []Sink
	queue   chan domain.Event
	timeout time.Duration
	log     logging.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts the workers. Call Close to drain and stop them.
func NewDispatcher(log logging.Logger, opts Options, sinks ...Sink) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		sinks:   sinks,
		queue:   make(chan domain.Event, opts.QueueSize),
		timeout: opts.Timeout,
		log:     log.With("component", "notify"),
	}

	for _, s := range sinks {
		if !s.Configured() {
			d.log.Info(context.Background(), "notification sink disabled", "sink", s.Name())
		}
	}

	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Notify enqueues ev without blocking. When the queue is full or the
// dispatcher is closed the event is dropped.
func (d *Dispatcher) Notify(ev domain.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Debug(context.Background(), "notification dropped after close", "kind", ev.Kind)
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.log.Warn(context.Background(), "notification queue full, dropping event", "kind", ev.Kind)
	}
}

// Close stops accepting events and waits for queued ones to be delivered,
// or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notify: drain: %w", ctx.Err())
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.queue {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev domain.Event) {
	for _, sink := range d.sinks {
		if !sink.Configured() {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		ok := d.dispatch(ctx, sink, ev)
		cancel()

		if ok {
			d.log.Debug(ctx, "notification sent", "sink", sink.Name(), "kind", ev.Kind)
		} else {
			d.log.Warn(ctx, "notification not delivered", "sink", sink.Name(), "kind", ev.Kind)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, sink Sink, ev domain.Event) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error(ctx, "notification sink panicked", "sink", sink.Name(), "panic", r)
			ok = false
		}
	}()
	return sink.Dispatch(ctx, ev)
}
