package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Observer receives one call per delivery attempt. result is one of
// "ok", "error", "dropped" or "circuit_open".
type Observer func(sink, result string)

// Async decouples request handlers from notification sinks: Notify only
// enqueues, a single goroutine started by Run delivers. When the buffer is
// full the event is dropped and logged.
type Async struct {
	next    Notifier
	queue   chan Event
	log     *slog.Logger
	observe Observer
	timeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

type AsyncConfig struct {
	Buffer  int
	Timeout time.Duration // per delivery
	Logger  *slog.Logger
	Observe Observer
}

func NewAsync(next Notifier, cfg AsyncConfig) *Async {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observe == nil {
		cfg.Observe = func(string, string) {}
	}

	return &Async{
		next:    next,
		queue:   make(chan Event, cfg.Buffer),
		log:     cfg.Logger,
		observe: cfg.Observe,
		timeout: cfg.Timeout,
		done:    make(chan struct{}),
	}
}

// Notify never blocks and never fails the caller.
func (a *Async) Notify(ctx context.Context, ev Event) error {
	select {
	case a.queue <- ev:
	default:
		a.observe("async", "dropped")
		a.log.WarnContext(ctx, "notification.dropped",
			"type", ev.Type,
			"user_id", ev.UserID,
			"swap_id", ev.SwapID,
		)
	}
	return nil
}

// Run delivers queued events until ctx is cancelled, then drains whatever is
// still buffered with a fresh per-event timeout.
func (a *Async) Run(ctx context.Context) {
	defer a.closeOnce.Do(func() { close(a.done) })

	for {
		select {
		case ev := <-a.queue:
			a.deliver(ctx, ev)
		case <-ctx.Done():
			a.drain()
			return
		}
	}
}

// Done is closed once Run has returned.
func (a *Async) Done() <-chan struct{} { return a.done }

func (a *Async) drain() {
	for {
		select {
		case ev := <-a.queue:
			a.deliver(context.Background(), ev)
		default:
			return
		}
	}
}

func (a *Async) deliver(parent context.Context, ev Event) {
	ctx, cancel := context.WithTimeout(parent, a.timeout)
	defer cancel()

	err := a.next.Notify(ctx, ev)
	switch {
	case err == nil:
		a.observe("async", "ok")
	case errors.Is(err, ErrCircuitOpen):
		a.observe("async", "circuit_open")
		a.log.Warn("notification.circuit_open", "type", ev.Type, "user_id", ev.UserID)
	default:
		a.observe("async", "error")
		a.log.Error("notification.failed", "type", ev.Type, "user_id", ev.UserID, "err", err)
	}
}
