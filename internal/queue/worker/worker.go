package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/skillswap/internal/notifications"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message is one queued delivery. amqp.Delivery is adapted to it so the
// processing logic can be tested without a broker.
type Message interface {
	Body() []byte
	Ack() error
	Nack(requeue bool) error
}

type Config struct {
	Concurrency  int
	MaxAttempts  int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	DeliverLimit time.Duration
}

// Worker relays queued swap events to a notifier, usually the Redis room
// publisher that websocket clients listen on.
type Worker struct {
	cfg     Config
	sink    notifications.Notifier
	log     *slog.Logger
	observe notifications.Observer
	sleep   func(ctx context.Context, d time.Duration) bool

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, sink notifications.Notifier, log *slog.Logger, observe notifications.Observer) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.DeliverLimit <= 0 {
		cfg.DeliverLimit = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	if observe == nil {
		observe = func(string, string) {}
	}

	return &Worker{
		cfg:     cfg,
		sink:    sink,
		log:     log,
		observe: observe,
		sleep:   sleepCtx,
	}
}

// Run processes deliveries until ctx is cancelled or the channel closes.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	msgs := make(chan Message)

	go func() {
		defer close(msgs)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				select {
				case msgs <- amqpMessage{d: d}:
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return
				}
			}
		}
	}()

	return w.RunMessages(ctx, msgs)
}

// RunMessages fans msgs out to cfg.Concurrency goroutines.
func (w *Worker) RunMessages(ctx context.Context, msgs <-chan Message) error {
	w.setReady(true)
	defer w.setReady(false)

	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range msgs {
				w.Process(ctx, m)
			}
		}()
	}

	wg.Wait()
	w.log.Info("worker.stopped")
	return ctx.Err()
}

// Process delivers one message. Undecodable messages are dropped. Delivery
// failures are retried with backoff; once attempts run out the message is
// dropped too, and only a shutdown in the middle of retrying requeues it.
func (w *Worker) Process(ctx context.Context, m Message) {
	var ev notifications.Event

	if err := json.Unmarshal(m.Body(), &ev); err != nil || ev.UserID == "" {
		w.log.Warn("worker.poison_message", "err", err)
		w.observe("relay", "dropped")
		_ = m.Nack(false)
		return
	}

	for attempt := 0; attempt < w.cfg.MaxAttempts; attempt++ {
		dctx, cancel := context.WithTimeout(ctx, w.cfg.DeliverLimit)
		err := w.sink.Notify(dctx, ev)
		cancel()

		if err == nil {
			w.observe("relay", "ok")
			_ = m.Ack()
			return
		}

		w.log.Warn("worker.deliver_failed",
			"swap_id", ev.SwapID,
			"user_id", ev.UserID,
			"attempt", attempt+1,
			"err", err,
		)

		if attempt == w.cfg.MaxAttempts-1 {
			break
		}

		if !w.sleep(ctx, ExponentialBackoff(attempt, w.cfg.BaseBackoff, w.cfg.MaxBackoff)) {
			w.observe("relay", "requeued")
			_ = m.Nack(true)
			return
		}
	}

	w.log.Error("worker.relay_exhausted",
		"swap_id", ev.SwapID,
		"user_id", ev.UserID,
		"attempts", w.cfg.MaxAttempts,
	)
	w.observe("relay", "error")
	_ = m.Nack(false)
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) Ready() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type amqpMessage struct {
	d amqp.Delivery
}

func (m amqpMessage) Body() []byte            { return m.d.Body }
func (m amqpMessage) Ack() error              { return m.d.Ack(false) }
func (m amqpMessage) Nack(requeue bool) error { return m.d.Nack(false, requeue) }
