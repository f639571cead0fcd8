package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recorder) Notify(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type fakePublisher struct {
	channel string
	payload []byte
}

func (p *fakePublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.channel, p.payload = channel, payload
	return nil
}

func TestFanoutDeliversToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a, b := &recorder{}, &recorder{err: boom}

	err := Fanout{a, b}.Notify(context.Background(), Event{Type: TypeSwapUpdated, UserID: "u1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if a.len() != 1 || b.len() != 1 {
		t.Fatalf("expected both sinks to receive the event")
	}
}

func TestRedisNotifierPublishesToUserRoom(t *testing.T) {
	pub := &fakePublisher{}

	if err := NewRedisNotifier(pub).Notify(context.Background(), Event{Type: TypeSwapCreated, UserID: "u9", SwapID: "s1"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if pub.channel != "user-u9" {
		t.Fatalf("got channel %q", pub.channel)
	}
	if len(pub.payload) == 0 {
		t.Fatalf("expected json payload")
	}
}

func TestProtectedNotifierOpensAndRecovers(t *testing.T) {
	inner := &recorder{err: errors.New("down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 2, Cooldown: time.Minute})
	now := time.Now()
	n.now = func() time.Time { return now }

	ctx := context.Background()
	_ = n.Notify(ctx, Event{})
	_ = n.Notify(ctx, Event{})

	if n.State() != stateOpen {
		t.Fatalf("expected open circuit, got %s", n.State())
	}
	if err := n.Notify(ctx, Event{}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.len() != 2 {
		t.Fatalf("open circuit must not call the sink, calls=%d", inner.len())
	}

	now = now.Add(2 * time.Minute)
	inner.err = nil
	if err := n.Notify(ctx, Event{}); err != nil {
		t.Fatalf("half-open trial should succeed, got %v", err)
	}
	if n.State() != stateClosed {
		t.Fatalf("expected closed after successful trial, got %s", n.State())
	}
}

func TestAsyncDeliversAndDrainsOnShutdown(t *testing.T) {
	rec := &recorder{}
	var mu sync.Mutex
	results := map[string]int{}

	a := NewAsync(rec, AsyncConfig{Buffer: 8, Observe: func(_, result string) {
		mu.Lock()
		results[result]++
		mu.Unlock()
	}})

	for i := 0; i < 3; i++ {
		_ = a.Notify(context.Background(), Event{Type: TypeSwapUpdated, UserID: "u1"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	go a.Run(ctx)
	cancel()

	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	if rec.len() != 3 {
		t.Fatalf("expected 3 delivered events, got %d", rec.len())
	}
	mu.Lock()
	defer mu.Unlock()
	if results["ok"] != 3 {
		t.Fatalf("unexpected results %v", results)
	}
}

func TestAsyncDropsWhenFull(t *testing.T) {
	rec := &recorder{}
	dropped := 0
	a := NewAsync(rec, AsyncConfig{Buffer: 1, Observe: func(_, result string) {
		if result == "dropped" {
			dropped++
		}
	}})

	// no Run goroutine: the second event has nowhere to go
	_ = a.Notify(context.Background(), Event{UserID: "u1"})
	if err := a.Notify(context.Background(), Event{UserID: "u2"}); err != nil {
		t.Fatalf("Notify must never fail the caller, got %v", err)
	}
	if dropped != 1 {
		t.Fatalf("expected one dropped event, got %d", dropped)
	}
}
