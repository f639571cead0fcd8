package notifications

import (
	"context"
	"errors"
	"time"
)

const (
	TypeSwapCreated = "swap.created"
	TypeSwapUpdated = "swap.updated"
)

// Event tells UserID that a swap request they take part in changed.
type Event struct {
	Type    string    `json:"type"`
	UserID  string    `json:"userId"`
	SwapID  string    `json:"swapId"`
	Status  string    `json:"status"`
	ActorID string    `json:"actorId"`
	At      time.Time `json:"at"`
}

// Room is the per-user channel name used by every transport.
func Room(userID string) string {
	return "user-" + userID
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Fanout delivers to every sink and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
