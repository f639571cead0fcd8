package swaps

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/skillswap/internal/apperr"
	"github.com/geocoder89/skillswap/internal/domain/swap"
	"github.com/geocoder89/skillswap/internal/domain/user"
	"github.com/geocoder89/skillswap/internal/notifications"
)

type SwapStore interface {
	Create(ctx context.Context, req swap.Request) (swap.Request, error)
	GetByID(ctx context.Context, id string) (swap.Request, error)
	ListByRecipient(ctx context.Context, userID string) ([]swap.Request, error)
	ListByRequester(ctx context.Context, userID string) ([]swap.Request, error)
	Update(ctx context.Context, req swap.Request) (swap.Request, error)
	Delete(ctx context.Context, id string) error
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	AddRating(ctx context.Context, id string, rating int) error
}

type TransitionObserver interface {
	ObserveTransition(action string, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveTransition(string, error) {}

type Service struct {
	swaps    SwapStore
	users    UserStore
	notifier notifications.Notifier
	metrics  TransitionObserver
	log      *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithNotifier(n notifications.Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithMetrics(m TransitionObserver) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(log *slog.Logger) Option { return func(s *Service) { s.log = log } }

func NewService(swaps SwapStore, users UserStore, opts ...Option) *Service {
	s := &Service{
		swaps:    swaps,
		users:    users,
		notifier: notifications.Nop{},
		metrics:  nopObserver{},
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create opens a pending request from requesterID to the recipient named in
// req. The recipient is told about it through the notifier.
func (s *Service) Create(ctx context.Context, requesterID string, req swap.CreateRequest) (out swap.Request, err error) {
	defer func() { s.metrics.ObserveTransition("create", err) }()

	if req.RecipientID == requesterID {
		return swap.Request{}, swap.ErrSelfRequest
	}

	recipient, err := s.users.GetByID(ctx, req.RecipientID)
	if err != nil {
		return swap.Request{}, classify(err, "Could not create swap request")
	}
	if recipient.IsBanned {
		return swap.Request{}, user.ErrNotFound
	}

	out, err = s.swaps.Create(ctx, swap.NewFromCreateRequest(requesterID, req))
	if err != nil {
		return swap.Request{}, classify(err, "Could not create swap request")
	}

	s.notify(ctx, notifications.TypeSwapCreated, out, requesterID, out.RecipientID)
	return out, nil
}

// Get returns a single request; only its two parties may read it.
func (s *Service) Get(ctx context.Context, actorID, id string) (swap.Request, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return swap.Request{}, err
	}
	if !req.IsParty(actorID) {
		return swap.Request{}, swap.ErrNotParty
	}

	list := []swap.Request{req}
	s.attachSummaries(ctx, list, true, true)
	return list[0], nil
}

// Received lists requests addressed to userID, newest first, with the
// requester summary attached.
func (s *Service) Received(ctx context.Context, userID string) ([]swap.Request, error) {
	list, err := s.swaps.ListByRecipient(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Could not load swap requests", err)
	}
	s.attachSummaries(ctx, list, true, false)
	return list, nil
}

func (s *Service) Sent(ctx context.Context, userID string) ([]swap.Request, error) {
	list, err := s.swaps.ListByRequester(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Could not load swap requests", err)
	}
	s.attachSummaries(ctx, list, false, true)
	return list, nil
}

func (s *Service) Accept(ctx context.Context, actorID, id string) (swap.Request, error) {
	return s.transition(ctx, "accept", actorID, id, func(r *swap.Request) error {
		return r.Accept(actorID)
	})
}

func (s *Service) Reject(ctx context.Context, actorID, id string) (swap.Request, error) {
	return s.transition(ctx, "reject", actorID, id, func(r *swap.Request) error {
		return r.Reject(actorID)
	})
}

func (s *Service) Cancel(ctx context.Context, actorID, id string) (swap.Request, error) {
	return s.transition(ctx, "cancel", actorID, id, func(r *swap.Request) error {
		return r.Cancel(actorID)
	})
}

func (s *Service) Complete(ctx context.Context, actorID, id string) (swap.Request, error) {
	return s.transition(ctx, "complete", actorID, id, func(r *swap.Request) error {
		return r.Complete(actorID, s.now().UTC())
	})
}

// Rate stores the caller's rating on their own side of a completed swap and
// adds it to the counterpart's aggregate.
func (s *Service) Rate(ctx context.Context, actorID, id string, in swap.RateRequest) (swap.Request, error) {
	out, err := s.transition(ctx, "rate", actorID, id, func(r *swap.Request) error {
		return r.Rate(actorID, in.Rating, in.Comment)
	})
	if err != nil {
		return swap.Request{}, err
	}

	if err := s.users.AddRating(ctx, out.Counterpart(actorID), in.Rating); err != nil {
		return swap.Request{}, classify(err, "Could not record rating")
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, actorID, id string) (err error) {
	defer func() { s.metrics.ObserveTransition("delete", err) }()

	req, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := req.CanDelete(actorID); err != nil {
		return err
	}

	if err := s.swaps.Delete(ctx, id); err != nil {
		return classify(err, "Could not delete swap request")
	}
	return nil
}

// transition is the read-modify-write shared by every status change. The
// store rejects the write if another writer bumped the version in between.
func (s *Service) transition(ctx context.Context, action, actorID, id string, apply func(*swap.Request) error) (out swap.Request, err error) {
	defer func() { s.metrics.ObserveTransition(action, err) }()

	req, err := s.load(ctx, id)
	if err != nil {
		return swap.Request{}, err
	}

	if err := apply(&req); err != nil {
		return swap.Request{}, err
	}

	out, err = s.swaps.Update(ctx, req)
	if err != nil {
		if errors.Is(err, swap.ErrVersionConflict) {
			s.log.InfoContext(ctx, "swaps.version_conflict", "swap_id", id, "action", action)
		}
		return swap.Request{}, classify(err, "Could not update swap request")
	}

	s.notify(ctx, notifications.TypeSwapUpdated, out, actorID, out.Counterpart(actorID))
	return out, nil
}

func (s *Service) load(ctx context.Context, id string) (swap.Request, error) {
	req, err := s.swaps.GetByID(ctx, id)
	if err != nil {
		return swap.Request{}, classify(err, "Could not load swap request")
	}
	return req, nil
}

func (s *Service) notify(ctx context.Context, typ string, req swap.Request, actorID, to string) {
	ev := notifications.Event{
		Type:    typ,
		UserID:  to,
		SwapID:  req.ID,
		Status:  string(req.Status),
		ActorID: actorID,
		At:      s.now().UTC(),
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.WarnContext(ctx, "swaps.notify_failed", "swap_id", req.ID, "type", typ, "err", err)
	}
}

// attachSummaries resolves the name and email of each party. A party that
// can no longer be loaded is left without a summary.
func (s *Service) attachSummaries(ctx context.Context, list []swap.Request, requester, recipient bool) {
	seen := make(map[string]*user.Summary)

	lookup := func(id string) *user.Summary {
		if sum, ok := seen[id]; ok {
			return sum
		}
		var sum *user.Summary
		if u, err := s.users.GetByID(ctx, id); err == nil {
			v := u.Summary()
			sum = &v
		} else if !errors.Is(err, user.ErrNotFound) {
			s.log.WarnContext(ctx, "swaps.summary_lookup_failed", "user_id", id, "err", err)
		}
		seen[id] = sum
		return sum
	}

	for i := range list {
		if requester {
			list[i].Requester = lookup(list[i].RequesterID)
		}
		if recipient {
			list[i].Recipient = lookup(list[i].RecipientID)
		}
	}
}

// classify keeps classified errors as they are and wraps anything else as an
// internal failure with a client-safe message.
func classify(err error, msg string) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(msg, err)
}
