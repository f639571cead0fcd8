package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/skillswap/internal/domain/swap"
)

type SwapsRepo struct {
	mu    sync.RWMutex
	items map[string]swap.Request
}

func NewSwapsRepo() *SwapsRepo {
	return &SwapsRepo{
		items: make(map[string]swap.Request),
	}
}

func (r *SwapsRepo) Create(_ context.Context, req swap.Request) (swap.Request, error) {
	req.Requester, req.Recipient = nil, nil

	r.mu.Lock()
	r.items[req.ID] = req
	r.mu.Unlock()

	return req, nil
}

func (r *SwapsRepo) GetByID(_ context.Context, id string) (swap.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.items[id]
	if !ok {
		return swap.Request{}, swap.ErrNotFound
	}
	return req, nil
}

func (r *SwapsRepo) ListByRecipient(_ context.Context, userID string) ([]swap.Request, error) {
	return r.list(func(s swap.Request) bool { return s.RecipientID == userID }), nil
}

func (r *SwapsRepo) ListByRequester(_ context.Context, userID string) ([]swap.Request, error) {
	return r.list(func(s swap.Request) bool { return s.RequesterID == userID }), nil
}

func (r *SwapsRepo) list(keep func(swap.Request) bool) []swap.Request {
	r.mu.RLock()
	out := make([]swap.Request, 0)
	for _, s := range r.items {
		if keep(s) {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Update stores req if the stored version still equals req.Version, then
// bumps the version. A stale version yields swap.ErrVersionConflict.
func (r *SwapsRepo) Update(_ context.Context, req swap.Request) (swap.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.items[req.ID]
	if !ok {
		return swap.Request{}, swap.ErrNotFound
	}
	if cur.Version != req.Version {
		return swap.Request{}, swap.ErrVersionConflict
	}

	req.Requester, req.Recipient = nil, nil
	req.Version++
	req.UpdatedAt = time.Now().UTC()
	r.items[req.ID] = req

	return req, nil
}

func (r *SwapsRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return swap.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *SwapsRepo) Count(_ context.Context, status *swap.Status) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if status == nil {
		return len(r.items), nil
	}

	n := 0
	for _, s := range r.items {
		if s.Status == *status {
			n++
		}
	}
	return n, nil
}
