package swap

import (
	"errors"
	"testing"
	"time"
)

const (
	requester = "11111111-1111-1111-1111-111111111111"
	recipient = "22222222-2222-2222-2222-222222222222"
	stranger  = "33333333-3333-3333-3333-333333333333"
)

func pending() Request {
	return NewFromCreateRequest(requester, CreateRequest{
		RecipientID:  recipient,
		SkillOffered: " Go ",
		SkillWanted:  "Guitar",
	})
}

func TestNewFromCreateRequest(t *testing.T) {
	r := pending()

	if r.Status != StatusPending {
		t.Fatalf("expected pending, got %s", r.Status)
	}
	if r.OfferedSkill != "Go" {
		t.Fatalf("expected trimmed skill, got %q", r.OfferedSkill)
	}
	if r.Version != 1 {
		t.Fatalf("expected version 1, got %d", r.Version)
	}
}

func TestTransitionsFromPending(t *testing.T) {
	tests := []struct {
		name       string
		apply      func(r *Request) error
		wantErr    error
		wantStatus Status
	}{
		{name: "recipient_accepts", apply: func(r *Request) error { return r.Accept(recipient) }, wantStatus: StatusAccepted},
		{name: "recipient_rejects", apply: func(r *Request) error { return r.Reject(recipient) }, wantStatus: StatusRejected},
		{name: "requester_cannot_accept", apply: func(r *Request) error { return r.Accept(requester) }, wantErr: ErrNotRecipientAccept, wantStatus: StatusPending},
		{name: "stranger_cannot_reject", apply: func(r *Request) error { return r.Reject(stranger) }, wantErr: ErrNotRecipientReject, wantStatus: StatusPending},
		{name: "requester_cancels", apply: func(r *Request) error { return r.Cancel(requester) }, wantStatus: StatusCancelled},
		{name: "recipient_cannot_cancel", apply: func(r *Request) error { return r.Cancel(recipient) }, wantErr: ErrNotRequesterCancel, wantStatus: StatusPending},
		{name: "complete_requires_accepted", apply: func(r *Request) error { return r.Complete(requester, time.Now()) }, wantErr: ErrNotAccepted, wantStatus: StatusPending},
		{name: "rate_requires_completed", apply: func(r *Request) error { return r.Rate(requester, 5, "") }, wantErr: ErrNotCompleted, wantStatus: StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := pending()
			err := tt.apply(&r)

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got err %v, want %v", err, tt.wantErr)
			}
			if r.Status != tt.wantStatus {
				t.Fatalf("got status %s, want %s", r.Status, tt.wantStatus)
			}
		})
	}
}

func TestRejectedIsTerminal(t *testing.T) {
	r := pending()

	if err := r.Reject(recipient); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if err := r.Accept(recipient); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	if err := r.Complete(recipient, time.Now()); !errors.Is(err, ErrNotAccepted) {
		t.Fatalf("expected ErrNotAccepted, got %v", err)
	}
	if err := r.Cancel(requester); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending on cancel, got %v", err)
	}
	if r.Status != StatusRejected {
		t.Fatalf("expected rejected status, got %s", r.Status)
	}
}

func TestCompleteAndRate(t *testing.T) {
	r := pending()
	if err := r.Accept(recipient); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if err := r.Complete(stranger, time.Now()); !errors.Is(err, ErrNotParty) {
		t.Fatalf("expected ErrNotParty, got %v", err)
	}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := r.Complete(requester, at); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if r.Status != StatusCompleted || r.CompletedAt == nil || !r.CompletedAt.Equal(at) {
		t.Fatalf("unexpected completion state: %+v", r)
	}

	if err := r.Rate(requester, 4, " great teacher "); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if *r.RequesterRating != 4 || *r.RequesterFeedback != "great teacher" {
		t.Fatalf("unexpected requester rating: %v %v", *r.RequesterRating, *r.RequesterFeedback)
	}
	if err := r.Rate(requester, 5, ""); !errors.Is(err, ErrAlreadyRated) {
		t.Fatalf("expected ErrAlreadyRated, got %v", err)
	}

	if err := r.Rate(recipient, 5, "thanks"); err != nil {
		t.Fatalf("recipient rate: %v", err)
	}
	if r.RecipientRating == nil || *r.RecipientRating != 5 {
		t.Fatalf("recipient rating not stored")
	}
}

func TestCanDeleteAndCounterpart(t *testing.T) {
	r := pending()

	if err := r.CanDelete(recipient); !errors.Is(err, ErrNotRequesterDelete) {
		t.Fatalf("expected ErrNotRequesterDelete, got %v", err)
	}
	if err := r.CanDelete(requester); err != nil {
		t.Fatalf("requester delete: %v", err)
	}
	if got := r.Counterpart(requester); got != recipient {
		t.Fatalf("counterpart of requester = %s", got)
	}
	if got := r.Counterpart(recipient); got != requester {
		t.Fatalf("counterpart of recipient = %s", got)
	}
}
