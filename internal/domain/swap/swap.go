package swap

import (
	"strings"
	"time"

	"github.com/geocoder89/skillswap/internal/apperr"
	"github.com/geocoder89/skillswap/internal/domain/user"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Request struct {
	ID                string        `json:"id"`
	RequesterID       string        `json:"requesterId"`
	RecipientID       string        `json:"recipientId"`
	Requester         *user.Summary `json:"requester,omitempty"`
	Recipient         *user.Summary `json:"recipient,omitempty"`
	OfferedSkill      string        `json:"offeredSkill"`
	RequestedSkill    string        `json:"requestedSkill"`
	Message           string        `json:"message,omitempty"`
	Status            Status        `json:"status"`
	RequesterRating   *int          `json:"requesterRating,omitempty"`
	RequesterFeedback *string       `json:"requesterFeedback,omitempty"`
	RecipientRating   *int          `json:"recipientRating,omitempty"`
	RecipientFeedback *string       `json:"recipientFeedback,omitempty"`
	CompletedAt       *time.Time    `json:"completedAt,omitempty"`
	Version           int           `json:"version"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

var (
	ErrNotFound        = apperr.NotFound("Swap request not found")
	ErrVersionConflict = apperr.Conflict("Swap request was modified concurrently, please retry")

	ErrNotPending         = apperr.InvalidTransition("Swap request is no longer pending")
	ErrNotAccepted        = apperr.InvalidTransition("Swap request must be accepted before completion")
	ErrNotCompleted       = apperr.InvalidTransition("Can only rate completed swaps")
	ErrAlreadyRated       = apperr.InvalidTransition("You have already rated this swap")
	ErrSelfRequest        = apperr.Validation("You cannot send a swap request to yourself")
	ErrNotParty           = apperr.Forbidden("Not authorized to access this request")
	ErrNotRecipientAccept = apperr.Forbidden("Not authorized to accept this request")
	ErrNotRecipientReject = apperr.Forbidden("Not authorized to reject this request")
	ErrNotRequesterDelete = apperr.Forbidden("Not authorized to delete this request")
	ErrNotRequesterCancel = apperr.Forbidden("Not authorized to cancel this request")
)

type CreateRequest struct {
	RecipientID  string `json:"recipientId" binding:"required,uuid"`
	SkillOffered string `json:"skillOffered" binding:"required,max=100"`
	SkillWanted  string `json:"skillWanted" binding:"required,max=100"`
	Message      string `json:"message" binding:"omitempty,max=500"`
}

type RateRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"omitempty,max=1000"`
}

func NewFromCreateRequest(requesterID string, req CreateRequest) Request {
	now := time.Now().UTC()

	return Request{
		ID:             uuid.NewString(),
		RequesterID:    requesterID,
		RecipientID:    req.RecipientID,
		OfferedSkill:   strings.TrimSpace(req.SkillOffered),
		RequestedSkill: strings.TrimSpace(req.SkillWanted),
		Message:        strings.TrimSpace(req.Message),
		Status:         StatusPending,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (r Request) IsParty(userID string) bool {
	return userID == r.RequesterID || userID == r.RecipientID
}

// Counterpart returns the other party of the request relative to userID.
func (r Request) Counterpart(userID string) string {
	if userID == r.RequesterID {
		return r.RecipientID
	}
	return r.RequesterID
}

// The transition methods below validate and apply a status change in place.
// They never touch storage.

func (r *Request) Accept(actorID string) error {
	if actorID != r.RecipientID {
		return ErrNotRecipientAccept
	}
	if r.Status != StatusPending {
		return ErrNotPending
	}
	r.Status = StatusAccepted
	return nil
}

func (r *Request) Reject(actorID string) error {
	if actorID != r.RecipientID {
		return ErrNotRecipientReject
	}
	if r.Status != StatusPending {
		return ErrNotPending
	}
	r.Status = StatusRejected
	return nil
}

func (r *Request) Cancel(actorID string) error {
	if actorID != r.RequesterID {
		return ErrNotRequesterCancel
	}
	if r.Status != StatusPending {
		return ErrNotPending
	}
	r.Status = StatusCancelled
	return nil
}

func (r *Request) Complete(actorID string, at time.Time) error {
	if !r.IsParty(actorID) {
		return ErrNotParty
	}
	if r.Status != StatusAccepted {
		return ErrNotAccepted
	}
	r.Status = StatusCompleted
	r.CompletedAt = &at
	return nil
}

// Rate records actorID's rating of the exchange on the actor's own side.
func (r *Request) Rate(actorID string, rating int, comment string) error {
	if !r.IsParty(actorID) {
		return ErrNotParty
	}
	if r.Status != StatusCompleted {
		return ErrNotCompleted
	}

	feedback := strings.TrimSpace(comment)

	if actorID == r.RequesterID {
		if r.RequesterRating != nil {
			return ErrAlreadyRated
		}
		r.RequesterRating = &rating
		r.RequesterFeedback = &feedback
		return nil
	}

	if r.RecipientRating != nil {
		return ErrAlreadyRated
	}
	r.RecipientRating = &rating
	r.RecipientFeedback = &feedback
	return nil
}

// CanDelete reports whether actorID may remove the request.
func (r Request) CanDelete(actorID string) error {
	if actorID != r.RequesterID {
		return ErrNotRequesterDelete
	}
	return nil
}
