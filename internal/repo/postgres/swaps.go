package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/skillswap/internal/domain/swap"
	"github.com/geocoder89/skillswap/internal/domain/user"
	"github.com/geocoder89/skillswap/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const swapColumns = `id, requester_id, recipient_id, offered_skill, requested_skill, message, status,
	requester_rating, requester_feedback, recipient_rating, recipient_feedback,
	completed_at, version, created_at, updated_at`

type SwapsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewSwapsRepo(pool *pgxpool.Pool, prom *observability.Prom) *SwapsRepo {
	return &SwapsRepo{pool: pool, prom: prom}
}

func scanSwap(row pgx.Row) (swap.Request, error) {
	var s swap.Request
	var status string

	err := row.Scan(
		&s.ID,
		&s.RequesterID,
		&s.RecipientID,
		&s.OfferedSkill,
		&s.RequestedSkill,
		&s.Message,
		&status,
		&s.RequesterRating,
		&s.RequesterFeedback,
		&s.RecipientRating,
		&s.RecipientFeedback,
		&s.CompletedAt,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return swap.Request{}, swap.ErrNotFound
		}
		return swap.Request{}, err
	}
	s.Status = swap.Status(status)
	return s, nil
}

func (r *SwapsRepo) Create(ctx context.Context, req swap.Request) (swap.Request, error) {
	var out swap.Request

	err := r.prom.ObserveDB("swaps.create", func() error {
		var err error
		out, err = scanSwap(r.pool.QueryRow(ctx,
			`INSERT INTO swap_requests (id, requester_id, recipient_id, offered_skill, requested_skill,
				message, status, version, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING `+swapColumns,
			req.ID, req.RequesterID, req.RecipientID, req.OfferedSkill, req.RequestedSkill,
			req.Message, string(req.Status), req.Version, req.CreatedAt, req.UpdatedAt,
		))
		return err
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return swap.Request{}, user.ErrNotFound
		}
		return swap.Request{}, err
	}
	return out, nil
}

func (r *SwapsRepo) GetByID(ctx context.Context, id string) (swap.Request, error) {
	var s swap.Request

	err := r.prom.ObserveDB("swaps.get_by_id", func() error {
		var err error
		s, err = scanSwap(r.pool.QueryRow(ctx, `SELECT `+swapColumns+` FROM swap_requests WHERE id = $1`, id))
		return err
	})
	return s, err
}

func (r *SwapsRepo) ListByRecipient(ctx context.Context, userID string) ([]swap.Request, error) {
	return r.list(ctx, "swaps.list_by_recipient",
		`SELECT `+swapColumns+` FROM swap_requests WHERE recipient_id = $1 ORDER BY created_at DESC, id ASC`,
		userID)
}

func (r *SwapsRepo) ListByRequester(ctx context.Context, userID string) ([]swap.Request, error) {
	return r.list(ctx, "swaps.list_by_requester",
		`SELECT `+swapColumns+` FROM swap_requests WHERE requester_id = $1 ORDER BY created_at DESC, id ASC`,
		userID)
}

func (r *SwapsRepo) list(ctx context.Context, op, query string, args ...any) ([]swap.Request, error) {
	out := make([]swap.Request, 0)

	err := r.prom.ObserveDB(op, func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			s, err := scanSwap(rows)
			if err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes the mutable fields of req guarded by its version. When the
// row exists but the version moved on, swap.ErrVersionConflict is returned.
func (r *SwapsRepo) Update(ctx context.Context, req swap.Request) (swap.Request, error) {
	var out swap.Request

	err := r.prom.ObserveDB("swaps.update", func() error {
		var err error
		out, err = scanSwap(r.pool.QueryRow(ctx,
			`UPDATE swap_requests
			SET status = $3,
				requester_rating = $4,
				requester_feedback = $5,
				recipient_rating = $6,
				recipient_feedback = $7,
				completed_at = $8,
				version = version + 1,
				updated_at = NOW()
			WHERE id = $1 AND version = $2
			RETURNING `+swapColumns,
			req.ID, req.Version, string(req.Status),
			req.RequesterRating, req.RequesterFeedback,
			req.RecipientRating, req.RecipientFeedback,
			req.CompletedAt,
		))
		return err
	})
	if errors.Is(err, swap.ErrNotFound) {
		// distinguish a lost race from a missing row
		if _, getErr := r.GetByID(ctx, req.ID); getErr == nil {
			return swap.Request{}, swap.ErrVersionConflict
		}
		return swap.Request{}, swap.ErrNotFound
	}
	if err != nil {
		return swap.Request{}, err
	}
	return out, nil
}

func (r *SwapsRepo) Delete(ctx context.Context, id string) error {
	return r.prom.ObserveDB("swaps.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM swap_requests WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return swap.ErrNotFound
		}
		return nil
	})
}

func (r *SwapsRepo) Count(ctx context.Context, status *swap.Status) (int, error) {
	query := `SELECT COUNT(*) FROM swap_requests`
	var args []any

	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*status))
	}

	var n int
	err := r.prom.ObserveDB("swaps.count", func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(&n)
	})
	return n, err
}
