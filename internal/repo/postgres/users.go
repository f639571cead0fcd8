package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/skillswap/internal/domain/user"
	"github.com/geocoder89/skillswap/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, email, password_hash, location, bio, profile_photo,
	skills_offered, skills_wanted,
	avail_weekdays, avail_weekends, avail_evenings, avail_mornings,
	is_public, rating_sum, rating_count, is_admin, is_banned,
	created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Location,
		&u.Bio,
		&u.ProfilePhoto,
		&u.SkillsOffered,
		&u.SkillsWanted,
		&u.Availability.Weekdays,
		&u.Availability.Weekends,
		&u.Availability.Evenings,
		&u.Availability.Mornings,
		&u.IsPublic,
		&u.RatingSum,
		&u.TotalRatings,
		&u.IsAdmin,
		&u.IsBanned,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	var out user.User

	err := r.prom.ObserveDB("users.create", func() error {
		var err error
		out, err = scanUser(r.pool.QueryRow(ctx,
			`INSERT INTO users (id, name, email, password_hash, location, bio, profile_photo,
				skills_offered, skills_wanted,
				avail_weekdays, avail_weekends, avail_evenings, avail_mornings,
				is_public, is_admin, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
			RETURNING `+userColumns,
			u.ID, u.Name, user.NormalizeEmail(u.Email), u.PasswordHash, u.Location, u.Bio, u.ProfilePhoto,
			nonNil(u.SkillsOffered), nonNil(u.SkillsWanted),
			u.Availability.Weekdays, u.Availability.Weekends, u.Availability.Evenings, u.Availability.Mornings,
			u.IsPublic, u.IsAdmin, u.CreatedAt, u.UpdatedAt,
		))
		return err
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}
	return out, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})
	return u, err
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			user.NormalizeEmail(email),
		))
		return err
	})
	return u, err
}

func (r *UsersRepo) ListPublic(ctx context.Context) ([]user.User, error) {
	return r.list(ctx, "users.list_public",
		`SELECT `+userColumns+` FROM users
		WHERE is_public = TRUE
		ORDER BY created_at DESC, id ASC`)
}

func (r *UsersRepo) ListAll(ctx context.Context) ([]user.User, error) {
	return r.list(ctx, "users.list_all",
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id ASC`)
}

func (r *UsersRepo) list(ctx context.Context, op, query string, args ...any) ([]user.User, error) {
	out := make([]user.User, 0)

	err := r.prom.ObserveDB(op, func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error) {
	var sets []string
	var args []any

	argsPosition := 1
	add := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argsPosition))
		args = append(args, v)
		argsPosition++
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Location != nil {
		add("location", *upd.Location)
	}
	if upd.Bio != nil {
		add("bio", *upd.Bio)
	}
	if upd.IsPublic != nil {
		add("is_public", *upd.IsPublic)
	}
	if a := upd.Availability; a != nil {
		add("avail_weekdays", a.Weekdays)
		add("avail_weekends", a.Weekends)
		add("avail_evenings", a.Evenings)
		add("avail_mornings", a.Mornings)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	query := fmt.Sprintf(
		`UPDATE users SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), argsPosition, userColumns,
	)
	args = append(args, id)

	return r.updateOne(ctx, "users.update_profile", query, args...)
}

func (r *UsersRepo) SetBanned(ctx context.Context, id string, banned bool) (user.User, error) {
	return r.updateOne(ctx, "users.set_banned",
		`UPDATE users SET is_banned = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns,
		id, banned)
}

func (r *UsersRepo) SetPhoto(ctx context.Context, id, url string) (user.User, error) {
	return r.updateOne(ctx, "users.set_photo",
		`UPDATE users SET profile_photo = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns,
		id, url)
}

// AddSkill appends skill to the chosen list unless it is already present.
func (r *UsersRepo) AddSkill(ctx context.Context, id string, kind user.SkillKind, skill string) (user.User, error) {
	col, err := skillColumn(kind)
	if err != nil {
		return user.User{}, err
	}

	query := fmt.Sprintf(
		`UPDATE users
		SET %[1]s = CASE WHEN $2 = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $2) END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING %[2]s`,
		col, userColumns,
	)
	return r.updateOne(ctx, "users.add_skill", query, id, skill)
}

func (r *UsersRepo) RemoveSkill(ctx context.Context, id string, kind user.SkillKind, skill string) (user.User, error) {
	col, err := skillColumn(kind)
	if err != nil {
		return user.User{}, err
	}

	query := fmt.Sprintf(
		`UPDATE users SET %[1]s = array_remove(%[1]s, $2), updated_at = NOW()
		WHERE id = $1
		RETURNING %[2]s`,
		col, userColumns,
	)
	return r.updateOne(ctx, "users.remove_skill", query, id, skill)
}

func (r *UsersRepo) AddRating(ctx context.Context, id string, rating int) error {
	return r.prom.ObserveDB("users.add_rating", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET rating_sum = rating_sum + $2, rating_count = rating_count + 1, updated_at = NOW()
			WHERE id = $1`,
			id, rating,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

func (r *UsersRepo) Count(ctx context.Context, f user.CountFilter) (int, error) {
	query := `SELECT COUNT(*) FROM users`
	var args []any

	if f.Banned != nil {
		query += ` WHERE is_banned = $1`
		args = append(args, *f.Banned)
	}

	var n int
	err := r.prom.ObserveDB("users.count", func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(&n)
	})
	return n, err
}

func (r *UsersRepo) updateOne(ctx context.Context, op, query string, args ...any) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB(op, func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, query, args...))
		return err
	})
	return u, err
}

func skillColumn(kind user.SkillKind) (string, error) {
	switch kind {
	case user.SkillOffered:
		return "skills_offered", nil
	case user.SkillWanted:
		return "skills_wanted", nil
	default:
		return "", fmt.Errorf("unknown skill kind %q", kind)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
