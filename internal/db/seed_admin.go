package db

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/skillswap/internal/config"
	"github.com/geocoder89/skillswap/internal/domain/user"
	"github.com/google/uuid"
)

type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

type PasswordHasher interface {
	HashPassword(plain string) (string, error)
}

// EnsureAdminUser creates the configured administrator account when it does
// not exist yet. It is a no-op without ADMIN_EMAIL and ADMIN_PASSWORD.
func EnsureAdminUser(ctx context.Context, store AdminStore, hasher PasswordHasher, cfg config.Config) (created bool, err error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	// check if the user exists
	_, err = store.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	hash, err := hasher.HashPassword(cfg.AdminPassword)

	if err != nil {
		return false, err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:            uuid.NewString(),
		Email:         user.NormalizeEmail(cfg.AdminEmail),
		PasswordHash:  hash,
		Name:          cfg.AdminName,
		SkillsOffered: []string{},
		SkillsWanted:  []string{},
		IsAdmin:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err = store.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
