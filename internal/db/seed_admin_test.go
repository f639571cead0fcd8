package db_test

import (
	"context"
	"testing"

	"github.com/geocoder89/skillswap/internal/config"
	"github.com/geocoder89/skillswap/internal/db"
	"github.com/geocoder89/skillswap/internal/repo/memory"
	"github.com/geocoder89/skillswap/internal/security"
	"golang.org/x/crypto/bcrypt"
)

func TestEnsureAdminUser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewUsersRepo()
	hasher := security.NewHasher(bcrypt.MinCost)

	cfg := config.Config{AdminEmail: "Root@Example.com", AdminPassword: "changeme", AdminName: "Root"}

	created, err := db.EnsureAdminUser(ctx, store, hasher, cfg)
	if err != nil || !created {
		t.Fatalf("first seed: created=%v err=%v", created, err)
	}

	created, err = db.EnsureAdminUser(ctx, store, hasher, cfg)
	if err != nil || created {
		t.Fatalf("second seed must be a no-op: created=%v err=%v", created, err)
	}

	u, err := store.GetByEmail(ctx, "root@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !u.IsAdmin || u.PasswordHash == "changeme" {
		t.Fatalf("unexpected admin record %+v", u)
	}
	if err := hasher.CheckPassword(u.PasswordHash, "changeme"); err != nil {
		t.Fatalf("seeded password does not verify: %v", err)
	}
}

func TestEnsureAdminUserSkipsWithoutCredentials(t *testing.T) {
	created, err := db.EnsureAdminUser(context.Background(), memory.NewUsersRepo(), security.NewHasher(bcrypt.MinCost), config.Config{})
	if err != nil || created {
		t.Fatalf("expected no-op, got created=%v err=%v", created, err)
	}
}
