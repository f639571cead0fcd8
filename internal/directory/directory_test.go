package directory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/skillswap/internal/apperr"
	"github.com/geocoder89/skillswap/internal/directory"
	"github.com/geocoder89/skillswap/internal/domain/user"
	"github.com/geocoder89/skillswap/internal/repo/memory"
)

type countingReader struct {
	*memory.UsersRepo
	lists int
	err   error
}

func (r *countingReader) ListPublic(ctx context.Context) ([]user.User, error) {
	r.lists++
	if r.err != nil {
		return nil, r.err
	}
	return r.UsersRepo.ListPublic(ctx)
}

func seed(t *testing.T, repo *memory.UsersRepo, email string, offered ...string) user.User {
	t.Helper()
	ctx := context.Background()

	u, err := repo.Create(ctx, user.NewFromRegister(user.RegisterRequest{Name: "User", Email: email, Password: "secret1"}, "hash"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, s := range offered {
		if u, err = repo.AddSkill(ctx, u.ID, user.SkillOffered, s); err != nil {
			t.Fatalf("add skill: %v", err)
		}
	}
	return u
}

func TestSkillsAreCachedUntilInvalidated(t *testing.T) {
	repo := memory.NewUsersRepo()
	reader := &countingReader{UsersRepo: repo}
	svc := directory.NewService(reader, time.Minute)
	ctx := context.Background()

	seed(t, repo, "a@example.com", "Guitar", "Chess")
	seed(t, repo, "b@example.com", "Chess")

	c, err := svc.Skills(ctx)
	if err != nil {
		t.Fatalf("skills: %v", err)
	}
	if len(c.Offered) != 2 || c.Offered[0] != "Chess" || c.Offered[1] != "Guitar" {
		t.Fatalf("unexpected catalog %+v", c)
	}
	if len(c.Wanted) != 0 {
		t.Fatalf("expected empty wanted list, got %v", c.Wanted)
	}

	seed(t, repo, "c@example.com", "Baking")
	c, _ = svc.Skills(ctx)
	if len(c.Offered) != 2 || reader.lists != 1 {
		t.Fatalf("expected cached catalog, lists=%d offered=%v", reader.lists, c.Offered)
	}

	svc.InvalidateSkills()
	c, _ = svc.Skills(ctx)
	if len(c.Offered) != 3 || reader.lists != 2 {
		t.Fatalf("expected rebuilt catalog, lists=%d offered=%v", reader.lists, c.Offered)
	}
}

func TestSkillsErrorIsInternal(t *testing.T) {
	reader := &countingReader{UsersRepo: memory.NewUsersRepo(), err: errors.New("db down")}
	svc := directory.NewService(reader, time.Minute)

	_, err := svc.Skills(context.Background())
	if apperr.KindOf(err) != apperr.KindInternal || apperr.MessageOf(err) != "Could not load skills" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestGetUser(t *testing.T) {
	repo := memory.NewUsersRepo()
	svc := directory.NewService(repo, time.Minute)
	u := seed(t, repo, "a@example.com")

	got, err := svc.GetUser(context.Background(), u.ID)
	if err != nil || got.ID != u.ID {
		t.Fatalf("get user: %+v %v", got, err)
	}

	_, err = svc.GetUser(context.Background(), "missing")
	if !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
