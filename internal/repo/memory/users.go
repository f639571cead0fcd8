package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/skillswap/internal/domain/user"
)

type UsersRepo struct {
	mu      sync.RWMutex
	items   map[string]user.User // {"id": user}
	byEmail map[string]string    // {"email": id}
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	email := user.NormalizeEmail(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[email]; taken {
		return user.User{}, user.ErrEmailTaken
	}

	u.Email = email
	u = cloneUser(u)
	r.items[u.ID] = u
	r.byEmail[email] = u.ID

	return cloneUser(u), nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[user.NormalizeEmail(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return cloneUser(r.items[id]), nil
}

// ListPublic returns users with a public profile, newest first. Banned users
// stay listed.
func (r *UsersRepo) ListPublic(_ context.Context) ([]user.User, error) {
	return r.list(func(u user.User) bool { return u.IsPublic }), nil
}

func (r *UsersRepo) ListAll(_ context.Context) ([]user.User, error) {
	return r.list(func(user.User) bool { return true }), nil
}

func (r *UsersRepo) list(keep func(user.User) bool) []user.User {
	r.mu.RLock()
	out := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		if keep(u) {
			out = append(out, cloneUser(u))
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

func (r *UsersRepo) UpdateProfile(_ context.Context, id string, upd user.ProfileUpdate) (user.User, error) {
	return r.mutate(id, func(u *user.User) { upd.Apply(u) })
}

func (r *UsersRepo) SetBanned(_ context.Context, id string, banned bool) (user.User, error) {
	return r.mutate(id, func(u *user.User) { u.IsBanned = banned })
}

func (r *UsersRepo) SetPhoto(_ context.Context, id, url string) (user.User, error) {
	return r.mutate(id, func(u *user.User) { u.ProfilePhoto = url })
}

func (r *UsersRepo) AddSkill(_ context.Context, id string, kind user.SkillKind, skill string) (user.User, error) {
	return r.mutate(id, func(u *user.User) {
		if kind == user.SkillOffered {
			u.SkillsOffered = user.AddToSet(u.SkillsOffered, skill)
			return
		}
		u.SkillsWanted = user.AddToSet(u.SkillsWanted, skill)
	})
}

func (r *UsersRepo) RemoveSkill(_ context.Context, id string, kind user.SkillKind, skill string) (user.User, error) {
	return r.mutate(id, func(u *user.User) {
		if kind == user.SkillOffered {
			u.SkillsOffered = user.RemoveFromSet(u.SkillsOffered, skill)
			return
		}
		u.SkillsWanted = user.RemoveFromSet(u.SkillsWanted, skill)
	})
}

func (r *UsersRepo) AddRating(_ context.Context, id string, rating int) error {
	_, err := r.mutate(id, func(u *user.User) {
		u.RatingSum += rating
		u.TotalRatings++
	})
	return err
}

func (r *UsersRepo) Count(_ context.Context, f user.CountFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, u := range r.items {
		if f.Banned != nil && u.IsBanned != *f.Banned {
			continue
		}
		n++
	}
	return n, nil
}

func (r *UsersRepo) mutate(id string, fn func(*user.User)) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	u = cloneUser(u)
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u

	return cloneUser(u), nil
}

// cloneUser copies the skill slices so callers never alias stored state.
func cloneUser(u user.User) user.User {
	u.SkillsOffered = append([]string{}, u.SkillsOffered...)
	u.SkillsWanted = append([]string{}, u.SkillsWanted...)
	return u
}
