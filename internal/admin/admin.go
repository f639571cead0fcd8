package admin

import (
	"context"
	"log/slog"

	"github.com/geocoder89/skillswap/internal/apperr"
	"github.com/geocoder89/skillswap/internal/domain/swap"
	"github.com/geocoder89/skillswap/internal/domain/user"
	"golang.org/x/sync/errgroup"
)

type UserStore interface {
	ListAll(ctx context.Context) ([]user.User, error)
	SetBanned(ctx context.Context, id string, banned bool) (user.User, error)
	Count(ctx context.Context, f user.CountFilter) (int, error)
}

type SwapCounter interface {
	Count(ctx context.Context, status *swap.Status) (int, error)
}

type Stats struct {
	TotalUsers     int `json:"totalUsers"`
	ActiveUsers    int `json:"activeUsers"`
	BannedUsers    int `json:"bannedUsers"`
	TotalSwaps     int `json:"totalSwaps"`
	CompletedSwaps int `json:"completedSwaps"`
}

// Report is a moderation report. None are collected yet, so Reports always
// returns an empty list.
type Report struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Reason   string `json:"reason"`
	Resolved bool   `json:"resolved"`
}

type Service struct {
	users UserStore
	swaps SwapCounter
	log   *slog.Logger
}

func NewService(users UserStore, swaps SwapCounter, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{users: users, swaps: swaps, log: log}
}

func (s *Service) Users(ctx context.Context) ([]user.User, error) {
	list, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, apperr.Internal("Could not load users", err)
	}
	return list, nil
}

func (s *Service) Ban(ctx context.Context, adminID, userID string) (user.User, error) {
	return s.setBanned(ctx, adminID, userID, true)
}

func (s *Service) Unban(ctx context.Context, adminID, userID string) (user.User, error) {
	return s.setBanned(ctx, adminID, userID, false)
}

func (s *Service) setBanned(ctx context.Context, adminID, userID string, banned bool) (user.User, error) {
	if banned && adminID == userID {
		return user.User{}, apperr.Validation("You cannot ban yourself")
	}

	u, err := s.users.SetBanned(ctx, userID, banned)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return user.User{}, err
		}
		return user.User{}, apperr.Internal("Could not update user", err)
	}

	s.log.InfoContext(ctx, "admin.user_ban_changed", "admin_id", adminID, "user_id", userID, "banned", banned)
	return u, nil
}

// Stats runs the five platform counts concurrently. The first failure cancels
// the rest.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	banned, active := true, false
	completed := swap.StatusCompleted

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		st.TotalUsers, err = s.users.Count(gctx, user.CountFilter{})
		return err
	})
	g.Go(func() (err error) {
		st.ActiveUsers, err = s.users.Count(gctx, user.CountFilter{Banned: &active})
		return err
	})
	g.Go(func() (err error) {
		st.BannedUsers, err = s.users.Count(gctx, user.CountFilter{Banned: &banned})
		return err
	})
	g.Go(func() (err error) {
		st.TotalSwaps, err = s.swaps.Count(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		st.CompletedSwaps, err = s.swaps.Count(gctx, &completed)
		return err
	})

	if err := g.Wait(); err != nil {
		return Stats{}, apperr.Internal("Could not compute stats", err)
	}
	return st, nil
}

func (s *Service) Reports(context.Context) ([]Report, error) {
	return []Report{}, nil
}
