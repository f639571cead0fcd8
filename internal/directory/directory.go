package directory

import (
	"context"
	"time"

	"github.com/geocoder89/skillswap/internal/apperr"
	"github.com/geocoder89/skillswap/internal/cache"
	"github.com/geocoder89/skillswap/internal/domain/user"
)

const catalogKey = "skills:catalog"

type UserReader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	ListPublic(ctx context.Context) ([]user.User, error)
}

// Service answers the public read endpoints: the user directory and the
// skill catalog.
type Service struct {
	users   UserReader
	catalog *cache.Cache[user.SkillCatalog]
}

func NewService(users UserReader, catalogTTL time.Duration) *Service {
	return &Service{
		users:   users,
		catalog: cache.New[user.SkillCatalog](catalogTTL),
	}
}

func (s *Service) ListPublic(ctx context.Context) ([]user.User, error) {
	list, err := s.users.ListPublic(ctx)
	if err != nil {
		return nil, apperr.Internal("Could not load users", err)
	}
	return list, nil
}

// GetUser returns any user by id. Private and banned profiles are still
// addressable directly, as they always have been.
func (s *Service) GetUser(ctx context.Context, id string) (user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return user.User{}, err
		}
		return user.User{}, apperr.Internal("Could not load user", err)
	}
	return u, nil
}

func (s *Service) Skills(ctx context.Context) (user.SkillCatalog, error) {
	c, err := s.catalog.GetOrLoad(ctx, catalogKey, func(ctx context.Context) (user.SkillCatalog, error) {
		list, err := s.users.ListPublic(ctx)
		if err != nil {
			return user.SkillCatalog{}, err
		}
		return user.BuildSkillCatalog(list), nil
	})
	if err != nil {
		return user.SkillCatalog{}, apperr.Internal("Could not load skills", err)
	}
	return c, nil
}

// InvalidateSkills drops the cached catalog so the next read rebuilds it.
func (s *Service) InvalidateSkills() {
	s.catalog.Delete(catalogKey)
}
