package accounts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/geocoder89/skillswap/internal/apperr"
	"github.com/geocoder89/skillswap/internal/domain/user"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = apperr.Unauthenticated("Invalid credentials")
	ErrBanned             = apperr.Forbidden("Your account has been banned")
	ErrSkillInput         = apperr.Validation("Please provide skill and type (offered or wanted)")
	ErrNoFile             = apperr.Validation("Please upload a file")
	ErrNotImage           = apperr.Validation("Only image files are allowed")
)

const maxSkillLen = 100

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error)
	AddSkill(ctx context.Context, id string, kind user.SkillKind, skill string) (user.User, error)
	RemoveSkill(ctx context.Context, id string, kind user.SkillKind, skill string) (user.User, error)
	SetPhoto(ctx context.Context, id, url string) (user.User, error)
}

type PasswordHasher interface {
	HashPassword(plain string) (string, error)
	CheckPassword(hash, plain string) error
}

type TokenIssuer interface {
	GenerateAccessToken(userID, email string) (string, error)
}

// PhotoStore persists an uploaded profile photo and returns its public URL.
type PhotoStore interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

type Service struct {
	users      UserStore
	hasher     PasswordHasher
	tokens     TokenIssuer
	photos     PhotoStore
	invalidate func()
	log        *slog.Logger
}

type Option func(*Service)

func WithPhotoStore(p PhotoStore) Option { return func(s *Service) { s.photos = p } }

// WithCatalogInvalidation registers fn to run after any write that changes
// what the public skill catalog would contain.
func WithCatalogInvalidation(fn func()) Option { return func(s *Service) { s.invalidate = fn } }

func WithLogger(log *slog.Logger) Option { return func(s *Service) { s.log = log } }

func NewService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:      users,
		hasher:     hasher,
		tokens:     tokens,
		invalidate: func() {},
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Session is a freshly authenticated user plus their bearer token.
type Session struct {
	Token string
	User  user.User
}

func (s *Service) Register(ctx context.Context, req user.RegisterRequest) (Session, error) {
	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return Session{}, apperr.Internal("Could not create account", err)
	}

	u, err := s.users.Create(ctx, user.NewFromRegister(req, hash))
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return Session{}, err
		}
		return Session{}, apperr.Internal("Could not create account", err)
	}

	s.invalidate()
	s.log.InfoContext(ctx, "accounts.registered", "user_id", u.ID)

	return s.session(u)
}

// Login verifies credentials. A banned account is only reported once the
// password has matched, so bans are not disclosed to guessers.
func (s *Service) Login(ctx context.Context, req user.LoginRequest) (Session, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, apperr.Internal("Could not sign in", err)
	}

	if err := s.hasher.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	if u.IsBanned {
		return Session{}, ErrBanned
	}

	return s.session(u)
}

func (s *Service) session(u user.User) (Session, error) {
	token, err := s.tokens.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return Session{}, apperr.Internal("Could not issue token", err)
	}
	return Session{Token: token, User: u}, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (user.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, upd user.ProfileUpdate) (user.User, error) {
	upd = upd.Trimmed()
	if upd.Name != nil && len(*upd.Name) < 2 {
		return user.User{}, apperr.Validation("Name must be between 2 and 50 characters")
	}

	u, err := s.users.UpdateProfile(ctx, userID, upd)
	if err != nil {
		return user.User{}, err
	}

	if upd.IsPublic != nil {
		s.invalidate()
	}
	return u, nil
}

// SkillInput is the body of the add / remove skill endpoints.
type SkillInput struct {
	Skill string `json:"skill"`
	Type  string `json:"type"`
}

func (in SkillInput) parse() (string, user.SkillKind, error) {
	skill := strings.TrimSpace(in.Skill)
	kind := user.SkillKind(strings.ToLower(strings.TrimSpace(in.Type)))

	if skill == "" || !kind.IsValid() {
		return "", "", ErrSkillInput
	}
	if len(skill) > maxSkillLen {
		return "", "", apperr.Validation(fmt.Sprintf("Skill cannot be more than %d characters", maxSkillLen))
	}
	return skill, kind, nil
}

// AddSkill adds a skill to the caller's offered or wanted set. Adding a skill
// that is already present leaves the set unchanged.
func (s *Service) AddSkill(ctx context.Context, userID string, in SkillInput) (user.User, error) {
	skill, kind, err := in.parse()
	if err != nil {
		return user.User{}, err
	}

	u, err := s.users.AddSkill(ctx, userID, kind, skill)
	if err != nil {
		return user.User{}, err
	}
	s.invalidate()
	return u, nil
}

func (s *Service) RemoveSkill(ctx context.Context, userID string, in SkillInput) (user.User, error) {
	skill, kind, err := in.parse()
	if err != nil {
		return user.User{}, err
	}

	u, err := s.users.RemoveSkill(ctx, userID, kind, skill)
	if err != nil {
		return user.User{}, err
	}
	s.invalidate()
	return u, nil
}

// Upload is a profile photo as received from the client.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// photoTypes maps the image types accepted for profile photos to the
// extension they are stored under.
var photoTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var photoExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

// sniffLen matches the amount mimetype inspects by default.
const sniffLen = 3072

// SetPhoto stores an uploaded profile photo. The type is sniffed from the
// content; the declared type and the client filename only have to agree
// with the allow-list.
func (s *Service) SetPhoto(ctx context.Context, userID string, up Upload) (user.User, error) {
	if s.photos == nil || up.Body == nil {
		return user.User{}, ErrNoFile
	}
	if !strings.HasPrefix(up.ContentType, "image/") {
		return user.User{}, ErrNotImage
	}
	if ext := strings.ToLower(path.Ext(up.Filename)); ext != "" && !photoExts[ext] {
		return user.User{}, ErrNotImage
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return user.User{}, apperr.Internal("Could not read photo", err)
	}
	if n == 0 {
		return user.User{}, ErrNoFile
	}
	head = head[:n]

	contentType := mimetype.Detect(head).String()
	ext, ok := photoTypes[contentType]
	if !ok {
		return user.User{}, ErrNotImage
	}

	name := fmt.Sprintf("profile-%s-%s%s", userID, uuid.NewString(), ext)
	body := io.MultiReader(bytes.NewReader(head), up.Body)

	url, err := s.photos.Save(ctx, name, contentType, body)
	if err != nil {
		return user.User{}, apperr.Internal("Could not store photo", err)
	}

	return s.users.SetPhoto(ctx, userID, url)
}
