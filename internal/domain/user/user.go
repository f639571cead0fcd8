package user

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/geocoder89/skillswap/internal/apperr"
	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Availability struct {
	Weekdays bool `json:"weekdays"`
	Weekends bool `json:"weekends"`
	Evenings bool `json:"evenings"`
	Mornings bool `json:"mornings"`
}

type User struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	PasswordHash  string       `json:"-"` // never expose hash in JSON
	Location      string       `json:"location"`
	Bio           string       `json:"bio"`
	ProfilePhoto  string       `json:"profilePhoto,omitempty"`
	SkillsOffered []string     `json:"skillsOffered"`
	SkillsWanted  []string     `json:"skillsWanted"`
	Availability  Availability `json:"availability"`
	IsPublic      bool         `json:"isPublic"`
	RatingSum     int          `json:"rating"`
	TotalRatings  int          `json:"totalRatings"`
	IsAdmin       bool         `json:"isAdmin"`
	IsBanned      bool         `json:"isBanned"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Role is resolved from the admin flag; there is no other source of roles.
func (u User) Role() Role {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// AverageRating is the mean received rating rounded to one decimal.
func (u User) AverageRating() float64 {
	if u.TotalRatings == 0 {
		return 0
	}
	avg := float64(u.RatingSum) / float64(u.TotalRatings)
	return math.Round(avg*10) / 10
}

func (u User) MarshalJSON() ([]byte, error) {
	type alias User
	offered := u.SkillsOffered
	if offered == nil {
		offered = []string{}
	}
	wanted := u.SkillsWanted
	if wanted == nil {
		wanted = []string{}
	}
	a := alias(u)
	a.SkillsOffered = offered
	a.SkillsWanted = wanted

	return json.Marshal(struct {
		alias
		AverageRating float64 `json:"averageRating"`
		Role          Role    `json:"role"`
	}{alias: a, AverageRating: u.AverageRating(), Role: u.Role()})
}

// Summary is the slice of a user embedded in swap listings.
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email}
}

var (
	ErrNotFound   = apperr.NotFound("User not found")
	ErrEmailTaken = apperr.Validation("User already exists with this email")
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	Name         *string       `json:"name" binding:"omitempty,min=2,max=50"`
	Location     *string       `json:"location" binding:"omitempty,max=100"`
	Bio          *string       `json:"bio" binding:"omitempty,max=500"`
	IsPublic     *bool         `json:"isPublic"`
	Availability *Availability `json:"availability"`
}

func (p ProfileUpdate) Trimmed() ProfileUpdate {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		return &v
	}
	p.Name = trim(p.Name)
	p.Location = trim(p.Location)
	p.Bio = trim(p.Bio)
	return p
}

// Apply writes the non-nil fields of p onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.IsPublic != nil {
		u.IsPublic = *p.IsPublic
	}
	if p.Availability != nil {
		u.Availability = *p.Availability
	}
}

type SkillKind string

const (
	SkillOffered SkillKind = "offered"
	SkillWanted  SkillKind = "wanted"
)

func (k SkillKind) IsValid() bool {
	return k == SkillOffered || k == SkillWanted
}

// CountFilter narrows a user count; a nil Banned counts everybody.
type CountFilter struct {
	Banned *bool
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NewFromRegister(req RegisterRequest, passwordHash string) User {
	now := time.Now().UTC()

	return User{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(req.Name),
		Email:         NormalizeEmail(req.Email),
		PasswordHash:  passwordHash,
		SkillsOffered: []string{},
		SkillsWanted:  []string{},
		IsPublic:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AddToSet appends skill when it is not already present.
func AddToSet(set []string, skill string) []string {
	for _, s := range set {
		if s == skill {
			return set
		}
	}
	return append(set, skill)
}

func RemoveFromSet(set []string, skill string) []string {
	out := make([]string, 0, len(set))
	for _, s := range set {
		if s != skill {
			out = append(out, s)
		}
	}
	return out
}

// SkillCatalog is the deduplicated union of skills across public profiles.
type SkillCatalog struct {
	Offered []string `json:"offered"`
	Wanted  []string `json:"wanted"`
}

func BuildSkillCatalog(users []User) SkillCatalog {
	offered := map[string]struct{}{}
	wanted := map[string]struct{}{}

	for _, u := range users {
		if !u.IsPublic {
			continue
		}
		for _, s := range u.SkillsOffered {
			offered[s] = struct{}{}
		}
		for _, s := range u.SkillsWanted {
			wanted[s] = struct{}{}
		}
	}

	return SkillCatalog{Offered: sortedKeys(offered), Wanted: sortedKeys(wanted)}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
