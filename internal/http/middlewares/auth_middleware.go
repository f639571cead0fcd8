package middlewares

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/skillswap/internal/apperr"
	"github.com/geocoder89/skillswap/internal/auth"
	"github.com/geocoder89/skillswap/internal/domain/user"
	"github.com/geocoder89/skillswap/internal/identity"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt     TokenVerifier
	users   UserLookup
	timeout time.Duration
}

func NewAuthMiddleware(jwt TokenVerifier, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users, timeout: 3 * time.Second}
}

const notAuthorized = "Not authorized to access this route"

// RequireAuth resolves the caller from the bearer token. The role and ban
// state come from the stored user, never from the token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return m.authenticate(false)
}

// RequireAuthOrQuery also accepts ?token= for clients such as browser
// websockets that cannot set headers.
func (m *AuthMiddleware) RequireAuthOrQuery() gin.HandlerFunc {
	return m.authenticate(true)
}

func (m *AuthMiddleware) authenticate(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" && allowQuery {
			raw = strings.TrimSpace(c.Query(tokenQueryKey))
		}
		if raw == "" {
			abortJSON(c, http.StatusUnauthorized, string(apperr.KindUnauthenticated), notAuthorized)
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, string(apperr.KindUnauthenticated), notAuthorized)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), m.timeout)
		u, err := m.users.GetByID(ctx, claims.UserID)
		cancel()

		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				abortJSON(c, http.StatusUnauthorized, string(apperr.KindUnauthenticated), "User not found")
				return
			}
			abortJSON(c, http.StatusInternalServerError, string(apperr.KindInternal), "Server Error")
			return
		}

		if u.IsBanned {
			abortJSON(c, http.StatusForbidden, string(apperr.KindForbidden), "Your account has been banned")
			return
		}

		SetPrincipal(c, identity.Principal{UserID: u.ID, Email: u.Email, Role: u.Role()})

		c.Next()
	}
}

func bearerToken(header string) string {
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
}

// Helpers so handlers don't need to know the magic keys.

// SetPrincipal stashes identity on both the gin and the request context.
func SetPrincipal(c *gin.Context, p identity.Principal) {
	c.Set(ctxPrincipal, p)
	c.Request = c.Request.WithContext(identity.WithPrincipal(c.Request.Context(), p))
}

func PrincipalFromContext(c *gin.Context) (identity.Principal, bool) {
	v, ok := c.Get(ctxPrincipal)
	if !ok {
		return identity.Principal{}, false
	}
	p, ok := v.(identity.Principal)
	return p, ok && p.UserID != ""
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	p, ok := PrincipalFromContext(c)
	return p.UserID, ok
}
