package middlewares

import (
	"fmt"
	"net/http"

	"github.com/geocoder89/skillswap/internal/apperr"
	"github.com/geocoder89/skillswap/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(allowed ...user.Role) gin.HandlerFunc {
	set := make(map[user.Role]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}

	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)

		if !ok {
			abortJSON(c, http.StatusUnauthorized, string(apperr.KindUnauthenticated), notAuthorized)
			return
		}
		if _, ok := set[p.Role]; !ok {
			abortJSON(c, http.StatusForbidden, string(apperr.KindForbidden),
				fmt.Sprintf("User role %s is not authorized to access this route", p.Role))
			return
		}
		c.Next()
	}
}
