package handlers

import (
	"github.com/geocoder89/skillswap/internal/identity"
	"github.com/gin-gonic/gin"
)

// callerID reads the authenticated user from the request context and answers
// 401 itself when there is none.
func callerID(ctx *gin.Context) (string, bool) {
	p, ok := identity.PrincipalFrom(ctx.Request.Context())
	if !ok {
		RespondUnauthorized(ctx, "Not authorized to access this route")
		return "", false
	}
	return p.UserID, true
}
