package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// idParam reads :id. A malformed id cannot name a stored row, so it is
// answered with notFound instead of reaching the store.
func idParam(ctx *gin.Context, notFound error) (string, bool) {
	id := ctx.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		RespondErr(ctx, notFound)
		return "", false
	}

	return id, true
}
