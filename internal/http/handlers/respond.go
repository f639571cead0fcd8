package handlers

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/skillswap/internal/apperr"
	"github.com/gin-gonic/gin"
)

// APIError is the body of every failed response.
type APIError struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
	Code      string      `json:"code"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.AbortWithStatusJSON(status, APIError{
		Success:   false,
		Error:     message,
		Code:      code,
		RequestID: requestIDFrom(ctx),
		Details:   details,
	})
}

// RespondErr maps a classified error onto the envelope. Internal failures
// are logged with their cause; the client only sees the safe message.
func RespondErr(ctx *gin.Context, err error) {
	kind := apperr.KindOf(err)

	if kind == apperr.KindInternal {
		slog.Default().ErrorContext(ctx.Request.Context(), "http.internal_error",
			"method", ctx.Request.Method,
			"route", ctx.FullPath(),
			"request_id", requestIDFrom(ctx),
			"err", err,
		)
	}

	RespondError(ctx, kind.Status(), string(kind), apperr.MessageOf(err), nil)
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, string(apperr.KindValidation), message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, string(apperr.KindNotFound), message, nil)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, string(apperr.KindUnauthenticated), message, nil)
}

func RespondOK(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, gin.H{"success": true, "data": data})
}

// RespondList adds the element count next to the data.
func RespondList[T any](ctx *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"success": true, "count": len(items), "data": items})
}
