package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency answers.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	env    string
	checks map[string]Pinger
	now    func() time.Time
}

// create a new instance of the health handler
func NewHealthHandler(env string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{env: env, checks: checks, now: time.Now}
}

func (h *HealthHandler) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"message":     "Skill Swap API is running",
		"timestamp":   h.now().UTC().Format(time.RFC3339),
		"environment": h.env,
	})
}

// Readyz pings every registered dependency and fails if any of them is down.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	results := make(map[string]string, len(h.checks))
	ready := true

	for name, ping := range h.checks {
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
		err := ping(cctx)
		cancel()

		if err != nil {
			results[name] = "down"
			ready = false
			continue
		}
		results[name] = "up"
	}

	if !ready {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": results})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "checks": results})
}
