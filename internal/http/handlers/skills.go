package handlers

import (
	"net/http"
	"time"

	"github.com/geocoder89/skillswap/internal/accounts"
	"github.com/geocoder89/skillswap/internal/config"
	"github.com/gin-gonic/gin"
)

type SkillsHandler struct {
	directory DirectoryService
	accounts  AccountService
}

func NewSkillsHandler(directory DirectoryService, accounts AccountService) *SkillsHandler {
	return &SkillsHandler{directory: directory, accounts: accounts}
}

func (h *SkillsHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	catalog, err := h.directory.Skills(cctx)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"success": true, "data": catalog})
}

func (h *SkillsHandler) Add(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var in accounts.SkillInput

	if !BindJSON(ctx, &in) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.accounts.AddSkill(cctx, userID, in)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, u)
}

// Remove takes the skill and type from the body. Clients that cannot send a
// DELETE body may use the path segment as the skill and ?type= instead.
func (h *SkillsHandler) Remove(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var in accounts.SkillInput

	if ctx.Request.ContentLength > 0 {
		if !BindJSON(ctx, &in) {
			return
		}
	}
	if in.Skill == "" {
		in.Skill = ctx.Param("id")
	}
	if in.Type == "" {
		in.Type = ctx.Query("type")
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.accounts.RemoveSkill(cctx, userID, in)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, u)
}
