package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/skillswap/internal/accounts"
	"github.com/geocoder89/skillswap/internal/config"
	"github.com/geocoder89/skillswap/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type AccountService interface {
	Register(ctx context.Context, req user.RegisterRequest) (accounts.Session, error)
	Login(ctx context.Context, req user.LoginRequest) (accounts.Session, error)
	Profile(ctx context.Context, userID string) (user.User, error)
	UpdateProfile(ctx context.Context, userID string, upd user.ProfileUpdate) (user.User, error)
	AddSkill(ctx context.Context, userID string, in accounts.SkillInput) (user.User, error)
	RemoveSkill(ctx context.Context, userID string, in accounts.SkillInput) (user.User, error)
	SetPhoto(ctx context.Context, userID string, up accounts.Upload) (user.User, error)
}

type AuthHandler struct {
	accounts AccountService
	timeout  time.Duration
}

func NewAuthHandler(accounts AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts, timeout: 5 * time.Second}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// bcrypt at cost 12 dominates this call
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	session, err := h.accounts.Register(cctx, req)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	respondSession(ctx, http.StatusCreated, session)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	session, err := h.accounts.Login(cctx, req)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	respondSession(ctx, http.StatusOK, session)
}

func (h *AuthHandler) Profile(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.accounts.Profile(cctx, userID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

func (h *AuthHandler) UpdateProfile(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req user.ProfileUpdate

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.accounts.UpdateProfile(cctx, userID, req)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

func respondSession(ctx *gin.Context, status int, s accounts.Session) {
	ctx.JSON(status, gin.H{
		"success": true,
		"token":   s.Token,
		"user":    s.User,
	})
}
