package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/skillswap/internal/admin"
	"github.com/geocoder89/skillswap/internal/config"
	"github.com/geocoder89/skillswap/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type AdminService interface {
	Users(ctx context.Context) ([]user.User, error)
	Ban(ctx context.Context, adminID, userID string) (user.User, error)
	Unban(ctx context.Context, adminID, userID string) (user.User, error)
	Stats(ctx context.Context) (admin.Stats, error)
	Reports(ctx context.Context) ([]admin.Report, error)
}

type AdminHandler struct {
	admin AdminService
}

func NewAdminHandler(svc AdminService) *AdminHandler {
	return &AdminHandler{admin: svc}
}

func (h *AdminHandler) Users(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	list, err := h.admin.Users(cctx)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondList(ctx, list)
}

func (h *AdminHandler) Ban(ctx *gin.Context) {
	h.setBanned(ctx, h.admin.Ban)
}

func (h *AdminHandler) Unban(ctx *gin.Context) {
	h.setBanned(ctx, h.admin.Unban)
}

func (h *AdminHandler) setBanned(ctx *gin.Context, op func(context.Context, string, string) (user.User, error)) {
	adminID, ok := callerID(ctx)
	if !ok {
		return
	}

	id, ok := idParam(ctx, user.ErrNotFound)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := op(cctx, adminID, id)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, u)
}

func (h *AdminHandler) Stats(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	st, err := h.admin.Stats(cctx)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, st)
}

func (h *AdminHandler) Reports(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	list, err := h.admin.Reports(cctx)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondList(ctx, list)
}
