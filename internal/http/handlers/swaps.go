package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/skillswap/internal/config"
	"github.com/geocoder89/skillswap/internal/domain/swap"
	"github.com/gin-gonic/gin"
)

type SwapService interface {
	Create(ctx context.Context, requesterID string, req swap.CreateRequest) (swap.Request, error)
	Get(ctx context.Context, actorID, id string) (swap.Request, error)
	Received(ctx context.Context, userID string) ([]swap.Request, error)
	Sent(ctx context.Context, userID string) ([]swap.Request, error)
	Accept(ctx context.Context, actorID, id string) (swap.Request, error)
	Reject(ctx context.Context, actorID, id string) (swap.Request, error)
	Cancel(ctx context.Context, actorID, id string) (swap.Request, error)
	Complete(ctx context.Context, actorID, id string) (swap.Request, error)
	Rate(ctx context.Context, actorID, id string, in swap.RateRequest) (swap.Request, error)
	Delete(ctx context.Context, actorID, id string) error
}

type SwapsHandler struct {
	swaps   SwapService
	timeout time.Duration
}

func NewSwapsHandler(swaps SwapService) *SwapsHandler {
	return &SwapsHandler{swaps: swaps, timeout: 3 * time.Second}
}

func (h *SwapsHandler) Create(ctx *gin.Context) {
	actorID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req swap.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	created, err := h.swaps.Create(cctx, actorID, req)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusCreated, created)
}

func (h *SwapsHandler) Received(ctx *gin.Context) {
	h.list(ctx, h.swaps.Received)
}

func (h *SwapsHandler) Sent(ctx *gin.Context) {
	h.list(ctx, h.swaps.Sent)
}

func (h *SwapsHandler) list(ctx *gin.Context, fetch func(context.Context, string) ([]swap.Request, error)) {
	actorID, ok := callerID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	list, err := fetch(cctx, actorID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondList(ctx, list)
}

func (h *SwapsHandler) Get(ctx *gin.Context) {
	h.act(ctx, h.swaps.Get)
}

func (h *SwapsHandler) Accept(ctx *gin.Context) {
	h.act(ctx, h.swaps.Accept)
}

func (h *SwapsHandler) Reject(ctx *gin.Context) {
	h.act(ctx, h.swaps.Reject)
}

func (h *SwapsHandler) Cancel(ctx *gin.Context) {
	h.act(ctx, h.swaps.Cancel)
}

func (h *SwapsHandler) Complete(ctx *gin.Context) {
	h.act(ctx, h.swaps.Complete)
}

func (h *SwapsHandler) Rate(ctx *gin.Context) {
	var req swap.RateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	h.act(ctx, func(c context.Context, actorID, id string) (swap.Request, error) {
		return h.swaps.Rate(c, actorID, id, req)
	})
}

func (h *SwapsHandler) Delete(ctx *gin.Context) {
	actorID, ok := callerID(ctx)
	if !ok {
		return
	}

	id, ok := idParam(ctx, swap.ErrNotFound)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	if err := h.swaps.Delete(cctx, actorID, id); err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, gin.H{})
}

// act runs a single-swap operation on behalf of the caller and answers with
// the resulting request.
func (h *SwapsHandler) act(ctx *gin.Context, op func(context.Context, string, string) (swap.Request, error)) {
	actorID, ok := callerID(ctx)
	if !ok {
		return
	}

	id, ok := idParam(ctx, swap.ErrNotFound)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	out, err := op(cctx, actorID, id)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, out)
}
