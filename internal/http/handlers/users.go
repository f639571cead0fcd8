package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/geocoder89/skillswap/internal/accounts"
	"github.com/geocoder89/skillswap/internal/config"
	"github.com/geocoder89/skillswap/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type DirectoryService interface {
	ListPublic(ctx context.Context) ([]user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	Skills(ctx context.Context) (user.SkillCatalog, error)
}

const photoField = "photo"

type UsersHandler struct {
	directory   DirectoryService
	accounts    AccountService
	maxFileSize int64
}

func NewUsersHandler(directory DirectoryService, accounts AccountService, maxFileSize int64) *UsersHandler {
	return &UsersHandler{directory: directory, accounts: accounts, maxFileSize: maxFileSize}
}

func (h *UsersHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	list, err := h.directory.ListPublic(cctx)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondList(ctx, list)
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	id, ok := idParam(ctx, user.ErrNotFound)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.directory.GetUser(cctx, id)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, u)
}

// UploadPhoto stores the multipart "photo" file and points the caller's
// profile at it.
func (h *UsersHandler) UploadPhoto(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	fh, err := ctx.FormFile(photoField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RespondBadRequest(ctx, h.tooLarge(), nil)
			return
		}
		RespondErr(ctx, accounts.ErrNoFile)
		return
	}

	if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
		RespondBadRequest(ctx, h.tooLarge(), nil)
		return
	}

	f, err := fh.Open()
	if err != nil {
		RespondErr(ctx, accounts.ErrNoFile)
		return
	}
	defer f.Close()

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 15*time.Second)
	defer cancel()

	u, err := h.accounts.SetPhoto(cctx, userID, accounts.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, u)
}

func (h *UsersHandler) tooLarge() string {
	return fmt.Sprintf("File too large, the limit is %d bytes", h.maxFileSize)
}
