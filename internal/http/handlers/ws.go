package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// RoomServer joins an upgraded connection to a user's notification room.
type RoomServer interface {
	Serve(up *websocket.Upgrader, w http.ResponseWriter, r *http.Request, userID string) error
}

type WSHandler struct {
	rooms    RoomServer
	upgrader *websocket.Upgrader
}

func NewWSHandler(rooms RoomServer, upgrader *websocket.Upgrader) *WSHandler {
	return &WSHandler{rooms: rooms, upgrader: upgrader}
}

// Connect upgrades the authenticated caller; the connection only ever joins
// the caller's own room.
func (h *WSHandler) Connect(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	if err := h.rooms.Serve(h.upgrader, ctx.Writer, ctx.Request, userID); err != nil {
		// the upgrader has already written the failure response
		slog.Default().WarnContext(ctx.Request.Context(), "ws.upgrade_failed", "user_id", userID, "err", err)
		ctx.Abort()
	}
}
