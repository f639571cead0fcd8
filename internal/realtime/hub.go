package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/geocoder89/skillswap/internal/notifications"
	"github.com/redis/go-redis/v9"
)

// RoomPattern matches every per-user notification channel.
const RoomPattern = "user-*"

type Gauge interface {
	Inc()
	Dec()
}

type nopGauge struct{}

func (nopGauge) Inc() {}
func (nopGauge) Dec() {}

// Hub tracks the open websocket connections of this process, keyed by user.
// A user may hold several connections (tabs, devices).
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	log     *slog.Logger
	gauge   Gauge
}

func NewHub(log *slog.Logger, gauge Gauge) *Hub {
	if log == nil {
		log = slog.Default()
	}
	if gauge == nil {
		gauge = nopGauge{}
	}
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		log:     log,
		gauge:   gauge,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	room, ok := h.clients[c.userID]
	if !ok {
		room = make(map[*Client]struct{})
		h.clients[c.userID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()

	h.gauge.Inc()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	room, ok := h.clients[c.userID]
	if ok {
		if _, present := room[c]; !present {
			ok = false
		} else {
			delete(room, c)
			if len(room) == 0 {
				delete(h.clients, c.userID)
			}
		}
	}
	h.mu.Unlock()

	if ok {
		c.closeSend()
		h.gauge.Dec()
	}
}

// Connections reports how many sockets userID has open on this process.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// SendToUser queues msg on every connection of userID. Slow connections whose
// buffer is full miss the message rather than stall the sender.
func (h *Hub) SendToUser(userID string, msg []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients[userID] {
		if c.enqueue(msg) {
			delivered++
			continue
		}
		h.log.Warn("ws.send_buffer_full", "user_id", userID)
	}
	return delivered
}

// Notify delivers ev to the addressee's local connections.
func (h *Hub) Notify(_ context.Context, ev notifications.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	h.SendToUser(ev.UserID, b)
	return nil
}

// Bridge forwards messages published on user rooms by any instance to the
// local connections of that user. It returns when ctx is done or msgs closes.
func (h *Hub) Bridge(ctx context.Context, msgs <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			userID, found := strings.CutPrefix(m.Channel, "user-")
			if !found || userID == "" {
				continue
			}
			h.SendToUser(userID, []byte(m.Payload))
		}
	}
}

// CloseAll disconnects every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var all []*Client
	for _, room := range h.clients {
		for c := range room {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.Unregister(c)
	}
}
