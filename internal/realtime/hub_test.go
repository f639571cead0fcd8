package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/geocoder89/skillswap/internal/notifications"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

type countGauge struct{ n int64 }

func (g *countGauge) Inc() { atomic.AddInt64(&g.n, 1) }
func (g *countGauge) Dec() { atomic.AddInt64(&g.n, -1) }

func startServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()

	up := Upgrader(func(string) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Serve(up, w, r, r.URL.Query().Get("user")); err != nil {
			t.Errorf("serve: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestNotifyReachesOnlyAddressee(t *testing.T) {
	gauge := &countGauge{}
	hub := NewHub(nil, gauge)
	srv := startServer(t, hub)

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")
	waitFor(t, func() bool { return hub.Connections("alice") == 1 && hub.Connections("bob") == 1 })

	if err := hub.Notify(context.Background(), notifications.Event{Type: notifications.TypeSwapUpdated, UserID: "alice", SwapID: "s1"}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	_ = alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := alice.ReadMessage()
	if err != nil {
		t.Fatalf("alice read: %v", err)
	}
	var ev notifications.Event
	if err := json.Unmarshal(msg, &ev); err != nil || ev.SwapID != "s1" {
		t.Fatalf("unexpected payload %s (%v)", msg, err)
	}

	_ = bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := bob.ReadMessage(); err == nil {
		t.Fatalf("bob must not receive alice's notification")
	}

	if atomic.LoadInt64(&gauge.n) != 2 {
		t.Fatalf("expected 2 open connections, got %d", gauge.n)
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	gauge := &countGauge{}
	hub := NewHub(nil, gauge)
	srv := startServer(t, hub)

	conn := dial(t, srv, "alice")
	waitFor(t, func() bool { return hub.Connections("alice") == 1 })

	_ = conn.Close()
	waitFor(t, func() bool { return hub.Connections("alice") == 0 })

	if atomic.LoadInt64(&gauge.n) != 0 {
		t.Fatalf("gauge must return to zero, got %d", gauge.n)
	}
	if n := hub.SendToUser("alice", []byte("x")); n != 0 {
		t.Fatalf("expected no deliveries, got %d", n)
	}
}

func TestBridgeForwardsRoomMessages(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := startServer(t, hub)

	conn := dial(t, srv, "bob")
	waitFor(t, func() bool { return hub.Connections("bob") == 1 })

	msgs := make(chan *redis.Message, 2)
	msgs <- &redis.Message{Channel: "other-channel", Payload: "ignored"}
	msgs <- &redis.Message{Channel: "user-bob", Payload: `{"type":"swap.created"}`}
	close(msgs)

	hub.Bridge(context.Background(), msgs)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != `{"type":"swap.created"}` {
		t.Fatalf("got %s", msg)
	}
}
