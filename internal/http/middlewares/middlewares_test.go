package middlewares_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/skillswap/internal/auth"
	"github.com/geocoder89/skillswap/internal/domain/user"
	"github.com/geocoder89/skillswap/internal/http/middlewares"
	"github.com/geocoder89/skillswap/internal/identity"
	"github.com/geocoder89/skillswap/internal/repo/memory"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type errBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) errBody {
	t.Helper()
	var b errBody
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return b
}

func seedUser(t *testing.T, repo *memory.UsersRepo, email string, admin, banned bool) user.User {
	t.Helper()

	u := user.NewFromRegister(user.RegisterRequest{Name: "Test", Email: email, Password: "x"}, "hash")
	u.IsAdmin = admin
	u.IsBanned = banned

	created, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return created
}

func TestRequireAuth(t *testing.T) {
	jwt := auth.NewManager("test-secret", time.Hour)
	repo := memory.NewUsersRepo()
	mw := middlewares.NewAuthMiddleware(jwt, repo)

	active := seedUser(t, repo, "active@example.com", false, false)
	banned := seedUser(t, repo, "banned@example.com", false, true)

	token := func(id, email string) string {
		raw, err := jwt.GenerateAccessToken(id, email)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		return raw
	}

	r := gin.New()
	r.GET("/me", mw.RequireAuth(), func(c *gin.Context) {
		p, ok := identity.PrincipalFrom(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, p.UserID+"|"+string(p.Role))
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized, wantError: "Not authorized to access this route"},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantError: "Not authorized to access this route"},
		{name: "garbage token", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantError: "Not authorized to access this route"},
		{name: "unknown user", header: "Bearer " + token("8b1f3b1e-0000-4000-8000-000000000000", "ghost@example.com"), wantStatus: http.StatusUnauthorized, wantError: "User not found"},
		{name: "banned user", header: "Bearer " + token(banned.ID, banned.Email), wantStatus: http.StatusForbidden, wantError: "Your account has been banned"},
		{name: "active user", header: "Bearer " + token(active.ID, active.Email), wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d body=%s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantError != "" {
				if got := decodeErr(t, w); got.Error != tt.wantError || got.Success {
					t.Fatalf("unexpected body %+v", got)
				}
				return
			}
			if w.Body.String() != active.ID+"|user" {
				t.Fatalf("unexpected principal %q", w.Body.String())
			}
		})
	}
}

func TestRequireAuthOrQuery(t *testing.T) {
	jwt := auth.NewManager("test-secret", time.Hour)
	repo := memory.NewUsersRepo()
	mw := middlewares.NewAuthMiddleware(jwt, repo)
	u := seedUser(t, repo, "ws@example.com", false, false)

	raw, err := jwt.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	r := gin.New()
	r.GET("/ws", mw.RequireAuthOrQuery(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/plain", mw.RequireAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+raw, nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected query token to be accepted, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain?token="+raw, nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected query token to be ignored, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	jwt := auth.NewManager("test-secret", time.Hour)
	repo := memory.NewUsersRepo()
	mw := middlewares.NewAuthMiddleware(jwt, repo)

	member := seedUser(t, repo, "member@example.com", false, false)
	admin := seedUser(t, repo, "admin@example.com", true, false)

	r := gin.New()
	r.GET("/admin", mw.RequireAuth(), mw.RequireRole(user.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	call := func(u user.User) *httptest.ResponseRecorder {
		raw, err := jwt.GenerateAccessToken(u.ID, u.Email)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := call(member)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if got := decodeErr(t, w); got.Error != "User role user is not authorized to access this route" || got.Code != "forbidden" {
		t.Fatalf("unexpected body %+v", got)
	}

	if w := call(admin); w.Code != http.StatusOK {
		t.Fatalf("expected admin to pass, got %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := middlewares.NewRateLimiter(2, time.Minute)

	r := gin.New()
	r.GET("/x", rl.RateLimiterMiddleware(middlewares.KeyByIP), func(c *gin.Context) { c.Status(http.StatusOK) })

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		last = httptest.NewRecorder()
		r.ServeHTTP(last, req)

		if i < 2 && last.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, last.Code)
		}
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	// a different client has its own window
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", w.Code)
	}
}

func TestRateLimiterPerUser(t *testing.T) {
	jwt := auth.NewManager("test-secret", time.Hour)
	repo := memory.NewUsersRepo()
	mw := middlewares.NewAuthMiddleware(jwt, repo)
	rl := middlewares.NewRateLimiter(1, time.Minute)

	ann := seedUser(t, repo, "ann@example.com", false, false)
	bob := seedUser(t, repo, "bob@example.com", false, false)

	r := gin.New()
	r.GET("/x", mw.RequireAuth(), rl.RateLimiterMiddleware(middlewares.KeyByUserOrIP), func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(u user.User) int {
		raw, err := jwt.GenerateAccessToken(u.ID, u.Email)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("Authorization", "Bearer "+raw)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if got := call(ann); got != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", got)
	}
	if got := call(ann); got != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", got)
	}
	// same address, different account
	if got := call(bob); got != http.StatusOK {
		t.Fatalf("other user: expected 200, got %d", got)
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.POST("/x", middlewares.RequireJSON(), func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name        string
		body        string
		contentType string
		want        int
	}{
		{name: "json", body: `{}`, contentType: "application/json; charset=utf-8", want: http.StatusOK},
		{name: "form", body: `a=b`, contentType: "application/x-www-form-urlencoded", want: http.StatusUnsupportedMediaType},
		{name: "empty body", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestRequestIDEchoesHeader(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(middlewares.CtxRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.String() != "abc-123" || w.Header().Get("X-Request-Id") != "abc-123" {
		t.Fatalf("expected request id to be propagated, got %q", w.Body.String())
	}
}
