package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/skillswap/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func TestHealth(t *testing.T) {
	h := handlers.NewHealthHandler("test", nil)

	r := gin.New()
	r.GET("/health", h.Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	for _, want := range []string{`"status":"OK"`, `"environment":"test"`, `"timestamp"`} {
		if !strings.Contains(w.Body.String(), want) {
			t.Fatalf("expected %s in %s", want, w.Body.String())
		}
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]handlers.Pinger
		want   int
	}{
		{name: "no checks", want: http.StatusOK},
		{
			name:   "all up",
			checks: map[string]handlers.Pinger{"db": func(context.Context) error { return nil }},
			want:   http.StatusOK,
		},
		{
			name: "one down",
			checks: map[string]handlers.Pinger{
				"db":    func(context.Context) error { return nil },
				"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
			},
			want: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler("test", tt.checks)

			r := gin.New()
			r.GET("/readyz", h.Readyz)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d body=%s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}
