package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/skillswap/internal/domain/swap"
	"github.com/geocoder89/skillswap/internal/domain/user"
	"github.com/geocoder89/skillswap/internal/http/handlers"
	"github.com/geocoder89/skillswap/internal/http/middlewares"
	"github.com/geocoder89/skillswap/internal/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Fake implementation of handlers.SwapService

type fakeSwapService struct {
	createFn   func(ctx context.Context, requesterID string, req swap.CreateRequest) (swap.Request, error)
	getFn      func(ctx context.Context, actorID, id string) (swap.Request, error)
	receivedFn func(ctx context.Context, userID string) ([]swap.Request, error)
	acceptFn   func(ctx context.Context, actorID, id string) (swap.Request, error)
	rateFn     func(ctx context.Context, actorID, id string, in swap.RateRequest) (swap.Request, error)
	deleteFn   func(ctx context.Context, actorID, id string) error
}

func (f *fakeSwapService) Create(ctx context.Context, requesterID string, req swap.CreateRequest) (swap.Request, error) {
	if f.createFn != nil {
		return f.createFn(ctx, requesterID, req)
	}
	return swap.Request{}, nil
}

func (f *fakeSwapService) Get(ctx context.Context, actorID, id string) (swap.Request, error) {
	if f.getFn != nil {
		return f.getFn(ctx, actorID, id)
	}
	return swap.Request{}, nil
}

func (f *fakeSwapService) Received(ctx context.Context, userID string) ([]swap.Request, error) {
	if f.receivedFn != nil {
		return f.receivedFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeSwapService) Sent(context.Context, string) ([]swap.Request, error) {
	return nil, nil
}

func (f *fakeSwapService) Accept(ctx context.Context, actorID, id string) (swap.Request, error) {
	if f.acceptFn != nil {
		return f.acceptFn(ctx, actorID, id)
	}
	return swap.Request{}, nil
}

func (f *fakeSwapService) Reject(context.Context, string, string) (swap.Request, error) {
	return swap.Request{}, nil
}

func (f *fakeSwapService) Cancel(context.Context, string, string) (swap.Request, error) {
	return swap.Request{}, nil
}

func (f *fakeSwapService) Complete(context.Context, string, string) (swap.Request, error) {
	return swap.Request{}, nil
}

func (f *fakeSwapService) Rate(ctx context.Context, actorID, id string, in swap.RateRequest) (swap.Request, error) {
	if f.rateFn != nil {
		return f.rateFn(ctx, actorID, id, in)
	}
	return swap.Request{}, nil
}

func (f *fakeSwapService) Delete(ctx context.Context, actorID, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, actorID, id)
	}
	return nil
}

const actorID = "4a0f5a2e-8d7b-4c1e-9f3a-2b6c7d8e9f01"

// small helper which mounts one handler behind a fake signed-in caller

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, func(c *gin.Context) {
		middlewares.SetPrincipal(c, identity.Principal{UserID: actorID, Role: user.RoleUser})
		c.Next()
	}, h)

	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Count   int             `json:"count"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

func serve(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode body %q: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func TestCreateSwapHandler(t *testing.T) {
	recipient := uuid.NewString()

	tests := []struct {
		name       string
		body       string
		createErr  error
		wantStatus int
		wantError  string
	}{
		{
			name:       "created",
			body:       `{"recipientId":"` + recipient + `","skillOffered":"Go","skillWanted":"Guitar"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing skill",
			body:       `{"recipientId":"` + recipient + `","skillOffered":"Go"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "skillWanted is required",
		},
		{
			name:       "bad recipient id",
			body:       `{"recipientId":"nope","skillOffered":"Go","skillWanted":"Guitar"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "recipientId must be a valid UUID",
		},
		{
			name:       "invalid json",
			body:       `{"recipientId":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request body",
		},
		{
			name:       "self request",
			body:       `{"recipientId":"` + recipient + `","skillOffered":"Go","skillWanted":"Guitar"}`,
			createErr:  swap.ErrSelfRequest,
			wantStatus: http.StatusBadRequest,
			wantError:  "You cannot send a swap request to yourself",
		},
		{
			name:       "store failure is hidden",
			body:       `{"recipientId":"` + recipient + `","skillOffered":"Go","skillWanted":"Guitar"}`,
			createErr:  errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSwapService{
				createFn: func(_ context.Context, requesterID string, req swap.CreateRequest) (swap.Request, error) {
					if tt.createErr != nil {
						return swap.Request{}, tt.createErr
					}
					if requesterID != actorID {
						t.Fatalf("expected requester %s, got %s", actorID, requesterID)
					}
					return swap.NewFromCreateRequest(requesterID, req), nil
				},
			}
			h := handlers.NewSwapsHandler(svc)
			r := setupRouter(http.MethodPost, "/swaps/request", h.Create)

			w, env := serve(t, r, http.MethodPost, "/swaps/request", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d body=%s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantError != "" && env.Error != tt.wantError {
				t.Fatalf("expected error %q, got %q", tt.wantError, env.Error)
			}
			if tt.wantError == "" && !env.Success {
				t.Fatalf("expected success")
			}
		})
	}
}

func TestAcceptSwapHandler(t *testing.T) {
	id := uuid.NewString()

	tests := []struct {
		name       string
		path       string
		acceptErr  error
		wantStatus int
		wantCode   string
	}{
		{name: "accepted", path: "/swaps/" + id + "/accept", wantStatus: http.StatusOK},
		{name: "malformed id", path: "/swaps/xyz/accept", wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "not recipient", path: "/swaps/" + id + "/accept", acceptErr: swap.ErrNotRecipientAccept, wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "not pending", path: "/swaps/" + id + "/accept", acceptErr: swap.ErrNotPending, wantStatus: http.StatusBadRequest, wantCode: "invalid_transition"},
		{name: "lost race", path: "/swaps/" + id + "/accept", acceptErr: swap.ErrVersionConflict, wantStatus: http.StatusConflict, wantCode: "conflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSwapService{
				acceptFn: func(_ context.Context, actor, gotID string) (swap.Request, error) {
					if tt.acceptErr != nil {
						return swap.Request{}, tt.acceptErr
					}
					return swap.Request{ID: gotID, RecipientID: actor, Status: swap.StatusAccepted}, nil
				},
			}
			h := handlers.NewSwapsHandler(svc)
			r := setupRouter(http.MethodPut, "/swaps/:id/accept", h.Accept)

			w, env := serve(t, r, http.MethodPut, tt.path, "")

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d body=%s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantCode != "" && env.Code != tt.wantCode {
				t.Fatalf("expected code %q, got %q", tt.wantCode, env.Code)
			}
		})
	}
}

func TestRateSwapHandlerValidatesRating(t *testing.T) {
	called := false
	svc := &fakeSwapService{
		rateFn: func(_ context.Context, _, _ string, in swap.RateRequest) (swap.Request, error) {
			called = true
			rating := in.Rating
			return swap.Request{Status: swap.StatusCompleted, RequesterRating: &rating}, nil
		},
	}
	h := handlers.NewSwapsHandler(svc)
	r := setupRouter(http.MethodPost, "/swaps/:id/rate", h.Rate)
	path := "/swaps/" + uuid.NewString() + "/rate"

	w, env := serve(t, r, http.MethodPost, path, `{"rating":6}`)
	if w.Code != http.StatusBadRequest || env.Error != "rating must be at most 5" {
		t.Fatalf("expected rating bound error, got %d %q", w.Code, env.Error)
	}
	if called {
		t.Fatalf("service must not be called on invalid input")
	}

	w, _ = serve(t, r, http.MethodPost, path, `{"rating":4,"comment":"nice"}`)
	if w.Code != http.StatusOK || !called {
		t.Fatalf("expected rating to pass, got %d", w.Code)
	}
}

func TestReceivedSwapsHandler(t *testing.T) {
	svc := &fakeSwapService{
		receivedFn: func(_ context.Context, userID string) ([]swap.Request, error) {
			return []swap.Request{
				{ID: uuid.NewString(), RecipientID: userID, Status: swap.StatusPending},
				{ID: uuid.NewString(), RecipientID: userID, Status: swap.StatusAccepted},
			}, nil
		},
	}
	h := handlers.NewSwapsHandler(svc)
	r := setupRouter(http.MethodGet, "/swaps/received", h.Received)

	w, env := serve(t, r, http.MethodGet, "/swaps/received", "")

	if w.Code != http.StatusOK || env.Count != 2 {
		t.Fatalf("expected 2 items, got %d count=%d", w.Code, env.Count)
	}
	if w.Header().Get("ETag") == "" {
		t.Fatalf("expected an ETag on list responses")
	}
}

func TestDeleteSwapHandler(t *testing.T) {
	svc := &fakeSwapService{
		deleteFn: func(context.Context, string, string) error { return swap.ErrNotRequesterDelete },
	}
	h := handlers.NewSwapsHandler(svc)
	r := setupRouter(http.MethodDelete, "/swaps/:id", h.Delete)

	w, env := serve(t, r, http.MethodDelete, "/swaps/"+uuid.NewString(), "")

	if w.Code != http.StatusForbidden || env.Error != "Not authorized to delete this request" {
		t.Fatalf("unexpected %d %q", w.Code, env.Error)
	}
}

func TestDeleteSwapHandlerReturnsEmptyData(t *testing.T) {
	var gotActor string
	svc := &fakeSwapService{
		deleteFn: func(_ context.Context, actorID, _ string) error {
			gotActor = actorID
			return nil
		},
	}
	h := handlers.NewSwapsHandler(svc)
	r := setupRouter(http.MethodDelete, "/swaps/:id", h.Delete)

	w, env := serve(t, r, http.MethodDelete, "/swaps/"+uuid.NewString(), "")

	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("expected 200 success, got %d %s", w.Code, w.Body.String())
	}
	if string(env.Data) != "{}" {
		t.Fatalf("expected data {}, got %q", env.Data)
	}
	if gotActor != actorID {
		t.Fatalf("expected actor %q, got %q", actorID, gotActor)
	}
}

func TestHandlersReadPrincipalFromRequestContext(t *testing.T) {
	var gotUser string
	svc := &fakeSwapService{
		receivedFn: func(_ context.Context, userID string) ([]swap.Request, error) {
			gotUser = userID
			return nil, nil
		},
	}
	h := handlers.NewSwapsHandler(svc)

	// only the request context carries the caller, nothing is set on gin's
	r := gin.New()
	r.GET("/swaps/received", func(c *gin.Context) {
		p := identity.Principal{UserID: actorID, Role: user.RoleUser}
		c.Request = c.Request.WithContext(identity.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}, h.Received)

	w, env := serve(t, r, http.MethodGet, "/swaps/received", "")
	if w.Code != http.StatusOK || env.Count != 0 {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	if gotUser != actorID {
		t.Fatalf("expected user %q, got %q", actorID, gotUser)
	}
}

func TestHandlersRequirePrincipal(t *testing.T) {
	h := handlers.NewSwapsHandler(&fakeSwapService{})

	r := gin.New()
	r.GET("/swaps/received", h.Received)

	w, env := serve(t, r, http.MethodGet, "/swaps/received", "")
	if w.Code != http.StatusUnauthorized || env.Code != "unauthenticated" {
		t.Fatalf("expected 401, got %d %+v", w.Code, env)
	}
}
