package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/logging"
	"github.com/videocave/backend/internal/models"
)

type stubAuthenticator struct {
	users map[string]models.User
	seen  []string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (models.User, error) {
	s.seen = append(s.seen, token)
	user, ok := s.users[token]
	if !ok {
		return models.User{}, apperr.New(apperr.ErrTokenInvalid, "invalid access token")
	}
	return user, nil
}

func echoActor(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_, _ = w.Write([]byte(actor.UserID))
}

func TestRequireAuth(t *testing.T) {
	authn := &stubAuthenticator{users: map[string]models.User{"good": {ID: "u-1"}}}
	handler := RequireAuth(authn)(http.HandlerFunc(echoActor))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		body   string
	}{
		{
			name:   "cookie",
			setup:  func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "good"}) },
			status: http.StatusOK,
			body:   "u-1",
		},
		{
			name:   "bearer header",
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "bearer good") },
			status: http.StatusOK,
			body:   "u-1",
		},
		{
			name:   "missing token",
			setup:  func(*http.Request) {},
			status: http.StatusUnauthorized,
		},
		{
			name:   "rejected token",
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer forged") },
			status: http.StatusUnauthorized,
		},
		{
			name:   "other scheme",
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "Basic good") },
			status: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected status %d got %d", tt.status, rec.Code)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Fatalf("expected body %q got %q", tt.body, rec.Body.String())
			}
			if tt.status == http.StatusUnauthorized {
				var payload map[string]string
				if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
					t.Fatalf("decode error payload: %v", err)
				}
				if payload["error"] == "" {
					t.Fatal("expected error message")
				}
			}
		})
	}
}

func TestIPRateLimiterRefillsOverTime(t *testing.T) {
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(2, time.Minute, 2, time.Hour).WithNowFunc(func() time.Time { return now })

	if !limiter.Allow("1.1.1.1") || !limiter.Allow("1.1.1.1") {
		t.Fatal("expected burst to be allowed")
	}
	if limiter.Allow("1.1.1.1") {
		t.Fatal("expected third request to be refused")
	}
	if !limiter.Allow("2.2.2.2") {
		t.Fatal("expected other keys to be unaffected")
	}

	now = now.Add(30 * time.Second)
	if !limiter.Allow("1.1.1.1") {
		t.Fatal("expected a token to be refilled after the interval")
	}
}

func TestIPRateLimiterForgetsIdleVisitors(t *testing.T) {
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(1, time.Hour, 1, time.Minute).WithNowFunc(func() time.Time { return now })

	limiter.Allow("1.1.1.1")
	now = now.Add(2 * time.Minute)
	limiter.Allow("2.2.2.2")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if _, ok := limiter.visitors["1.1.1.1"]; ok {
		t.Fatal("expected idle visitor to be collected")
	}
}

func TestLimitUsesScopeAndClientIP(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Hour, 1, time.Hour)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	login := Limit(limiter, "login")(ok)
	register := Limit(limiter, "register")(ok)

	call := func(h http.Handler, forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := call(login, "10.0.0.1, 172.16.0.1"); code != http.StatusNoContent {
		t.Fatalf("expected first login to pass, got %d", code)
	}
	if code := call(login, "10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second login to be limited, got %d", code)
	}
	if code := call(register, "10.0.0.1"); code != http.StatusNoContent {
		t.Fatalf("expected separate scope to pass, got %d", code)
	}
	if code := call(Limit(nil, "login")(ok), "10.0.0.1"); code != http.StatusNoContent {
		t.Fatalf("expected nil limiter to pass, got %d", code)
	}
}

func TestRequestLoggerAssignsRequestIDAndRecovers(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	var seenID string
	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = logging.RequestIDFromContext(r.Context())
		if r.URL.Path == "/panic" {
			panic("boom")
		}
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", rec.Code)
	}
	if seenID == "" || rec.Header().Get(RequestIDHeader) != seenID {
		t.Fatalf("expected request id %q to be echoed, got %q", seenID, rec.Header().Get(RequestIDHeader))
	}

	given := "6f1f3c4e-3f5b-4a39-9a57-0a8a3c1b2d4e"
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, given)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seenID != given {
		t.Fatalf("expected incoming request id to be kept, got %q", seenID)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatalf("expected panic to be logged, got %s", buf.String())
	}
}
