package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tudor/internal/api"
	"tudor/internal/models"
	"tudor/internal/service"
	"tudor/internal/store"
)

type credentials struct {
	email    string
	password string
}

var (
	adminCreds = &credentials{"admin@example.com", "admin-password"}
	aliceCreds = &credentials{"alice@example.com", "alice-password"}
	bobCreds   = &credentials{"bob@example.com", "bob-password"}
)

type testServer struct {
	t       *testing.T
	srv     *Server
	handler http.Handler
	svc     *service.Service
	admin   *models.User
	alice   *models.User
	bob     *models.User
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	ctx := context.Background()
	svc := service.New(store.New(store.NewMemoryBackend(), nil), nil)

	admin, err := svc.CreateUser(ctx, nil, adminCreds.email, adminCreds.password, false)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	alice, err := svc.CreateUser(ctx, admin, aliceCreds.email, aliceCreds.password, false)
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := svc.CreateUser(ctx, admin, bobCreds.email, bobCreds.password, false)
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	srv := New("127.0.0.1:0", svc, nil, opts)
	return &testServer{t: t, srv: srv, handler: srv.Handler(), svc: svc, admin: admin, alice: alice, bob: bob}
}

func (ts *testServer) do(method, path string, body any, creds *credentials) *httptest.ResponseRecorder {
	ts.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			ts.t.Fatalf("marshal body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if creds != nil {
		req.SetBasicAuth(creds.email, creds.password)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
}

func requireErrorCode(t *testing.T, w *httptest.ResponseRecorder, status, code int) {
	t.Helper()
	requireStatus(t, w, status)
	resp := decodeBody[api.ErrorResponse](t, w)
	if resp.ErrorCode != code {
		t.Fatalf("expected error_code %d, got %d (%s)", code, resp.ErrorCode, resp.Error)
	}
}

func TestListenAddrRemoteGuard(t *testing.T) {
	t.Run("allows loopback", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("http://127.0.0.1:7333")
		if err != nil {
			t.Fatalf("expected loopback to be allowed, got error: %v", err)
		}
		if addr != "127.0.0.1:7333" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("blocks non-loopback by default", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		if _, err := ListenAddr("http://0.0.0.0:7333"); err == nil {
			t.Fatal("expected error for non-loopback listen host")
		}
	})

	t.Run("allows non-loopback when explicitly enabled", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "true")
		addr, err := ListenAddr("http://0.0.0.0:7333")
		if err != nil {
			t.Fatalf("expected allow-remote to permit host, got error: %v", err)
		}
		if addr != "0.0.0.0:7333" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("requires a url", func(t *testing.T) {
		if _, err := ListenAddr(""); err == nil {
			t.Fatal("expected error for empty url")
		}
	})
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, Options{SchemaVersion: 3})
	w := ts.do(http.MethodGet, "/health", nil, nil)
	requireStatus(t, w, http.StatusOK)
	resp := decodeBody[api.HealthResponse](t, w)
	if resp.Status != "ok" || resp.SchemaVersion != 3 {
		t.Fatalf("unexpected health %+v", resp)
	}
}

func TestBasicAuth(t *testing.T) {
	ts := newTestServer(t, Options{})

	t.Run("anonymous writes are unauthorized", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/v1/tasks", api.TaskCreateRequest{Summary: "x"}, nil)
		requireErrorCode(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)
	})

	t.Run("anonymous reads are allowed", func(t *testing.T) {
		w := ts.do(http.MethodGet, "/v1/tags", nil, nil)
		requireStatus(t, w, http.StatusOK)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		w := ts.do(http.MethodGet, "/v1/tags", nil, &credentials{aliceCreds.email, "wrong-password"})
		requireErrorCode(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)
		if w.Header().Get("WWW-Authenticate") == "" {
			t.Fatal("expected WWW-Authenticate challenge")
		}
	})

	t.Run("valid credentials resolve the user", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/v1/tasks", api.TaskCreateRequest{Summary: "mine"}, aliceCreds)
		requireStatus(t, w, http.StatusCreated)
		task := decodeBody[api.TaskResponse](t, w)
		if len(task.UserIDs) != 1 || task.UserIDs[0] != ts.alice.ID() {
			t.Fatalf("expected alice authorized, got %v", task.UserIDs)
		}
	})
}

func TestRepeatedAuthFailuresAreThrottled(t *testing.T) {
	ts := newTestServer(t, Options{})
	bad := &credentials{bobCreds.email, "not-the-password"}
	for i := 0; i < authMaxFailures; i++ {
		requireStatus(t, ts.do(http.MethodGet, "/v1/tags", nil, bad), http.StatusUnauthorized)
	}
	w := ts.do(http.MethodGet, "/v1/tags", nil, bobCreds)
	requireErrorCode(t, w, http.StatusTooManyRequests, ErrCodeResourceExhausted)

	// Other accounts from the same address are unaffected.
	requireStatus(t, ts.do(http.MethodGet, "/v1/tags", nil, aliceCreds), http.StatusOK)
}

func TestAuthFailureLimiterWindow(t *testing.T) {
	l := newAuthFailureLimiter(2, time.Minute, time.Hour)
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	l.Fail("k", now)
	l.Fail("k", now.Add(2*time.Minute))
	if l.Blocked("k", now.Add(2*time.Minute)) {
		t.Fatal("failures outside the window should not block")
	}
	l.Fail("k", now.Add(150*time.Second))
	if !l.Blocked("k", now.Add(150*time.Second)) {
		t.Fatal("expected block after two failures in the window")
	}
	if l.Blocked("k", now.Add(2*time.Hour)) {
		t.Fatal("block should expire")
	}
	l.Succeed("k")
	if l.Blocked("k", now.Add(150*time.Second)) {
		t.Fatal("success should clear the entry")
	}

	var disabled *authFailureLimiter
	disabled.Fail("k", now)
	if disabled.Blocked("k", now) {
		t.Fatal("nil limiter never blocks")
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 1})

	requireStatus(t, ts.do(http.MethodGet, "/v1/tags", nil, nil), http.StatusOK)
	requireErrorCode(t, ts.do(http.MethodGet, "/v1/tags", nil, nil), http.StatusTooManyRequests, ErrCodeResourceExhausted)
	requireStatus(t, ts.do(http.MethodGet, "/health", nil, nil), http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/v1/tags", nil)
	req.RemoteAddr = "192.0.2.7:4000"
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	requireStatus(t, w, http.StatusOK)
}

func TestClientLimiterEvictsRefilledBuckets(t *testing.T) {
	l := newClientLimiter(1, 2)
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	if !l.allowAt("busy", now) || !l.allowAt("busy", now) {
		t.Fatal("expected the burst to be admitted")
	}
	if l.allowAt("busy", now) {
		t.Fatal("expected the third request to be limited")
	}
	for i := 0; i < clientSweepEvery; i++ {
		l.allowAt(fmt.Sprintf("10.0.0.%d", i), now)
	}
	if _, ok := l.visitors["busy"]; !ok {
		t.Fatal("a drained bucket must survive the sweep")
	}

	later := now.Add(time.Minute)
	for i := 0; i < clientSweepEvery; i++ {
		l.allowAt("steady", later.Add(time.Duration(i)*time.Second))
	}
	if len(l.visitors) != 1 {
		t.Fatalf("expected only the active client to remain, got %d", len(l.visitors))
	}
	if _, ok := l.visitors["steady"]; !ok {
		t.Fatal("expected the active client to remain")
	}
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.do(http.MethodGet, "/v1/tags", nil, nil)
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/tags", nil)
	req.Header.Set(requestIDHeader, "trace-123")
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "trace-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestClassifyServiceError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		anonymous bool
		status    int
	}{
		{"invalid", models.InvalidArgumentf("bad"), false, http.StatusBadRequest},
		{"missing user", service.ErrAnonymous, true, http.StatusUnauthorized},
		{"forbidden", models.Forbiddenf("no"), false, http.StatusForbidden},
		{"forbidden anonymous", models.Forbiddenf("no"), true, http.StatusUnauthorized},
		{"not found", models.NotFoundf("task 9"), false, http.StatusNotFound},
		{"conflict", models.Conflictf("cycle"), false, http.StatusConflict},
		{"other", errors.New("disk on fire"), false, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := httpStatusFromError(classifyServiceError(tc.err, tc.anonymous))
			if got != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, got)
			}
		})
	}
}

func TestInternalErrorsHideDetails(t *testing.T) {
	srv := New("", nil, nil, Options{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	srv.writeServiceError(w, req, errors.New("secret path /var/db"))
	requireStatus(t, w, http.StatusInternalServerError)
	resp := decodeBody[api.ErrorResponse](t, w)
	if resp.Error != "internal error" || resp.ErrorCode != ErrCodeStoreFailure {
		t.Fatalf("unexpected error response %+v", resp)
	}
}
