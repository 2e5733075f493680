package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstore-backend/internal/dbtest"
	"github.com/angelmondragon/bookstore-backend/internal/users"
	"github.com/angelmondragon/bookstore-backend/pkg/auth/session"
	"github.com/angelmondragon/bookstore-backend/pkg/config"
)

type memorySessions struct {
	mu      sync.Mutex
	entries map[string]uuid.UUID
}

func (m *memorySessions) Create(_ context.Context, userID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.entries[id] = userID
	return id, nil
}

func (m *memorySessions) Resolve(_ context.Context, sessionID string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.entries[sessionID]
	if !ok {
		return uuid.Nil, session.ErrSessionNotFound
	}
	return id, nil
}

func (m *memorySessions) Revoke(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
	return nil
}

type memoryCounters struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (m *memoryCounters) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memoryCounters) TTL(context.Context, string) (time.Duration, error) {
	return time.Minute, nil
}

func (m *memoryCounters) Ping(context.Context) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		Session: config.SessionConfig{
			Secret:     "router-test-secret",
			Issuer:     "bookstore-test",
			TTL:        time.Hour,
			CookieName: "bookstore_session",
		},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8 * 1024,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:        time.Minute,
			LoginEmailLimit:    2,
			LoginIPLimit:       100,
			RegisterWindow:     time.Minute,
			RegisterEmailLimit: 10,
			RegisterIPLimit:    100,
			SendCodeWindow:     time.Minute,
			SendCodeUserLimit:  10,
			SendCodeIPLimit:    100,
		},
		Verification: config.VerificationConfig{ExposeCode: true},
	}
}

type testServer struct {
	handler http.Handler
	conn    *gorm.DB
	cookie  *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := testConfig()
	client, conn := dbtest.Client(t)
	sessions := &memorySessions{entries: map[string]uuid.UUID{}}
	registry := prometheus.NewRegistry()

	svc, err := BuildServices(ServiceDeps{
		Config:   cfg,
		DB:       client,
		Sessions: sessions,
		Registry: registry,
	})
	require.NoError(t, err)

	handler := NewRouter(cfg, nil, client, &memoryCounters{counts: map[string]int64{}}, registry,
		sessions, users.NewRepository(conn), svc)
	return &testServer{handler: handler, conn: conn}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func data(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope), resp.Body.String())
	return envelope.Data
}

func (s *testServer) registerAndLogin(t *testing.T) {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/v1/users/register",
		`{"username":"u1_reader","email":"e1@x.com","phone":"+15551234567","password":"secretpw","confirm_password":"secretpw"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = s.do(t, http.MethodPost, "/api/v1/users/login", `{"email":"e1@x.com","password":"secretpw"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	for _, c := range resp.Result().Cookies() {
		if c.Name == "bookstore_session" {
			s.cookie = c
		}
	}
	require.NotNil(t, s.cookie)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health/ready", "").Code)

	resp := srv.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "http_requests_total")
}

func TestSessionRequiredRoutes(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/v1/cart", "/api/v1/orders", "/api/v1/me"} {
		resp := srv.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, resp.Code, path)
	}
}

func TestCartCheckoutScenario(t *testing.T) {
	srv := newTestServer(t)
	genre := dbtest.SeedGenre(t, srv.conn, "Fiction")
	b1 := dbtest.SeedBook(t, srv.conn, genre.ID, "b1", "10.00")
	b2 := dbtest.SeedBook(t, srv.conn, genre.ID, "b2", "5.00")

	srv.registerAndLogin(t)

	resp := srv.do(t, http.MethodPost, "/api/v1/cart", `{"book_id":"`+b1.ID.String()+`","quantity":2}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	resp = srv.do(t, http.MethodPost, "/api/v1/cart", `{"book_id":"`+b2.ID.String()+`","quantity":1}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	cartView := data(t, resp)
	assert.True(t, decimal.RequireFromString(cartView["total"].(string)).Equal(decimal.RequireFromString("25")))

	resp = srv.do(t, http.MethodPut, "/api/v1/cart", `{"shipping_address":"123 Main Street"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	order := data(t, resp)
	assert.True(t, decimal.RequireFromString(order["total_amount"].(string)).Equal(decimal.RequireFromString("25")))
	assert.Equal(t, "pending", order["status"])
	assert.Len(t, order["items"], 2)

	resp = srv.do(t, http.MethodGet, "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, data(t, resp)["items"])

	resp = srv.do(t, http.MethodPut, "/api/v1/cart", `{"shipping_address":"123 Main Street"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = srv.do(t, http.MethodPut, "/api/v1/orders/"+order["id"].(string), `{"status":"delivered"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	srv := newTestServer(t)
	srv.registerAndLogin(t)

	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/v1/me", "").Code)
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, "/api/v1/users/logout", "").Code)
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/v1/me", "").Code)
}

func TestVerificationFlow(t *testing.T) {
	srv := newTestServer(t)
	srv.registerAndLogin(t)

	resp := srv.do(t, http.MethodPost, "/api/v1/auth/verify", `{"code":"123456"}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = srv.do(t, http.MethodPost, "/api/v1/auth/send-code", "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	code := data(t, resp)["code"].(string)

	resp = srv.do(t, http.MethodPost, "/api/v1/auth/verify", `{"code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	me := data(t, srv.do(t, http.MethodGet, "/api/v1/me", ""))
	assert.Equal(t, true, me["is_verified"])
}

func TestLoginRateLimited(t *testing.T) {
	srv := newTestServer(t)
	body := `{"email":"nobody@x.com","password":"whatever1"}`

	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodPost, "/api/v1/users/login", body).Code)
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodPost, "/api/v1/users/login", body).Code)
	resp := srv.do(t, http.MethodPost, "/api/v1/users/login", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("Retry-After"))
}
