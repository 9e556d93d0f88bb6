package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rs/zerolog"

	"github.com/listkeeper/listkeeper/auth"
	"github.com/listkeeper/listkeeper/internal/config"
	"github.com/listkeeper/listkeeper/internal/metrics"
	itemsfake "github.com/listkeeper/listkeeper/items/repofake"
	"github.com/listkeeper/listkeeper/kvstore"
	"github.com/listkeeper/listkeeper/kvstore/kvfake"
	"github.com/listkeeper/listkeeper/ratelimit"
	"github.com/listkeeper/listkeeper/server"
	"github.com/listkeeper/listkeeper/sessions"
	"github.com/listkeeper/listkeeper/token"
	"github.com/listkeeper/listkeeper/users"
	usersfake "github.com/listkeeper/listkeeper/users/repofake"
)

type serverFixture struct {
	server *server.Server
	kv     *kvfake.FakeKV
}

type fakeChecker struct{ err error }

func (f fakeChecker) Ping(context.Context) error { return f.err }

func setupServerFixture(t *testing.T, health map[string]server.HealthChecker) *serverFixture {
	t.Helper()

	userRepo := usersfake.NewFakeUserRepo()
	itemRepo := itemsfake.NewFakeItemRepo()

	fakeKV := kvfake.NewFakeKV(kvfake.WithMinTTL(60 * time.Second))
	adapter, err := kvstore.NewAdapter(fakeKV, 60*time.Second, 5*time.Second)
	require.NoError(t, err)
	sessionStore, err := sessions.NewStore(adapter)
	require.NoError(t, err)

	tokens, err := token.NewService("test-signing-secret")
	require.NoError(t, err)

	authService, err := auth.NewService(
		auth.Repos{Users: userRepo, Sessions: sessionStore},
		users.NewHasher(),
		tokens,
		15*time.Minute,
		24*time.Hour,
	)
	require.NoError(t, err)

	limiter, err := ratelimit.NewLimiter(adapter,
		ratelimit.WithRule(server.ActionAuth, 5, time.Minute),
		ratelimit.WithRule(server.ActionRegistration, 100, time.Minute),
	)
	require.NoError(t, err)

	if health == nil {
		health = map[string]server.HealthChecker{"kv": fakeChecker{}}
	}

	srv, err := server.New(config.New(), server.Deps{
		Auth:    authService,
		Users:   userRepo,
		Items:   itemRepo,
		Limiter: limiter,
		Metrics: metrics.NewCollector(),
		Health:  health,
	}, zerolog.Nop())
	require.NoError(t, err)

	return &serverFixture{server: srv, kv: fakeKV}
}

type envelope struct {
	Success           bool            `json:"success"`
	Data              json.RawMessage `json:"data"`
	Error             string          `json:"error"`
	RetryAfterSeconds int             `json:"retry_after_seconds"`
}

func (f *serverFixture) do(t *testing.T, method, path, bearer string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func (f *serverFixture) register(t *testing.T, email, password string) (bearer string, userID string) {
	t.Helper()

	rec, env := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":        email,
		"display_name": "Test User",
		"password":     password,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var result struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	return result.Token, result.User.ID
}

func TestRegisterThenMe(t *testing.T) {
	f := setupServerFixture(t, nil)

	tok, _ := f.register(t, "alice@example.com", "Str0ngPass")

	rec, env := f.do(t, http.MethodGet, "/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var me struct {
		User struct {
			Email        string `json:"email"`
			PasswordHash string `json:"password_hash"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	require.Equal(t, "alice@example.com", me.User.Email)
	require.Empty(t, me.User.PasswordHash, "password hash must never be serialized")
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	f := setupServerFixture(t, nil)

	f.register(t, "alice@example.com", "Str0ngPass")

	rec, env := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":        "alice@example.com",
		"display_name": "Second Alice",
		"password":     "Str0ngPass",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.False(t, env.Success)
	require.Equal(t, "email already registered", env.Error)
}

func TestRegisterValidationError(t *testing.T) {
	f := setupServerFixture(t, nil)

	rec, env := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":        "alice@example.com",
		"display_name": "Alice",
		"password":     "weak",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, env.Success)
	require.NotEmpty(t, env.Error)
}

func TestLoginRateLimit(t *testing.T) {
	f := setupServerFixture(t, nil)
	f.register(t, "alice@example.com", "Str0ngPass")

	attempt := func(forwardedFor string) (*httptest.ResponseRecorder, envelope) {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(map[string]string{
			"email":    "alice@example.com",
			"password": "WrongPass1",
		}))
		req := httptest.NewRequest(http.MethodPost, "/auth/login", &buf)
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)

		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		return rec, env
	}

	for i := 0; i < 5; i++ {
		rec, env := attempt("203.0.113.9")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
		require.Equal(t, "invalid credentials", env.Error)
	}

	rec, env := attempt("203.0.113.9")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.False(t, env.Success)
	require.Equal(t, "rate limited", env.Error)
	require.Greater(t, env.RetryAfterSeconds, 0)

	// A different client address is not affected.
	rec, _ = attempt("198.51.100.7")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	f := setupServerFixture(t, nil)
	tok, _ := f.register(t, "alice@example.com", "Str0ngPass")

	rec, env := f.do(t, http.MethodPost, "/auth/logout", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	rec, env = f.do(t, http.MethodGet, "/auth/me", tok, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "unauthenticated", env.Error)
}

func TestRefreshSupersedesToken(t *testing.T) {
	f := setupServerFixture(t, nil)
	tok, _ := f.register(t, "alice@example.com", "Str0ngPass")

	rec, env := f.do(t, http.MethodPost, "/auth/refresh", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotEqual(t, tok, result.Token)

	rec, _ = f.do(t, http.MethodGet, "/auth/me", tok, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/auth/me", result.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	f := setupServerFixture(t, nil)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/auth/me"},
		{http.MethodPost, "/auth/logout"},
		{http.MethodPost, "/auth/refresh"},
		{http.MethodGet, "/items"},
		{http.MethodPost, "/items"},
		{http.MethodDelete, "/items/some-id"},
	}
	for _, p := range paths {
		rec, env := f.do(t, p.method, p.path, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", p.method, p.path)
		require.Equal(t, "unauthenticated", env.Error)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	f := setupServerFixture(t, nil)
	tok, _ := f.register(t, "alice@example.com", "Str0ngPass")

	tampered := tok + "x"
	rec, env := f.do(t, http.MethodGet, "/auth/me", tampered, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "unauthenticated", env.Error)
}

func TestSessionStoreOutageReturns503(t *testing.T) {
	f := setupServerFixture(t, nil)
	tok, _ := f.register(t, "alice@example.com", "Str0ngPass")

	f.kv.FailNextGets(2) // one read plus its single retry
	rec, env := f.do(t, http.MethodGet, "/auth/me", tok, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "service temporarily unavailable", env.Error)
}

func TestItemsLifecycle(t *testing.T) {
	f := setupServerFixture(t, nil)
	tok, _ := f.register(t, "alice@example.com", "Str0ngPass")

	rec, env := f.do(t, http.MethodPost, "/items", tok, map[string]string{"title": "buy milk"})
	require.Equal(t, http.StatusOK, rec.Code)

	var created struct {
		Item struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"item"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Equal(t, "buy milk", created.Item.Title)
	require.NotEmpty(t, created.Item.ID)

	rec, env = f.do(t, http.MethodGet, "/items", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed.Items, 1)
	require.Equal(t, created.Item.ID, listed.Items[0].ID)

	rec, _ = f.do(t, http.MethodDelete, "/items/"+created.Item.ID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(t, http.MethodGet, "/items", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Empty(t, listed.Items)
}

func TestDeleteOtherUsersItem(t *testing.T) {
	f := setupServerFixture(t, nil)
	aliceTok, _ := f.register(t, "alice@example.com", "Str0ngPass")
	bobTok, _ := f.register(t, "bob@example.com", "Str0ngPass")

	_, env := f.do(t, http.MethodPost, "/items", aliceTok, map[string]string{"title": "private"})
	var created struct {
		Item struct {
			ID string `json:"id"`
		} `json:"item"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	// Bob cannot tell whether the item exists at all.
	rec, env := f.do(t, http.MethodDelete, "/items/"+created.Item.ID, bobTok, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not found", env.Error)

	rec, _ = f.do(t, http.MethodGet, "/items", aliceTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	f := setupServerFixture(t, nil)

	rec, env := f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
}

func TestHealthzFailingDependency(t *testing.T) {
	f := setupServerFixture(t, map[string]server.HealthChecker{
		"kv":  fakeChecker{},
		"sql": fakeChecker{err: fmt.Errorf("connection refused")},
	})

	rec, env := f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.False(t, env.Success)
}

func TestMetricsEndpoint(t *testing.T) {
	f := setupServerFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestFailedLoginRecordsBadCredentialsOutcome(t *testing.T) {
	f := setupServerFixture(t, nil)
	f.register(t, "alice@example.com", "Str0ngPass")

	rec, _ := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "WrongPass1",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	f.server.ServeHTTP(mrec, req)
	require.Contains(t, mrec.Body.String(), `outcome="bad_credentials"`)
}
