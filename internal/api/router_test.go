package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/crmadmin/access-core/internal/api/handler"
	"github.com/crmadmin/access-core/internal/core/domain"
	"github.com/crmadmin/access-core/internal/core/service"
	"github.com/crmadmin/access-core/internal/infrastructure/db/redis"
	"github.com/crmadmin/access-core/internal/infrastructure/db/sqlite"
	"github.com/crmadmin/access-core/internal/infrastructure/queue"
)

const routerTestSecret = "router-test-secret-0123456789"

type testEnv struct {
	router *Router
	users  *sqlite.UserRepository
	audit  *sqlite.AuditRepository
	disp   *queue.Dispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.Config{Path: filepath.Join(t.TempDir(), "crm.db"), MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db, 0)
	positions := sqlite.NewPositionRepository(db, 0)
	auditRepo := sqlite.NewAuditRepository(db, 0)

	agentPos := &domain.Position{ID: "pos-agent", Name: "Sales Agent", Level: 10, Permissions: domain.Permissions{
		domain.SectionDeals: {domain.ActionView: true, domain.ActionCreate: true, domain.ActionEdit: true},
	}}
	if err := positions.Upsert(ctx, agentPos); err != nil {
		t.Fatalf("seed position: %v", err)
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	agentPosID := "pos-agent"
	for _, u := range []*domain.User{
		{Email: "admin@x.com", PasswordHash: string(hash), FullName: "Ada Admin", Role: domain.RoleAdmin, IsActive: true},
		{Email: "agent@x.com", PasswordHash: string(hash), FullName: "Al Agent", Role: domain.RoleAgent, PositionID: &agentPosID, IsActive: true},
	} {
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	throttle := redis.NewLoginThrottle(rdb, 3, time.Minute)

	disp := queue.NewDispatcher(2, 64, auditRepo, zerolog.Nop())
	disp.Start()
	t.Cleanup(func() { _ = disp.Close(context.Background()) })

	tokens := service.NewTokenService(routerTestSecret, time.Hour)
	authSvc := service.NewAuthService(users, positions, tokens, throttle, disp, zerolog.Nop())
	registry := prometheus.NewRegistry()

	r := NewRouter(Deps{
		Auth:       authSvc,
		Accounts:   service.NewAccountService(users, zerolog.Nop()),
		Positions:  service.NewPositionService(positions),
		Resolver:   service.NewPermissionResolver(),
		Audit:      disp,
		Health:     map[string]handler.PingFunc{"sqlite": db.PingContext, "redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		Registerer: registry,
		Gatherer:   registry,
		Log:        zerolog.Nop(),
	})

	// A downstream CRUD route mounted behind the gate.
	deals := r.Echo.Group("/deals")
	r.Protect(deals, domain.SectionDeals, domain.ActionDelete, http.MethodDelete, "/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	return &testEnv{router: r, users: users, audit: auditRepo, disp: disp}
}

func (env *testEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := env.do(http.MethodPost, "/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", email, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login %s: no token in %s", email, rec.Body.String())
	}
	return resp.Token
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body %q: %v", rec.Body.String(), err)
	}
	return resp.Error
}

func TestRouter_LoginScenario(t *testing.T) {
	env := newTestEnv(t)

	// Wrong password and unknown account are indistinguishable.
	wrong := env.do(http.MethodPost, "/auth/login", "", `{"email":"admin@x.com","password":"nope"}`)
	unknown := env.do(http.MethodPost, "/auth/login", "", `{"email":"ghost@x.com","password":"nope"}`)
	malformed := env.do(http.MethodPost, "/auth/login", "", `{"email":"admin","password":"nope"}`)
	for _, rec := range []*httptest.ResponseRecorder{wrong, unknown, malformed} {
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if msg := errorBody(t, rec); msg != "invalid credentials" {
			t.Fatalf("unexpected message %q", msg)
		}
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Fatalf("responses differ: %q vs %q", wrong.Body.String(), unknown.Body.String())
	}

	token := env.login(t, "ADMIN@x.com", "s3cret")

	me := env.do(http.MethodGet, "/auth/me", token, "")
	if me.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", me.Code)
	}
	var profile domain.Profile
	_ = json.Unmarshal(me.Body.Bytes(), &profile)
	if profile.Email != "admin@x.com" || profile.Role != domain.RoleAdmin || profile.Position == nil || !profile.Position.IsAdmin {
		t.Fatalf("unexpected profile %+v", profile)
	}

	if rec := env.do(http.MethodGet, "/auth/me", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me without token: expected 401, got %d", rec.Code)
	} else if rec.Header().Get(echo.HeaderWWWAuthenticate) == "" {
		t.Fatalf("expected WWW-Authenticate header")
	}
	if rec := env.do(http.MethodGet, "/auth/me", "garbage", ""); rec.Code != http.StatusUnauthorized || errorBody(t, rec) != "invalid token" {
		t.Fatalf("me with garbage token: got %d %s", rec.Code, rec.Body.String())
	}

	// Deactivation takes effect on the very next request.
	admin, err := env.users.FindByEmail(context.Background(), "admin@x.com")
	if err != nil {
		t.Fatalf("find admin: %v", err)
	}
	admin.IsActive = false
	if err := env.users.Update(context.Background(), admin); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	rec := env.do(http.MethodGet, "/auth/me", token, "")
	if rec.Code != http.StatusUnauthorized || errorBody(t, rec) != "user account is inactive" {
		t.Fatalf("deactivated: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_Authorization(t *testing.T) {
	env := newTestEnv(t)
	agent := env.login(t, "agent@x.com", "s3cret")
	admin := env.login(t, "admin@x.com", "s3cret")

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"agent deletes deal", http.MethodDelete, "/deals/1", agent, "", http.StatusForbidden},
		{"admin deletes deal", http.MethodDelete, "/deals/1", admin, "", http.StatusNoContent},
		{"anonymous deletes deal", http.MethodDelete, "/deals/1", "", "", http.StatusUnauthorized},
		{"agent lists positions", http.MethodGet, "/positions", agent, "", http.StatusForbidden},
		{"admin lists positions", http.MethodGet, "/positions", admin, "", http.StatusOK},
		{"admin gets position", http.MethodGet, "/positions/pos-agent", admin, "", http.StatusOK},
		{"admin gets missing position", http.MethodGet, "/positions/nope", admin, "", http.StatusNotFound},
		{"agent views settings", http.MethodGet, "/account/settings", agent, "", http.StatusOK},
		{"agent edits settings", http.MethodPut, "/account/settings", agent, `{"full_name":"Al B. Agent"}`, http.StatusOK},
		{"agent permissions", http.MethodGet, "/auth/permissions", agent, "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(tc.method, tc.path, tc.token, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}

	rec := env.do(http.MethodDelete, "/deals/1", agent, "")
	if msg := errorBody(t, rec); msg != "access forbidden" {
		t.Fatalf("unexpected forbidden message %q", msg)
	}

	// Access denials and logins reach the audit trail.
	if err := env.disp.Close(context.Background()); err != nil {
		t.Fatalf("close dispatcher: %v", err)
	}
	agentUser, _ := env.users.FindByEmail(context.Background(), "agent@x.com")
	events, err := env.audit.ListByUser(context.Background(), agentUser.ID, 20)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	var denied, logins int
	for _, e := range events {
		switch e.Type {
		case domain.EventAccessDenied:
			denied++
		case domain.EventLoginSuccess:
			logins++
		}
	}
	if denied != 3 || logins != 1 {
		t.Fatalf("expected 3 denials and 1 login, got %d and %d", denied, logins)
	}
}

func TestRouter_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "agent@x.com", "s3cret")

	rec := env.do(http.MethodPut, "/account/settings", token, `{"new_password":"a-new-password"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing current password: expected 400, got %d", rec.Code)
	}

	// 40 characters pass the length tag but exceed bcrypt's 72-byte input.
	rec = env.do(http.MethodPut, "/account/settings", token, `{"current_password":"s3cret","new_password":"`+strings.Repeat("é", 40)+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("multibyte password: expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPut, "/account/settings", token, `{"current_password":"s3cret","new_password":"a-new-password"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("change password: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec := env.do(http.MethodPost, "/auth/login", "", `{"email":"agent@x.com","password":"s3cret"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("old password: expected 401, got %d", rec.Code)
	}
	env.login(t, "agent@x.com", "a-new-password")
}

func TestRouter_LoginThrottle(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		if rec := env.do(http.MethodPost, "/auth/login", "", `{"email":"agent@x.com","password":"bad"}`); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, rec.Code)
		}
	}
	rec := env.do(http.MethodPost, "/auth/login", "", `{"email":"agent@x.com","password":"s3cret"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	// Other accounts are unaffected.
	env.login(t, "admin@x.com", "s3cret")
}

func TestRouter_LoginThrottleConcurrent(t *testing.T) {
	env := newTestEnv(t)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[int]int{}
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := env.do(http.MethodPost, "/auth/login", "", `{"email":"agent@x.com","password":"bad"}`)
			mu.Lock()
			codes[rec.Code]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if codes[http.StatusUnauthorized] != 3 || codes[http.StatusTooManyRequests] != 17 {
		t.Fatalf("expected 3x401 and 17x429, got %v", codes)
	}
}

func TestRouter_Operational(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "admin@x.com", "s3cret")

	if rec := env.do(http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec := env.do(http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "crm_http_requests_total") {
		t.Fatalf("expected http metrics in output")
	}

	if rec := env.do(http.MethodGet, "/swagger/index.html", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("swagger should be disabled by default, got %d", rec.Code)
	}
}
