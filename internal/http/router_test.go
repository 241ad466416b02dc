package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crewtrack/crewtrack/internal/domain"
	"github.com/crewtrack/crewtrack/internal/repository"
	"github.com/crewtrack/crewtrack/internal/service/auth"
	"github.com/crewtrack/crewtrack/internal/service/member"
	"github.com/crewtrack/crewtrack/internal/service/task"
	"github.com/crewtrack/crewtrack/pkg/config"
)

type memoryStore struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	members map[string]*domain.Member
	tasks   map[string]*domain.Task
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:   make(map[string]*domain.User),
		members: make(map[string]*domain.Member),
		tasks:   make(map[string]*domain.Task),
	}
}

func (s *memoryStore) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repository.ErrConflict
		}
	}
	copy := *user
	s.users[user.ID] = &copy
	return nil
}

func (s *memoryStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			copy := *user
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memoryStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (s *memoryStore) CreateMember(_ context.Context, member *domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *member
	s.members[member.ID] = &copy
	return nil
}

func (s *memoryStore) GetMemberByID(_ context.Context, memberID string) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if member, ok := s.members[memberID]; ok {
		copy := *member
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (s *memoryStore) ListMembersByUser(_ context.Context, userID string) ([]domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Member
	for _, member := range s.members {
		if member.UserID == userID {
			out = append(out, *member)
		}
	}
	return out, nil
}

func (s *memoryStore) CreateTask(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *task
	s.tasks[task.ID] = &copy
	return nil
}

func (s *memoryStore) GetTaskByID(_ context.Context, taskID string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[taskID]; ok {
		copy := *task
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (s *memoryStore) ListTasksByMember(_ context.Context, memberID string) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Task
	for _, task := range s.tasks {
		if task.MemberID == memberID {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (s *memoryStore) UpdateTask(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *task
	s.tasks[task.ID] = &copy
	return nil
}

func (s *memoryStore) DeleteTask(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[taskID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.tasks, taskID)
	return nil
}

type rateLimiterStub struct {
	mu      sync.Mutex
	calls   []rateLimitCall
	allowFn func(key string, limit int, window time.Duration) rateDecision
}

type rateLimitCall struct {
	key    string
	limit  int
	window time.Duration
}

func (rl *rateLimiterStub) Allow(key string, limit int, window time.Duration) rateDecision {
	rl.mu.Lock()
	rl.calls = append(rl.calls, rateLimitCall{key: key, limit: limit, window: window})
	fn := rl.allowFn
	rl.mu.Unlock()
	if fn != nil {
		return fn(key, limit, window)
	}
	return rateDecision{allowed: true, count: 1, windowEnd: time.Now().Add(window)}
}

func (rl *rateLimiterStub) Close() {}

func setupRouter(t *testing.T, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemoryStore()
	cfg := config.APIConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}

	authSvc := auth.New(store, logger, cfg)
	memberSvc := member.New(store, logger)
	taskSvc := task.New(store, memberSvc, nil, logger)

	router := NewRouter(logger, authSvc, memberSvc, taskSvc, limiter, "http://localhost:5173", dbHealth)
	t.Cleanup(router.Close)
	return router
}

func doJSON(t *testing.T, router *Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return payload
}

func signup(t *testing.T, router *Router, email string) string {
	t.Helper()
	rr := doJSON(t, router, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email":    email,
		"password": "secret1",
		"name":     "Sam",
		"country":  "NL",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup returned %d: %s", rr.Code, rr.Body.String())
	}
	payload := decodeBody(t, rr)
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatalf("signup returned no token: %v", payload)
	}
	return token
}

func TestSignupAndLoginFlow(t *testing.T) {
	router := setupRouter(t, &rateLimiterStub{}, nil)

	signup(t, router, "sam@example.com")

	rr := doJSON(t, router, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email":    "sam@example.com",
		"password": "secret1",
		"name":     "Sam",
		"country":  "NL",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate email, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error"] != "Email already in use" {
		t.Fatalf("unexpected conflict body %v", body)
	}

	rr = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "sam@example.com",
		"password": "wrong",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on wrong password, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error"] != "Invalid credentials" {
		t.Fatalf("unexpected login failure body %v", body)
	}

	rr = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "sam@example.com",
		"password": "secret1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on login, got %d: %s", rr.Code, rr.Body.String())
	}
	payload := decodeBody(t, rr)
	if payload["token"] == "" || payload["user"] == nil {
		t.Fatalf("login payload incomplete: %v", payload)
	}
}

func TestSignupValidationReturnsFieldMap(t *testing.T) {
	router := setupRouter(t, &rateLimiterStub{}, nil)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email":    "broken",
		"password": "x",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	payload := decodeBody(t, rr)
	fields, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected field map error payload, got %v", payload)
	}
	if fields["email"] == nil || fields["password"] == nil {
		t.Fatalf("expected email and password flagged, got %v", fields)
	}
}

func TestMembersRequireAuthentication(t *testing.T) {
	router := setupRouter(t, &rateLimiterStub{}, nil)

	for _, header := range []string{"", "Basic abc", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/members", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rr.Code)
		}
		payload := decodeBody(t, rr)
		if payload["error"] != "authentication required" {
			t.Fatalf("header %q: unexpected body %v", header, payload)
		}
	}
}

func TestMemberTaskLifecycle(t *testing.T) {
	router := setupRouter(t, &rateLimiterStub{}, nil)
	token := signup(t, router, "sam@example.com")

	rr := doJSON(t, router, http.MethodPost, "/api/v1/members", token, map[string]string{
		"name":  "Dana",
		"email": "dana@example.com",
		"role":  "designer",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create member returned %d: %s", rr.Code, rr.Body.String())
	}
	memberPayload := decodeBody(t, rr)
	memberID, _ := memberPayload["id"].(string)
	if memberID == "" {
		t.Fatalf("member payload missing id: %v", memberPayload)
	}

	rr = doJSON(t, router, http.MethodGet, "/api/v1/members", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list members returned %d", rr.Code)
	}
	listPayload := decodeBody(t, rr)
	members, ok := listPayload["members"].([]any)
	if !ok || len(members) != 1 {
		t.Fatalf("expected one member, got %v", listPayload)
	}

	rr = doJSON(t, router, http.MethodPost, "/api/v1/members/"+memberID+"/tasks", token, map[string]string{
		"title":       "design landing page",
		"description": "hero section and pricing table",
		"status":      "todo",
		"priority":    "high",
		"dueDate":     "2026-09-15",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create task returned %d: %s", rr.Code, rr.Body.String())
	}
	taskPayload := decodeBody(t, rr)
	taskID, _ := taskPayload["id"].(string)
	if taskID == "" {
		t.Fatalf("task payload missing id: %v", taskPayload)
	}
	if taskPayload["completedAt"] != nil {
		t.Fatalf("new todo task should have null completedAt, got %v", taskPayload["completedAt"])
	}

	rr = doJSON(t, router, http.MethodPut, "/api/v1/members/"+memberID+"/tasks/"+taskID, token, map[string]string{
		"status": "completed",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update task returned %d: %s", rr.Code, rr.Body.String())
	}
	updated := decodeBody(t, rr)
	if updated["completedAt"] == nil {
		t.Fatalf("completed task missing completedAt: %v", updated)
	}
	if updated["title"] != "design landing page" {
		t.Fatalf("partial update clobbered title: %v", updated["title"])
	}

	rr = doJSON(t, router, http.MethodDelete, "/api/v1/members/"+memberID+"/tasks/"+taskID, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete task returned %d", rr.Code)
	}
	deleted := decodeBody(t, rr)
	if deleted["success"] != true {
		t.Fatalf("expected success payload, got %v", deleted)
	}

	rr = doJSON(t, router, http.MethodGet, "/api/v1/members/"+memberID+"/tasks", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list tasks returned %d", rr.Code)
	}
	tasksPayload := decodeBody(t, rr)
	if tasks, ok := tasksPayload["tasks"].([]any); ok && len(tasks) != 0 {
		t.Fatalf("expected empty task list, got %v", tasksPayload)
	}
}

func TestOwnershipIsolationReturnsNotFound(t *testing.T) {
	router := setupRouter(t, &rateLimiterStub{}, nil)
	ownerToken := signup(t, router, "owner@example.com")
	intruderToken := signup(t, router, "intruder@example.com")

	rr := doJSON(t, router, http.MethodPost, "/api/v1/members", ownerToken, map[string]string{
		"name":  "Dana",
		"email": "dana@example.com",
		"role":  "designer",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create member returned %d", rr.Code)
	}
	memberID, _ := decodeBody(t, rr)["id"].(string)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/members/"+memberID+"/tasks", intruderToken, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign member, got %d", rr.Code)
	}
	payload := decodeBody(t, rr)
	if payload["error"] != "not found" {
		t.Fatalf("unexpected error body %v", payload)
	}

	rr = doJSON(t, router, http.MethodPost, "/api/v1/members/"+memberID+"/tasks", intruderToken, map[string]string{
		"title":       "sneaky",
		"description": "should never land",
		"status":      "todo",
		"priority":    "low",
		"dueDate":     "2026-09-15",
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 creating under foreign member, got %d", rr.Code)
	}
}

func TestSignupRateLimited(t *testing.T) {
	limiter := &rateLimiterStub{}
	reset := time.Unix(1_950_000_000, 0)
	limiter.allowFn = func(key string, limit int, window time.Duration) rateDecision {
		return rateDecision{allowed: false, count: limit, windowEnd: reset}
	}
	router := setupRouter(t, limiter, nil)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email":    "sam@example.com",
		"password": "secret1",
		"name":     "Sam",
		"country":  "NL",
	})
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "5" {
		t.Fatalf("unexpected limit header %q", rr.Header().Get("X-RateLimit-Limit"))
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("unexpected remaining header %q", rr.Header().Get("X-RateLimit-Remaining"))
	}
	if rr.Header().Get("X-RateLimit-Reset") != "1950000000" {
		t.Fatalf("unexpected reset header %q", rr.Header().Get("X-RateLimit-Reset"))
	}

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.calls) != 1 {
		t.Fatalf("expected one limiter call, got %d", len(limiter.calls))
	}
	if !strings.HasPrefix(limiter.calls[0].key, "ip:") {
		t.Fatalf("signup should limit by ip, got key %q", limiter.calls[0].key)
	}
}

func TestAuthedRoutesLimitPerUser(t *testing.T) {
	limiter := &rateLimiterStub{}
	router := setupRouter(t, limiter, nil)
	token := signup(t, router, "sam@example.com")

	rr := doJSON(t, router, http.MethodGet, "/api/v1/members", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list members returned %d", rr.Code)
	}

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	var sawUserKey bool
	for _, call := range limiter.calls {
		if strings.HasPrefix(call.key, "user:") {
			sawUserKey = true
		}
	}
	if !sawUserKey {
		t.Fatal("expected a per-user limiter key on authenticated route")
	}
}

func TestTaskRoutesLimitPerVerb(t *testing.T) {
	limiter := &rateLimiterStub{}
	router := setupRouter(t, limiter, nil)
	token := signup(t, router, "sam@example.com")

	limiter.mu.Lock()
	limiter.calls = nil
	limiter.mu.Unlock()

	doJSON(t, router, http.MethodGet, "/api/v1/members/m-1/tasks", token, nil)
	doJSON(t, router, http.MethodPost, "/api/v1/members/m-1/tasks", token, map[string]string{
		"title":       "x",
		"description": "y",
		"status":      "todo",
		"priority":    "low",
		"dueDate":     "2026-09-15",
	})
	doJSON(t, router, http.MethodDelete, "/api/v1/members/m-1/tasks/t-1", token, nil)

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.calls) != 3 {
		t.Fatalf("expected 3 limiter calls, got %d", len(limiter.calls))
	}
	if limiter.calls[0].limit != rateLimitUserRead {
		t.Fatalf("GET tasks limited at %d, want read limit %d", limiter.calls[0].limit, rateLimitUserRead)
	}
	if limiter.calls[1].limit != rateLimitUserWrite {
		t.Fatalf("POST tasks limited at %d, want write limit %d", limiter.calls[1].limit, rateLimitUserWrite)
	}
	if limiter.calls[2].limit != rateLimitUserWrite {
		t.Fatalf("DELETE tasks limited at %d, want write limit %d", limiter.calls[2].limit, rateLimitUserWrite)
	}
	for i, call := range limiter.calls {
		if !strings.HasPrefix(call.key, "user:") {
			t.Fatalf("call %d used key %q, want per-user key", i, call.key)
		}
	}
}

func TestHealthzReportsDatabaseState(t *testing.T) {
	router := setupRouter(t, &rateLimiterStub{}, func(context.Context) error { return nil })

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	payload := decodeBody(t, rr)
	if payload["status"] != "ok" {
		t.Fatalf("unexpected status %v", payload["status"])
	}

	broken := setupRouter(t, &rateLimiterStub{}, func(context.Context) error {
		return errors.New("connection refused")
	})
	rr = httptest.NewRecorder()
	broken.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when database is down, got %d", rr.Code)
	}
	payload = decodeBody(t, rr)
	if payload["status"] != "degraded" {
		t.Fatalf("unexpected status %v", payload["status"])
	}
}

func TestCORSPreflight(t *testing.T) {
	router := setupRouter(t, &rateLimiterStub{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/members", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
	if !strings.Contains(rr.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
		t.Fatalf("expected Authorization in allowed headers")
	}
}

func TestInvalidJSONBodyRejected(t *testing.T) {
	router := setupRouter(t, &rateLimiterStub{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on malformed JSON, got %d", rr.Code)
	}
}

func TestUnknownMemberSubrouteIs404(t *testing.T) {
	router := setupRouter(t, &rateLimiterStub{}, nil)
	token := signup(t, router, "sam@example.com")

	rr := doJSON(t, router, http.MethodGet, "/api/v1/members/m-1/unknown", token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown subroute, got %d", rr.Code)
	}
}
