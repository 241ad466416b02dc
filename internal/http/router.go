package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crewtrack/crewtrack/internal/service/auth"
	"github.com/crewtrack/crewtrack/internal/service/member"
	"github.com/crewtrack/crewtrack/internal/service/task"
	"github.com/crewtrack/crewtrack/internal/ws"
)

const apiPrefix = "/api/v1"

// Router wires HTTP endpoints to services.
type Router struct {
	mux           *http.ServeMux
	logger        *slog.Logger
	auth          auth.Service
	members       member.Service
	tasks         task.Service
	upgrader      websocket.Upgrader
	limiter       RateLimiter
	allowedOrigin string
	dbHealth      func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitSignup    = 5
	rateLimitLogin     = 12
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, memberSvc member.Service, taskSvc task.Service, limiter RateLimiter, allowedOrigin string, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:     http.NewServeMux(),
		logger:  logger,
		auth:    authSvc,
		members: memberSvc,
		tasks:   taskSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:       limiter,
		allowedOrigin: strings.TrimSpace(allowedOrigin),
		dbHealth:      dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to the underlying mux behind the CORS layer.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.withCORS(r.mux).ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc(apiPrefix+"/auth/signup", r.audit("/auth/signup", r.withRateLimit("/auth/signup", rateLimitSignup, rateWindowDefault, rateLimitKeyIP, r.handleSignup)))
	r.mux.HandleFunc(apiPrefix+"/auth/login", r.audit("/auth/login", r.withRateLimit("/auth/login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc(apiPrefix+"/members", r.audit("/members", r.handleMembers))
	r.mux.HandleFunc(apiPrefix+"/members/", r.audit("/members/*", r.requireAuth(r.handleMemberSubroutes)))
	r.mux.HandleFunc(apiPrefix+"/ws/tasks", r.audit("/ws/tasks", r.handlerAuthRate("/ws/tasks", rateLimitWebsocket, rateWindowRealtime, r.handleTasksWS)))
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Country  string `json:"country"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, tok, err := r.auth.Signup(req.Context(), auth.SignupInput{
		Email:    payload.Email,
		Password: payload.Password,
		Name:     payload.Name,
		Country:  payload.Country,
	})
	if err != nil {
		r.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user, "token": tok})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, tok, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "token": tok})
}

func (r *Router) handleMembers(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.handlerAuthRate("/members", rateLimitUserRead, rateWindowDefault, r.handleMembersList)(w, req)
	case http.MethodPost:
		r.handlerAuthRate("/members", rateLimitUserWrite, rateWindowDefault, r.handleMemberCreate)(w, req)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleMembersList(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.missingAuthContext(w, req)
		return
	}
	members, err := r.members.List(req.Context(), info.UserID)
	if err != nil {
		r.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (r *Router) handleMemberCreate(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.missingAuthContext(w, req)
		return
	}
	var payload struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := r.members.Create(req.Context(), info.UserID, member.CreateInput{
		Name:  payload.Name,
		Email: payload.Email,
		Role:  payload.Role,
	})
	if err != nil {
		r.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleMemberSubroutes applies the per-verb user rate limit before
// dispatching. Reads get the higher read limit; every mutation shares the
// write limit.
func (r *Router) handleMemberSubroutes(w http.ResponseWriter, req *http.Request) {
	limit := rateLimitUserWrite
	if req.Method == http.MethodGet {
		limit = rateLimitUserRead
	}
	r.withRateLimit("/members/*", limit, rateWindowDefault, r.rateLimitKeyUser, r.dispatchMemberSubroutes)(w, req)
}

// dispatchMemberSubroutes routes /members/{memberId}/tasks[/{taskId}].
func (r *Router) dispatchMemberSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, apiPrefix+"/members/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "member id is required")
		return
	}
	memberID := parts[0]
	switch {
	case len(parts) == 2 && parts[1] == "tasks":
		r.handleTasksCollection(w, req, memberID)
	case len(parts) == 3 && parts[1] == "tasks" && parts[2] != "":
		r.handleTaskItem(w, req, memberID, parts[2])
	default:
		r.notFound(w)
	}
}

func (r *Router) handleTasksCollection(w http.ResponseWriter, req *http.Request, memberID string) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.missingAuthContext(w, req)
		return
	}
	switch req.Method {
	case http.MethodGet:
		tasks, err := r.tasks.List(req.Context(), info.UserID, memberID)
		if err != nil {
			r.respondServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
	case http.MethodPost:
		var payload struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Status      string `json:"status"`
			Priority    string `json:"priority"`
			DueDate     string `json:"dueDate"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		created, err := r.tasks.Create(req.Context(), info.UserID, memberID, task.CreateInput{
			Title:       payload.Title,
			Description: payload.Description,
			Status:      payload.Status,
			Priority:    payload.Priority,
			DueDate:     payload.DueDate,
		})
		if err != nil {
			r.respondServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTaskItem(w http.ResponseWriter, req *http.Request, memberID, taskID string) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.missingAuthContext(w, req)
		return
	}
	switch req.Method {
	case http.MethodPut:
		var payload struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
			Status      *string `json:"status"`
			Priority    *string `json:"priority"`
			DueDate     *string `json:"dueDate"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := r.tasks.Update(req.Context(), info.UserID, memberID, taskID, task.UpdateInput{
			Title:       payload.Title,
			Description: payload.Description,
			Status:      payload.Status,
			Priority:    payload.Priority,
			DueDate:     payload.DueDate,
		})
		if err != nil {
			r.respondServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := r.tasks.Delete(req.Context(), info.UserID, memberID, taskID); err != nil {
			r.respondServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTasksWS(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.missingAuthContext(w, req)
		return
	}
	memberID := req.URL.Query().Get("memberId")
	if memberID == "" {
		writeError(w, http.StatusBadRequest, "memberId query parameter required")
		return
	}
	if err := r.tasks.AuthorizeStream(req.Context(), info.UserID, memberID); err != nil {
		r.respondServiceError(w, err)
		return
	}
	hub := r.tasks.Hub()
	if hub == nil {
		writeError(w, http.StatusServiceUnavailable, "event streaming disabled")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	hub.Register(memberID, client)
	go func() {
		defer func() {
			hub.Unregister(memberID, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack is required so the websocket upgrade works through the recorder.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) missingAuthContext(w http.ResponseWriter, req *http.Request) {
	r.logger.Error("auth context missing", "path", req.URL.Path)
	writeError(w, http.StatusInternalServerError, "authorization context missing")
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
