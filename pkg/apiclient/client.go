package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client provides typed access to the crewtrack API for interactive tools.
// It keeps a local mirror of fetched members and tasks so callers can render
// cached state while a refresh is in flight; every successful list call and
// every mutation replaces the affected slice wholesale.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.RWMutex
	members []Member
	tasks   map[string][]Task
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:3001"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/") + "/api/v1",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tasks:      make(map[string][]Task),
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e APIError) Error() string {
	if len(e.Fields) > 0 {
		pairs := make([]string, 0, len(e.Fields))
		for field, msg := range e.Fields {
			pairs = append(pairs, field+": "+msg)
		}
		return fmt.Sprintf("api request failed (%d): %s", e.Status, strings.Join(pairs, "; "))
	}
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return extractError(resp.StatusCode, resp.Body)
	}

	if v == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractError handles both error shapes the API emits: a plain message and
// a per-field validation map.
func extractError(status int, body io.Reader) error {
	apiErr := APIError{Status: status}
	if body == nil {
		return apiErr
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return apiErr
	}
	var plain struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &plain); err == nil && plain.Error != "" {
		apiErr.Message = strings.TrimSpace(plain.Error)
		return apiErr
	}
	var fielded struct {
		Error map[string]string `json:"error"`
	}
	if err := json.Unmarshal(data, &fielded); err == nil && len(fielded.Error) > 0 {
		apiErr.Fields = fielded.Error
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}

// User reflects API account payloads.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Member reflects API member payloads.
type Member struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task reflects API task payloads.
type Task struct {
	ID          string     `json:"id"`
	MemberID    string     `json:"memberId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     time.Time  `json:"dueDate"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// AuthResponse captures the payload emitted by signup and login.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// SignupInput carries registration fields.
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Country  string `json:"country"`
}

// Signup registers an account and returns its first token.
func (c *Client) Signup(ctx context.Context, input SignupInput) (AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup", input, "", &resp); err != nil {
		return AuthResponse{}, err
	}
	return resp, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, "", &resp); err != nil {
		return AuthResponse{}, err
	}
	return resp, nil
}

// ListMembers fetches the caller's members and refreshes the local mirror.
func (c *Client) ListMembers(ctx context.Context, token string) ([]Member, error) {
	var resp struct {
		Members []Member `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, "/members", nil, token, &resp); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.members = resp.Members
	c.mu.Unlock()
	return resp.Members, nil
}

// CreateMemberInput carries member creation fields.
type CreateMemberInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// CreateMember creates a member and appends it to the mirror.
func (c *Client) CreateMember(ctx context.Context, token string, input CreateMemberInput) (Member, error) {
	var created Member
	if err := c.do(ctx, http.MethodPost, "/members", input, token, &created); err != nil {
		return Member{}, err
	}
	c.mu.Lock()
	c.members = append(c.members, created)
	c.mu.Unlock()
	return created, nil
}

// ListTasks fetches a member's tasks and refreshes the local mirror.
func (c *Client) ListTasks(ctx context.Context, token, memberID string) ([]Task, error) {
	path := fmt.Sprintf("/members/%s/tasks", url.PathEscape(memberID))
	var resp struct {
		Tasks []Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, token, &resp); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.tasks[memberID] = resp.Tasks
	c.mu.Unlock()
	return resp.Tasks, nil
}

// CreateTaskInput carries task creation fields. All fields are required by
// the API.
type CreateTaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
}

// CreateTask creates a task under a member and updates the mirror.
func (c *Client) CreateTask(ctx context.Context, token, memberID string, input CreateTaskInput) (Task, error) {
	path := fmt.Sprintf("/members/%s/tasks", url.PathEscape(memberID))
	var created Task
	if err := c.do(ctx, http.MethodPost, path, input, token, &created); err != nil {
		return Task{}, err
	}
	c.mu.Lock()
	c.tasks[memberID] = append(c.tasks[memberID], created)
	c.mu.Unlock()
	return created, nil
}

// UpdateTaskInput carries partial task fields. Nil pointers are omitted from
// the request so the server leaves those fields untouched.
type UpdateTaskInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
}

// UpdateTask applies a partial update and replaces the cached entry.
func (c *Client) UpdateTask(ctx context.Context, token, memberID, taskID string, input UpdateTaskInput) (Task, error) {
	path := fmt.Sprintf("/members/%s/tasks/%s", url.PathEscape(memberID), url.PathEscape(taskID))
	var updated Task
	if err := c.do(ctx, http.MethodPut, path, input, token, &updated); err != nil {
		return Task{}, err
	}
	c.mu.Lock()
	cached := c.tasks[memberID]
	for i := range cached {
		if cached[i].ID == updated.ID {
			cached[i] = updated
			break
		}
	}
	c.mu.Unlock()
	return updated, nil
}

// DeleteTask removes a task and drops it from the mirror.
func (c *Client) DeleteTask(ctx context.Context, token, memberID, taskID string) error {
	path := fmt.Sprintf("/members/%s/tasks/%s", url.PathEscape(memberID), url.PathEscape(taskID))
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodDelete, path, nil, token, &resp); err != nil {
		return err
	}
	c.mu.Lock()
	cached := c.tasks[memberID]
	filtered := cached[:0]
	for _, t := range cached {
		if t.ID != taskID {
			filtered = append(filtered, t)
		}
	}
	c.tasks[memberID] = filtered
	c.mu.Unlock()
	return nil
}

// CachedMembers returns the last fetched member list.
func (c *Client) CachedMembers() []Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Member, len(c.members))
	copy(out, c.members)
	return out
}

// CachedTasks returns the last fetched task list for a member.
func (c *Client) CachedTasks(memberID string) []Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached := c.tasks[memberID]
	out := make([]Task, len(cached))
	copy(out, cached)
	return out
}
