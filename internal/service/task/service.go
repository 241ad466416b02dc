package task

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/crewtrack/crewtrack/internal/domain"
	"github.com/crewtrack/crewtrack/internal/repository"
	"github.com/crewtrack/crewtrack/internal/ws"
)

// OwnershipResolver verifies the user → member link before any task access.
// member.Service satisfies it.
type OwnershipResolver interface {
	ResolveOwned(ctx context.Context, callerID, memberID string) (*domain.Member, error)
}

// Service implements the task workflow: CRUD scoped to an owned member plus
// the status/completedAt coupling.
type Service struct {
	tasks   repository.TaskRepository
	members OwnershipResolver
	hub     *ws.Hub
	logger  *slog.Logger
	now     func() time.Time
}

// New constructs a Service. hub may be nil when event streaming is disabled.
func New(tasks repository.TaskRepository, members OwnershipResolver, hub *ws.Hub, logger *slog.Logger) Service {
	return Service{tasks: tasks, members: members, hub: hub, logger: logger, now: time.Now}
}

// Event types emitted on the member stream.
const (
	EventTaskCreated = "task.created"
	EventTaskUpdated = "task.updated"
	EventTaskDeleted = "task.deleted"
)

// List returns all tasks of a member after verifying the ownership chain.
func (s Service) List(ctx context.Context, callerID, memberID string) ([]domain.Task, error) {
	if _, err := s.members.ResolveOwned(ctx, callerID, memberID); err != nil {
		return nil, err
	}
	return s.tasks.ListTasksByMember(ctx, memberID)
}

// CreateInput carries the task creation fields. DueDate is the raw request
// string; parsing failures are client errors.
type CreateInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     string
}

// Create persists a task under an owned member. Every field is required on
// creation; only updates may omit fields. The completion timestamp is
// derived from the requested status exactly as on update.
func (s Service) Create(ctx context.Context, callerID, memberID string, in CreateInput) (*domain.Task, error) {
	if _, err := s.members.ResolveOwned(ctx, callerID, memberID); err != nil {
		return nil, err
	}

	verr := domain.NewValidationError()
	if strings.TrimSpace(in.Title) == "" {
		verr.Add("title", "is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		verr.Add("description", "is required")
	}
	if !domain.ValidStatus(in.Status) {
		verr.Add("status", "must be one of todo, in-progress, review, completed")
	}
	if !domain.ValidPriority(in.Priority) {
		verr.Add("priority", "must be one of low, medium, high, urgent")
	}
	due, err := parseDueDate(in.DueDate)
	if err != nil {
		verr.Add("dueDate", "must be a valid date")
	}
	if !verr.Empty() {
		return nil, verr
	}

	now := s.now().UTC()
	task := &domain.Task{
		ID:          uuid.NewString(),
		MemberID:    memberID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     due,
		CreatedAt:   now,
		CompletedAt: domain.DeriveCompletedAt(in.Status, nil, now),
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Info("task created", "task_id", task.ID, "member_id", memberID)
	s.publish(EventTaskCreated, task)
	return task, nil
}

// UpdateInput carries partial task fields. A nil pointer means the field was
// absent from the request and is left untouched; a present field is applied
// as given, so an explicit empty string overwrites title or description.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *string
}

// Update applies the present fields to a task after verifying both links of
// the ownership chain. An update carrying no recognized fields is a no-op
// and returns the task unchanged.
func (s Service) Update(ctx context.Context, callerID, memberID, taskID string, in UpdateInput) (*domain.Task, error) {
	task, err := s.resolveTask(ctx, callerID, memberID, taskID)
	if err != nil {
		return nil, err
	}

	verr := domain.NewValidationError()
	if in.Status != nil && !domain.ValidStatus(*in.Status) {
		verr.Add("status", "must be one of todo, in-progress, review, completed")
	}
	if in.Priority != nil && !domain.ValidPriority(*in.Priority) {
		verr.Add("priority", "must be one of low, medium, high, urgent")
	}
	var due time.Time
	if in.DueDate != nil {
		due, err = parseDueDate(*in.DueDate)
		if err != nil {
			verr.Add("dueDate", "must be a valid date")
		}
	}
	if !verr.Empty() {
		return nil, verr
	}

	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Status != nil {
		task.Status = *in.Status
		task.CompletedAt = domain.DeriveCompletedAt(*in.Status, task.CompletedAt, s.now())
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if in.DueDate != nil {
		task.DueDate = due
	}

	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Info("task updated", "task_id", task.ID, "member_id", memberID)
	s.publish(EventTaskUpdated, task)
	return task, nil
}

// Delete removes a task after verifying the ownership chain.
func (s Service) Delete(ctx context.Context, callerID, memberID, taskID string) error {
	task, err := s.resolveTask(ctx, callerID, memberID, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.DeleteTask(ctx, task.ID); err != nil {
		return err
	}
	s.logger.Info("task deleted", "task_id", task.ID, "member_id", memberID)
	s.publish(EventTaskDeleted, task)
	return nil
}

// AuthorizeStream verifies the caller may subscribe to a member's events.
func (s Service) AuthorizeStream(ctx context.Context, callerID, memberID string) error {
	_, err := s.members.ResolveOwned(ctx, callerID, memberID)
	return err
}

// Hub exposes the event hub for the websocket handler.
func (s Service) Hub() *ws.Hub {
	return s.hub
}

// resolveTask walks the full chain: member must belong to the caller and the
// task must belong to the member. Any break reports ErrNotFound.
func (s Service) resolveTask(ctx context.Context, callerID, memberID, taskID string) (*domain.Task, error) {
	if _, err := s.members.ResolveOwned(ctx, callerID, memberID); err != nil {
		return nil, err
	}
	task, err := s.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidArgument) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if task.MemberID != memberID {
		return nil, repository.ErrNotFound
	}
	return task, nil
}

func (s Service) publish(eventType string, task *domain.Task) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"type": eventType,
		"task": task,
	})
	if err != nil {
		s.logger.Warn("failed to marshal task event", "error", err)
		return
	}
	s.hub.Broadcast(task.MemberID, payload)
}

// parseDueDate accepts RFC 3339 timestamps and bare calendar dates.
func parseDueDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, errors.New("empty due date")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
