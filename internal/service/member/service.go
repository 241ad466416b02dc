package member

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/crewtrack/crewtrack/internal/domain"
	"github.com/crewtrack/crewtrack/internal/repository"
)

// Service manages the member directory scoped to an owning user.
type Service struct {
	members repository.MemberRepository
	logger  *slog.Logger
}

// New constructs a Service.
func New(members repository.MemberRepository, logger *slog.Logger) Service {
	return Service{members: members, logger: logger}
}

// List returns exactly the members owned by the caller.
func (s Service) List(ctx context.Context, callerID string) ([]domain.Member, error) {
	return s.members.ListMembersByUser(ctx, callerID)
}

// CreateInput carries the member creation fields.
type CreateInput struct {
	Name  string
	Email string
	Role  string
}

// Create persists a member owned by the caller. Member emails are not
// required to be unique.
func (s Service) Create(ctx context.Context, callerID string, in CreateInput) (*domain.Member, error) {
	verr := domain.NewValidationError()
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "is required")
	}
	if !domain.ValidEmail(in.Email) {
		verr.Add("email", "must be a valid email address")
	}
	if strings.TrimSpace(in.Role) == "" {
		verr.Add("role", "is required")
	}
	if !verr.Empty() {
		return nil, verr
	}

	member := &domain.Member{
		ID:        uuid.NewString(),
		UserID:    callerID,
		Name:      in.Name,
		Email:     in.Email,
		Role:      in.Role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.members.CreateMember(ctx, member); err != nil {
		return nil, err
	}
	s.logger.Info("member created", "member_id", member.ID, "user_id", callerID)
	return member, nil
}

// ResolveOwned loads a member and verifies the ownership chain. A member
// that does not exist and a member owned by someone else are deliberately
// indistinguishable: both return repository.ErrNotFound.
func (s Service) ResolveOwned(ctx context.Context, callerID, memberID string) (*domain.Member, error) {
	member, err := s.members.GetMemberByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidArgument) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if member.UserID != callerID {
		return nil, repository.ErrNotFound
	}
	return member, nil
}
