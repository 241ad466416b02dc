package repository

import (
	"context"

	"github.com/crewtrack/crewtrack/internal/domain"
)

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// MemberRepository persists managed team members.
type MemberRepository interface {
	CreateMember(ctx context.Context, member *domain.Member) error
	GetMemberByID(ctx context.Context, memberID string) (*domain.Member, error)
	ListMembersByUser(ctx context.Context, userID string) ([]domain.Member, error)
}

// TaskRepository persists tasks scoped to a member.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	GetTaskByID(ctx context.Context, taskID string) (*domain.Task, error)
	ListTasksByMember(ctx context.Context, memberID string) ([]domain.Task, error)
	UpdateTask(ctx context.Context, task *domain.Task) error
	DeleteTask(ctx context.Context, taskID string) error
}
