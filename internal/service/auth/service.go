package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/crewtrack/crewtrack/internal/domain"
	"github.com/crewtrack/crewtrack/internal/repository"
	"github.com/crewtrack/crewtrack/pkg/config"
	"github.com/crewtrack/crewtrack/pkg/crypto"
	"github.com/crewtrack/crewtrack/pkg/token"
)

// Service handles signup, login and bearer token verification.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

var (
	// ErrEmailInUse indicates a signup attempt with an already registered email.
	ErrEmailInUse = errors.New("email already in use")
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// login failures do not reveal which part was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const minPasswordLength = 6

// SignupInput carries the signup request fields.
type SignupInput struct {
	Email    string
	Password string
	Name     string
	Country  string
}

// Signup registers a new account and issues its first token.
func (s Service) Signup(ctx context.Context, in SignupInput) (*domain.User, string, error) {
	verr := domain.NewValidationError()
	if !domain.ValidEmail(in.Email) {
		verr.Add("email", "must be a valid email address")
	}
	if len(in.Password) < minPasswordLength {
		verr.Add("password", "must be at least 6 characters")
	}
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "is required")
	}
	if strings.TrimSpace(in.Country) == "" {
		verr.Add("country", "is required")
	}
	if !verr.Empty() {
		return nil, "", verr
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}
	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         in.Name,
		Country:      in.Country,
		Role:         token.RoleUser,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, "", ErrEmailInUse
		}
		return nil, "", err
	}
	signed, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, signed, nil
}

// Login authenticates an account and returns a fresh token.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	verr := domain.NewValidationError()
	if !domain.ValidEmail(email) {
		verr.Add("email", "must be a valid email address")
	}
	if password == "" {
		verr.Add("password", "is required")
	}
	if !verr.Empty() {
		return nil, "", verr
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	signed, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, signed, nil
}

// Authorize validates a bearer token and resolves the account it names.
func (s Service) Authorize(ctx context.Context, raw string) (*domain.User, *token.Claims, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil, errors.New("token required")
	}
	claims, err := token.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

func (s Service) issueToken(user *domain.User) (string, error) {
	return token.Generate(user.ID, user.Role, s.cfg.JWTSecret, s.cfg.TokenTTL)
}
