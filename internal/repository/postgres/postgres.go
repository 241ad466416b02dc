package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewtrack/crewtrack/internal/domain"
	"github.com/crewtrack/crewtrack/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository   = (*Repository)(nil)
	_ repository.MemberRepository = (*Repository)(nil)
	_ repository.TaskRepository   = (*Repository)(nil)
)

// translateError maps driver-level failures onto repository sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return repository.ErrConflict
		case "23503":
			return repository.ErrNotFound
		case "22P02", "23514":
			return repository.ErrInvalidArgument
		}
	}
	return err
}

// CreateUser inserts an account.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, email, name, country, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Email, user.Name, user.Country, user.Role,
		user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	return translateError(err)
}

// GetUserByEmail fetches an account by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, email, name, country, role, password_hash, created_at, updated_at
		FROM users WHERE email = $1`
	row := r.pool.QueryRow(ctx, query, email)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Country, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}

// GetUserByID retrieves an account by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, email, name, country, role, password_hash, created_at, updated_at
		FROM users WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Country, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}

// CreateMember inserts a member owned by a user.
func (r *Repository) CreateMember(ctx context.Context, member *domain.Member) error {
	const query = `INSERT INTO members (id, user_id, name, email, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query,
		member.ID, member.UserID, member.Name, member.Email, member.Role, member.CreatedAt,
	)
	return translateError(err)
}

// GetMemberByID fetches a member regardless of owner; ownership is the
// service layer's concern so missing and foreign members collapse into the
// same outcome there.
func (r *Repository) GetMemberByID(ctx context.Context, memberID string) (*domain.Member, error) {
	const query = `SELECT id, user_id, name, email, role, created_at FROM members WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, memberID)
	var m domain.Member
	if err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.Email, &m.Role, &m.CreatedAt); err != nil {
		return nil, translateError(err)
	}
	return &m, nil
}

// ListMembersByUser returns the members owned by a user.
func (r *Repository) ListMembersByUser(ctx context.Context, userID string) ([]domain.Member, error) {
	const query = `SELECT id, user_id, name, email, role, created_at
		FROM members WHERE user_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	members := make([]domain.Member, 0)
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.Email, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// CreateTask inserts a task under a member.
func (r *Repository) CreateTask(ctx context.Context, task *domain.Task) error {
	const query = `INSERT INTO tasks (id, member_id, title, description, status, priority, due_date, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query,
		task.ID, task.MemberID, task.Title, task.Description, task.Status,
		task.Priority, task.DueDate, task.CreatedAt, task.CompletedAt,
	)
	return translateError(err)
}

// GetTaskByID fetches a task by identifier.
func (r *Repository) GetTaskByID(ctx context.Context, taskID string) (*domain.Task, error) {
	const query = `SELECT id, member_id, title, description, status, priority, due_date, created_at, completed_at
		FROM tasks WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, taskID)
	var t domain.Task
	if err := row.Scan(&t.ID, &t.MemberID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate, &t.CreatedAt, &t.CompletedAt); err != nil {
		return nil, translateError(err)
	}
	return &t, nil
}

// ListTasksByMember returns every task grouped under the member.
func (r *Repository) ListTasksByMember(ctx context.Context, memberID string) ([]domain.Task, error) {
	const query = `SELECT id, member_id, title, description, status, priority, due_date, created_at, completed_at
		FROM tasks WHERE member_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.MemberID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate, &t.CreatedAt, &t.CompletedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask persists the full task row. The service layer has already
// merged partial fields into the loaded record, so a plain row write keeps
// per-row atomicity as the only concurrency guarantee (last write wins).
func (r *Repository) UpdateTask(ctx context.Context, task *domain.Task) error {
	const query = `UPDATE tasks
		SET title = $2,
			description = $3,
			status = $4,
			priority = $5,
			due_date = $6,
			completed_at = $7
		WHERE id = $1`
	cmdTag, err := r.pool.Exec(ctx, query,
		task.ID, task.Title, task.Description, task.Status,
		task.Priority, task.DueDate, task.CompletedAt,
	)
	if err != nil {
		return translateError(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteTask removes a task.
func (r *Repository) DeleteTask(ctx context.Context, taskID string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	cmdTag, err := r.pool.Exec(ctx, query, taskID)
	if err != nil {
		return translateError(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
