package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/authgate/internal/model"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("username or email already exists")
)

type UserRepository interface {
	// WithDB returns a copy bound to db, typically a *sqlx.Tx.
	WithDB(db sqlx.ExtContext) UserRepository
	Create(ctx context.Context, user *model.User) error
	ByID(ctx context.Context, id string) (*model.User, error)
	ByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateStatus(ctx context.Context, id string, status model.UserStatus) error
}

type userRepository struct {
	db sqlx.ExtContext
}

func NewUserRepository(db sqlx.ExtContext) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithDB(db sqlx.ExtContext) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Status == 0 {
		user.Status = model.UserStatusActive
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Status,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (r *userRepository) ByID(ctx context.Context, id string) (*model.User, error) {
	return r.get(ctx, `SELECT * FROM users WHERE id = $1`, id)
}

// ByUsernameOrEmail matches the username first, so a username that looks
// like someone else's email still resolves to its own account.
func (r *userRepository) ByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	user, err := r.get(ctx, `SELECT * FROM users WHERE username = $1`, identifier)
	if !errors.Is(err, ErrUserNotFound) {
		return user, err
	}
	return r.get(ctx, `SELECT * FROM users WHERE email = $1`, identifier)
}

func (r *userRepository) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.get(ctx, `SELECT * FROM users WHERE email = $1`, email)
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
}

func (r *userRepository) UpdateStatus(ctx context.Context, id string, status model.UserStatus) error {
	return r.exec(ctx, `UPDATE users SET status = $1 WHERE id = $2`, status, id)
}

func (r *userRepository) get(ctx context.Context, query string, args ...any) (*model.User, error) {
	user := &model.User{}
	err := sqlx.GetContext(ctx, r.db, user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}
