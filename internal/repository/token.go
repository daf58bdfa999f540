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
	ErrTokenNotFound  = errors.New("token not found")
	ErrTokenNotActive = errors.New("token is not active")
)

type TokenRepository interface {
	// WithDB returns a copy bound to db, typically a *sqlx.Tx.
	WithDB(db sqlx.ExtContext) TokenRepository
	Create(ctx context.Context, token *model.Token) error
	ByToken(ctx context.Context, token string) (*model.Token, error)
	Transition(ctx context.Context, token string, to model.TokenStatus) error
	TransitionByUser(ctx context.Context, userID string, typ model.TokenType, to model.TokenStatus) (int64, error)
	CleanupExpired(ctx context.Context, olderThan time.Time) (int64, error)
}

type tokenRepository struct {
	db sqlx.ExtContext
}

func NewTokenRepository(db sqlx.ExtContext) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) WithDB(db sqlx.ExtContext) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *model.Token) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	if token.Status == 0 {
		token.Status = model.TokenStatusActive
	}

	query := `
		INSERT INTO tokens (id, user_id, type, token, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.Type,
		token.Token,
		token.Status,
		token.ExpiresAt.UTC(),
		token.CreatedAt.UTC(),
	)
	return err
}

// ByToken looks a token up by exact string match regardless of status.
func (r *tokenRepository) ByToken(ctx context.Context, token string) (*model.Token, error) {
	var t model.Token
	err := sqlx.GetContext(ctx, r.db, &t, `SELECT * FROM tokens WHERE token = $1`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Transition moves an active token to the given status. The status check
// and the write are one statement, so of two concurrent callers only one
// sees the row; the other gets ErrTokenNotActive.
func (r *tokenRepository) Transition(ctx context.Context, token string, to model.TokenStatus) error {
	query := `UPDATE tokens SET status = $1 WHERE token = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, to, token, model.TokenStatusActive)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTokenNotActive
	}
	return nil
}

// TransitionByUser moves every active token of a user and type to the
// given status and returns how many rows changed.
func (r *tokenRepository) TransitionByUser(ctx context.Context, userID string, typ model.TokenType, to model.TokenStatus) (int64, error) {
	query := `UPDATE tokens SET status = $1 WHERE user_id = $2 AND type = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, to, userID, typ, model.TokenStatusActive)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CleanupExpired removes tokens that expired before the cutoff. Tokens are
// kept after use or expiry as an audit trail until this runs.
func (r *tokenRepository) CleanupExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM tokens WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, olderThan.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
