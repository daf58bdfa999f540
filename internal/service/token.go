package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/samber/oops"
	"github.com/templui/authgate/internal/model"
	"github.com/templui/authgate/internal/repository"
)

// TokenConfig carries the signing material for access tokens.
type TokenConfig struct {
	Secret    string
	Algorithm string
}

// TokenManager issues and validates access and reset tokens. Every token
// has a stored record; access tokens are also self-describing signed JWTs.
type TokenManager struct {
	tokenRepository repository.TokenRepository
	clock           Clock
	method          jwt.SigningMethod
	secret          []byte
	random          io.Reader
}

func NewTokenManager(tokenRepository repository.TokenRepository, clock Clock, cfg *TokenConfig) (*TokenManager, error) {
	if cfg == nil || cfg.Secret == "" {
		return nil, errors.New("token signing secret is required")
	}
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &TokenManager{
		tokenRepository: tokenRepository,
		clock:           clock,
		method:          method,
		secret:          []byte(cfg.Secret),
		random:          rand.Reader,
	}, nil
}

// WithDB returns a TokenManager whose store operations run on db.
func (m *TokenManager) WithDB(db sqlx.ExtContext) *TokenManager {
	c := *m
	c.tokenRepository = m.tokenRepository.WithDB(db)
	return &c
}

func (m *TokenManager) randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := io.ReadFull(m.random, b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// IssueAccessToken signs a JWT for userID and records it as an active
// access token expiring after ttl.
func (m *TokenManager) IssueAccessToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	now := m.clock.Now()
	expiresAt := now.Add(ttl)

	jti, err := m.randomBytes(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate token id: %w", err)
	}

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        hex.EncodeToString(jti),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	err = m.tokenRepository.Create(ctx, &model.Token{
		UserID:    userID,
		Type:      model.TokenTypeAccess,
		Token:     signed,
		Status:    model.TokenStatusActive,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	})
	if err != nil {
		return "", oops.Code("TOKEN_ISSUE_FAILED").
			With("type", model.TokenTypeAccess.String()).
			With("user_id", userID).
			Wrap(err)
	}

	return signed, nil
}

// IssueResetToken records an opaque, single-use reset token for userID.
func (m *TokenManager) IssueResetToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	now := m.clock.Now()

	raw, err := m.randomBytes(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	err = m.tokenRepository.Create(ctx, &model.Token{
		UserID:    userID,
		Type:      model.TokenTypeResetPassword,
		Token:     token,
		Status:    model.TokenStatusActive,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	if err != nil {
		return "", oops.Code("TOKEN_ISSUE_FAILED").
			With("type", model.TokenTypeResetPassword.String()).
			With("user_id", userID).
			Wrap(err)
	}

	return token, nil
}

// ValidateAccessToken checks signature, algorithm and embedded expiry and
// returns the subject. It never consults the store.
func (m *TokenManager) ValidateAccessToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil {
		slog.Debug("access token rejected", "error", err)
		return "", ErrTokenInvalid
	}
	if claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

// Find returns the stored record for tokenString whatever its state.
func (m *TokenManager) Find(ctx context.Context, tokenString string) (*model.Token, error) {
	token, err := m.tokenRepository.ByToken(ctx, tokenString)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, oops.Code("TOKEN_LOOKUP_FAILED").
			With("operation", "ByToken").
			Wrap(err)
	}
	return token, nil
}

// ValidateStoredToken returns the stored token if it is active, unexpired
// and of requiredType (any type when nil). Every rejection is ErrTokenInvalid.
func (m *TokenManager) ValidateStoredToken(ctx context.Context, tokenString string, requiredType *model.TokenType) (*model.Token, error) {
	token, err := m.Find(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	if !token.UsableAt(m.clock.Now(), requiredType) {
		return nil, ErrTokenInvalid
	}
	return token, nil
}

// Invalidate moves an active token to status. A token that is no longer
// active is left untouched and reported as ErrTokenInvalid.
func (m *TokenManager) Invalidate(ctx context.Context, tokenString string, status model.TokenStatus) error {
	if !model.TokenStatusActive.CanTransitionTo(status) {
		return fmt.Errorf("cannot invalidate token to status %s", status)
	}

	err := m.tokenRepository.Transition(ctx, tokenString, status)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotActive) {
			return ErrTokenInvalid
		}
		return oops.Code("TOKEN_INVALIDATE_FAILED").
			With("status", status.String()).
			Wrap(err)
	}
	return nil
}

// RevokeAll moves every active token of typ owned by userID to status.
func (m *TokenManager) RevokeAll(ctx context.Context, userID string, typ model.TokenType, status model.TokenStatus) (int64, error) {
	if !model.TokenStatusActive.CanTransitionTo(status) {
		return 0, fmt.Errorf("cannot revoke tokens to status %s", status)
	}

	n, err := m.tokenRepository.TransitionByUser(ctx, userID, typ, status)
	if err != nil {
		return 0, oops.Code("TOKEN_REVOKE_FAILED").
			With("user_id", userID).
			With("type", typ.String()).
			Wrap(err)
	}
	return n, nil
}

// Prune deletes tokens whose expiry is older than retention.
func (m *TokenManager) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	return m.tokenRepository.CleanupExpired(ctx, m.clock.Now().Add(-retention))
}
