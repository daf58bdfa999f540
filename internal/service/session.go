package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/templui/authgate/internal/model"
)

type SessionService struct {
	authenticator *Authenticator
	tokenManager  *TokenManager
	accessTTL     time.Duration
	storeCheck    bool
}

// NewSessionService wires login, logout and bearer checks. With storeCheck
// set, protected routes also require the stored access token to be active.
func NewSessionService(authenticator *Authenticator, tokenManager *TokenManager, accessTTL time.Duration, storeCheck bool) *SessionService {
	return &SessionService{
		authenticator: authenticator,
		tokenManager:  tokenManager,
		accessTTL:     accessTTL,
		storeCheck:    storeCheck,
	}
}

// Login returns a new access token. Bad credentials are always
// ErrInvalidCredentials; valid credentials on a non-active account yield
// a *StatusRejection.
func (s *SessionService) Login(ctx context.Context, identifier, password string) (string, error) {
	user, err := s.authenticator.VerifyCredentials(ctx, identifier, password)
	if err != nil {
		return "", err
	}

	err = StatusGate(user)
	if err != nil {
		slog.Info("login rejected by account status", "user_id", user.ID, "status", user.Status.String())
		return "", err
	}

	token, err := s.tokenManager.IssueAccessToken(ctx, user.ID, s.accessTTL)
	if err != nil {
		return "", err
	}

	slog.Info("user logged in", "user_id", user.ID)
	return token, nil
}

// Logout marks an active access token as logged out.
func (s *SessionService) Logout(ctx context.Context, tokenString string) error {
	token, err := s.tokenManager.Find(ctx, tokenString)
	if err != nil {
		return err
	}
	if !token.IsActive() || token.Type != model.TokenTypeAccess {
		return ErrTokenInvalid
	}

	err = s.tokenManager.Invalidate(ctx, tokenString, model.TokenStatusLoggedOut)
	if err != nil {
		return err
	}

	slog.Info("user logged out", "user_id", token.UserID)
	return nil
}

// ValidateToken reports whether tokenString is a usable stored token of
// any type.
func (s *SessionService) ValidateToken(ctx context.Context, tokenString string) error {
	_, err := s.tokenManager.ValidateStoredToken(ctx, tokenString, nil)
	return err
}

// AuthenticateRequest resolves a bearer token to its user id.
func (s *SessionService) AuthenticateRequest(ctx context.Context, bearer string) (string, error) {
	userID, err := s.tokenManager.ValidateAccessToken(bearer)
	if err != nil {
		return "", err
	}
	if !s.storeCheck {
		return userID, nil
	}

	access := model.TokenTypeAccess
	token, err := s.tokenManager.ValidateStoredToken(ctx, bearer, &access)
	if err != nil {
		return "", err
	}
	if token.UserID != userID {
		slog.Warn("access token subject does not match stored owner", "subject", userID, "owner", token.UserID)
		return "", ErrTokenInvalid
	}
	return userID, nil
}

// IsRejection reports whether err is a client-facing authentication
// outcome rather than an infrastructure fault.
func IsRejection(err error) bool {
	var rejection *StatusRejection
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.As(err, &rejection)
}
