package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/oops"
	"github.com/templui/authgate/internal/model"
	"github.com/templui/authgate/internal/repository"
)

// UnitOfWork runs fn inside one transaction, committing when fn returns
// nil and rolling back otherwise.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx sqlx.ExtContext) error) error
}

// Notifier delivers reset tokens to account owners.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

type PasswordResetService struct {
	userRepository repository.UserRepository
	tokenManager   *TokenManager
	authenticator  *Authenticator
	uow            UnitOfWork
	notifier       Notifier
	resetTTL       time.Duration
	notifyTimeout  time.Duration

	wg sync.WaitGroup
}

func NewPasswordResetService(
	userRepository repository.UserRepository,
	tokenManager *TokenManager,
	authenticator *Authenticator,
	uow UnitOfWork,
	notifier Notifier,
	resetTTL time.Duration,
	notifyTimeout time.Duration,
) *PasswordResetService {
	if resetTTL <= 0 {
		resetTTL = 10 * time.Minute
	}
	if notifyTimeout <= 0 {
		notifyTimeout = 10 * time.Second
	}
	return &PasswordResetService{
		userRepository: userRepository,
		tokenManager:   tokenManager,
		authenticator:  authenticator,
		uow:            uow,
		notifier:       notifier,
		resetTTL:       resetTTL,
		notifyTimeout:  notifyTimeout,
	}
}

// RequestReset issues a reset token for the account registered under
// email and dispatches it in the background. Unknown emails succeed
// silently; only store faults are returned.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepository.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			slog.Info("password reset requested for unknown email")
			return nil
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "ByEmail").
			Wrap(err)
	}

	token, err := s.tokenManager.IssueResetToken(ctx, user.ID, s.resetTTL)
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "IssueResetToken").
			Wrap(err)
	}

	s.dispatch(ctx, user, token)
	return nil
}

func (s *PasswordResetService) dispatch(ctx context.Context, user *model.User, token string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
		defer cancel()

		err := s.notifier.SendPasswordReset(ctx, user.Email, token)
		if err != nil {
			slog.Error("failed to send password reset email", "error", err, "user_id", user.ID)
			return
		}
		slog.Info("password reset link sent", "user_id", user.ID)
	}()
}

// Wait blocks until every in-flight notification has finished.
func (s *PasswordResetService) Wait() {
	s.wg.Wait()
}

// PerformReset consumes a reset token and sets the new password in one
// transaction. Every token problem is reported as ErrTokenInvalid.
func (s *PasswordResetService) PerformReset(ctx context.Context, tokenString, newPassword string) error {
	hash, err := s.authenticator.HashPassword(newPassword)
	if err != nil {
		return oops.Code("RESET_FAILED").
			With("operation", "HashPassword").
			Wrap(err)
	}

	resetType := model.TokenTypeResetPassword
	var userID string

	err = s.uow.WithTx(ctx, func(ctx context.Context, tx sqlx.ExtContext) error {
		tokens := s.tokenManager.WithDB(tx)

		token, err := tokens.ValidateStoredToken(ctx, tokenString, &resetType)
		if err != nil {
			return err
		}

		err = tokens.Invalidate(ctx, tokenString, model.TokenStatusUsed)
		if err != nil {
			return err
		}

		err = s.userRepository.WithDB(tx).UpdatePasswordHash(ctx, token.UserID, hash)
		if err != nil {
			return oops.Code("RESET_FAILED").
				With("operation", "UpdatePasswordHash").
				With("user_id", token.UserID).
				Wrap(err)
		}

		userID = token.UserID
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("password reset", "user_id", userID)

	// Sessions opened with the old password end here
	n, err := s.tokenManager.RevokeAll(ctx, userID, model.TokenTypeAccess, model.TokenStatusLoggedOut)
	if err != nil {
		slog.Error("failed to revoke sessions after password reset", "error", err, "user_id", userID)
	} else if n > 0 {
		slog.Info("sessions revoked after password reset", "user_id", userID, "count", n)
	}

	return nil
}
