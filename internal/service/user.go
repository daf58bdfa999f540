package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/oops"
	"github.com/templui/authgate/internal/model"
	"github.com/templui/authgate/internal/repository"
)

type UserService struct {
	userRepository repository.UserRepository
	authenticator  *Authenticator
}

func NewUserService(userRepository repository.UserRepository, authenticator *Authenticator) *UserService {
	return &UserService{
		userRepository: userRepository,
		authenticator:  authenticator,
	}
}

// Register creates an active account. Taken usernames or emails yield
// ErrUserExists.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	hash, err := s.authenticator.HashPassword(password)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "HashPassword").
			Wrap(err)
	}

	user := &model.User{
		Username:     strings.TrimSpace(username),
		Email:        strings.TrimSpace(strings.ToLower(email)),
		PasswordHash: hash,
		Status:       model.UserStatusActive,
	}

	err = s.userRepository.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserExists
		}
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "Create").
			Wrap(err)
	}

	slog.Info("user registered", "user_id", user.ID)
	return user, nil
}

func (s *UserService) ByID(ctx context.Context, id string) (*model.User, error) {
	return s.userRepository.ByID(ctx, id)
}

// SetStatus changes an account status; used by administrative tooling.
func (s *UserService) SetStatus(ctx context.Context, identifier string, status model.UserStatus) error {
	user, err := s.userRepository.ByUsernameOrEmail(ctx, identifier)
	if err != nil {
		return err
	}
	err = s.userRepository.UpdateStatus(ctx, user.ID, status)
	if err != nil {
		return err
	}
	slog.Info("user status changed", "user_id", user.ID, "status", status.String())
	return nil
}
