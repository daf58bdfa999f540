package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/samber/oops"
	"github.com/templui/authgate/internal/model"
	"github.com/templui/authgate/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var statusReasons = map[model.UserStatus]string{
	model.UserStatusPending:  "Pending user.",
	model.UserStatusBanned:   "Banned user.",
	model.UserStatusDeleted:  "Deleted user.",
	model.UserStatusInactive: "Inactive user.",
}

// StatusGate returns nil for active accounts and a *StatusRejection
// carrying a user-facing reason for every other status.
func StatusGate(user *model.User) error {
	if user.IsActive() {
		return nil
	}
	reason, ok := statusReasons[user.Status]
	if !ok {
		reason = "Inactive user."
	}
	return &StatusRejection{Status: user.Status, Reason: reason}
}

type Authenticator struct {
	userRepository repository.UserRepository
	cost           int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthenticator(userRepository repository.UserRepository, cost int) *Authenticator {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Authenticator{
		userRepository: userRepository,
		cost:           cost,
	}
}

func (a *Authenticator) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// VerifyCredentials resolves identifier as a username or email and checks
// the password. Unknown accounts and mismatches both yield
// ErrInvalidCredentials; any other error is a store fault.
func (a *Authenticator) VerifyCredentials(ctx context.Context, identifier, password string) (*model.User, error) {
	identifier = strings.TrimSpace(identifier)

	user, err := a.userRepository.ByUsernameOrEmail(ctx, identifier)
	if err != nil && strings.Contains(identifier, "@") && errors.Is(err, repository.ErrUserNotFound) {
		user, err = a.userRepository.ByEmail(ctx, strings.ToLower(identifier))
	}
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Burn the same bcrypt time as a real comparison
			_ = bcrypt.CompareHashAndPassword(a.dummy(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, oops.Code("CREDENTIALS_LOOKUP_FAILED").
			With("operation", "ByUsernameOrEmail").
			Wrap(err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (a *Authenticator) dummy() []byte {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("authgate-dummy-password"), a.cost)
	})
	return a.dummyHash
}
