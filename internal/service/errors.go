package service

import (
	"errors"
	"fmt"

	"github.com/templui/authgate/internal/model"
)

var (
	// ErrInvalidCredentials covers both unknown accounts and wrong
	// passwords so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrTokenInvalid covers missing, expired, consumed, revoked and
	// mistyped tokens alike.
	ErrTokenInvalid = errors.New("invalid or expired token")
	ErrUserExists   = errors.New("username or email already exists")
)

// StatusRejection is returned when valid credentials belong to an account
// that may not sign in.
type StatusRejection struct {
	Status model.UserStatus
	Reason string
}

func (e *StatusRejection) Error() string {
	return fmt.Sprintf("account is %s", e.Status)
}
