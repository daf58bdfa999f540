package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

type TokenType uint8

const (
	TokenTypeAccess TokenType = iota + 1
	TokenTypeResetPassword
)

var tokenTypeNames = map[TokenType]string{
	TokenTypeAccess:        "access",
	TokenTypeResetPassword: "reset_password",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", uint8(t))
}

func (t TokenType) Valid() bool {
	_, ok := tokenTypeNames[t]
	return ok
}

func (t TokenType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid token type %d", uint8(t))
	}
	return t.String(), nil
}

func (t *TokenType) Scan(src any) error {
	v, err := scanText(src)
	if err != nil {
		return err
	}
	for typ, name := range tokenTypeNames {
		if name == v {
			*t = typ
			return nil
		}
	}
	return fmt.Errorf("unknown token type %q", v)
}

// TokenStatus is the stored lifecycle state of a token. Expiry is derived
// from ExpiresAt at read time; TokenStatusExpired exists for rows that were
// marked by maintenance jobs and is never required for a token to be invalid.
type TokenStatus uint8

const (
	TokenStatusActive TokenStatus = iota + 1
	TokenStatusUsed
	TokenStatusExpired
	TokenStatusLoggedOut
)

var tokenStatusNames = map[TokenStatus]string{
	TokenStatusActive:    "active",
	TokenStatusUsed:      "used",
	TokenStatusExpired:   "expired",
	TokenStatusLoggedOut: "logged_out",
}

func (s TokenStatus) String() string {
	if name, ok := tokenStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TokenStatus(%d)", uint8(s))
}

func (s TokenStatus) Valid() bool {
	_, ok := tokenStatusNames[s]
	return ok
}

// CanTransitionTo reports whether s may move to next. Only active tokens
// move, and only into a terminal state.
func (s TokenStatus) CanTransitionTo(next TokenStatus) bool {
	if s != TokenStatusActive {
		return false
	}
	return next == TokenStatusUsed || next == TokenStatusLoggedOut || next == TokenStatusExpired
}

func (s TokenStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid token status %d", uint8(s))
	}
	return s.String(), nil
}

func (s *TokenStatus) Scan(src any) error {
	v, err := scanText(src)
	if err != nil {
		return err
	}
	for status, name := range tokenStatusNames {
		if name == v {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown token status %q", v)
}

type Token struct {
	ID        string      `db:"id"`
	UserID    string      `db:"user_id"`
	Type      TokenType   `db:"type"`
	Token     string      `db:"token"`
	Status    TokenStatus `db:"status"`
	ExpiresAt time.Time   `db:"expires_at"`
	CreatedAt time.Time   `db:"created_at"`
}

func (t *Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *Token) IsActive() bool {
	return t.Status == TokenStatusActive
}

// UsableAt reports whether the token may be used for an operation that
// requires typ. A nil typ accepts any token type.
func (t *Token) UsableAt(now time.Time, typ *TokenType) bool {
	if !t.IsActive() || t.IsExpired(now) {
		return false
	}
	return typ == nil || t.Type == *typ
}
