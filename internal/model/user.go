package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

type UserStatus uint8

const (
	UserStatusActive UserStatus = iota + 1
	UserStatusPending
	UserStatusBanned
	UserStatusDeleted
	UserStatusInactive
)

var userStatusNames = map[UserStatus]string{
	UserStatusActive:   "active",
	UserStatusPending:  "pending",
	UserStatusBanned:   "banned",
	UserStatusDeleted:  "deleted",
	UserStatusInactive: "inactive",
}

func (s UserStatus) String() string {
	if name, ok := userStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UserStatus(%d)", uint8(s))
}

func (s UserStatus) Valid() bool {
	_, ok := userStatusNames[s]
	return ok
}

func ParseUserStatus(v string) (UserStatus, error) {
	for status, name := range userStatusNames {
		if name == v {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown user status %q", v)
}

func (s UserStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid user status %d", uint8(s))
	}
	return s.String(), nil
}

func (s *UserStatus) Scan(src any) error {
	v, err := scanText(src)
	if err != nil {
		return err
	}
	parsed, err := ParseUserStatus(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type User struct {
	ID           string     `db:"id"`
	Username     string     `db:"username"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Status       UserStatus `db:"status"`
	CreatedAt    time.Time  `db:"created_at"`
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// scanText accepts the text representations drivers hand back for TEXT columns.
func scanText(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported scan type %T", src)
	}
}
