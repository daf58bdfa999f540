package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/authgate/internal/model"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.userSvc.Register(ctx, " alice ", "Alice@Example.com", "pw-alice-123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, model.UserStatusActive, user.Status)
	assert.NotEqual(t, "pw-alice-123", user.PasswordHash)

	_, err = f.userSvc.Register(ctx, "alice", "other@example.com", "pw-other-123")
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = f.userSvc.Register(ctx, "bob", "ALICE@example.com", "pw-other-123")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "alice", "alice@example.com", "pw-alice-123", model.UserStatusActive)

	require.NoError(t, f.userSvc.SetStatus(ctx, "alice@example.com", model.UserStatusBanned))

	got, err := f.userSvc.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusBanned, got.Status)
}
