package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/authgate/internal/model"
)

func TestStatusGate(t *testing.T) {
	tests := []struct {
		status model.UserStatus
		reason string
	}{
		{model.UserStatusActive, ""},
		{model.UserStatusPending, "Pending user."},
		{model.UserStatusBanned, "Banned user."},
		{model.UserStatusDeleted, "Deleted user."},
		{model.UserStatusInactive, "Inactive user."},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			err := StatusGate(&model.User{Status: tt.status})
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}

			var rejection *StatusRejection
			require.True(t, errors.As(err, &rejection))
			assert.Equal(t, tt.reason, rejection.Reason)
			assert.Equal(t, tt.status, rejection.Status)
		})
	}
}

func TestVerifyCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "alice", "Alice@Example.com", "correct horse battery", model.UserStatusActive)

	got, err := f.auth.VerifyCredentials(ctx, "alice", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	got, err = f.auth.VerifyCredentials(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	got, err = f.auth.VerifyCredentials(ctx, "ALICE@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.auth.VerifyCredentials(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.VerifyCredentials(ctx, "nobody", "correct horse battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyCredentials_StoreFault(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Close())

	_, err := f.auth.VerifyCredentials(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, IsRejection(err))
}
