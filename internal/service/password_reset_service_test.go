package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/mailwing/internal/pkg/errors"
	"github.com/xxxsen/mailwing/internal/pkg/password"
)

func newTestResetService(t *testing.T, sender *fakeSender) (*PasswordResetService, *fakeUserStore, time.Time) {
	t.Helper()
	users := newFakeUserStore()
	hash, err := password.Hash("OldPassword1")
	require.NoError(t, err)
	_, err = users.Create(context.Background(), "alice@example.com", hash)
	require.NoError(t, err)

	svc := NewPasswordResetService(users, sender, "https://mail.example.com", 15*time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, users, now
}

func TestRequestUnknownEmailSucceeds(t *testing.T) {
	sender := &fakeSender{}
	svc, _, _ := newTestResetService(t, sender)

	require.NoError(t, svc.Request(context.Background(), "ghost@example.com"))
	require.Empty(t, sender.sent)
}

func TestResetFlow(t *testing.T) {
	sender := &fakeSender{}
	svc, users, _ := newTestResetService(t, sender)
	ctx := context.Background()

	require.NoError(t, svc.Request(ctx, "alice@example.com"))
	require.Len(t, sender.sent, 1)
	require.Contains(t, sender.sent[0].HTMLBody, "reset-password?token=")

	user, err := users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, user.PasswordResetToken)
	token := *user.PasswordResetToken
	require.Len(t, token, 64)

	masked, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "ali***@example.com", masked)

	require.NoError(t, svc.Reset(ctx, token, "NewPassword2"))
	user, err = users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NoError(t, password.Compare(user.PasswordHash, "NewPassword2"))
}

func TestValidateBadToken(t *testing.T) {
	svc, _, _ := newTestResetService(t, &fakeSender{})

	_, err := svc.Validate(context.Background(), "")
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = svc.Validate(context.Background(), "deadbeef")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestValidateExpiredTokenCleared(t *testing.T) {
	sender := &fakeSender{}
	svc, users, now := newTestResetService(t, sender)
	ctx := context.Background()

	require.NoError(t, svc.Request(ctx, "alice@example.com"))
	user, err := users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	token := *user.PasswordResetToken

	svc.now = func() time.Time { return now.Add(16 * time.Minute) }
	_, err = svc.Validate(ctx, token)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	user, err = users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Nil(t, user.PasswordResetToken)
}
