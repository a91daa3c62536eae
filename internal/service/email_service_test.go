package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/mailwing/internal/pkg/errors"
)

func newTestEmailService(sender *fakeSender) (*EmailService, *fakeEmailStore, time.Time) {
	emails := newFakeEmailStore()
	svc := NewEmailService(emails, sender)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, emails, now
}

func TestSubmitImmediateSend(t *testing.T) {
	sender := &fakeSender{}
	svc, emails, now := newTestEmailService(sender)

	emailID, err := svc.Submit(context.Background(), 1, SubmitInput{
		Recipient: "bob@example.com",
		Subject:   "hello",
		Message:   "body",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	require.Equal(t, "bob@example.com", sender.sent[0].To)
	require.False(t, sender.sent[0].Scheduled)

	row := emails.get(emailID)
	require.NotNil(t, row.SentAt)
	require.Nil(t, row.FailedAt)
	require.Equal(t, now, *row.SentAt)
}

func TestSubmitImmediateSendFailure(t *testing.T) {
	sender := &fakeSender{sendErr: fmt.Errorf("relay refused")}
	svc, emails, _ := newTestEmailService(sender)

	_, err := svc.Submit(context.Background(), 1, SubmitInput{
		Recipient: "bob@example.com",
		Subject:   "hello",
		Message:   "body",
	})
	require.ErrorIs(t, err, appErr.ErrInternal)

	// the row is persisted and marked failed even though the call errored
	rows, err := emails.ListByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].FailedAt)
	require.Equal(t, "relay refused", *rows[0].FailureReason)
}

func TestSubmitScheduledDoesNotSend(t *testing.T) {
	sender := &fakeSender{}
	svc, emails, now := newTestEmailService(sender)

	future := now.Add(time.Hour)
	emailID, err := svc.Submit(context.Background(), 1, SubmitInput{
		Recipient:    "bob@example.com",
		Subject:      "later",
		Message:      "body",
		ScheduledFor: &future,
	})
	require.NoError(t, err)
	require.Empty(t, sender.sent)

	row := emails.get(emailID)
	require.True(t, row.Pending(now))
}

func TestSubmitPastScheduleSendsNow(t *testing.T) {
	sender := &fakeSender{}
	svc, emails, now := newTestEmailService(sender)

	past := now.Add(-time.Hour)
	emailID, err := svc.Submit(context.Background(), 1, SubmitInput{
		Recipient:    "bob@example.com",
		Subject:      "late",
		Message:      "body",
		ScheduledFor: &past,
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	require.NotNil(t, emails.get(emailID).SentAt)
}

func TestCancelScheduled(t *testing.T) {
	sender := &fakeSender{}
	svc, emails, now := newTestEmailService(sender)

	future := now.Add(time.Hour)
	emailID, err := svc.Submit(context.Background(), 1, SubmitInput{
		Recipient:    "bob@example.com",
		Subject:      "later",
		Message:      "body",
		ScheduledFor: &future,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), 1, emailID))
	require.Nil(t, emails.get(emailID).ScheduledFor)

	// a second cancel finds nothing schedulable
	require.ErrorIs(t, svc.Cancel(context.Background(), 1, emailID), appErr.ErrNotFound)
}

func TestCancelRejectsOtherUsersEmail(t *testing.T) {
	sender := &fakeSender{}
	svc, _, now := newTestEmailService(sender)

	future := now.Add(time.Hour)
	emailID, err := svc.Submit(context.Background(), 1, SubmitInput{
		Recipient:    "bob@example.com",
		Subject:      "later",
		Message:      "body",
		ScheduledFor: &future,
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Cancel(context.Background(), 2, emailID), appErr.ErrNotFound)
}

func TestCancelAlreadySent(t *testing.T) {
	sender := &fakeSender{}
	svc, _, _ := newTestEmailService(sender)

	emailID, err := svc.Submit(context.Background(), 1, SubmitInput{
		Recipient: "bob@example.com",
		Subject:   "hi",
		Message:   "body",
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Cancel(context.Background(), 1, emailID), appErr.ErrNotFound)
}
