package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mailwing/internal/model"
	appErr "github.com/xxxsen/mailwing/internal/pkg/errors"
	"github.com/xxxsen/mailwing/internal/repo"
)

type EmailService struct {
	emails repo.EmailStore
	sender MailSender
	now    func() time.Time
}

func NewEmailService(emails repo.EmailStore, sender MailSender) *EmailService {
	return &EmailService{emails: emails, sender: sender, now: time.Now}
}

type SubmitInput struct {
	Recipient    string
	Subject      string
	Message      string
	Attachment   string
	ScheduledFor *time.Time
}

// Submit persists the email row first in every case. A scheduled time in the
// future leaves the row pending for the scheduler; otherwise the transport
// is invoked synchronously and the row reaches a terminal timestamp before
// the call returns. A transport failure is recorded on the row and still
// propagates to the caller.
func (s *EmailService) Submit(ctx context.Context, userID int64, input SubmitInput) (int64, error) {
	now := s.now()
	email := &model.Email{
		UserID:       userID,
		Recipient:    input.Recipient,
		Subject:      input.Subject,
		Message:      input.Message,
		ScheduledFor: input.ScheduledFor,
	}
	if input.Attachment != "" {
		email.Attachment = &input.Attachment
	}
	emailID, err := s.emails.Create(ctx, email)
	if err != nil {
		return 0, err
	}
	if input.ScheduledFor != nil && input.ScheduledFor.After(now) {
		logutil.GetLogger(ctx).Info("email scheduled",
			zap.Int64("email_id", emailID),
			zap.Int64("user_id", userID),
			zap.Time("scheduled_for", *input.ScheduledFor),
		)
		return emailID, nil
	}

	mail := OutboundMail{
		To:            input.Recipient,
		Subject:       input.Subject,
		Body:          input.Message,
		AttachmentKey: input.Attachment,
	}
	if err := s.sender.Send(ctx, mail); err != nil {
		if markErr := s.emails.MarkFailed(ctx, emailID, s.now(), err.Error()); markErr != nil {
			logutil.GetLogger(ctx).Error("mark failed after send error", zap.Int64("email_id", emailID), zap.Error(markErr))
		}
		logutil.GetLogger(ctx).Error("immediate send failed", zap.Int64("email_id", emailID), zap.Error(err))
		return 0, appErr.ErrInternal
	}
	if err := s.emails.MarkSent(ctx, emailID, s.now()); err != nil {
		logutil.GetLogger(ctx).Error("mark sent failed", zap.Int64("email_id", emailID), zap.Error(err))
	}
	logutil.GetLogger(ctx).Info("email sent", zap.Int64("email_id", emailID), zap.Int64("user_id", userID))
	return emailID, nil
}

func (s *EmailService) List(ctx context.Context, userID int64) ([]*model.Email, error) {
	return s.emails.ListByUser(ctx, userID)
}

// Cancel clears the scheduled time on a pending row. Rows that are not
// owned, not scheduled in the future, or already terminal report ErrNotFound;
// a second cancel of the same row also fails because scheduled_for is gone.
func (s *EmailService) Cancel(ctx context.Context, userID, emailID int64) error {
	if err := s.emails.CancelSchedule(ctx, userID, emailID, s.now()); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("scheduled email cancelled", zap.Int64("email_id", emailID), zap.Int64("user_id", userID))
	return nil
}
