package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/mailwing/internal/pkg/errors"
	"github.com/xxxsen/mailwing/internal/repo"
	"github.com/xxxsen/mailwing/internal/service"
)

// SendDueJob delivers scheduled emails whose due time has passed. Rows are
// processed strictly one at a time so a slow mail relay is never hit with a
// burst; a per-row failure is recorded on the row and the batch continues.
type SendDueJob struct {
	emails     repo.EmailStore
	sender     service.MailSender
	batchLimit uint
	now        func() time.Time
}

func NewSendDueJob(emails repo.EmailStore, sender service.MailSender, batchLimit uint) *SendDueJob {
	if batchLimit == 0 {
		batchLimit = 10
	}
	return &SendDueJob{emails: emails, sender: sender, batchLimit: batchLimit, now: time.Now}
}

func (j *SendDueJob) Name() string {
	return "send_due_emails"
}

func (j *SendDueJob) Run(ctx context.Context) error {
	due, err := j.emails.ListDue(ctx, j.now(), j.batchLimit)
	if err != nil {
		// the next tick retries the query from scratch
		logutil.GetLogger(ctx).Error("due email query failed", zap.Error(err))
		return err
	}
	if len(due) == 0 {
		return nil
	}

	var succeeded, failed int
	for _, email := range due {
		mail := service.OutboundMail{
			To:        email.Recipient,
			Subject:   email.Subject,
			Body:      email.Message,
			Scheduled: true,
		}
		if email.Attachment != nil {
			mail.AttachmentKey = *email.Attachment
		}
		if err := j.sender.Send(ctx, mail); err != nil {
			failed++
			logutil.GetLogger(ctx).Error("scheduled send failed",
				zap.Int64("email_id", email.ID),
				zap.String("recipient", email.Recipient),
				zap.Error(err),
			)
			if markErr := j.emails.MarkFailed(ctx, email.ID, j.now(), err.Error()); markErr != nil && !appErr.IsNotFound(markErr) {
				logutil.GetLogger(ctx).Error("mark failed error", zap.Int64("email_id", email.ID), zap.Error(markErr))
			}
			continue
		}
		if err := j.emails.MarkSent(ctx, email.ID, j.now()); err != nil && !appErr.IsNotFound(err) {
			logutil.GetLogger(ctx).Error("mark sent error", zap.Int64("email_id", email.ID), zap.Error(err))
		}
		succeeded++
		logutil.GetLogger(ctx).Info("scheduled email sent",
			zap.Int64("email_id", email.ID),
			zap.String("recipient", email.Recipient),
		)
	}

	logutil.GetLogger(ctx).Info("scheduled batch processed",
		zap.Int("processed", len(due)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
	)
	return nil
}
