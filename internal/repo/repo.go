package repo

import (
	"context"
	"time"

	"github.com/xxxsen/mailwing/internal/model"
)

// UserStore is the user persistence surface consumed by the services.
// *UserRepo is the postgres implementation; tests substitute fakes.
type UserStore interface {
	Create(ctx context.Context, email string, passwordHash string) (int64, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, userID int64) (*model.User, error)
	GetByResetToken(ctx context.Context, token string) (*model.User, error)
	SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error
	ClearResetToken(ctx context.Context, userID int64) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	Count(ctx context.Context) (int64, error)
}

// EmailStore is the outbound-email persistence surface.
type EmailStore interface {
	Create(ctx context.Context, email *model.Email) (int64, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Email, error)
	ListDue(ctx context.Context, now time.Time, limit uint) ([]*model.Email, error)
	RecentByUser(ctx context.Context, userID int64, limit uint) ([]*model.Email, error)
	MarkSent(ctx context.Context, emailID int64, at time.Time) error
	MarkFailed(ctx context.Context, emailID int64, at time.Time, reason string) error
	CancelSchedule(ctx context.Context, userID, emailID int64, now time.Time) error
	CountByUser(ctx context.Context, userID int64) (int64, error)
	CountPending(ctx context.Context, userID int64, now time.Time) (int64, error)
	CountScheduledSent(ctx context.Context, userID int64) (int64, error)
	CountScheduledFailed(ctx context.Context, userID int64) (int64, error)
	CountSent(ctx context.Context, userID int64) (int64, error)
	CountFailed(ctx context.Context, userID int64) (int64, error)
	CountCreatedSince(ctx context.Context, userID int64, since time.Time) (int64, error)
	NextScheduled(ctx context.Context, userID int64, now time.Time) (*model.Email, error)
	LastCreatedAt(ctx context.Context, userID int64) (*time.Time, error)
	FirstCreatedAt(ctx context.Context) (*time.Time, error)
	TopRecipients(ctx context.Context, userID int64, limit uint) ([]RecipientCount, error)
}

var (
	_ UserStore  = (*UserRepo)(nil)
	_ EmailStore = (*EmailRepo)(nil)
)
