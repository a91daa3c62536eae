package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mailwing/internal/model"
	"github.com/xxxsen/mailwing/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mailwing/internal/pkg/errors"
)

var emailFields = []string{"id", "user_id", "recipient", "subject", "message", "attachment", "scheduled_for", "sent_at", "failed_at", "failure_reason", "created_at"}

type RecipientCount struct {
	Email string `json:"email"`
	Count int64  `json:"count"`
}

type EmailRepo struct {
	db *sql.DB
}

func NewEmailRepo(db *sql.DB) *EmailRepo {
	return &EmailRepo{db: db}
}

func (r *EmailRepo) Create(ctx context.Context, email *model.Email) (int64, error) {
	data := map[string]interface{}{
		"user_id":       email.UserID,
		"recipient":     email.Recipient,
		"subject":       email.Subject,
		"message":       email.Message,
		"attachment":    email.Attachment,
		"scheduled_for": email.ScheduledFor,
	}
	sqlStr, args, err := builder.BuildInsert("emails", []map[string]interface{}{data})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" RETURNING id", args)
	var id int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *EmailRepo) ListByUser(ctx context.Context, userID int64) ([]*model.Email, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "created_at desc",
	}
	return r.list(ctx, where)
}

// ListDue returns at most limit rows whose scheduled delivery time has
// passed and that have no terminal timestamp yet, oldest due first.
func (r *EmailRepo) ListDue(ctx context.Context, now time.Time, limit uint) ([]*model.Email, error) {
	where := map[string]interface{}{
		"scheduled_for <=": now,
		"_custom_pending":  builder.Custom("scheduled_for IS NOT NULL AND sent_at IS NULL AND failed_at IS NULL"),
		"_orderby":         "scheduled_for asc",
		"_limit":           []uint{0, limit},
	}
	return r.list(ctx, where)
}

func (r *EmailRepo) RecentByUser(ctx context.Context, userID int64, limit uint) ([]*model.Email, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "created_at desc",
		"_limit":   []uint{0, limit},
	}
	return r.list(ctx, where)
}

func (r *EmailRepo) list(ctx context.Context, where map[string]interface{}) ([]*model.Email, error) {
	sqlStr, args, err := builder.BuildSelect("emails", where, emailFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	emails := make([]*model.Email, 0)
	for rows.Next() {
		email, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func scanEmail(rows *sql.Rows) (*model.Email, error) {
	var email model.Email
	if err := rows.Scan(
		&email.ID, &email.UserID, &email.Recipient, &email.Subject, &email.Message,
		&email.Attachment, &email.ScheduledFor, &email.SentAt, &email.FailedAt,
		&email.FailureReason, &email.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &email, nil
}

// MarkSent claims the row: the conditional update fails with ErrNotFound if
// another writer already set a terminal timestamp.
func (r *EmailRepo) MarkSent(ctx context.Context, emailID int64, at time.Time) error {
	return r.markTerminal(ctx, emailID, map[string]interface{}{"sent_at": at})
}

func (r *EmailRepo) MarkFailed(ctx context.Context, emailID int64, at time.Time, reason string) error {
	return r.markTerminal(ctx, emailID, map[string]interface{}{
		"failed_at":      at,
		"failure_reason": reason,
	})
}

func (r *EmailRepo) markTerminal(ctx context.Context, emailID int64, set map[string]interface{}) error {
	where := map[string]interface{}{
		"id":                emailID,
		"_custom_unclaimed": builder.Custom("sent_at IS NULL AND failed_at IS NULL"),
	}
	sqlStr, args, err := builder.BuildUpdate("emails", where, set)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// CancelSchedule clears scheduled_for on a pending row owned by the user.
// A row that was already sent, failed, cancelled, or never scheduled is not
// cancellable and reports ErrNotFound.
func (r *EmailRepo) CancelSchedule(ctx context.Context, userID, emailID int64, now time.Time) error {
	where := map[string]interface{}{
		"id":                emailID,
		"user_id":           userID,
		"scheduled_for >":   now,
		"_custom_unclaimed": builder.Custom("sent_at IS NULL AND failed_at IS NULL"),
	}
	update := map[string]interface{}{"scheduled_for": nil}
	sqlStr, args, err := builder.BuildUpdate("emails", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *EmailRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	return r.count(ctx, map[string]interface{}{"user_id": userID})
}

func (r *EmailRepo) CountPending(ctx context.Context, userID int64, now time.Time) (int64, error) {
	return r.count(ctx, map[string]interface{}{
		"user_id":           userID,
		"scheduled_for >":   now,
		"_custom_unclaimed": builder.Custom("sent_at IS NULL AND failed_at IS NULL"),
	})
}

func (r *EmailRepo) CountScheduledSent(ctx context.Context, userID int64) (int64, error) {
	return r.count(ctx, map[string]interface{}{
		"user_id":      userID,
		"_custom_sent": builder.Custom("scheduled_for IS NOT NULL AND sent_at IS NOT NULL"),
	})
}

func (r *EmailRepo) CountScheduledFailed(ctx context.Context, userID int64) (int64, error) {
	return r.count(ctx, map[string]interface{}{
		"user_id":        userID,
		"_custom_failed": builder.Custom("scheduled_for IS NOT NULL AND failed_at IS NOT NULL"),
	})
}

func (r *EmailRepo) CountFailed(ctx context.Context, userID int64) (int64, error) {
	return r.count(ctx, map[string]interface{}{
		"user_id":        userID,
		"_custom_failed": builder.Custom("failed_at IS NOT NULL"),
	})
}

func (r *EmailRepo) CountSent(ctx context.Context, userID int64) (int64, error) {
	return r.count(ctx, map[string]interface{}{
		"user_id":      userID,
		"_custom_sent": builder.Custom("sent_at IS NOT NULL"),
	})
}

func (r *EmailRepo) CountCreatedSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	return r.count(ctx, map[string]interface{}{
		"user_id":       userID,
		"created_at >=": since,
	})
}

func (r *EmailRepo) count(ctx context.Context, where map[string]interface{}) (int64, error) {
	sqlStr, args, err := builder.BuildSelect("emails", where, []string{"count(*)"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var count int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// NextScheduled returns the soonest pending row for the user, or nil.
func (r *EmailRepo) NextScheduled(ctx context.Context, userID int64, now time.Time) (*model.Email, error) {
	where := map[string]interface{}{
		"user_id":           userID,
		"scheduled_for >":   now,
		"_custom_unclaimed": builder.Custom("sent_at IS NULL AND failed_at IS NULL"),
		"_orderby":          "scheduled_for asc",
		"_limit":            []uint{0, 1},
	}
	emails, err := r.list(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, nil
	}
	return emails[0], nil
}

// LastCreatedAt returns the creation time of the user's newest row, or nil
// when the user has none.
func (r *EmailRepo) LastCreatedAt(ctx context.Context, userID int64) (*time.Time, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "created_at desc",
		"_limit":   []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect("emails", where, []string{"created_at"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, nil
	}
	var at time.Time
	if err := rows.Scan(&at); err != nil {
		return nil, err
	}
	return &at, nil
}

// FirstCreatedAt returns the oldest creation time across all users, used as
// an uptime approximation.
func (r *EmailRepo) FirstCreatedAt(ctx context.Context) (*time.Time, error) {
	sqlStr, args, err := builder.BuildSelect("emails", nil, []string{"min(created_at)"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var at sql.NullTime
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&at); err != nil {
		return nil, err
	}
	if !at.Valid {
		return nil, nil
	}
	return &at.Time, nil
}

func (r *EmailRepo) TopRecipients(ctx context.Context, userID int64, limit uint) ([]RecipientCount, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_groupby": "recipient",
		"_orderby": "count(*) desc",
		"_limit":   []uint{0, limit},
	}
	sqlStr, args, err := builder.BuildSelect("emails", where, []string{"recipient", "count(*)"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	result := make([]RecipientCount, 0, limit)
	for rows.Next() {
		var rc RecipientCount
		if err := rows.Scan(&rc.Email, &rc.Count); err != nil {
			return nil, err
		}
		result = append(result, rc)
	}
	return result, rows.Err()
}
