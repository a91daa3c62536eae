package service

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/mailwing/internal/model"
	appErr "github.com/xxxsen/mailwing/internal/pkg/errors"
	"github.com/xxxsen/mailwing/internal/repo"
)

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func (f *fakeUserStore) Create(ctx context.Context, email string, passwordHash string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[email]; ok {
		return 0, appErr.ErrConflict
	}
	f.nextID++
	f.users[email] = &model.User{
		ID:           f.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	return f.nextID, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[email]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID == userID {
			clone := *user
			return &clone, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (f *fakeUserStore) GetByResetToken(ctx context.Context, token string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.PasswordResetToken != nil && *user.PasswordResetToken == token {
			clone := *user
			return &clone, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (f *fakeUserStore) SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID == userID {
			user.PasswordResetToken = &token
			user.PasswordResetExpires = &expires
			return nil
		}
	}
	return appErr.ErrNotFound
}

func (f *fakeUserStore) ClearResetToken(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID == userID {
			user.PasswordResetToken = nil
			user.PasswordResetExpires = nil
			return nil
		}
	}
	return appErr.ErrNotFound
}

func (f *fakeUserStore) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID == userID {
			user.PasswordHash = passwordHash
			return nil
		}
	}
	return appErr.ErrNotFound
}

func (f *fakeUserStore) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

type fakeEmailStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []*model.Email
}

func newFakeEmailStore() *fakeEmailStore {
	return &fakeEmailStore{}
}

func (f *fakeEmailStore) get(emailID int64) *model.Email {
	for _, row := range f.rows {
		if row.ID == emailID {
			return row
		}
	}
	return nil
}

func (f *fakeEmailStore) Create(ctx context.Context, email *model.Email) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	clone := *email
	clone.ID = f.nextID
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	f.rows = append(f.rows, &clone)
	return clone.ID, nil
}

func (f *fakeEmailStore) ListByUser(ctx context.Context, userID int64) ([]*model.Email, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Email
	for _, row := range f.rows {
		if row.UserID == userID {
			clone := *row
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeEmailStore) ListDue(ctx context.Context, now time.Time, limit uint) ([]*model.Email, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Email
	for _, row := range f.rows {
		if row.ScheduledFor == nil || row.SentAt != nil || row.FailedAt != nil {
			continue
		}
		if row.ScheduledFor.After(now) {
			continue
		}
		clone := *row
		out = append(out, &clone)
		if uint(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeEmailStore) RecentByUser(ctx context.Context, userID int64, limit uint) ([]*model.Email, error) {
	rows, err := f.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if uint(len(rows)) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeEmailStore) MarkSent(ctx context.Context, emailID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := f.get(emailID)
	if row == nil || row.SentAt != nil || row.FailedAt != nil {
		return appErr.ErrNotFound
	}
	row.SentAt = &at
	return nil
}

func (f *fakeEmailStore) MarkFailed(ctx context.Context, emailID int64, at time.Time, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := f.get(emailID)
	if row == nil || row.SentAt != nil || row.FailedAt != nil {
		return appErr.ErrNotFound
	}
	row.FailedAt = &at
	row.FailureReason = &reason
	return nil
}

func (f *fakeEmailStore) CancelSchedule(ctx context.Context, userID, emailID int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := f.get(emailID)
	if row == nil || row.UserID != userID {
		return appErr.ErrNotFound
	}
	if row.ScheduledFor == nil || !row.ScheduledFor.After(now) || row.SentAt != nil || row.FailedAt != nil {
		return appErr.ErrNotFound
	}
	row.ScheduledFor = nil
	return nil
}

func (f *fakeEmailStore) CountByUser(ctx context.Context, userID int64) (int64, error) {
	return f.count(func(row *model.Email) bool { return row.UserID == userID })
}

func (f *fakeEmailStore) CountPending(ctx context.Context, userID int64, now time.Time) (int64, error) {
	return f.count(func(row *model.Email) bool {
		return row.UserID == userID && row.Pending(now)
	})
}

func (f *fakeEmailStore) CountScheduledSent(ctx context.Context, userID int64) (int64, error) {
	return f.count(func(row *model.Email) bool {
		return row.UserID == userID && row.ScheduledFor != nil && row.SentAt != nil
	})
}

func (f *fakeEmailStore) CountScheduledFailed(ctx context.Context, userID int64) (int64, error) {
	return f.count(func(row *model.Email) bool {
		return row.UserID == userID && row.ScheduledFor != nil && row.FailedAt != nil
	})
}

func (f *fakeEmailStore) CountSent(ctx context.Context, userID int64) (int64, error) {
	return f.count(func(row *model.Email) bool { return row.UserID == userID && row.SentAt != nil })
}

func (f *fakeEmailStore) CountFailed(ctx context.Context, userID int64) (int64, error) {
	return f.count(func(row *model.Email) bool { return row.UserID == userID && row.FailedAt != nil })
}

func (f *fakeEmailStore) CountCreatedSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	return f.count(func(row *model.Email) bool {
		return row.UserID == userID && !row.CreatedAt.Before(since)
	})
}

func (f *fakeEmailStore) count(match func(*model.Email) bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.rows {
		if match(row) {
			n++
		}
	}
	return n, nil
}

func (f *fakeEmailStore) NextScheduled(ctx context.Context, userID int64, now time.Time) (*model.Email, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var next *model.Email
	for _, row := range f.rows {
		if row.UserID != userID || !row.Pending(now) {
			continue
		}
		if next == nil || row.ScheduledFor.Before(*next.ScheduledFor) {
			next = row
		}
	}
	if next == nil {
		return nil, nil
	}
	clone := *next
	return &clone, nil
}

func (f *fakeEmailStore) LastCreatedAt(ctx context.Context, userID int64) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *time.Time
	for _, row := range f.rows {
		if row.UserID != userID {
			continue
		}
		if last == nil || row.CreatedAt.After(*last) {
			at := row.CreatedAt
			last = &at
		}
	}
	return last, nil
}

func (f *fakeEmailStore) FirstCreatedAt(ctx context.Context) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first *time.Time
	for _, row := range f.rows {
		if first == nil || row.CreatedAt.Before(*first) {
			at := row.CreatedAt
			first = &at
		}
	}
	return first, nil
}

func (f *fakeEmailStore) TopRecipients(ctx context.Context, userID int64, limit uint) ([]repo.RecipientCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int64)
	for _, row := range f.rows {
		if row.UserID == userID {
			counts[row.Recipient]++
		}
	}
	var out []repo.RecipientCount
	for recipient, n := range counts {
		out = append(out, repo.RecipientCount{Email: recipient, Count: n})
		if uint(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

type fakeSender struct {
	mu        sync.Mutex
	sent      []OutboundMail
	sendErr   error
	verifyErr error
}

func (f *fakeSender) Send(ctx context.Context, mail OutboundMail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, mail)
	return nil
}

func (f *fakeSender) Verify(ctx context.Context) error {
	return f.verifyErr
}

var (
	_ repo.UserStore  = (*fakeUserStore)(nil)
	_ repo.EmailStore = (*fakeEmailStore)(nil)
	_ MailSender      = (*fakeSender)(nil)
)
