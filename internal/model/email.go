package model

import "time"

// Email is one outbound message row. At most one of SentAt/FailedAt is ever
// set; a row with a future ScheduledFor and neither terminal timestamp is
// pending and owned by the scheduler.
type Email struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	Recipient     string     `json:"recipient"`
	Subject       string     `json:"subject"`
	Message       string     `json:"message"`
	Attachment    *string    `json:"attachment,omitempty"`
	ScheduledFor  *time.Time `json:"scheduled_for,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Pending reports whether the row still awaits a scheduled delivery.
func (e *Email) Pending(now time.Time) bool {
	return e.ScheduledFor != nil && e.ScheduledFor.After(now) && e.SentAt == nil && e.FailedAt == nil
}
