package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mailwing/internal/model"
	"github.com/xxxsen/mailwing/internal/repo"
)

type ScheduledStats struct {
	Pending   int64        `json:"pending"`
	Sent      int64        `json:"sent"`
	Failed    int64        `json:"failed"`
	NextEmail *model.Email `json:"nextEmail"`
}

type StatValue struct {
	Value      int64  `json:"value"`
	Change     string `json:"change"`
	ChangeType string `json:"changeType"`
}

type DashboardStats struct {
	Stats struct {
		EmailsSent       StatValue `json:"emailsSent"`
		UsersRegistered  StatValue `json:"usersRegistered"`
		SuccessfulEmails StatValue `json:"successfulEmails"`
		FailedEmails     StatValue `json:"failedEmails"`
	} `json:"stats"`
	RecentActivity []ActivityEntry `json:"recentActivity"`
}

type ActivityEntry struct {
	ID      int64  `json:"id"`
	User    string `json:"user"`
	Action  string `json:"action"`
	Target  string `json:"target"`
	Subject string `json:"subject"`
	Time    string `json:"time"`
	Status  string `json:"status"`
}

type SystemStatus struct {
	Server struct {
		Status      string            `json:"status"`
		Uptime      string            `json:"uptime"`
		EmailServer EmailServerStatus `json:"emailServer"`
	} `json:"server"`
	User struct {
		EmailsInQueue int64  `json:"emailsInQueue"`
		LastActivity  string `json:"lastActivity"`
		EmailsToday   int64  `json:"emailsToday"`
	} `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

type EmailServerStatus struct {
	Status  string `json:"status"`
	Host    string `json:"host"`
	Message string `json:"message"`
}

type UserStats struct {
	Period struct {
		ThisWeek  int64   `json:"thisWeek"`
		ThisMonth int64   `json:"thisMonth"`
		AvgPerDay float64 `json:"avgPerDay"`
	} `json:"period"`
	TopRecipients []repo.RecipientCount `json:"topRecipients"`
}

type StatsService struct {
	users    repo.UserStore
	emails   repo.EmailStore
	sender   MailSender
	mailHost string
	now      func() time.Time
}

func NewStatsService(users repo.UserStore, emails repo.EmailStore, sender MailSender, mailHost string) *StatsService {
	return &StatsService{users: users, emails: emails, sender: sender, mailHost: mailHost, now: time.Now}
}

func (s *StatsService) ScheduledStats(ctx context.Context, userID int64) (*ScheduledStats, error) {
	now := s.now()
	pending, err := s.emails.CountPending(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	sent, err := s.emails.CountScheduledSent(ctx, userID)
	if err != nil {
		return nil, err
	}
	failed, err := s.emails.CountScheduledFailed(ctx, userID)
	if err != nil {
		return nil, err
	}
	next, err := s.emails.NextScheduled(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	return &ScheduledStats{Pending: pending, Sent: sent, Failed: failed, NextEmail: next}, nil
}

func (s *StatsService) Dashboard(ctx context.Context, userID int64, userName, userEmail string) (*DashboardStats, error) {
	total, err := s.emails.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	successful, err := s.emails.CountSent(ctx, userID)
	if err != nil {
		return nil, err
	}
	failed, err := s.emails.CountFailed(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.emails.RecentByUser(ctx, userID, 20)
	if err != nil {
		return nil, err
	}

	successRate := 100.0
	if total > 0 {
		successRate = float64(successful) / float64(total) * 100
	}

	displayName := userName
	if displayName == "" {
		displayName = userEmail
		for i, c := range userEmail {
			if c == '@' {
				displayName = userEmail[:i]
				break
			}
		}
	}

	result := &DashboardStats{RecentActivity: make([]ActivityEntry, 0, len(recent))}
	result.Stats.EmailsSent = StatValue{Value: total, Change: "0%", ChangeType: "neutral"}
	result.Stats.UsersRegistered = StatValue{Value: users, Change: "+3", ChangeType: "positive"}
	result.Stats.SuccessfulEmails = StatValue{Value: successful, Change: fmt.Sprintf("%.1f%%", successRate), ChangeType: "positive"}
	result.Stats.FailedEmails = StatValue{Value: failed, Change: "0%", ChangeType: "neutral"}
	for _, email := range recent {
		subject := email.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		status := "success"
		if email.FailedAt != nil {
			status = "failed"
		}
		result.RecentActivity = append(result.RecentActivity, ActivityEntry{
			ID:      email.ID,
			User:    displayName,
			Action:  "sent an email to",
			Target:  email.Recipient,
			Subject: subject,
			Time:    formatTimeAgo(s.now(), email.CreatedAt),
			Status:  status,
		})
	}
	return result, nil
}

func (s *StatsService) SystemStatus(ctx context.Context, userID int64) (*SystemStatus, error) {
	now := s.now()
	queued, err := s.emails.CountPending(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	last, err := s.emails.LastCreatedAt(ctx, userID)
	if err != nil {
		return nil, err
	}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.emails.CountCreatedSince(ctx, userID, dayStart)
	if err != nil {
		return nil, err
	}
	first, err := s.emails.FirstCreatedAt(ctx)
	if err != nil {
		return nil, err
	}

	status := &SystemStatus{Timestamp: now}
	status.Server.Status = "online"
	status.Server.Uptime = "unknown"
	if first != nil {
		status.Server.Uptime = formatDuration(now.Sub(*first))
	}
	status.Server.EmailServer = s.probeMailServer(ctx)
	status.User.EmailsInQueue = queued
	status.User.EmailsToday = today
	status.User.LastActivity = "no activity"
	if last != nil {
		status.User.LastActivity = formatTimeAgo(now, *last)
	}
	return status, nil
}

func (s *StatsService) UserStats(ctx context.Context, userID int64) (*UserStats, error) {
	now := s.now()
	weekday := int(now.Weekday())
	weekStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -weekday)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	thisWeek, err := s.emails.CountCreatedSince(ctx, userID, weekStart)
	if err != nil {
		return nil, err
	}
	thisMonth, err := s.emails.CountCreatedSince(ctx, userID, monthStart)
	if err != nil {
		return nil, err
	}
	last30, err := s.emails.CountCreatedSince(ctx, userID, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	top, err := s.emails.TopRecipients(ctx, userID, 5)
	if err != nil {
		return nil, err
	}

	stats := &UserStats{TopRecipients: top}
	stats.Period.ThisWeek = thisWeek
	stats.Period.ThisMonth = thisMonth
	stats.Period.AvgPerDay = float64(last30) / 30
	return stats, nil
}

func (s *StatsService) probeMailServer(ctx context.Context) EmailServerStatus {
	if s.sender == nil {
		return EmailServerStatus{Status: "error", Host: s.mailHost, Message: "mail transport not configured"}
	}
	if err := s.sender.Verify(ctx); err != nil {
		logutil.GetLogger(ctx).Warn("mail server probe failed", zap.Error(err))
		return EmailServerStatus{Status: "error", Host: s.mailHost, Message: err.Error()}
	}
	return EmailServerStatus{Status: "connected", Host: s.mailHost, Message: "mail server reachable"}
}

func formatTimeAgo(now, at time.Time) string {
	diff := now.Sub(at)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < 2*time.Minute:
		return "1 minute ago"
	case diff < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 2*time.Hour:
		return "1 hour ago"
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 48*time.Hour:
		return "1 day ago"
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return "more than a week ago"
	}
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
