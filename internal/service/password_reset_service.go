package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mailwing/internal/model"
	appErr "github.com/xxxsen/mailwing/internal/pkg/errors"
	"github.com/xxxsen/mailwing/internal/pkg/password"
	"github.com/xxxsen/mailwing/internal/repo"
)

type PasswordResetService struct {
	users       repo.UserStore
	sender      MailSender
	frontendURL string
	tokenTTL    time.Duration
	now         func() time.Time
}

func NewPasswordResetService(users repo.UserStore, sender MailSender, frontendURL string, tokenTTL time.Duration) *PasswordResetService {
	return &PasswordResetService{
		users:       users,
		sender:      sender,
		frontendURL: frontendURL,
		tokenTTL:    tokenTTL,
		now:         time.Now,
	}
}

// Request issues a reset token and mails the reset link. It never reveals
// whether the address exists: an unknown email is reported as success.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			logutil.GetLogger(ctx).Info("reset requested for unknown email", zap.String("email", maskEmail(email)))
			return nil
		}
		return err
	}
	token := newResetToken()
	expires := s.now().Add(s.tokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return err
	}
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)
	mail := OutboundMail{
		To:       email,
		Subject:  "Password recovery",
		HTMLBody: resetMailBody(resetURL, int(s.tokenTTL.Minutes())),
	}
	if err := s.sender.Send(ctx, mail); err != nil {
		logutil.GetLogger(ctx).Error("reset mail failed", zap.String("email", maskEmail(email)), zap.Error(err))
		return appErr.ErrInternal
	}
	logutil.GetLogger(ctx).Info("reset mail sent", zap.String("email", maskEmail(email)))
	return nil
}

// Validate checks the token and returns the masked account email for the
// reset form. An expired token is cleared so it cannot be probed again.
func (s *PasswordResetService) Validate(ctx context.Context, token string) (string, error) {
	user, err := s.lookup(ctx, token)
	if err != nil {
		return "", err
	}
	return maskEmail(user.Email), nil
}

func (s *PasswordResetService) Reset(ctx context.Context, token, newPassword string) error {
	user, err := s.lookup(ctx, token)
	if err != nil {
		return err
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("password reset", zap.Int64("user_id", user.ID))
	return nil
}

func (s *PasswordResetService) lookup(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, appErr.ErrInvalid
	}
	found, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrInvalid
		}
		return nil, err
	}
	if found.PasswordResetExpires == nil || s.now().After(*found.PasswordResetExpires) {
		_ = s.users.ClearResetToken(ctx, found.ID)
		return nil, appErr.ErrInvalid
	}
	return found, nil
}

func newResetToken() string {
	bytes := make([]byte, 32)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func resetMailBody(resetURL string, minutes int) string {
	return fmt.Sprintf(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h2 style="color:#082563">Password recovery</h2>
<p>You received this email because a password reset was requested for your account.</p>
<div style="text-align:center;margin:30px 0">
<a href="%s" style="background-color:#082563;color:white;padding:12px 24px;text-decoration:none;border-radius:5px;display:inline-block">Reset password</a>
</div>
<p><strong>This link expires in %d minutes.</strong></p>
<p>If you did not request a reset, ignore this email.</p>
</div>`, resetURL, minutes)
}
