package service

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/mailwing/internal/pkg/errors"
	"github.com/xxxsen/mailwing/internal/pkg/jwt"
	"github.com/xxxsen/mailwing/internal/pkg/password"
	"github.com/xxxsen/mailwing/internal/repo"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AuthService struct {
	users         repo.UserStore
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	validRefresh  *refreshTokenStore
}

func NewAuthService(users repo.UserStore, accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		users:         users,
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		validRefresh:  newRefreshTokenStore(),
	}
}

func (s *AuthService) Register(ctx context.Context, email, plainPassword string) (int64, error) {
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return 0, err
	}
	userID, err := s.users.Create(ctx, email, hash)
	if err != nil {
		if appErr.IsConflict(err) {
			logutil.GetLogger(ctx).Warn("register rejected: duplicate email", zap.String("email", maskEmail(email)))
			return 0, appErr.ErrConflict
		}
		return 0, err
	}
	logutil.GetLogger(ctx).Info("user registered", zap.Int64("user_id", userID), zap.String("email", maskEmail(email)))
	return userID, nil
}

// Login verifies credentials and mints an access/refresh token pair. The
// refresh token is recorded as valid; the caller delivers it as a cookie.
func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			logutil.GetLogger(ctx).Warn("login failed: no such user", zap.String("email", maskEmail(email)))
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		logutil.GetLogger(ctx).Warn("login failed: bad password", zap.String("email", maskEmail(email)))
		return nil, appErr.ErrUnauthorized
	}
	accessToken, err := jwt.GenerateToken(user.ID, user.Email, user.Name, s.accessSecret, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := jwt.GenerateToken(user.ID, user.Email, user.Name, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	s.validRefresh.Add(refreshToken)
	logutil.GetLogger(ctx).Info("login ok", zap.Int64("user_id", user.ID), zap.String("email", maskEmail(email)))
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh exchanges a valid refresh token for a new access token. A token
// that fails verification is evicted so later attempts fail the membership
// check directly.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if !s.validRefresh.Contains(refreshToken) {
		return "", appErr.ErrForbidden
	}
	claims, err := jwt.ParseToken(refreshToken, s.refreshSecret)
	if err != nil {
		s.validRefresh.Remove(refreshToken)
		logutil.GetLogger(ctx).Warn("refresh failed: token evicted", zap.Error(err))
		return "", appErr.ErrForbidden
	}
	accessToken, err := jwt.GenerateToken(claims.UserID, claims.Email, claims.Name, s.accessSecret, s.accessTTL)
	if err != nil {
		return "", err
	}
	logutil.GetLogger(ctx).Info("refresh ok", zap.Int64("user_id", claims.UserID))
	return accessToken, nil
}

// Logout revokes the refresh token. Unknown tokens are ignored, making the
// operation idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if s.validRefresh.Contains(refreshToken) {
		if claims, err := jwt.ParseToken(refreshToken, s.refreshSecret); err == nil {
			logutil.GetLogger(ctx).Info("logout", zap.Int64("user_id", claims.UserID))
		}
		s.validRefresh.Remove(refreshToken)
	}
}

func (s *AuthService) VerifyAccess(token string) (*jwt.Claims, error) {
	return jwt.ParseToken(token, s.accessSecret)
}

func maskEmail(email string) string {
	local, domain := email, ""
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local, domain = email[:at], email[at:]
	}
	// slice by rune so a multibyte local part is not cut mid-character
	runes := []rune(local)
	if len(runes) <= 3 {
		return "***" + domain
	}
	return string(runes[:3]) + "***" + domain
}
