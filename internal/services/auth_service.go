// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yecy-cosmetic/store-backend/internal/config"
	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

const (
	maxFailedLogins = 5
	lockoutDuration = 5 * time.Minute
)

type AuthService struct {
	db  *gorm.DB
	cfg *config.Config
	now func() time.Time
}

type LoginRequest struct {
	Numero   string `json:"numero" validate:"required,phone"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // in seconds
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{
		db:  db,
		cfg: cfg,
		now: time.Now,
	}
}

// Login checks the phone number and password. Five consecutive failures
// lock the account for five minutes.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, ip string) (*AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("numero = ?", req.Numero).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, ErrAccountLocked
	}

	if err := user.CheckPassword(req.Password); err != nil {
		s.recordFailure(ctx, &user, now)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		logrus.WithField("numero", user.Numero).Warn("Login attempt on disabled account")
		return nil, ErrAccountInactive
	}

	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   now,
		"last_login_ip":   ip,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLoginAt = &now

	accessToken, err := utils.GenerateJWT(user.ID, user.Numero, string(user.Role()), s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	logrus.WithField("numero", user.Numero).Info("User logged in")
	return &AuthResponse{
		User:        &user,
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.cfg.JWT.AccessTokenTTL * 3600,
	}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, user *models.User, now time.Time) {
	updates := map[string]interface{}{"failed_attempts": gorm.Expr("failed_attempts + 1")}
	if user.FailedAttempts+1 >= maxFailedLogins {
		updates["locked_until"] = now.Add(lockoutDuration)
		updates["failed_attempts"] = 0
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		logrus.WithError(err).Error("Failed to record login failure")
		return
	}
	logrus.WithFields(logrus.Fields{
		"numero":   user.Numero,
		"attempts": user.FailedAttempts + 1,
	}).Warn("Login failed")
}

// CurrentUser loads an active user for an authenticated request.
func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "failed to load user")
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	return &user, nil
}
