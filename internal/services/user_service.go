// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yecy-cosmetic/store-backend/internal/database"
	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

const (
	recoveryCodeTTL     = 5 * time.Minute
	maxRecoveryAttempts = 5
)

type UserService struct {
	db  *gorm.DB
	now func() time.Time
}

type RegisterRequest struct {
	Numero   string `json:"numero" validate:"required,phone"`
	Nombre   string `json:"nombre" validate:"required,max=30"`
	Apellido string `json:"apellido" validate:"required,max=30"`
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateProfileRequest is a partial update; nil fields are left alone.
type UpdateProfileRequest struct {
	Nombre   *string `json:"nombre,omitempty" validate:"omitempty,min=1,max=30"`
	Apellido *string `json:"apellido,omitempty" validate:"omitempty,min=1,max=30"`
}

type ChangePasswordRequest struct {
	Current string `json:"actual_password" validate:"required"`
	New     string `json:"nueva_password" validate:"required,min=6"`
}

type RecoverPasswordRequest struct {
	Numero string `json:"numero" validate:"required,phone"`
}

type ResetPasswordRequest struct {
	Numero string `json:"numero" validate:"required,phone"`
	Code   string `json:"codigo" validate:"required,len=6,numeric"`
	New    string `json:"nueva_password" validate:"required,min=6"`
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, now: time.Now}
}

// Register creates a client account. Admin accounts are only seeded.
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("numero = ?", req.Numero).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check numero: %w", err)
	}
	if count > 0 {
		return nil, ErrNumeroTaken
	}

	user := &models.User{
		Numero:   req.Numero,
		Nombre:   req.Nombre,
		Apellido: req.Apellido,
		IsActive: true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrNumeroTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logrus.WithField("numero", user.Numero).Info("User registered")
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Nombre != nil {
		updates["nombre"] = *req.Nombre
	}
	if req.Apellido != nil {
		updates["apellido"] = *req.Apellido
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	logrus.WithField("user_id", userID).Info("Profile updated")
	return s.activeUser(ctx, userID)
}

func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, req *ChangePasswordRequest) error {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.CheckPassword(req.Current); err != nil {
		return ErrWrongPassword
	}
	if err := user.SetPassword(req.New); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", user.PasswordHash).Error; err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	logrus.WithField("user_id", userID).Info("Password changed")
	return nil
}

// Deactivate disables the caller's own account. Orders and notifications
// are kept; an admin can reactivate the account later.
func (s *UserService) Deactivate(ctx context.Context, userID uuid.UUID, password string) error {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.CheckPassword(password); err != nil {
		return ErrWrongPassword
	}
	if user.IsAdmin {
		return ErrUnauthorized
	}
	if err := s.db.WithContext(ctx).Model(user).Update("is_active", false).Error; err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}

	logrus.WithField("user_id", userID).Info("Account deactivated by owner")
	return nil
}

func (s *UserService) activeUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "failed to load user")
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	return &user, nil
}

// RequestRecovery issues a fresh six digit code for the account, replacing
// any pending one. There is no SMS gateway; the code is written to the log
// for the operator to relay. The code is returned for that reason only and
// must never reach the HTTP response.
func (s *UserService) RequestRecovery(ctx context.Context, req *RecoverPasswordRequest) (string, error) {
	user, err := s.activeUserByNumero(ctx, req.Numero)
	if err != nil {
		return "", err
	}

	code, err := utils.RecoveryCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate recovery code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash recovery code: %w", err)
	}

	reset := &models.PasswordReset{
		UserID:    user.ID,
		CodeHash:  string(hash),
		ExpiresAt: s.now().Add(recoveryCodeTTL),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"code_hash", "expires_at", "attempts", "updated_at"}),
	}).Create(reset).Error; err != nil {
		return "", fmt.Errorf("failed to store recovery code: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"numero": user.Numero,
		"codigo": code,
	}).Info("Password recovery code issued")
	return code, nil
}

// ResetPassword sets a new password when code matches the pending,
// unexpired recovery code. Too many wrong codes burn it. A successful reset
// also lifts a login lockout.
func (s *UserService) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	user, err := s.activeUserByNumero(ctx, req.Numero)
	if err != nil {
		return err
	}

	wrongCode := false
	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var reset models.PasswordReset
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", user.ID).
			First(&reset).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidRecoveryCode
			}
			return fmt.Errorf("failed to load recovery code: %w", err)
		}

		if !s.now().Before(reset.ExpiresAt) || reset.Attempts >= maxRecoveryAttempts {
			return ErrInvalidRecoveryCode
		}
		if bcrypt.CompareHashAndPassword([]byte(reset.CodeHash), []byte(req.Code)) != nil {
			// the attempt is committed, the caller still gets an error
			wrongCode = true
			return tx.Model(&reset).UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
		}

		if err := user.SetPassword(req.New); err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		if err := tx.Model(user).Updates(map[string]interface{}{
			"password_hash":   user.PasswordHash,
			"failed_attempts": 0,
			"locked_until":    nil,
		}).Error; err != nil {
			return fmt.Errorf("failed to reset password: %w", err)
		}
		if err := tx.Delete(&reset).Error; err != nil {
			return fmt.Errorf("failed to clear recovery code: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if wrongCode {
		logrus.WithField("numero", user.Numero).Warn("Wrong password recovery code")
		return ErrInvalidRecoveryCode
	}

	logrus.WithField("numero", user.Numero).Info("Password reset with recovery code")
	return nil
}

func (s *UserService) activeUserByNumero(ctx context.Context, numero string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("numero = ?", numero).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "failed to load user")
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	return &user, nil
}
