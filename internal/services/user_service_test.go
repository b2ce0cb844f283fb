package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/yecy-cosmetic/store-backend/internal/models"
)

type UserServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *UserService
	ctx     context.Context
}

func (s *UserServiceTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.service = NewUserService(s.db)
	s.ctx = context.Background()
}

func (s *UserServiceTestSuite) TestRegisterCreatesActiveClient() {
	user, err := s.service.Register(s.ctx, &RegisterRequest{
		Numero:   "3105550101",
		Nombre:   "Camila",
		Apellido: "Rojas",
		Password: "claveSegura",
	})
	s.Require().NoError(err)
	s.True(user.IsActive)
	s.False(user.IsAdmin)
	s.NoError(user.CheckPassword("claveSegura"))

	_, err = s.service.Register(s.ctx, &RegisterRequest{
		Numero:   "3105550101",
		Nombre:   "Otra",
		Apellido: "Persona",
		Password: "otraClave",
	})
	s.ErrorIs(err, ErrNumeroTaken)
}

func (s *UserServiceTestSuite) TestUpdateProfileIsPartial() {
	user := createUser(s.T(), s.db, "3105550102", "Daniela", false)

	nombre := "Dani"
	updated, err := s.service.UpdateProfile(s.ctx, user.ID, &UpdateProfileRequest{Nombre: &nombre})
	s.Require().NoError(err)
	s.Equal("Dani", updated.Nombre)
	s.Equal("Prueba", updated.Apellido)
}

func (s *UserServiceTestSuite) TestChangePassword() {
	user := createUser(s.T(), s.db, "3105550103", "Sofia", false)

	err := s.service.ChangePassword(s.ctx, user.ID, &ChangePasswordRequest{Current: "incorrecta", New: "nuevaClave"})
	s.ErrorIs(err, ErrWrongPassword)

	s.Require().NoError(s.service.ChangePassword(s.ctx, user.ID, &ChangePasswordRequest{Current: "secreto123", New: "nuevaClave"}))

	var reloaded models.User
	s.Require().NoError(s.db.First(&reloaded, "id = ?", user.ID).Error)
	s.NoError(reloaded.CheckPassword("nuevaClave"))
	s.Error(reloaded.CheckPassword("secreto123"))
}

func (s *UserServiceTestSuite) TestDeactivate() {
	client := createUser(s.T(), s.db, "3105550104", "Valentina", false)
	admin := createUser(s.T(), s.db, "3105550105", "Admin", true)

	s.ErrorIs(s.service.Deactivate(s.ctx, client.ID, "incorrecta"), ErrWrongPassword)
	s.ErrorIs(s.service.Deactivate(s.ctx, admin.ID, "secreto123"), ErrUnauthorized)

	s.Require().NoError(s.service.Deactivate(s.ctx, client.ID, "secreto123"))

	var reloaded models.User
	s.Require().NoError(s.db.First(&reloaded, "id = ?", client.ID).Error)
	s.False(reloaded.IsActive)

	// a disabled account can no longer change anything
	nombre := "Vale"
	_, err := s.service.UpdateProfile(s.ctx, client.ID, &UpdateProfileRequest{Nombre: &nombre})
	s.ErrorIs(err, ErrAccountInactive)
}

func (s *UserServiceTestSuite) TestRecoveryCodeResetsPassword() {
	user := createUser(s.T(), s.db, "3105550106", "Isabella", false)
	lockedUntil := time.Now().Add(time.Hour)
	s.Require().NoError(s.db.Model(user).Updates(map[string]interface{}{
		"failed_attempts": 5,
		"locked_until":    lockedUntil,
	}).Error)

	code, err := s.service.RequestRecovery(s.ctx, &RecoverPasswordRequest{Numero: user.Numero})
	s.Require().NoError(err)
	s.Len(code, 6)

	var reset models.PasswordReset
	s.Require().NoError(s.db.First(&reset, "user_id = ?", user.ID).Error)
	s.NotEqual(code, reset.CodeHash)

	s.Require().NoError(s.service.ResetPassword(s.ctx, &ResetPasswordRequest{Numero: user.Numero, Code: code, New: "restablecida"}))

	var reloaded models.User
	s.Require().NoError(s.db.First(&reloaded, "id = ?", user.ID).Error)
	s.NoError(reloaded.CheckPassword("restablecida"))
	s.Zero(reloaded.FailedAttempts)
	s.Nil(reloaded.LockedUntil)

	// the code is single use
	err = s.service.ResetPassword(s.ctx, &ResetPasswordRequest{Numero: user.Numero, Code: code, New: "otraVez123"})
	s.ErrorIs(err, ErrInvalidRecoveryCode)
}

func (s *UserServiceTestSuite) TestRecoveryCodeExpires() {
	user := createUser(s.T(), s.db, "3105550107", "Gabriela", false)
	code, err := s.service.RequestRecovery(s.ctx, &RecoverPasswordRequest{Numero: user.Numero})
	s.Require().NoError(err)

	s.service.now = func() time.Time { return time.Now().Add(recoveryCodeTTL + time.Second) }

	err = s.service.ResetPassword(s.ctx, &ResetPasswordRequest{Numero: user.Numero, Code: code, New: "tardeClave"})
	s.ErrorIs(err, ErrInvalidRecoveryCode)
}

func (s *UserServiceTestSuite) TestWrongRecoveryCodesBurnTheCode() {
	user := createUser(s.T(), s.db, "3105550108", "Mariana", false)
	code, err := s.service.RequestRecovery(s.ctx, &RecoverPasswordRequest{Numero: user.Numero})
	s.Require().NoError(err)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < maxRecoveryAttempts; i++ {
		err := s.service.ResetPassword(s.ctx, &ResetPasswordRequest{Numero: user.Numero, Code: wrong, New: "intento123"})
		s.ErrorIs(err, ErrInvalidRecoveryCode)
	}

	var reset models.PasswordReset
	s.Require().NoError(s.db.First(&reset, "user_id = ?", user.ID).Error)
	s.Equal(maxRecoveryAttempts, reset.Attempts)

	err = s.service.ResetPassword(s.ctx, &ResetPasswordRequest{Numero: user.Numero, Code: code, New: "correcta123"})
	s.ErrorIs(err, ErrInvalidRecoveryCode)

	// a new request starts over
	code, err = s.service.RequestRecovery(s.ctx, &RecoverPasswordRequest{Numero: user.Numero})
	s.Require().NoError(err)
	s.Require().NoError(s.service.ResetPassword(s.ctx, &ResetPasswordRequest{Numero: user.Numero, Code: code, New: "correcta123"}))
}

func (s *UserServiceTestSuite) TestRecoveryForUnknownOrDisabledAccount() {
	_, err := s.service.RequestRecovery(s.ctx, &RecoverPasswordRequest{Numero: "3109999999"})
	s.ErrorIs(err, ErrNotFound)

	user := createUser(s.T(), s.db, "3105550109", "Laura", false)
	s.Require().NoError(s.db.Model(user).Update("is_active", false).Error)
	_, err = s.service.RequestRecovery(s.ctx, &RecoverPasswordRequest{Numero: user.Numero})
	s.ErrorIs(err, ErrAccountInactive)
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
