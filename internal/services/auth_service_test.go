package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/yecy-cosmetic/store-backend/internal/config"
	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

type AuthServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	ctx     context.Context
	service *AuthService
	user    *models.User
	now     time.Time
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.ctx = context.Background()
	utils.SetJWTSecret("test-secret")

	suite.service = NewAuthService(suite.db, &config.Config{JWT: config.JWTConfig{SecretKey: "test-secret", AccessTokenTTL: 1}})
	suite.now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	suite.service.now = func() time.Time { return suite.now }

	suite.user = createUser(suite.T(), suite.db, "3009998877", "Andrea", false)
}

func (suite *AuthServiceTestSuite) login(password string) (*AuthResponse, error) {
	return suite.service.Login(suite.ctx, &LoginRequest{Numero: suite.user.Numero, Password: password}, "127.0.0.1")
}

func (suite *AuthServiceTestSuite) TestLoginIssuesToken() {
	resp, err := suite.login("secreto123")
	suite.Require().NoError(err)
	suite.Equal("Bearer", resp.TokenType)
	suite.Equal(3600, resp.ExpiresIn)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	suite.Require().NoError(err)
	suite.Equal(suite.user.ID.String(), claims.UserID)
	suite.Equal(string(models.RoleClient), claims.Role)
}

func (suite *AuthServiceTestSuite) TestUnknownNumeroAndWrongPassword() {
	_, err := suite.service.Login(suite.ctx, &LoginRequest{Numero: "3000000099", Password: "x"}, "")
	suite.ErrorIs(err, ErrInvalidCredentials)

	_, err = suite.login("incorrecta")
	suite.ErrorIs(err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestFiveFailuresLockTheAccount() {
	for i := 0; i < maxFailedLogins; i++ {
		_, err := suite.login("incorrecta")
		suite.Require().ErrorIs(err, ErrInvalidCredentials)
	}

	_, err := suite.login("secreto123")
	suite.ErrorIs(err, ErrAccountLocked)

	suite.now = suite.now.Add(lockoutDuration + time.Second)
	_, err = suite.login("secreto123")
	suite.NoError(err)
}

func (suite *AuthServiceTestSuite) TestSuccessResetsFailureCount() {
	for i := 0; i < maxFailedLogins-1; i++ {
		_, _ = suite.login("incorrecta")
	}
	_, err := suite.login("secreto123")
	suite.Require().NoError(err)

	_, _ = suite.login("incorrecta")
	_, err = suite.login("secreto123")
	suite.NoError(err)
}

func (suite *AuthServiceTestSuite) TestDisabledAccountCannotLogIn() {
	suite.Require().NoError(suite.db.Model(suite.user).Update("is_active", false).Error)

	_, err := suite.login("secreto123")
	suite.ErrorIs(err, ErrAccountInactive)

	_, err = suite.service.CurrentUser(suite.ctx, suite.user.ID)
	suite.ErrorIs(err, ErrAccountInactive)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
