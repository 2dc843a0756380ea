// internal/services/auth_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/urbanthreads/storefront-backend/internal/config"
	"github.com/urbanthreads/storefront-backend/internal/models"
	"github.com/urbanthreads/storefront-backend/internal/utils"
)

type AuthServiceTestSuite struct {
	suite.Suite
	db   *gorm.DB
	auth *AuthService
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.auth = NewAuthService(suite.db, config.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenTTL:  1,
		RefreshTokenTTL: 24,
	})
	utils.SetJWTSecret("test-secret")
}

func (suite *AuthServiceTestSuite) register(email string) *AuthResponse {
	resp, err := suite.auth.Register(context.Background(), &RegisterRequest{
		Name:     "Jane Doe",
		Email:    email,
		Password: "supersecret1",
	})
	suite.Require().NoError(err)
	return resp
}

func (suite *AuthServiceTestSuite) TestRegisterAndLogin() {
	resp := suite.register("jane@example.com")
	assert.NotEmpty(suite.T(), resp.AccessToken)
	assert.NotEmpty(suite.T(), resp.RefreshToken)
	assert.Equal(suite.T(), models.UserRoleUser, resp.User.Role)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "jane@example.com", claims.Email)
	assert.Equal(suite.T(), "user", claims.Role)

	login, err := suite.auth.Login(context.Background(), &LoginRequest{
		Email:    "jane@example.com",
		Password: "supersecret1",
	})
	suite.Require().NoError(err)
	assert.NotNil(suite.T(), login.User.LastLoginAt)
}

func (suite *AuthServiceTestSuite) TestRegisterDuplicateEmail() {
	suite.register("dup@example.com")

	_, err := suite.auth.Register(context.Background(), &RegisterRequest{
		Name:     "Other Jane",
		Email:    "dup@example.com",
		Password: "supersecret2",
	})
	suite.Require().Error(err)
	assert.Contains(suite.T(), err.Error(), "already exists")
}

func (suite *AuthServiceTestSuite) TestLoginEmailIsCaseInsensitive() {
	suite.register("case@example.com")

	_, err := suite.auth.Login(context.Background(), &LoginRequest{
		Email:    "Case@Example.COM",
		Password: "supersecret1",
	})
	suite.Require().NoError(err)
}

func (suite *AuthServiceTestSuite) TestLoginWrongPassword() {
	suite.register("wrong@example.com")

	_, err := suite.auth.Login(context.Background(), &LoginRequest{
		Email:    "wrong@example.com",
		Password: "not-the-password",
	})
	suite.Require().Error(err)
	assert.Contains(suite.T(), err.Error(), "invalid credentials")

	var user models.User
	suite.Require().NoError(suite.db.First(&user, "email = ?", "wrong@example.com").Error)
	assert.Equal(suite.T(), 1, user.LoginAttempts)
}

func (suite *AuthServiceTestSuite) TestAccountLockoutAfterRepeatedFailures() {
	suite.register("locked@example.com")

	for i := 0; i < maxLoginAttempts; i++ {
		_, err := suite.auth.Login(context.Background(), &LoginRequest{
			Email:    "locked@example.com",
			Password: "not-the-password",
		})
		suite.Require().Error(err)
	}

	var user models.User
	suite.Require().NoError(suite.db.First(&user, "email = ?", "locked@example.com").Error)
	suite.Require().NotNil(user.LockUntil)
	assert.True(suite.T(), user.IsLocked())

	// Even the correct password is refused while locked
	_, err := suite.auth.Login(context.Background(), &LoginRequest{
		Email:    "locked@example.com",
		Password: "supersecret1",
	})
	suite.Require().Error(err)
	assert.Contains(suite.T(), err.Error(), "account locked")
}

func (suite *AuthServiceTestSuite) TestSuccessfulLoginResetsAttempts() {
	suite.register("reset@example.com")

	_, err := suite.auth.Login(context.Background(), &LoginRequest{
		Email:    "reset@example.com",
		Password: "not-the-password",
	})
	suite.Require().Error(err)

	_, err = suite.auth.Login(context.Background(), &LoginRequest{
		Email:    "reset@example.com",
		Password: "supersecret1",
	})
	suite.Require().NoError(err)

	var user models.User
	suite.Require().NoError(suite.db.First(&user, "email = ?", "reset@example.com").Error)
	assert.Zero(suite.T(), user.LoginAttempts)
	assert.Nil(suite.T(), user.LockUntil)
}

func (suite *AuthServiceTestSuite) TestExpiredLockIsIgnored() {
	resp := suite.register("expired@example.com")

	past := time.Now().Add(-time.Minute)
	suite.Require().NoError(suite.db.Model(resp.User).Update("lock_until", past).Error)

	_, err := suite.auth.Login(context.Background(), &LoginRequest{
		Email:    "expired@example.com",
		Password: "supersecret1",
	})
	suite.Require().NoError(err)
}

func (suite *AuthServiceTestSuite) TestRegisterStoresHashedVerificationToken() {
	resp := suite.register("fresh@example.com")

	var user models.User
	suite.Require().NoError(suite.db.First(&user, "id = ?", resp.User.ID).Error)
	assert.Nil(suite.T(), user.EmailVerifiedAt)
	// 64 hex chars of sha256, never the raw token
	assert.Len(suite.T(), user.EmailVerificationToken, 64)
}

func (suite *AuthServiceTestSuite) TestVerifyEmail() {
	resp := suite.register("verify@example.com")

	token, err := suite.auth.IssueEmailVerification(context.Background(), resp.User.ID)
	suite.Require().NoError(err)
	suite.Require().NotEmpty(token)

	var stored models.User
	suite.Require().NoError(suite.db.First(&stored, "id = ?", resp.User.ID).Error)
	assert.Equal(suite.T(), utils.HashString(token), stored.EmailVerificationToken)

	verified, err := suite.auth.VerifyEmail(context.Background(), token)
	suite.Require().NoError(err)
	suite.Require().NotNil(verified.EmailVerifiedAt)

	// The token is single-use
	_, err = suite.auth.VerifyEmail(context.Background(), token)
	suite.Require().Error(err)
	assert.Contains(suite.T(), err.Error(), "invalid verification token")

	// Issuing another token for a verified account is refused
	_, err = suite.auth.IssueEmailVerification(context.Background(), resp.User.ID)
	suite.Require().Error(err)
	assert.Contains(suite.T(), err.Error(), "already verified")
}

func (suite *AuthServiceTestSuite) TestVerifyEmailRejectsUnknownToken() {
	suite.register("unknown-token@example.com")

	_, err := suite.auth.VerifyEmail(context.Background(), "not-a-real-token")
	suite.Require().Error(err)
	assert.Contains(suite.T(), err.Error(), "invalid verification token")

	_, err = suite.auth.VerifyEmail(context.Background(), "")
	suite.Require().Error(err)
}

func (suite *AuthServiceTestSuite) TestRefresh() {
	resp := suite.register("refresh@example.com")

	refreshed, err := suite.auth.Refresh(context.Background(), &RefreshRequest{
		RefreshToken: resp.RefreshToken,
	})
	suite.Require().NoError(err)
	assert.NotEmpty(suite.T(), refreshed.AccessToken)
	assert.Equal(suite.T(), resp.User.ID, refreshed.User.ID)

	_, err = suite.auth.Refresh(context.Background(), &RefreshRequest{
		RefreshToken: "garbage-token",
	})
	suite.Require().Error(err)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
