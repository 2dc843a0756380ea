// internal/services/auth_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/urbanthreads/storefront-backend/internal/config"
	"github.com/urbanthreads/storefront-backend/internal/models"
	"github.com/urbanthreads/storefront-backend/internal/utils"
)

const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
)

type AuthService struct {
	db  *gorm.DB
	cfg config.JWTConfig
}

func NewAuthService(db *gorm.DB, cfg config.JWTConfig) *AuthService {
	return &AuthService{
		db:  db,
		cfg: cfg,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=60"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("user with this email already exists")
	}

	user := &models.User{
		Name:  req.Name,
		Email: email,
		Role:  models.UserRoleUser,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	// No mailer is configured; the token surfaces in the debug log for
	// manual delivery during development.
	if token, err := s.IssueEmailVerification(ctx, user.ID); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to issue email verification token")
	} else {
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
			"token":   token,
		}).Debug("Email verification token issued")
	}

	return s.issueTokens(user)
}

// IssueEmailVerification generates a fresh verification token for the user
// and stores its hash. The raw token is returned exactly once.
func (s *AuthService) IssueEmailVerification(ctx context.Context, userID uuid.UUID) (string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", fmt.Errorf("user not found")
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if user.EmailVerifiedAt != nil {
		return "", fmt.Errorf("email already verified")
	}

	token, err := utils.GenerateVerificationCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate verification token: %w", err)
	}

	err = s.db.WithContext(ctx).Model(&user).
		Update("email_verification_token", utils.HashString(token)).Error
	if err != nil {
		return "", fmt.Errorf("failed to store verification token: %w", err)
	}

	return token, nil
}

// VerifyEmail marks the account matching the token as verified and
// invalidates the token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("invalid verification token")
	}

	var user models.User
	err := s.db.WithContext(ctx).
		First(&user, "email_verification_token = ?", utils.HashString(token)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("invalid verification token")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"email_verified_at":        now,
		"email_verification_token": "",
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to verify email: %w", err)
	}
	user.EmailVerifiedAt = &now
	user.EmailVerificationToken = ""

	logrus.WithField("user_id", user.ID).Info("Email verified")

	return &user, nil
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("invalid credentials")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.IsLocked() {
		return nil, fmt.Errorf("account locked, try again later")
	}

	if user.PasswordHash == "" {
		return nil, fmt.Errorf("invalid credentials")
	}

	if err := user.CheckPassword(req.Password); err != nil {
		if err := s.recordFailedLogin(ctx, &user); err != nil {
			logrus.WithError(err).Warn("Failed to record login attempt")
		}
		return nil, fmt.Errorf("invalid credentials")
	}

	now := time.Now()
	updates := map[string]interface{}{
		"login_attempts": 0,
		"lock_until":     nil,
		"last_login_at":  now,
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		logrus.WithError(err).Warn("Failed to reset login tracking")
	}
	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLoginAt = &now

	logrus.WithField("user_id", user.ID).Info("User logged in")

	return s.issueTokens(&user)
}

func (s *AuthService) recordFailedLogin(ctx context.Context, user *models.User) error {
	attempts := user.LoginAttempts + 1
	updates := map[string]interface{}{"login_attempts": attempts}

	if attempts >= maxLoginAttempts {
		lockUntil := time.Now().Add(lockoutDuration)
		updates["lock_until"] = lockUntil
		updates["login_attempts"] = 0
		logrus.WithFields(logrus.Fields{
			"user_id":    user.ID,
			"lock_until": lockUntil,
		}).Warn("Account locked after repeated failed logins")
	}

	return s.db.WithContext(ctx).Model(user).Updates(updates).Error
}

func (s *AuthService) Refresh(ctx context.Context, req *RefreshRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	subject, err := utils.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token")
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token")
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return s.issueTokens(&user)
}

func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *AuthService) issueTokens(user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(user.ID, user.Email, string(user.Role), s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
