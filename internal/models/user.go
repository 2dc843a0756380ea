// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Name         string   `json:"name" gorm:"size:60;not null"`
	Email        string   `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string   `json:"-" gorm:"size:255"` // empty for OAuth-only accounts
	Image        string   `json:"image" gorm:"size:500"`
	Role         UserRole `json:"role" gorm:"type:varchar(20);default:'user';index"`

	// Contact & address
	Phone   string `json:"phone" gorm:"size:20"`
	Address JSONB  `json:"address" gorm:"type:jsonb"`

	// Email verification. Only the sha256 of the issued token is stored.
	EmailVerifiedAt        *time.Time `json:"email_verified_at"`
	EmailVerificationToken string     `json:"-" gorm:"size:64;index"`

	// Wishlist
	Wishlist []Product `json:"wishlist,omitempty" gorm:"many2many:user_wishlist_items"`

	// Preferences
	Preferences JSONB `json:"preferences" gorm:"type:jsonb"`

	// Login tracking
	LastLoginAt   *time.Time `json:"last_login_at"`
	LoginAttempts int        `json:"-" gorm:"default:0"`
	LockUntil     *time.Time `json:"-"`

	Orders []Order `json:"orders,omitempty" gorm:"foreignKey:UserID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// IsLocked reports whether the account is under a login lockout.
func (u *User) IsLocked() bool {
	return u.LockUntil != nil && u.LockUntil.After(time.Now())
}
