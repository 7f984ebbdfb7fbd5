package domain

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	Name         string  `gorm:"not null" json:"name"`
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string  `json:"-"`
	IsVerified   bool    `gorm:"not null;default:false" json:"is_verified"`
	// OtpHash and OtpExpiresAt are both set while a code is outstanding
	// and both nil otherwise.
	OtpHash      *string    `json:"-"`
	OtpExpiresAt *time.Time `json:"-"`
	SessionToken *string    `gorm:"uniqueIndex" json:"-"`
	gorm.Model
}
