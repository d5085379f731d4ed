package models

import (
	"time"

	"tresesenta/internal/domain"

	"gorm.io/gorm"
)

// User is owned by the identity service; the points core only mutates
// TotalPoints and Level, and reads the moderation flags.
type User struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Username          string         `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email             string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FullName          string         `gorm:"size:255" json:"full_name"`
	AvatarURL         string         `gorm:"size:512" json:"avatar_url"`
	ShopifyCustomerID *string        `gorm:"size:64" json:"-"`
	IsAdmin           bool           `gorm:"not null;default:false" json:"is_admin"`
	IsBanned          bool           `gorm:"not null;default:false;index" json:"is_banned"`
	BanReason         string         `gorm:"size:500" json:"ban_reason,omitempty"`
	IsVerifiedBuyer   bool           `gorm:"not null;default:false" json:"is_verified_buyer"`
	TotalPoints       int            `gorm:"not null;default:0;index" json:"total_points"` // cache of the ledger sum
	Level             int            `gorm:"not null;default:1" json:"level"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) Role() string {
	if u.IsAdmin {
		return domain.RoleAdmin
	}
	return domain.RoleUser
}

func (u *User) LevelName() string { return domain.LevelName(u.Level) }
