package models

import (
	"time"

	"tresesenta/internal/domain"
)

// PointAction is one catalog row. Rows are never deleted; disabling one
// stops new transactions without touching past ledger rows.
type PointAction struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	ActionCode      domain.ActionKind `gorm:"uniqueIndex;size:50;not null" json:"action_code"`
	ActionName      string            `gorm:"size:100;not null" json:"action_name"`
	Description     string            `gorm:"type:text" json:"description"`
	Category        string            `gorm:"size:50" json:"category"`
	Points          int               `gorm:"not null" json:"points"`
	DailyLimit      *int              `json:"daily_limit"`      // nil = unlimited
	CooldownSeconds *int              `json:"cooldown_seconds"` // nil = none
	BonusPoints     int               `gorm:"not null;default:0" json:"bonus_points"`
	IsActive        bool              `gorm:"not null" json:"is_active"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (PointAction) TableName() string {
	return "point_actions"
}
