package models

import (
	"time"

	"tresesenta/internal/domain"
)

// PointTransaction is an immutable ledger row. Per user, ordered by ID,
// BalanceAfter[n] == BalanceAfter[n-1] + Points[n].
type PointTransaction struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	UserID            uint              `gorm:"not null;index" json:"user_id"`
	ActionCode        domain.ActionKind `gorm:"size:50;not null;index" json:"action_code"`
	Points            int               `gorm:"not null" json:"points"`
	BalanceAfter      int               `gorm:"not null" json:"balance_after"`
	RelatedPinID      *uint             `gorm:"index" json:"related_pin_id,omitempty"`
	CounterpartUserID *uint             `json:"counterpart_user_id,omitempty"`
	IncludesBonus     bool              `gorm:"not null;default:false" json:"includes_bonus"`
	ReversesID        *uint             `gorm:"uniqueIndex" json:"reverses_id,omitempty"`
	Description       string            `gorm:"size:500" json:"description"`
	CreatedAt         time.Time         `gorm:"index" json:"created_at"`
}

func (PointTransaction) TableName() string {
	return "point_transactions"
}
