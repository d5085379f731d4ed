package models

import "time"

// VerificationRequest is a purchase claim awaiting review. Once Status
// leaves pending it is terminal; a resubmission is a new row.
type VerificationRequest struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	PinID           uint       `gorm:"not null;index" json:"pin_id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	BonusPoints     int        `gorm:"not null;default:0" json:"bonus_points"` // frozen at creation
	Status          string     `gorm:"size:20;not null;index" json:"status"`
	ReviewedBy      *uint      `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ReviewNotes     string     `gorm:"type:text" json:"review_notes,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	EvidenceImages  []string   `gorm:"serializer:json;type:text" json:"evidence_images"`
	BonusPaid       bool       `gorm:"not null;default:false" json:"bonus_paid"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Pin  *Pin  `gorm:"foreignKey:PinID" json:"pin,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (VerificationRequest) TableName() string {
	return "verification_requests"
}
