package models

import "time"

// ModerationLog is the admin audit trail. It is written in the same
// transaction as the mutation it describes.
type ModerationLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	AdminID    uint           `gorm:"not null;index" json:"admin_id"`
	ActionType string         `gorm:"size:50;not null;index" json:"action_type"`
	TargetType string         `gorm:"size:30;not null;index:idx_modlog_target,priority:1" json:"target_type"`
	TargetID   uint           `gorm:"not null;index:idx_modlog_target,priority:2" json:"target_id"`
	Reason     string         `gorm:"type:text" json:"reason"`
	Metadata   map[string]any `gorm:"serializer:json;type:text" json:"metadata"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (ModerationLog) TableName() string {
	return "moderation_logs"
}
