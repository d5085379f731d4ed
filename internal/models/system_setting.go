package models

import "time"

// SystemSetting stores admin-configurable key/value settings. Values are
// parsed into service.Settings; nothing reads them by key elsewhere.
type SystemSetting struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Key         string    `gorm:"column:setting_key;uniqueIndex;size:100;not null" json:"key"`
	Value       string    `gorm:"column:setting_value;size:255;not null" json:"value"`
	Description string    `gorm:"size:255" json:"description"`
	UpdatedBy   *uint     `json:"updated_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (SystemSetting) TableName() string { return "system_settings" }
