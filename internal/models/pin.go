package models

import (
	"time"

	"gorm.io/gorm"
)

// Pin is a geo-tagged post. Latitude/Longitude are plain columns so the
// nearby search can prefilter with a bounding box and refine with Haversine.
type Pin struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UserID             uint           `gorm:"not null;index" json:"user_id"`
	Title              string         `gorm:"size:200;not null" json:"title"`
	Description        string         `gorm:"type:text" json:"description"`
	ImageURLs          []string       `gorm:"serializer:json;type:text" json:"image_urls"`
	Latitude           float64        `gorm:"type:decimal(10,7);not null;index:idx_pin_lat_lng" json:"latitude"`
	Longitude          float64        `gorm:"type:decimal(10,7);not null;index:idx_pin_lat_lng" json:"longitude"`
	LocationName       string         `gorm:"size:255" json:"location_name"`
	CategoryID         *uint          `gorm:"index" json:"category_id"`
	CityID             *uint          `gorm:"index" json:"city_id"`
	UsedTresesenta     bool           `gorm:"not null;default:false" json:"used_tresesenta"`
	VerificationStatus string         `gorm:"size:20;not null;default:'none';index" json:"verification_status"`
	VerifiedBy         *uint          `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time     `json:"verified_at,omitempty"`
	PointsAwarded      int            `gorm:"not null;default:0" json:"points_awarded"` // frozen at creation
	LikesCount         int            `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount      int            `gorm:"not null;default:0" json:"comments_count"`
	IsHidden           bool           `gorm:"not null;default:false;index" json:"is_hidden"`
	HiddenReason       string         `gorm:"size:500" json:"-"`
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	City     *City     `gorm:"foreignKey:CityID" json:"city,omitempty"`
}

func (Pin) TableName() string {
	return "pins"
}
