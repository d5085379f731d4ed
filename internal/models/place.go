package models

import "time"

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Icon      string    `gorm:"size:50" json:"icon"`
	Color     string    `gorm:"size:20" json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

type City struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	State     string    `gorm:"size:100" json:"state"`
	Latitude  float64   `gorm:"type:decimal(10,7)" json:"latitude"`
	Longitude float64   `gorm:"type:decimal(10,7)" json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

func (City) TableName() string {
	return "cities"
}

// UserCity tracks a user's activity per city; upserted on each city-tagged pin.
type UserCity struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_user_city,priority:1" json:"user_id"`
	CityID       uint      `gorm:"not null;uniqueIndex:idx_user_city,priority:2" json:"city_id"`
	PinsCount    int       `gorm:"not null;default:0" json:"pins_count"`
	PointsEarned int       `gorm:"not null;default:0" json:"points_earned"`
	FirstVisitAt time.Time `json:"first_visit_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	City *City `gorm:"foreignKey:CityID" json:"city,omitempty"`
}

func (UserCity) TableName() string {
	return "user_cities"
}
