package repository

import (
	"context"

	"tresesenta/internal/models"

	"gorm.io/gorm"
)

// PlaceRepository reads the category and city reference tables and the
// per-user city tallies.
type PlaceRepository struct {
	db *gorm.DB
}

func NewPlaceRepository(db *gorm.DB) *PlaceRepository {
	return &PlaceRepository{db: db}
}

func (r *PlaceRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var list []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error
	return list, err
}

// ListCities filters by state when one is given.
func (r *PlaceRepository) ListCities(ctx context.Context, state string) ([]models.City, error) {
	q := r.db.WithContext(ctx).Model(&models.City{})
	if state != "" {
		q = q.Where("state = ?", state)
	}
	var list []models.City
	err := q.Order("name ASC").Find(&list).Error
	return list, err
}

func (r *PlaceRepository) GetCity(ctx context.Context, id uint) (*models.City, error) {
	var c models.City
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UserCities returns a user's city tallies, most points first.
func (r *PlaceRepository) UserCities(ctx context.Context, userID uint) ([]models.UserCity, error) {
	var list []models.UserCity
	err := r.db.WithContext(ctx).Preload("City").Where("user_id = ?", userID).
		Order("points_earned DESC, city_id ASC").Find(&list).Error
	return list, err
}

// CityActivity counts distinct users and pins recorded for a city.
func (r *PlaceRepository) CityActivity(ctx context.Context, cityID uint) (users, pins int64, err error) {
	var row struct {
		Users int64
		Pins  int64
	}
	err = r.db.WithContext(ctx).Model(&models.UserCity{}).
		Select("COUNT(*) AS users, COALESCE(SUM(pins_count), 0) AS pins").
		Where("city_id = ?", cityID).Scan(&row).Error
	return row.Users, row.Pins, err
}
