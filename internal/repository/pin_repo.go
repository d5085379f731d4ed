package repository

import (
	"context"
	"sort"
	"time"

	"tresesenta/internal/models"
	"tresesenta/pkg/location"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PinFilters struct {
	CategoryID         *uint
	CityID             *uint
	UserID             *uint
	VerificationStatus string
	// IncludeHidden lists hidden pins too; Hidden then narrows to one state.
	IncludeHidden bool
	Hidden        *bool
	Page          int
	Limit         int
}

type NearbyPin struct {
	models.Pin
	DistanceKm float64            `json:"distance_km"`
	Closeness  location.Closeness `json:"closeness"`
}

type PinRepository struct {
	db *gorm.DB
}

func NewPinRepository(db *gorm.DB) *PinRepository {
	return &PinRepository{db: db}
}

func (r *PinRepository) WithTx(tx *gorm.DB) *PinRepository {
	return &PinRepository{db: tx}
}

func (r *PinRepository) Create(ctx context.Context, p *models.Pin) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

// GetByID returns a pin including hidden ones; callers decide visibility.
func (r *PinRepository) GetByID(ctx context.Context, id uint) (*models.Pin, error) {
	var p models.Pin
	err := r.db.WithContext(ctx).Preload("User").Preload("Category").Preload("City").First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PinRepository) LockByID(ctx context.Context, id uint) (*models.Pin, error) {
	var p models.Pin
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns pins newest first, visible ones only unless f.IncludeHidden.
func (r *PinRepository) List(ctx context.Context, f PinFilters) ([]models.Pin, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Pin{})
	switch {
	case !f.IncludeHidden:
		q = q.Where("is_hidden = ?", false)
	case f.Hidden != nil:
		q = q.Where("is_hidden = ?", *f.Hidden)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.CityID != nil {
		q = q.Where("city_id = ?", *f.CityID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.VerificationStatus != "" {
		q = q.Where("verification_status = ?", f.VerificationStatus)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Pin
	err := q.Preload("User").Preload("Category").Preload("City").
		Order("created_at DESC, id DESC").Limit(f.Limit).Offset((f.Page - 1) * f.Limit).Find(&list).Error
	return list, total, err
}

// Nearby returns visible pins within radiusKm, closest first.
// Uses Haversine in application layer after bounding box pre-filter for performance.
func (r *PinRepository) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]NearbyPin, error) {
	box := location.BoundingBox(lat, lng, radiusKm)
	var candidates []models.Pin
	err := r.db.WithContext(ctx).
		Where("is_hidden = ?", false).
		Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?", box.MinLat, box.MaxLat, box.MinLng, box.MaxLng).
		Preload("Category").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	out := make([]NearbyPin, 0, len(candidates))
	for _, p := range candidates {
		d := location.HaversineKm(lat, lng, p.Latitude, p.Longitude)
		if d <= radiusKm {
			out = append(out, NearbyPin{Pin: p, DistanceKm: d, Closeness: location.ClosenessOf(d, radiusKm)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *PinRepository) UpdateVerification(ctx context.Context, pinID uint, status string, by *uint, at *time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Pin{}).Where("id = ?", pinID).
		Updates(map[string]interface{}{"verification_status": status, "verified_by": by, "verified_at": at}).Error
}

func (r *PinRepository) SetHidden(ctx context.Context, pinID uint, hidden bool, reason string) error {
	return r.db.WithContext(ctx).Model(&models.Pin{}).Where("id = ?", pinID).
		Updates(map[string]interface{}{"is_hidden": hidden, "hidden_reason": reason}).Error
}

// AddLikes moves likes_count by delta and returns the new value.
func (r *PinRepository) AddLikes(ctx context.Context, pinID uint, delta int) (int, error) {
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Pin{}).Where("id = ?", pinID).
		UpdateColumn("likes_count", gorm.Expr("likes_count + ?", delta)).Error; err != nil {
		return 0, err
	}
	var p models.Pin
	err := db.Select("likes_count").First(&p, pinID).Error
	return p.LikesCount, err
}

func (r *PinRepository) AddComments(ctx context.Context, pinID uint, delta int) error {
	return r.db.WithContext(ctx).Model(&models.Pin{}).Where("id = ?", pinID).
		UpdateColumn("comments_count", gorm.Expr("comments_count + ?", delta)).Error
}

// CreateLike inserts the like; the unique (user, pin) index rejects duplicates.
func (r *PinRepository) CreateLike(ctx context.Context, l *models.Like) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *PinRepository) HasLiked(ctx context.Context, userID, pinID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("user_id = ? AND pin_id = ?", userID, pinID).Count(&n).Error
	return n > 0, err
}

// DeleteLike returns false when there was nothing to delete.
func (r *PinRepository) DeleteLike(ctx context.Context, userID, pinID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND pin_id = ?", userID, pinID).Delete(&models.Like{})
	return res.RowsAffected > 0, res.Error
}

func (r *PinRepository) CreateComment(ctx context.Context, c *models.Comment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

func (r *PinRepository) ListComments(ctx context.Context, pinID uint, page, limit int) ([]models.Comment, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Comment{}).Where("pin_id = ?", pinID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Comment
	err := q.Preload("User").Order("created_at ASC, id ASC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}

// UpsertUserCity counts a pin and its points towards the user's city.
func (r *PinRepository) UpsertUserCity(ctx context.Context, userID, cityID uint, points int, at time.Time) error {
	row := models.UserCity{UserID: userID, CityID: cityID, PinsCount: 1, PointsEarned: points, FirstVisitAt: at, UpdatedAt: at}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "city_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"pins_count":    gorm.Expr("user_cities.pins_count + 1"),
			"points_earned": gorm.Expr("user_cities.points_earned + ?", points),
			"updated_at":    at,
		}),
	}).Create(&row).Error
}

func (r *PinRepository) CategoryExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *PinRepository) CityExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.City{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// CountVisibleByUser counts a user's pins that are not hidden.
func (r *PinRepository) CountVisibleByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Pin{}).
		Where("user_id = ? AND is_hidden = ?", userID, false).Count(&n).Error
	return n, err
}

// LikesReceived sums likes over a user's visible pins.
func (r *PinRepository) LikesReceived(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Pin{}).
		Select("COALESCE(SUM(likes_count), 0)").
		Where("user_id = ? AND is_hidden = ?", userID, false).Scan(&n).Error
	return n, err
}

func (r *PinRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Pin{}).Count(&n).Error
	return n, err
}
