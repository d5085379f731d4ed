package repository

import (
	"context"
	"time"

	"tresesenta/internal/models"

	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalUsers           int64 `json:"total_users"`
	BannedUsers          int64 `json:"banned_users"`
	VerifiedBuyers       int64 `json:"verified_buyers"`
	TotalPins            int64 `json:"total_pins"`
	HiddenPins           int64 `json:"hidden_pins"`
	PendingVerifications int64 `json:"pending_verifications"`
	TotalTransactions    int64 `json:"total_transactions"`
	PointsInCirculation  int64 `json:"points_in_circulation"`
}

type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// AdminRepository holds the read-only aggregate queries of the admin
// dashboard. Each method is independent so callers can run them in parallel.
type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) CountUsers(ctx context.Context) (total, banned, verifiedBuyers int64, err error) {
	db := r.db.WithContext(ctx)
	if err = db.Model(&models.User{}).Count(&total).Error; err != nil {
		return
	}
	if err = db.Model(&models.User{}).Where("is_banned = ?", true).Count(&banned).Error; err != nil {
		return
	}
	err = db.Model(&models.User{}).Where("is_verified_buyer = ?", true).Count(&verifiedBuyers).Error
	return
}

func (r *AdminRepository) CountPins(ctx context.Context) (total, hidden int64, err error) {
	db := r.db.WithContext(ctx)
	if err = db.Model(&models.Pin{}).Count(&total).Error; err != nil {
		return
	}
	err = db.Model(&models.Pin{}).Where("is_hidden = ?", true).Count(&hidden).Error
	return
}

func (r *AdminRepository) CountPendingVerifications(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.VerificationRequest{}).Where("status = ?", "pending").Count(&n).Error
	return n, err
}

func (r *AdminRepository) LedgerTotals(ctx context.Context) (count, sum int64, err error) {
	var res struct {
		Count int64
		Total int64
	}
	err = r.db.WithContext(ctx).Model(&models.PointTransaction{}).
		Select("COUNT(*) as count, COALESCE(SUM(points), 0) as total").Scan(&res).Error
	return res.Count, res.Total, err
}

// PinsByDay returns daily pin counts for the last N days.
func (r *AdminRepository) PinsByDay(ctx context.Context, days int) ([]TimeSeriesPoint, error) {
	since := time.Now().AddDate(0, 0, -days)
	var points []TimeSeriesPoint
	err := r.db.WithContext(ctx).Model(&models.Pin{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&points).Error
	return points, err
}
