package repository

import (
	"context"
	"fmt"
	"time"

	"tresesenta/internal/domain"
	"tresesenta/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyStatRepository keeps one row per (user, day). Writes are upserts
// that increment on conflict, so concurrent first-actions of a day merge.
type DailyStatRepository struct {
	db *gorm.DB
}

func NewDailyStatRepository(db *gorm.DB) *DailyStatRepository {
	return &DailyStatRepository{db: db}
}

func (r *DailyStatRepository) WithTx(tx *gorm.DB) *DailyStatRepository {
	return &DailyStatRepository{db: tx}
}

// Get returns the row for the day, or nil when none exists yet.
func (r *DailyStatRepository) Get(ctx context.Context, userID uint, date string) (*models.DailyStat, error) {
	var list []models.DailyStat
	err := r.db.WithContext(ctx).Where("user_id = ? AND stat_date = ?", userID, date).Limit(1).Find(&list).Error
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

func (r *DailyStatRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.DailyStat, error) {
	var list []models.DailyStat
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("stat_date DESC").Limit(limit).Find(&list).Error
	return list, err
}

func upsertConflict(assign map[string]interface{}) clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "stat_date"}},
		DoUpdates: clause.Assignments(assign),
	}
}

// Increment counts one occurrence of a counted kind, stamps its last-at
// column and adds points. Calling it twice counts twice.
func (r *DailyStatRepository) Increment(ctx context.Context, userID uint, date string, kind domain.ActionKind, at time.Time, points int) error {
	countCol, ok := models.CountColumn(kind)
	if !ok {
		return fmt.Errorf("action %s has no daily counter", kind)
	}
	lastCol, _ := models.LastAtColumn(kind)

	row := models.DailyStat{UserID: userID, StatDate: date, PointsEarned: points, CreatedAt: at, UpdatedAt: at}
	switch kind {
	case domain.ActionCreatePin:
		row.PinsCreated, row.LastPinAt = 1, &at
	case domain.ActionLikePin:
		row.LikesGiven, row.LastLikeAt = 1, &at
	case domain.ActionCommentPin:
		row.CommentsMade, row.LastCommentAt = 1, &at
	}
	return r.db.WithContext(ctx).Clauses(upsertConflict(map[string]interface{}{
		countCol:        gorm.Expr(qualified(countCol) + " + 1"),
		lastCol:         at,
		"points_earned": gorm.Expr(qualified("points_earned")+" + ?", points),
		"updated_at":    at,
	})).Create(&row).Error
}

// AddPoints records points earned without counting an action, e.g. a
// like received or a login bonus.
func (r *DailyStatRepository) AddPoints(ctx context.Context, userID uint, date string, at time.Time, points int) error {
	row := models.DailyStat{UserID: userID, StatDate: date, PointsEarned: points, CreatedAt: at, UpdatedAt: at}
	return r.db.WithContext(ctx).Clauses(upsertConflict(map[string]interface{}{
		"points_earned": gorm.Expr(qualified("points_earned")+" + ?", points),
		"updated_at":    at,
	})).Create(&row).Error
}

// MarkLogin stores the day's claim marker and streak.
func (r *DailyStatRepository) MarkLogin(ctx context.Context, userID uint, date string, at time.Time, streak, points int) error {
	row := models.DailyStat{
		UserID:         userID,
		StatDate:       date,
		LoginStreak:    streak,
		LoginClaimedAt: &at,
		PointsEarned:   points,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	return r.db.WithContext(ctx).Clauses(upsertConflict(map[string]interface{}{
		"login_streak":     streak,
		"login_claimed_at": at,
		"points_earned":    gorm.Expr(qualified("points_earned")+" + ?", points),
		"updated_at":       at,
	})).Create(&row).Error
}

// qualified prefixes a column with the table so the conflict update reads
// the stored value on every dialect.
func qualified(col string) string {
	return models.DailyStat{}.TableName() + "." + col
}
