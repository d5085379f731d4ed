package repository

import (
	"context"
	"time"

	"tresesenta/internal/domain"
	"tresesenta/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LeaderboardRow struct {
	Position    int    `json:"position" gorm:"-"`
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatar_url"`
	Level       int    `json:"level"`
	Points      int    `json:"points"`
	TotalPoints int    `json:"total_points"`
	PinsCreated int64  `json:"pins_created"`
}

// LedgerRepository is append-only: there is no update or delete.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) WithTx(tx *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: tx}
}

func (r *LedgerRepository) Create(ctx context.Context, t *models.PointTransaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *LedgerRepository) GetByID(ctx context.Context, id uint) (*models.PointTransaction, error) {
	var t models.PointTransaction
	err := r.db.WithContext(ctx).First(&t, id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// LockByID reads a transaction with FOR UPDATE so two reversals of the
// same row serialize.
func (r *LedgerRepository) LockByID(ctx context.Context, id uint) (*models.PointTransaction, error) {
	var t models.PointTransaction
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindReversal returns the transaction that reverses id, if any.
func (r *LedgerRepository) FindReversal(ctx context.Context, id uint) (*models.PointTransaction, error) {
	var list []models.PointTransaction
	err := r.db.WithContext(ctx).Where("reverses_id = ?", id).Limit(1).Find(&list).Error
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// HasAction reports whether the user holds a non-reversal row for code.
func (r *LedgerRepository) HasAction(ctx context.Context, userID uint, code domain.ActionKind) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.PointTransaction{}).
		Where("user_id = ? AND action_code = ? AND reverses_id IS NULL", userID, code).Count(&n).Error
	return n > 0, err
}

// ListByUser returns the newest transactions first.
func (r *LedgerRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.PointTransaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.PointTransaction{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.PointTransaction
	err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

// ChainByUser returns every transaction of a user in write order.
func (r *LedgerRepository) ChainByUser(ctx context.Context, userID uint) ([]models.PointTransaction, error) {
	var list []models.PointTransaction
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *LedgerRepository) SumByUser(ctx context.Context, userID uint) (int, error) {
	var res struct{ Total int }
	err := r.db.WithContext(ctx).Model(&models.PointTransaction{}).
		Select("COALESCE(SUM(points), 0) as total").Where("user_id = ?", userID).Scan(&res).Error
	return res.Total, err
}

func (r *LedgerRepository) SumAll(ctx context.Context) (int64, error) {
	var res struct{ Total int64 }
	err := r.db.WithContext(ctx).Model(&models.PointTransaction{}).
		Select("COALESCE(SUM(points), 0) as total").Scan(&res).Error
	return res.Total, err
}

// Leaderboard ranks users by balance, or by points earned since the given
// time when since is set. Banned users are excluded.
func (r *LedgerRepository) Leaderboard(ctx context.Context, since *time.Time, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	db := r.db.WithContext(ctx)
	if since == nil {
		err := db.Table("users u").
			Select(`u.id as user_id, u.username, u.avatar_url, u.level, u.total_points as points, u.total_points,
				(SELECT COUNT(*) FROM pins p WHERE p.user_id = u.id AND p.deleted_at IS NULL AND p.is_hidden = ?) as pins_created`, false).
			Where("u.deleted_at IS NULL AND u.is_banned = ?", false).
			Order("u.total_points DESC, u.id ASC").
			Limit(limit).
			Scan(&rows).Error
		return rows, err
	}
	err := db.Table("point_transactions pt").
		Select(`u.id as user_id, u.username, u.avatar_url, u.level, SUM(pt.points) as points, u.total_points,
			(SELECT COUNT(*) FROM pins p WHERE p.user_id = u.id AND p.deleted_at IS NULL AND p.is_hidden = ? AND p.created_at >= ?) as pins_created`, false, *since).
		Joins("INNER JOIN users u ON u.id = pt.user_id AND u.deleted_at IS NULL").
		Where("pt.created_at >= ? AND u.is_banned = ?", *since, false).
		Group("u.id, u.username, u.avatar_url, u.level, u.total_points").
		Having("SUM(pt.points) > 0").
		Order("points DESC, u.id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
