package repository

import (
	"context"

	"tresesenta/internal/models"

	"gorm.io/gorm"
)

type ModerationFilters struct {
	AdminID    *uint
	ActionType string
	TargetType string
	Page       int
	Limit      int
}

type ModerationRepository struct {
	db *gorm.DB
}

func NewModerationRepository(db *gorm.DB) *ModerationRepository {
	return &ModerationRepository{db: db}
}

func (r *ModerationRepository) WithTx(tx *gorm.DB) *ModerationRepository {
	return &ModerationRepository{db: tx}
}

func (r *ModerationRepository) Create(ctx context.Context, l *models.ModerationLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

// List returns logs newest first.
func (r *ModerationRepository) List(ctx context.Context, f ModerationFilters) ([]models.ModerationLog, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ModerationLog{})
	if f.AdminID != nil {
		q = q.Where("admin_id = ?", *f.AdminID)
	}
	if f.ActionType != "" {
		q = q.Where("action_type = ?", f.ActionType)
	}
	if f.TargetType != "" {
		q = q.Where("target_type = ?", f.TargetType)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.ModerationLog
	err := q.Order("id DESC").Limit(f.Limit).Offset((f.Page - 1) * f.Limit).Find(&list).Error
	return list, total, err
}
