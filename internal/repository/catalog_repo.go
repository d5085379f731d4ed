package repository

import (
	"context"

	"tresesenta/internal/domain"
	"tresesenta/internal/models"

	"gorm.io/gorm"
)

// CatalogRepository reads and edits point_actions. Nothing here caches:
// admins change limits live.
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) WithTx(tx *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: tx}
}

func (r *CatalogRepository) GetByCode(ctx context.Context, code domain.ActionKind) (*models.PointAction, error) {
	var a models.PointAction
	err := r.db.WithContext(ctx).Where("action_code = ?", code).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Exists reports whether any row, active or not, carries code.
func (r *CatalogRepository) Exists(ctx context.Context, code domain.ActionKind) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PointAction{}).Where("action_code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *CatalogRepository) List(ctx context.Context, activeOnly bool) ([]models.PointAction, error) {
	q := r.db.WithContext(ctx).Model(&models.PointAction{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var list []models.PointAction
	err := q.Order("category ASC, points DESC, id ASC").Find(&list).Error
	return list, err
}

// Update applies a column map; nil pointer limits clear the column.
func (r *CatalogRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.PointAction{}).Where("id = ?", id).Updates(fields).Error
}
