package repository

import (
	"context"

	"tresesenta/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VerificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(db *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func (r *VerificationRepository) WithTx(tx *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: tx}
}

func (r *VerificationRepository) Create(ctx context.Context, v *models.VerificationRequest) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *VerificationRepository) GetByID(ctx context.Context, id uint) (*models.VerificationRequest, error) {
	var v models.VerificationRequest
	err := r.db.WithContext(ctx).Preload("Pin").First(&v, id).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// LockByID takes the request row FOR UPDATE so concurrent reviewers queue
// behind each other and the second one sees the terminal status.
func (r *VerificationRepository) LockByID(ctx context.Context, id uint) (*models.VerificationRequest, error) {
	var v models.VerificationRequest
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&v, id).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// LatestForPin returns the newest request of a pin, or nil.
func (r *VerificationRepository) LatestForPin(ctx context.Context, pinID uint) (*models.VerificationRequest, error) {
	var list []models.VerificationRequest
	err := r.db.WithContext(ctx).Where("pin_id = ?", pinID).Order("id DESC").Limit(1).Find(&list).Error
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// LockLatestForPin is LatestForPin with FOR UPDATE.
func (r *VerificationRepository) LockLatestForPin(ctx context.Context, pinID uint) (*models.VerificationRequest, error) {
	var list []models.VerificationRequest
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("pin_id = ?", pinID).Order("id DESC").Limit(1).Find(&list).Error
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

func (r *VerificationRepository) Save(ctx context.Context, v *models.VerificationRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(v).Error
}

func (r *VerificationRepository) ListByUser(ctx context.Context, userID uint) ([]models.VerificationRequest, error) {
	var list []models.VerificationRequest
	err := r.db.WithContext(ctx).Preload("Pin").Where("user_id = ?", userID).Order("id DESC").Find(&list).Error
	return list, err
}

// List returns requests with an optional status filter, oldest first so
// the review queue is FIFO.
func (r *VerificationRepository) List(ctx context.Context, status string, page, limit int) ([]models.VerificationRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.VerificationRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.VerificationRequest
	err := q.Preload("Pin").Preload("User").Order("created_at ASC, id ASC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}

func (r *VerificationRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.VerificationRequest{}).Where("status = ?", status).Count(&n).Error
	return n, err
}
