package service

import (
	"context"
	"errors"

	"tresesenta/internal/models"
	"tresesenta/internal/repository"
	"tresesenta/pkg/apperr"

	"gorm.io/gorm"
)

// Events receives notifications after a unit of work commits. The ws
// package implements it; tests and headless callers use NopEvents.
type Events interface {
	PointsAwarded(userID uint, tx *models.PointTransaction)
	LikeCount(pinID uint, likes int)
	CommentCreated(pinID uint, comment *models.Comment)
}

type NopEvents struct{}

func (NopEvents) PointsAwarded(uint, *models.PointTransaction) {}
func (NopEvents) LikeCount(uint, int)                          {}
func (NopEvents) CommentCreated(uint, *models.Comment)         {}

// notFoundOr maps a missing row to a NotFound AppError and anything else
// to a Persistence error.
func notFoundOr(err error, code, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(code, msg)
	}
	return apperr.Persistence(apperr.CodeStorage, err)
}

// requireAdmin re-reads the acting user; the JWT role alone is not trusted
// for state transitions.
func requireAdmin(ctx context.Context, users *repository.UserRepository, adminID uint) (*models.User, error) {
	u, err := users.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Forbidden(apperr.CodeAdminRequired, "admin access required")
		}
		return nil, apperr.Persistence(apperr.CodeStorage, err)
	}
	if !u.IsAdmin || u.IsBanned {
		return nil, apperr.Forbidden(apperr.CodeAdminRequired, "admin access required")
	}
	return u, nil
}

// lockEarner locks the user row and rejects suspended accounts.
func lockEarner(ctx context.Context, users *repository.UserRepository, userID uint) (*models.User, error) {
	u, err := users.LockByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, apperr.CodeUserNotFound, "user not found")
	}
	if u.IsBanned {
		return nil, apperr.Forbidden(apperr.CodeAccountSuspended, "account suspended")
	}
	return u, nil
}

func modLog(ctx context.Context, repo *repository.ModerationRepository, adminID uint, action, targetType string, targetID uint, reason string, meta map[string]any) error {
	return repo.Create(ctx, &models.ModerationLog{
		AdminID:    adminID,
		ActionType: action,
		TargetType: targetType,
		TargetID:   targetID,
		Reason:     reason,
		Metadata:   meta,
	})
}

// Page normalizes page/limit the way the handlers parse them.
func Page(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
