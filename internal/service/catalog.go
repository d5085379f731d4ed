package service

import (
	"context"
	"errors"

	"tresesenta/internal/database"
	"tresesenta/internal/domain"
	"tresesenta/internal/models"
	"tresesenta/internal/repository"
	"tresesenta/pkg/apperr"

	"gorm.io/gorm"
)

// Catalog resolves action codes to their point definitions. Every lookup
// reads the table; there is no cache because admins edit rows live.
type Catalog struct {
	tm    *database.TxManager
	repo  *repository.CatalogRepository
	users *repository.UserRepository
	mods  *repository.ModerationRepository
}

func NewCatalog(tm *database.TxManager) *Catalog {
	db := tm.DB()
	return &Catalog{
		tm:    tm,
		repo:  repository.NewCatalogRepository(db),
		users: repository.NewUserRepository(db),
		mods:  repository.NewModerationRepository(db),
	}
}

func disabledAction(kind domain.ActionKind) error {
	return apperr.Disabled(apperr.CodeFeatureDisabled, "feature disabled").With("action_code", string(kind))
}

// Lookup returns the active definition of kind. A missing or inactive
// row is a Disabled error.
func (c *Catalog) Lookup(ctx context.Context, kind domain.ActionKind) (*models.PointAction, error) {
	return lookup(ctx, c.repo, kind)
}

func lookup(ctx context.Context, repo *repository.CatalogRepository, kind domain.ActionKind) (*models.PointAction, error) {
	a, err := repo.GetByCode(ctx, kind)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, disabledAction(kind)
	}
	if err != nil {
		return nil, apperr.Persistence(apperr.CodeStorage, err)
	}
	if !a.IsActive {
		return nil, disabledAction(kind)
	}
	return a, nil
}

// LookupWithFallback is the create_pin lookup. With no catalog row it
// returns a synthetic definition worth settings.PinFallbackPoints and no
// bonus, so pin creation works before the catalog is seeded. An inactive
// row still rejects. The returned bool reports the fallback.
func (c *Catalog) LookupWithFallback(ctx context.Context, kind domain.ActionKind, s Settings) (*models.PointAction, bool, error) {
	if kind != domain.ActionCreatePin {
		a, err := c.Lookup(ctx, kind)
		return a, false, err
	}
	a, err := c.repo.GetByCode(ctx, kind)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.PointAction{
			ActionCode: kind,
			ActionName: "Crear pin",
			Points:     s.PinFallbackPoints,
			IsActive:   true,
		}, true, nil
	}
	if err != nil {
		return nil, false, apperr.Persistence(apperr.CodeStorage, err)
	}
	if !a.IsActive {
		return nil, false, disabledAction(kind)
	}
	return a, false, nil
}

// ListActive is the public catalog.
func (c *Catalog) ListActive(ctx context.Context) ([]models.PointAction, error) {
	list, err := c.repo.List(ctx, true)
	return list, apperr.Persistence(apperr.CodeStorage, err)
}

func (c *Catalog) ListAll(ctx context.Context) ([]models.PointAction, error) {
	list, err := c.repo.List(ctx, false)
	return list, apperr.Persistence(apperr.CodeStorage, err)
}

// ActionUpdate is a partial edit. Clear* flags null the optional limits.
type ActionUpdate struct {
	Points          *int
	DailyLimit      *int
	ClearDailyLimit bool
	CooldownSeconds *int
	ClearCooldown   bool
	BonusPoints     *int
	IsActive        *bool
	Description     *string
}

func (u ActionUpdate) validate() error {
	if u.DailyLimit != nil && *u.DailyLimit < 0 {
		return apperr.Validation(apperr.CodeInvalidInput, "daily_limit must be >= 0")
	}
	if u.CooldownSeconds != nil && *u.CooldownSeconds < 0 {
		return apperr.Validation(apperr.CodeInvalidInput, "cooldown_seconds must be >= 0")
	}
	if u.BonusPoints != nil && *u.BonusPoints < 0 {
		return apperr.Validation(apperr.CodeInvalidInput, "bonus_points must be >= 0")
	}
	return nil
}

func (u ActionUpdate) fields() map[string]interface{} {
	f := map[string]interface{}{}
	if u.Points != nil {
		f["points"] = *u.Points
	}
	if u.ClearDailyLimit {
		f["daily_limit"] = nil
	} else if u.DailyLimit != nil {
		f["daily_limit"] = *u.DailyLimit
	}
	if u.ClearCooldown {
		f["cooldown_seconds"] = nil
	} else if u.CooldownSeconds != nil {
		f["cooldown_seconds"] = *u.CooldownSeconds
	}
	if u.BonusPoints != nil {
		f["bonus_points"] = *u.BonusPoints
	}
	if u.IsActive != nil {
		f["is_active"] = *u.IsActive
	}
	if u.Description != nil {
		f["description"] = *u.Description
	}
	return f
}

// Update edits one catalog row. Past ledger rows are untouched; pending
// verification requests keep their frozen bonus.
func (c *Catalog) Update(ctx context.Context, adminID uint, kind domain.ActionKind, u ActionUpdate) (*models.PointAction, error) {
	if !kind.Valid() {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "unknown action code")
	}
	if err := u.validate(); err != nil {
		return nil, err
	}
	fields := u.fields()
	if len(fields) == 0 {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "nothing to update")
	}

	var out *models.PointAction
	err := c.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := requireAdmin(ctx, c.users.WithTx(tx), adminID); err != nil {
			return err
		}
		repo := c.repo.WithTx(tx)
		before, err := repo.GetByCode(ctx, kind)
		if err != nil {
			return notFoundOr(err, apperr.CodeActionNotFound, "action not found")
		}
		if err := repo.Update(ctx, before.ID, fields); err != nil {
			return err
		}
		after, err := repo.GetByCode(ctx, kind)
		if err != nil {
			return err
		}
		out = after
		return modLog(ctx, c.mods.WithTx(tx), adminID, domain.ModUpdatePointAction, domain.TargetPointAction, before.ID,
			string(kind), map[string]any{"changes": fields})
	})
	return out, err
}
