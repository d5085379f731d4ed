package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"tresesenta/internal/database"
	"tresesenta/internal/domain"
	"tresesenta/internal/models"
	"tresesenta/internal/repository"
	"tresesenta/pkg/apperr"
	"tresesenta/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Settings is the typed snapshot of system_settings, loaded per request.
type Settings struct {
	AutoApproveVerifiedBuyers bool `json:"auto_approve_verified_buyers"`
	CommentCooldownSeconds    int  `json:"comment_cooldown_seconds"`
	PinFallbackPoints         int  `json:"pin_fallback_points"`
	LeaderboardLimit          int  `json:"leaderboard_limit"`
}

func DefaultSettings() Settings {
	return Settings{
		AutoApproveVerifiedBuyers: false,
		CommentCooldownSeconds:    30,
		PinFallbackPoints:         20,
		LeaderboardLimit:          20,
	}
}

// apply parses one stored value. It returns an error for values the
// typed field cannot hold; unknown keys are ignored.
func (s *Settings) apply(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case domain.SettingAutoApproveVerifiedBuyers:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		s.AutoApproveVerifiedBuyers = b
	case domain.SettingCommentCooldownSeconds:
		n, err := parseNonNegative(value)
		if err != nil {
			return err
		}
		s.CommentCooldownSeconds = n
	case domain.SettingPinFallbackPoints:
		n, err := parseNonNegative(value)
		if err != nil {
			return err
		}
		s.PinFallbackPoints = n
	case domain.SettingLeaderboardLimit:
		n, err := parseNonNegative(value)
		if err != nil {
			return err
		}
		if n < 1 || n > 100 {
			return strconv.ErrRange
		}
		s.LeaderboardLimit = n
	}
	return nil
}

func parseNonNegative(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

type SettingsService struct {
	tm       *database.TxManager
	settings *repository.SettingRepository
	users    *repository.UserRepository
	mods     *repository.ModerationRepository
}

func NewSettingsService(tm *database.TxManager) *SettingsService {
	db := tm.DB()
	return &SettingsService{
		tm:       tm,
		settings: repository.NewSettingRepository(db),
		users:    repository.NewUserRepository(db),
		mods:     repository.NewModerationRepository(db),
	}
}

// Load reads the snapshot. Unparsable stored values fall back to their
// default with a warning instead of failing the request.
func (s *SettingsService) Load(ctx context.Context) (Settings, error) {
	return s.load(ctx, s.settings)
}

func (s *SettingsService) loadTx(ctx context.Context, tx *gorm.DB) (Settings, error) {
	return s.load(ctx, s.settings.WithTx(tx))
}

func (s *SettingsService) load(ctx context.Context, repo *repository.SettingRepository) (Settings, error) {
	out := DefaultSettings()
	rows, err := repo.GetAll(ctx)
	if err != nil {
		return out, apperr.Persistence(apperr.CodeStorage, err)
	}
	for _, r := range rows {
		if err := out.apply(r.Key, r.Value); err != nil {
			logger.WithFields(logrus.Fields{"key": r.Key, "value": r.Value}).Warn("invalid setting value, using default")
		}
	}
	return out, nil
}

func (s *SettingsService) List(ctx context.Context) ([]models.SystemSetting, error) {
	list, err := s.settings.GetAll(ctx)
	return list, apperr.Persistence(apperr.CodeStorage, err)
}

// Update validates and stores one recognized key, logging the change in
// the same transaction.
func (s *SettingsService) Update(ctx context.Context, adminID uint, key, value string) (Settings, error) {
	if !domain.IsKnownSetting(key) {
		return Settings{}, apperr.Validation(apperr.CodeUnknownSetting, "unknown setting "+key)
	}
	candidate := DefaultSettings()
	if err := candidate.apply(key, value); err != nil {
		return Settings{}, apperr.Validation(apperr.CodeInvalidInput, "invalid value for "+key)
	}
	value = strings.TrimSpace(value)

	var out Settings
	err := s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := requireAdmin(ctx, s.users.WithTx(tx), adminID); err != nil {
			return err
		}
		var old any
		prev, err := s.settings.WithTx(tx).Get(ctx, key)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return apperr.Persistence(apperr.CodeStorage, err)
		default:
			old = prev
		}
		if err := s.settings.WithTx(tx).Set(ctx, key, value, &adminID); err != nil {
			return err
		}
		if err := modLog(ctx, s.mods.WithTx(tx), adminID, domain.ModUpdateSetting, domain.TargetSetting, 0, key,
			map[string]any{"key": key, "old": old, "new": value}); err != nil {
			return err
		}
		out, err = s.loadTx(ctx, tx)
		return err
	})
	return out, err
}
