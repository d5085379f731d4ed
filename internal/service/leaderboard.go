package service

import (
	"context"
	"fmt"
	"time"

	"tresesenta/internal/database"
	"tresesenta/internal/domain"
	"tresesenta/internal/repository"
	"tresesenta/pkg/apperr"
	"tresesenta/pkg/cache"
)

type Leaderboard struct {
	Period  string                      `json:"period"`
	Entries []repository.LeaderboardRow `json:"entries"`
}

// LeaderboardService ranks users and keeps each (period, limit) result for
// a short TTL. Writes never invalidate it; readers see at most ttl of lag.
type LeaderboardService struct {
	txs      *repository.LedgerRepository
	settings *SettingsService
	cache    *cache.TTL[*Leaderboard]
	now      func() time.Time
}

func NewLeaderboardService(tm *database.TxManager, settings *SettingsService, ttl time.Duration, now func() time.Time) (*LeaderboardService, error) {
	if now == nil {
		now = time.Now
	}
	c, err := cache.NewTTL[*Leaderboard](64, ttl)
	if err != nil {
		return nil, fmt.Errorf("leaderboard cache: %w", err)
	}
	return &LeaderboardService{
		txs:      repository.NewLedgerRepository(tm.DB()),
		settings: settings,
		cache:    c,
		now:      now,
	}, nil
}

func (s *LeaderboardService) since(period string) (*time.Time, error) {
	var t time.Time
	switch period {
	case domain.PeriodAll:
		return nil, nil
	case domain.PeriodWeek:
		t = s.now().AddDate(0, 0, -7)
	case domain.PeriodMonth:
		t = s.now().AddDate(0, 0, -30)
	default:
		return nil, apperr.Validation(apperr.CodeInvalidInput, "period must be all, week or month")
	}
	return &t, nil
}

// Get returns the ranking for period. limit <= 0 uses the leaderboard_limit
// setting.
func (s *LeaderboardService) Get(ctx context.Context, period string, limit int) (*Leaderboard, error) {
	if period == "" {
		period = domain.PeriodAll
	}
	since, err := s.since(period)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		settings, err := s.settings.Load(ctx)
		if err != nil {
			return nil, err
		}
		limit = settings.LeaderboardLimit
	}
	if limit > 100 {
		limit = 100
	}

	key := fmt.Sprintf("%s:%d", period, limit)
	if lb, ok := s.cache.Get(key); ok {
		return lb, nil
	}
	rows, err := s.txs.Leaderboard(ctx, since, limit)
	if err != nil {
		return nil, apperr.Persistence(apperr.CodeStorage, err)
	}
	for i := range rows {
		rows[i].Position = i + 1
	}
	lb := &Leaderboard{Period: period, Entries: rows}
	s.cache.Set(key, lb)
	return lb, nil
}

func (s *LeaderboardService) Invalidate() {
	s.cache.Purge()
}
