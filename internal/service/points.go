package service

import (
	"context"

	"tresesenta/internal/database"
	"tresesenta/internal/domain"
	"tresesenta/internal/models"
	"tresesenta/internal/repository"
	"tresesenta/pkg/apperr"
)

// MyStats is a user's balance plus today's usage of every counted action.
type MyStats struct {
	UserID       uint          `json:"user_id"`
	TotalPoints  int           `json:"total_points"`
	Level        int           `json:"level"`
	LevelName    string        `json:"level_name"`
	Date         string        `json:"date"`
	PointsToday  int           `json:"points_today"`
	Limits       []LimitStatus `json:"limits"`
	LoginStreak  int           `json:"login_streak"`
	ClaimedToday bool          `json:"claimed_today"`
}

type PointsService struct {
	tm      *database.TxManager
	users   *repository.UserRepository
	catalog *Catalog
	counter *Counter
	ledger  *Ledger
	login   *LoginService
}

func NewPointsService(tm *database.TxManager, catalog *Catalog, counter *Counter, ledger *Ledger, login *LoginService) *PointsService {
	return &PointsService{
		tm:      tm,
		users:   repository.NewUserRepository(tm.DB()),
		catalog: catalog,
		counter: counter,
		ledger:  ledger,
		login:   login,
	}
}

// MyStats reports used against the catalog limit for each counted action.
func (s *PointsService) MyStats(ctx context.Context, userID uint) (*MyStats, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, apperr.CodeUserNotFound, "user not found")
	}
	defs, err := s.catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	byCode := make(map[domain.ActionKind]*models.PointAction, len(defs))
	for i := range defs {
		byCode[defs[i].ActionCode] = &defs[i]
	}

	db := s.tm.DB()
	out := &MyStats{
		UserID:      u.ID,
		TotalPoints: u.TotalPoints,
		Level:       u.Level,
		LevelName:   u.LevelName(),
		Date:        s.counter.Today(),
	}
	for _, kind := range domain.AllActionKinds() {
		if !kind.Counted() {
			continue
		}
		st, err := s.counter.CheckLimit(ctx, db, userID, kind, byCode[kind])
		if err != nil {
			return nil, err
		}
		out.Limits = append(out.Limits, st)
	}
	today, err := s.counter.TodayStats(ctx, db, userID)
	if err != nil {
		return nil, apperr.Persistence(apperr.CodeStorage, err)
	}
	if today != nil {
		out.PointsToday = today.PointsEarned
		out.ClaimedToday = today.LoginClaimedAt != nil
	}
	if out.LoginStreak, err = s.login.Streak(ctx, userID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PointsService) History(ctx context.Context, userID uint, page, limit int) ([]models.PointTransaction, int64, error) {
	page, limit = Page(page, limit)
	return s.ledger.History(ctx, userID, limit, (page-1)*limit)
}
