package service

import (
	"context"
	"fmt"

	"tresesenta/internal/database"
	"tresesenta/internal/domain"
	"tresesenta/internal/models"
	"tresesenta/internal/repository"
	"tresesenta/pkg/apperr"
	"tresesenta/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// streakBonuses maps exact streak values to their one-off bonus action.
var streakBonuses = map[int]domain.ActionKind{
	7:  domain.ActionStreak7Days,
	30: domain.ActionStreak30Days,
}

type LoginClaim struct {
	Streak              int                       `json:"streak"`
	AlreadyClaimedToday bool                      `json:"already_claimed_today"`
	PointsAwarded       int                       `json:"points_awarded"`
	BonusAwarded        int                       `json:"bonus_awarded"`
	BonusAction         domain.ActionKind         `json:"bonus_action,omitempty"`
	Transactions        []models.PointTransaction `json:"transactions,omitempty"`
}

type LoginService struct {
	tm      *database.TxManager
	users   *repository.UserRepository
	stats   *repository.DailyStatRepository
	catalog *repository.CatalogRepository
	ledger  *Ledger
	counter *Counter
	events  Events
}

func NewLoginService(tm *database.TxManager, ledger *Ledger, counter *Counter, events Events) *LoginService {
	if events == nil {
		events = NopEvents{}
	}
	db := tm.DB()
	return &LoginService{
		tm:      tm,
		users:   repository.NewUserRepository(db),
		stats:   repository.NewDailyStatRepository(db),
		catalog: repository.NewCatalogRepository(db),
		ledger:  ledger,
		counter: counter,
		events:  events,
	}
}

// ClaimDailyLogin pays daily_login once per calendar day. The streak is
// yesterday's streak + 1, or 1 after any gap; hitting exactly 7 or 30 pays
// the matching streak bonus. A second claim the same day writes nothing.
func (s *LoginService) ClaimDailyLogin(ctx context.Context, userID uint) (*LoginClaim, error) {
	out := &LoginClaim{}
	now := s.counter.now()
	day := s.counter.Day(now)
	err := s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := lockEarner(ctx, s.users.WithTx(tx), userID); err != nil {
			return err
		}
		def, err := lookup(ctx, s.catalog.WithTx(tx), domain.ActionDailyLogin)
		if err != nil {
			return err
		}

		stats := s.stats.WithTx(tx)
		today, err := stats.Get(ctx, userID, day)
		if err != nil {
			return err
		}
		if today != nil && today.LoginClaimedAt != nil {
			out.AlreadyClaimedToday = true
			out.Streak = today.LoginStreak
			return nil
		}
		yesterday, err := stats.Get(ctx, userID, s.counter.PreviousDay(now))
		if err != nil {
			return err
		}
		streak := 1
		if yesterday != nil && yesterday.LoginClaimedAt != nil && yesterday.LoginStreak > 0 {
			streak = yesterday.LoginStreak + 1
		}
		out.Streak = streak

		if def.Points != 0 {
			t, err := s.ledger.Record(ctx, tx, Entry{
				UserID:      userID,
				Action:      domain.ActionDailyLogin,
				Points:      def.Points,
				Description: fmt.Sprintf("Daily login (streak %d)", streak),
			})
			if err != nil {
				return err
			}
			out.PointsAwarded = def.Points
			out.Transactions = append(out.Transactions, *t)
		}

		if kind, ok := streakBonuses[streak]; ok {
			bonus, err := lookup(ctx, s.catalog.WithTx(tx), kind)
			switch {
			case apperr.KindOf(err) == apperr.KindDisabled:
				logger.WithFields(logrus.Fields{"user_id": userID, "action": string(kind)}).Warn("streak bonus disabled, skipping")
			case err != nil:
				return err
			case bonus.Points != 0:
				t, err := s.ledger.Record(ctx, tx, Entry{
					UserID:      userID,
					Action:      kind,
					Points:      bonus.Points,
					Description: fmt.Sprintf("%d-day login streak", streak),
				})
				if err != nil {
					return err
				}
				out.BonusAwarded = bonus.Points
				out.BonusAction = kind
				out.Transactions = append(out.Transactions, *t)
				logger.WithFields(logrus.Fields{"user_id": userID, "streak": streak, "points": bonus.Points}).Info("streak bonus awarded")
			}
		}

		return stats.MarkLogin(ctx, userID, day, now, streak, out.PointsAwarded+out.BonusAwarded)
	})
	if err != nil {
		return nil, err
	}
	for i := range out.Transactions {
		s.events.PointsAwarded(userID, &out.Transactions[i])
	}
	return out, nil
}

// Streak returns the current streak: today's if claimed, else yesterday's
// (still extendable), else 0.
func (s *LoginService) Streak(ctx context.Context, userID uint) (int, error) {
	today, err := s.stats.Get(ctx, userID, s.counter.Today())
	if err != nil {
		return 0, apperr.Persistence(apperr.CodeStorage, err)
	}
	if today != nil && today.LoginClaimedAt != nil {
		return today.LoginStreak, nil
	}
	y, err := s.stats.Get(ctx, userID, s.counter.Yesterday())
	if err != nil {
		return 0, apperr.Persistence(apperr.CodeStorage, err)
	}
	if y != nil && y.LoginClaimedAt != nil {
		return y.LoginStreak, nil
	}
	return 0, nil
}
