package service

import (
	"context"
	"strings"

	"tresesenta/internal/database"
	"tresesenta/internal/domain"
	"tresesenta/internal/models"
	"tresesenta/internal/repository"
	"tresesenta/pkg/apperr"
	"tresesenta/pkg/logger"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type UserFilters struct {
	Search string
	Banned *bool
	Page   int
	Limit  int
}

// VerifiedBuyerResult reports the toggle and the verified_purchase credit
// it produced, if any.
type VerifiedBuyerResult struct {
	User        *models.User             `json:"user"`
	Transaction *models.PointTransaction `json:"transaction,omitempty"`
}

type Stats struct {
	repository.DashboardStats
	PinsLast30Days []repository.TimeSeriesPoint `json:"pins_last_30_days"`
}

// AdminService holds the moderation operations that are not owned by the
// catalog, settings, ledger or verification services.
type AdminService struct {
	tm      *database.TxManager
	users   *repository.UserRepository
	pins    *repository.PinRepository
	mods    *repository.ModerationRepository
	stats   *repository.AdminRepository
	catalog *repository.CatalogRepository
	txs     *repository.LedgerRepository
	ledger  *Ledger
	counter *Counter
	events  Events
}

func NewAdminService(tm *database.TxManager, ledger *Ledger, counter *Counter, events Events) *AdminService {
	if events == nil {
		events = NopEvents{}
	}
	db := tm.DB()
	return &AdminService{
		tm:      tm,
		users:   repository.NewUserRepository(db),
		pins:    repository.NewPinRepository(db),
		mods:    repository.NewModerationRepository(db),
		stats:   repository.NewAdminRepository(db),
		catalog: repository.NewCatalogRepository(db),
		txs:     repository.NewLedgerRepository(db),
		ledger:  ledger,
		counter: counter,
		events:  events,
	}
}

// lockTarget locks the user an admin acts on.
func lockTarget(ctx context.Context, users *repository.UserRepository, userID uint) (*models.User, error) {
	u, err := users.LockByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, apperr.CodeUserNotFound, "user not found")
	}
	return u, nil
}

func (s *AdminService) BanUser(ctx context.Context, adminID, userID uint, reason string) (*models.User, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "reason is required")
	}
	if adminID == userID {
		return nil, apperr.Conflict(apperr.CodeSelfTarget, "admins cannot ban themselves")
	}
	return s.setBanned(ctx, adminID, userID, true, reason)
}

func (s *AdminService) UnbanUser(ctx context.Context, adminID, userID uint, reason string) (*models.User, error) {
	return s.setBanned(ctx, adminID, userID, false, strings.TrimSpace(reason))
}

func (s *AdminService) setBanned(ctx context.Context, adminID, userID uint, banned bool, reason string) (*models.User, error) {
	var out *models.User
	err := s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		if _, err := requireAdmin(ctx, users, adminID); err != nil {
			return err
		}
		u, err := lockTarget(ctx, users, userID)
		if err != nil {
			return err
		}
		stored := reason
		if !banned {
			stored = ""
		}
		if err := users.SetBanned(ctx, userID, banned, stored); err != nil {
			return apperr.Persistence(apperr.CodeStorage, err)
		}
		u.IsBanned = banned
		u.BanReason = stored
		out = u
		action := domain.ModBanUser
		if !banned {
			action = domain.ModUnbanUser
		}
		return modLog(ctx, s.mods.WithTx(tx), adminID, action, domain.TargetUser, userID, reason, nil)
	})
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"admin_id": adminID, "user_id": userID, "banned": banned}).Info("user ban state changed")
	return out, nil
}

// SetVerifiedBuyer toggles the verified-buyer flag. The first false to true
// transition credits verified_purchase when that action is active; toggling
// back and forth does not pay again.
func (s *AdminService) SetVerifiedBuyer(ctx context.Context, adminID, userID uint, verified bool) (*VerifiedBuyerResult, error) {
	res := &VerifiedBuyerResult{}
	err := s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		if _, err := requireAdmin(ctx, users, adminID); err != nil {
			return err
		}
		u, err := lockTarget(ctx, users, userID)
		if err != nil {
			return err
		}
		res.User = u
		if u.IsVerifiedBuyer == verified {
			return nil
		}
		if err := users.SetVerifiedBuyer(ctx, userID, verified); err != nil {
			return apperr.Persistence(apperr.CodeStorage, err)
		}
		u.IsVerifiedBuyer = verified

		action := domain.ModUnverifyBuyer
		meta := map[string]any{}
		if verified {
			action = domain.ModVerifyBuyer
			if err := s.creditPurchase(ctx, tx, adminID, u, res); err != nil {
				return err
			}
			if res.Transaction != nil {
				meta["transaction_id"] = res.Transaction.ID
				meta["points"] = res.Transaction.Points
			}
		}
		return modLog(ctx, s.mods.WithTx(tx), adminID, action, domain.TargetUser, userID, "", meta)
	})
	if err != nil {
		return nil, err
	}
	if res.Transaction != nil {
		s.events.PointsAwarded(userID, res.Transaction)
	}
	return res, nil
}

func (s *AdminService) creditPurchase(ctx context.Context, tx *gorm.DB, adminID uint, u *models.User, res *VerifiedBuyerResult) error {
	def, err := lookup(ctx, s.catalog.WithTx(tx), domain.ActionVerifiedPurchase)
	if apperr.KindOf(err) == apperr.KindDisabled {
		return nil
	}
	if err != nil {
		return err
	}
	if def.Points == 0 || u.IsBanned {
		return nil
	}
	paid, err := s.txs.WithTx(tx).HasAction(ctx, u.ID, domain.ActionVerifiedPurchase)
	if err != nil {
		return apperr.Persistence(apperr.CodeStorage, err)
	}
	if paid {
		return nil
	}
	res.Transaction, err = s.ledger.Record(ctx, tx, Entry{
		UserID:            u.ID,
		Action:            domain.ActionVerifiedPurchase,
		Points:            def.Points,
		CounterpartUserID: &adminID,
		Description:       "Verified buyer",
	})
	if err != nil {
		return err
	}
	res.User.TotalPoints = res.Transaction.BalanceAfter
	res.User.Level = domain.LevelFor(res.Transaction.BalanceAfter)
	return s.counter.AddPointsEarned(ctx, tx, u.ID, def.Points)
}

func (s *AdminService) HidePin(ctx context.Context, adminID, pinID uint, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperr.Validation(apperr.CodeInvalidInput, "reason is required")
	}
	return s.setHidden(ctx, adminID, pinID, true, reason)
}

func (s *AdminService) UnhidePin(ctx context.Context, adminID, pinID uint, reason string) error {
	return s.setHidden(ctx, adminID, pinID, false, strings.TrimSpace(reason))
}

func (s *AdminService) setHidden(ctx context.Context, adminID, pinID uint, hidden bool, reason string) error {
	return s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := requireAdmin(ctx, s.users.WithTx(tx), adminID); err != nil {
			return err
		}
		pins := s.pins.WithTx(tx)
		pin, err := pins.LockByID(ctx, pinID)
		if err != nil {
			return notFoundOr(err, apperr.CodePinNotFound, "pin not found")
		}
		stored := reason
		if !hidden {
			stored = ""
		}
		if err := pins.SetHidden(ctx, pinID, hidden, stored); err != nil {
			return apperr.Persistence(apperr.CodeStorage, err)
		}
		action := domain.ModHidePin
		if !hidden {
			action = domain.ModUnhidePin
		}
		return modLog(ctx, s.mods.WithTx(tx), adminID, action, domain.TargetPin, pinID, reason,
			map[string]any{"owner_id": pin.UserID})
	})
}

// SetAdmin grants or revokes the admin role. Admins cannot demote
// themselves, so the acting admin always keeps access.
func (s *AdminService) SetAdmin(ctx context.Context, adminID, userID uint, isAdmin bool, reason string) (*models.User, error) {
	if adminID == userID && !isAdmin {
		return nil, apperr.Conflict(apperr.CodeSelfTarget, "admins cannot revoke their own role")
	}
	var out *models.User
	err := s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		if _, err := requireAdmin(ctx, users, adminID); err != nil {
			return err
		}
		u, err := lockTarget(ctx, users, userID)
		if err != nil {
			return err
		}
		out = u
		if u.IsAdmin == isAdmin {
			return nil
		}
		if isAdmin && u.IsBanned {
			return apperr.Conflict(apperr.CodeAccountSuspended, "suspended accounts cannot be made admin")
		}
		if err := users.SetAdmin(ctx, userID, isAdmin); err != nil {
			return apperr.Persistence(apperr.CodeStorage, err)
		}
		u.IsAdmin = isAdmin
		action := domain.ModGrantAdmin
		if !isAdmin {
			action = domain.ModRevokeAdmin
		}
		return modLog(ctx, s.mods.WithTx(tx), adminID, action, domain.TargetUser, userID, strings.TrimSpace(reason), nil)
	})
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"admin_id": adminID, "user_id": userID, "is_admin": isAdmin}).Info("user role changed")
	return out, nil
}

// ListPins is the moderation view of pins: hidden ones are included unless
// f.Hidden narrows the list.
func (s *AdminService) ListPins(ctx context.Context, f repository.PinFilters) ([]models.Pin, int64, error) {
	if err := checkPinStatus(f.VerificationStatus); err != nil {
		return nil, 0, err
	}
	f.IncludeHidden = true
	f.Page, f.Limit = Page(f.Page, f.Limit)
	list, total, err := s.pins.List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Persistence(apperr.CodeStorage, err)
	}
	return list, total, nil
}

func (s *AdminService) ListUsers(ctx context.Context, f UserFilters) ([]models.User, int64, error) {
	page, limit := Page(f.Page, f.Limit)
	list, total, err := s.users.List(ctx, strings.TrimSpace(f.Search), f.Banned, page, limit)
	if err != nil {
		return nil, 0, apperr.Persistence(apperr.CodeStorage, err)
	}
	return list, total, nil
}

func (s *AdminService) ModerationLogs(ctx context.Context, f repository.ModerationFilters) ([]models.ModerationLog, int64, error) {
	f.Page, f.Limit = Page(f.Page, f.Limit)
	list, total, err := s.mods.List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Persistence(apperr.CodeStorage, err)
	}
	return list, total, nil
}

// Stats runs the dashboard aggregates concurrently.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	out := &Stats{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalUsers, out.BannedUsers, out.VerifiedBuyers, err = s.stats.CountUsers(gctx)
		return
	})
	g.Go(func() (err error) {
		out.TotalPins, out.HiddenPins, err = s.stats.CountPins(gctx)
		return
	})
	g.Go(func() (err error) {
		out.PendingVerifications, err = s.stats.CountPendingVerifications(gctx)
		return
	})
	g.Go(func() (err error) {
		out.TotalTransactions, out.PointsInCirculation, err = s.stats.LedgerTotals(gctx)
		return
	})
	g.Go(func() (err error) {
		out.PinsLast30Days, err = s.stats.PinsByDay(gctx, 30)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Persistence(apperr.CodeStorage, err)
	}
	return out, nil
}
