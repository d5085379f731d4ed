package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tresesenta/internal/database"
	"tresesenta/internal/domain"
	"tresesenta/internal/models"
	"tresesenta/internal/repository"
	"tresesenta/pkg/apperr"

	"gorm.io/gorm"
)

// Entry is one ledger write request. The ledger does not price actions;
// callers look the catalog up and pass the signed delta.
type Entry struct {
	UserID            uint
	Action            domain.ActionKind
	Points            int
	RelatedPinID      *uint
	CounterpartUserID *uint
	IncludesBonus     bool
	ReversesID        *uint
	Description       string
	// CatalogFallback marks a create_pin entry priced by the bootstrap
	// fallback; there is no catalog row to audit it against.
	CatalogFallback bool
}

type ChainReport struct {
	UserID       uint  `json:"user_id"`
	Transactions int   `json:"transactions"`
	LedgerSum    int   `json:"ledger_sum"`
	LastBalance  int   `json:"last_balance"`
	CachedTotal  int   `json:"cached_total"`
	ChainValid   bool  `json:"chain_valid"`
	BrokenAtID   *uint `json:"broken_at_id,omitempty"`
	Consistent   bool  `json:"consistent"`
}

// Ledger appends point transactions and keeps users.total_points equal to
// the chain head. Writes for one user are serialized by locking the user row.
type Ledger struct {
	tm      *database.TxManager
	txs     *repository.LedgerRepository
	users   *repository.UserRepository
	catalog *repository.CatalogRepository
	mods    *repository.ModerationRepository
	now     func() time.Time
}

func NewLedger(tm *database.TxManager, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	db := tm.DB()
	return &Ledger{
		tm:      tm,
		txs:     repository.NewLedgerRepository(db),
		users:   repository.NewUserRepository(db),
		catalog: repository.NewCatalogRepository(db),
		mods:    repository.NewModerationRepository(db),
		now:     now,
	}
}

// Record appends e inside the caller's transaction: audit the action code,
// lock the user, compute balance_after, insert, update the cached total.
func (l *Ledger) Record(ctx context.Context, tx *gorm.DB, e Entry) (*models.PointTransaction, error) {
	if !e.Action.Valid() {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "unknown action code")
	}
	if e.CatalogFallback {
		if e.Action != domain.ActionCreatePin {
			return nil, apperr.Validation(apperr.CodeInvalidInput, "catalog fallback is only valid for create_pin")
		}
	} else {
		ok, err := l.catalog.WithTx(tx).Exists(ctx, e.Action)
		if err != nil {
			return nil, apperr.Persistence(apperr.CodeStorage, err)
		}
		if !ok {
			return nil, apperr.NotFound(apperr.CodeActionNotFound, "action code not in catalog").With("action_code", string(e.Action))
		}
	}

	users := l.users.WithTx(tx)
	u, err := users.LockByID(ctx, e.UserID)
	if err != nil {
		return nil, notFoundOr(err, apperr.CodeUserNotFound, "user not found")
	}
	balance := u.TotalPoints + e.Points
	t := &models.PointTransaction{
		UserID:            e.UserID,
		ActionCode:        e.Action,
		Points:            e.Points,
		BalanceAfter:      balance,
		RelatedPinID:      e.RelatedPinID,
		CounterpartUserID: e.CounterpartUserID,
		IncludesBonus:     e.IncludesBonus,
		ReversesID:        e.ReversesID,
		Description:       e.Description,
		CreatedAt:         l.now(),
	}
	if err := l.txs.WithTx(tx).Create(ctx, t); err != nil {
		return nil, apperr.Persistence(apperr.CodeStorage, err)
	}
	if err := users.UpdateBalance(ctx, e.UserID, balance, domain.LevelFor(balance)); err != nil {
		return nil, apperr.Persistence(apperr.CodeStorage, err)
	}
	return t, nil
}

// Reverse books the negation of transaction txID. A transaction can be
// reversed once and a reversal cannot itself be reversed.
func (l *Ledger) Reverse(ctx context.Context, adminID, txID uint, reason string) (*models.PointTransaction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "reason is required")
	}
	var out *models.PointTransaction
	err := l.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := requireAdmin(ctx, l.users.WithTx(tx), adminID); err != nil {
			return err
		}
		txs := l.txs.WithTx(tx)
		orig, err := txs.LockByID(ctx, txID)
		if err != nil {
			return notFoundOr(err, apperr.CodeTxNotFound, "transaction not found")
		}
		if orig.ReversesID != nil {
			return apperr.Conflict(apperr.CodeAlreadyReversed, "a reversal cannot be reversed")
		}
		prev, err := txs.FindReversal(ctx, orig.ID)
		if err != nil {
			return err
		}
		if prev != nil {
			return apperr.Conflict(apperr.CodeAlreadyReversed, "transaction already reversed").With("reversal_id", prev.ID)
		}
		fallback := false
		if orig.ActionCode == domain.ActionCreatePin {
			exists, err := l.catalog.WithTx(tx).Exists(ctx, orig.ActionCode)
			if err != nil {
				return err
			}
			fallback = !exists
		}
		out, err = l.Record(ctx, tx, Entry{
			UserID:            orig.UserID,
			Action:            orig.ActionCode,
			Points:            -orig.Points,
			RelatedPinID:      orig.RelatedPinID,
			CounterpartUserID: &adminID,
			ReversesID:        &orig.ID,
			Description:       fmt.Sprintf("Reversal of #%d: %s", orig.ID, reason),
			CatalogFallback:   fallback,
		})
		if err != nil {
			return err
		}
		return modLog(ctx, l.mods.WithTx(tx), adminID, domain.ModReverseTransaction, domain.TargetTransaction, orig.ID, reason,
			map[string]any{"user_id": orig.UserID, "points": -orig.Points, "reversal_id": out.ID})
	})
	return out, err
}

// Adjust books a manual correction for userID.
func (l *Ledger) Adjust(ctx context.Context, adminID, userID uint, delta int, reason string) (*models.PointTransaction, error) {
	reason = strings.TrimSpace(reason)
	if delta == 0 {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "points must be non-zero")
	}
	if reason == "" {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "reason is required")
	}
	var out *models.PointTransaction
	err := l.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := requireAdmin(ctx, l.users.WithTx(tx), adminID); err != nil {
			return err
		}
		var err error
		out, err = l.Record(ctx, tx, Entry{
			UserID:            userID,
			Action:            domain.ActionAdminAdjustment,
			Points:            delta,
			CounterpartUserID: &adminID,
			Description:       "Manual adjustment: " + reason,
		})
		if err != nil {
			return err
		}
		return modLog(ctx, l.mods.WithTx(tx), adminID, domain.ModAdjustPoints, domain.TargetUser, userID, reason,
			map[string]any{"points": delta, "transaction_id": out.ID, "balance_after": out.BalanceAfter})
	})
	return out, err
}

func (l *Ledger) History(ctx context.Context, userID uint, limit, offset int) ([]models.PointTransaction, int64, error) {
	list, total, err := l.txs.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Persistence(apperr.CodeStorage, err)
	}
	return list, total, nil
}

// VerifyChain walks the user's ledger and compares it with the cached total.
func (l *Ledger) VerifyChain(ctx context.Context, userID uint) (ChainReport, error) {
	rep := ChainReport{UserID: userID, ChainValid: true}
	u, err := l.users.GetByID(ctx, userID)
	if err != nil {
		return rep, notFoundOr(err, apperr.CodeUserNotFound, "user not found")
	}
	chain, err := l.txs.ChainByUser(ctx, userID)
	if err != nil {
		return rep, apperr.Persistence(apperr.CodeStorage, err)
	}
	rep.CachedTotal = u.TotalPoints
	rep.Transactions = len(chain)
	prev := 0
	for i := range chain {
		t := chain[i]
		rep.LedgerSum += t.Points
		if rep.ChainValid && t.BalanceAfter != prev+t.Points {
			rep.ChainValid = false
			id := t.ID
			rep.BrokenAtID = &id
		}
		prev = t.BalanceAfter
	}
	rep.LastBalance = prev
	rep.Consistent = rep.ChainValid && rep.LastBalance == rep.CachedTotal && rep.LedgerSum == rep.CachedTotal
	return rep, nil
}
