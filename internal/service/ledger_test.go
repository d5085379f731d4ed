package service_test

import (
	"context"
	"testing"

	"tresesenta/internal/domain"
	"tresesenta/internal/models"
	"tresesenta/internal/service"
	"tresesenta/pkg/apperr"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLedgerChainAndBalance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.adminUser(t)
	u := e.user(t, "ana", 0)

	_, err := e.pins.CreatePin(ctx, u.ID, pinInput("Mercado de Coyoacán"))
	require.NoError(t, err)
	_, err = e.ledger.Adjust(ctx, admin.ID, u.ID, -7, "duplicate pin")
	require.NoError(t, err)
	_, err = e.login.ClaimDailyLogin(ctx, u.ID)
	require.NoError(t, err)

	rep := e.requireConsistent(t, u.ID)
	require.Equal(t, 3, rep.Transactions)
	require.Equal(t, 20-7+5, rep.CachedTotal)

	history, total, err := e.ledger.History(ctx, u.ID, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Equal(t, domain.ActionDailyLogin, history[0].ActionCode)
	require.Equal(t, 18, history[0].BalanceAfter)
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.adminUser(t)
	u := e.user(t, "beto", 0)

	first, err := e.ledger.Adjust(ctx, admin.ID, u.ID, 10, "welcome")
	require.NoError(t, err)
	second, err := e.ledger.Adjust(ctx, admin.ID, u.ID, 5, "event")
	require.NoError(t, err)
	require.Equal(t, 15, second.BalanceAfter)

	require.NoError(t, e.db.Model(&models.PointTransaction{}).Where("id = ?", first.ID).
		Update("balance_after", 11).Error)

	rep, err := e.ledger.VerifyChain(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, rep.ChainValid)
	require.False(t, rep.Consistent)
	require.NotNil(t, rep.BrokenAtID)
	require.Equal(t, first.ID, *rep.BrokenAtID)
}

func TestAdjustValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.adminUser(t)
	u := e.user(t, "caro", 0)

	_, err := e.ledger.Adjust(ctx, admin.ID, u.ID, 0, "nothing")
	requireKind(t, err, apperr.KindValidation, apperr.CodeInvalidInput)

	_, err = e.ledger.Adjust(ctx, admin.ID, u.ID, 10, "  ")
	requireKind(t, err, apperr.KindValidation, apperr.CodeInvalidInput)

	_, err = e.ledger.Adjust(ctx, u.ID, u.ID, 10, "self service")
	requireKind(t, err, apperr.KindAuthorization, apperr.CodeAdminRequired)

	_, err = e.ledger.Adjust(ctx, admin.ID, 9999, 10, "ghost")
	requireKind(t, err, apperr.KindNotFound, apperr.CodeUserNotFound)
}

func TestReverseOnlyOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.adminUser(t)
	u := e.user(t, "dani", 0)

	orig, err := e.ledger.Adjust(ctx, admin.ID, u.ID, 50, "contest prize")
	require.NoError(t, err)

	_, err = e.ledger.Reverse(ctx, admin.ID, orig.ID, "")
	requireKind(t, err, apperr.KindValidation, "")

	rev, err := e.ledger.Reverse(ctx, admin.ID, orig.ID, "prize revoked")
	require.NoError(t, err)
	require.Equal(t, -50, rev.Points)
	require.Equal(t, 0, rev.BalanceAfter)
	require.NotNil(t, rev.ReversesID)
	require.Equal(t, orig.ID, *rev.ReversesID)

	_, err = e.ledger.Reverse(ctx, admin.ID, orig.ID, "again")
	requireKind(t, err, apperr.KindConflict, apperr.CodeAlreadyReversed)

	_, err = e.ledger.Reverse(ctx, admin.ID, rev.ID, "undo the undo")
	requireKind(t, err, apperr.KindConflict, apperr.CodeAlreadyReversed)

	_, err = e.ledger.Reverse(ctx, admin.ID, 424242, "missing")
	requireKind(t, err, apperr.KindNotFound, apperr.CodeTxNotFound)

	e.requireConsistent(t, u.ID)
	require.Equal(t, 0, e.reload(t, u.ID).TotalPoints)

	var logs int64
	require.NoError(t, e.db.Model(&models.ModerationLog{}).
		Where("action_type = ?", domain.ModReverseTransaction).Count(&logs).Error)
	require.EqualValues(t, 1, logs)
}

func TestRecordRejectsUnknownAction(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "eli", 0)

	err := e.db.Transaction(func(tx *gorm.DB) error {
		_, err := e.ledger.Record(ctx, tx, service.Entry{UserID: u.ID, Action: "teleport", Points: 5})
		return err
	})
	requireKind(t, err, apperr.KindValidation, apperr.CodeInvalidInput)

	err = e.db.Transaction(func(tx *gorm.DB) error {
		_, err := e.ledger.Record(ctx, tx, service.Entry{UserID: u.ID, Action: domain.ActionLikePin, Points: 5, CatalogFallback: true})
		return err
	})
	requireKind(t, err, apperr.KindValidation, apperr.CodeInvalidInput)

	require.NoError(t, e.db.Where("action_code = ?", domain.ActionStreak7Days).Delete(&models.PointAction{}).Error)
	err = e.db.Transaction(func(tx *gorm.DB) error {
		_, err := e.ledger.Record(ctx, tx, service.Entry{UserID: u.ID, Action: domain.ActionStreak7Days, Points: 50})
		return err
	})
	requireKind(t, err, apperr.KindNotFound, apperr.CodeActionNotFound)
	require.Equal(t, 0, e.reload(t, u.ID).TotalPoints)
}

func TestLevelFollowsBalance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.adminUser(t)
	u := e.user(t, "fer", 0)

	_, err := e.ledger.Adjust(ctx, admin.ID, u.ID, 260, "migration")
	require.NoError(t, err)
	got := e.reload(t, u.ID)
	require.Equal(t, domain.LevelFor(260), got.Level)
	require.Greater(t, got.Level, 1)
}
