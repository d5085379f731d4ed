package service_test

import (
	"context"
	"testing"

	"tresesenta/internal/domain"
	"tresesenta/internal/models"
	"tresesenta/internal/service"
	"tresesenta/pkg/apperr"

	"github.com/stretchr/testify/require"
)

func purchasePin(title string) service.CreatePinInput {
	in := pinInput(title)
	in.UsedTresesenta = true
	return in
}

// A purchase pin by an ordinary user earns base points now and freezes the
// bonus. Later catalog edits do not change what the approval pays, and a
// processed request cannot be reviewed again.
func TestPurchasePinReviewPaysFrozenBonus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.adminUser(t)
	u := e.user(t, "buyer", 0)

	res, err := e.pins.CreatePin(ctx, u.ID, purchasePin("Tienda TRESESENTA"))
	require.NoError(t, err)
	require.Equal(t, domain.VerificationPending, res.Pin.VerificationStatus)
	require.Equal(t, 20, res.Transaction.Points)
	require.False(t, res.Transaction.IncludesBonus)
	require.NotNil(t, res.VerificationRequest)
	require.Equal(t, 30, res.VerificationRequest.BonusPoints)

	bonus := 80
	_, err = e.catalog.Update(ctx, admin.ID, domain.ActionCreatePin, service.ActionUpdate{BonusPoints: &bonus})
	require.NoError(t, err)

	review, err := e.verification.Approve(ctx, admin.ID, res.VerificationRequest.ID, "ok")
	require.NoError(t, err)
	require.Equal(t, domain.VerificationApproved, review.Request.Status)
	require.True(t, review.Request.BonusPaid)
	require.Equal(t, "ok", review.Request.ReviewNotes)
	require.NotNil(t, review.BonusTransaction)
	require.Equal(t, 30, review.BonusTransaction.Points)
	require.True(t, review.BonusTransaction.IncludesBonus)
	require.Equal(t, domain.ActionTresesentaBonus, review.BonusTransaction.ActionCode)

	pin, err := e.pins.GetPin(ctx, res.Pin.ID)
	require.NoError(t, err)
	require.Equal(t, domain.VerificationApproved, pin.VerificationStatus)
	require.NotNil(t, pin.VerifiedBy)

	_, err = e.verification.Approve(ctx, admin.ID, res.VerificationRequest.ID, "ok")
	requireKind(t, err, apperr.KindConflict, apperr.CodeAlreadyProcessed)
	_, err = e.verification.Reject(ctx, admin.ID, res.VerificationRequest.ID, "late", "")
	requireKind(t, err, apperr.KindConflict, apperr.CodeAlreadyProcessed)

	rep := e.requireConsistent(t, u.ID)
	require.Equal(t, 50, rep.CachedTotal)

	var logs int64
	require.NoError(t, e.db.Model(&models.ModerationLog{}).
		Where("action_type = ? AND target_id = ?", domain.ModApproveVerification, res.VerificationRequest.ID).Count(&logs).Error)
	require.EqualValues(t, 1, logs)
}

// A requester banned while the claim waits still gets the approval, but
// the frozen bonus is withheld.
func TestApproveWithholdsBonusFromBannedRequester(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.adminUser(t)
	u := e.user(t, "buyer", 0)

	res, err := e.pins.CreatePin(ctx, u.ID, purchasePin("Tienda TRESESENTA"))
	require.NoError(t, err)
	require.NotNil(t, res.VerificationRequest)

	_, err = e.admin.BanUser(ctx, admin.ID, u.ID, "spam")
	require.NoError(t, err)

	review, err := e.verification.Approve(ctx, admin.ID, res.VerificationRequest.ID, "ok")
	require.NoError(t, err)
	require.Equal(t, domain.VerificationApproved, review.Request.Status)
	require.False(t, review.Request.BonusPaid)
	require.True(t, review.BonusWithheld)
	require.Nil(t, review.BonusTransaction)

	rep := e.requireConsistent(t, u.ID)
	require.Equal(t, 20, rep.CachedTotal)

	var bonuses int64
	require.NoError(t, e.db.Model(&models.PointTransaction{}).
		Where("user_id = ? AND action_code = ?", u.ID, domain.ActionTresesentaBonus).Count(&bonuses).Error)
	require.Zero(t, bonuses)

	pin, err := e.pins.GetPin(ctx, res.Pin.ID)
	require.NoError(t, err)
	require.Equal(t, domain.VerificationApproved, pin.VerificationStatus)
}

func TestVerifiedBuyerAutoApproval(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.adminUser(t)
	u := e.user(t, "vip", 0)

	_, err := e.settings.Update(ctx, admin.ID, domain.SettingAutoApproveVerifiedBuyers, "true")
	require.NoError(t, err)
	vb, err := e.admin.SetVerifiedBuyer(ctx, admin.ID, u.ID, true)
	require.NoError(t, err)
	require.NotNil(t, vb.Transaction)
	require.Equal(t, 100, vb.Transaction.Points)

	res, err := e.pins.CreatePin(ctx, u.ID, purchasePin("Compra verificada"))
	require.NoError(t, err)
	require.Equal(t, domain.VerificationApproved, res.Pin.VerificationStatus)
	require.Equal(t, 50, res.Pin.PointsAwarded)
	require.Nil(t, res.VerificationRequest)
	require.True(t, res.Transaction.IncludesBonus)
	require.Equal(t, 50, res.Transaction.Points)

	var reqs int64
	require.NoError(t, e.db.Model(&models.VerificationRequest{}).Count(&reqs).Error)
	require.Zero(t, reqs)

	rep := e.requireConsistent(t, u.ID)
	require.Equal(t, 150, rep.CachedTotal)
}

func TestVerifiedBuyerWithoutAutoApprovalWaits(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.adminUser(t)
	u := e.user(t, "patient", 0)

	_, err := e.admin.SetVerifiedBuyer(ctx, admin.ID, u.ID, true)
	require.NoError(t, err)

	res, err := e.pins.CreatePin(ctx, u.ID, purchasePin("Sin auto"))
	require.NoError(t, err)
	require.Equal(t, domain.VerificationPending, res.Pin.VerificationStatus)
	require.NotNil(t, res.VerificationRequest)
}

func TestRejectRequiresReasonAndAllowsResubmit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.adminUser(t)
	u := e.user(t, "hopeful", 0)

	res, err := e.pins.CreatePin(ctx, u.ID, purchasePin("Recibo borroso"))
	require.NoError(t, err)
	reqID := res.VerificationRequest.ID

	_, err = e.verification.Reject(ctx, admin.ID, reqID, " ", "")
	requireKind(t, err, apperr.KindValidation, apperr.CodeInvalidInput)

	_, err = e.verification.Resubmit(ctx, u.ID, res.Pin.ID, nil)
	requireKind(t, err, apperr.KindConflict, apperr.CodeVerificationState)

	rejected, err := e.verification.Reject(ctx, admin.ID, reqID, "receipt unreadable", "try a clearer photo")
	require.NoError(t, err)
	require.Equal(t, domain.VerificationRejected, rejected.Status)
	require.Equal(t, "receipt unreadable", rejected.RejectionReason)
	require.Equal(t, 20, e.reload(t, u.ID).TotalPoints)

	_, err = e.verification.AddEvidence(ctx, u.ID, res.Pin.ID, []string{"https://img.example.com/a.jpg"})
	requireKind(t, err, apperr.KindConflict, apperr.CodeVerificationState)

	again, err := e.verification.Resubmit(ctx, u.ID, res.Pin.ID, []string{"https://img.example.com/clear.jpg"})
	require.NoError(t, err)
	require.NotEqual(t, reqID, again.ID)
	require.Equal(t, domain.VerificationPending, again.Status)
	require.Equal(t, 30, again.BonusPoints)
	require.Equal(t, []string{"https://img.example.com/clear.jpg"}, again.EvidenceImages)

	pin, err := e.pins.GetPin(ctx, res.Pin.ID)
	require.NoError(t, err)
	require.Equal(t, domain.VerificationPending, pin.VerificationStatus)

	mine, err := e.verification.ListMine(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	pending, total, err := e.verification.List(ctx, domain.VerificationPending, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, again.ID, pending[0].ID)
}

func TestAddEvidence(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "diligent", 0)
	other := e.user(t, "stranger", 0)

	res, err := e.pins.CreatePin(ctx, u.ID, purchasePin("Con evidencia"))
	require.NoError(t, err)

	req, err := e.verification.AddEvidence(ctx, u.ID, res.Pin.ID, []string{"https://img.example.com/1.jpg", " "})
	require.NoError(t, err)
	require.Equal(t, []string{"https://img.example.com/1.jpg"}, req.EvidenceImages)

	_, err = e.verification.AddEvidence(ctx, u.ID, res.Pin.ID, []string{"ftp://img.example.com/2.jpg"})
	requireKind(t, err, apperr.KindValidation, apperr.CodeInvalidInput)

	_, err = e.verification.AddEvidence(ctx, other.ID, res.Pin.ID, []string{"https://img.example.com/3.jpg"})
	requireKind(t, err, apperr.KindNotFound, apperr.CodeRequestNotFound)

	many := make([]string, 10)
	for i := range many {
		many[i] = "https://img.example.com/x.jpg"
	}
	_, err = e.verification.AddEvidence(ctx, u.ID, res.Pin.ID, many)
	requireKind(t, err, apperr.KindValidation, apperr.CodeInvalidInput)

	stored, err := e.verification.Get(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, stored.EvidenceImages, 1)
}

func TestDecide(t *testing.T) {
	def := &models.PointAction{ActionCode: domain.ActionCreatePin, Points: 20, BonusPoints: 30}
	buyer := &models.User{IsVerifiedBuyer: true}
	plain := &models.User{}
	auto := service.Settings{AutoApproveVerifiedBuyers: true}

	require.Equal(t, service.Claim{Status: domain.VerificationNone, Points: 20}, service.Decide(buyer, auto, def, false))
	require.Equal(t, service.Claim{Status: domain.VerificationApproved, Points: 50, IncludesBonus: true}, service.Decide(buyer, auto, def, true))
	require.Equal(t, service.Claim{Status: domain.VerificationPending, Points: 20, FrozenBonus: 30}, service.Decide(plain, auto, def, true))
	require.Equal(t, service.Claim{Status: domain.VerificationPending, Points: 20, FrozenBonus: 30}, service.Decide(buyer, service.Settings{}, def, true))
}
