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
	"tresesenta/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxEvidenceImages = 10

// ReviewResult is the outcome of an approval.
type ReviewResult struct {
	Request          *models.VerificationRequest `json:"request"`
	BonusTransaction *models.PointTransaction    `json:"bonus_transaction,omitempty"`
	// BonusWithheld is set when the requester is banned: the claim is
	// approved but no points move.
	BonusWithheld bool `json:"bonus_withheld,omitempty"`
}

// Verification drives purchase claims: none -> pending -> approved|rejected,
// or none -> approved directly for trusted buyers. Non-pending requests are
// terminal.
type Verification struct {
	tm       *database.TxManager
	requests *repository.VerificationRepository
	pins     *repository.PinRepository
	users    *repository.UserRepository
	mods     *repository.ModerationRepository
	catalog  *Catalog
	settings *SettingsService
	ledger   *Ledger
	counter  *Counter
	events   Events
	now      func() time.Time
}

func NewVerification(tm *database.TxManager, catalog *Catalog, settings *SettingsService, ledger *Ledger, counter *Counter, events Events, now func() time.Time) *Verification {
	if events == nil {
		events = NopEvents{}
	}
	if now == nil {
		now = time.Now
	}
	db := tm.DB()
	return &Verification{
		tm:       tm,
		requests: repository.NewVerificationRepository(db),
		pins:     repository.NewPinRepository(db),
		users:    repository.NewUserRepository(db),
		mods:     repository.NewModerationRepository(db),
		catalog:  catalog,
		settings: settings,
		ledger:   ledger,
		counter:  counter,
		events:   events,
		now:      now,
	}
}

// Evaluate reports whether a purchase claim by u skips review.
func Evaluate(u *models.User, s Settings) bool {
	return u.IsVerifiedBuyer && s.AutoApproveVerifiedBuyers
}

// Claim is the verification outcome decided at pin creation.
type Claim struct {
	Status        string
	Points        int  // points recorded now
	IncludesBonus bool // Points already contains the bonus
	FrozenBonus   int  // bonus deferred to review, 0 when not pending
}

// Decide prices a pin. Purchase-linked pins from auto-approved buyers get
// base+bonus at once; others get base now and the bonus frozen for review.
func Decide(u *models.User, s Settings, def *models.PointAction, usedTresesenta bool) Claim {
	if !usedTresesenta {
		return Claim{Status: domain.VerificationNone, Points: def.Points}
	}
	if Evaluate(u, s) {
		return Claim{Status: domain.VerificationApproved, Points: def.Points + def.BonusPoints, IncludesBonus: def.BonusPoints > 0}
	}
	return Claim{Status: domain.VerificationPending, Points: def.Points, FrozenBonus: def.BonusPoints}
}

// openRequest creates the pending request of a pin inside tx.
func (v *Verification) openRequest(ctx context.Context, tx *gorm.DB, pinID, userID uint, bonus int, evidence []string) (*models.VerificationRequest, error) {
	req := &models.VerificationRequest{
		PinID:          pinID,
		UserID:         userID,
		BonusPoints:    bonus,
		Status:         domain.VerificationPending,
		EvidenceImages: evidence,
		CreatedAt:      v.now(),
		UpdatedAt:      v.now(),
	}
	if req.EvidenceImages == nil {
		req.EvidenceImages = []string{}
	}
	if err := v.requests.WithTx(tx).Create(ctx, req); err != nil {
		return nil, apperr.Persistence(apperr.CodeStorage, err)
	}
	return req, nil
}

func (v *Verification) lockPending(ctx context.Context, tx *gorm.DB, requestID uint) (*models.VerificationRequest, error) {
	req, err := v.requests.WithTx(tx).LockByID(ctx, requestID)
	if err != nil {
		return nil, notFoundOr(err, apperr.CodeRequestNotFound, "verification request not found")
	}
	if req.Status != domain.VerificationPending {
		return nil, apperr.Conflict(apperr.CodeAlreadyProcessed, "verification request already processed").With("status", req.Status)
	}
	return req, nil
}

// Approve moves a pending request to approved, mirrors it on the pin and
// pays the bonus frozen at request time.
func (v *Verification) Approve(ctx context.Context, adminID, requestID uint, notes string) (*ReviewResult, error) {
	notes = strings.TrimSpace(notes)
	res := &ReviewResult{}
	err := v.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		users := v.users.WithTx(tx)
		if _, err := requireAdmin(ctx, users, adminID); err != nil {
			return err
		}
		// Lock order is user then request, as in Resubmit.
		peek, err := v.requests.WithTx(tx).GetByID(ctx, requestID)
		if err != nil {
			return notFoundOr(err, apperr.CodeRequestNotFound, "verification request not found")
		}
		requester, err := users.LockByID(ctx, peek.UserID)
		if err != nil {
			return notFoundOr(err, apperr.CodeUserNotFound, "user not found")
		}
		req, err := v.lockPending(ctx, tx, requestID)
		if err != nil {
			return err
		}
		now := v.now()
		req.Status = domain.VerificationApproved
		req.ReviewedBy = &adminID
		req.ReviewedAt = &now
		req.ReviewNotes = notes

		if err := v.pins.WithTx(tx).UpdateVerification(ctx, req.PinID, domain.VerificationApproved, &adminID, &now); err != nil {
			return err
		}
		if req.BonusPoints > 0 && requester.IsBanned {
			res.BonusWithheld = true
			logger.WithFields(logrus.Fields{
				"request_id": req.ID,
				"user_id":    req.UserID,
				"bonus":      req.BonusPoints,
			}).Info("verification approved for suspended account, bonus withheld")
		} else if req.BonusPoints > 0 {
			pinID := req.PinID
			res.BonusTransaction, err = v.ledger.Record(ctx, tx, Entry{
				UserID:            req.UserID,
				Action:            domain.ActionTresesentaBonus,
				Points:            req.BonusPoints,
				RelatedPinID:      &pinID,
				CounterpartUserID: &adminID,
				IncludesBonus:     true,
				Description:       fmt.Sprintf("TRESESENTA bonus approved for pin #%d", req.PinID),
			})
			if err != nil {
				return err
			}
			if err := v.counter.AddPointsEarned(ctx, tx, req.UserID, req.BonusPoints); err != nil {
				return err
			}
			req.BonusPaid = true
		}
		if err := v.requests.WithTx(tx).Save(ctx, req); err != nil {
			return err
		}
		res.Request = req

		reason := notes
		if reason == "" {
			reason = "approved"
		}
		return modLog(ctx, v.mods.WithTx(tx), adminID, domain.ModApproveVerification, domain.TargetVerification, req.ID, reason,
			map[string]any{"pin_id": req.PinID, "bonus_points": req.BonusPoints, "bonus_paid": req.BonusPaid})
	})
	if err != nil {
		return nil, err
	}
	if res.BonusTransaction != nil {
		v.events.PointsAwarded(res.Request.UserID, res.BonusTransaction)
	}
	return res, nil
}

// Reject closes a pending request. No points move: the bonus of a pending
// request was never paid.
func (v *Verification) Reject(ctx context.Context, adminID, requestID uint, reason, notes string) (*models.VerificationRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "a rejection reason is required")
	}
	var out *models.VerificationRequest
	err := v.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := requireAdmin(ctx, v.users.WithTx(tx), adminID); err != nil {
			return err
		}
		req, err := v.lockPending(ctx, tx, requestID)
		if err != nil {
			return err
		}
		now := v.now()
		req.Status = domain.VerificationRejected
		req.ReviewedBy = &adminID
		req.ReviewedAt = &now
		req.ReviewNotes = strings.TrimSpace(notes)
		req.RejectionReason = reason
		if err := v.requests.WithTx(tx).Save(ctx, req); err != nil {
			return err
		}
		if err := v.pins.WithTx(tx).UpdateVerification(ctx, req.PinID, domain.VerificationRejected, &adminID, &now); err != nil {
			return err
		}
		out = req
		return modLog(ctx, v.mods.WithTx(tx), adminID, domain.ModRejectVerification, domain.TargetVerification, req.ID, reason,
			map[string]any{"pin_id": req.PinID, "bonus_points": req.BonusPoints})
	})
	return out, err
}

func validEvidence(urls []string) ([]string, error) {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
			return nil, apperr.Validation(apperr.CodeInvalidInput, "evidence must be image URLs")
		}
		out = append(out, u)
	}
	return out, nil
}

// AddEvidence appends image URLs to the caller's pending request of a pin.
func (v *Verification) AddEvidence(ctx context.Context, userID, pinID uint, urls []string) (*models.VerificationRequest, error) {
	clean, err := validEvidence(urls)
	if err != nil {
		return nil, err
	}
	if len(clean) == 0 {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "at least one image is required")
	}
	var out *models.VerificationRequest
	err = v.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		req, err := v.requests.WithTx(tx).LockLatestForPin(ctx, pinID)
		if err != nil {
			return err
		}
		if req == nil || req.UserID != userID {
			return apperr.NotFound(apperr.CodeRequestNotFound, "verification request not found")
		}
		if req.Status != domain.VerificationPending {
			return apperr.Conflict(apperr.CodeVerificationState, "evidence can only be added to a pending request").With("status", req.Status)
		}
		if len(req.EvidenceImages)+len(clean) > maxEvidenceImages {
			return apperr.Validation(apperr.CodeInvalidInput, fmt.Sprintf("at most %d evidence images", maxEvidenceImages))
		}
		req.EvidenceImages = append(req.EvidenceImages, clean...)
		if err := v.requests.WithTx(tx).Save(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	return out, err
}

// Resubmit opens a new pending request for a pin whose last claim was
// rejected. The bonus is frozen again from the current catalog.
func (v *Verification) Resubmit(ctx context.Context, userID, pinID uint, urls []string) (*models.VerificationRequest, error) {
	clean, err := validEvidence(urls)
	if err != nil {
		return nil, err
	}
	s, err := v.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	def, _, err := v.catalog.LookupWithFallback(ctx, domain.ActionCreatePin, s)
	if err != nil {
		return nil, err
	}
	var out *models.VerificationRequest
	err = v.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := lockEarner(ctx, v.users.WithTx(tx), userID); err != nil {
			return err
		}
		pin, err := v.pins.WithTx(tx).LockByID(ctx, pinID)
		if err != nil {
			return notFoundOr(err, apperr.CodePinNotFound, "pin not found")
		}
		if pin.UserID != userID || !pin.UsedTresesenta {
			return apperr.NotFound(apperr.CodeRequestNotFound, "verification request not found")
		}
		last, err := v.requests.WithTx(tx).LockLatestForPin(ctx, pinID)
		if err != nil {
			return err
		}
		if last == nil || last.Status != domain.VerificationRejected {
			return apperr.Conflict(apperr.CodeVerificationState, "only a rejected claim can be resubmitted")
		}
		out, err = v.openRequest(ctx, tx, pinID, userID, def.BonusPoints, clean)
		if err != nil {
			return err
		}
		return v.pins.WithTx(tx).UpdateVerification(ctx, pinID, domain.VerificationPending, nil, nil)
	})
	return out, err
}

func (v *Verification) ListMine(ctx context.Context, userID uint) ([]models.VerificationRequest, error) {
	list, err := v.requests.ListByUser(ctx, userID)
	return list, apperr.Persistence(apperr.CodeStorage, err)
}

// List is the admin queue; status "" lists everything.
func (v *Verification) List(ctx context.Context, status string, page, limit int) ([]models.VerificationRequest, int64, error) {
	switch status {
	case "", domain.VerificationPending, domain.VerificationApproved, domain.VerificationRejected:
	default:
		return nil, 0, apperr.Validation(apperr.CodeInvalidInput, "invalid status")
	}
	page, limit = Page(page, limit)
	list, total, err := v.requests.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, apperr.Persistence(apperr.CodeStorage, err)
	}
	return list, total, nil
}

func (v *Verification) Get(ctx context.Context, id uint) (*models.VerificationRequest, error) {
	req, err := v.requests.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperr.CodeRequestNotFound, "verification request not found")
	}
	return req, nil
}
