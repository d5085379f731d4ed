package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"tresesenta/internal/database"
	"tresesenta/internal/domain"
	"tresesenta/internal/models"
	"tresesenta/internal/repository"
	"tresesenta/pkg/apperr"
	"tresesenta/pkg/location"
	"tresesenta/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
	maxCommentLen     = 1000
	maxPinImages      = 10
	maxNearbyRadiusKm = 50
)

type CreatePinInput struct {
	Title          string
	Description    string
	ImageURLs      []string
	Latitude       float64
	Longitude      float64
	LocationName   string
	CategoryID     *uint
	CityID         *uint
	UsedTresesenta bool
}

func (in *CreatePinInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Title == "":
		return apperr.Validation(apperr.CodeInvalidInput, "title is required")
	case utf8.RuneCountInString(in.Title) > maxTitleLen:
		return apperr.Validation(apperr.CodeInvalidInput, fmt.Sprintf("title must be at most %d characters", maxTitleLen))
	case utf8.RuneCountInString(in.Description) > maxDescriptionLen:
		return apperr.Validation(apperr.CodeInvalidInput, fmt.Sprintf("description must be at most %d characters", maxDescriptionLen))
	case !location.ValidCoordinates(in.Latitude, in.Longitude):
		return apperr.Validation(apperr.CodeInvalidInput, "invalid coordinates")
	case len(in.ImageURLs) > maxPinImages:
		return apperr.Validation(apperr.CodeInvalidInput, fmt.Sprintf("at most %d images", maxPinImages))
	}
	return nil
}

type CreatePinResult struct {
	Pin                 *models.Pin                 `json:"pin"`
	Transaction         *models.PointTransaction    `json:"transaction"`
	VerificationRequest *models.VerificationRequest `json:"verification_request,omitempty"`
}

// InteractionResult reports both sides of a like or comment. The actor
// and the pin owner are credited in separate transactions; when the second
// one fails RecipientCredited is false and the actor's credit stands.
type InteractionResult struct {
	Transaction          *models.PointTransaction `json:"transaction,omitempty"`
	RecipientTransaction *models.PointTransaction `json:"recipient_transaction,omitempty"`
	RecipientCredited    bool                     `json:"recipient_credited"`
	LikesCount           int                      `json:"likes_count,omitempty"`
	Comment              *models.Comment          `json:"comment,omitempty"`
}

// PinService owns the point-earning pin actions and the pin read paths.
type PinService struct {
	tm           *database.TxManager
	pins         *repository.PinRepository
	users        *repository.UserRepository
	catalog      *Catalog
	settings     *SettingsService
	ledger       *Ledger
	counter      *Counter
	verification *Verification
	events       Events
	now          func() time.Time
}

func NewPinService(tm *database.TxManager, catalog *Catalog, settings *SettingsService, ledger *Ledger, counter *Counter, verification *Verification, events Events, now func() time.Time) *PinService {
	if events == nil {
		events = NopEvents{}
	}
	if now == nil {
		now = time.Now
	}
	db := tm.DB()
	return &PinService{
		tm:           tm,
		pins:         repository.NewPinRepository(db),
		users:        repository.NewUserRepository(db),
		catalog:      catalog,
		settings:     settings,
		ledger:       ledger,
		counter:      counter,
		verification: verification,
		events:       events,
		now:          now,
	}
}

// CreatePin gates on the daily limit, prices the pin, opens a verification
// request when needed and books the points, all in one transaction.
func (s *PinService) CreatePin(ctx context.Context, userID uint, in CreatePinInput) (*CreatePinResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	def, fallback, err := s.catalog.LookupWithFallback(ctx, domain.ActionCreatePin, settings)
	if err != nil {
		return nil, err
	}
	if in.CategoryID != nil {
		ok, err := s.pins.CategoryExists(ctx, *in.CategoryID)
		if err != nil {
			return nil, apperr.Persistence(apperr.CodeStorage, err)
		}
		if !ok {
			return nil, apperr.NotFound(apperr.CodeCategoryNotFound, "category not found")
		}
	}
	if in.CityID != nil {
		ok, err := s.pins.CityExists(ctx, *in.CityID)
		if err != nil {
			return nil, apperr.Persistence(apperr.CodeStorage, err)
		}
		if !ok {
			return nil, apperr.NotFound(apperr.CodeCityNotFound, "city not found")
		}
	}

	res := &CreatePinResult{}
	err = s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		user, err := lockEarner(ctx, s.users.WithTx(tx), userID)
		if err != nil {
			return err
		}
		if err := s.counter.Gate(ctx, tx, userID, domain.ActionCreatePin, def, effectiveCooldown(def, settings)); err != nil {
			return err
		}

		claim := Decide(user, settings, def, in.UsedTresesenta)
		now := s.now()
		images := in.ImageURLs
		if images == nil {
			images = []string{}
		}
		pin := &models.Pin{
			UserID:             userID,
			Title:              in.Title,
			Description:        in.Description,
			ImageURLs:          images,
			Latitude:           in.Latitude,
			Longitude:          in.Longitude,
			LocationName:       strings.TrimSpace(in.LocationName),
			CategoryID:         in.CategoryID,
			CityID:             in.CityID,
			UsedTresesenta:     in.UsedTresesenta,
			VerificationStatus: claim.Status,
			PointsAwarded:      claim.Points,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if claim.Status == domain.VerificationApproved {
			pin.VerifiedAt = &now
		}
		if err := s.pins.WithTx(tx).Create(ctx, pin); err != nil {
			return err
		}
		res.Pin = pin

		if claim.Status == domain.VerificationPending {
			res.VerificationRequest, err = s.verification.openRequest(ctx, tx, pin.ID, userID, claim.FrozenBonus, nil)
			if err != nil {
				return err
			}
		}

		desc := "Pin created: " + pin.Title
		if claim.IncludesBonus {
			desc += " (TRESESENTA bonus auto-approved)"
		}
		res.Transaction, err = s.ledger.Record(ctx, tx, Entry{
			UserID:          userID,
			Action:          domain.ActionCreatePin,
			Points:          claim.Points,
			RelatedPinID:    &pin.ID,
			IncludesBonus:   claim.IncludesBonus,
			Description:     desc,
			CatalogFallback: fallback,
		})
		if err != nil {
			return err
		}
		if err := s.counter.RecordOccurrence(ctx, tx, userID, domain.ActionCreatePin, claim.Points); err != nil {
			return err
		}
		if in.CityID != nil {
			if err := s.pins.WithTx(tx).UpsertUserCity(ctx, userID, *in.CityID, claim.Points, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.events.PointsAwarded(userID, res.Transaction)
	return res, nil
}

// visiblePin loads a pin that is not hidden.
func (s *PinService) visiblePin(ctx context.Context, pinID uint) (*models.Pin, error) {
	pin, err := s.pins.GetByID(ctx, pinID)
	if err != nil {
		return nil, notFoundOr(err, apperr.CodePinNotFound, "pin not found")
	}
	if pin.IsHidden {
		return nil, apperr.NotFound(apperr.CodePinNotFound, "pin not found")
	}
	return pin, nil
}

// LikePin credits the liker (like_pin) and then, separately, the owner
// (receive_like). Self-likes are counted but earn nothing.
func (s *PinService) LikePin(ctx context.Context, userID, pinID uint) (*InteractionResult, error) {
	likeDef, err := s.catalog.Lookup(ctx, domain.ActionLikePin)
	if err != nil {
		return nil, err
	}
	recvDef, err := s.catalog.Lookup(ctx, domain.ActionReceiveLike)
	if err != nil {
		return nil, err
	}
	pin, err := s.visiblePin(ctx, pinID)
	if err != nil {
		return nil, err
	}
	self := pin.UserID == userID

	res := &InteractionResult{}
	err = s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := lockEarner(ctx, s.users.WithTx(tx), userID); err != nil {
			return err
		}
		pins := s.pins.WithTx(tx)
		liked, err := pins.HasLiked(ctx, userID, pinID)
		if err != nil {
			return err
		}
		if liked {
			return apperr.Conflict(apperr.CodeAlreadyLiked, "pin already liked")
		}
		if err := s.counter.Gate(ctx, tx, userID, domain.ActionLikePin, likeDef, effectiveCooldown(likeDef, Settings{})); err != nil {
			return err
		}
		if err := pins.CreateLike(ctx, &models.Like{UserID: userID, PinID: pinID, CreatedAt: s.now()}); err != nil {
			return err
		}
		if res.LikesCount, err = pins.AddLikes(ctx, pinID, 1); err != nil {
			return err
		}
		earned := 0
		if !self && likeDef.Points != 0 {
			owner := pin.UserID
			res.Transaction, err = s.ledger.Record(ctx, tx, Entry{
				UserID:            userID,
				Action:            domain.ActionLikePin,
				Points:            likeDef.Points,
				RelatedPinID:      &pin.ID,
				CounterpartUserID: &owner,
				Description:       "Like on pin: " + pin.Title,
			})
			if err != nil {
				return err
			}
			earned = likeDef.Points
		}
		return s.counter.RecordOccurrence(ctx, tx, userID, domain.ActionLikePin, earned)
	})
	if err != nil {
		return nil, err
	}

	if !self {
		res.RecipientTransaction, res.RecipientCredited = s.creditRecipient(ctx, pin, userID, domain.ActionReceiveLike, recvDef, "Like received on pin: "+pin.Title)
	}
	s.events.LikeCount(pinID, res.LikesCount)
	if res.Transaction != nil {
		s.events.PointsAwarded(userID, res.Transaction)
	}
	return res, nil
}

// creditRecipient books the pin owner's side of an interaction in its own
// transaction. Failures are logged and reported, never retried here.
func (s *PinService) creditRecipient(ctx context.Context, pin *models.Pin, actorID uint, kind domain.ActionKind, def *models.PointAction, desc string) (*models.PointTransaction, bool) {
	if def.Points == 0 {
		return nil, true
	}
	var out *models.PointTransaction
	err := s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := lockEarner(ctx, s.users.WithTx(tx), pin.UserID); err != nil {
			return err
		}
		var err error
		out, err = s.ledger.Record(ctx, tx, Entry{
			UserID:            pin.UserID,
			Action:            kind,
			Points:            def.Points,
			RelatedPinID:      &pin.ID,
			CounterpartUserID: &actorID,
			Description:       desc,
		})
		if err != nil {
			return err
		}
		return s.counter.AddPointsEarned(ctx, tx, pin.UserID, def.Points)
	})
	if err != nil {
		entry := logger.WithError(err).WithFields(logrus.Fields{
			"action":    string(kind),
			"pin_id":    pin.ID,
			"owner_id":  pin.UserID,
			"actor_id":  actorID,
			"points":    def.Points,
			"component": "recipient_credit",
		})
		if apperr.KindOf(err) == apperr.KindAuthorization {
			entry.Info("recipient not credited: account suspended")
		} else {
			entry.Error("recipient credit failed after actor credit committed")
		}
		return nil, false
	}
	s.events.PointsAwarded(pin.UserID, out)
	return out, true
}

// UnlikePin removes a like. Points already booked are not clawed back.
func (s *PinService) UnlikePin(ctx context.Context, userID, pinID uint) (int, error) {
	if _, err := s.visiblePin(ctx, pinID); err != nil {
		return 0, err
	}
	var likes int
	err := s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		pins := s.pins.WithTx(tx)
		removed, err := pins.DeleteLike(ctx, userID, pinID)
		if err != nil {
			return err
		}
		if !removed {
			return apperr.Conflict(apperr.CodeNotLiked, "pin not liked")
		}
		likes, err = pins.AddLikes(ctx, pinID, -1)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.events.LikeCount(pinID, likes)
	return likes, nil
}

// CommentPin works like LikePin with comment_pin/receive_comment and a
// cooldown between comments.
func (s *PinService) CommentPin(ctx context.Context, userID, pinID uint, content string) (*InteractionResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "comment is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return nil, apperr.Validation(apperr.CodeInvalidInput, fmt.Sprintf("comment must be at most %d characters", maxCommentLen))
	}
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	commentDef, err := s.catalog.Lookup(ctx, domain.ActionCommentPin)
	if err != nil {
		return nil, err
	}
	recvDef, err := s.catalog.Lookup(ctx, domain.ActionReceiveComment)
	if err != nil {
		return nil, err
	}
	pin, err := s.visiblePin(ctx, pinID)
	if err != nil {
		return nil, err
	}
	self := pin.UserID == userID

	res := &InteractionResult{}
	err = s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := lockEarner(ctx, s.users.WithTx(tx), userID); err != nil {
			return err
		}
		if err := s.counter.Gate(ctx, tx, userID, domain.ActionCommentPin, commentDef, effectiveCooldown(commentDef, settings)); err != nil {
			return err
		}
		pins := s.pins.WithTx(tx)
		now := s.now()
		c := &models.Comment{PinID: pinID, UserID: userID, Content: content, CreatedAt: now, UpdatedAt: now}
		if err := pins.CreateComment(ctx, c); err != nil {
			return err
		}
		if err := pins.AddComments(ctx, pinID, 1); err != nil {
			return err
		}
		res.Comment = c
		earned := 0
		if !self && commentDef.Points != 0 {
			owner := pin.UserID
			res.Transaction, err = s.ledger.Record(ctx, tx, Entry{
				UserID:            userID,
				Action:            domain.ActionCommentPin,
				Points:            commentDef.Points,
				RelatedPinID:      &pin.ID,
				CounterpartUserID: &owner,
				Description:       "Comment on pin: " + pin.Title,
			})
			if err != nil {
				return err
			}
			earned = commentDef.Points
		}
		return s.counter.RecordOccurrence(ctx, tx, userID, domain.ActionCommentPin, earned)
	})
	if err != nil {
		return nil, err
	}

	if !self {
		res.RecipientTransaction, res.RecipientCredited = s.creditRecipient(ctx, pin, userID, domain.ActionReceiveComment, recvDef, "Comment received on pin: "+pin.Title)
	}
	s.events.CommentCreated(pinID, res.Comment)
	if res.Transaction != nil {
		s.events.PointsAwarded(userID, res.Transaction)
	}
	return res, nil
}

func (s *PinService) GetPin(ctx context.Context, pinID uint) (*models.Pin, error) {
	return s.visiblePin(ctx, pinID)
}

func checkPinStatus(status string) error {
	switch status {
	case "", domain.VerificationNone, domain.VerificationPending, domain.VerificationApproved, domain.VerificationRejected:
		return nil
	}
	return apperr.Validation(apperr.CodeInvalidInput, "invalid verification status")
}

func (s *PinService) ListPins(ctx context.Context, f repository.PinFilters) ([]models.Pin, int64, error) {
	if err := checkPinStatus(f.VerificationStatus); err != nil {
		return nil, 0, err
	}
	f.IncludeHidden, f.Hidden = false, nil
	f.Page, f.Limit = Page(f.Page, f.Limit)
	list, total, err := s.pins.List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Persistence(apperr.CodeStorage, err)
	}
	return list, total, nil
}

func (s *PinService) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]repository.NearbyPin, error) {
	if !location.ValidCoordinates(lat, lng) {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "invalid coordinates")
	}
	if radiusKm <= 0 || radiusKm > maxNearbyRadiusKm {
		return nil, apperr.Validation(apperr.CodeInvalidInput, fmt.Sprintf("radius must be in (0, %d] km", maxNearbyRadiusKm))
	}
	_, limit = Page(1, limit)
	list, err := s.pins.Nearby(ctx, lat, lng, radiusKm, limit)
	if err != nil {
		return nil, apperr.Persistence(apperr.CodeStorage, err)
	}
	return list, nil
}

func (s *PinService) ListComments(ctx context.Context, pinID uint, page, limit int) ([]models.Comment, int64, error) {
	if _, err := s.visiblePin(ctx, pinID); err != nil {
		return nil, 0, err
	}
	page, limit = Page(page, limit)
	list, total, err := s.pins.ListComments(ctx, pinID, page, limit)
	if err != nil {
		return nil, 0, apperr.Persistence(apperr.CodeStorage, err)
	}
	return list, total, nil
}
