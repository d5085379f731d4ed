package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tresesenta/internal/database/dbtest"
	"tresesenta/internal/domain"
	"tresesenta/internal/models"
	"tresesenta/internal/service"
	"tresesenta/pkg/apperr"

	"github.com/stretchr/testify/require"
)

// A user with 100 points likes another user's pin: the liker ends at 105
// and the owner gains 10 in a separate transaction.
func TestLikeCreditsBothSides(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	liker := e.user(t, "liker", 100)
	owner := e.user(t, "owner", 0)
	pin := dbtest.Pin(t, e.db, owner.ID)

	res, err := e.pins.LikePin(ctx, liker.ID, pin.ID)
	require.NoError(t, err)
	require.Equal(t, 105, res.Transaction.BalanceAfter)
	require.True(t, res.RecipientCredited)
	require.NotNil(t, res.RecipientTransaction)
	require.Equal(t, domain.ActionReceiveLike, res.RecipientTransaction.ActionCode)
	require.Equal(t, 10, res.RecipientTransaction.Points)
	require.Equal(t, 1, res.LikesCount)

	require.Equal(t, 105, e.reload(t, liker.ID).TotalPoints)
	require.Equal(t, 10, e.reload(t, owner.ID).TotalPoints)
	e.requireConsistent(t, owner.ID)

	stats, err := e.counter.TodayStats(ctx, e.db, liker.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.LikesGiven)
	require.Equal(t, 5, stats.PointsEarned)

	ownerStats, err := e.counter.TodayStats(ctx, e.db, owner.ID)
	require.NoError(t, err)
	require.Equal(t, 0, ownerStats.LikesGiven)
	require.Equal(t, 10, ownerStats.PointsEarned)

	require.Equal(t, 5, e.events.awarded[liker.ID])
	require.Equal(t, 10, e.events.awarded[owner.ID])
	require.Equal(t, 1, e.events.likes[pin.ID])

	_, err = e.pins.LikePin(ctx, liker.ID, pin.ID)
	requireKind(t, err, apperr.KindConflict, apperr.CodeAlreadyLiked)
}

func TestSelfLikeCountsWithoutPoints(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, "narcissus", 0)
	pin := dbtest.Pin(t, e.db, owner.ID)

	res, err := e.pins.LikePin(ctx, owner.ID, pin.ID)
	require.NoError(t, err)
	require.Nil(t, res.Transaction)
	require.Nil(t, res.RecipientTransaction)
	require.Equal(t, 1, res.LikesCount)
	require.Equal(t, 0, e.reload(t, owner.ID).TotalPoints)

	stats, err := e.counter.TodayStats(ctx, e.db, owner.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.LikesGiven)
}

func TestUnlikeKeepsPoints(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	liker := e.user(t, "liker", 0)
	owner := e.user(t, "owner", 0)
	pin := dbtest.Pin(t, e.db, owner.ID)

	_, err := e.pins.LikePin(ctx, liker.ID, pin.ID)
	require.NoError(t, err)
	likes, err := e.pins.UnlikePin(ctx, liker.ID, pin.ID)
	require.NoError(t, err)
	require.Equal(t, 0, likes)
	require.Equal(t, 5, e.reload(t, liker.ID).TotalPoints)
	require.Equal(t, 10, e.reload(t, owner.ID).TotalPoints)

	_, err = e.pins.UnlikePin(ctx, liker.ID, pin.ID)
	requireKind(t, err, apperr.KindConflict, apperr.CodeNotLiked)
}

func TestCreatePinDailyLimitBoundary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "prolific", 0)

	for i := 0; i < 5; i++ {
		res, err := e.pins.CreatePin(ctx, u.ID, pinInput(fmt.Sprintf("pin %d", i)))
		require.NoError(t, err)
		require.Equal(t, 20, res.Transaction.Points)
		require.Equal(t, domain.VerificationNone, res.Pin.VerificationStatus)
	}

	_, err := e.pins.CreatePin(ctx, u.ID, pinInput("one too many"))
	ae := requireKind(t, err, apperr.KindRateLimited, apperr.CodeDailyLimit)
	require.Equal(t, 5, ae.Meta["limit"])
	require.Equal(t, 5, ae.Meta["used"])
	require.Equal(t, 0, ae.Meta["remaining"])
	require.Equal(t, 12*3600, ae.Meta["retry_after_seconds"])

	require.Equal(t, 100, e.reload(t, u.ID).TotalPoints)
	var pins int64
	require.NoError(t, e.db.Model(&models.Pin{}).Where("user_id = ?", u.ID).Count(&pins).Error)
	require.EqualValues(t, 5, pins)

	e.clock.Advance(12 * time.Hour)
	_, err = e.pins.CreatePin(ctx, u.ID, pinInput("next day"))
	require.NoError(t, err)
	e.requireConsistent(t, u.ID)
}

func TestCommentCooldown(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "chatty", 0)
	owner := e.user(t, "owner", 0)
	pin := dbtest.Pin(t, e.db, owner.ID)

	res, err := e.pins.CommentPin(ctx, u.ID, pin.ID, "¡Qué rico!")
	require.NoError(t, err)
	require.Equal(t, 3, res.Transaction.Points)
	require.Equal(t, 2, res.RecipientTransaction.Points)

	e.clock.Advance(10 * time.Second)
	_, err = e.pins.CommentPin(ctx, u.ID, pin.ID, "otra vez")
	ae := requireKind(t, err, apperr.KindRateLimited, apperr.CodeCooldown)
	require.Equal(t, 20, ae.Meta["retry_after_seconds"])

	e.clock.Advance(21 * time.Second)
	_, err = e.pins.CommentPin(ctx, u.ID, pin.ID, "otra vez")
	require.NoError(t, err)

	comments, total, err := e.pins.ListComments(ctx, pin.ID, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, comments, 2)
	require.Equal(t, 2, e.events.comments)

	_, err = e.pins.CommentPin(ctx, u.ID, pin.ID, "   ")
	requireKind(t, err, apperr.KindValidation, apperr.CodeInvalidInput)
}

func TestCommentCooldownFollowsSetting(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.adminUser(t)
	u := e.user(t, "chatty", 0)
	pin := dbtest.Pin(t, e.db, e.user(t, "owner", 0).ID)

	_, err := e.catalog.Update(ctx, admin.ID, domain.ActionCommentPin, service.ActionUpdate{ClearCooldown: true})
	require.NoError(t, err)
	_, err = e.settings.Update(ctx, admin.ID, domain.SettingCommentCooldownSeconds, "0")
	require.NoError(t, err)

	_, err = e.pins.CommentPin(ctx, u.ID, pin.ID, "uno")
	require.NoError(t, err)
	_, err = e.pins.CommentPin(ctx, u.ID, pin.ID, "dos")
	require.NoError(t, err)
}

func TestDisabledActionRejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.adminUser(t)
	u := e.user(t, "fan", 0)
	pin := dbtest.Pin(t, e.db, e.user(t, "owner", 0).ID)

	off := false
	_, err := e.catalog.Update(ctx, admin.ID, domain.ActionLikePin, service.ActionUpdate{IsActive: &off})
	require.NoError(t, err)

	_, err = e.pins.LikePin(ctx, u.ID, pin.ID)
	requireKind(t, err, apperr.KindDisabled, apperr.CodeFeatureDisabled)

	var likes int64
	require.NoError(t, e.db.Model(&models.Like{}).Count(&likes).Error)
	require.Zero(t, likes)
}

func TestBannedUserCannotEarn(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.adminUser(t)
	u := e.user(t, "troll", 0)
	pin := dbtest.Pin(t, e.db, e.user(t, "owner", 0).ID)

	_, err := e.admin.BanUser(ctx, admin.ID, u.ID, "spam")
	require.NoError(t, err)

	_, err = e.pins.LikePin(ctx, u.ID, pin.ID)
	requireKind(t, err, apperr.KindAuthorization, apperr.CodeAccountSuspended)
	_, err = e.pins.CreatePin(ctx, u.ID, pinInput("spam"))
	requireKind(t, err, apperr.KindAuthorization, apperr.CodeAccountSuspended)
	_, err = e.login.ClaimDailyLogin(ctx, u.ID)
	requireKind(t, err, apperr.KindAuthorization, apperr.CodeAccountSuspended)
}

func TestBannedOwnerIsNotCredited(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.adminUser(t)
	liker := e.user(t, "liker", 0)
	owner := e.user(t, "owner", 0)
	pin := dbtest.Pin(t, e.db, owner.ID)

	_, err := e.admin.BanUser(ctx, admin.ID, owner.ID, "fraud")
	require.NoError(t, err)

	res, err := e.pins.LikePin(ctx, liker.ID, pin.ID)
	require.NoError(t, err)
	require.False(t, res.RecipientCredited)
	require.Nil(t, res.RecipientTransaction)
	require.Equal(t, 5, e.reload(t, liker.ID).TotalPoints)
	require.Equal(t, 0, e.reload(t, owner.ID).TotalPoints)
}

func TestCreatePinFallbackWithoutCatalogRow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "pioneer", 0)
	require.NoError(t, e.db.Where("action_code = ?", domain.ActionCreatePin).Delete(&models.PointAction{}).Error)

	res, err := e.pins.CreatePin(ctx, u.ID, service.CreatePinInput{
		Title: "Bootstrap", Latitude: 20.6597, Longitude: -103.3496, UsedTresesenta: true,
	})
	require.NoError(t, err)
	require.Equal(t, 20, res.Transaction.Points)
	require.NotNil(t, res.VerificationRequest)
	require.Zero(t, res.VerificationRequest.BonusPoints)
	e.requireConsistent(t, u.ID)
}

func TestCreatePinValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "sloppy", 0)

	_, err := e.pins.CreatePin(ctx, u.ID, service.CreatePinInput{Title: " ", Latitude: 1, Longitude: 1})
	requireKind(t, err, apperr.KindValidation, apperr.CodeInvalidInput)

	_, err = e.pins.CreatePin(ctx, u.ID, service.CreatePinInput{Title: "Polo", Latitude: 91, Longitude: 0})
	requireKind(t, err, apperr.KindValidation, apperr.CodeInvalidInput)

	missing := uint(999)
	_, err = e.pins.CreatePin(ctx, u.ID, service.CreatePinInput{Title: "Nowhere", Latitude: 1, Longitude: 1, CityID: &missing})
	requireKind(t, err, apperr.KindNotFound, apperr.CodeCityNotFound)
}

func TestNearbyAndHiddenPins(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.adminUser(t)
	u := e.user(t, "walker", 0)

	zocalo, err := e.pins.CreatePin(ctx, u.ID, service.CreatePinInput{Title: "Zócalo", Latitude: 19.4326, Longitude: -99.1332})
	require.NoError(t, err)
	_, err = e.pins.CreatePin(ctx, u.ID, service.CreatePinInput{Title: "Bellas Artes", Latitude: 19.4352, Longitude: -99.1412})
	require.NoError(t, err)
	_, err = e.pins.CreatePin(ctx, u.ID, service.CreatePinInput{Title: "Guadalajara", Latitude: 20.6597, Longitude: -103.3496})
	require.NoError(t, err)

	near, err := e.pins.Nearby(ctx, 19.4326, -99.1332, 5, 10)
	require.NoError(t, err)
	require.Len(t, near, 2)
	require.Equal(t, "Zócalo", near[0].Pin.Title)
	require.Less(t, near[0].DistanceKm, near[1].DistanceKm)

	_, err = e.pins.Nearby(ctx, 19.4326, -99.1332, 500, 10)
	requireKind(t, err, apperr.KindValidation, apperr.CodeInvalidInput)

	require.NoError(t, e.admin.HidePin(ctx, admin.ID, zocalo.Pin.ID, "duplicate"))
	_, err = e.pins.GetPin(ctx, zocalo.Pin.ID)
	requireKind(t, err, apperr.KindNotFound, apperr.CodePinNotFound)
	near, err = e.pins.Nearby(ctx, 19.4326, -99.1332, 5, 10)
	require.NoError(t, err)
	require.Len(t, near, 1)

	require.NoError(t, e.admin.UnhidePin(ctx, admin.ID, zocalo.Pin.ID, ""))
	got, err := e.pins.GetPin(ctx, zocalo.Pin.ID)
	require.NoError(t, err)
	require.False(t, got.IsHidden)
}

// Many users like one pin while an admin adjusts the owner: the owner's
// chain must stay gapless and match the cached total.
//
// On SQLite the single pooled connection serializes the transactions and
// SQLite ignores FOR UPDATE, so this only checks the bookkeeping. The
// Postgres variant below contends on the users row lock for real.
func TestConcurrentCreditsKeepChain(t *testing.T) {
	concurrentCredits(t, newEnv(t))
}

// Set TRESESENTA_TEST_POSTGRES_DSN to run it.
func TestConcurrentCreditsKeepChainPostgres(t *testing.T) {
	concurrentCredits(t, newEnvOn(t, dbtest.Postgres(t)))
}

func concurrentCredits(t *testing.T, e *env) {
	ctx := context.Background()
	admin := e.adminUser(t)
	owner := e.user(t, "popular", 0)
	pin := dbtest.Pin(t, e.db, owner.ID)

	const likers = 8
	const adjusts = 4
	users := make([]*models.User, likers)
	for i := range users {
		users[i] = e.user(t, fmt.Sprintf("fan%d", i), 0)
	}

	var wg sync.WaitGroup
	errs := make(chan error, likers+adjusts)
	for _, u := range users {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			res, err := e.pins.LikePin(ctx, id, pin.ID)
			if err == nil && !res.RecipientCredited {
				err = fmt.Errorf("owner not credited for like by %d", id)
			}
			errs <- err
		}(u.ID)
	}
	for i := 0; i < adjusts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.ledger.Adjust(ctx, admin.ID, owner.ID, 1, "bonus")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rep := e.requireConsistent(t, owner.ID)
	require.Equal(t, likers*10+adjusts, rep.CachedTotal)
	require.Equal(t, likers+adjusts, rep.Transactions)
	for _, u := range users {
		e.requireConsistent(t, u.ID)
	}
	got, err := e.pins.GetPin(ctx, pin.ID)
	require.NoError(t, err)
	require.Equal(t, likers, got.LikesCount)
}
