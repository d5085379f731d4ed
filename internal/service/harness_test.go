package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"tresesenta/internal/database"
	"tresesenta/internal/database/dbtest"
	"tresesenta/internal/models"
	"tresesenta/internal/service"
	"tresesenta/pkg/apperr"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu       sync.Mutex
	awarded  map[uint]int
	likes    map[uint]int
	comments int
}

func (r *recorder) PointsAwarded(userID uint, tx *models.PointTransaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.awarded[userID] += tx.Points
}

func (r *recorder) LikeCount(pinID uint, likes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.likes[pinID] = likes
}

func (r *recorder) CommentCreated(uint, *models.Comment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments++
}

type env struct {
	db           *gorm.DB
	clock        *clock
	events       *recorder
	settings     *service.SettingsService
	catalog      *service.Catalog
	counter      *service.Counter
	ledger       *service.Ledger
	verification *service.Verification
	pins         *service.PinService
	login        *service.LoginService
	points       *service.PointsService
	admin        *service.AdminService
	leaderboard  *service.LeaderboardService
	users        *service.UserService
	places       *service.PlaceService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvOn(t, dbtest.New(t))
}

func newEnvOn(t *testing.T, db *gorm.DB) *env {
	t.Helper()
	clk := &clock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	rec := &recorder{awarded: map[uint]int{}, likes: map[uint]int{}}
	tm := database.NewTxManager(db, 30*time.Second)

	settings := service.NewSettingsService(tm)
	catalog := service.NewCatalog(tm)
	counter := service.NewCounter(db, time.UTC, clk.Now)
	ledger := service.NewLedger(tm, clk.Now)
	verification := service.NewVerification(tm, catalog, settings, ledger, counter, rec, clk.Now)
	login := service.NewLoginService(tm, ledger, counter, rec)
	lb, err := service.NewLeaderboardService(tm, settings, time.Minute, clk.Now)
	require.NoError(t, err)

	return &env{
		db:           db,
		clock:        clk,
		events:       rec,
		settings:     settings,
		catalog:      catalog,
		counter:      counter,
		ledger:       ledger,
		verification: verification,
		pins:         service.NewPinService(tm, catalog, settings, ledger, counter, verification, rec, clk.Now),
		login:        login,
		points:       service.NewPointsService(tm, catalog, counter, ledger, login),
		admin:        service.NewAdminService(tm, ledger, counter, rec),
		leaderboard:  lb,
		users:        service.NewUserService(tm),
		places:       service.NewPlaceService(tm),
	}
}

func (e *env) user(t *testing.T, name string, points int) *models.User {
	return dbtest.User(t, e.db, name, points)
}

func (e *env) adminUser(t *testing.T) *models.User {
	return dbtest.Admin(t, e.db, "root")
}

func (e *env) reload(t *testing.T, id uint) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, e.db.First(&u, id).Error)
	return &u
}

func (e *env) requireConsistent(t *testing.T, userID uint) service.ChainReport {
	t.Helper()
	rep, err := e.ledger.VerifyChain(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, rep.ChainValid, "chain broken at %v", rep.BrokenAtID)
	require.True(t, rep.Consistent, "ledger %d, cached %d", rep.LedgerSum, rep.CachedTotal)
	return rep
}

func requireKind(t *testing.T, err error, kind apperr.Kind, code string) *apperr.AppError {
	t.Helper()
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok, "not an AppError: %v", err)
	require.Equal(t, kind, ae.Kind, ae.Error())
	if code != "" {
		require.Equal(t, code, ae.Code)
	}
	return ae
}

func pinInput(title string) service.CreatePinInput {
	return service.CreatePinInput{Title: title, Latitude: 19.4326, Longitude: -99.1332}
}
