package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tresesenta/config"
	"tresesenta/internal/auth"
	"tresesenta/internal/database"
	"tresesenta/internal/database/dbtest"
	"tresesenta/internal/domain"
	"tresesenta/internal/models"
	"tresesenta/internal/router"
	"tresesenta/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t   *testing.T
	db  *gorm.DB
	cfg *config.Config
	h   http.Handler
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	db := dbtest.New(t)
	cfg := &config.Config{
		Server:   config.ServerConfig{Env: "test"},
		Database: config.DatabaseConfig{TxTimeout: 30 * time.Second},
		JWT:      config.JWTConfig{AccessSecret: "test", AccessExpiry: time.Hour, Issuer: "tresesenta"},
		Points:   config.PointsConfig{Timezone: "UTC", LeaderboardTTL: time.Minute},
	}
	cloud, err := cloudinary.NewClientFromParams("", "", "")
	require.NoError(t, err)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	engine, err := router.Setup(cfg, router.Deps{
		DB:    db,
		Cloud: cloud,
		Now:   func() time.Time { return now },
	})
	require.NoError(t, err)
	return &testServer{t: t, db: db, cfg: cfg, h: engine}
}

func (s *testServer) token(u *models.User) string {
	s.t.Helper()
	role := domain.RoleUser
	if u.IsAdmin {
		role = domain.RoleAdmin
	}
	tok, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, role)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func newPin(title string) map[string]interface{} {
	return map[string]interface{}{"title": title, "latitude": 19.43, "longitude": -99.13}
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", decode(t, w)["status"])
}

func TestPublicCatalog(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/api/v1/points/actions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode(t, w)["data"], len(dbDefaultCatalog()))
}

func dbDefaultCatalog() []string {
	return []string{
		"create_pin", "like_pin", "receive_like", "comment_pin", "receive_comment", "daily_login",
		"streak_7_days", "streak_30_days", "verified_purchase", "tresesenta_bonus", "admin_adjustment",
	}
}

func TestAuthGates(t *testing.T) {
	s := newServer(t)
	require.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/points/my-stats", "", nil).Code)

	u := dbtest.User(t, s.db, "ana", 0)
	w := s.do(http.MethodGet, "/api/v1/admin/stats", s.token(u), nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "ADMIN_REQUIRED", decode(t, w)["code"])
}

func TestCreatePinDailyLimitReturns429(t *testing.T) {
	s := newServer(t)
	u := dbtest.User(t, s.db, "ana", 0)
	tok := s.token(u)

	for i := 0; i < 5; i++ {
		w := s.do(http.MethodPost, "/api/v1/pins", tok, newPin(fmt.Sprintf("pin %d", i)))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	w := s.do(http.MethodPost, "/api/v1/pins", tok, newPin("one too many"))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "43200", w.Header().Get("Retry-After"))
	body := decode(t, w)
	require.Equal(t, "DAILY_LIMIT_REACHED", body["code"])
	details := body["details"].(map[string]interface{})
	require.EqualValues(t, 5, details["limit"])

	w = s.do(http.MethodGet, "/api/v1/points/my-stats", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 100, decode(t, w)["total_points"])
}

func TestCreatePinValidation(t *testing.T) {
	s := newServer(t)
	tok := s.token(dbtest.User(t, s.db, "ana", 0))

	w := s.do(http.MethodPost, "/api/v1/pins", tok, map[string]interface{}{"title": "no coords"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_INPUT", decode(t, w)["code"])

	w = s.do(http.MethodPost, "/api/v1/pins", tok, map[string]interface{}{"title": "x", "latitude": 123.0, "longitude": 0.0})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLikeErrorMapping(t *testing.T) {
	s := newServer(t)
	owner := dbtest.User(t, s.db, "owner", 0)
	liker := dbtest.User(t, s.db, "liker", 0)
	pin := dbtest.Pin(t, s.db, owner.ID)
	tok := s.token(liker)
	path := fmt.Sprintf("/api/v1/pins/%d/like", pin.ID)

	w := s.do(http.MethodPost, path, tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.EqualValues(t, 1, decode(t, w)["likes_count"])

	w = s.do(http.MethodPost, path, tok, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "ALREADY_LIKED", decode(t, w)["code"])

	w = s.do(http.MethodPost, "/api/v1/pins/9999/like", tok, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "PIN_NOT_FOUND", decode(t, w)["code"])

	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/pins/abc/like", tok, nil).Code)
}

func TestDisabledActionReturns403(t *testing.T) {
	s := newServer(t)
	admin := dbtest.Admin(t, s.db, "root")
	owner := dbtest.User(t, s.db, "owner", 0)
	liker := dbtest.User(t, s.db, "liker", 0)
	pin := dbtest.Pin(t, s.db, owner.ID)

	w := s.do(http.MethodPut, "/api/v1/admin/point-actions/like_pin", s.token(admin), map[string]interface{}{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/pins/%d/like", pin.ID), s.token(liker), nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "FEATURE_DISABLED", decode(t, w)["code"])
}

func TestSelfBanConflict(t *testing.T) {
	s := newServer(t)
	admin := dbtest.Admin(t, s.db, "root")
	w := s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/users/%d/ban", admin.ID), s.token(admin), map[string]string{"reason": "test"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "SELF_TARGET", decode(t, w)["code"])
}

func TestPinListPagination(t *testing.T) {
	s := newServer(t)
	owner := dbtest.User(t, s.db, "owner", 0)
	for i := 0; i < 5; i++ {
		dbtest.Pin(t, s.db, owner.ID)
	}
	w := s.do(http.MethodGet, "/api/v1/pins?page=2&limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Len(t, body["data"], 2)
	require.EqualValues(t, 5, body["total"])
	require.EqualValues(t, 2, body["page"])
	require.EqualValues(t, 2, body["limit"])
}

func TestEvidenceUploadWithoutCloudinary(t *testing.T) {
	s := newServer(t)
	tok := s.token(dbtest.User(t, s.db, "ana", 0))

	var buf bytes.Buffer
	mw := newMultipart(t, &buf)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verification/1/evidence", &buf)
	req.Header.Set("Content-Type", mw)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	require.Equal(t, "FEATURE_DISABLED", decode(t, w)["code"])
}

func TestPlaceRoutes(t *testing.T) {
	s := newServer(t)
	require.NoError(t, database.SeedPlaces(s.db))

	w := s.do(http.MethodGet, "/api/v1/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode(t, w)["data"], 5)

	w = s.do(http.MethodGet, "/api/v1/cities?state=Oaxaca", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cities := decode(t, w)["data"].([]interface{})
	require.Len(t, cities, 1)
	id := cities[0].(map[string]interface{})["id"].(float64)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/cities/%d", int(id)), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Oaxaca", decode(t, w)["name"])

	require.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/cities/999", "", nil).Code)
}

func TestUserRoutes(t *testing.T) {
	s := newServer(t)
	ana := dbtest.User(t, s.db, "ana", 120)
	dbtest.User(t, s.db, "beto", 40)

	require.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/users/me", "", nil).Code)

	w := s.do(http.MethodGet, "/api/v1/users/me", s.token(ana), nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	require.Equal(t, "ana@example.com", me["email"])
	require.EqualValues(t, 120, me["total_points"])

	w = s.do(http.MethodGet, "/api/v1/users/beto", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pub := decode(t, w)
	require.Equal(t, "beto", pub["username"])
	require.NotContains(t, pub, "email")

	w = s.do(http.MethodGet, "/api/v1/users/ranking/top?limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	top := decode(t, w)["data"].([]interface{})
	require.Len(t, top, 1)
	require.Equal(t, "ana", top[0].(map[string]interface{})["username"])

	require.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/users/nadie", "", nil).Code)
}

func TestAdminUserAndPinRoutes(t *testing.T) {
	s := newServer(t)
	admin := dbtest.Admin(t, s.db, "root")
	u := dbtest.User(t, s.db, "ana", 0)
	visible := dbtest.Pin(t, s.db, u.ID)
	hidden := dbtest.Pin(t, s.db, u.ID)
	tok := s.token(admin)

	w := s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/pins/%d/hide", hidden.ID), tok, map[string]string{"reason": "spam"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/pins", "", nil)
	require.EqualValues(t, 1, decode(t, w)["total"])
	w = s.do(http.MethodGet, "/api/v1/admin/pins", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 2, decode(t, w)["total"])
	w = s.do(http.MethodGet, "/api/v1/admin/pins?hidden=false", tok, nil)
	list := decode(t, w)["data"].([]interface{})
	require.Len(t, list, 1)
	require.EqualValues(t, visible.ID, list[0].(map[string]interface{})["id"])
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/admin/pins?hidden=maybe", tok, nil).Code)

	path := fmt.Sprintf("/api/v1/admin/users/%d/set-admin", u.ID)
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, path, tok, map[string]string{}).Code)
	w = s.do(http.MethodPost, path, tok, map[string]interface{}{"is_admin": true, "reason": "moderator"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, decode(t, w)["is_admin"])

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/users/%d/set-admin", admin.ID), tok, map[string]interface{}{"is_admin": false})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "SELF_TARGET", decode(t, w)["code"])
}
