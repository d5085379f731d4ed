package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tresesenta/internal/database"
	"tresesenta/internal/database/dbtest"
	"tresesenta/internal/domain"
	"tresesenta/internal/models"
	"tresesenta/pkg/apperr"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSeedIsIdempotent(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, database.SeedCatalog(db))
	require.NoError(t, database.SeedSettings(db))

	var actions int64
	require.NoError(t, db.Model(&models.PointAction{}).Count(&actions).Error)
	require.EqualValues(t, len(domain.AllActionKinds()), actions)

	var settings int64
	require.NoError(t, db.Model(&models.SystemSetting{}).Count(&settings).Error)
	require.EqualValues(t, len(domain.SettingDefaults), settings)
}

func TestSeedKeepsAdminEdits(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, db.Model(&models.PointAction{}).
		Where("action_code = ?", domain.ActionLikePin).Update("points", 9).Error)
	require.NoError(t, database.SeedCatalog(db))

	var like models.PointAction
	require.NoError(t, db.Where("action_code = ?", domain.ActionLikePin).First(&like).Error)
	require.Equal(t, 9, like.Points)
}

func TestSeedAdmin(t *testing.T) {
	db := dbtest.New(t)
	dbtest.User(t, db, "root", 0)
	require.NoError(t, database.SeedAdmin(db, "ROOT@example.com", ""))

	var u models.User
	require.NoError(t, db.Where("email = ?", "root@example.com").First(&u).Error)
	require.True(t, u.IsAdmin)

	require.NoError(t, database.SeedAdmin(db, "new@example.com", "boss"))
	var boss models.User
	require.NoError(t, db.Where("username = ?", "boss").First(&boss).Error)
	require.True(t, boss.IsAdmin)
	require.Equal(t, "new@example.com", boss.Email)
}

func TestWithTransactionRollsBack(t *testing.T) {
	db := dbtest.New(t)
	u := dbtest.User(t, db, "ana", 10)
	tm := database.NewTxManager(db, time.Second)

	boom := errors.New("boom")
	err := tm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", u.ID).Update("total_points", 999).Error; err != nil {
			return err
		}
		return boom
	})
	require.Error(t, err)
	require.ErrorIs(t, err, boom)
	require.Equal(t, apperr.KindPersistence, apperr.KindOf(err))

	var got models.User
	require.NoError(t, db.First(&got, u.ID).Error)
	require.Equal(t, 10, got.TotalPoints)
}

func TestWithTransactionPassesAppErrors(t *testing.T) {
	db := dbtest.New(t)
	tm := database.NewTxManager(db, time.Second)
	err := tm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return apperr.Conflict(apperr.CodeAlreadyLiked, "already liked")
	})
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestWithTransactionTimeout(t *testing.T) {
	db := dbtest.New(t)
	tm := database.NewTxManager(db, 20*time.Millisecond)
	err := tm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		time.Sleep(60 * time.Millisecond)
		return tx.Model(&models.User{}).Where("id = ?", 1).Update("total_points", 1).Error
	})
	require.Error(t, err)
	require.True(t, apperr.IsTimeout(err))
}
