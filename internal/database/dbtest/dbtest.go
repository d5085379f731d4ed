// Package dbtest opens throwaway databases for package tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"tresesenta/config"
	"tresesenta/internal/database"
	"tresesenta/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var nameReplacer = strings.NewReplacer("/", "_", " ", "_", "#", "_")

// New returns a migrated in-memory database with the default catalog and
// settings seeded. One connection only: SQLite ignores row locks, so the
// single connection serializes writers the way FOR UPDATE does in production.
func New(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", nameReplacer.Replace(t.Name()))
	db, err := database.Open(sqlite.Open(dsn), &config.DatabaseConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedCatalog(db))
	require.NoError(t, database.SeedSettings(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// User inserts a user with the given balance. No ledger row backs the
// opening balance, so chain checks should start from zero-balance users.
func User(t *testing.T, db *gorm.DB, username string, points int) *models.User {
	t.Helper()
	u := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		TotalPoints: points,
		Level:       1,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func Admin(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", IsAdmin: true, Level: 1}
	require.NoError(t, db.Create(u).Error)
	return u
}

func Pin(t *testing.T, db *gorm.DB, ownerID uint) *models.Pin {
	t.Helper()
	p := &models.Pin{
		UserID:             ownerID,
		Title:              "Tacos al pastor",
		Latitude:           19.4326,
		Longitude:          -99.1332,
		VerificationStatus: "none",
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
