package dbtest

import (
	"net/url"
	"os"
	"strings"
	"testing"

	"tresesenta/config"
	"tresesenta/internal/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresDSNEnv names the variable that enables Postgres-backed tests.
const PostgresDSNEnv = "TRESESENTA_TEST_POSTGRES_DSN"

// Postgres returns a migrated and seeded database in a throwaway schema of
// the server named by TRESESENTA_TEST_POSTGRES_DSN, with a real connection
// pool so row locks are contended. The test is skipped when the variable is
// unset.
func Postgres(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}
	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	admin, err := database.Open(postgres.Open(dsn), &config.DatabaseConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, admin.Exec("CREATE SCHEMA "+schema).Error)

	db, err := database.Open(postgres.Open(withSearchPath(dsn, schema)), &config.DatabaseConfig{MaxOpenConns: 20, MaxIdleConns: 20})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedCatalog(db))
	require.NoError(t, database.SeedSettings(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = admin.Exec("DROP SCHEMA " + schema + " CASCADE").Error
		if sqlDB, err := admin.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func withSearchPath(dsn, schema string) string {
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err == nil {
			q := u.Query()
			q.Set("search_path", schema)
			u.RawQuery = q.Encode()
			return u.String()
		}
	}
	return dsn + " search_path=" + schema
}
