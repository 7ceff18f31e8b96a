package persistence

import (
	"testing"

	"github.com/estudiomd/backoffice/internal/infrastructure/config"
	"github.com/estudiomd/backoffice/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newSQLiteDB opens an in-memory database with the schema migrated
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.DB.AutoMigrate(models.All()...))
	return db.DB
}
