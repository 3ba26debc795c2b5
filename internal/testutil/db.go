package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/vrsandeep/shelfie-go/internal/assets"
	"github.com/vrsandeep/shelfie-go/internal/db"
)

// SetupTestDB creates a SQLite database in a temporary directory and applies
// all migrations. It returns the database connection, ready for use in tests.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// A file database is used because every pooled connection to ":memory:"
	// would see its own empty database.
	database, err := db.InitDB(filepath.Join(t.TempDir(), "shelfie_test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Attach a cleanup function to automatically close the DB when the test completes.
	t.Cleanup(func() {
		database.Close()
	})

	if err := db.RunMigrations(database, assets.MigrationsFS); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	return database
}
