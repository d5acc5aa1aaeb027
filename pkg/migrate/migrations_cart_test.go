package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/cartwatch-backend/pkg/migrate"
)

func TestCartRecordsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_cart_records.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS cart_records",
		"CHECK (status IN ('active', 'recoverable', 'abandoned', 'cleared', 'converted', 'deleted'))",
		"CHECK (is_active = (status = 'active'))",
		"idx_cart_records_status_updated ON cart_records (status, last_updated)",
		"DROP TABLE IF EXISTS cart_records",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestArchiveAndOptionsMigrations(t *testing.T) {
	archive := readMigration(t, "*_create_cart_records_archive.sql")
	if !strings.Contains(archive, "archived_at timestamptz NOT NULL") {
		t.Errorf("archive table must carry archived_at")
	}
	options := readMigration(t, "*_create_options.sql")
	if !strings.Contains(options, "option_key text PRIMARY KEY") {
		t.Errorf("options table must be keyed by option_key")
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Export Runs!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_export_runs.sql") {
		t.Fatalf("unexpected migration path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
