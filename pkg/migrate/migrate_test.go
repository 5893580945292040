package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := ValidateFS(Migrations, embeddedDir); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
	entries, err := fs.ReadDir(Migrations, embeddedDir)
	if err != nil {
		t.Fatalf("read embedded dir: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded migrations")
	}
}

func TestDiskAndEmbeddedMigrationsMatch(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("validate disk migrations: %v", err)
	}
	disk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	embedded, err := fs.Glob(Migrations, embeddedDir+"/*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	if len(disk) != len(embedded) {
		t.Fatalf("expected %d embedded migrations, got %d", len(disk), len(embedded))
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS order_sequences",
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number ON orders (order_number)",
		"final_value numeric(14,2) NOT NULL DEFAULT 0",
		"'awaiting_pricing', 'pricing_done', 'awaiting_payment', 'partial_payment'",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestTagLotMigrationGuardsConservation(t *testing.T) {
	content := readMigration(t, "*_create_tag_lots.sql")
	for _, sub := range []string{
		"CHECK (reserved_qty >= 0)",
		"CHECK (reserved_qty <= total_qty)",
		"ix_tag_lots_type_area ON tag_lots (tag_type_id, area_id)",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}

	lines := readMigration(t, "*_create_order_lines.sql")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS line_tags",
		"FOREIGN KEY (lot_id) REFERENCES tag_lots(id) ON DELETE RESTRICT",
		"CHECK (owned_area_id IS NULL OR supplier_area_id IS NULL)",
		"CREATE TABLE IF NOT EXISTS line_harvest_costs",
	} {
		if !strings.Contains(lines, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	path, err := CreateSQLMigration(dir, "Add Harvest Notes!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20240601120000_add_harvest_notes.sql" {
		t.Fatalf("unexpected migration path %q", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
	if _, err := CreateSQLMigration(dir, "!!!", now); err == nil {
		t.Fatal("expected empty sanitized name to fail")
	}
}

func TestCreateSQLMigrationSortsAfterExisting(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if _, err := CreateSQLMigration(dir, "first", now); err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := CreateSQLMigration(dir, "second", now)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if filepath.Base(second) != "20240601120001_second.sql" {
		t.Fatalf("expected bumped version, got %q", second)
	}

	older, err := CreateSQLMigration(dir, "clock skew", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("create with older clock: %v", err)
	}
	if filepath.Base(older) != "20240601120002_clock_skew.sql" {
		t.Fatalf("expected version after newest file, got %q", older)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migrations should validate: %v", err)
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected bad filename to fail")
	}

	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20240101000000_init.sql"), []byte("-- +goose Up\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected missing down section to fail")
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := ParseVersion("20240501090200"); err != nil || v != 20240501090200 {
		t.Fatalf("unexpected parse result %d %v", v, err)
	}
	for _, bad := range []string{"", "2024", "2024050109020x"} {
		if _, err := ParseVersion(bad); err == nil {
			t.Fatalf("expected %q to fail", bad)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
