package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestDonationsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_donations.sql")

	checks := []string{
		"CREATE TYPE donation_status AS ENUM ('pending', 'completed', 'cancelled')",
		"account_id         BIGINT NOT NULL REFERENCES accounts (id)",
		"CREATE UNIQUE INDEX idx_donations_external_reference ON donations (external_reference) WHERE external_reference IS NOT NULL",
		"CONSTRAINT balances_amount_non_negative CHECK (amount >= 0)",
		"DROP TABLE IF EXISTS donations",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

// Donations snapshot price and award at purchase time, so the package row is
// disposable afterwards. An FK on package_id would make package deletion fail
// the moment anyone bought the package.
func TestDonationsMigrationOmitsPackageForeignKey(t *testing.T) {
	content := readMigration(t, "*_create_donations.sql")

	if !strings.Contains(content, "package_id         BIGINT NOT NULL,") {
		t.Errorf("package_id column missing or no longer a plain bigint")
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, "package_id") && strings.Contains(line, "REFERENCES") {
			t.Errorf("package_id must not reference donate_packages: %q", strings.TrimSpace(line))
		}
	}
}
