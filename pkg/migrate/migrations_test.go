package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/souqline/souqline-backend/pkg/migrate"
)

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestInitSchemaGuardsStockCounters(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init_schema.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no init schema migration found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CHECK (available_qty >= 0)",
		"CHECK (reserved_qty >= 0)",
		"CREATE UNIQUE INDEX idx_wallets_account ON wallets (account_id, account_type)",
		"CREATE UNIQUE INDEX idx_referral_edges_pair ON referral_edges (referrer_id, referred_id)",
		"status withdrawal_status NOT NULL DEFAULT 'pending'",
		"DROP TABLE IF EXISTS wallet_transactions",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
