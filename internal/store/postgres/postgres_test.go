package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

func TestMigrationFilesEmbedded(t *testing.T) {
	names, err := MigrationFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) == 0 || names[0] != "001_hedge_journal.sql" {
		t.Fatalf("got %v", names)
	}
	data, err := migrationsFS.ReadFile("migrations/" + names[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{"hedge_results", "hedge_legs", "audit_log"} {
		if !strings.Contains(string(data), "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("migration does not create %s", table)
		}
	}
}

func TestAuditListQuery(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q, args := auditListQuery(domain.ListOpts{Since: &since, Limit: 10, Offset: 20})

	want := `SELECT id, event, detail, created_at FROM audit_log WHERE 1=1 AND created_at >= $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if q != want {
		t.Fatalf("got %s", q)
	}
	if len(args) != 3 || args[1] != 10 || args[2] != 20 {
		t.Fatalf("args %v", args)
	}

	q, args = auditListQuery(domain.ListOpts{})
	if strings.Contains(q, "$") || len(args) != 0 {
		t.Fatalf("got %s %v", q, args)
	}
}
