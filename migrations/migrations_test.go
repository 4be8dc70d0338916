package migrations

import (
	"strings"
	"testing"
)

func TestVersionsAreOrderedSQLFiles(t *testing.T) {
	versions, err := Versions()
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("expected embedded migrations")
	}
	if versions[0] != "0001_init.sql" {
		t.Fatalf("expected 0001_init.sql first, got %s", versions[0])
	}
	for i := 1; i < len(versions); i++ {
		if versions[i-1] >= versions[i] {
			t.Fatalf("versions out of order: %v", versions)
		}
	}
}

func TestInitMigrationDeclaresGuards(t *testing.T) {
	body, err := files.ReadFile("0001_init.sql")
	if err != nil {
		t.Fatalf("read init migration: %v", err)
	}
	sql := string(body)
	for _, want := range []string{
		"job_applications_job_labor_key UNIQUE (job_id, labor_id)",
		"laborers_applied <= laborers_required",
		"bookings_application_key",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("init migration missing %q", want)
		}
	}
}
