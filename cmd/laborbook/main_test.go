package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"laborbook/posting"
	"laborbook/wage"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("LABORBOOK_CONFIG", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	return dir
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	dir := isolate(t)

	out, err := runCLI(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "defaults were used")
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(dir, "conf", "laborbook.toml")
	out, err = runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}

	out, err = runCLI(t, "--config", target, "config", "validate")
	if err != nil {
		t.Fatalf("validate sample config: %v", err)
	}
	requireContains(t, out, target)
	requireContains(t, out, "Configuration valid")
}

func TestConfigLoadFailureStopsCommands(t *testing.T) {
	dir := isolate(t)
	broken := filepath.Join(dir, "broken.toml")
	if err := os.WriteFile(broken, []byte("[booking]\nunknown_key = 1\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := runCLI(t, "--config", broken, "sweep"); err == nil {
		t.Fatal("expected unknown config key to fail")
	}
}

func TestMigrateRequiresDatabase(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "migrate")
	if err == nil {
		t.Fatal("expected migrate to fail without a database url")
	}
	requireContains(t, err.Error(), "database")
}

func TestRatesSetRejectsBadValue(t *testing.T) {
	isolate(t)

	for _, arg := range []string{"abc", "-5", "0"} {
		_, err := runCLI(t, "rates", "set", "--", arg)
		if err == nil {
			t.Fatalf("expected %q to be rejected", arg)
		}
		requireContains(t, err.Error(), "invalid wage")
	}
}

func TestRenderFeed(t *testing.T) {
	items := []posting.Listing{{
		ID:               "job-1",
		Title:            "Scaffolding",
		Location:         "Dock 4",
		WageType:         wage.Daily,
		WageAmount:       720,
		RequiredDate:     time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		DurationHours:    8.5,
		LaborersRequired: 4,
		LaborersApplied:  1,
		ExpiresAt:        time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}}

	out := renderFeed(items)
	for _, want := range []string{"TITLE", "Scaffolding", "2025-03-03", "8.5", "720.00/daily", "1/4"} {
		requireContains(t, strings.ToUpper(out), strings.ToUpper(want))
	}
}

func TestRenderTable_PadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, []columnAlignment{alignLeft, alignRight})
	requireContains(t, out, "only")
	if strings.Contains(out, "<nil>") {
		t.Fatalf("short row rendered nil cell:\n%s", out)
	}
}
