package viper

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewEnvViperEnvKeyReplacer(t *testing.T) {
	t.Setenv("PORT_CLIENT_ID", "abc")
	t.Setenv("PORT_LOG_LEVEL", "debug")

	v := NewEnvViper()

	if got := v.GetString("client-id"); got != "abc" {
		t.Fatalf("expected client-id to be %q, got %q", "abc", got)
	}
	if got := v.GetString("log-level"); got != "debug" {
		t.Fatalf("expected log-level to be %q, got %q", "debug", got)
	}
}

func TestNewViperEReadsFileAndEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portpurge.yaml")
	if err := os.WriteFile(path, []byte("batch-size: 25\nintegration-id: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT_INTEGRATION_ID", "from-env")

	v, err := NewViperE(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := v.GetInt("batch-size"); got != 25 {
		t.Fatalf("expected batch-size 25, got %d", got)
	}
	if got := v.GetString("integration-id"); got != "from-env" {
		t.Fatalf("expected env to override file, got %q", got)
	}
}

func TestNewViperEMissingFile(t *testing.T) {
	if _, err := NewViperE(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
