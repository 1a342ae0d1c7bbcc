package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AGENDA_DB_PATH", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("DIGEST_TIME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatabasePath != "./data/agenda.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.DigestTime != "09:00" {
		t.Errorf("DigestTime = %q", cfg.DigestTime)
	}
	if cfg.Timezone == nil {
		t.Error("Timezone unset")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AGENDA_DB_PATH", "/tmp/custom.db")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("DIGEST_TIME", "21:30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatabasePath != "/tmp/custom.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.Timezone.String() != "UTC" {
		t.Errorf("Timezone = %q", cfg.Timezone)
	}
	if cfg.DigestTime != "21:30" {
		t.Errorf("DigestTime = %q", cfg.DigestTime)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("bad timezone", func(t *testing.T) {
		t.Setenv("TIMEZONE", "Mars/Olympus")
		t.Setenv("DIGEST_TIME", "")
		if _, err := Load(); err == nil {
			t.Error("Load accepted an unknown timezone")
		}
	})

	t.Run("bad digest time", func(t *testing.T) {
		t.Setenv("TIMEZONE", "")
		t.Setenv("DIGEST_TIME", "9am")
		if _, err := Load(); err == nil {
			t.Error("Load accepted a non-HH:MM digest time")
		}
	})
}
