package config

import (
	"strings"
	"testing"
	"time"
)

func clearKioskEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"KIOSK_HTTP_PORT",
		"KIOSK_SQLITE_DSN",
		"KIOSK_SLOT_MINUTES",
		"KIOSK_DAY_OPEN_MIN",
		"KIOSK_DAY_CLOSE_MIN",
		"KIOSK_WEEK_CACHE_TTL",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearKioskEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:kiosk.db?_foreign_keys=on" {
		t.Errorf("unexpected default DSN %q", cfg.SQLiteDSN)
	}
	if cfg.SlotMinutes != 30 {
		t.Errorf("expected 30 minute slots, got %d", cfg.SlotMinutes)
	}
	if cfg.DayOpenMin != 6*60 || cfg.DayCloseMin != 22*60 {
		t.Errorf("unexpected default day window %d-%d", cfg.DayOpenMin, cfg.DayCloseMin)
	}
	if cfg.WeekCacheTTL != 30*time.Second {
		t.Errorf("expected 30s cache TTL, got %s", cfg.WeekCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearKioskEnv(t)
	t.Setenv("KIOSK_HTTP_PORT", "9090")
	t.Setenv("KIOSK_SQLITE_DSN", "file:other.db")
	t.Setenv("KIOSK_SLOT_MINUTES", "15")
	t.Setenv("KIOSK_DAY_OPEN_MIN", "480")
	t.Setenv("KIOSK_DAY_CLOSE_MIN", "1200")
	t.Setenv("KIOSK_WEEK_CACHE_TTL", "2m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:other.db" {
		t.Errorf("unexpected DSN %q", cfg.SQLiteDSN)
	}
	if cfg.SlotMinutes != 15 {
		t.Errorf("expected 15 minute slots, got %d", cfg.SlotMinutes)
	}
	if cfg.DayOpenMin != 480 || cfg.DayCloseMin != 1200 {
		t.Errorf("unexpected day window %d-%d", cfg.DayOpenMin, cfg.DayCloseMin)
	}
	if cfg.WeekCacheTTL != 2*time.Minute {
		t.Errorf("expected 2m cache TTL, got %s", cfg.WeekCacheTTL)
	}
}

func TestLoadReportsEveryInvalidValue(t *testing.T) {
	clearKioskEnv(t)
	t.Setenv("KIOSK_HTTP_PORT", "not-a-port")
	t.Setenv("KIOSK_SLOT_MINUTES", "-5")
	t.Setenv("KIOSK_WEEK_CACHE_TTL", "soon")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, name := range []string{"KIOSK_HTTP_PORT", "KIOSK_SLOT_MINUTES", "KIOSK_WEEK_CACHE_TTL"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected error to name %s, got %q", name, err)
		}
	}
}

func TestLoadRejectsInvertedDayWindow(t *testing.T) {
	clearKioskEnv(t)
	t.Setenv("KIOSK_DAY_OPEN_MIN", "1200")
	t.Setenv("KIOSK_DAY_CLOSE_MIN", "480")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "KIOSK_DAY_OPEN_MIN/KIOSK_DAY_CLOSE_MIN") {
		t.Errorf("expected the window pair to be named, got %q", err)
	}
}
