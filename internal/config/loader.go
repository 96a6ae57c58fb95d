package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the kiosk
// service. Day bounds and slot width are minutes from midnight.
type Config struct {
	HTTPPort     int
	SQLiteDSN    string
	SlotMinutes  int
	DayOpenMin   int
	DayCloseMin  int
	WeekCacheTTL time.Duration
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// supplied values and reporting every problem in one pass.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:     8080,
		SQLiteDSN:    "file:kiosk.db?_foreign_keys=on",
		SlotMinutes:  30,
		DayOpenMin:   6 * 60,
		DayCloseMin:  22 * 60,
		WeekCacheTTL: 30 * time.Second,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("KIOSK_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "KIOSK_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("KIOSK_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if slotValue := strings.TrimSpace(os.Getenv("KIOSK_SLOT_MINUTES")); slotValue != "" {
		slot, err := strconv.Atoi(slotValue)
		if err != nil || slot <= 0 || slot > 24*60 {
			invalid = append(invalid, "KIOSK_SLOT_MINUTES")
		} else {
			cfg.SlotMinutes = slot
		}
	}

	if openValue := strings.TrimSpace(os.Getenv("KIOSK_DAY_OPEN_MIN")); openValue != "" {
		open, err := strconv.Atoi(openValue)
		if err != nil || open < 0 || open >= 24*60 {
			invalid = append(invalid, "KIOSK_DAY_OPEN_MIN")
		} else {
			cfg.DayOpenMin = open
		}
	}

	if closeValue := strings.TrimSpace(os.Getenv("KIOSK_DAY_CLOSE_MIN")); closeValue != "" {
		closeMin, err := strconv.Atoi(closeValue)
		if err != nil || closeMin <= 0 || closeMin > 24*60 {
			invalid = append(invalid, "KIOSK_DAY_CLOSE_MIN")
		} else {
			cfg.DayCloseMin = closeMin
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("KIOSK_WEEK_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "KIOSK_WEEK_CACHE_TTL")
		} else {
			cfg.WeekCacheTTL = ttl
		}
	}

	if cfg.DayCloseMin <= cfg.DayOpenMin {
		invalid = append(invalid, "KIOSK_DAY_OPEN_MIN/KIOSK_DAY_CLOSE_MIN")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
