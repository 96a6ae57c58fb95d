package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one ordered schema change applied at startup.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create zones",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS zones (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS zone_racks (
				zone_id TEXT NOT NULL REFERENCES zones(id) ON DELETE CASCADE,
				rack TEXT NOT NULL,
				PRIMARY KEY (zone_id, rack)
			)`,
		},
	},
	{
		version: 2,
		name:    "create schedule rules",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS schedule_rules (
				id TEXT PRIMARY KEY,
				zone_id TEXT NOT NULL REFERENCES zones(id) ON DELETE CASCADE,
				day_of_week INTEGER NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
				start_min INTEGER NOT NULL,
				end_min INTEGER NOT NULL,
				capacity INTEGER NOT NULL CHECK (capacity >= 0),
				period_type TEXT NOT NULL,
				recurrence_kind TEXT NOT NULL,
				anchor_date TEXT NOT NULL,
				end_date TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				CHECK (end_min > start_min)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_schedule_rules_zone_day
				ON schedule_rules (zone_id, day_of_week)`,
			`CREATE TABLE IF NOT EXISTS rule_exclusions (
				rule_id TEXT NOT NULL REFERENCES schedule_rules(id) ON DELETE CASCADE,
				date TEXT NOT NULL,
				PRIMARY KEY (rule_id, date)
			)`,
			`CREATE TABLE IF NOT EXISTS rule_racks (
				rule_id TEXT NOT NULL REFERENCES schedule_rules(id) ON DELETE CASCADE,
				rack TEXT NOT NULL,
				PRIMARY KEY (rule_id, rack)
			)`,
		},
	},
	{
		version: 3,
		name:    "create booking instances",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS booking_instances (
				id TEXT PRIMARY KEY,
				booking_id TEXT NOT NULL,
				zone_id TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				color TEXT NOT NULL DEFAULT '',
				locked INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				CHECK (end_time > start_time)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_booking_instances_zone_time
				ON booking_instances (zone_id, start_time, end_time)`,
			`CREATE TABLE IF NOT EXISTS booking_racks (
				instance_id TEXT NOT NULL REFERENCES booking_instances(id) ON DELETE CASCADE,
				rack TEXT NOT NULL,
				PRIMARY KEY (instance_id, rack)
			)`,
		},
	},
	{
		version: 4,
		name:    "create capacity overrides",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS capacity_overrides (
				zone_id TEXT NOT NULL,
				date TEXT NOT NULL,
				period_type TEXT NOT NULL,
				capacity INTEGER NOT NULL CHECK (capacity >= 0),
				updated_at TEXT NOT NULL,
				PRIMARY KEY (zone_id, date, period_type)
			)`,
		},
	},
}

// Migrate applies every pending migration in version order. Each migration
// runs in its own transaction and is recorded in schema_migrations so
// restarts are idempotent.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := cp.migrationApplied(ctx, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
				}
			}
			if _, err := tx.Exec(
				`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
				m.version, m.name,
			); err != nil {
				return fmt.Errorf("record migration %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (cp *ConnectionPool) migrationApplied(ctx context.Context, version int) (bool, error) {
	var exists bool
	err := cp.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = ?)`,
		version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check migration %d: %w", version, err)
	}
	return exists, nil
}
