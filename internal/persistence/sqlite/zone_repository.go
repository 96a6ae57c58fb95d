package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/persistence"
)

// ZoneRepository implements persistence.ZoneRepository using SQLite.
type ZoneRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewZoneRepository creates a new SQLite zone repository.
func NewZoneRepository(pool *ConnectionPool) *ZoneRepository {
	return &ZoneRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateZone inserts a zone and its rack list.
func (r *ZoneRepository) CreateZone(ctx context.Context, zone persistence.Zone) error {
	if zone.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC().Format(time.RFC3339)

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx,
			`INSERT INTO zones (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			zone.ID, zone.Name, now, now,
		); err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertRacksTx(tx, zone.ID, zone.Racks)
	})
}

// UpdateZone updates a zone's name and replaces its rack list.
func (r *ZoneRepository) UpdateZone(ctx context.Context, zone persistence.Zone) error {
	if zone.ID == "" {
		return persistence.ErrNotFound
	}

	now := time.Now().UTC().Format(time.RFC3339)

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(tx,
			`UPDATE zones SET name = ?, updated_at = ? WHERE id = ?`,
			zone.Name, now, zone.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		if _, err := r.helper.ExecTx(tx,
			`DELETE FROM zone_racks WHERE zone_id = ?`, zone.ID); err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertRacksTx(tx, zone.ID, zone.Racks)
	})
}

// GetZone retrieves a zone by ID.
func (r *ZoneRepository) GetZone(ctx context.Context, id string) (persistence.Zone, error) {
	if id == "" {
		return persistence.Zone{}, persistence.ErrNotFound
	}

	zone, err := r.scanZoneRow(r.helper.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM zones WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Zone{}, persistence.ErrNotFound
		}
		return persistence.Zone{}, r.mapper.MapError(err)
	}

	racks, err := r.loadRacks(ctx, zone.ID)
	if err != nil {
		return persistence.Zone{}, err
	}
	zone.Racks = racks

	return zone, nil
}

// ListZones returns all zones ordered by name.
func (r *ZoneRepository) ListZones(ctx context.Context) ([]persistence.Zone, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT id, name, created_at, updated_at FROM zones ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var zones []persistence.Zone
	for rows.Next() {
		zone, err := r.scanZoneRow(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		zones = append(zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range zones {
		racks, err := r.loadRacks(ctx, zones[i].ID)
		if err != nil {
			return nil, err
		}
		zones[i].Racks = racks
	}

	return zones, nil
}

// DeleteZone removes a zone. Rules and racks cascade through foreign keys.
func (r *ZoneRepository) DeleteZone(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM zones WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *ZoneRepository) insertRacksTx(tx *sql.Tx, zoneID string, racks []string) error {
	for _, rack := range racks {
		rack = strings.TrimSpace(rack)
		if rack == "" {
			continue
		}
		if _, err := r.helper.ExecTx(tx,
			`INSERT OR IGNORE INTO zone_racks (zone_id, rack) VALUES (?, ?)`,
			zoneID, rack,
		); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *ZoneRepository) loadRacks(ctx context.Context, zoneID string) ([]string, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT rack FROM zone_racks WHERE zone_id = ? ORDER BY rack ASC`, zoneID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var racks []string
	for rows.Next() {
		var rack string
		if err := rows.Scan(&rack); err != nil {
			return nil, r.mapper.MapError(err)
		}
		racks = append(racks, rack)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return racks, nil
}

func (r *ZoneRepository) scanZoneRow(scanner rowScanner) (persistence.Zone, error) {
	var zone persistence.Zone
	var createdAtStr, updatedAtStr string

	if err := scanner.Scan(&zone.ID, &zone.Name, &createdAtStr, &updatedAtStr); err != nil {
		return persistence.Zone{}, err
	}

	var err error
	if zone.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Zone{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if zone.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Zone{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return zone, nil
}
