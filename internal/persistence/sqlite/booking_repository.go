package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/persistence"
)

// BookingRepository mirrors booking instances into SQLite. The booking
// subsystem owns these records; the engine only queries them by zone and
// absolute time-range overlap.
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// UpsertBooking inserts or replaces a mirrored booking instance and its
// occupied racks.
func (r *BookingRepository) UpsertBooking(ctx context.Context, instance persistence.BookingInstance) error {
	if instance.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if !instance.End.After(instance.Start) {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC().Format(time.RFC3339)

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		locked := 0
		if instance.Locked {
			locked = 1
		}

		if _, err := r.helper.ExecTx(tx, `
			INSERT INTO booking_instances
				(id, booking_id, zone_id, start_time, end_time, title, color, locked, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				booking_id = excluded.booking_id,
				zone_id = excluded.zone_id,
				start_time = excluded.start_time,
				end_time = excluded.end_time,
				title = excluded.title,
				color = excluded.color,
				locked = excluded.locked,
				updated_at = excluded.updated_at
		`,
			instance.ID,
			instance.BookingID,
			instance.ZoneID,
			instance.Start.UTC().Format(time.RFC3339),
			instance.End.UTC().Format(time.RFC3339),
			instance.Title,
			instance.Color,
			locked,
			now,
			now,
		); err != nil {
			return r.mapper.MapError(err)
		}

		if _, err := r.helper.ExecTx(tx,
			`DELETE FROM booking_racks WHERE instance_id = ?`, instance.ID); err != nil {
			return r.mapper.MapError(err)
		}

		for _, rack := range instance.Racks {
			rack = strings.TrimSpace(rack)
			if rack == "" {
				continue
			}
			if _, err := r.helper.ExecTx(tx,
				`INSERT OR IGNORE INTO booking_racks (instance_id, rack) VALUES (?, ?)`,
				instance.ID, rack,
			); err != nil {
				return r.mapper.MapError(err)
			}
		}

		return nil
	})
}

// ListBookings returns instances for a zone whose [start, end) range overlaps
// the filter window, ordered by start time.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.BookingInstance, error) {
	query := `
		SELECT id, booking_id, zone_id, start_time, end_time, title, color, locked, created_at, updated_at
		FROM booking_instances
		WHERE zone_id = ? AND start_time < ? AND end_time > ?
		ORDER BY start_time ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query,
		filter.ZoneID,
		filter.To.UTC().Format(time.RFC3339),
		filter.From.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var instances []persistence.BookingInstance
	for rows.Next() {
		instance, err := scanBooking(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		instances = append(instances, instance)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range instances {
		racks, err := r.loadRacks(ctx, instances[i].ID)
		if err != nil {
			return nil, err
		}
		instances[i].Racks = racks
	}

	return instances, nil
}

// DeleteBooking removes a mirrored instance by ID.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM booking_instances WHERE id = ?`, id)
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

func (r *BookingRepository) loadRacks(ctx context.Context, instanceID string) ([]string, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT rack FROM booking_racks WHERE instance_id = ? ORDER BY rack ASC`, instanceID)
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

func scanBooking(scanner rowScanner) (persistence.BookingInstance, error) {
	var instance persistence.BookingInstance
	var startStr, endStr, createdAtStr, updatedAtStr string
	var locked int

	if err := scanner.Scan(
		&instance.ID,
		&instance.BookingID,
		&instance.ZoneID,
		&startStr,
		&endStr,
		&instance.Title,
		&instance.Color,
		&locked,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.BookingInstance{}, err
	}

	instance.Locked = locked != 0

	var err error
	if instance.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.BookingInstance{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if instance.End, err = time.Parse(time.RFC3339, endStr); err != nil {
		return persistence.BookingInstance{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if instance.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.BookingInstance{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if instance.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.BookingInstance{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return instance, nil
}
