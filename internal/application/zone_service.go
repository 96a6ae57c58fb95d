package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// ZoneRepository captures the persistence interactions needed by the zone
// service. Any implementation also satisfies ZoneCatalog.
type ZoneRepository interface {
	CreateZone(ctx context.Context, zone Zone) error
	UpdateZone(ctx context.Context, zone Zone) error
	GetZone(ctx context.Context, id string) (Zone, error)
	ListZones(ctx context.Context) ([]Zone, error)
	DeleteZone(ctx context.Context, id string) error
}

// ZoneService manages the zone catalog: names and bookable rack lists.
type ZoneService struct {
	zones       ZoneRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewZoneService wires dependencies for zone catalog operations.
func NewZoneService(zones ZoneRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ZoneService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ZoneService{
		zones:       zones,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateZone validates and persists a new zone.
func (s *ZoneService) CreateZone(ctx context.Context, input ZoneInput) (Zone, error) {
	if s == nil {
		return Zone{}, fmt.Errorf("ZoneService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "zone", "create")

	name, racks, vErr := normalizeZoneInput(input)
	if vErr.HasErrors() {
		return Zone{}, vErr
	}

	now := s.now()
	zone := Zone{
		ID:        s.idGenerator(),
		Name:      name,
		Racks:     racks,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.zones.CreateZone(ctx, zone); err != nil {
		return Zone{}, mapRepoError(err)
	}

	logger.Info("zone created", "zone_id", zone.ID, "racks", len(zone.Racks))
	return zone, nil
}

// UpdateZone replaces a zone's name and rack list.
func (s *ZoneService) UpdateZone(ctx context.Context, id string, input ZoneInput) (Zone, error) {
	if s == nil {
		return Zone{}, fmt.Errorf("ZoneService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "zone", "update", "zone_id", id)

	if strings.TrimSpace(id) == "" {
		return Zone{}, ErrNotFound
	}

	name, racks, vErr := normalizeZoneInput(input)
	if vErr.HasErrors() {
		return Zone{}, vErr
	}

	existing, err := s.zones.GetZone(ctx, id)
	if err != nil {
		return Zone{}, mapRepoError(err)
	}

	existing.Name = name
	existing.Racks = racks
	existing.UpdatedAt = s.now()

	if err := s.zones.UpdateZone(ctx, existing); err != nil {
		return Zone{}, mapRepoError(err)
	}

	logger.Info("zone updated", "racks", len(existing.Racks))
	return existing, nil
}

// GetZone retrieves one zone by ID.
func (s *ZoneService) GetZone(ctx context.Context, id string) (Zone, error) {
	if s == nil {
		return Zone{}, fmt.Errorf("ZoneService is nil")
	}
	if strings.TrimSpace(id) == "" {
		return Zone{}, ErrNotFound
	}
	zone, err := s.zones.GetZone(ctx, id)
	if err != nil {
		return Zone{}, mapRepoError(err)
	}
	return zone, nil
}

// ListZones returns the full zone catalog.
func (s *ZoneService) ListZones(ctx context.Context) ([]Zone, error) {
	if s == nil {
		return nil, fmt.Errorf("ZoneService is nil")
	}
	zones, err := s.zones.ListZones(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return zones, nil
}

// DeleteZone removes a zone and, through the store, its rules and racks.
func (s *ZoneService) DeleteZone(ctx context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("ZoneService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "zone", "delete", "zone_id", id)

	if strings.TrimSpace(id) == "" {
		return ErrNotFound
	}
	if err := s.zones.DeleteZone(ctx, id); err != nil {
		return mapRepoError(err)
	}

	logger.Info("zone deleted")
	return nil
}

func normalizeZoneInput(input ZoneInput) (string, []string, *ValidationError) {
	vErr := &ValidationError{}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr.add("name", "name is required")
	}

	seen := make(map[string]struct{}, len(input.Racks))
	racks := make([]string, 0, len(input.Racks))
	for _, rack := range input.Racks {
		rack = strings.TrimSpace(rack)
		if rack == "" {
			continue
		}
		if _, dup := seen[rack]; dup {
			continue
		}
		seen[rack] = struct{}{}
		racks = append(racks, rack)
	}
	sort.Strings(racks)

	return name, racks, vErr
}
