package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/recurrence"
)

// BookingStore captures the persistence interactions for mirrored booking
// instances.
type BookingStore interface {
	UpsertBooking(ctx context.Context, booking Booking) error
	ListBookings(ctx context.Context, zoneID string, from, to time.Time) ([]Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// BookingService keeps the booking mirror current and derives the per-rack
// day views that cross-reference bookings against the evaluated rule map.
type BookingService struct {
	bookings BookingStore
	zones    ZoneCatalog
	logger   *slog.Logger
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(bookings BookingStore, zones ZoneCatalog, logger *slog.Logger) *BookingService {
	return &BookingService{
		bookings: bookings,
		zones:    zones,
		logger:   defaultLogger(logger),
	}
}

// SyncBooking upserts one mirrored booking instance.
func (s *BookingService) SyncBooking(ctx context.Context, booking Booking) error {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "booking", "sync", "zone_id", booking.ZoneID)

	vErr := &ValidationError{}
	if strings.TrimSpace(booking.ID) == "" {
		vErr.add("id", "booking instance id is required")
	}
	if strings.TrimSpace(booking.ZoneID) == "" {
		vErr.add("zone_id", "zone id is required")
	}
	if booking.Start.IsZero() || booking.End.IsZero() {
		vErr.add("time", "start and end are required")
	} else if !booking.End.After(booking.Start) {
		vErr.add("time", "start must be before end")
	}
	if vErr.HasErrors() {
		return vErr
	}

	zone, err := s.zones.GetZone(ctx, booking.ZoneID)
	if err != nil {
		if isNotFoundError(err) {
			return ErrNotFound
		}
		return mapRepoError(err)
	}

	known := make(map[string]struct{}, len(zone.Racks))
	for _, rack := range zone.Racks {
		known[rack] = struct{}{}
	}
	for _, rack := range booking.Racks {
		if _, ok := known[rack]; !ok {
			vErr.add("racks", fmt.Sprintf("rack %q does not belong to the zone", rack))
			return vErr
		}
	}

	if err := s.bookings.UpsertBooking(ctx, booking); err != nil {
		return mapRepoError(err)
	}

	logger.Info("booking synced", "instance_id", booking.ID, "racks", len(booking.Racks))
	return nil
}

// RemoveBooking drops one mirrored instance by ID.
func (s *BookingService) RemoveBooking(ctx context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if strings.TrimSpace(id) == "" {
		vErr := &ValidationError{}
		vErr.add("id", "booking instance id is required")
		return vErr
	}
	if err := s.bookings.DeleteBooking(ctx, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// ComputeBookingViews derives the three per-rack views for one date:
// occupied intervals from the booking mirror, unavailable intervals from
// closed or access-restricted slots net of bookings, and exhausted slots
// where aggregate booked capacity meets the active rule's limit. A rack with
// its own booking at an instant is never marked exhausted there.
func (s *BookingService) ComputeBookingViews(ctx context.Context, zoneID string, date time.Time, slots WeekSlots) (ZoneDayViews, error) {
	if s == nil {
		return ZoneDayViews{}, fmt.Errorf("BookingService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "booking", "day_views", "zone_id", zoneID)

	vErr := &ValidationError{}
	if date.IsZero() {
		vErr.add("date", "date is required")
	}
	if slots.ZoneID != "" && slots.ZoneID != zoneID {
		vErr.add("zone_id", "slot map belongs to a different zone")
	}
	if vErr.HasErrors() {
		return ZoneDayViews{}, vErr
	}

	zone, err := s.zones.GetZone(ctx, zoneID)
	if err != nil {
		if isNotFoundError(err) {
			return ZoneDayViews{}, ErrNotFound
		}
		return ZoneDayViews{}, mapRepoError(err)
	}

	date = recurrence.DateOnly(date)
	dayEnd := date.AddDate(0, 0, 1)

	bookings, err := s.bookings.ListBookings(ctx, zone.ID, date, dayEnd)
	if err != nil {
		return ZoneDayViews{}, mapRepoError(err)
	}

	views := ZoneDayViews{
		ZoneID:      zone.ID,
		Date:        date,
		Occupied:    occupiedIntervals(bookings, date, dayEnd),
		Unavailable: make(map[string][]MinuteInterval),
		Exhausted:   make(map[string][]int),
	}

	grid := SlotGrid{SlotMinutes: slots.SlotMinutes, OpenMin: slots.OpenMin, CloseMin: slots.CloseMin}.Normalize()
	day := date.Weekday()

	for _, rack := range zone.Racks {
		intervals := unavailableIntervals(slots, grid, day, rack, bookings, date)
		if len(intervals) > 0 {
			views.Unavailable[rack] = intervals
		}
	}

	for minute := grid.OpenMin; minute < grid.CloseMin; minute += grid.SlotMinutes {
		assignment, ok := slots.Assignments[SlotKey{Day: day, Minute: minute}]
		if !ok || assignment.Period == recurrence.PeriodClosed {
			continue
		}

		instant := date.Add(time.Duration(minute) * time.Minute)
		consumed := 0
		for _, booking := range bookings {
			if !booking.Start.After(instant) && booking.End.After(instant) {
				consumed += rackConsumption(booking)
			}
		}
		if consumed < assignment.Capacity {
			continue
		}

		for _, rack := range zone.Racks {
			if rackBookedAt(bookings, rack, instant) {
				continue
			}
			views.Exhausted[rack] = append(views.Exhausted[rack], minute)
		}
	}

	logger.Debug("day views computed",
		"date", date.Format(recurrence.DateLayout),
		"bookings", len(bookings),
	)

	return views, nil
}

// occupiedIntervals clips each booking to the day window and attributes it
// to every rack it occupies.
func occupiedIntervals(bookings []Booking, dayStart, dayEnd time.Time) map[string][]MinuteInterval {
	occupied := make(map[string][]MinuteInterval)
	for _, booking := range bookings {
		interval, ok := clipToDay(booking, dayStart, dayEnd)
		if !ok {
			continue
		}
		for _, rack := range booking.Racks {
			occupied[rack] = append(occupied[rack], interval)
		}
	}
	for rack := range occupied {
		sort.Slice(occupied[rack], func(i, j int) bool {
			a, b := occupied[rack][i], occupied[rack][j]
			if a.StartMin != b.StartMin {
				return a.StartMin < b.StartMin
			}
			return a.EndMin < b.EndMin
		})
	}
	return occupied
}

// unavailableIntervals merges the restricted slots for one rack into runs.
// A slot is restricted when its rule closes the zone or grants access to a
// rack subset excluding this rack, and the rack has no booking of its own at
// that instant. Closed-period end times come verbatim from the rule so
// partial-slot closures render exactly.
func unavailableIntervals(slots WeekSlots, grid SlotGrid, day time.Weekday, rack string, bookings []Booking, date time.Time) []MinuteInterval {
	var intervals []MinuteInterval
	var open *MinuteInterval
	var openAssignment SlotAssignment

	closeRun := func() {
		if open == nil {
			return
		}
		if openAssignment.Period == recurrence.PeriodClosed &&
			openAssignment.RuleEndMin > open.StartMin && openAssignment.RuleEndMin < open.EndMin {
			open.EndMin = openAssignment.RuleEndMin
		}
		intervals = append(intervals, *open)
		open = nil
	}

	for minute := grid.OpenMin; minute < grid.CloseMin; minute += grid.SlotMinutes {
		assignment, ok := slots.Assignments[SlotKey{Day: day, Minute: minute}]
		restricted := ok && slotRestrictsRack(assignment, rack)
		if restricted {
			instant := date.Add(time.Duration(minute) * time.Minute)
			if rackBookedAt(bookings, rack, instant) {
				restricted = false
			}
		}

		if !restricted {
			closeRun()
			continue
		}

		if open != nil {
			open.EndMin = minute + grid.SlotMinutes
			openAssignment = assignment
			continue
		}
		open = &MinuteInterval{StartMin: minute, EndMin: minute + grid.SlotMinutes}
		openAssignment = assignment
	}
	closeRun()

	return intervals
}

func slotRestrictsRack(assignment SlotAssignment, rack string) bool {
	if assignment.Period == recurrence.PeriodClosed {
		return true
	}
	if len(assignment.Racks) == 0 {
		return false
	}
	for _, granted := range assignment.Racks {
		if granted == rack {
			return false
		}
	}
	return true
}

func rackBookedAt(bookings []Booking, rack string, instant time.Time) bool {
	for _, booking := range bookings {
		if booking.Start.After(instant) || !booking.End.After(instant) {
			continue
		}
		for _, occupied := range booking.Racks {
			if occupied == rack {
				return true
			}
		}
	}
	return false
}

// rackConsumption is the capacity one booking consumes at an instant: one
// unit per occupied rack, one unit minimum for facility-wide bookings.
func rackConsumption(booking Booking) int {
	if len(booking.Racks) == 0 {
		return 1
	}
	return len(booking.Racks)
}

func clipToDay(booking Booking, dayStart, dayEnd time.Time) (MinuteInterval, bool) {
	start := booking.Start
	end := booking.End
	if !start.After(dayStart) {
		start = dayStart
	}
	if end.After(dayEnd) {
		end = dayEnd
	}
	if !end.After(start) {
		return MinuteInterval{}, false
	}
	return MinuteInterval{
		StartMin: int(start.Sub(dayStart) / time.Minute),
		EndMin:   int(end.Sub(dayStart) / time.Minute),
	}, true
}
