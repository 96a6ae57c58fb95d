package application

import (
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/recurrence"
)

// Zone represents a physical facility area with its own rule set and
// bookable racks.
type Zone struct {
	ID        string
	Name      string
	Racks     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ZoneInput captures caller provided zone fields.
type ZoneInput struct {
	Name  string
	Racks []string
}

// RuleProposal is one schedule rule definition as authored by the caller,
// before expansion into concrete rule rows.
type RuleProposal struct {
	Day      time.Weekday
	StartMin int
	EndMin   int
	Capacity int
	Period   recurrence.PeriodType
	Kind     recurrence.Kind
	Racks    []string
}

// SaveRuleParams wraps the data required to save a schedule rule.
// ReferenceDate is the date the proposal was authored against; it becomes
// the anchor date of the expanded rows. ReplacingIDs carries the rows being
// edited out, when the save is an edit rather than a fresh creation.
type SaveRuleParams struct {
	ZoneID        string
	Proposal      RuleProposal
	ReferenceDate time.Time
	ReplacingIDs  []string
}

// DeleteMode selects how much of a recurring series a delete removes.
type DeleteMode string

const (
	// DeleteModeSingle removes one occurrence on the target date.
	DeleteModeSingle DeleteMode = "single"
	// DeleteModeFuture removes the target date and everything after it.
	DeleteModeFuture DeleteMode = "future"
	// DeleteModeAll removes the whole series regardless of date.
	DeleteModeAll DeleteMode = "all"
)

// Valid reports whether the mode is a known member.
func (m DeleteMode) Valid() bool {
	switch m {
	case DeleteModeSingle, DeleteModeFuture, DeleteModeAll:
		return true
	}
	return false
}

// RuleSignature identifies rule rows by their shape rather than their ID.
// Delete operations address rows this way because the caller works from a
// rendered block, not from row identities.
type RuleSignature struct {
	StartMin int
	EndMin   int
	Period   recurrence.PeriodType
	Kind     recurrence.Kind
}

// DeleteRuleParams wraps the data required to delete schedule rules.
type DeleteRuleParams struct {
	ZoneID     string
	Mode       DeleteMode
	TargetDate time.Time
	Signature  RuleSignature
}

// SlotKey addresses one evaluation slot inside a week window.
type SlotKey struct {
	Day    time.Weekday
	Minute int
}

// SlotAssignment is the effective rule chosen for one slot.
type SlotAssignment struct {
	RuleID       string
	Capacity     int
	Period       recurrence.PeriodType
	Racks        []string
	RuleStartMin int
	RuleEndMin   int
}

// WeekSlots is the evaluated slot map for one zone and one week window.
// Slots with no applicable rule carry no entry.
type WeekSlots struct {
	ZoneID      string
	WeekStart   time.Time
	SlotMinutes int
	OpenMin     int
	CloseMin    int
	Assignments map[SlotKey]SlotAssignment
}

// DateFor returns the calendar date inside the week window that falls on the
// given weekday.
func (w WeekSlots) DateFor(day time.Weekday) time.Time {
	offset := (int(day) - int(w.WeekStart.Weekday()) + 7) % 7
	return w.WeekStart.AddDate(0, 0, offset)
}

// Block is a contiguous run of slots sharing the same period and capacity.
// EndSlot is inclusive; EndMin is the exclusive end of the run in minutes.
type Block struct {
	StartSlot int
	EndSlot   int
	StartMin  int
	EndMin    int
	Period    recurrence.PeriodType
	Capacity  int
}

// MinuteInterval is a half-open time-of-day interval in minutes from
// midnight.
type MinuteInterval struct {
	StartMin int
	EndMin   int
}

// ZoneDayViews are the derived per-rack views for one zone on one date.
// Occupied holds booking intervals per rack. Unavailable holds closed or
// access-restricted intervals per rack, net of bookings. Exhausted holds the
// start minutes of slots where aggregate booked capacity meets the active
// rule's limit, per rack that is not itself booked at that instant.
type ZoneDayViews struct {
	ZoneID      string
	Date        time.Time
	Occupied    map[string][]MinuteInterval
	Unavailable map[string][]MinuteInterval
	Exhausted   map[string][]int
}

// Booking is a concrete booking instance mirrored from the booking
// subsystem. The engine reads these; it never creates them.
type Booking struct {
	ID        string
	BookingID string
	ZoneID    string
	Start     time.Time
	End       time.Time
	Racks     []string
	Title     string
	Color     string
	Locked    bool
}

// CapacityOverride is the denormalized per-date capacity record written
// alongside single-date rules for reporting consumers.
type CapacityOverride struct {
	ZoneID   string
	Date     time.Time
	Period   recurrence.PeriodType
	Capacity int
}
