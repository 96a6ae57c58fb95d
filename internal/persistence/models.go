package persistence

import "time"

// Zone represents a physical facility area ("side") with its own rule set.
type Zone struct {
	ID        string
	Name      string
	Racks     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ScheduleRule is a stored capacity rule row. Day is 0-6 (Sunday = 0), time
// bounds are minutes from midnight forming a half-open interval, and dates
// carry no time-of-day component.
type ScheduleRule struct {
	ID         string
	ZoneID     string
	Day        int
	StartMin   int
	EndMin     int
	Capacity   int
	Period     string
	Kind       string
	AnchorDate time.Time
	EndDate    *time.Time
	Exclusions []time.Time
	Racks      []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BookingInstance is a concrete occurrence of a booking occupying racks in a
// zone. Instances are owned by the booking subsystem; this store only mirrors
// them for conflict computation.
type BookingInstance struct {
	ID        string
	BookingID string
	ZoneID    string
	Start     time.Time
	End       time.Time
	Racks     []string
	Title     string
	Color     string
	Locked    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CapacityOverride is a denormalized per-date capacity record written
// alongside single-date rules for downstream reporting consumers.
type CapacityOverride struct {
	ZoneID    string
	Date      time.Time
	Period    string
	Capacity  int
	UpdatedAt time.Time
}
