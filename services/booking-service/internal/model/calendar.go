package model

import "time"

// DefaultTimezone applies when a calendar is saved without an explicit zone.
const DefaultTimezone = "America/New_York"

// Calendar is a property's scheduling configuration. At most one exists per
// property; properties without one accept any booking time (legacy default).
type Calendar struct {
	PropertyID string
	IsActive   bool
	Timezone   string // IANA name, e.g. America/New_York
	CreatedAt  time.Time
}

// AvailabilityWindow holds a property's business hours for one weekday.
// One row per (property, weekday); writes upsert rather than append.
type AvailabilityWindow struct {
	PropertyID          string
	Weekday             int // 0=Sunday .. 6=Saturday
	StartMinute         int // minutes since local midnight
	EndMinute           int
	IsActive            bool
	SlotDurationMinutes int
}

// BlockedDate removes a calendar date from availability. A matching row
// blocks the whole day for booking even when it carries a partial-day range.
type BlockedDate struct {
	ID          string
	PropertyID  string
	Day         time.Time // date component only
	Reason      string
	AllDay      bool
	StartMinute *int
	EndMinute   *int
	CreatedAt   time.Time
}
