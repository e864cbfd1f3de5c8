package domain

import (
	"fmt"
	"time"
)

// AvailabilityWindow is a recurring weekly window during which a Specialist
// can take clients: weekday 0=Sunday .. 6=Saturday, matching time.Weekday.
type AvailabilityWindow struct {
	Weekday int
	Start   TimeOfDay
	End     TimeOfDay
}

// Specialist is a human resource: a trainer, nutritionist, therapist, etc.
type Specialist struct {
	ID                  string
	Type                string
	Availability        []AvailabilityWindow
	BlackoutDates       map[string]bool // "YYYY-MM-DD" -> true
	MaxConcurrentClients int
}

// IsBlackout reports whether the specialist is unavailable on the given date.
func (s *Specialist) IsBlackout(date Date) bool {
	return s.BlackoutDates[date.String()]
}

// AvailableOn returns the availability window (if any) covering weekday d.
func (s *Specialist) AvailableOn(weekday int) (AvailabilityWindow, bool) {
	for _, w := range s.Availability {
		if w.Weekday == weekday {
			return w, true
		}
	}
	return AvailabilityWindow{}, false
}

// MaintenanceInterval is an inclusive date range during which equipment is unusable.
type MaintenanceInterval struct {
	Start Date
	End   Date
}

// Contains reports whether d falls within the inclusive interval.
func (m MaintenanceInterval) Contains(d Date) bool {
	return !d.Before(m.Start) && !d.After(m.End)
}

// Equipment is a physical resource an Activity may require.
type Equipment struct {
	ID                 string
	LocationLabel      string
	IsPortable         bool
	MaintenanceWindows []MaintenanceInterval
	MaxConcurrentUsers int
}

// UnderMaintenance reports whether the equipment is unusable on the given date.
func (e *Equipment) UnderMaintenance(date Date) bool {
	for _, m := range e.MaintenanceWindows {
		if m.Contains(date) {
			return true
		}
	}
	return false
}

// TravelPeriod is a user travel window that changes constraint evaluation.
type TravelPeriod struct {
	ID                    string
	LocationLabel         string
	Start                 Date
	End                    Date
	RemoteActivitiesOnly  bool
	AvailableEquipmentIDs map[string]bool // nil/empty means "none provided"
}

// Contains reports whether d falls within the inclusive travel range.
func (t *TravelPeriod) Contains(d Date) bool {
	return !d.Before(t.Start) && !d.After(t.End)
}

// ProvidesEquipment reports whether the destination supplies equipmentID.
func (t *TravelPeriod) ProvidesEquipment(equipmentID string) bool {
	return t.AvailableEquipmentIDs[equipmentID]
}

// Date is a civil (timezone-free) calendar date, minute-precision arithmetic
// throughout the engine never needs more than this.
type Date struct {
	Year, Month, Day int
}

// NewDate builds a Date from a time.Time, discarding time-of-day and location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: int(m), Day: d}
}

// ToTime returns the Date as a UTC midnight time.Time, for arithmetic via the
// standard library's calendar-aware Add/AddDate.
func (d Date) ToTime() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days later (n may be negative).
func (d Date) AddDays(n int) Date {
	return NewDate(d.ToTime().AddDate(0, 0, n))
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.ToTime().Before(o.ToTime()) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.ToTime().After(o.ToTime()) }

// Equal reports whether d and o name the same calendar date.
func (d Date) Equal(o Date) bool { return d == o }

// Weekday returns the weekday (0=Sunday..6=Saturday), matching time.Weekday.
func (d Date) Weekday() int { return int(d.ToTime().Weekday()) }

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.ToTime().Format("2006-01-02")
}

// ISOWeek returns the (year, week) pair per the ISO 8601 week calendar.
func (d Date) ISOWeek() (int, int) {
	return d.ToTime().ISOWeek()
}

// MarshalJSON renders the date as the "YYYY-MM-DD" string callers of the
// HTTP API and CLI actually pass, rather than the raw Year/Month/Day struct.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON parses a "YYYY-MM-DD" string into a Date.
func (d *Date) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' {
		return fmt.Errorf("invalid date %q: expected a quoted YYYY-MM-DD string", data)
	}
	t, err := time.Parse("2006-01-02", string(data[1:len(data)-1]))
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", data, err)
	}
	*d = NewDate(t)
	return nil
}
