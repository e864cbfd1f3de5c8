package domain

// SlotStatus is always Scheduled for freshly committed bookings; kept as a
// type (rather than a bare string) so a future cancellation feature has
// somewhere to grow without breaking callers.
type SlotStatus string

const (
	StatusScheduled SlotStatus = "scheduled"
)

// TimeSlot is a single committed booking on the calendar.
type TimeSlot struct {
	ActivityID      string
	Priority        int
	Date            Date
	Start           TimeOfDay
	DurationMinutes int
	PrepMinutes     int

	SpecialistID *string
	EquipmentIDs []string

	IsBackup           bool
	OriginalActivityID *string // set iff IsBackup

	Status SlotStatus

	// Notes is carried through from the placed Activity for display only.
	Notes string
}

// End returns the clock time the activity itself finishes (excludes prep).
func (s TimeSlot) End() TimeOfDay {
	return s.Start.Add(s.DurationMinutes)
}

// EffectiveStart returns start-minus-prep: the beginning of the interval a
// collision check must treat as occupied.
func (s TimeSlot) EffectiveStart() TimeOfDay {
	return s.Start.Add(-s.PrepMinutes)
}

// Overlaps reports whether the effective intervals of s and o intersect,
// per spec.md §4.2 stage 4: collision iff
// candidate.effective_start < existing.end AND existing.effective_start < candidate.end.
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	return s.EffectiveStart() < o.End() && o.EffectiveStart() < s.End()
}

// HasEquipment reports whether the slot books the given equipment id.
func (s TimeSlot) HasEquipment(equipmentID string) bool {
	for _, id := range s.EquipmentIDs {
		if id == equipmentID {
			return true
		}
	}
	return false
}

// OccurrenceKey returns the activity id this slot's commit should count
// against: the primary's id for both primary and backup commits.
func (s TimeSlot) OccurrenceKey() string {
	if s.IsBackup && s.OriginalActivityID != nil {
		return *s.OriginalActivityID
	}
	return s.ActivityID
}
