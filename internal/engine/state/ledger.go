// Package state implements the SchedulerState ledger: the mutable central
// state of one engine run (spec.md §4.4). The Ledger owns the booked
// calendar, per-resource booking indices, per-activity occurrence counters,
// the backup-activation log, and the aggregated failure log. It is borrowed
// read-only by the Checker and Scorer for the duration of one candidate
// evaluation and mutated only at commit (spec.md §9, "Shared mutable state").
package state

import (
	"fmt"
	"sort"

	"github.com/healthplan/scheduler/internal/domain"
)

type weekdayKey struct {
	ActivityID string
	Weekday    int
}

// Ledger is the SchedulerState of one engine run. It is not safe for
// concurrent use — a run is single-owner (spec.md §5) and every mutation
// happens from the Orchestrator's single goroutine.
type Ledger struct {
	horizonDays int

	schedule            map[string][]domain.TimeSlot // date string -> slots, sorted by Start
	specialistBookings  map[string][]domain.TimeSlot
	equipmentBookings   map[string][]domain.TimeSlot
	activityOccurrences map[string]int
	backupActivations   map[string][]domain.TimeSlot
	failures            map[string]*domain.SchedulingAttempt
	weeklyPatterns      map[weekdayKey]int

	demandTotal               int
	demandSucceeded           int
	demandByPriorityTotal     map[int]int
	demandByPrioritySucceeded map[int]int
	backupCommits             int
}

// New returns an empty Ledger for a run spanning horizonDays.
func New(horizonDays int) *Ledger {
	return &Ledger{
		horizonDays:               horizonDays,
		schedule:                  make(map[string][]domain.TimeSlot),
		specialistBookings:        make(map[string][]domain.TimeSlot),
		equipmentBookings:         make(map[string][]domain.TimeSlot),
		activityOccurrences:       make(map[string]int),
		backupActivations:         make(map[string][]domain.TimeSlot),
		failures:                  make(map[string]*domain.SchedulingAttempt),
		weeklyPatterns:            make(map[weekdayKey]int),
		demandByPriorityTotal:     make(map[int]int),
		demandByPrioritySucceeded: make(map[int]int),
	}
}

// invariantError is raised by AddBooking when a commit would violate an
// invariant the Checker should have already rejected. spec.md §7: "a
// programmer error... it must not happen in a correct implementation."
type invariantError struct {
	reason string
}

func (e invariantError) Error() string { return "ledger invariant violated: " + e.reason }

// AddBooking commits slot to every applicable index. It performs a final
// overlap assertion (not a re-validation of the full Checker pipeline) and
// panics with invariantError if violated; engine/scheduler.Run recovers
// this at the run boundary and turns it into a returned error, so a bug in
// the Checker cannot crash the host process (SPEC_FULL.md §7).
func (l *Ledger) AddBooking(slot domain.TimeSlot) {
	dateKey := slot.Date.String()

	for _, existing := range l.schedule[dateKey] {
		if slot.Overlaps(existing) {
			panic(invariantError{reason: fmt.Sprintf(
				"user double-booking on %s: %s overlaps %s", dateKey, slot.ActivityID, existing.ActivityID)})
		}
	}

	l.schedule[dateKey] = insertSorted(l.schedule[dateKey], slot)

	if slot.SpecialistID != nil {
		l.specialistBookings[*slot.SpecialistID] = insertSorted(l.specialistBookings[*slot.SpecialistID], slot)
	}
	for _, eq := range slot.EquipmentIDs {
		l.equipmentBookings[eq] = insertSorted(l.equipmentBookings[eq], slot)
	}

	key := slot.OccurrenceKey()
	l.activityOccurrences[key]++

	if slot.IsBackup {
		l.backupActivations[key] = append(l.backupActivations[key], slot)
		l.backupCommits++
	}

	l.weeklyPatterns[weekdayKey{ActivityID: slot.ActivityID, Weekday: slot.Date.Weekday()}]++
}

func insertSorted(slots []domain.TimeSlot, slot domain.TimeSlot) []domain.TimeSlot {
	idx := sort.Search(len(slots), func(i int) bool { return slots[i].Start > slot.Start })
	slots = append(slots, domain.TimeSlot{})
	copy(slots[idx+1:], slots[idx:])
	slots[idx] = slot
	return slots
}

// RecordFailure upserts the SchedulingAttempt for activityID, keeping the
// most recent violation kind and bumping a cumulative count.
func (l *Ledger) RecordFailure(activityID string, v domain.ConstraintViolation) {
	att, ok := l.failures[activityID]
	if !ok {
		att = &domain.SchedulingAttempt{ActivityID: activityID}
		l.failures[activityID] = att
	}
	att.LastKind = v.Kind
	att.LastReason = v.Reason
	att.LastDate = v.Date
	att.Count++
}

// RecordDemandOutcome is called once per demand instance by the
// Orchestrator, after the placement ladder has run to completion (success
// or terminal Exhaustion), to feed Statistics(). succeeded is false for a
// terminal Exhaustion.
func (l *Ledger) RecordDemandOutcome(priority int, succeeded bool) {
	l.demandTotal++
	l.demandByPriorityTotal[priority]++
	if succeeded {
		l.demandSucceeded++
		l.demandByPrioritySucceeded[priority]++
	}
}

// GetSlotsForDate returns the committed slots on date, sorted by start.
func (l *Ledger) GetSlotsForDate(date domain.Date) []domain.TimeSlot {
	return l.schedule[date.String()]
}

// GetOccurrenceCount returns how many times activityID has been satisfied
// (primary placements plus backup placements that replaced it).
func (l *Ledger) GetOccurrenceCount(activityID string) int {
	return l.activityOccurrences[activityID]
}

// SpecialistBookings returns the specialist's bookings, sorted by start.
func (l *Ledger) SpecialistBookings(specialistID string) []domain.TimeSlot {
	return l.specialistBookings[specialistID]
}

// EquipmentBookings returns the equipment's bookings, sorted by start.
func (l *Ledger) EquipmentBookings(equipmentID string) []domain.TimeSlot {
	return l.equipmentBookings[equipmentID]
}

// WeekdayPatternCount returns how many times activityID has been booked on
// the given weekday so far this run — read by the Scorer's habit component.
func (l *Ledger) WeekdayPatternCount(activityID string, weekday int) int {
	return l.weeklyPatterns[weekdayKey{ActivityID: activityID, Weekday: weekday}]
}

// BackupActivations returns the backup commits recorded against primaryID.
func (l *Ledger) BackupActivations(primaryID string) []domain.TimeSlot {
	return l.backupActivations[primaryID]
}

// HasOccurrenceOnDate reports whether the given demand (identified by the
// primary activity id, the key occurrences are booked under) already has a
// commit — primary or backup — on date. The Orchestrator consults this
// before attempting a day, so that a Weekly{k}/Monthly{k} demand with k>1
// spreads its instances across distinct days instead of stacking several
// occurrences of the same habit into one day's open slots.
func (l *Ledger) HasOccurrenceOnDate(occurrenceKey string, date domain.Date) bool {
	for _, s := range l.schedule[date.String()] {
		if s.OccurrenceKey() == occurrenceKey {
			return true
		}
	}
	return false
}

// HasPrimaryCommitOnDate reports whether activityID has a non-backup
// booking on date — the query form of the backup-correctness invariant
// (spec.md §8 property 6: a primary has no primary commit on the same day
// a backup stands in for it). The Orchestrator does not call it; it relies
// on HasOccurrenceOnDate, which already skips any day on which the primary
// or one of its backups is booked.
func (l *Ledger) HasPrimaryCommitOnDate(activityID string, date domain.Date) bool {
	for _, s := range l.schedule[date.String()] {
		if s.ActivityID == activityID && !s.IsBackup {
			return true
		}
	}
	return false
}

// FailureReport returns only activities with zero successful commits across
// the horizon — the terminal failures a user-facing report surfaces
// (spec.md §4.4, §7: "only the terminal Exhaustion violations are
// user-visible").
func (l *Ledger) FailureReport() map[string]domain.TerminalFailure {
	out := make(map[string]domain.TerminalFailure)
	for id, att := range l.failures {
		if l.activityOccurrences[id] > 0 {
			continue
		}
		out[id] = domain.TerminalFailure{
			ActivityID: id,
			Kind:       att.LastKind,
			Reason:     att.LastReason,
			LastDate:   att.LastDate,
		}
	}
	return out
}

// Statistics computes the success/resilience/utilization projections
// spec.md §4.4 assigns to the Ledger.
func (l *Ledger) Statistics() domain.Statistics {
	stats := domain.Statistics{
		SuccessRateByPriority: make(map[int]float64),
		ResourceUtilization:   make(map[string]float64),
	}
	if l.demandTotal > 0 {
		stats.SuccessRate = float64(l.demandSucceeded) / float64(l.demandTotal)
	}
	for p, total := range l.demandByPriorityTotal {
		if total == 0 {
			continue
		}
		stats.SuccessRateByPriority[p] = float64(l.demandByPrioritySucceeded[p]) / float64(total)
	}
	if l.demandSucceeded > 0 {
		stats.ResilienceRate = float64(l.backupCommits) / float64(l.demandSucceeded)
	}

	totalMinutes := float64(l.horizonDays) * 1440
	if totalMinutes > 0 {
		for specialistID, slots := range l.specialistBookings {
			stats.ResourceUtilization["specialist:"+specialistID] = bookedMinutes(slots) / totalMinutes
		}
		for equipmentID, slots := range l.equipmentBookings {
			stats.ResourceUtilization["equipment:"+equipmentID] = bookedMinutes(slots) / totalMinutes
		}
	}
	return stats
}

// DayTotalMinutes returns the sum of DurationMinutes for every committed
// slot on date, regardless of priority — used to derive day_context's
// load_intensity (spec.md §6), not the priority-capacity quota check.
func (l *Ledger) DayTotalMinutes(date domain.Date) int {
	total := 0
	for _, s := range l.schedule[date.String()] {
		total += s.DurationMinutes
	}
	return total
}

func bookedMinutes(slots []domain.TimeSlot) float64 {
	total := 0
	for _, s := range slots {
		total += s.DurationMinutes
	}
	return float64(total)
}

// Clear wipes all state, returning the Ledger to its construction-time shape.
func (l *Ledger) Clear() {
	*l = *New(l.horizonDays)
}

// DayMinutesAtOrBelowPriority returns the sum of DurationMinutes for
// committed slots on date whose Priority is >= minPriority (i.e. minPriority
// or weaker/more-optional) — the cheap pre-check the Orchestrator runs
// before invoking the Checker (spec.md §4.1 "Daily priority-capacity
// quotas"; see DESIGN.md for why "priority >= p" rather than "priority <= p"
// is the resolved reading of that section).
func (l *Ledger) DayMinutesAtOrBelowPriority(date domain.Date, minPriority int) int {
	total := 0
	for _, s := range l.schedule[date.String()] {
		if s.Priority >= minPriority {
			total += s.DurationMinutes
		}
	}
	return total
}
