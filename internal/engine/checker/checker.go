// Package checker implements the ConstraintChecker (the "Gatekeeper") from
// spec.md §4.2: a pure predicate that, given an activity, a candidate
// (date, start time), the current ledger state, and the is_backup flag,
// returns either a ConstraintViolation or success. It reads Ledger state but
// never mutates it — the read-only borrow discipline described in spec.md
// §9.
package checker

import (
	"fmt"

	"github.com/healthplan/scheduler/internal/domain"
)

// Ledger is the read-only subset of engine/state.Ledger the Checker needs.
// Declaring the interface here (at the point of use) keeps the Checker a
// pure function of its explicit inputs, independent of the ledger's own
// mutation API.
type Ledger interface {
	GetSlotsForDate(date domain.Date) []domain.TimeSlot
	SpecialistBookings(specialistID string) []domain.TimeSlot
	EquipmentBookings(equipmentID string) []domain.TimeSlot
}

// Checker evaluates candidates against a fixed set of resources and travel
// periods for the whole run (these never change mid-run — spec.md §3
// "Lifecycles").
type Checker struct {
	specialists   map[string]*domain.Specialist
	equipment     map[string]*domain.Equipment
	travelPeriods []domain.TravelPeriod
}

// New builds a Checker over the run's immutable resource collections.
func New(specialists map[string]*domain.Specialist, equipment map[string]*domain.Equipment, travelPeriods []domain.TravelPeriod) *Checker {
	return &Checker{specialists: specialists, equipment: equipment, travelPeriods: travelPeriods}
}

// Check runs the fail-fast validation pipeline of spec.md §4.2 in
// contractual order; the first stage to fail determines the violation kind
// reported. A zero-value ConstraintViolation and ok=true mean the candidate
// is legal.
func (c *Checker) Check(ledger Ledger, activity *domain.Activity, date domain.Date, start domain.TimeOfDay, isBackup bool) (domain.ConstraintViolation, bool) {
	if v, ok := c.checkTravel(activity, date, isBackup); !ok {
		return v, false
	}
	if v, ok := c.checkSpecialist(ledger, activity, date, start); !ok {
		return v, false
	}
	if v, ok := c.checkEquipment(ledger, activity, date, start); !ok {
		return v, false
	}
	if v, ok := c.checkOverlap(ledger, activity, date, start); !ok {
		return v, false
	}
	if v, ok := c.checkTimeWindow(activity, date, start); !ok {
		return v, false
	}
	return domain.ConstraintViolation{}, true
}

func (c *Checker) travelPeriodFor(date domain.Date) *domain.TravelPeriod {
	for i := range c.travelPeriods {
		if c.travelPeriods[i].Contains(date) {
			return &c.travelPeriods[i]
		}
	}
	return nil
}

// effectivelyRemote reports whether an activity is treated as remote-capable
// for travel checks: it declares RemoteCapable, or it requires at least one
// piece of equipment and every required item is portable (spec.md glossary,
// "Effectively remote"; the equipment-less case is resolved against spec.md
// S5's worked example rather than the glossary's literal vacuous-truth
// reading — see DESIGN.md).
func (c *Checker) effectivelyRemote(activity *domain.Activity) bool {
	if activity.RemoteCapable {
		return true
	}
	if len(activity.EquipmentIDs) == 0 {
		return false
	}
	for _, id := range activity.EquipmentIDs {
		eq := c.equipment[id]
		if eq == nil || !eq.IsPortable {
			return false
		}
	}
	return true
}

// stage 1 — travel context.
func (c *Checker) checkTravel(activity *domain.Activity, date domain.Date, isBackup bool) (domain.ConstraintViolation, bool) {
	travel := c.travelPeriodFor(date)
	if travel == nil {
		return domain.ConstraintViolation{}, true
	}
	if isBackup {
		return domain.ConstraintViolation{}, true // diplomatic immunity
	}

	remote := c.effectivelyRemote(activity)

	if travel.RemoteActivitiesOnly && !remote {
		return violation(domain.ViolationTravel, activity.ID, date,
			fmt.Sprintf("%s is a detox trip requiring effectively-remote activities", travel.LocationLabel)), false
	}

	if travel.AvailableEquipmentIDs != nil {
		for _, id := range activity.EquipmentIDs {
			eq := c.equipment[id]
			if eq != nil && !eq.IsPortable && !travel.ProvidesEquipment(id) {
				return violation(domain.ViolationTravel, activity.ID, date,
					fmt.Sprintf("equipment %s is not available at %s", id, travel.LocationLabel)), false
			}
		}
	}

	if activity.Location == domain.LocationHome && !remote {
		return violation(domain.ViolationTravel, activity.ID, date,
			"activity requires home while user is traveling"), false
	}

	return domain.ConstraintViolation{}, true
}

// stage 2 — specialist availability.
func (c *Checker) checkSpecialist(ledger Ledger, activity *domain.Activity, date domain.Date, start domain.TimeOfDay) (domain.ConstraintViolation, bool) {
	if !activity.RequiresSpecialist() {
		return domain.ConstraintViolation{}, true
	}
	sp := c.specialists[*activity.SpecialistID]
	if sp == nil {
		return violation(domain.ViolationSpecialist, activity.ID, date, "specialist not found"), false
	}

	end := start.Add(activity.DurationMinutes)
	window, ok := sp.AvailableOn(date.Weekday())
	if !ok || start < window.Start || end > window.End {
		return violation(domain.ViolationSpecialist, activity.ID, date,
			fmt.Sprintf("specialist %s has no availability window covering the requested time", sp.ID)), false
	}
	if sp.IsBlackout(date) {
		return violation(domain.ViolationSpecialist, activity.ID, date,
			fmt.Sprintf("specialist %s is unavailable (blackout date)", sp.ID)), false
	}

	overlapping := 0
	for _, booking := range ledger.SpecialistBookings(sp.ID) {
		if booking.Date.Equal(date) && timeRangesOverlap(start, end, booking.Start, booking.End()) {
			overlapping++
		}
	}
	if overlapping >= sp.MaxConcurrentClients {
		return violation(domain.ViolationSpecialist, activity.ID, date,
			fmt.Sprintf("specialist %s is at capacity (%d/%d clients)", sp.ID, overlapping, sp.MaxConcurrentClients)), false
	}
	return domain.ConstraintViolation{}, true
}

// stage 3 — equipment.
func (c *Checker) checkEquipment(ledger Ledger, activity *domain.Activity, date domain.Date, start domain.TimeOfDay) (domain.ConstraintViolation, bool) {
	traveling := c.travelPeriodFor(date)
	end := start.Add(activity.DurationMinutes)

	for _, id := range activity.EquipmentIDs {
		eq := c.equipment[id]
		if eq == nil {
			return violation(domain.ViolationEquipment, activity.ID, date, "equipment not found"), false
		}

		if traveling != nil {
			if eq.IsPortable || traveling.ProvidesEquipment(id) {
				continue
			}
			return violation(domain.ViolationEquipment, activity.ID, date,
				fmt.Sprintf("equipment %s unavailable while traveling", id)), false
		}

		if eq.UnderMaintenance(date) {
			return violation(domain.ViolationEquipment, activity.ID, date,
				fmt.Sprintf("equipment %s is under maintenance", id)), false
		}

		overlapping := 0
		for _, booking := range ledger.EquipmentBookings(id) {
			if booking.Date.Equal(date) && timeRangesOverlap(start, end, booking.Start, booking.End()) {
				overlapping++
			}
		}
		if overlapping >= eq.MaxConcurrentUsers {
			return violation(domain.ViolationEquipment, activity.ID, date,
				fmt.Sprintf("equipment %s is at capacity (%d/%d users)", id, overlapping, eq.MaxConcurrentUsers)), false
		}
	}
	return domain.ConstraintViolation{}, true
}

// stage 4 — effective-time overlap with prep.
func (c *Checker) checkOverlap(ledger Ledger, activity *domain.Activity, date domain.Date, start domain.TimeOfDay) (domain.ConstraintViolation, bool) {
	candidateEffectiveStart := start.Add(-activity.PrepMinutes)
	candidateEnd := start.Add(activity.DurationMinutes)

	for _, existing := range ledger.GetSlotsForDate(date) {
		if candidateEffectiveStart < existing.End() && existing.EffectiveStart() < candidateEnd {
			return violation(domain.ViolationOverlap, activity.ID, date,
				fmt.Sprintf("overlaps existing booking for %s", existing.ActivityID)), false
		}
	}
	return domain.ConstraintViolation{}, true
}

// stage 5 — time window.
func (c *Checker) checkTimeWindow(activity *domain.Activity, date domain.Date, start domain.TimeOfDay) (domain.ConstraintViolation, bool) {
	if !activity.HasTimeWindow() {
		return domain.ConstraintViolation{}, true
	}
	end := start.Add(activity.DurationMinutes)
	if start < *activity.TimeWindowStart || end > *activity.TimeWindowEnd {
		return violation(domain.ViolationTimeWindow, activity.ID, date,
			"start time falls outside the activity's declared time window"), false
	}
	return domain.ConstraintViolation{}, true
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd domain.TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}

func violation(kind domain.ViolationKind, activityID string, date domain.Date, reason string) domain.ConstraintViolation {
	return domain.ConstraintViolation{Kind: kind, Reason: reason, ActivityID: activityID, Date: date}
}
