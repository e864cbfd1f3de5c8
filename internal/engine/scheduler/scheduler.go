// Package scheduler implements the AdaptiveScheduler (the "Orchestrator")
// from spec.md §4.1: it expands recurring activities into demand instances,
// generates candidates, calls the Checker and Scorer, and commits through
// the Ledger via the three-tier placement ladder (Primary -> Backup ->
// Liquid) and the daily priority-capacity quotas.
package scheduler

import (
	"context"
	"fmt"

	"github.com/healthplan/scheduler/internal/domain"
	"github.com/healthplan/scheduler/internal/engine/checker"
	"github.com/healthplan/scheduler/internal/engine/scorer"
	"github.com/healthplan/scheduler/internal/engine/state"
)

// Inputs bundles the engine's entry point parameters, per spec.md §6.
type Inputs struct {
	StartDate     domain.Date
	HorizonDays   int
	Activities    []domain.Activity
	Specialists   []domain.Specialist
	Equipment     []domain.Equipment
	TravelPeriods []domain.TravelPeriod
	Params        Params
}

type orchestrator struct {
	inputs         Inputs
	params         Params
	ledger         *state.Ledger
	checker        *checker.Checker
	activitiesByID map[string]*domain.Activity
}

// Run is the engine's single entry point (spec.md §6): given fully
// validated inputs, it produces a fully populated SchedulerState. ctx is
// accepted for cancellation/logging attribution by callers but is never
// consulted mid-placement — a run that has started always runs to
// completion (spec.md §5, SPEC_FULL.md §6a).
//
// A recovered Ledger invariant panic (spec.md §7, "a programmer error")
// is converted into a returned error rather than propagated, so a bug in
// this package cannot crash a long-lived host process.
func Run(_ context.Context, inputs Inputs) (ledger *state.Ledger, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: %v", r)
		}
	}()

	params := inputs.Params.withDefaults()
	ledger = state.New(inputs.HorizonDays)

	specialists := make(map[string]*domain.Specialist, len(inputs.Specialists))
	for i := range inputs.Specialists {
		specialists[inputs.Specialists[i].ID] = &inputs.Specialists[i]
	}
	equipment := make(map[string]*domain.Equipment, len(inputs.Equipment))
	for i := range inputs.Equipment {
		equipment[inputs.Equipment[i].ID] = &inputs.Equipment[i]
	}
	activitiesByID := make(map[string]*domain.Activity, len(inputs.Activities))
	for i := range inputs.Activities {
		activitiesByID[inputs.Activities[i].ID] = &inputs.Activities[i]
	}

	o := &orchestrator{
		inputs:         inputs,
		params:         params,
		ledger:         ledger,
		checker:        checker.New(specialists, equipment, inputs.TravelPeriods),
		activitiesByID: activitiesByID,
	}

	for _, inst := range expandDemand(inputs.Activities, inputs.StartDate, inputs.HorizonDays) {
		o.placeInstance(inst)
	}
	return ledger, nil
}

// placeInstance runs the three-tier placement ladder for one demand
// instance, stopping at the first tier that succeeds (spec.md §4.1).
func (o *orchestrator) placeInstance(inst demandInstance) {
	a := inst.activity

	// Tier 1 — primary, natural scope.
	if slot, ok := o.tryPlace(a, inst.naturalStart, inst.naturalEnd, false, nil); ok {
		o.ledger.AddBooking(slot)
		o.ledger.RecordDemandOutcome(a.Priority, true)
		return
	}

	// Tier 2 — backup chain, in declared order, same natural window.
	for _, backupID := range a.BackupActivityIDs {
		backup, known := o.activitiesByID[backupID]
		if !known {
			continue
		}
		if slot, ok := o.tryPlace(backup, inst.naturalStart, inst.naturalEnd, true, a); ok {
			o.ledger.AddBooking(slot)
			o.ledger.RecordDemandOutcome(a.Priority, true)
			return
		}
	}

	// Tier 3 — liquid overflow into the next period; primary only, not
	// available for Daily demand (spec.md §4.1).
	if a.Frequency.Kind != domain.FrequencyDaily {
		if ws, we, ok := nextPeriodWindow(inst, o.inputs.StartDate, o.inputs.HorizonDays); ok {
			if slot, ok2 := o.tryPlace(a, ws, we, false, nil); ok2 {
				o.ledger.AddBooking(slot)
				o.ledger.RecordDemandOutcome(a.Priority, true)
				return
			}
		}
	}

	// Exhaustion — terminal failure for this demand instance.
	o.ledger.RecordFailure(a.ID, domain.ConstraintViolation{
		Kind:       domain.ViolationExhaustion,
		Reason:     fmt.Sprintf("exhausted primary, backup, and liquid-overflow attempts for %q", a.Name),
		ActivityID: a.ID,
		Date:       inst.naturalStart,
	})
	o.ledger.RecordDemandOutcome(a.Priority, false)
}

// tryPlace attempts to place activity somewhere in [windowStart, windowEnd]
// (inclusive), iterating days ascending and, within a day, candidate start
// times in enumeration order. It returns the highest-scoring legal slot
// found on the first day that has one.
func (o *orchestrator) tryPlace(activity *domain.Activity, windowStart, windowEnd domain.Date, isBackup bool, original *domain.Activity) (domain.TimeSlot, bool) {
	occurrenceKey := activity.ID
	if original != nil {
		occurrenceKey = original.ID
	}

	for d := windowStart; !d.After(windowEnd); d = d.AddDays(1) {
		if o.ledger.HasOccurrenceOnDate(occurrenceKey, d) {
			continue
		}

		// A priority-P commit adds its minutes to sum(priority>=p) for every
		// p <= P, so every quota in that family must hold, not just the
		// candidate's own priority (spec.md §4.1, §8 property 4).
		if p, cap, used, exceeded := o.quotaExceeded(d, activity); exceeded {
			o.ledger.RecordFailure(activity.ID, domain.ConstraintViolation{
				Kind:       domain.ViolationCapacity,
				Reason:     fmt.Sprintf("daily priority-capacity quota exceeded for priority %d on %s (used %d, cap %.0f)", p, d, used, cap),
				ActivityID: activity.ID,
				Date:       d,
			})
			continue
		}

		existing := o.ledger.GetSlotsForDate(d)
		times := candidateTimes(activity, d, existing, o.params)

		found := false
		var bestTime domain.TimeOfDay
		bestScore := -1
		var lastViolation domain.ConstraintViolation

		for _, t := range times {
			v, ok := o.checker.Check(o.ledger, activity, d, t, isBackup)
			if !ok {
				lastViolation = v
				continue
			}
			score := scorer.Score(o.ledger, activity, d, t)
			if !found || score > bestScore || (score == bestScore && t < bestTime) {
				found = true
				bestScore = score
				bestTime = t
			}
		}

		if found {
			slot := domain.TimeSlot{
				ActivityID:      activity.ID,
				Priority:        activity.Priority,
				Date:            d,
				Start:           bestTime,
				DurationMinutes: activity.DurationMinutes,
				PrepMinutes:     activity.PrepMinutes,
				SpecialistID:    activity.SpecialistID,
				EquipmentIDs:    activity.EquipmentIDs,
				IsBackup:        isBackup,
				Status:          domain.StatusScheduled,
				Notes:           activity.Notes,
			}
			if isBackup && original != nil {
				id := original.ID
				slot.OriginalActivityID = &id
			}
			return slot, true
		}

		if lastViolation.Kind != "" {
			o.ledger.RecordFailure(activity.ID, lastViolation)
		}
	}
	return domain.TimeSlot{}, false
}

// quotaExceeded checks activity's candidate commit against the full family
// of daily priority-capacity quotas it would contribute to: a priority-P
// activity counts toward sum(priority>=p) for every p from 1 up to P, so
// every one of those caps must hold, not just the cap at P itself. Returns
// the first quota found exceeded, scanning upward from p=1 (the loosest
// factor).
func (o *orchestrator) quotaExceeded(d domain.Date, activity *domain.Activity) (priority int, cap float64, used int, exceeded bool) {
	for p := 1; p <= activity.Priority; p++ {
		c := o.params.capacityFactor(p) * 1440
		u := o.ledger.DayMinutesAtOrBelowPriority(d, p)
		if float64(u+activity.DurationMinutes) > c {
			return p, c, u, true
		}
	}
	return 0, 0, 0, false
}
