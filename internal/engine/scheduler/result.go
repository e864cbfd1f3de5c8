package scheduler

import (
	"github.com/healthplan/scheduler/internal/domain"
	"github.com/healthplan/scheduler/internal/engine/state"
)

// BuildResult projects a completed run's Ledger into the JSON-serializable
// RunResult shape spec.md §6 describes. It is a collaborator concern (used
// by the HTTP and CLI layers in SPEC_FULL.md §6b), not part of the engine
// entry point itself.
func BuildResult(ledger *state.Ledger, inputs Inputs) domain.RunResult {
	schedule := make(map[string][]domain.TimeSlot)
	dayContext := make(map[string]domain.DayContext)

	for i := 0; i < inputs.HorizonDays; i++ {
		d := inputs.StartDate.AddDays(i)
		key := d.String()

		if slots := ledger.GetSlotsForDate(d); len(slots) > 0 {
			schedule[key] = slots
		}

		dayContext[key] = dayContextFor(d, inputs.TravelPeriods, ledger.DayTotalMinutes(d))
	}

	failures := make(map[string]domain.TerminalFailure)
	for id, f := range ledger.FailureReport() {
		failures[id] = f
	}

	return domain.RunResult{
		Schedule:         schedule,
		FailuresTerminal: failures,
		DayContext:       dayContext,
		Statistics:       ledger.Statistics(),
	}
}

func dayContextFor(d domain.Date, travelPeriods []domain.TravelPeriod, scheduledMinutes int) domain.DayContext {
	ctx := domain.DayContext{LoadIntensity: loadIntensity(scheduledMinutes)}
	for _, t := range travelPeriods {
		if t.Contains(d) {
			ctx.IsTraveling = true
			ctx.LocationLabel = t.LocationLabel
			break
		}
	}
	return ctx
}

// loadIntensity buckets scheduled minutes per spec.md §6: Rest=0, Low<=60,
// Medium<=180, High>180.
func loadIntensity(minutes int) string {
	switch {
	case minutes == 0:
		return "Rest"
	case minutes <= 60:
		return "Low"
	case minutes <= 180:
		return "Medium"
	default:
		return "High"
	}
}
