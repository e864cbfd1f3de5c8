// Package scorer implements the SlotScorer (the "Judge") from spec.md §4.3:
// a pure function that ranks legal candidates. Base score is 50; four
// additive components are applied and the result clamped to [0, 100].
package scorer

import (
	"math"

	"github.com/healthplan/scheduler/internal/domain"
)

// Ledger is the read-only subset of engine/state.Ledger the Scorer needs.
type Ledger interface {
	GetSlotsForDate(date domain.Date) []domain.TimeSlot
	WeekdayPatternCount(activityID string, weekday int) int
}

const baseScore = 50

// Score ranks one legal candidate in [0, 100]; higher is better. Ties are
// broken by the caller per spec.md §4.3 ("earlier start time, then by
// candidate enumeration order") — this function only produces the number.
func Score(ledger Ledger, activity *domain.Activity, date domain.Date, start domain.TimeOfDay) int {
	total := baseScore
	total += timeWindowFidelity(activity, start)
	total += habitBonus(ledger, activity, date)
	gapBefore, gapAfter, dayIsOtherwiseEmpty := neighboringGaps(ledger, activity, date, start)
	total += clusteringBonus(gapBefore, gapAfter, dayIsOtherwiseEmpty)
	total += resilienceBonus(gapBefore)

	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return total
}

// timeWindowFidelity rewards candidates near the midpoint of the activity's
// declared time window with a parabola peaking at +20, per spec.md §4.3.
func timeWindowFidelity(activity *domain.Activity, start domain.TimeOfDay) int {
	if !activity.HasTimeWindow() {
		return 0
	}
	span := int(*activity.TimeWindowEnd) - int(*activity.TimeWindowStart) - activity.DurationMinutes
	var pos float64 = 0.5
	if span > 0 {
		pos = float64(int(start)-int(*activity.TimeWindowStart)) / float64(span)
	}
	return int(math.Round(20 * (1 - 4*math.Pow(pos-0.5, 2))))
}

// habitBonus rewards placing the activity on a weekday it has historically
// occupied this run.
func habitBonus(ledger Ledger, activity *domain.Activity, date domain.Date) int {
	count := ledger.WeekdayPatternCount(activity.ID, date.Weekday())
	switch {
	case count >= 2:
		return 10
	case count == 1:
		return 5
	default:
		return 0
	}
}

// neighboringGaps finds the gap (in minutes) to the nearest booking before
// and after the candidate on the same date. A missing neighbor is treated as
// a gap to the day boundary (midnight / end of day), which lets the island
// heuristic below detect a single isolated booking on an otherwise free day.
func neighboringGaps(ledger Ledger, activity *domain.Activity, date domain.Date, start domain.TimeOfDay) (gapBefore, gapAfter int, dayOtherwiseEmpty bool) {
	existing := ledger.GetSlotsForDate(date)
	end := start.Add(activity.DurationMinutes)

	prevEnd := -1
	nextStart := -1
	for _, s := range existing {
		if int(s.End()) <= int(start) && int(s.End()) > prevEnd {
			prevEnd = int(s.End())
		}
		if int(s.Start) >= int(end) && (nextStart == -1 || int(s.Start) < nextStart) {
			nextStart = int(s.Start)
		}
	}

	if prevEnd == -1 {
		gapBefore = int(start)
	} else {
		gapBefore = int(start) - prevEnd
	}
	if nextStart == -1 {
		gapAfter = 1440 - int(end)
	} else {
		gapAfter = nextStart - int(end)
	}
	return gapBefore, gapAfter, len(existing) == 0
}

// clusteringBonus implements the "flow" component: reward batching close to
// an existing booking, lightly penalize creating an isolated island.
func clusteringBonus(gapBefore, gapAfter int, dayOtherwiseEmpty bool) int {
	if min(gapBefore, gapAfter) < 15 {
		return 15
	}
	if dayOtherwiseEmpty && gapBefore >= 60 && gapAfter >= 60 {
		return -5
	}
	return 0
}

// resilienceBonus rewards leaving a 15-45 minute buffer before the previous
// booking (enough slack to absorb slippage) and penalizes a too-tight buffer.
func resilienceBonus(gapBefore int) int {
	switch {
	case gapBefore < 15:
		return -10
	case gapBefore <= 45:
		return 10
	default:
		return 0
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
