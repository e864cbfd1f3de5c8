package scheduler

import (
	"sort"

	"github.com/healthplan/scheduler/internal/domain"
)

// demandInstance is one expected occurrence of an activity in a specific
// natural period (spec.md glossary). periodAnchor is the unclipped Monday
// (Weekly) or first-of-month (Monthly) the instance belongs to, used to
// compute the Tier-3 extended window; it is unused for Daily instances.
type demandInstance struct {
	activity     *domain.Activity
	naturalStart domain.Date // clipped to the horizon
	naturalEnd   domain.Date // clipped to the horizon, inclusive
	periodAnchor domain.Date
}

// expandDemand computes the deterministic ordered list of demand instances
// for the horizon [start, start+horizonDays), per spec.md §4.1.
func expandDemand(activities []domain.Activity, start domain.Date, horizonDays int) []demandInstance {
	horizonLastDay := start.AddDays(horizonDays - 1)
	var out []demandInstance

	for i := range activities {
		a := &activities[i]
		switch a.Frequency.Kind {
		case domain.FrequencyDaily:
			for d := start; !d.After(horizonLastDay); d = d.AddDays(1) {
				out = append(out, demandInstance{activity: a, naturalStart: d, naturalEnd: d, periodAnchor: d})
			}

		case domain.FrequencyWeekly:
			for weekStart := isoWeekMonday(start); !weekStart.After(horizonLastDay); weekStart = weekStart.AddDays(7) {
				weekEnd := weekStart.AddDays(6)
				clippedStart := maxDate(weekStart, start)
				clippedEnd := minDate(weekEnd, horizonLastDay)
				if clippedStart.After(clippedEnd) {
					continue
				}
				for k := 0; k < a.Frequency.Count; k++ {
					out = append(out, demandInstance{
						activity: a, naturalStart: clippedStart, naturalEnd: clippedEnd, periodAnchor: weekStart,
					})
				}
			}

		case domain.FrequencyMonthly:
			for monthStart := monthFirstDay(start); !monthStart.After(horizonLastDay); monthStart = nextMonth(monthStart) {
				monthEnd := lastDayOfMonth(monthStart)
				clippedStart := maxDate(monthStart, start)
				clippedEnd := minDate(monthEnd, horizonLastDay)
				if clippedStart.After(clippedEnd) {
					continue
				}
				for k := 0; k < a.Frequency.Count; k++ {
					out = append(out, demandInstance{
						activity: a, naturalStart: clippedStart, naturalEnd: clippedEnd, periodAnchor: monthStart,
					})
				}
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].activity.Priority != out[j].activity.Priority {
			return out[i].activity.Priority < out[j].activity.Priority
		}
		if !out[i].naturalStart.Equal(out[j].naturalStart) {
			return out[i].naturalStart.Before(out[j].naturalStart)
		}
		return out[i].activity.ID < out[j].activity.ID
	})
	return out
}

// nextPeriodWindow computes the Tier-3 "+1 period" window for a Weekly or
// Monthly instance, clipped to the horizon. ok is false when the next period
// falls entirely outside the horizon (liquid overflow has nowhere to go).
func nextPeriodWindow(inst demandInstance, start domain.Date, horizonDays int) (ws, we domain.Date, ok bool) {
	horizonLastDay := start.AddDays(horizonDays - 1)

	switch inst.activity.Frequency.Kind {
	case domain.FrequencyWeekly:
		nextStart := inst.periodAnchor.AddDays(7)
		if nextStart.After(horizonLastDay) {
			return domain.Date{}, domain.Date{}, false
		}
		nextEnd := minDate(nextStart.AddDays(6), horizonLastDay)
		return nextStart, nextEnd, true

	case domain.FrequencyMonthly:
		nextStart := nextMonth(inst.periodAnchor)
		if nextStart.After(horizonLastDay) {
			return domain.Date{}, domain.Date{}, false
		}
		nextEnd := minDate(lastDayOfMonth(nextStart), horizonLastDay)
		return nextStart, nextEnd, true

	default:
		return domain.Date{}, domain.Date{}, false
	}
}

func isoWeekMonday(d domain.Date) domain.Date {
	wd := d.Weekday() // 0=Sunday .. 6=Saturday
	offsetFromMonday := (wd + 6) % 7
	return d.AddDays(-offsetFromMonday)
}

func monthFirstDay(d domain.Date) domain.Date {
	return domain.Date{Year: d.Year, Month: d.Month, Day: 1}
}

func lastDayOfMonth(monthStart domain.Date) domain.Date {
	return nextMonth(monthStart).AddDays(-1)
}

func nextMonth(monthStart domain.Date) domain.Date {
	year, month := monthStart.Year, monthStart.Month+1
	if month > 12 {
		month = 1
		year++
	}
	return domain.Date{Year: year, Month: month, Day: 1}
}

func maxDate(a, b domain.Date) domain.Date {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b domain.Date) domain.Date {
	if a.Before(b) {
		return a
	}
	return b
}
