package scheduler

import "github.com/healthplan/scheduler/internal/domain"

// candidateTimes produces the ordered, deduplicated list of candidate start
// times for activity on date, per spec.md §4.1 "Candidate time enumeration".
func candidateTimes(activity *domain.Activity, date domain.Date, existing []domain.TimeSlot, params Params) []domain.TimeOfDay {
	var raw []domain.TimeOfDay

	if activity.HasTimeWindow() {
		step := params.CandidateStepMinutes
		last := int(*activity.TimeWindowEnd) - activity.DurationMinutes
		for t := int(*activity.TimeWindowStart); t <= last; t += step {
			raw = append(raw, domain.TimeOfDay(t))
		}
	} else {
		raw = append(raw, params.AnchorTimes...)
	}

	for _, booking := range existing {
		raw = append(raw, booking.End())
		raw = append(raw, booking.Start.Add(-activity.DurationMinutes-activity.PrepMinutes))
	}

	seen := make(map[domain.TimeOfDay]bool, len(raw))
	out := make([]domain.TimeOfDay, 0, len(raw))
	for _, t := range raw {
		if t < 0 || int(t)+activity.DurationMinutes > 1440 {
			continue
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
