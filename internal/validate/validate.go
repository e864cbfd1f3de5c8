// Package validate runs the pre-run input checks spec.md §7 describes:
// structural violations that must stop a run before the engine ever sees
// an activity, distinct from the engine's own ConstraintViolation values
// (which are a normal, non-error outcome of a run). Every violation in a
// batch is collected in one pass — this package never aborts on the first
// failure, matching §7's "identifying the offending object[s]" language.
package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/healthplan/scheduler/internal/domain"
)

// FieldViolation names one input that failed validation.
type FieldViolation struct {
	ActivityID string
	Field      string
	Reason     string
}

// Error is the typed, multi-violation error this package returns.
type Error struct {
	Violations []FieldViolation
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s: %s", v.ActivityID, v.Field, v.Reason)
	}
	return strings.Join(parts, "; ")
}

var structValidator = validator.New()

// activityConstraints mirrors the scalar bounds spec.md §7 names, expressed
// as struct tags so go-playground/validator does the field-by-field work.
// FrequencyCount is not among them — its valid range depends on
// Frequency.Kind, which no validator tag can express, so it is checked by
// frequencyViolations below instead.
type activityConstraints struct {
	Priority        int `validate:"min=1,max=5"`
	DurationMinutes int `validate:"min=10"`
	PrepMinutes     int `validate:"min=0,max=60"`
}

// Request validates one RunRequest, returning *Error with every violation
// found (nil if the request is clean).
func Request(req domain.RunRequest) error {
	var violations []FieldViolation

	byID := make(map[string]*domain.Activity, len(req.Activities))
	for i := range req.Activities {
		byID[req.Activities[i].ID] = &req.Activities[i]
	}

	for i := range req.Activities {
		a := &req.Activities[i]
		violations = append(violations, scalarViolations(a)...)
		violations = append(violations, frequencyViolations(a)...)
		violations = append(violations, referenceViolations(a, byID)...)
	}

	violations = append(violations, acyclicityViolations(req.Activities, byID)...)

	for _, t := range req.TravelPeriods {
		if t.End.Before(t.Start) {
			violations = append(violations, FieldViolation{
				ActivityID: t.ID,
				Field:      "travel_period.end",
				Reason:     "end date is before start date",
			})
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return &Error{Violations: violations}
}

func scalarViolations(a *domain.Activity) []FieldViolation {
	c := activityConstraints{
		Priority:        a.Priority,
		DurationMinutes: a.DurationMinutes,
		PrepMinutes:     a.PrepMinutes,
	}

	err := structValidator.Struct(c)
	if err == nil {
		return nil
	}

	var out []FieldViolation
	for _, fe := range err.(validator.ValidationErrors) {
		out = append(out, FieldViolation{
			ActivityID: a.ID,
			Field:      fe.Field(),
			Reason:     fmt.Sprintf("failed %q (value %v)", fe.Tag(), fe.Value()),
		})
	}
	return out
}

// frequencyViolations enforces spec.md §3's per-kind frequency-count bounds:
// Daily carries no count, Weekly is 1..7 (occurrences per week), Monthly is
// 1..31 (occurrences per month). A count of 0 is rejected for Weekly/Monthly
// rather than silently expanding to zero instances.
func frequencyViolations(a *domain.Activity) []FieldViolation {
	var lo, hi int
	switch a.Frequency.Kind {
	case domain.FrequencyDaily:
		return nil
	case domain.FrequencyWeekly:
		lo, hi = 1, 7
	case domain.FrequencyMonthly:
		lo, hi = 1, 31
	default:
		return []FieldViolation{{
			ActivityID: a.ID,
			Field:      "frequency.kind",
			Reason:     fmt.Sprintf("unknown frequency kind %q", a.Frequency.Kind),
		}}
	}

	if a.Frequency.Count < lo || a.Frequency.Count > hi {
		return []FieldViolation{{
			ActivityID: a.ID,
			Field:      "frequency.count",
			Reason:     fmt.Sprintf("%s count %d out of range [%d, %d]", a.Frequency.Kind, a.Frequency.Count, lo, hi),
		}}
	}
	return nil
}

// referenceViolations checks every backup_activity_id actually names an
// activity present in the same request.
func referenceViolations(a *domain.Activity, byID map[string]*domain.Activity) []FieldViolation {
	var out []FieldViolation
	for _, backupID := range a.BackupActivityIDs {
		if _, ok := byID[backupID]; !ok {
			out = append(out, FieldViolation{
				ActivityID: a.ID,
				Field:      "backup_activity_ids",
				Reason:     fmt.Sprintf("references unknown activity %q", backupID),
			})
		}
	}
	return out
}

// acyclicityViolations walks the backup_activity_ids graph from every
// not-yet-visited activity and reports each walk's starting activity when a
// cycle is reachable from it. Activities reached during that walk are not
// reported separately, so one cycle yields one violation, and the reported
// activity may sit upstream of the cycle rather than on it. No validator tag
// expresses "acyclic reference set," so this is hand-rolled DFS.
func acyclicityViolations(activities []domain.Activity, byID map[string]*domain.Activity) []FieldViolation {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(activities))
	var onCycle []FieldViolation

	var visit func(id string, stack []string) bool
	visit = func(id string, stack []string) bool {
		switch state[id] {
		case done:
			return false
		case visiting:
			return true
		}
		state[id] = visiting
		a := byID[id]
		if a != nil {
			for _, backupID := range a.BackupActivityIDs {
				if _, ok := byID[backupID]; !ok {
					continue // reported separately by referenceViolations
				}
				if visit(backupID, append(stack, id)) {
					return true
				}
			}
		}
		state[id] = done
		return false
	}

	for _, a := range activities {
		if state[a.ID] != unvisited {
			continue
		}
		if visit(a.ID, nil) {
			onCycle = append(onCycle, FieldViolation{
				ActivityID: a.ID,
				Field:      "backup_activity_ids",
				Reason:     "reaches a backup reference cycle",
			})
		}
	}
	return onCycle
}
