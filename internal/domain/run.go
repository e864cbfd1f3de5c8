package domain

import (
	"errors"
	"time"
)

var (
	ErrRunNotFound = errors.New("run not found")
)

// RunRequest is the envelope an HTTP or CLI caller submits to trigger one
// engine run. It is consumed by the collaborators in SPEC_FULL.md §6b, not
// by the engine itself — the engine's own entry point takes the unpacked
// fields directly (see engine/scheduler.Inputs).
type RunRequest struct {
	UserID        string         `json:"user_id,omitempty"`
	StartDate     Date           `json:"start_date"`
	HorizonDays   int            `json:"horizon_days"`
	Activities    []Activity     `json:"activities"`
	Specialists   []Specialist   `json:"specialists,omitempty"`
	Equipment     []Equipment    `json:"equipment,omitempty"`
	TravelPeriods []TravelPeriod `json:"travel_periods,omitempty"`

	// Params carries the optional engine parameter overrides SPEC_FULL.md
	// §6b lists alongside the rest of the request body. Any zero-valued
	// field of the underlying scheduler.Params falls back to spec.md
	// §4.1's default, exactly as engine/scheduler.DefaultParams resolves.
	Params *ParamOverrides `json:"params,omitempty"`
}

// ParamOverrides mirrors engine/scheduler.Params using only domain types,
// so this package (a leaf, imported by the engine) never has to import the
// engine package to describe them. internal/usecase converts this into a
// scheduler.Params when building the engine's Inputs.
type ParamOverrides struct {
	PriorityCapacityFactors map[int]float64 `json:"priority_capacity_factors,omitempty"`
	AnchorTimes             []TimeOfDay     `json:"anchor_times,omitempty"`
	CandidateStepMinutes    int             `json:"candidate_step_minutes,omitempty"`
}

// RunRecord is a persisted run: the request that produced it plus its
// JSON-serializable result, stored so a dashboard can fetch past runs
// without recomputing them. See SPEC_FULL.md §9 for why this does not
// violate the engine's "no persistence between runs" non-goal.
type RunRecord struct {
	ID        string
	UserID    string
	Request   RunRequest
	Result    RunResult
	CreatedAt time.Time
}

// DayContext summarizes one scheduled day for the dashboard, per spec.md §6.
type DayContext struct {
	IsTraveling    bool
	LocationLabel  string
	LoadIntensity  string // Rest | Low | Medium | High
}

// TerminalFailure is one entry of the user-visible failure report.
type TerminalFailure struct {
	ActivityID string
	Kind       ViolationKind
	Reason     string
	LastDate   Date
}

// Statistics mirrors SchedulerState.statistics() from spec.md §4.4.
type Statistics struct {
	SuccessRate          float64
	SuccessRateByPriority map[int]float64
	ResilienceRate       float64
	ResourceUtilization  map[string]float64
}

// RunResult is the JSON-serializable shape of a completed engine run,
// exactly the "Result shape (for downstream serialization)" of spec.md §6.
type RunResult struct {
	Schedule         map[string][]TimeSlot
	FailuresTerminal map[string]TerminalFailure
	DayContext       map[string]DayContext
	Statistics       Statistics
}
