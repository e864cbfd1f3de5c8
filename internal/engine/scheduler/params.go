package scheduler

import "github.com/healthplan/scheduler/internal/domain"

// Params bundles the optional overrides spec.md §6 names on the engine's
// entry point, each defaulting as specified there.
type Params struct {
	// PriorityCapacityFactors maps priority (1..5) to its daily capacity
	// factor; spec.md §4.1 default: {1:1.00, 2:0.80, 3:0.60, 4:0.50, 5:0.40}.
	PriorityCapacityFactors map[int]float64

	// AnchorTimes is the fixed grid used for activities with no declared
	// time window; spec.md §4.1 default: 06:00 .. 20:00 anchors below.
	AnchorTimes []domain.TimeOfDay

	// CandidateStepMinutes is the step used inside a declared time window;
	// spec.md §4.1 default: 15.
	CandidateStepMinutes int
}

// DefaultParams returns the parameter set spec.md §4.1 and §6 specify.
func DefaultParams() Params {
	return Params{
		PriorityCapacityFactors: map[int]float64{1: 1.00, 2: 0.80, 3: 0.60, 4: 0.50, 5: 0.40},
		AnchorTimes: []domain.TimeOfDay{
			domain.NewTimeOfDay(6, 0),
			domain.NewTimeOfDay(7, 0),
			domain.NewTimeOfDay(8, 0),
			domain.NewTimeOfDay(9, 0),
			domain.NewTimeOfDay(12, 0),
			domain.NewTimeOfDay(14, 0),
			domain.NewTimeOfDay(17, 0),
			domain.NewTimeOfDay(18, 0),
			domain.NewTimeOfDay(19, 0),
			domain.NewTimeOfDay(20, 0),
		},
		CandidateStepMinutes: 15,
	}
}

// withDefaults fills any zero-valued field of p with the matching default.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.PriorityCapacityFactors == nil {
		p.PriorityCapacityFactors = d.PriorityCapacityFactors
	}
	if p.AnchorTimes == nil {
		p.AnchorTimes = d.AnchorTimes
	}
	if p.CandidateStepMinutes == 0 {
		p.CandidateStepMinutes = d.CandidateStepMinutes
	}
	return p
}

// capacityFactor returns the configured factor for priority p, defaulting to
// 1.0 (the whole day) if no factor is configured for p (this should not
// happen for validated input with the default factors, where priority is
// always 1..5).
func (p Params) capacityFactor(priority int) float64 {
	if f, ok := p.PriorityCapacityFactors[priority]; ok {
		return f
	}
	return 1.0
}
