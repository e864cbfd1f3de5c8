package domain

// ViolationKind is the tag of the ConstraintViolation variant.
type ViolationKind string

const (
	ViolationTravel     ViolationKind = "travel"
	ViolationSpecialist ViolationKind = "specialist"
	ViolationEquipment  ViolationKind = "equipment"
	ViolationOverlap    ViolationKind = "overlap"
	ViolationTimeWindow ViolationKind = "time_window"
	ViolationCapacity   ViolationKind = "capacity"
	ViolationExhaustion ViolationKind = "exhaustion"
)

// ConstraintViolation is returned by the Checker (or recorded by the
// Orchestrator for a capacity pre-check) when a candidate cannot be placed.
type ConstraintViolation struct {
	Kind       ViolationKind
	Reason     string
	ActivityID string
	Date       Date
}

func (v ConstraintViolation) Error() string {
	return v.Reason
}

// SchedulingAttempt is the per-activity-instance post-mortem record: the
// last violation kind and a cumulative count, used only for diagnostics.
type SchedulingAttempt struct {
	ActivityID string
	LastKind   ViolationKind
	LastReason string
	LastDate   Date
	Count      int
}
