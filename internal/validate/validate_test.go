package validate_test

import (
	"testing"

	"github.com/healthplan/scheduler/internal/domain"
	"github.com/healthplan/scheduler/internal/validate"
)

func baseActivity(id string, backups ...string) domain.Activity {
	return domain.Activity{
		ID:                id,
		Priority:          2,
		DurationMinutes:   30,
		PrepMinutes:       0,
		Frequency:         domain.Daily(),
		BackupActivityIDs: backups,
	}
}

func TestRequest_RejectsThreeNodeBackupCycle(t *testing.T) {
	req := domain.RunRequest{
		Activities: []domain.Activity{
			baseActivity("A", "B"),
			baseActivity("B", "C"),
			baseActivity("C", "A"),
		},
	}

	err := validate.Request(req)
	if err == nil {
		t.Fatal("expected a cycle violation, got nil")
	}
	verr, ok := err.(*validate.Error)
	if !ok {
		t.Fatalf("expected *validate.Error, got %T", err)
	}

	found := false
	for _, v := range verr.Violations {
		if v.Field == "backup_activity_ids" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a backup_activity_ids violation among %+v", verr.Violations)
	}
}

func TestRequest_AcceptsDiamondBackupGraph(t *testing.T) {
	// A backs up to both B and C; both B and C back up to D. A DAG, not a
	// cycle — must not be rejected.
	req := domain.RunRequest{
		Activities: []domain.Activity{
			baseActivity("A", "B", "C"),
			baseActivity("B", "D"),
			baseActivity("C", "D"),
			baseActivity("D"),
		},
	}

	if err := validate.Request(req); err != nil {
		t.Fatalf("expected no violations for a diamond graph, got %v", err)
	}
}

func TestRequest_RejectsUnknownBackupReference(t *testing.T) {
	req := domain.RunRequest{
		Activities: []domain.Activity{
			baseActivity("A", "ghost"),
		},
	}

	err := validate.Request(req)
	if err == nil {
		t.Fatal("expected a violation for an unknown backup reference")
	}
}

func TestRequest_RejectsOutOfRangeScalarFields(t *testing.T) {
	req := domain.RunRequest{
		Activities: []domain.Activity{
			{ID: "A", Priority: 9, DurationMinutes: 5, PrepMinutes: 90, Frequency: domain.Daily()},
		},
	}

	err := validate.Request(req)
	if err == nil {
		t.Fatal("expected violations for out-of-range priority/duration/prep")
	}
	verr := err.(*validate.Error)
	if len(verr.Violations) < 3 {
		t.Fatalf("expected at least 3 violations collected in one pass, got %d: %+v", len(verr.Violations), verr.Violations)
	}
}

func TestRequest_RejectsWeeklyCountOutOfRange(t *testing.T) {
	req := domain.RunRequest{
		Activities: []domain.Activity{
			{ID: "A", Priority: 2, DurationMinutes: 30, Frequency: domain.Weekly(0)},
			{ID: "B", Priority: 2, DurationMinutes: 30, Frequency: domain.Weekly(8)},
		},
	}

	err := validate.Request(req)
	if err == nil {
		t.Fatal("expected violations for Weekly{0} and Weekly{8}")
	}
	verr := err.(*validate.Error)
	if len(verr.Violations) < 2 {
		t.Fatalf("expected a violation for each out-of-range weekly count, got %+v", verr.Violations)
	}
}

func TestRequest_RejectsMonthlyCountOutOfRange(t *testing.T) {
	req := domain.RunRequest{
		Activities: []domain.Activity{
			{ID: "A", Priority: 2, DurationMinutes: 30, Frequency: domain.Monthly(0)},
			{ID: "B", Priority: 2, DurationMinutes: 30, Frequency: domain.Monthly(32)},
		},
	}

	err := validate.Request(req)
	if err == nil {
		t.Fatal("expected violations for Monthly{0} and Monthly{32}")
	}
	verr := err.(*validate.Error)
	if len(verr.Violations) < 2 {
		t.Fatalf("expected a violation for each out-of-range monthly count, got %+v", verr.Violations)
	}
}

func TestRequest_AcceptsValidWeeklyAndMonthlyCounts(t *testing.T) {
	req := domain.RunRequest{
		Activities: []domain.Activity{
			{ID: "A", Priority: 2, DurationMinutes: 30, Frequency: domain.Weekly(3)},
			{ID: "B", Priority: 2, DurationMinutes: 30, Frequency: domain.Monthly(1)},
		},
	}

	if err := validate.Request(req); err != nil {
		t.Fatalf("expected no violations for in-range weekly/monthly counts, got %v", err)
	}
}

func TestRequest_RejectsTravelPeriodEndBeforeStart(t *testing.T) {
	req := domain.RunRequest{
		TravelPeriods: []domain.TravelPeriod{
			{ID: "trip", Start: domain.Date{Year: 2025, Month: 1, Day: 10}, End: domain.Date{Year: 2025, Month: 1, Day: 5}},
		},
	}

	if err := validate.Request(req); err == nil {
		t.Fatal("expected a violation for end date before start date")
	}
}
