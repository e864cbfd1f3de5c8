package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/healthplan/scheduler/internal/domain"
	"github.com/healthplan/scheduler/internal/repository"
	"github.com/healthplan/scheduler/internal/usecase"
)

type fakeRunRepo struct {
	records []*domain.RunRecord
}

func (r *fakeRunRepo) Create(_ context.Context, record *domain.RunRecord) error {
	record.ID = "run-1"
	r.records = append(r.records, record)
	return nil
}

func (r *fakeRunRepo) FindByID(_ context.Context, id string) (*domain.RunRecord, error) {
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, domain.ErrRunNotFound
}

func (r *fakeRunRepo) ListByUser(_ context.Context, userID string, _ *repository.RunCursor, limit int) ([]*domain.RunRecord, *repository.RunCursor, error) {
	var out []*domain.RunRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil, nil
}

func (r *fakeRunRepo) ListLatestPerUser(_ context.Context) ([]*domain.RunRecord, error) {
	return r.records, nil
}

type fakeDigestSender struct {
	sent []domain.RunResult
}

func (s *fakeDigestSender) SendFailureDigest(_ context.Context, _ string, result domain.RunResult) error {
	s.sent = append(s.sent, result)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunService_Execute_PersistsAndReturnsResult(t *testing.T) {
	repo := &fakeRunRepo{}
	sender := &fakeDigestSender{}
	svc := usecase.NewRunService(repo, sender, testLogger(), 90)

	req := domain.RunRequest{
		UserID:      "user-1",
		StartDate:   domain.Date{Year: 2025, Month: 1, Day: 6},
		HorizonDays: 7,
		Activities: []domain.Activity{
			{
				ID:              "yoga",
				Priority:        2,
				DurationMinutes: 30,
				Frequency:       domain.Daily(),
				Location:        domain.LocationHome,
				RemoteCapable:   true,
			},
		},
	}

	record, err := svc.Execute(context.Background(), req, "user@example.com")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if record.ID != "run-1" {
		t.Fatalf("expected persisted record to carry the repo-assigned id, got %q", record.ID)
	}
	if len(repo.records) != 1 {
		t.Fatalf("expected exactly one persisted record, got %d", len(repo.records))
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no digest for a run with no terminal failures, sent %d", len(sender.sent))
	}
}

func TestRunService_Execute_RejectsInvalidInput(t *testing.T) {
	repo := &fakeRunRepo{}
	sender := &fakeDigestSender{}
	svc := usecase.NewRunService(repo, sender, testLogger(), 90)

	req := domain.RunRequest{
		UserID:      "user-1",
		StartDate:   domain.Date{Year: 2025, Month: 1, Day: 6},
		HorizonDays: 7,
		Activities: []domain.Activity{
			{ID: "too-short", Priority: 2, DurationMinutes: 5, Frequency: domain.Daily()},
		},
	}

	if _, err := svc.Execute(context.Background(), req, ""); err == nil {
		t.Fatal("expected a validation error for a sub-10-minute activity")
	}
	if len(repo.records) != 0 {
		t.Fatalf("expected nothing persisted for an invalid request, got %d records", len(repo.records))
	}
}
