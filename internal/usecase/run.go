package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/healthplan/scheduler/internal/domain"
	"github.com/healthplan/scheduler/internal/engine/scheduler"
	"github.com/healthplan/scheduler/internal/notify"
	"github.com/healthplan/scheduler/internal/repository"
	"github.com/healthplan/scheduler/internal/validate"
)

// RunService wraps engine/scheduler.Run with the collaborator concerns
// spec.md §1 keeps out of the engine itself: input validation, a fresh
// SchedulerState per invocation, result persistence, and a failure-digest
// notification. The nightly trigger and the HTTP run handler both funnel
// through Execute, and each call builds its own ledger; Execute takes no
// lock, so two runs for the same household can overlap in time without
// sharing engine state (SPEC_FULL.md §5).
type RunService struct {
	runs           repository.RunRepository
	notify         notify.Sender
	logger         *slog.Logger
	defaultHorizon int
}

func NewRunService(runs repository.RunRepository, sender notify.Sender, logger *slog.Logger, defaultHorizonDays int) *RunService {
	return &RunService{
		runs:           runs,
		notify:         sender,
		logger:         logger.With("component", "run_service"),
		defaultHorizon: defaultHorizonDays,
	}
}

// Execute validates req, runs the engine synchronously inline, persists the
// resulting RunRecord, and — when the run leaves any activity terminally
// unscheduled — sends the failure digest to userEmail. A validation or
// engine error is returned without persisting anything.
func (s *RunService) Execute(ctx context.Context, req domain.RunRequest, userEmail string) (*domain.RunRecord, error) {
	if req.HorizonDays <= 0 {
		req.HorizonDays = s.defaultHorizon
	}

	if err := validate.Request(req); err != nil {
		return nil, err
	}

	ledger, err := scheduler.Run(ctx, scheduler.Inputs{
		StartDate:     req.StartDate,
		HorizonDays:   req.HorizonDays,
		Activities:    req.Activities,
		Specialists:   req.Specialists,
		Equipment:     req.Equipment,
		TravelPeriods: req.TravelPeriods,
		Params:        toSchedulerParams(req.Params),
	})
	if err != nil {
		return nil, fmt.Errorf("engine run: %w", err)
	}

	result := scheduler.BuildResult(ledger, scheduler.Inputs{
		StartDate:     req.StartDate,
		HorizonDays:   req.HorizonDays,
		TravelPeriods: req.TravelPeriods,
	})

	record := &domain.RunRecord{
		UserID:  req.UserID,
		Request: req,
		Result:  result,
	}
	if err := s.runs.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("persist run record: %w", err)
	}

	if len(result.FailuresTerminal) > 0 && userEmail != "" {
		if err := s.notify.SendFailureDigest(ctx, userEmail, result); err != nil {
			s.logger.Error("send failure digest", "error", err, "run_id", record.ID)
		}
	}

	return record, nil
}

// toSchedulerParams converts a request's optional domain.ParamOverrides into
// a scheduler.Params, leaving every unset field zero-valued so
// scheduler.Run's own withDefaults() fills it from spec.md §4.1's defaults.
// A nil overrides pointer (the common case: no caller-supplied overrides)
// yields the zero Params, i.e. every default.
func toSchedulerParams(overrides *domain.ParamOverrides) scheduler.Params {
	if overrides == nil {
		return scheduler.Params{}
	}
	return scheduler.Params{
		PriorityCapacityFactors: overrides.PriorityCapacityFactors,
		AnchorTimes:             overrides.AnchorTimes,
		CandidateStepMinutes:    overrides.CandidateStepMinutes,
	}
}

// RunAllNightly re-runs the most recent stored request for every household,
// advancing its start date to today. It is the RunAllFunc the
// internal/trigger.Trigger fires on its cron schedule.
func (s *RunService) RunAllNightly(ctx context.Context, userEmails map[string]string) (succeeded, failed int) {
	templates, err := s.runs.ListLatestPerUser(ctx)
	if err != nil {
		s.logger.Error("list latest run templates", "error", err)
		return 0, 0
	}

	today := domain.NewDate(time.Now())
	for _, tmpl := range templates {
		req := tmpl.Request
		req.StartDate = today

		if _, err := s.Execute(ctx, req, userEmails[req.UserID]); err != nil {
			s.logger.Error("nightly re-run failed", "user_id", req.UserID, "error", err)
			failed++
			continue
		}
		succeeded++
	}
	return succeeded, failed
}
