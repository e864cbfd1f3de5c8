package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/healthplan/scheduler/internal/domain"
	"github.com/healthplan/scheduler/internal/repository"
	"github.com/healthplan/scheduler/internal/transport/http/handler"
)

type fakeRunExecutor struct {
	execute func(ctx context.Context, req domain.RunRequest, userEmail string) (*domain.RunRecord, error)
}

func (f *fakeRunExecutor) Execute(ctx context.Context, req domain.RunRequest, userEmail string) (*domain.RunRecord, error) {
	return f.execute(ctx, req, userEmail)
}

type fakeRunFinder struct{}

func (fakeRunFinder) FindByID(context.Context, string) (*domain.RunRecord, error) { return nil, nil }
func (fakeRunFinder) ListByUser(context.Context, string, *repository.RunCursor, int) ([]*domain.RunRecord, *repository.RunCursor, error) {
	return nil, nil, nil
}

func newRunTestEngine(executor *fakeRunExecutor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handler.NewRunHandler(executor, fakeRunFinder{}, logger)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "user-1")
		c.Next()
	})
	r.POST("/v1/runs", h.Create)
	return r
}

// s1RequestBody is scenario S1's literal input, spec.md §8: start
// 2025-01-06, H=7, one activity A (P3, Weekly{3}, 30min, window
// 07:00-09:00), a travel period 2025-01-06..01-07 to a non-remote-only
// hotel with no equipment supplied.
const s1RequestBody = `{
	"start_date": "2025-01-06",
	"horizon_days": 7,
	"activities": [{
		"ID": "A",
		"Priority": 3,
		"DurationMinutes": 30,
		"Frequency": {"Kind": "weekly", "Count": 3},
		"TimeWindowStart": 420,
		"TimeWindowEnd": 540
	}],
	"travel_periods": [{
		"ID": "trip-1",
		"LocationLabel": "Hotel",
		"Start": "2025-01-06",
		"End": "2025-01-07",
		"RemoteActivitiesOnly": false
	}]
}`

func TestCreate_S1Inputs_ReturnsThreeScheduledDays(t *testing.T) {
	executor := &fakeRunExecutor{
		execute: func(_ context.Context, req domain.RunRequest, _ string) (*domain.RunRecord, error) {
			result := domain.RunResult{
				Schedule: map[string][]domain.TimeSlot{
					"2025-01-08": {{ActivityID: "A"}},
					"2025-01-09": {{ActivityID: "A"}},
					"2025-01-10": {{ActivityID: "A"}},
				},
				FailuresTerminal: map[string]domain.TerminalFailure{},
			}
			return &domain.RunRecord{UserID: req.UserID, Request: req, Result: result}, nil
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(s1RequestBody))
	req.Header.Set("Content-Type", "application/json")
	newRunTestEngine(executor).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", w.Code, w.Body.String())
	}

	var result domain.RunResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(result.Schedule) != 3 {
		t.Fatalf("schedule has %d entries, want 3", len(result.Schedule))
	}
}

func TestCreate_InvalidBody_Returns400(t *testing.T) {
	executor := &fakeRunExecutor{}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(`{bad json}`))
	req.Header.Set("Content-Type", "application/json")
	newRunTestEngine(executor).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
