package repository

import (
	"context"

	"github.com/healthplan/scheduler/internal/domain"
)

// RunCursor paginates ListByUser, encoding the position of the last row
// seen (created_at, id), the same cursor shape the teacher uses for its
// schedule listings.
type RunCursor struct {
	CreatedAtUnix int64
	ID            string
}

type RunRepository interface {
	Create(ctx context.Context, record *domain.RunRecord) error
	FindByID(ctx context.Context, id string) (*domain.RunRecord, error)
	// ListByUser returns up to limit records for userID older than cursor
	// (nil cursor starts from the most recent), plus the cursor to pass on
	// the next call, or a nil cursor when no further page exists.
	ListByUser(ctx context.Context, userID string, cursor *RunCursor, limit int) ([]*domain.RunRecord, *RunCursor, error)
	// ListLatestPerUser returns the most recent RunRecord for every user
	// that has ever triggered a run — used only by the nightly trigger as
	// the template it re-runs with an advanced start date.
	ListLatestPerUser(ctx context.Context) ([]*domain.RunRecord, error)
}
