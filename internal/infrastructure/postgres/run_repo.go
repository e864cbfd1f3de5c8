package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthplan/scheduler/internal/domain"
	"github.com/healthplan/scheduler/internal/repository"
)

// RunRepository persists RunRecords to the run_records table: id, user_id,
// the JSON-encoded RunRequest and RunResult, and created_at. This is the
// literal "optional dashboard export" JSON object spec.md §6 describes,
// kept around so GET /v1/runs/:id can serve a past run without
// recomputing it.
type RunRepository struct {
	pool *pgxpool.Pool
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

func (r *RunRepository) Create(ctx context.Context, record *domain.RunRecord) error {
	requestJSON, err := json.Marshal(record.Request)
	if err != nil {
		return fmt.Errorf("marshal run request: %w", err)
	}
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}

	query := `
		INSERT INTO run_records (id, user_id, request, result, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, NOW())
		RETURNING id, created_at`

	row := r.pool.QueryRow(ctx, query, record.UserID, requestJSON, resultJSON)
	if err := row.Scan(&record.ID, &record.CreatedAt); err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

func (r *RunRepository) FindByID(ctx context.Context, id string) (*domain.RunRecord, error) {
	query := `SELECT id, user_id, request, result, created_at FROM run_records WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanRunRecord(row)
}

func (r *RunRepository) ListByUser(ctx context.Context, userID string, cursor *repository.RunCursor, limit int) ([]*domain.RunRecord, *repository.RunCursor, error) {
	var rows pgx.Rows
	var err error

	if cursor == nil {
		query := `
			SELECT id, user_id, request, result, created_at FROM run_records
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`
		rows, err = r.pool.Query(ctx, query, userID, limit+1)
	} else {
		query := `
			SELECT id, user_id, request, result, created_at FROM run_records
			WHERE user_id = $1 AND (created_at, id) < (to_timestamp($2), $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4`
		rows, err = r.pool.Query(ctx, query, userID, cursor.CreatedAtUnix, cursor.ID, limit+1)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("list run records: %w", err)
	}
	defer rows.Close()

	var records []*domain.RunRecord
	for rows.Next() {
		rec, err := scanRunRecord(rows)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("list run records: %w", err)
	}

	var next *repository.RunCursor
	if len(records) > limit {
		last := records[limit]
		next = &repository.RunCursor{CreatedAtUnix: last.CreatedAt.Unix(), ID: last.ID}
		records = records[:limit]
	}
	return records, next, nil
}

func (r *RunRepository) ListLatestPerUser(ctx context.Context) ([]*domain.RunRecord, error) {
	query := `
		SELECT DISTINCT ON (user_id) id, user_id, request, result, created_at
		FROM run_records
		ORDER BY user_id, created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list latest run records: %w", err)
	}
	defer rows.Close()

	var records []*domain.RunRecord
	for rows.Next() {
		rec, err := scanRunRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list latest run records: %w", err)
	}
	return records, nil
}

func scanRunRecord(row pgx.Row) (*domain.RunRecord, error) {
	var (
		rec                    domain.RunRecord
		requestJSON, resultJSON []byte
		createdAt              time.Time
	)
	err := row.Scan(&rec.ID, &rec.UserID, &requestJSON, &resultJSON, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("scan run record: %w", err)
	}
	rec.CreatedAt = createdAt

	if err := json.Unmarshal(requestJSON, &rec.Request); err != nil {
		return nil, fmt.Errorf("unmarshal run request: %w", err)
	}
	if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
		return nil, fmt.Errorf("unmarshal run result: %w", err)
	}
	return &rec, nil
}
