package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/apiwatch/apiwatch/internal/domain/result"
)

var _ result.Repo = (*ResultRepoImpl)(nil)

type ResultRepoImpl struct{ db *DB }

func NewResultRepo(db *DB) *ResultRepoImpl { return &ResultRepoImpl{db: db} }

const (
	qResultInsert = `
INSERT INTO check_results (endpoint_id, ts, response_time_ms, status_code, success, error_message, response_size)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id;
`

	qResultsSince = `
SELECT id, endpoint_id, ts, response_time_ms, status_code, success, error_message, response_size
FROM check_results
WHERE endpoint_id = $1 AND ts >= $2
ORDER BY ts;
`

	qResultsRecent = `
SELECT id, endpoint_id, ts, response_time_ms, status_code, success, error_message, response_size
FROM check_results
WHERE endpoint_id = $1
ORDER BY ts DESC
LIMIT $2;
`
)

func (r *ResultRepoImpl) Insert(ctx context.Context, cr *result.CheckResult) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	return eq.QueryRow(ctx, qResultInsert,
		cr.EndpointID, cr.Timestamp, cr.ResponseTime, cr.StatusCode,
		cr.Success, cr.ErrorMessage, cr.ResponseSize,
	).Scan(&cr.ID)
}

func (r *ResultRepoImpl) ListSince(ctx context.Context, endpointID int64, since time.Time) ([]*result.CheckResult, error) {
	return r.query(ctx, qResultsSince, endpointID, since)
}

func (r *ResultRepoImpl) ListRecent(ctx context.Context, endpointID int64, limit int) ([]*result.CheckResult, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.query(ctx, qResultsRecent, endpointID, limit)
}

func (r *ResultRepoImpl) query(ctx context.Context, q string, args ...any) ([]*result.CheckResult, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []*result.CheckResult
	for rows.Next() {
		var cr result.CheckResult
		if err := rows.Scan(
			&cr.ID, &cr.EndpointID, &cr.Timestamp, &cr.ResponseTime,
			&cr.StatusCode, &cr.Success, &cr.ErrorMessage, &cr.ResponseSize,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, &cr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
