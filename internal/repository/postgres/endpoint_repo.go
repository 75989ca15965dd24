package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/apiwatch/apiwatch/internal/domain/endpoint"
)

var _ endpoint.Repo = (*EndpointRepoImpl)(nil)

type EndpointRepoImpl struct {
	db *DB
}

func NewEndpointRepo(db *DB) *EndpointRepoImpl { return &EndpointRepoImpl{db: db} }

const (
	qEndpointInsert = `
INSERT INTO endpoints (name, url, method, headers, timeout_sec, active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, name, url, method, headers, timeout_sec, active, created_at, updated_at;
`

	qEndpointGet = `
SELECT id, name, url, method, headers, timeout_sec, active, created_at, updated_at
FROM endpoints
WHERE id = $1;
`

	qEndpointList = `
SELECT id, name, url, method, headers, timeout_sec, active, created_at, updated_at
FROM endpoints
ORDER BY id;
`

	qEndpointListActive = `
SELECT id, name, url, method, headers, timeout_sec, active, created_at, updated_at
FROM endpoints
WHERE active = TRUE
ORDER BY id;
`

	qEndpointUpdate = `
UPDATE endpoints
SET name = $2, url = $3, method = $4, headers = $5, timeout_sec = $6, active = $7, updated_at = NOW()
WHERE id = $1;
`

	qEndpointDelete = `DELETE FROM endpoints WHERE id = $1;`
)

func scanEndpoint(row pgx.Row, e *endpoint.Endpoint) error {
	var timeoutSec int
	if err := row.Scan(
		&e.ID,
		&e.Name,
		&e.URL,
		&e.Method,
		&e.Headers,
		&timeoutSec,
		&e.Active,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan endpoint: %w", err)
	}
	e.Timeout = time.Duration(timeoutSec) * time.Second
	return nil
}

func (r *EndpointRepoImpl) Create(ctx context.Context, e *endpoint.Endpoint) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	timeoutSec := int(e.Timeout / time.Second)
	row := r.db.Pool.QueryRow(ctx, qEndpointInsert,
		e.Name, e.URL, e.Method, e.Headers, timeoutSec, e.Active)
	return scanEndpoint(row, e)
}

func (r *EndpointRepoImpl) GetByID(ctx context.Context, id int64) (*endpoint.Endpoint, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var e endpoint.Endpoint
	if err := scanEndpoint(r.db.Pool.QueryRow(ctx, qEndpointGet, id), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EndpointRepoImpl) List(ctx context.Context) ([]*endpoint.Endpoint, error) {
	return r.list(ctx, qEndpointList)
}

func (r *EndpointRepoImpl) ListActive(ctx context.Context) ([]*endpoint.Endpoint, error) {
	return r.list(ctx, qEndpointListActive)
}

func (r *EndpointRepoImpl) list(ctx context.Context, query string) ([]*endpoint.Endpoint, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query endpoints: %w", err)
	}
	defer rows.Close()

	var out []*endpoint.Endpoint
	for rows.Next() {
		var e endpoint.Endpoint
		if err := scanEndpoint(rows, &e); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *EndpointRepoImpl) Update(ctx context.Context, e *endpoint.Endpoint) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	timeoutSec := int(e.Timeout / time.Second)
	cmd, err := r.db.Pool.Exec(ctx, qEndpointUpdate,
		e.ID, e.Name, e.URL, e.Method, e.Headers, timeoutSec, e.Active)
	if err != nil {
		return fmt.Errorf("update endpoint: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the endpoint; results and alerts go with it via
// ON DELETE CASCADE.
func (r *EndpointRepoImpl) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qEndpointDelete, id)
	if err != nil {
		return fmt.Errorf("delete endpoint: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
