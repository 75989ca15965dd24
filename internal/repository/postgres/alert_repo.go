package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/apiwatch/apiwatch/internal/domain/alert"
)

var _ alert.Repo = (*AlertRepoImpl)(nil)

type AlertRepoImpl struct{ db *DB }

func NewAlertRepo(db *DB) *AlertRepoImpl { return &AlertRepoImpl{db: db} }

const (
	qAlertInsert = `
INSERT INTO alerts (endpoint_id, kind, message, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id;
`

	qAlertGetOpen = `
SELECT id, endpoint_id, kind, message, created_at, resolved, resolved_at, notification_sent
FROM alerts
WHERE endpoint_id = $1 AND kind = $2 AND resolved = FALSE;
`

	qAlertListOpen = `
SELECT id, endpoint_id, kind, message, created_at, resolved, resolved_at, notification_sent
FROM alerts
WHERE endpoint_id = $1 AND resolved = FALSE
ORDER BY created_at;
`

	qAlertResolve = `
UPDATE alerts
SET resolved = TRUE, resolved_at = $2
WHERE id = $1 AND resolved = FALSE;
`

	qAlertMarkNotified = `UPDATE alerts SET notification_sent = TRUE WHERE id = $1;`

	qAlertList = `
SELECT id, endpoint_id, kind, message, created_at, resolved, resolved_at, notification_sent
FROM alerts
WHERE resolved = $1
ORDER BY created_at DESC;
`
)

func scanAlert(row pgx.Row, a *alert.Alert) error {
	if err := row.Scan(
		&a.ID,
		&a.EndpointID,
		&a.Kind,
		&a.Message,
		&a.CreatedAt,
		&a.Resolved,
		&a.ResolvedAt,
		&a.NotificationSent,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan alert: %w", err)
	}
	return nil
}

// Create inserts an unresolved alert. The partial unique index on
// (endpoint_id, kind) WHERE NOT resolved turns a duplicate open alert into
// ErrConflict.
func (r *AlertRepoImpl) Create(ctx context.Context, a *alert.Alert) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	err := eq.QueryRow(ctx, qAlertInsert, a.EndpointID, a.Kind, a.Message, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *AlertRepoImpl) GetOpen(ctx context.Context, endpointID int64, kind alert.Kind) (*alert.Alert, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	var a alert.Alert
	if err := scanAlert(eq.QueryRow(ctx, qAlertGetOpen, endpointID, kind), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AlertRepoImpl) ListOpen(ctx context.Context, endpointID int64) ([]*alert.Alert, error) {
	return r.query(ctx, qAlertListOpen, endpointID)
}

func (r *AlertRepoImpl) Resolve(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	cmd, err := eq.Exec(ctx, qAlertResolve, id, at)
	if err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AlertRepoImpl) MarkNotified(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	if _, err := eq.Exec(ctx, qAlertMarkNotified, id); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

func (r *AlertRepoImpl) List(ctx context.Context, resolved bool) ([]*alert.Alert, error) {
	return r.query(ctx, qAlertList, resolved)
}

func (r *AlertRepoImpl) query(ctx context.Context, q string, args ...any) ([]*alert.Alert, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	rows, err := eq.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []*alert.Alert
	for rows.Next() {
		var a alert.Alert
		if err := scanAlert(rows, &a); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
