//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/apiwatch/apiwatch/internal/domain/alert"
	"github.com/apiwatch/apiwatch/internal/domain/endpoint"
	"github.com/apiwatch/apiwatch/internal/domain/result"
	"github.com/apiwatch/apiwatch/internal/repository/postgres"
)

func setup(t *testing.T) (*postgres.DB, func()) {
	t.Helper()
	cfg := LoadCfg()

	raw := DBOpen(t, cfg.DBDSN)
	Migrate(t, raw, cfg.MigrationsDir)
	Truncate(t, raw)

	db := PGXOpen(t, cfg.DBDSN)
	return db, func() {
		db.Close()
		_ = raw.Close()
	}
}

func seedEndpoint(t *testing.T, repo endpoint.Repo) *endpoint.Endpoint {
	t.Helper()
	e := &endpoint.Endpoint{
		Name:    RandName("it"),
		URL:     "http://svc.local/health",
		Method:  "GET",
		Headers: map[string]string{"X-Token": "secret"},
		Timeout: 10 * time.Second,
		Active:  true,
	}
	if err := repo.Create(context.Background(), e); err != nil {
		t.Fatalf("create endpoint: %v", err)
	}
	return e
}

func TestEndpointRoundTrip(t *testing.T) {
	db, done := setup(t)
	defer done()
	repo := postgres.NewEndpointRepo(db)
	ctx := context.Background()

	e := seedEndpoint(t, repo)
	if e.ID == 0 {
		t.Fatalf("id not assigned")
	}

	got, err := repo.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != e.Name || got.URL != e.URL || got.Timeout != 10*time.Second {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Headers["X-Token"] != "secret" {
		t.Fatalf("headers not preserved: %+v", got.Headers)
	}

	got.Active = false
	got.Timeout = 5 * time.Second
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	active, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	for _, a := range active {
		if a.ID == e.ID {
			t.Fatalf("deactivated endpoint still listed as active")
		}
	}

	if _, err := repo.GetByID(ctx, e.ID+1000); !errors.Is(err, postgres.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	db, done := setup(t)
	defer done()
	cfg := LoadCfg()
	raw := DBOpen(t, cfg.DBDSN)
	defer raw.Close()

	endpoints := postgres.NewEndpointRepo(db)
	results := postgres.NewResultRepo(db)
	alerts := postgres.NewAlertRepo(db)
	ctx := context.Background()

	e := seedEndpoint(t, endpoints)
	if err := results.Insert(ctx, &result.CheckResult{
		EndpointID: e.ID, Timestamp: time.Now().UTC(), ResponseTime: 100, StatusCode: 200, Success: true,
	}); err != nil {
		t.Fatalf("insert result: %v", err)
	}
	if err := alerts.Create(ctx, &alert.Alert{
		EndpointID: e.ID, Kind: alert.KindDown, Message: "endpoint returned status 500", CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	if err := endpoints.Delete(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := CountRows(t, raw, "check_results", e.ID); n != 0 {
		t.Fatalf("results not cascaded: %d left", n)
	}
	if n := CountRows(t, raw, "alerts", e.ID); n != 0 {
		t.Fatalf("alerts not cascaded: %d left", n)
	}
}

func TestOpenAlertUniquePerKind(t *testing.T) {
	db, done := setup(t)
	defer done()
	endpoints := postgres.NewEndpointRepo(db)
	alerts := postgres.NewAlertRepo(db)
	ctx := context.Background()

	e := seedEndpoint(t, endpoints)
	mk := func(kind alert.Kind) error {
		return alerts.Create(ctx, &alert.Alert{
			EndpointID: e.ID, Kind: kind, Message: "m", CreatedAt: time.Now().UTC(),
		})
	}

	if err := mk(alert.KindDown); err != nil {
		t.Fatalf("first down alert: %v", err)
	}
	if err := mk(alert.KindDown); !errors.Is(err, postgres.ErrConflict) {
		t.Fatalf("want ErrConflict on duplicate open alert, got %v", err)
	}
	// A different kind is not blocked.
	if err := mk(alert.KindHighLatency); err != nil {
		t.Fatalf("high latency alert: %v", err)
	}

	// Resolving frees the slot for a new alert of the same kind.
	open, err := alerts.GetOpen(ctx, e.ID, alert.KindDown)
	if err != nil {
		t.Fatalf("get open: %v", err)
	}
	if err := alerts.Resolve(ctx, open.ID, time.Now().UTC()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := mk(alert.KindDown); err != nil {
		t.Fatalf("reopen after resolve: %v", err)
	}
}

func TestTransactorRollsBackOnError(t *testing.T) {
	db, done := setup(t)
	defer done()
	cfg := LoadCfg()
	raw := DBOpen(t, cfg.DBDSN)
	defer raw.Close()

	endpoints := postgres.NewEndpointRepo(db)
	results := postgres.NewResultRepo(db)
	tx := postgres.NewTransactor(db, zap.NewNop())
	ctx := context.Background()

	e := seedEndpoint(t, endpoints)

	boom := errors.New("boom")
	err := tx.WithTx(ctx, func(ctx context.Context) error {
		if err := results.Insert(ctx, &result.CheckResult{
			EndpointID: e.ID, Timestamp: time.Now().UTC(), ResponseTime: 1, StatusCode: 200, Success: true,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped boom, got %v", err)
	}
	if n := CountRows(t, raw, "check_results", e.ID); n != 0 {
		t.Fatalf("insert not rolled back: %d rows", n)
	}
}
