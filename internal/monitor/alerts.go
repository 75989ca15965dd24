package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/apiwatch/apiwatch/internal/domain/alert"
	"github.com/apiwatch/apiwatch/internal/domain/endpoint"
	"github.com/apiwatch/apiwatch/internal/domain/result"
	"github.com/apiwatch/apiwatch/internal/repository/postgres"
)

// AlertEngine decides alert transitions from probe results. It guarantees
// at most one unresolved alert per (endpoint, kind): evaluations of the
// same endpoint are serialized, and every evaluation persists its result
// and alert transitions in one transaction.
type AlertEngine struct {
	log       *zap.Logger
	alerts    alert.Repo
	results   result.Repo
	tx        postgres.Transactor
	notifier  alert.Notifier
	threshold int64 // milliseconds

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewAlertEngine(
	log *zap.Logger,
	alerts alert.Repo,
	results result.Repo,
	tx postgres.Transactor,
	notifier alert.Notifier,
	latencyThresholdMS int64,
) *AlertEngine {
	return &AlertEngine{
		log:       log.With(zap.String("component", "alert-engine")),
		alerts:    alerts,
		results:   results,
		tx:        tx,
		notifier:  notifier,
		threshold: latencyThresholdMS,
		locks:     make(map[int64]*sync.Mutex),
	}
}

func (g *AlertEngine) lockFor(endpointID int64) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[endpointID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[endpointID] = l
	}
	return l
}

// Evaluate persists the result, applies the alert rules atomically, and
// dispatches notifications for the transitions after commit. A persistence
// error aborts the whole evaluation; a notification error does not.
func (g *AlertEngine) Evaluate(ctx context.Context, e *endpoint.Endpoint, res *result.CheckResult) ([]alert.Event, error) {
	l := g.lockFor(e.ID)
	l.Lock()
	defer l.Unlock()

	var events []alert.Event
	err := g.tx.WithTx(ctx, func(txCtx context.Context) error {
		events = nil
		if err := g.results.Insert(txCtx, res); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
		ev, err := g.apply(txCtx, e, res)
		if err != nil {
			return err
		}
		events = ev
		return nil
	})
	if err != nil {
		mEvalErrors.Inc()
		return nil, err
	}

	g.dispatch(ctx, e, events)
	return events, nil
}

func (g *AlertEngine) apply(ctx context.Context, e *endpoint.Endpoint, res *result.CheckResult) ([]alert.Event, error) {
	var events []alert.Event

	if !res.Success {
		ev, err := g.ensureOpen(ctx, e, alert.KindDown, downMessage(res))
		if err != nil {
			return nil, err
		}
		if ev != nil {
			events = append(events, *ev)
		}
	} else if res.ResponseTime > g.threshold {
		msg := fmt.Sprintf("response time %dms exceeds threshold %dms", res.ResponseTime, g.threshold)
		ev, err := g.ensureOpen(ctx, e, alert.KindHighLatency, msg)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}

	// Resolution pass over everything still open, independent of the
	// creation branch above.
	open, err := g.alerts.ListOpen(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("list open alerts: %w", err)
	}
	for _, a := range open {
		var resolve bool
		switch a.Kind {
		case alert.KindDown:
			resolve = res.Success
		case alert.KindHighLatency:
			// Latency compares on its own: a failed result with low
			// latency still closes a latency alert.
			resolve = res.ResponseTime <= g.threshold
		}
		if !resolve {
			continue
		}
		at := time.Now().UTC()
		if err := g.alerts.Resolve(ctx, a.ID, at); err != nil {
			if errors.Is(err, postgres.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve alert: %w", err)
		}
		a.Resolved = true
		a.ResolvedAt = &at
		events = append(events, alert.Event{Type: alert.EventResolved, Alert: a})
	}
	return events, nil
}

// ensureOpen opens an alert of the given kind unless one is already open.
// Re-creating an open alert is a no-op.
func (g *AlertEngine) ensureOpen(ctx context.Context, e *endpoint.Endpoint, kind alert.Kind, msg string) (*alert.Event, error) {
	_, err := g.alerts.GetOpen(ctx, e.ID, kind)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, postgres.ErrNotFound) {
		return nil, fmt.Errorf("get open alert: %w", err)
	}

	a := &alert.Alert{
		EndpointID: e.ID,
		Kind:       kind,
		Message:    msg,
		CreatedAt:  time.Now().UTC(),
	}
	if err := g.alerts.Create(ctx, a); err != nil {
		if errors.Is(err, postgres.ErrConflict) {
			// Lost a race to another evaluation; the invariant held.
			return nil, nil
		}
		return nil, fmt.Errorf("create alert: %w", err)
	}
	g.log.Info("alert opened",
		zap.Int64("endpoint_id", e.ID),
		zap.String("kind", string(kind)),
		zap.String("message", msg),
	)
	return &alert.Event{Type: alert.EventOpened, Alert: a}, nil
}

// dispatch notifies the sink about each transition. Failures are logged and
// swallowed: the committed alert state is the source of truth.
func (g *AlertEngine) dispatch(ctx context.Context, e *endpoint.Endpoint, events []alert.Event) {
	for _, ev := range events {
		switch ev.Type {
		case alert.EventOpened:
			mAlertsOpened.WithLabelValues(string(ev.Alert.Kind)).Inc()
		case alert.EventResolved:
			mAlertsResolved.WithLabelValues(string(ev.Alert.Kind)).Inc()
			g.log.Info("alert resolved",
				zap.Int64("endpoint_id", e.ID),
				zap.String("kind", string(ev.Alert.Kind)),
			)
		}

		if err := g.notifier.Notify(ctx, ev.Type, ev.Alert, e); err != nil {
			mNotifyErrors.Inc()
			g.log.Warn("notify failed",
				zap.Int64("alert_id", ev.Alert.ID),
				zap.String("kind", string(ev.Alert.Kind)),
				zap.Error(err),
			)
			continue
		}
		if ev.Type == alert.EventOpened {
			if err := g.alerts.MarkNotified(ctx, ev.Alert.ID); err != nil {
				g.log.Warn("mark notified", zap.Int64("alert_id", ev.Alert.ID), zap.Error(err))
			} else {
				ev.Alert.NotificationSent = true
			}
		}
	}
}

func downMessage(res *result.CheckResult) string {
	if res.StatusCode > 0 {
		return fmt.Sprintf("endpoint returned status %d", res.StatusCode)
	}
	if res.ErrorMessage != "" {
		return res.ErrorMessage
	}
	return "no response"
}
