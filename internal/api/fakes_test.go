package api

import (
	"context"
	"time"

	"github.com/apiwatch/apiwatch/internal/domain/alert"
	"github.com/apiwatch/apiwatch/internal/domain/endpoint"
	"github.com/apiwatch/apiwatch/internal/domain/result"
	"github.com/apiwatch/apiwatch/internal/monitor"
	"github.com/apiwatch/apiwatch/internal/repository/postgres"
)

type memEndpoints struct {
	seq  int64
	rows map[int64]*endpoint.Endpoint
}

func newMemEndpoints() *memEndpoints {
	return &memEndpoints{rows: make(map[int64]*endpoint.Endpoint)}
}

func (m *memEndpoints) Create(_ context.Context, e *endpoint.Endpoint) error {
	m.seq++
	e.ID = m.seq
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	m.rows[e.ID] = &cp
	return nil
}

func (m *memEndpoints) GetByID(_ context.Context, id int64) (*endpoint.Endpoint, error) {
	e, ok := m.rows[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEndpoints) List(_ context.Context) ([]*endpoint.Endpoint, error) {
	out := make([]*endpoint.Endpoint, 0, len(m.rows))
	for i := int64(1); i <= m.seq; i++ {
		if e, ok := m.rows[i]; ok {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memEndpoints) ListActive(ctx context.Context) ([]*endpoint.Endpoint, error) {
	all, _ := m.List(ctx)
	out := all[:0]
	for _, e := range all {
		if e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEndpoints) Update(_ context.Context, e *endpoint.Endpoint) error {
	if _, ok := m.rows[e.ID]; !ok {
		return postgres.ErrNotFound
	}
	cp := *e
	m.rows[e.ID] = &cp
	return nil
}

func (m *memEndpoints) Delete(_ context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return postgres.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memResults struct {
	rows []*result.CheckResult
}

func (m *memResults) Insert(_ context.Context, r *result.CheckResult) error {
	cp := *r
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memResults) ListSince(_ context.Context, endpointID int64, since time.Time) ([]*result.CheckResult, error) {
	var out []*result.CheckResult
	for _, r := range m.rows {
		if r.EndpointID == endpointID && !r.Timestamp.Before(since) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memResults) ListRecent(_ context.Context, endpointID int64, limit int) ([]*result.CheckResult, error) {
	var out []*result.CheckResult
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].EndpointID == endpointID {
			cp := *m.rows[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memAlerts struct {
	seq  int64
	rows []*alert.Alert
}

func (m *memAlerts) Create(_ context.Context, a *alert.Alert) error {
	m.seq++
	a.ID = m.seq
	cp := *a
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memAlerts) GetOpen(_ context.Context, endpointID int64, kind alert.Kind) (*alert.Alert, error) {
	for _, x := range m.rows {
		if x.EndpointID == endpointID && x.Kind == kind && !x.Resolved {
			cp := *x
			return &cp, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (m *memAlerts) ListOpen(_ context.Context, endpointID int64) ([]*alert.Alert, error) {
	var out []*alert.Alert
	for _, x := range m.rows {
		if x.EndpointID == endpointID && !x.Resolved {
			cp := *x
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memAlerts) Resolve(_ context.Context, id int64, at time.Time) error {
	for _, x := range m.rows {
		if x.ID == id && !x.Resolved {
			x.Resolved = true
			t := at
			x.ResolvedAt = &t
			return nil
		}
	}
	return postgres.ErrNotFound
}

func (m *memAlerts) MarkNotified(_ context.Context, id int64) error {
	for _, x := range m.rows {
		if x.ID == id {
			x.NotificationSent = true
			return nil
		}
	}
	return postgres.ErrNotFound
}

func (m *memAlerts) List(_ context.Context, resolved bool) ([]*alert.Alert, error) {
	var out []*alert.Alert
	for _, x := range m.rows {
		if x.Resolved == resolved {
			cp := *x
			out = append(out, &cp)
		}
	}
	return out, nil
}

type stubMonitor struct {
	cycleErr error
	cycles   int
	probeRes *result.CheckResult
	probeErr error
}

func (s *stubMonitor) RunCycleOnce(context.Context) error {
	if s.cycleErr != nil {
		return s.cycleErr
	}
	s.cycles++
	return nil
}

func (s *stubMonitor) ProbeNow(context.Context, int64) (*result.CheckResult, error) {
	return s.probeRes, s.probeErr
}

type stubStats struct {
	stats *monitor.Stats
	err   error
}

func (s *stubStats) Stats(context.Context, int64, time.Duration) (*monitor.Stats, error) {
	return s.stats, s.err
}
