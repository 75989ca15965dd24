package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/apiwatch/apiwatch/internal/domain/alert"
	"github.com/apiwatch/apiwatch/internal/domain/endpoint"
	"github.com/apiwatch/apiwatch/internal/domain/result"
	"github.com/apiwatch/apiwatch/internal/repository/postgres"
)

// In-memory fakes mirroring the postgres repos, including the partial
// unique index behavior on open alerts.

type fakeTransactor struct{}

func (fakeTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeEndpointRepo struct {
	mu   sync.Mutex
	seq  int64
	rows map[int64]*endpoint.Endpoint
}

func newFakeEndpointRepo() *fakeEndpointRepo {
	return &fakeEndpointRepo{rows: make(map[int64]*endpoint.Endpoint)}
}

func (f *fakeEndpointRepo) Create(_ context.Context, e *endpoint.Endpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	e.ID = f.seq
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	f.rows[e.ID] = &cp
	return nil
}

func (f *fakeEndpointRepo) GetByID(_ context.Context, id int64) (*endpoint.Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEndpointRepo) List(_ context.Context) ([]*endpoint.Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*endpoint.Endpoint, 0, len(f.rows))
	for i := int64(1); i <= f.seq; i++ {
		if e, ok := f.rows[i]; ok {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeEndpointRepo) ListActive(ctx context.Context) ([]*endpoint.Endpoint, error) {
	all, _ := f.List(ctx)
	out := all[:0]
	for _, e := range all {
		if e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEndpointRepo) Update(_ context.Context, e *endpoint.Endpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[e.ID]; !ok {
		return postgres.ErrNotFound
	}
	cp := *e
	f.rows[e.ID] = &cp
	return nil
}

func (f *fakeEndpointRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return postgres.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeResultRepo struct {
	mu        sync.Mutex
	seq       int64
	rows      []*result.CheckResult
	insertErr error
}

func newFakeResultRepo() *fakeResultRepo { return &fakeResultRepo{} }

func (f *fakeResultRepo) Insert(_ context.Context, r *result.CheckResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.seq++
	r.ID = f.seq
	cp := *r
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeResultRepo) ListSince(_ context.Context, endpointID int64, since time.Time) ([]*result.CheckResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*result.CheckResult
	for _, r := range f.rows {
		if r.EndpointID == endpointID && !r.Timestamp.Before(since) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeResultRepo) ListRecent(_ context.Context, endpointID int64, limit int) ([]*result.CheckResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*result.CheckResult
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if f.rows[i].EndpointID == endpointID {
			cp := *f.rows[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeResultRepo) count(endpointID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.rows {
		if r.EndpointID == endpointID {
			n++
		}
	}
	return n
}

type fakeAlertRepo struct {
	mu   sync.Mutex
	seq  int64
	rows []*alert.Alert
}

func newFakeAlertRepo() *fakeAlertRepo { return &fakeAlertRepo{} }

func (f *fakeAlertRepo) Create(_ context.Context, a *alert.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.rows {
		if x.EndpointID == a.EndpointID && x.Kind == a.Kind && !x.Resolved {
			return postgres.ErrConflict
		}
	}
	f.seq++
	a.ID = f.seq
	cp := *a
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeAlertRepo) GetOpen(_ context.Context, endpointID int64, kind alert.Kind) (*alert.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.rows {
		if x.EndpointID == endpointID && x.Kind == kind && !x.Resolved {
			cp := *x
			return &cp, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (f *fakeAlertRepo) ListOpen(_ context.Context, endpointID int64) ([]*alert.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*alert.Alert
	for _, x := range f.rows {
		if x.EndpointID == endpointID && !x.Resolved {
			cp := *x
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAlertRepo) Resolve(_ context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.rows {
		if x.ID == id && !x.Resolved {
			x.Resolved = true
			t := at
			x.ResolvedAt = &t
			return nil
		}
	}
	return postgres.ErrNotFound
}

func (f *fakeAlertRepo) MarkNotified(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.rows {
		if x.ID == id {
			x.NotificationSent = true
			return nil
		}
	}
	return postgres.ErrNotFound
}

func (f *fakeAlertRepo) List(_ context.Context, resolved bool) ([]*alert.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*alert.Alert
	for _, x := range f.rows {
		if x.Resolved == resolved {
			cp := *x
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAlertRepo) openCount(endpointID int64, kind alert.Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, x := range f.rows {
		if x.EndpointID == endpointID && x.Kind == kind && !x.Resolved {
			n++
		}
	}
	return n
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []alert.Event
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, ev alert.EventType, a *alert.Alert, _ *endpoint.Endpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.calls = append(f.calls, alert.Event{Type: ev, Alert: &cp})
	return f.err
}

func (f *fakeNotifier) events() []alert.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]alert.Event(nil), f.calls...)
}
