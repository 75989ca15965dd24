package alert

import (
	"context"
	"time"

	"github.com/apiwatch/apiwatch/internal/domain/endpoint"
)

type Repo interface {
	Create(ctx context.Context, a *Alert) error
	GetOpen(ctx context.Context, endpointID int64, kind Kind) (*Alert, error)
	ListOpen(ctx context.Context, endpointID int64) ([]*Alert, error)
	Resolve(ctx context.Context, id int64, at time.Time) error
	MarkNotified(ctx context.Context, id int64) error
	List(ctx context.Context, resolved bool) ([]*Alert, error)
}

// Notifier is the notification sink. Failures are logged by callers and
// never roll back the alert transition that triggered them.
type Notifier interface {
	Notify(ctx context.Context, ev EventType, a *Alert, e *endpoint.Endpoint) error
}
