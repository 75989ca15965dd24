package result

import (
	"context"
	"time"
)

type Repo interface {
	Insert(ctx context.Context, r *CheckResult) error
	ListSince(ctx context.Context, endpointID int64, since time.Time) ([]*CheckResult, error)
	ListRecent(ctx context.Context, endpointID int64, limit int) ([]*CheckResult, error)
}
