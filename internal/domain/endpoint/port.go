package endpoint

import "context"

type Repo interface {
	Create(ctx context.Context, e *Endpoint) error
	GetByID(ctx context.Context, id int64) (*Endpoint, error)
	List(ctx context.Context) ([]*Endpoint, error)
	ListActive(ctx context.Context) ([]*Endpoint, error)
	Update(ctx context.Context, e *Endpoint) error
	Delete(ctx context.Context, id int64) error
}
