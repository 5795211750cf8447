package service

import (
	"context"

	"finance-hub/internal/data"
)

// Collection is the store surface the services depend on. *data.Table
// satisfies it for every entity.
type Collection[T any] interface {
	List(ctx context.Context, q data.Query) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, row *T) error
	Update(ctx context.Context, id string, fields data.Fields) (*T, error)
	Upsert(ctx context.Context, row *T) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, q data.Query) (int, error)
	Increment(ctx context.Context, id, field string, delta int) error
}

// Dependents is the part of a collection a category delete needs.
type Dependents interface {
	Count(ctx context.Context, q data.Query) (int, error)
	Reassign(ctx context.Context, field, from, to string) (int64, error)
}

// ChangeNotifier is told when public content changes, so derived
// artefacts such as the sitemap can be rebuilt.
type ChangeNotifier interface {
	ContentChanged(ctx context.Context)
}

type noopNotifier struct{}

func (noopNotifier) ContentChanged(context.Context) {}

func notifierOrNoop(n ChangeNotifier) ChangeNotifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// first returns the first row matching q or ErrNotFound.
func first[T any](ctx context.Context, c Collection[T], q data.Query) (*T, error) {
	q.Limit = 1
	rows, err := c.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}
