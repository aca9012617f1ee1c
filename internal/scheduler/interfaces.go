package scheduler

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"feed_notifier/internal/domain"
)

// Fetcher retrieves and parses a feed document. It keeps no state and
// performs no retries of its own.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*domain.Feed, error)
}

// NotifierStore is the single source of truth for subscription records.
// Upsert replaces a record's mutable fields atomically relative to reads.
type NotifierStore interface {
	Get(ctx context.Context, id int64) (*domain.Notifier, error)
	Upsert(ctx context.Context, n *domain.Notifier) error
	Remove(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Notifier, error)
}

// Dispatcher hands a single new item to the host notification channel,
// one call per item, in the order the diff produced them.
type Dispatcher interface {
	Notify(ctx context.Context, feed *domain.Notifier, item domain.Item) error
}
