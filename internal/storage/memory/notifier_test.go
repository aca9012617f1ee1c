package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feed_notifier/internal/domain"
)

func sample(id int64) *domain.Notifier {
	return &domain.Notifier{
		ID:       id,
		RSS:      "https://example.com/feed.xml",
		Title:    "Example",
		Interval: 60000,
		Status:   domain.StatusRunning,
		Items: []domain.Item{
			{GUID: "a", Title: "A"},
			{GUID: "b", Title: "B"},
		},
		LastUpdated: time.Now().UTC(),
	}
}

func TestGetUnknownID(t *testing.T) {
	s := NewNotifierStore()
	_, err := s.Get(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewNotifierStore()

	require.NoError(t, s.Upsert(ctx, sample(1)))

	got, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Example", got.Title)
	assert.Len(t, got.Items, 2)
}

func TestUpsertReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	s := NewNotifierStore()

	require.NoError(t, s.Upsert(ctx, sample(1)))

	updated := sample(1)
	updated.Title = "Renamed"
	updated.Items = []domain.Item{{GUID: "c", Title: "C"}}
	require.NoError(t, s.Upsert(ctx, updated))

	got, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "c", got.Items[0].GUID)
}

func TestReadsAreIsolatedFromCallerMutation(t *testing.T) {
	ctx := context.Background()
	s := NewNotifierStore()

	n := sample(1)
	require.NoError(t, s.Upsert(ctx, n))

	// Mutating the caller's copy must not leak into the store.
	n.Items[0].Title = "mutated"

	got, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Items[0].Title)

	// Nor may mutating a returned copy.
	got.Items[1].Title = "mutated"
	again, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "B", again.Items[1].Title)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := NewNotifierStore()

	require.NoError(t, s.Upsert(ctx, sample(1)))
	require.NoError(t, s.Remove(ctx, 1))

	_, err := s.Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Remove(ctx, 1), domain.ErrNotFound)
}

func TestListOrderedByID(t *testing.T) {
	ctx := context.Background()
	s := NewNotifierStore()

	require.NoError(t, s.Upsert(ctx, sample(3)))
	require.NoError(t, s.Upsert(ctx, sample(1)))
	require.NoError(t, s.Upsert(ctx, sample(2)))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{all[0].ID, all[1].ID, all[2].ID})
}
