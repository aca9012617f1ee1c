package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"feed_notifier/internal/domain"
)

func items(guids ...string) []domain.Item {
	out := make([]domain.Item, len(guids))
	for i, g := range guids {
		out[i] = domain.Item{GUID: g, Title: "item " + g, Link: "https://example.com/" + g}
	}
	return out
}

func guids(items []domain.Item) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.GUID)
	}
	return out
}

func TestNewItems(t *testing.T) {
	tests := []struct {
		name     string
		previous []domain.Item
		fresh    []domain.Item
		want     []string
	}{
		{
			name:     "new items keep fresh order",
			previous: items("A", "B"),
			fresh:    items("C", "A", "D"),
			want:     []string{"C", "D"},
		},
		{
			name:     "identical snapshots",
			previous: items("A", "B"),
			fresh:    items("A", "B"),
			want:     nil,
		},
		{
			name:     "empty previous snapshot makes every item new",
			previous: nil,
			fresh:    items("A", "B", "C"),
			want:     []string{"A", "B", "C"},
		},
		{
			name:     "emptied then refilled feed notifies again",
			previous: []domain.Item{},
			fresh:    items("X", "Y"),
			want:     []string{"X", "Y"},
		},
		{
			name:     "empty fresh snapshot yields nothing",
			previous: items("A", "B"),
			fresh:    nil,
			want:     nil,
		},
		{
			name:     "rotated window",
			previous: items("1", "2", "3"),
			fresh:    items("0", "1", "2", "3"),
			want:     []string{"0"},
		},
		{
			name:     "all fresh items new",
			previous: items("X"),
			fresh:    items("A", "B"),
			want:     []string{"A", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewItems(tt.previous, tt.fresh)
			assert.Equal(t, tt.want, guids(got))
		})
	}
}

func TestNewItems_LinkFallbackIdentity(t *testing.T) {
	previous := []domain.Item{
		{Link: "https://example.com/a"},
		{GUID: "b", Link: "https://example.com/b"},
	}
	fresh := []domain.Item{
		{Link: "https://example.com/a"},                // identical by link
		{Link: "https://example.com/c"},                // new by link
		{GUID: "b", Link: "https://example.com/moved"}, // guid wins over a changed link
	}

	got := NewItems(previous, fresh)
	assert.Len(t, got, 1)
	assert.Equal(t, "https://example.com/c", got[0].Link)
}
