// Package diff decides which items of a freshly fetched snapshot are new
// relative to the previously stored one.
package diff

import "feed_notifier/internal/domain"

// NewItems returns the items of fresh whose identity does not appear in
// previous, preserving the relative order of fresh. An empty previous
// snapshot makes every fresh item new: a feed that emptied and later
// refilled notifies again. Seeding a subscription never reaches the
// dispatcher, so the first fetch cannot produce a notification burst.
func NewItems(previous, fresh []domain.Item) []domain.Item {
	if len(fresh) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(previous))
	for _, it := range previous {
		seen[it.Identity()] = struct{}{}
	}

	var added []domain.Item
	for _, it := range fresh {
		if _, ok := seen[it.Identity()]; !ok {
			added = append(added, it)
		}
	}
	return added
}
