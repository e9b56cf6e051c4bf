// Package history orders the snapshots of a versioned entity and turns them
// into an annotated changelog.
package history

import (
	"errors"
	"sort"
)

// ErrMixedIDs is reported when a history holds snapshots of different entities.
var ErrMixedIDs = errors.New("history: snapshots do not share the same id")

// History is an unordered collection of snapshots of one entity.
type History []Snapshot

// Validate checks that all snapshots share the same id.
func (h History) Validate() error {
	if len(h) == 0 {
		return nil
	}
	id := h[0].ID()
	for _, s := range h[1:] {
		if s.ID() != id {
			return ErrMixedIDs
		}
	}
	return nil
}

// NewestFirst returns a copy of h sorted by lastUpdate, most recent first.
// Snapshots with equal timestamps keep their input order.
func NewestFirst(h History) History {
	out := make(History, len(h))
	copy(out, h)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdate().After(out[j].LastUpdate())
	})
	return out
}
