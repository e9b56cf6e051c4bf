package server

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sigtrail/sigtrail/pkg/history"
)

var ErrMissingID = errors.New("server: snapshot has no id")

// Store keeps the revisions of every signal, oldest first.
type Store struct {
	mu        sync.RWMutex
	revisions map[string]history.History
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		revisions: map[string]history.History{},
		now:       time.Now,
	}
}

// Append stamps snap with the current time and actor and stores it as the
// newest revision of its signal. Stamps of one signal strictly increase.
func (s *Store) Append(snap history.Snapshot, actor string) (history.Snapshot, error) {
	id := snap.ID()
	if id == "" {
		return history.Snapshot{}, ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.now().UTC()
	if revs := s.revisions[id]; len(revs) > 0 {
		if last := revs[len(revs)-1].LastUpdate(); !at.After(last) {
			at = last.UTC().Add(time.Nanosecond)
		}
	}

	stored := snap.
		With(history.FieldLastUpdate, at.Format(time.RFC3339Nano)).
		With(history.FieldLastUpdateBy, actor)
	s.revisions[id] = append(s.revisions[id], stored)
	return stored, nil
}

// History returns the stored revisions of id. The result is never nil.
func (s *Store) History(id string) history.History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(history.History{}, s.revisions[id]...)
}

// Latest returns the newest revision of every signal, ordered by id.
func (s *Store) Latest() []history.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.revisions))
	for id := range s.revisions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]history.Snapshot, 0, len(ids))
	for _, id := range ids {
		revs := s.revisions[id]
		out = append(out, revs[len(revs)-1])
	}
	return out
}

// Len is the number of signals held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.revisions)
}
