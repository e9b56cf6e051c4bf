package history

import (
	"reflect"
	"sort"
)

// IgnoredFields are metadata, never shown as domain content.
var IgnoredFields = []string{FieldID, FieldLastUpdate, FieldLastUpdateBy}

// IsIgnored reports whether name is one of IgnoredFields.
func IsIgnored(name string) bool {
	for _, f := range IgnoredFields {
		if f == name {
			return true
		}
	}
	return false
}

// ChangeSet maps a field name to its new value.
type ChangeSet map[string]any

func (c ChangeSet) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Names returns the changed field names, sorted.
func (c ChangeSet) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entry pairs a snapshot with the baseline it was compared against.
type Entry struct {
	Newer    Snapshot
	Baseline Snapshot
	Changes  ChangeSet
}

// Diff collects every non-ignored field of newer whose value differs from
// the one in baseline. A field the baseline lacks counts as changed.
func Diff(newer, baseline Snapshot) ChangeSet {
	changes := ChangeSet{}
	for _, name := range newer.keys {
		if IsIgnored(name) {
			continue
		}
		value := newer.values[name]
		old, ok := baseline.values[name]
		if !ok || !reflect.DeepEqual(value, old) {
			changes[name] = value
		}
	}
	return changes
}

// BuildChangelog orders h newest-first and diffs each snapshot against its
// chronological predecessor. The oldest snapshot is its own baseline, so its
// ChangeSet is always empty.
func BuildChangelog(h History) []Entry {
	ordered := NewestFirst(h)
	entries := make([]Entry, 0, len(ordered))
	for i, newer := range ordered {
		baseline := newer
		if i < len(ordered)-1 {
			baseline = ordered[i+1]
		}
		entries = append(entries, Entry{
			Newer:    newer,
			Baseline: baseline,
			Changes:  Diff(newer, baseline),
		})
	}
	return entries
}
