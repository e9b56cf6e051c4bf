package server

import (
	"time"

	"github.com/sigtrail/sigtrail/pkg/history"
)

// SeedDemo loads a few signals with a short revision history each. Revision
// times are spread over the hours before the current time.
func (s *Store) SeedDemo() {
	base := s.now().UTC().Add(-6 * time.Hour)

	demo := []struct {
		id    int
		steps []history.Snapshot
	}{
		{1, []history.Snapshot{
			signalText(1, "Bridge closed to traffic", "20", "52.09073700", "5.12142300", "active"),
			signalText(1, "Bridge closed to traffic", "20", "52.09073700", "5.12142300", "confirmed"),
			signalText(1, "Bridge partially reopened", "20", "52.09073700", "5.12142300", "confirmed"),
		}},
		{2, []history.Snapshot{
			signalText(2, "Field hospital", "11", "51.92250000", "4.47917000", "active"),
			signalText(2, "Field hospital", "11", "51.92310000", "4.47990000", "active"),
		}},
		{3, []history.Snapshot{
			signalText(3, "Water point", "40", "52.37021700", "4.89516800", "active"),
		}},
	}

	actors := []string{"field-team", "ops-desk", "coordinator"}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range demo {
		for i, step := range d.steps {
			at := base.Add(time.Duration(d.id*10+i*90) * time.Minute)
			rev := step.
				With(history.FieldLastUpdate, at.Format(time.RFC3339)).
				With(history.FieldLastUpdateBy, actors[i%len(actors)])
			id := rev.ID()
			s.revisions[id] = append(s.revisions[id], rev)
		}
	}
}

func signalText(id int, text, subject, lat, lon, status string) history.Snapshot {
	return history.NewSnapshot(
		history.Field{Name: history.FieldID, Value: float64(id)},
		history.Field{Name: history.FieldLastUpdate, Value: ""},
		history.Field{Name: history.FieldLastUpdateBy, Value: ""},
		history.Field{Name: "status", Value: status},
		history.Field{Name: "signal_text", Value: map[string]any{
			"text":            text,
			"subjectCode":     subject,
			"objectLatitude":  lat,
			"objectLongitude": lon,
		}},
	)
}
