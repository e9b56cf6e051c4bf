package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sigtrail/sigtrail/pkg/history"
	"github.com/sigtrail/sigtrail/pkg/signal"
)

const noHistory = "No update history"

// changelogView is the json output of the history command.
type changelogView struct {
	ID          string                  `json:"id"`
	Title       string                  `json:"title"`
	Subtitle    string                  `json:"subtitle"`
	Coordinates string                  `json:"coordinates"`
	Position    string                  `json:"position,omitempty"`
	Entries     []history.RenderedEntry `json:"entries"`
}

// observer is the point distances are measured from.
type observer struct {
	Lat, Lon float64
}

// parseObserver reads "lat,lon".
func parseObserver(v string) (*observer, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid position %q: expected lat,lon", v)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("invalid latitude %q", parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("invalid longitude %q", parts[1])
	}
	return &observer{Lat: lat, Lon: lon}, nil
}

// formatPosition renders "12.34 km · 87° E" from o to the given point.
func formatPosition(o observer, lat, lon float64) string {
	bearing := signal.Bearing(o.Lat, o.Lon, lat, lon)
	return fmt.Sprintf("%.2f km · %.0f° %s",
		signal.Distance(o.Lat, o.Lon, lat, lon), bearing, signal.CompassDirection(bearing))
}

// buildChangelogView renders h. from may be nil.
func buildChangelogView(h history.History, loc *time.Location, from *observer) changelogView {
	view := changelogView{Entries: history.RenderChangelog(history.BuildChangelog(h), loc)}
	newest := history.NewestFirst(h)
	if len(newest) == 0 {
		return view
	}
	sig, err := signal.FromSnapshot(newest[0])
	if err != nil {
		view.ID = newest[0].ID()
		return view
	}
	lat, lon := sig.Coordinates()
	view.ID = sig.IDString()
	view.Title = sig.Title()
	view.Subtitle = sig.Subtitle()
	view.Coordinates = signal.FormatCoordinates(lat, lon)
	if from != nil {
		view.Position = formatPosition(*from, lat, lon)
	}
	return view
}

func writeChangelogText(w io.Writer, view changelogView) {
	if view.Title != "" {
		fmt.Fprintln(w, view.Title)
	}
	if view.Subtitle != "" {
		fmt.Fprintln(w, view.Subtitle)
	}
	if view.Position != "" {
		fmt.Fprintln(w, view.Position)
	}
	if view.Coordinates != "" {
		fmt.Fprintln(w, view.Coordinates)
	}
	if view.Title != "" || view.Subtitle != "" || view.Coordinates != "" {
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Update history")
	if len(view.Entries) == 0 {
		fmt.Fprintln(w, noHistory)
		return
	}
	for _, e := range view.Entries {
		fmt.Fprintln(w)
		writeEntry(w, e)
	}
}

// writeEntry prints a heading line and one line per field. Changed fields
// are marked with "*".
func writeEntry(w io.Writer, e history.RenderedEntry) {
	heading := e.Heading
	if e.Author != "" {
		heading += " · " + e.Author
	}
	fmt.Fprintln(w, heading)
	for _, f := range e.Fields {
		marker := " "
		if f.Changed {
			marker = "*"
		}
		fmt.Fprintf(w, "  %s %s: %s\n", marker, f.Label, f.Value)
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeSignalTable prints one line per snapshot.
func writeSignalTable(w io.Writer, snaps []history.Snapshot, loc *time.Location) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUPDATED\tBY\tSUBJECT\tTEXT")
	for _, s := range snaps {
		var subject, text string
		if sig, err := signal.FromSnapshot(s); err == nil && sig.SignalText != nil {
			subject = signal.SubjectLabel(sig.SignalText.SubjectCode)
			text = sig.Title()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID(), history.FormatHeading(s, loc), s.LastUpdateBy(), subject, text)
	}
	tw.Flush()
}
