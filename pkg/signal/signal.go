// Package signal holds the signal entity served by the history endpoint and
// the display helpers used when presenting one.
package signal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sigtrail/sigtrail/pkg/history"
)

// SignalText is the decoded message body of a signal.
type SignalText struct {
	Text            string     `json:"text,omitempty"`
	SubjectCode     string     `json:"subjectCode,omitempty"`
	ObjectLatitude  Coordinate `json:"objectLatitude,omitempty"`
	ObjectLongitude Coordinate `json:"objectLongitude,omitempty"`
}

// Coordinate is a degree value. Backends send it as a JSON string or number.
type Coordinate string

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	r := gjson.ParseBytes(data)
	switch r.Type {
	case gjson.String, gjson.Number:
		*c = Coordinate(r.String())
	case gjson.Null:
		*c = ""
	default:
		return fmt.Errorf("signal: coordinate must be a string or number, got %s", r.Raw)
	}
	return nil
}

// Float returns the value in degrees. Empty or unparsable values read as zero.
func (c Coordinate) Float() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(c)), 64)
	if err != nil {
		return 0
	}
	return f
}

// Signal is one revision of a signal as stored by the backend.
type Signal struct {
	ID           json.RawMessage `json:"id"`
	LastUpdate   string          `json:"lastUpdate,omitempty"`
	LastUpdateBy string          `json:"lastUpdateBy,omitempty"`
	SignalText   *SignalText     `json:"signal_text,omitempty"`
}

// FromSnapshot decodes the typed view of a snapshot. Unknown fields are
// ignored.
func FromSnapshot(s history.Snapshot) (Signal, error) {
	var sig Signal
	raw, err := json.Marshal(s)
	if err != nil {
		return sig, err
	}
	if err := json.Unmarshal(raw, &sig); err != nil {
		return sig, fmt.Errorf("decoding signal: %w", err)
	}
	return sig, nil
}

// IDString renders the id without JSON quoting.
func (s Signal) IDString() string {
	id := strings.TrimSpace(string(s.ID))
	if unq, err := strconv.Unquote(id); err == nil {
		return unq
	}
	return id
}

// Title is the first heading line: the signal's free text.
func (s Signal) Title() string {
	if s.SignalText == nil {
		return ""
	}
	return s.SignalText.Text
}

// Subtitle is the second heading line, "Infrastructure · <subject>".
func (s Signal) Subtitle() string {
	code := ""
	if s.SignalText != nil {
		code = s.SignalText.SubjectCode
	}
	return "Infrastructure · " + SubjectLabel(code)
}

// Coordinates returns the object position. Missing or unparsable values
// read as zero.
func (s Signal) Coordinates() (lat, lon float64) {
	if s.SignalText == nil {
		return 0, 0
	}
	return s.SignalText.ObjectLatitude.Float(), s.SignalText.ObjectLongitude.Float()
}

// FormatCoordinates prints a position with eight decimals.
func FormatCoordinates(lat, lon float64) string {
	return fmt.Sprintf("%.8f, %.8f", lat, lon)
}
