package history

import (
	"encoding/json"
	"strconv"
	"time"
	"unicode"
	"unicode/utf8"
)

// HeadingLayout renders as "3 June 2024, 14:05".
const HeadingLayout = "2 January 2006, 15:04"

// RenderedField is one labelled value of a changelog entry.
type RenderedField struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Value   string `json:"value"`
	Changed bool   `json:"changed"`
}

// RenderedEntry is the display unit of one changelog entry.
type RenderedEntry struct {
	Heading string          `json:"heading"`
	Author  string          `json:"author"`
	Fields  []RenderedField `json:"fields"`
}

// Render builds the display unit for e. Timestamps are shown in loc, or in
// their own zone when loc is nil.
func Render(e Entry, loc *time.Location) RenderedEntry {
	out := RenderedEntry{
		Heading: FormatHeading(e.Newer, loc),
		Author:  e.Newer.LastUpdateBy(),
		Fields:  make([]RenderedField, 0, e.Newer.Len()),
	}
	for _, name := range e.Newer.keys {
		if IsIgnored(name) {
			continue
		}
		out.Fields = append(out.Fields, RenderedField{
			Name:    name,
			Label:   Capitalize(name),
			Value:   FormatValue(e.Newer.values[name]),
			Changed: e.Changes.Has(name),
		})
	}
	return out
}

func RenderChangelog(entries []Entry, loc *time.Location) []RenderedEntry {
	out := make([]RenderedEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Render(e, loc))
	}
	return out
}

// FormatHeading formats the snapshot's lastUpdate with HeadingLayout in
// loc. A timestamp without an offset is shown with the clock time it was
// sent with; an unparseable one is shown as received.
func FormatHeading(s Snapshot, loc *time.Location) string {
	raw := s.LastUpdateRaw()
	t, ok := parseTimestamp(raw, loc)
	if !ok {
		return raw
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(HeadingLayout)
}

// Capitalize upper-cases the first character of name.
func Capitalize(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// FormatValue turns a decoded JSON value into display text.
func FormatValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case json.Number:
		return typed.String()
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
