package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/sigtrail/sigtrail/pkg/history"
)

func mustSnapshot(t *testing.T, raw string) history.Snapshot {
	t.Helper()
	s, err := history.ParseSnapshot([]byte(raw))
	require.NoError(t, err)
	return s
}

func bridgeHistory(t *testing.T) history.History {
	return history.History{
		mustSnapshot(t, `{"id":1,"lastUpdate":"2023-05-02T10:04:00Z","lastUpdateBy":"ops","status":"active","signal_text":{"text":"Bridge","subjectCode":"20","objectLatitude":"1.5","objectLongitude":"2"}}`),
		mustSnapshot(t, `{"id":1,"lastUpdate":"2023-05-03T08:00:00Z","lastUpdateBy":"desk","status":"closed","signal_text":{"text":"Bridge","subjectCode":"20","objectLatitude":"1.5","objectLongitude":"2"}}`),
	}
}

func TestWriteChangelogText(t *testing.T) {
	view := buildChangelogView(bridgeHistory(t), time.UTC, nil)

	var buf bytes.Buffer
	writeChangelogText(&buf, view)
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Bridge\nInfrastructure · Bridge\n1.50000000, 2.00000000\n\nUpdate history\n"), out)
	assert.Contains(t, out, "3 May 2023, 08:00 · desk\n  * Status: closed\n")
	assert.Contains(t, out, "2 May 2023, 10:04 · ops\n    Status: active\n")
	assert.Less(t, strings.Index(out, "3 May 2023"), strings.Index(out, "2 May 2023"))
	assert.NotContains(t, out, "LastUpdate")
	assert.NotContains(t, out, "Id:")
}

func TestWriteChangelogTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	writeChangelogText(&buf, buildChangelogView(nil, time.UTC, nil))
	assert.Equal(t, "Update history\n"+noHistory+"\n", buf.String())
}

func TestChangelogViewJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, buildChangelogView(bridgeHistory(t), time.UTC, nil)))

	out := buf.String()
	assert.Equal(t, "1", gjson.Get(out, "id").String())
	assert.Equal(t, "Infrastructure · Bridge", gjson.Get(out, "subtitle").String())
	assert.Equal(t, int64(2), gjson.Get(out, "entries.#").Int())
	assert.Equal(t, "desk", gjson.Get(out, "entries.0.author").String())
	assert.True(t, gjson.Get(out, `entries.0.fields.#(name=="status").changed`).Bool())
	assert.False(t, gjson.Get(out, `entries.1.fields.#(name=="status").changed`).Bool())
}

func TestWriteSignalTable(t *testing.T) {
	var buf bytes.Buffer
	writeSignalTable(&buf, bridgeHistory(t)[1:], time.UTC)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "3 May 2023, 08:00")
	assert.Contains(t, lines[1], "desk")
	assert.Contains(t, lines[1], "Bridge")
}

func TestNormalizeAddress(t *testing.T) {
	got, err := normalizeAddress(" https://signals.example.org/ ")
	require.NoError(t, err)
	assert.Equal(t, "https://signals.example.org", got)

	for _, bad := range []string{"", "signals.example.org", "ftp://x.org", "http://"} {
		_, err := normalizeAddress(bad)
		assert.Error(t, err, bad)
	}
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "(none)", maskToken(""))
	assert.Equal(t, "********", maskToken("short"))
	assert.Equal(t, "abcd…wxyz", maskToken("abcdefghijklmnopqrstuvwxyz"))
}

func TestChangelogViewPosition(t *testing.T) {
	from, err := parseObserver("0.5, 2")
	require.NoError(t, err)

	view := buildChangelogView(bridgeHistory(t), time.UTC, from)
	assert.Equal(t, "111.19 km · 0° N", view.Position)

	var buf bytes.Buffer
	writeChangelogText(&buf, view)
	assert.Contains(t, buf.String(), "Infrastructure · Bridge\n111.19 km · 0° N\n1.50000000, 2.00000000\n")
}

func TestParseObserver(t *testing.T) {
	o, err := parseObserver("52.1,-4.25")
	require.NoError(t, err)
	assert.Equal(t, observer{Lat: 52.1, Lon: -4.25}, *o)

	for _, bad := range []string{"52.1", "a,b", "91,0", "0,181", "1,2,3"} {
		_, err := parseObserver(bad)
		assert.Error(t, err, bad)
	}
}
