package ics

import (
	"bytes"
	"strings"
	"testing"

	"cloudeng.io/datetime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annualcal/internal/catalog"
)

func TestParseDocumentRoundTrip(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	e := NewEmitter(cat, WithClock(fixedClock))

	var buf bytes.Buffer
	require.NoError(t, e.Write(&buf))

	events, err := ParseDocument(&buf)
	require.NoError(t, err)
	require.Len(t, events, 20*cat.Len())

	occ, err := Expand(cat, e.Window(fixedNow))
	require.NoError(t, err)
	for i, ev := range events {
		assert.Equal(t, occ[i].UID, ev.UID)
		assert.Equal(t, occ[i].Summary, ev.Summary)
		assert.Equal(t, occ[i].Date, ev.Start)
		assert.Equal(t, 0, ev.Sequence)
	}
}

func TestParseDocumentSkipsBrokenEvents(t *testing.T) {
	doc := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"SUMMARY:No UID",
		"DTSTART:20240101",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:bad-date",
		"DTSTART:2024-01-01",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:timed",
		"SUMMARY:Timed",
		"DTSTART:20240315T090000Z",
		"SEQUENCE:3",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")
	events, err := ParseDocument(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "timed", events[0].UID)
	assert.Equal(t, 3, events[0].Sequence)
	assert.Equal(t, datetime.NewCalendarDate(2024, 3, 15), events[0].Start)
}

func TestCompare(t *testing.T) {
	cat := mustParse(t, "A: FixedDate,June,1\nB: FixedDate,June,2\n")
	win := Window{From: 2024, To: 2026}
	current, err := Expand(cat, win)
	require.NoError(t, err)

	published := []ParsedEvent{
		{UID: UID(2024, "A"), Start: current[0].Date},
		{UID: UID(2024, "B"), Start: datetime.NewCalendarDate(2024, 6, 3)},
		{UID: UID(2025, "Renamed"), Start: datetime.NewCalendarDate(2025, 6, 1)},
		{UID: UID(2010, "A"), Start: datetime.NewCalendarDate(2010, 6, 1)},
	}
	d := Compare(published, current, win)
	assert.False(t, d.Empty())
	assert.Equal(t, 3, d.Checked)
	require.Len(t, d.Unknown, 1)
	assert.Equal(t, UID(2025, "Renamed"), d.Unknown[0].UID)
	require.Len(t, d.Moved, 1)
	assert.Equal(t, "B", d.Moved[0].Current.Summary)

	assert.True(t, Compare(nil, current, win).Empty())
}
