package ics

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annualcal/internal/catalog"
	"annualcal/internal/model"
)

var fixedNow = time.Date(2024, time.July, 1, 12, 34, 56, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func mustParse(t *testing.T, src string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return c
}

func TestWriteExactDocument(t *testing.T) {
	cat := mustParse(t, "Independence Day: FixedDate,July,04\nMemorial Day: FixedDayOfMonth,May,Mon,Last\n")
	var buf bytes.Buffer
	err := NewEmitter(cat, WithClock(fixedClock), WithWindow(0, 1), WithLineEnding(LF)).Write(&buf)
	require.NoError(t, err)

	want := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"PRODID:-//illicitonion//Annual events calendar//EN",
		"VERSION:2.0",
		"BEGIN:VEVENT",
		"SUMMARY:Independence Day",
		"DTSTART:20240704",
		"UID:" + UID(2024, "Independence Day"),
		"DTSTAMP:20240701T123456Z",
		"CREATED:20240701T123456Z",
		"LAST-MODIFIED:20240701T123456Z",
		"SEQUENCE:0",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"SUMMARY:Memorial Day",
		"DTSTART:20240527",
		"UID:" + UID(2024, "Memorial Day"),
		"DTSTAMP:20240701T123456Z",
		"CREATED:20240701T123456Z",
		"LAST-MODIFIED:20240701T123456Z",
		"SEQUENCE:0",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteDefaultWindow(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewEmitter(cat, WithClock(fixedClock)).Write(&buf))
	doc := buf.String()

	n := 20 * cat.Len()
	assert.Equal(t, n, strings.Count(doc, "BEGIN:VEVENT\r\n"))
	assert.Equal(t, n, strings.Count(doc, "END:VEVENT\r\n"))
	assert.Equal(t, n, strings.Count(doc, "DTSTAMP:20240701T123456Z\r\n"))
	assert.Equal(t, n, strings.Count(doc, "CREATED:20240701T123456Z\r\n"))
	assert.Equal(t, n, strings.Count(doc, "LAST-MODIFIED:20240701T123456Z\r\n"))
	assert.True(t, strings.HasPrefix(doc, "BEGIN:VCALENDAR\r\nPRODID:"))
	assert.True(t, strings.HasSuffix(doc, "END:VEVENT\r\nEND:VCALENDAR\r\n"))
	assert.NotContains(t, strings.ReplaceAll(doc, "\r\n", ""), "\n")

	assert.Contains(t, doc, "SUMMARY:Independence Day\r\nDTSTART:20240704\r\n")
	assert.Contains(t, doc, "SUMMARY:Thanksgiving\r\nDTSTART:20241128\r\n")
	assert.Contains(t, doc, "DTSTART:2014")
	assert.Contains(t, doc, "DTSTART:2033")
	assert.NotContains(t, doc, "DTSTART:2013")
	assert.NotContains(t, doc, "DTSTART:2034")

	// Years ascend through the document.
	first := strings.Index(doc, "DTSTART:2014")
	last := strings.LastIndex(doc, "DTSTART:2033")
	assert.Less(t, first, strings.Index(doc, "DTSTART:2024"))
	assert.Greater(t, last, strings.LastIndex(doc, "DTSTART:2024"))
}

func TestWriteReadsClockOnce(t *testing.T) {
	cat := mustParse(t, "A: FixedDate,January,1\nB: FixedDate,January,2\n")
	calls := 0
	clock := func() time.Time {
		calls++
		return fixedNow.Add(time.Duration(calls) * time.Hour)
	}
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(cat, WithClock(clock)).Write(&buf))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 40, strings.Count(buf.String(), "DTSTAMP:20240701T133456Z"))
}

func TestWriteAtIgnoresClock(t *testing.T) {
	cat := mustParse(t, "A: FixedDate,January,1\n")
	e := NewEmitter(cat, WithClock(func() time.Time {
		t.Fatal("clock must not be read")
		return time.Time{}
	}), WithWindow(0, 1))
	var buf bytes.Buffer
	require.NoError(t, e.WriteAt(&buf, fixedNow))
	assert.Contains(t, buf.String(), "DTSTART:20240101\r\n")
	assert.Contains(t, buf.String(), "DTSTAMP:20240701T123456Z\r\n")
}

func TestWriteUsesUTC(t *testing.T) {
	cat := mustParse(t, "A: FixedDate,January,1\n")
	loc := time.FixedZone("UTC+3", 3*3600)
	// 2025-01-01 01:00 local is still 2024 in UTC.
	local := time.Date(2025, time.January, 1, 1, 0, 0, 0, loc)
	var buf bytes.Buffer
	e := NewEmitter(cat, WithClock(func() time.Time { return local }))
	require.NoError(t, e.Write(&buf))
	assert.Contains(t, buf.String(), "DTSTAMP:20241231T220000Z")
	assert.Equal(t, Window{From: 2014, To: 2034}, e.Window(local))
}

func TestWritePropagatesError(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	boom := errors.New("broken pipe")
	err = NewEmitter(cat, WithClock(fixedClock)).Write(&failAfter{n: 1, err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestWriteEscapesAndFolds(t *testing.T) {
	summary := "Tea, Biscuits; and " + strings.Repeat("cake ", 20)
	cat := mustParse(t, summary+": FixedDate,March,1\n")
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(cat, WithClock(fixedClock), WithWindow(0, 1)).Write(&buf))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	var unfolded []string
	for _, line := range lines {
		assert.LessOrEqual(t, len(line), 75)
		if strings.HasPrefix(line, " ") {
			unfolded[len(unfolded)-1] += line[1:]
			continue
		}
		unfolded = append(unfolded, line)
	}
	assert.Contains(t, unfolded, `SUMMARY:Tea\, Biscuits\; and `+strings.Repeat("cake ", 20))
	// The UID hashes the raw summary, not the escaped one.
	assert.Contains(t, unfolded, "UID:"+UID(2024, summary))
}

type failAfter struct {
	n   int
	err error
}

func (f *failAfter) Write(p []byte) (int, error) {
	if f.n <= 0 {
		return 0, f.err
	}
	f.n--
	return len(p), nil
}

func TestWriteReportsFirstWriteError(t *testing.T) {
	cat := mustParse(t, "A: FixedDate,January,1\n")
	boom := errors.New("disk full")
	err := NewEmitter(cat, WithClock(fixedClock), WithWindow(0, 1)).Write(&failAfter{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestMakeCalendar(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, MakeCalendar(&buf))
	cat, _ := catalog.Default()
	assert.Equal(t, 20*cat.Len(), strings.Count(buf.String(), "BEGIN:VEVENT"))
	year := time.Now().UTC().Year()
	assert.Contains(t, buf.String(), "UID:"+UID(int32(year-10), "Halloween"))
	assert.NotContains(t, buf.String(), "UID:"+UID(int32(year+10), "Halloween"))
}

func TestExpand(t *testing.T) {
	cat := mustParse(t, "B: FixedDate,June,1\nA: FixedDayOfMonth,December,Sun,Last\n")
	occ, err := Expand(cat, Window{From: 2023, To: 2025})
	require.NoError(t, err)
	require.Len(t, occ, 4)
	assert.Equal(t, []string{"A", "B", "A", "B"}, []string{occ[0].Summary, occ[1].Summary, occ[2].Summary, occ[3].Summary})
	assert.Equal(t, 2023, occ[0].Year)
	assert.Equal(t, 2024, occ[3].Year)
	assert.Equal(t, "20241229", model.FormatDate(occ[2].Date))
	assert.Equal(t, UID(2024, "A"), occ[2].UID)

	_, err = Expand(cat, Window{From: 1890, To: 1901})
	assert.Error(t, err)

	empty, err := Expand(cat, Window{From: 2030, To: 2020})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
