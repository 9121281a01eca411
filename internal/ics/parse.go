package ics

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cloudeng.io/datetime"
	ical "github.com/arran4/golang-ical"

	appLog "annualcal/internal/log"
)

// ParsedEvent is the subset of a VEVENT that annual event feeds carry.
type ParsedEvent struct {
	UID      string
	Summary  string
	Start    datetime.CalendarDate
	Sequence int
}

// ParseDocument parses an iCalendar document and returns its all-day
// events. Events without a UID or with an unparseable DTSTART are skipped
// and logged.
func ParseDocument(r io.Reader) ([]ParsedEvent, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Warn("skipping vevent", "err", perr)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Sequence = n
		}
	}

	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return out, fmt.Errorf("%s: missing DTSTART", out.UID)
	}
	start, err := parseDate(p.Value)
	if err != nil {
		return out, fmt.Errorf("%s: %w", out.UID, err)
	}
	out.Start = start
	return out, nil
}

// parseDate accepts a DATE value (YYYYMMDD). A DATE-TIME value is truncated
// to its date.
func parseDate(v string) (datetime.CalendarDate, error) {
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, 'T'); i >= 0 {
		v = v[:i]
	}
	t, err := time.Parse("20060102", v)
	if err != nil {
		return datetime.CalendarDate(0), fmt.Errorf("invalid DTSTART %q: %w", v, err)
	}
	return datetime.NewCalendarDateFromTime(t), nil
}
