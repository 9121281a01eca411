package model

import (
	"fmt"
	"time"

	"cloudeng.io/datetime"
)

// Kind tags the shape of a Descriptor.
type Kind uint8

const (
	// FixedDate pins an event to a month and day of month.
	FixedDate Kind = iota + 1
	// FixedDayOfMonth pins an event to the nth (or last) weekday of a month.
	FixedDayOfMonth
)

func (k Kind) String() string {
	switch k {
	case FixedDate:
		return "FixedDate"
	case FixedDayOfMonth:
		return "FixedDayOfMonth"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// WeekInMonth selects which occurrence of a weekday within a month is meant.
// There is no Fifth; Last names the final occurrence.
type WeekInMonth uint8

const (
	First WeekInMonth = iota + 1
	Second
	Third
	Fourth
	Last
)

var weekNames = [...]string{"", "First", "Second", "Third", "Fourth", "Last"}

func (w WeekInMonth) String() string {
	if w >= First && w <= Last {
		return weekNames[w]
	}
	return fmt.Sprintf("WeekInMonth(%d)", uint8(w))
}

// Valid reports whether w is one of First..Last.
func (w WeekInMonth) Valid() bool {
	return w >= First && w <= Last
}

// ParseWeekInMonth parses one of First, Second, Third, Fourth or Last.
func ParseWeekInMonth(s string) (WeekInMonth, bool) {
	for i := First; i <= Last; i++ {
		if weekNames[i] == s {
			return i, true
		}
	}
	return 0, false
}

// Descriptor is a symbolic annual event date. Exactly one of the two shapes
// is meaningful, selected by Kind.
type Descriptor struct {
	Kind  Kind
	Month time.Month

	// Day is set for FixedDate.
	Day int

	// Weekday and Week are set for FixedDayOfMonth.
	Weekday time.Weekday
	Week    WeekInMonth
}

// NewFixedDate returns a FixedDate descriptor.
func NewFixedDate(month time.Month, day int) Descriptor {
	return Descriptor{Kind: FixedDate, Month: month, Day: day}
}

// NewFixedDayOfMonth returns a FixedDayOfMonth descriptor.
func NewFixedDayOfMonth(month time.Month, weekday time.Weekday, week WeekInMonth) Descriptor {
	return Descriptor{Kind: FixedDayOfMonth, Month: month, Weekday: weekday, Week: week}
}

func (d Descriptor) String() string {
	switch d.Kind {
	case FixedDate:
		return fmt.Sprintf("FixedDate,%s,%d", d.Month, d.Day)
	case FixedDayOfMonth:
		return fmt.Sprintf("FixedDayOfMonth,%s,%s,%s", d.Month, d.Weekday.String()[:3], d.Week)
	default:
		return d.Kind.String()
	}
}

// Entry is one row of the event catalog.
type Entry struct {
	Summary    string
	Descriptor Descriptor
}

// Occurrence is a single materialized instance of a catalog entry in a
// given year.
type Occurrence struct {
	Year    int
	Summary string
	Date    datetime.CalendarDate
	UID     string
}

// NextMonth returns the month after m, wrapping December to January.
func NextMonth(m time.Month) time.Month {
	return m%12 + 1
}

// FormatDate formats a calendar date as YYYYMMDD.
func FormatDate(cd datetime.CalendarDate) string {
	return fmt.Sprintf("%04d%02d%02d", cd.Year(), int(cd.Month()), cd.Day())
}

// ISODate formats a calendar date as YYYY-MM-DD.
func ISODate(cd datetime.CalendarDate) string {
	return fmt.Sprintf("%04d-%02d-%02d", cd.Year(), int(cd.Month()), cd.Day())
}
