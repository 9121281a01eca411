// Package resolve computes the concrete date on which a symbolic annual
// event falls in a given year.
package resolve

import (
	"errors"
	"fmt"
	"time"

	"cloudeng.io/datetime"

	"annualcal/internal/model"
)

// Supported year range, inclusive.
const (
	MinYear = 1900
	MaxYear = 2999
)

var (
	ErrYearOutOfRange    = errors.New("year out of supported range")
	ErrInvalidDescriptor = errors.New("invalid event descriptor")
)

// direction is the walk through the month: forwards from the first day
// counting matches, or backwards from the last day.
type direction struct {
	count int
	step  int // +1 or -1 days
}

func directionFor(w model.WeekInMonth) direction {
	if w == model.Last {
		return direction{count: 1, step: -1}
	}
	return direction{count: int(w), step: +1}
}

// Resolve returns the date on which d falls in year.
func Resolve(d model.Descriptor, year int) (datetime.CalendarDate, error) {
	if year < MinYear || year > MaxYear {
		return datetime.CalendarDate(0), fmt.Errorf("%w: %d not in [%d, %d]", ErrYearOutOfRange, year, MinYear, MaxYear)
	}
	if err := Validate(d); err != nil {
		return datetime.CalendarDate(0), err
	}
	switch d.Kind {
	case model.FixedDate:
		return datetime.NewCalendarDate(year, datetime.Month(d.Month), d.Day), nil
	default:
		return resolveDayOfMonth(d, year)
	}
}

// MustResolve is like Resolve but panics on error.
func MustResolve(d model.Descriptor, year int) datetime.CalendarDate {
	cd, err := Resolve(d, year)
	if err != nil {
		panic(err)
	}
	return cd
}

// Validate checks that d is well formed. FixedDate descriptors must be a
// valid date in every year, so February 29 is rejected.
func Validate(d model.Descriptor) error {
	if d.Month < time.January || d.Month > time.December {
		return fmt.Errorf("%w: month %d", ErrInvalidDescriptor, int(d.Month))
	}
	switch d.Kind {
	case model.FixedDate:
		// 2023 is not a leap year.
		if limit := int(datetime.DaysInMonth(2023, datetime.Month(d.Month))); d.Day < 1 || d.Day > limit {
			return fmt.Errorf("%w: day %d not in 1..%d for %s", ErrInvalidDescriptor, d.Day, limit, d.Month)
		}
	case model.FixedDayOfMonth:
		if d.Weekday < time.Sunday || d.Weekday > time.Saturday {
			return fmt.Errorf("%w: weekday %d", ErrInvalidDescriptor, int(d.Weekday))
		}
		if !d.Week.Valid() {
			return fmt.Errorf("%w: %s", ErrInvalidDescriptor, d.Week)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidDescriptor, d.Kind)
	}
	return nil
}

func resolveDayOfMonth(d model.Descriptor, year int) (datetime.CalendarDate, error) {
	dir := directionFor(d.Week)

	var current time.Time
	if dir.step > 0 {
		current = time.Date(year, d.Month, 1, 0, 0, 0, 0, time.UTC)
	} else {
		next := model.NextMonth(d.Month)
		nextYear := year
		if next < d.Month {
			nextYear++
		}
		current = time.Date(nextYear, next, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	}

	count := dir.count
	for i := 0; i < 7*dir.count; i++ {
		if current.Weekday() == d.Weekday {
			count--
			if count == 0 {
				return datetime.NewCalendarDateFromTime(current), nil
			}
		}
		current = current.AddDate(0, 0, dir.step)
	}
	return datetime.CalendarDate(0), fmt.Errorf("resolve %s in %d: no match within %d days", d, year, 7*dir.count)
}
