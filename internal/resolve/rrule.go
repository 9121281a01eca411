package resolve

import (
	"fmt"
	"time"

	"cloudeng.io/datetime"
	"cloudeng.io/errors"
	"github.com/teambition/rrule-go"

	"annualcal/internal/model"
)

var rruleWeekdays = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// Rule returns the yearly recurrence equivalent to d, starting on January 1
// of from and ending on December 31 of to.
func Rule(d model.Descriptor, from, to int) (*rrule.RRule, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	opt := rrule.ROption{
		Freq:    rrule.YEARLY,
		Dtstart: time.Date(from, time.January, 1, 0, 0, 0, 0, time.UTC),
		Until:   time.Date(to, time.December, 31, 0, 0, 0, 0, time.UTC),
		Bymonth: []int{int(d.Month)},
	}
	switch d.Kind {
	case model.FixedDate:
		opt.Bymonthday = []int{d.Day}
	case model.FixedDayOfMonth:
		nth := int(d.Week)
		if d.Week == model.Last {
			nth = -1
		}
		opt.Byweekday = []rrule.Weekday{rruleWeekdays[d.Weekday].Nth(nth)}
	}
	return rrule.NewRRule(opt)
}

// CrossCheck resolves d for every year in [from, to] and compares the
// result against the rrule expansion and the rickar/cal holiday for the
// same descriptor. All mismatches are returned together.
func CrossCheck(d model.Descriptor, from, to int) error {
	if from > to {
		return fmt.Errorf("cross check: from %d is after to %d", from, to)
	}
	r, err := Rule(d, from, to)
	if err != nil {
		return err
	}
	h, err := Holiday(d.String(), d)
	if err != nil {
		return err
	}
	expected := make(map[int]datetime.CalendarDate, to-from+1)
	for _, t := range r.All() {
		expected[t.Year()] = datetime.NewCalendarDateFromTime(t)
	}
	errs := &errors.M{}
	for year := from; year <= to; year++ {
		got, err := Resolve(d, year)
		if err != nil {
			errs.Append(err)
			continue
		}
		want, ok := expected[year]
		if !ok {
			errs.Append(fmt.Errorf("%s: no rrule occurrence in %d", d, year))
			continue
		}
		if got != want {
			errs.Append(fmt.Errorf("%s: resolved %s, rrule %s", d, model.ISODate(got), model.ISODate(want)))
		}
		if hd := holidayDate(h, year); got != hd {
			errs.Append(fmt.Errorf("%s: resolved %s, holiday %s", d, model.ISODate(got), model.ISODate(hd)))
		}
	}
	return errs.Err()
}
