package resolve

import (
	"cloudeng.io/datetime"
	"github.com/rickar/cal/v2"

	"annualcal/internal/model"
)

// Holiday returns d as a rickar/cal holiday named name. Last maps to an
// offset of -1, counted back from the end of the month.
func Holiday(name string, d model.Descriptor) (*cal.Holiday, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	h := &cal.Holiday{Name: name, Month: d.Month}
	switch d.Kind {
	case model.FixedDate:
		h.Day = d.Day
		h.Func = cal.CalcDayOfMonth
	case model.FixedDayOfMonth:
		h.Weekday = d.Weekday
		h.Offset = int(d.Week)
		if d.Week == model.Last {
			h.Offset = -1
		}
		h.Func = cal.CalcWeekdayOffset
	}
	return h, nil
}

func holidayDate(h *cal.Holiday, year int) datetime.CalendarDate {
	actual, _ := h.Calc(year)
	return datetime.NewCalendarDate(actual.Year(), datetime.Month(actual.Month()), actual.Day())
}
