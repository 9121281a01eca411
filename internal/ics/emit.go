// Package ics renders the annual events catalog as an iCalendar (RFC 5545)
// document and parses such documents back.
package ics

import (
	"bufio"
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"annualcal/internal/catalog"
	appLog "annualcal/internal/log"
	"annualcal/internal/model"
	"annualcal/internal/resolve"
)

const (
	DefaultProductID   = "-//illicitonion//Annual events calendar//EN"
	DefaultYearsBefore = 10
	DefaultYearsAfter  = 10

	CRLF = "\r\n"
	LF   = "\n"

	stampLayout = "20060102T150405Z"
)

// Window is a half-open range of years [From, To).
type Window struct {
	From int
	To   int
}

// WindowAround returns [year-before, year+after).
func WindowAround(year, before, after int) Window {
	return Window{From: year - before, To: year + after}
}

// Years returns the number of years in the window.
func (w Window) Years() int {
	if w.To < w.From {
		return 0
	}
	return w.To - w.From
}

// Contains reports whether year falls inside the window.
func (w Window) Contains(year int) bool {
	return year >= w.From && year < w.To
}

type options struct {
	productID string
	before    int
	after     int
	eol       string
	clock     func() time.Time
}

// Option configures an Emitter.
type Option func(o *options)

// WithProductID overrides the PRODID property.
func WithProductID(id string) Option {
	return func(o *options) {
		o.productID = id
	}
}

// WithWindow sets how many years before (inclusive) and after (exclusive)
// the current year are emitted.
func WithWindow(before, after int) Option {
	return func(o *options) {
		o.before, o.after = before, after
	}
}

// WithLineEnding selects CRLF or LF line terminators.
func WithLineEnding(eol string) Option {
	return func(o *options) {
		o.eol = eol
	}
}

// WithClock replaces time.Now as the source of the emission timestamp.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// Emitter writes calendar documents for a catalog.
type Emitter struct {
	catalog *catalog.Catalog
	opts    options
}

// NewEmitter returns an Emitter for cat.
func NewEmitter(cat *catalog.Catalog, opts ...Option) *Emitter {
	e := &Emitter{
		catalog: cat,
		opts: options{
			productID: DefaultProductID,
			before:    DefaultYearsBefore,
			after:     DefaultYearsAfter,
			eol:       CRLF,
			clock:     time.Now,
		},
	}
	for _, fn := range opts {
		fn(&e.opts)
	}
	return e
}

// MakeCalendar writes the default calendar, built from the embedded catalog,
// to w.
func MakeCalendar(w io.Writer) error {
	cat, err := catalog.Default()
	if err != nil {
		return err
	}
	return NewEmitter(cat).Write(w)
}

// Window returns the years that a document written at now would cover.
func (e *Emitter) Window(now time.Time) Window {
	return WindowAround(now.UTC().Year(), e.opts.before, e.opts.after)
}

// Write renders the calendar to w. The clock is read exactly once and the
// same stamp is used for every event. The first write error aborts the
// document and is returned; w may then hold a partial document.
func (e *Emitter) Write(w io.Writer) error {
	return e.WriteAt(w, e.opts.clock())
}

// WriteAt is like Write but stamps the document with now instead of reading
// the clock.
func (e *Emitter) WriteAt(w io.Writer, now time.Time) error {
	now = now.UTC()
	stamp := now.Format(stampLayout)
	win := e.Window(now)

	occurrences, err := Expand(e.catalog, win)
	if err != nil {
		return err
	}

	cal := &ical.Calendar{}
	cal.SetProductId(e.opts.productID)
	cal.SetVersion("2.0")
	for _, o := range occurrences {
		cal.AddVEvent(newEvent(o, stamp))
	}

	// bufio.Writer keeps the first error, including those from the
	// BEGIN/END lines whose write results SerializeTo discards.
	bw := bufio.NewWriter(w)
	serr := cal.SerializeTo(bw, ical.WithNewLine(e.opts.eol))
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	if serr != nil {
		return fmt.Errorf("write calendar: %w", serr)
	}

	appLog.Debug("calendar written",
		"from", win.From,
		"to", win.To,
		"events", len(occurrences),
		"stamp", stamp,
	)
	return nil
}

func newEvent(o model.Occurrence, stamp string) *ical.VEvent {
	ev := &ical.VEvent{}
	ev.AddProperty(ical.ComponentPropertySummary, o.Summary)
	ev.AddProperty(ical.ComponentPropertyDtStart, model.FormatDate(o.Date))
	ev.AddProperty(ical.ComponentPropertyUniqueId, o.UID)
	ev.AddProperty(ical.ComponentPropertyDtstamp, stamp)
	ev.AddProperty(ical.ComponentPropertyCreated, stamp)
	ev.AddProperty(ical.ComponentPropertyLastModified, stamp)
	ev.AddProperty(ical.ComponentPropertySequence, "0")
	return ev
}

// Expand resolves every catalog entry for every year in win. Years are
// ascending in the outer order and catalog order is kept within a year.
func Expand(cat *catalog.Catalog, win Window) ([]model.Occurrence, error) {
	out := make([]model.Occurrence, 0, win.Years()*cat.Len())
	for year := win.From; year < win.To; year++ {
		occ, err := ExpandYear(cat, year)
		if err != nil {
			return nil, err
		}
		out = append(out, occ...)
	}
	return out, nil
}

// ExpandYear resolves every catalog entry for a single year.
func ExpandYear(cat *catalog.Catalog, year int) ([]model.Occurrence, error) {
	out := make([]model.Occurrence, 0, cat.Len())
	for summary, d := range cat.All() {
		cd, err := resolve.Resolve(d, year)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", summary, err)
		}
		out = append(out, model.Occurrence{
			Year:    year,
			Summary: summary,
			Date:    cd,
			UID:     UID(int32(year), summary),
		})
	}
	return out, nil
}
