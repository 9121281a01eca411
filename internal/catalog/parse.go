package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cloudeng.io/datetime"
	cerrors "cloudeng.io/errors"

	"annualcal/internal/model"
)

var (
	ErrMalformedLine      = errors.New("missing `: ` delimiter")
	ErrUnknownShape       = errors.New("unrecognized datespec")
	ErrUnknownMonth       = errors.New("unknown month")
	ErrUnknownWeekday     = errors.New("unknown weekday")
	ErrUnknownWeekInMonth = errors.New("unknown week in month")
	ErrDayOutOfRange      = errors.New("day of month out of range")
	ErrEmptySummary       = errors.New("empty summary")
	ErrInvalidSummary     = errors.New("summary must be printable ASCII")
	ErrDuplicateSummary   = errors.New("duplicate summary")
)

// LineError reports a problem with a single catalog line. Line is 0-based.
type LineError struct {
	Line    int
	Content string
	Err     error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d `%s`: %v", e.Line, e.Content, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Parse reads a catalog source. Every malformed line is reported; the
// returned error wraps one *LineError per bad line.
func Parse(r io.Reader) (*Catalog, error) {
	var (
		entries []model.Entry
		seen    = map[string]int{}
		errs    = &cerrors.M{}
	)
	sc := bufio.NewScanner(r)
	for i := 0; sc.Scan(); i++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		entry, err := ParseLine(line)
		if err == nil {
			if prev, dup := seen[entry.Summary]; dup {
				err = fmt.Errorf("%w: first defined on line %d", ErrDuplicateSummary, prev)
			}
		}
		if err != nil {
			errs.Append(&LineError{Line: i, Content: line, Err: err})
			continue
		}
		seen[entry.Summary] = i
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return newCatalog(entries), nil
}

// ParseLine parses a single trimmed, non-empty `<summary>: <datespec>` line.
func ParseLine(line string) (model.Entry, error) {
	idx := strings.LastIndex(line, ": ")
	if idx < 0 {
		return model.Entry{}, ErrMalformedLine
	}
	summary, spec := line[:idx], line[idx+2:]
	if err := validateSummary(summary); err != nil {
		return model.Entry{}, err
	}
	d, err := ParseDatespec(spec)
	if err != nil {
		return model.Entry{}, fmt.Errorf("datespec `%s`: %w", spec, err)
	}
	return model.Entry{Summary: summary, Descriptor: d}, nil
}

func validateSummary(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptySummary
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return fmt.Errorf("%w: byte 0x%02x at offset %d", ErrInvalidSummary, s[i], i)
		}
	}
	return nil
}

// ParseDatespec parses the part of a catalog line after the delimiter.
func ParseDatespec(spec string) (model.Descriptor, error) {
	parts := strings.Split(spec, ",")
	switch {
	case len(parts) == 3 && parts[0] == "FixedDate":
		month, err := parseMonth(parts[1])
		if err != nil {
			return model.Descriptor{}, err
		}
		day, err := parseDayOfMonth(month, parts[2])
		if err != nil {
			return model.Descriptor{}, err
		}
		return model.NewFixedDate(month, day), nil
	case len(parts) == 4 && parts[0] == "FixedDayOfMonth":
		month, err := parseMonth(parts[1])
		if err != nil {
			return model.Descriptor{}, err
		}
		weekday, err := parseWeekday(parts[2])
		if err != nil {
			return model.Descriptor{}, err
		}
		week, ok := model.ParseWeekInMonth(parts[3])
		if !ok {
			return model.Descriptor{}, fmt.Errorf("%w: `%s`", ErrUnknownWeekInMonth, parts[3])
		}
		return model.NewFixedDayOfMonth(month, weekday, week), nil
	default:
		return model.Descriptor{}, ErrUnknownShape
	}
}

func parseMonth(s string) (time.Month, error) {
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(m.String(), s) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: `%s`", ErrUnknownMonth, s)
}

// parseWeekday recognizes a weekday by its first three letters.
func parseWeekday(s string) (time.Weekday, error) {
	if len(s) >= 3 {
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			if strings.EqualFold(wd.String()[:3], s[:3]) {
				return wd, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: `%s`", ErrUnknownWeekday, s)
}

// parseDayOfMonth accepts decimal digits with optional leading zeros. The
// day must exist in month in every year, so February 29 is rejected.
func parseDayOfMonth(month time.Month, s string) (int, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, fmt.Errorf("%w: `%s` is not a decimal number", ErrDayOutOfRange, s)
	}
	day, err := strconv.Atoi(strings.TrimLeft(s, "0"))
	if err != nil || day < 1 || day > 31 {
		return 0, fmt.Errorf("%w: `%s` should be in range 1..=31", ErrDayOutOfRange, s)
	}
	if limit := int(datetime.DaysInMonth(2023, datetime.Month(month))); day > limit {
		return 0, fmt.Errorf("%w: %s has %d days in some years", ErrDayOutOfRange, month, limit)
	}
	return day, nil
}
