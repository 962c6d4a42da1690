package timezone

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Wall-clock layouts accepted from administrators and rendered to recipients.
const (
	DateLayout        = "2006-01-02"
	TimeLayout        = "15:04"
	timeLayoutSeconds = "15:04:05"
)

// ErrInvalidTimeInput reports a date or time that cannot be parsed as a
// wall-clock instant, or an unknown IANA zone name.
var ErrInvalidTimeInput = errors.New("invalid time input")

// DisplayTime is a UTC instant rendered in a recipient's zone.
type DisplayTime struct {
	Date      string
	Time      string
	DayOfWeek string
}

// CanonicalSlot is one parsed administrator slot ready for storage:
// the canonical calendar date (UTC midnight, the form a DATE column
// round-trips through), the normalized canonical wall clock, and the
// instant in UTC.
type CanonicalSlot struct {
	SessionDate time.Time
	SessionTime string
	StartsAt    time.Time
}

// Normalizer converts between the fixed canonical administrative timezone,
// UTC, and arbitrary recipient timezones. The canonical zone is injected once
// at construction and threaded everywhere from here; no call site carries its
// own default. Conversions use full timezone-database rules, never a fixed
// offset, so zones observing daylight saving stay correct year-round.
type Normalizer struct {
	canonical *time.Location
}

// New loads the canonical zone by IANA name.
func New(canonicalZone string) (*Normalizer, error) {
	loc, err := time.LoadLocation(canonicalZone)
	if err != nil {
		return nil, fmt.Errorf("load canonical timezone %q: %w", canonicalZone, err)
	}
	return &Normalizer{canonical: loc}, nil
}

// Zone returns the canonical zone name.
func (n *Normalizer) Zone() string {
	return n.canonical.String()
}

// Location returns the canonical zone.
func (n *Normalizer) Location() *time.Location {
	return n.canonical
}

// ToCanonical parses a canonical-zone wall clock and returns the instant in
// UTC. A wall time falling inside a DST gap resolves forward to the moment
// the clock actually reaches.
func (n *Normalizer) ToCanonical(localDate, localTime string) (time.Time, error) {
	t, err := parseWallClock(localDate, localTime, n.canonical)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// NormalizeSlot parses one administrator-entered slot into its storage form.
// The stored wall-clock fields are re-derived from the resolved instant, so a
// gap time is persisted as the clock time that actually occurs.
func (n *Normalizer) NormalizeSlot(localDate, localTime string) (CanonicalSlot, error) {
	utc, err := n.ToCanonical(localDate, localTime)
	if err != nil {
		return CanonicalSlot{}, err
	}
	local := utc.In(n.canonical)
	return CanonicalSlot{
		SessionDate: time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC),
		SessionTime: local.Format(TimeLayout),
		StartsAt:    utc,
	}, nil
}

// ToDisplay renders a UTC instant in the recipient's zone.
func (n *Normalizer) ToDisplay(utc time.Time, targetZone string) (DisplayTime, error) {
	loc, err := time.LoadLocation(targetZone)
	if err != nil {
		return DisplayTime{}, fmt.Errorf("%w: unknown timezone %q", ErrInvalidTimeInput, targetZone)
	}
	local := utc.In(loc)
	return DisplayTime{
		Date:      local.Format(DateLayout),
		Time:      local.Format(TimeLayout),
		DayOfWeek: local.Weekday().String(),
	}, nil
}

// ValidateZone checks that name is a loadable IANA zone.
func (n *Normalizer) ValidateZone(name string) error {
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidTimeInput, name)
	}
	return nil
}

// DayInCanonical returns the canonical-zone calendar date containing the
// instant, as a UTC-midnight time.
func (n *Normalizer) DayInCanonical(at time.Time) time.Time {
	local := at.In(n.canonical)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func parseWallClock(localDate, localTime string, loc *time.Location) (time.Time, error) {
	layout := DateLayout + " " + TimeLayout
	if strings.Count(localTime, ":") == 2 {
		layout = DateLayout + " " + timeLayoutSeconds
	}
	input := localDate + " " + localTime
	t, err := time.ParseInLocation(layout, input, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q %q", ErrInvalidTimeInput, localDate, localTime)
	}
	if resolved := t.Format(layout); resolved != input {
		// The wall clock fell inside a spring-forward gap and the zone
		// database settled on the earlier offset. Shift the instant across
		// the gap so the stored clock is one that actually occurs.
		want, _ := time.Parse(layout, input)
		got, _ := time.Parse(layout, resolved)
		if d := want.Sub(got); d > 0 {
			t = t.Add(d)
		}
	}
	return t, nil
}

// ParseClock splits a strict "HH:MM" string into hour and minute. Used for
// configuration values like the day-ahead pass time.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("%w: clock %q", ErrInvalidTimeInput, s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: clock %q", ErrInvalidTimeInput, s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: clock %q", ErrInvalidTimeInput, s)
	}
	return hour, minute, nil
}
