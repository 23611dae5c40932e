package timeutil

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Clock converts between tenant-local wall time, as entered on booking
// forms, and the UTC instants stored in the database. The offset is
// applied only here so the rest of the codebase never does timezone
// arithmetic.
type Clock struct {
	loc *time.Location
}

// NewClock builds a Clock from an offset string like "+05:30" or "-03:00".
func NewClock(offset string) (*Clock, error) {
	var sign rune
	var hh, mm int
	if _, err := fmt.Sscanf(offset, "%c%02d:%02d", &sign, &hh, &mm); err != nil {
		return nil, fmt.Errorf("invalid utc offset %q: %w", offset, err)
	}
	secs := hh*3600 + mm*60
	switch sign {
	case '+':
	case '-':
		secs = -secs
	default:
		return nil, fmt.Errorf("invalid utc offset %q: sign must be + or -", offset)
	}
	return &Clock{loc: time.FixedZone("clinic", secs)}, nil
}

// ParseLocal combines a wall-clock date and time into a UTC instant.
func (c *Clock) ParseLocal(date, clock string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q %q: %w", date, clock, err)
	}
	return t.UTC(), nil
}

// FormatLocal renders a stored instant back as tenant-local date and time.
func (c *Clock) FormatLocal(t time.Time) (date, clock string) {
	local := t.In(c.loc)
	return local.Format(DateLayout), local.Format(TimeLayout)
}
