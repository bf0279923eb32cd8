package model

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a wall-clock time of day with millisecond precision.
type Clock time.Duration

// EpochDate is the default event date for races that never carried one.
var EpochDate = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

const clockLayout = "15:04:05"

// NewClock builds a Clock from its components.
func NewClock(hour, minute, second, milli int) Clock {
	d := time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second +
		time.Duration(milli)*time.Millisecond
	return Clock(d)
}

// ParseClock parses HH:MM:SS with up to three fractional second digits.
func ParseClock(s string) (Clock, error) {
	if dot := strings.IndexAny(s, ".,"); dot >= 0 && len(s)-dot-1 > 3 {
		return 0, fmt.Errorf("clock %q: more than 3 fractional digits", s)
	}
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("clock %q: %w", s, err)
	}
	ms := t.Nanosecond() / int(time.Millisecond)
	return NewClock(t.Hour(), t.Minute(), t.Second(), ms), nil
}

// Duration returns the offset from midnight.
func (c Clock) Duration() time.Duration {
	return time.Duration(c)
}

// Milliseconds returns the offset from midnight in milliseconds.
func (c Clock) Milliseconds() int64 {
	return time.Duration(c).Milliseconds()
}

// String renders HH:MM:SS, with a .mmm suffix only when milliseconds are set.
func (c Clock) String() string {
	ms := c.Milliseconds()
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	frac := ms % 1000
	if frac == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, frac)
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
