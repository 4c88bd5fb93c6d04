package entity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidTimeOfDay = errors.New("invalid time of day, use HH:MM")
	ErrInvalidSlotLabel = errors.New("invalid slot label, use HH:MM-HH:MM")
	ErrInvalidDate      = errors.New("invalid date format, use YYYY-MM-DD")
)

// DateLayout is the wire and storage format of calendar dates
const DateLayout = "2006-01-02"

// minutesPerDay bounds a TimeOfDay; 24:00 is accepted as an end of day marker
const minutesPerDay = 24 * 60

// TimeOfDay is a minute offset from midnight
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hour and minute
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM" with exactly two digits on each side
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || !isTwoDigits(parts[0]) || !isTwoDigits(parts[1]) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}

	if hour < 0 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}

	t := NewTimeOfDay(hour, minute)
	if t > minutesPerDay {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return t, nil
}

func isTwoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

func (t TimeOfDay) Hour() int {
	return int(t) / 60
}

func (t TimeOfDay) Minute() int {
	return int(t) % 60
}

// Add returns t shifted by the given number of minutes
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Slot is a start/end window within a single day. Two slots are equal when
// their start and end are equal.
type Slot struct {
	Start TimeOfDay
	End   TimeOfDay
}

// NewSlot returns the slot starting at start and lasting durationMinutes
func NewSlot(start TimeOfDay, durationMinutes int) Slot {
	return Slot{Start: start, End: start.Add(durationMinutes)}
}

// ParseSlot parses a slot label such as "08:00-10:00"
func ParseSlot(label string) (Slot, error) {
	parts := strings.Split(label, "-")
	if len(parts) != 2 {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidSlotLabel, label)
	}

	start, err := ParseTimeOfDay(parts[0])
	if err != nil {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidSlotLabel, label)
	}
	end, err := ParseTimeOfDay(parts[1])
	if err != nil {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidSlotLabel, label)
	}

	if start >= end {
		return Slot{}, fmt.Errorf("%w: %q ends before it starts", ErrInvalidSlotLabel, label)
	}

	return Slot{Start: start, End: end}, nil
}

// Label is the canonical "HH:MM-HH:MM" form used to match provider windows
func (s Slot) Label() string {
	return s.Start.String() + "-" + s.End.String()
}

func (s Slot) String() string {
	return s.Label()
}

func (s Slot) DurationMinutes() int {
	return int(s.End - s.Start)
}

// Within reports whether the slot lies entirely inside [start, end]
func (s Slot) Within(start, end TimeOfDay) bool {
	return s.Start >= start && s.End <= end
}

// ParseDate parses a YYYY-MM-DD calendar date into UTC midnight
func ParseDate(s string) (time.Time, error) {
	date, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return date, nil
}

// NormalizeDate drops the clock part of t, keeping its calendar day, as UTC midnight
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
