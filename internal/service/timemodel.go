package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Weekdays lists the accepted day names in calendar order.
var Weekdays = []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"}

// Interval is a half-open [Start, End) window in minutes after midnight.
type Interval struct {
	Start int
	End   int
}

// Overlaps reports whether two half-open intervals share any minute. Touching intervals do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// ParseClock strictly parses HH:MM or HH:MM:SS into minutes after midnight.
func ParseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", value)
	}
	limits := []int{23, 59, 59}
	fields := make([]int, len(parts))
	for i, part := range parts {
		if len(part) != 2 {
			return 0, fmt.Errorf("invalid clock %q: want two digits per field", value)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid clock %q", value)
		}
		fields[i] = n
	}
	return fields[0]*60 + fields[1], nil
}

// FormatClock renders minutes after midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseInterval parses both ends strictly and requires end after start.
func ParseInterval(start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	if e <= s {
		return Interval{}, fmt.Errorf("end time %s must be after start time %s", end, start)
	}
	return Interval{Start: s, End: e}, nil
}

// DeriveDuration returns the minutes between start and end, never negative.
// Malformed input yields 0.
func DeriveDuration(start, end string) int {
	s, ok := lenientClock(start)
	if !ok {
		return 0
	}
	e, ok := lenientClock(end)
	if !ok {
		return 0
	}
	if diff := e - s; diff > 0 {
		return diff
	}
	return 0
}

func lenientClock(value string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	return h*60 + m, true
}

// NextPeriodNumber suggests the number for a new period. It is not a uniqueness guarantee.
func NextPeriodNumber(existing []models.Period) int {
	return len(existing) + 1
}

// NormalizeDay upper-cases and validates a weekday name.
func NormalizeDay(day string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(day))
	for _, d := range Weekdays {
		if d == upper {
			return upper, true
		}
	}
	return "", false
}
