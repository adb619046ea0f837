package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Recurrence string

const (
	ByMinutes Recurrence = "BY_MINUTES"
	Hourly    Recurrence = "HOURLY"
	Daily     Recurrence = "DAILY"
	Weekly    Recurrence = "WEEKLY"
	Monthly   Recurrence = "MONTHLY"
)

type RepeatInterval struct {
	Every int   `json:"every"`
	On    []int `json:"on,omitempty"`
}

// Schedule is the recurrence block of a protection policy schedule.
// For WEEKLY, On holds ISO weekdays (1 = Monday … 7 = Sunday).
// For MONTHLY, On holds days of the month.
type Schedule struct {
	Recurrence     Recurrence     `json:"recurrence"`
	RepeatInterval RepeatInterval `json:"repeatInterval"`
	StartTime      string         `json:"startTime,omitempty"`
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Spec translates the schedule into a five-field cron expression.
//
// Cron steps restart at each period boundary, so every > 1 is approximate:
//   - HOURLY runs at the start hour, then every N hours until midnight, and
//     starts over at the start hour the next day.
//   - DAILY runs on days 1, 1+N, ... of each month, so the spacing across a
//     month boundary is shorter than N days.
//   - MONTHLY runs in months 1, 1+N, ... of each year.
func Spec(s Schedule) (string, error) {
	every := s.RepeatInterval.Every
	if every <= 0 {
		every = 1
	}
	hour, minute, err := startTime(s.StartTime)
	if err != nil {
		return "", err
	}

	switch s.Recurrence {
	case ByMinutes:
		if every > 59 {
			return "", fmt.Errorf("BY_MINUTES every %d is out of range", every)
		}
		return fmt.Sprintf("*/%d * * * *", every), nil
	case Hourly:
		if every > 23 {
			return "", fmt.Errorf("HOURLY every %d is out of range", every)
		}
		return fmt.Sprintf("%d %s * * *", minute, hourStep(hour, every)), nil
	case Daily:
		return fmt.Sprintf("%d %d %s * *", minute, hour, step(every)), nil
	case Weekly:
		if every != 1 {
			return "", fmt.Errorf("WEEKLY every %d weeks cannot be expressed as a cron schedule", every)
		}
		days, err := list(s.RepeatInterval.On, 1, 7, func(d int) int { return d % 7 })
		if err != nil {
			return "", fmt.Errorf("WEEKLY: %w", err)
		}
		return fmt.Sprintf("%d %d * * %s", minute, hour, days), nil
	case Monthly:
		if every > 12 {
			return "", fmt.Errorf("MONTHLY every %d is out of range", every)
		}
		days, err := list(s.RepeatInterval.On, 1, 31, nil)
		if err != nil {
			return "", fmt.Errorf("MONTHLY: %w", err)
		}
		return fmt.Sprintf("%d %d %s %s *", minute, hour, days, step(every)), nil
	default:
		return "", fmt.Errorf("unknown recurrence %q", s.Recurrence)
	}
}

// Parse returns the cron schedule for s.
func Parse(s Schedule) (cron.Schedule, error) {
	spec, err := Spec(s)
	if err != nil {
		return nil, err
	}
	return parser.Parse(spec)
}

// Next returns the first run strictly after the given time.
func Next(s Schedule, after time.Time) (time.Time, error) {
	cs, err := Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return cs.Next(after), nil
}

// Runs returns every run in (from, to].
func Runs(s Schedule, from, to time.Time) ([]time.Time, error) {
	cs, err := Parse(s)
	if err != nil {
		return nil, err
	}
	var out []time.Time
	for t := cs.Next(from); !t.After(to) && !t.IsZero(); t = cs.Next(t) {
		out = append(out, t)
	}
	return out, nil
}

func startTime(v string) (int, int, error) {
	if v == "" {
		return 0, 0, nil
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start time %q: expected HH:MM", v)
	}
	return t.Hour(), t.Minute(), nil
}

func step(every int) string {
	if every <= 1 {
		return "*"
	}
	return "*/" + strconv.Itoa(every)
}

// hourStep anchors an hour step at the start hour: 2-23/6 fires at 2, 8, 14 and 20.
func hourStep(hour, every int) string {
	if every <= 1 || hour == 0 {
		return step(every)
	}
	return fmt.Sprintf("%d-23/%d", hour, every)
}

func list(values []int, lo, hi int, mapFn func(int) int) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("at least one day is required")
	}
	seen := map[int]bool{}
	var out []int
	for _, v := range values {
		if v < lo || v > hi {
			return "", fmt.Errorf("day %d out of range %d-%d", v, lo, hi)
		}
		if mapFn != nil {
			v = mapFn(v)
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	parts := make([]string, len(out))
	for i, v := range out {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ","), nil
}
