package rules

import (
	"fmt"
	"strings"
	"time"
)

// QuietWindow is a [start, end) suppression window in local wall-clock
// minutes. A window whose start is later than its end wraps midnight.
// start == end disables the window entirely.
type QuietWindow struct {
	startMin int
	endMin   int
	set      bool
}

func ParseQuietWindow(start, end string) (QuietWindow, error) {
	if strings.TrimSpace(start) == "" && strings.TrimSpace(end) == "" {
		return QuietWindow{}, nil
	}

	startMin, err := parseClock(start)
	if err != nil {
		return QuietWindow{}, fmt.Errorf("quiet window start: %w", err)
	}
	endMin, err := parseClock(end)
	if err != nil {
		return QuietWindow{}, fmt.Errorf("quiet window end: %w", err)
	}

	return QuietWindow{startMin: startMin, endMin: endMin, set: true}, nil
}

func (w QuietWindow) Contains(t time.Time) bool {
	if !w.set || w.startMin == w.endMin {
		return false
	}

	minute := t.Hour()*60 + t.Minute()
	if w.startMin < w.endMin {
		return minute >= w.startMin && minute < w.endMin
	}
	// wraps midnight, e.g. 23:00-07:00
	return minute >= w.startMin || minute < w.endMin
}

func parseClock(value string) (int, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse HH:MM %q: %w", value, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}
