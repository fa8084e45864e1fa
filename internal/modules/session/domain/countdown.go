package domain

import (
	"fmt"
	"strings"
	"time"
)

// LowTimeThreshold is when the countdown switches to its warning look.
const LowTimeThreshold = 300

// Countdown is one publication of the deadline clock.
type Countdown struct {
	Remaining int
	Low       bool
}

func NewCountdown(remaining int) Countdown {
	if remaining < 0 {
		remaining = 0
	}
	return Countdown{Remaining: remaining, Low: remaining <= LowTimeThreshold}
}

// RemainingSeconds is max(0, floor((end-now)/1s)).
func RemainingSeconds(end, now time.Time) int {
	d := end.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// Clock renders the remaining time as MM:SS.
func (c Countdown) Clock() string {
	return fmt.Sprintf("%02d:%02d", c.Remaining/60, c.Remaining%60)
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseInstant reads a server timestamp. Timestamps without a zone are UTC.
func ParseInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse instant %q", raw)
}
