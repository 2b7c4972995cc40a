package tabular

import (
	"fmt"
	"strings"
	"time"
)

// TimeUnit is the granularity of date/time cells: a whole number of units
// since the Unix epoch. It is a format version; producers and consumers of
// one deployment must agree on it.
type TimeUnit int

const (
	Seconds TimeUnit = iota
	Milliseconds
)

// ParseTimeUnit accepts "s", "sec", "second(s)", "ms", "milli(s)" and
// "millisecond(s)". The empty string is Seconds.
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "s", "sec", "second", "seconds":
		return Seconds, nil
	case "ms", "milli", "millis", "millisecond", "milliseconds":
		return Milliseconds, nil
	}
	return Seconds, fmt.Errorf("unknown time unit %q", s)
}

func (u TimeUnit) String() string {
	if u == Milliseconds {
		return "ms"
	}
	return "s"
}

// Epoch converts t to the unit count since the Unix epoch.
func (u TimeUnit) Epoch(t time.Time) int64 {
	if u == Milliseconds {
		return t.UnixMilli()
	}
	return t.Unix()
}

// Time converts a unit count since the Unix epoch back to a UTC time.
func (u TimeUnit) Time(n int64) time.Time {
	if u == Milliseconds {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// timeLayouts are tried in order when a date/time column delivers text.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"15:04:05",
}

// ParseTime parses the textual timestamps drivers hand back for date/time
// columns. Times without a zone are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time %q", s)
}
