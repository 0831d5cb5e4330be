// Package timezone converts between stored UTC instants and the single
// display zone configured for the deployment.
//
// "Due today" is a calendar-date question in the display zone, so every due
// comparison goes through LocalDate rather than comparing instants.
package timezone

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zones must resolve in minimal containers

	"github.com/example/flashpod/internal/logger"
)

// Normalizer is immutable after construction and safe for concurrent use.
type Normalizer struct {
	name  string
	loc   *time.Location
	clock func() time.Time
}

// Info describes the display zone for clients
type Info struct {
	Name         string `json:"name"`
	Offset       string `json:"offset"`
	Abbreviation string `json:"abbreviation"`
}

// New loads the named IANA zone. An empty or unknown name falls back to UTC
// with a warning; it never fails.
func New(name string, log *logger.Logger) *Normalizer {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		if log != nil {
			log.Warn("Unknown timezone, falling back to UTC", "timezone", name, "error", err)
		}
		name, loc = "UTC", time.UTC
	} else if log != nil {
		log.Info("Using timezone", "timezone", name)
	}
	return &Normalizer{name: name, loc: loc, clock: time.Now}
}

// WithClock returns a copy that reads the current time from clock.
func (n *Normalizer) WithClock(clock func() time.Time) *Normalizer {
	cp := *n
	cp.clock = clock
	return &cp
}

func (n *Normalizer) Name() string { return n.name }

func (n *Normalizer) Location() *time.Location { return n.loc }

// Now returns the current time in the display zone.
func (n *Normalizer) Now() time.Time { return n.clock().In(n.loc) }

// NowUTC returns the current instant in UTC, the form every timestamp is stored in.
func (n *Normalizer) NowUTC() time.Time { return n.clock().UTC() }

// ToLocal converts an instant to the display zone.
func (n *Normalizer) ToLocal(t time.Time) time.Time { return t.In(n.loc) }

var utcLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseUTC parses a timestamp. Input without an explicit zone is read as UTC.
func (n *Normalizer) ParseUTC(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range utcLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed timestamp %q", s)
}

// LocalDate returns the calendar date of t in the display zone.
func (n *Normalizer) LocalDate(t time.Time) Date {
	y, m, d := t.In(n.loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current calendar date in the display zone.
func (n *Normalizer) Today() Date { return n.LocalDate(n.clock()) }

// IsOnOrBeforeToday reports whether t falls on today's local date or earlier.
func (n *Normalizer) IsOnOrBeforeToday(t time.Time) bool {
	return n.LocalDate(t).Compare(n.Today()) <= 0
}

func (n *Normalizer) Info() Info {
	now := n.Now()
	return Info{
		Name:         n.name,
		Offset:       now.Format("-0700"),
		Abbreviation: now.Format("MST"),
	}
}

// Date is a calendar date without a zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(int(d.Month) - int(o.Month))
	}
	return sign(d.Day - o.Day)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
