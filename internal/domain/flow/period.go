package flow

import (
	"fmt"
	"time"
)

// Period identifies which month a workflow instance belongs to. Its
// canonical string form ("2025-06") is used both as the period marker in
// message text and as the period field of action payloads, so text
// matching can never disagree with payload contents.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses a "YYYY-MM" period key.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period key %q: %w", s, err)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Prev returns the preceding month's period.
func (p Period) Prev() Period {
	if p.Month == time.January {
		return Period{Year: p.Year - 1, Month: time.December}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// CacheKey is the state-cache record key for one workflow instance.
func CacheKey(kind string, p Period) string {
	return fmt.Sprintf("%s_%d_%d", kind, p.Year, int(p.Month))
}
