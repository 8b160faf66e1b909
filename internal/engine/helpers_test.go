package engine

import (
	"testing"
	"time"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func newWorker(id string, percentage float64) *Worker {
	return &Worker{
		ID:               id,
		WorkPercentage:   percentage,
		IncompatibleWith: map[string]struct{}{},
	}
}

func baseConfig(start, end time.Time, numShifts, gap int, workers ...*Worker) *Config {
	return &Config{
		StartDate:                start,
		EndDate:                  end,
		NumShifts:                numShifts,
		GapBetweenShifts:         gap,
		MaxConsecutiveWeekends:   3,
		Holidays:                 map[time.Time]struct{}{},
		Workers:                  workers,
		MinCoverageThreshold:     0.0,
		MaxImprovementIterations: 70,
		Restarts:                 3,
	}
}
