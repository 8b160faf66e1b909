package engine

import (
	"errors"
	"testing"
	"time"
)

// Gap enforcement: with num_shifts=1, gap=2, and three full-time workers
// over a month, the minimum-gap rule must hold for every worker and
// coverage should reach 100% (three workers is the minimum that can fill
// every day under a 3-day minimum separation).
func TestSchedulerGapEnforcementScenario(t *testing.T) {
	w1 := newWorker("w1", 100)
	w2 := newWorker("w2", 100)
	w3 := newWorker("w3", 100)
	cfg := baseConfig(date(t, "2024-01-01"), date(t, "2024-01-31"), 1, 2, w1, w2, w3)
	cfg.Restarts = 3

	result, err := NewScheduler(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Statistics.Coverage < 0.99 {
		t.Fatalf("coverage = %.2f, want ~1.0 with three full-time workers and a 2-day gap", result.Statistics.Coverage)
	}

	for _, w := range cfg.Workers {
		dates := result.State.AssignedDates(w.ID)
		for i := 1; i < len(dates); i++ {
			if daysBetween(dates[i], dates[i-1]) < 3 {
				t.Fatalf("worker %s has assignments %v and %v only %d days apart, want >= 3",
					w.ID, dates[i-1], dates[i], daysBetween(dates[i], dates[i-1]))
			}
		}
	}
}

// Consecutive weekend cap: with max_consecutive_weekends=2, no worker's
// weekend-cluster run may exceed 2 after a full generation.
func TestSchedulerConsecutiveWeekendCapScenario(t *testing.T) {
	w1 := newWorker("w1", 100)
	w2 := newWorker("w2", 100)
	w3 := newWorker("w3", 100)
	cfg := baseConfig(date(t, "2024-01-01"), date(t, "2024-03-31"), 1, 1, w1, w2, w3)
	cfg.MaxConsecutiveWeekends = 2
	cfg.Restarts = 3

	result, err := NewScheduler(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v := result.Statistics.Violations["weekend_cap"]; v > 0 {
		t.Fatalf("weekend_cap violations = %d, want 0 after repair at level < 2 restarts", v)
	}
}

// Incompatibility: W1 and W2 marked incompatible must never share a date
// across the whole generated schedule.
func TestSchedulerIncompatibilityScenario(t *testing.T) {
	w1 := newWorker("w1", 100)
	w2 := newWorker("w2", 100)
	w3 := newWorker("w3", 100)
	w1.IncompatibleWith["w2"] = struct{}{}
	cfg := baseConfig(date(t, "2024-01-01"), date(t, "2024-01-31"), 2, 1, w1, w2, w3)
	cfg.Restarts = 3

	result, err := NewScheduler(cfg, nil).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for d, slots := range result.State.Schedule {
		hasW1, hasW2 := false, false
		for _, w := range slots {
			if w == "w1" {
				hasW1 = true
			}
			if w == "w2" {
				hasW2 = true
			}
		}
		if hasW1 && hasW2 {
			t.Fatalf("w1 and w2 are both assigned on %v despite being incompatible", d)
		}
	}
}

func TestSchedulerRejectsInvalidConfig(t *testing.T) {
	w1 := newWorker("w1", 100)
	cfg := baseConfig(date(t, "2024-01-10"), date(t, "2024-01-01"), 1, 0, w1)

	_, err := NewScheduler(cfg, nil).Run()
	if err == nil {
		t.Fatal("expected a ConfigError for end_date before start_date")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T: %v", err, err)
	}
}

func TestSchedulerRejectsMandatoryDateOutsideHorizon(t *testing.T) {
	w1 := newWorker("w1", 100)
	w1.MandatoryDays = []time.Time{date(t, "2024-02-01")}
	cfg := baseConfig(date(t, "2024-01-01"), date(t, "2024-01-31"), 1, 0, w1)

	_, err := NewScheduler(cfg, nil).Run()
	if err == nil {
		t.Fatal("expected a DataError for a mandatory date outside the horizon")
	}
	var dataErr *DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("expected *DataError, got %T: %v", err, err)
	}
}
