package engine

import (
	"testing"
	"time"
)

func workerByID(cfg *Config, id string) *Worker {
	for _, w := range cfg.Workers {
		if w.ID == id {
			return w
		}
	}
	return nil
}

// 4 workers at 100/100/50/50, a horizon yielding exactly 60 slots with
// full availability. Expected targets: 20/20/10/10 via largest-remainder,
// no remainder left over.
func TestWorkloadCalculatorProportionalAllocation(t *testing.T) {
	w1 := newWorker("w1", 100)
	w2 := newWorker("w2", 100)
	w3 := newWorker("w3", 50)
	w4 := newWorker("w4", 50)
	// 2024-01-01..2024-02-29 inclusive is 60 days (31+29, 2024 is a leap
	// year); 1 shift/day = 60 slots.
	cfg := baseConfig(date(t, "2024-01-01"), date(t, "2024-02-29"), 1, 3, w1, w2, w3, w4)

	NewWorkloadCalculator(cfg).Compute()

	want := map[string]int{"w1": 20, "w2": 20, "w3": 10, "w4": 10}
	for id, target := range want {
		w := workerByID(cfg, id)
		if w.TargetShifts != target {
			t.Errorf("worker %s target = %d, want %d", id, w.TargetShifts, target)
		}
	}
}

func TestWorkloadCalculatorSubtractsMandatory(t *testing.T) {
	w1 := newWorker("w1", 100)
	w1.MandatoryDays = []time.Time{date(t, "2024-01-01"), date(t, "2024-01-02")}
	w2 := newWorker("w2", 100)
	cfg := baseConfig(date(t, "2024-01-01"), date(t, "2024-01-10"), 1, 0, w1, w2)

	NewWorkloadCalculator(cfg).Compute()

	if w1.TargetShifts >= w2.TargetShifts {
		t.Fatalf("w1 (2 mandatory days) should have a lower non-mandatory target than w2, got w1=%d w2=%d",
			w1.TargetShifts, w2.TargetShifts)
	}
}

func TestWorkloadCalculatorLoneWorkerGetsPositiveTarget(t *testing.T) {
	w1 := newWorker("w1", 100)
	cfg := baseConfig(date(t, "2024-01-01"), date(t, "2024-01-10"), 1, 0, w1)
	NewWorkloadCalculator(cfg).Compute()
	if w1.TargetShifts <= 0 {
		t.Fatalf("expected a positive target for the lone fully available worker, got %d", w1.TargetShifts)
	}
}
