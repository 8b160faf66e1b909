package engine

import "testing"

func TestCanAssignRejectsDoubleBooking(t *testing.T) {
	w1 := newWorker("w1", 100)
	cfg := baseConfig(date(t, "2024-01-01"), date(t, "2024-01-10"), 1, 3, w1)
	NewWorkloadCalculator(cfg).Compute()
	s := NewState(cfg)
	dm := NewDataManager(s)
	cc := NewConstraintChecker(s)

	d := date(t, "2024-01-01")
	if err := dm.Assign("w1", d, 0); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if ok, reason := cc.CanAssign("w1", d, 0, RelaxationStrict); ok {
		t.Fatalf("CanAssign should reject double booking, got ok with reason %q", reason)
	}
}

func TestCanAssignEnforcesMinimumGap(t *testing.T) {
	w1 := newWorker("w1", 100)
	cfg := baseConfig(date(t, "2024-01-01"), date(t, "2024-01-31"), 1, 2, w1)
	NewWorkloadCalculator(cfg).Compute()
	s := NewState(cfg)
	dm := NewDataManager(s)
	cc := NewConstraintChecker(s)

	if err := dm.Assign("w1", date(t, "2024-01-01"), 0); err != nil {
		t.Fatal(err)
	}
	// gap=2 => minimum separation 3 days; 2024-01-03 is only 2 days away.
	if ok, _ := cc.CanAssign("w1", date(t, "2024-01-03"), 0, RelaxationStrict); ok {
		t.Fatalf("CanAssign should reject assignment inside the gap window")
	}
	if ok, reason := cc.CanAssign("w1", date(t, "2024-01-04"), 0, RelaxationStrict); !ok {
		t.Fatalf("CanAssign should accept assignment at the gap boundary, got reason %q", reason)
	}
}

func TestCanAssignWeekdayRepeatRule(t *testing.T) {
	w1 := newWorker("w1", 100)
	cfg := baseConfig(date(t, "2024-01-01"), date(t, "2024-01-31"), 1, 0, w1)
	NewWorkloadCalculator(cfg).Compute()
	s := NewState(cfg)
	dm := NewDataManager(s)
	cc := NewConstraintChecker(s)

	// Mon 2024-01-01.
	if err := dm.Assign("w1", date(t, "2024-01-01"), 0); err != nil {
		t.Fatal(err)
	}
	// Mon 2024-01-08 is 7 days later, same weekday, both weekdays: forbidden.
	if ok, _ := cc.CanAssign("w1", date(t, "2024-01-08"), 0, RelaxationStrict); ok {
		t.Fatalf("CanAssign should reject the 7-day same-weekday repeat")
	}
	// Mon 2024-01-15 is 14 days later: forbidden too.
	if ok, _ := cc.CanAssign("w1", date(t, "2024-01-15"), 0, RelaxationStrict); ok {
		t.Fatalf("CanAssign should reject the 14-day same-weekday repeat")
	}
	// Fri 2024-01-12 is 11 days from 01-01: clear of both the gap and the
	// 7/14-day same-weekday rule.
	if ok, reason := cc.CanAssign("w1", date(t, "2024-01-12"), 0, RelaxationStrict); !ok {
		t.Fatalf("CanAssign should accept a date clear of the gap and weekday-repeat rules, got reason %q", reason)
	}
	// At relaxation level 2 the rule is dropped entirely.
	if ok, reason := cc.CanAssign("w1", date(t, "2024-01-15"), 0, RelaxationLoose); !ok {
		t.Fatalf("CanAssign at level 2 should allow the 14-day repeat, got reason %q", reason)
	}
}

func TestWouldExceedWeekendCap(t *testing.T) {
	w1 := newWorker("w1", 100)
	cfg := baseConfig(date(t, "2024-01-01"), date(t, "2024-02-29"), 1, 0, w1)
	cfg.MaxConsecutiveWeekends = 2
	NewWorkloadCalculator(cfg).Compute()
	s := NewState(cfg)
	dm := NewDataManager(s)
	cc := NewConstraintChecker(s)

	// Two consecutive Saturdays, 7 days apart (within the 5-10 day window).
	if err := dm.Assign("w1", date(t, "2024-01-06"), 0); err != nil {
		t.Fatal(err)
	}
	if err := dm.Assign("w1", date(t, "2024-01-13"), 0); err != nil {
		t.Fatal(err)
	}
	exceeds, run := cc.WouldExceedWeekendCap("w1", date(t, "2024-01-20"))
	if !exceeds {
		t.Fatalf("expected the third consecutive weekend to exceed the cap, got run=%d", run)
	}
	if ok, reason := cc.CanAssign("w1", date(t, "2024-01-20"), 0, RelaxationStrict); ok {
		t.Fatalf("CanAssign should reject the third consecutive weekend, reason=%q", reason)
	}
}

func TestCanAssignIncompatibility(t *testing.T) {
	w1 := newWorker("w1", 100)
	w2 := newWorker("w2", 100)
	w1.IncompatibleWith["w2"] = struct{}{}
	cfg := baseConfig(date(t, "2024-01-01"), date(t, "2024-01-10"), 2, 0, w1, w2)
	NewWorkloadCalculator(cfg).Compute()
	s := NewState(cfg)
	dm := NewDataManager(s)
	cc := NewConstraintChecker(s)

	d := date(t, "2024-01-01")
	if err := dm.Assign("w1", d, 0); err != nil {
		t.Fatal(err)
	}
	if ok, reason := cc.CanAssign("w2", d, 1, RelaxationStrict); ok {
		t.Fatalf("CanAssign should reject incompatible co-assignment, got ok with reason %q", reason)
	}
}
