package engine

import (
	"log/slog"
	"math"
)

// scoreEpsilon is the minimum improvement required before a restart's
// result replaces the current best-known schedule.
const scoreEpsilon = 1e-9

// Scheduler is the multi-restart orchestrator: it drives N restarts with a
// ScheduleBuilder each, scores the result, and keeps the best-scoring
// schedule via whole-state snapshot backup/restore.
type Scheduler struct {
	cfg    *Config
	logger *slog.Logger
}

// NewScheduler binds a scheduler to cfg, logging through logger (or
// slog.Default if nil).
func NewScheduler(cfg *Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{cfg: cfg, logger: logger}
}

// Result bundles a completed run's final state, statistics, and any repair
// warnings raised while restoring the best-known schedule.
type Result struct {
	State      *State
	Statistics Statistics
	Warnings   []string
}

// Run validates cfg, computes per-worker targets, drives the configured
// number of restarts, restores the best-scoring schedule, repairs any
// index drift, and emits statistics.
func (sch *Scheduler) Run() (*Result, error) {
	if err := validateConfig(sch.cfg); err != nil {
		return nil, err
	}

	NewWorkloadCalculator(sch.cfg).Compute()

	restarts := sch.cfg.Restarts
	if restarts <= 0 {
		restarts = 5
	}

	var best *State
	bestScore := math.Inf(-1)

	for attempt := 0; attempt < restarts; attempt++ {
		state := NewState(sch.cfg)
		builder := NewScheduleBuilder(state)
		reverse := attempt%2 == 1
		if err := builder.Run(attempt, reverse, sch.cfg.MaxImprovementIterations); err != nil {
			return nil, err
		}
		score := ComputeScore(state)
		sch.logger.Debug("restart scored", "attempt", attempt, "score", score)
		if score > bestScore+scoreEpsilon {
			bestScore = score
			best = state.Snapshot()
		}
	}

	if best == nil {
		return nil, newSchedulerError("no restart produced a schedule", nil)
	}

	final := NewState(sch.cfg)
	final.Restore(best)

	dm := NewDataManager(final)
	warnings := dm.Repair()
	for _, w := range warnings {
		sch.logger.Warn(w)
	}

	if report := dm.VerifyConsistency(); !report.Clean() {
		return nil, newSchedulerError("unrepairable invariant violation after restore_best", warnings)
	}

	stats := ComputeStatistics(final)
	if stats.Coverage < sch.cfg.MinCoverageThreshold {
		sch.logger.Error("final coverage below threshold", "coverage", stats.Coverage, "threshold", sch.cfg.MinCoverageThreshold)
	}

	return &Result{State: final, Statistics: stats, Warnings: warnings}, nil
}

// ComputeScore combines coverage, post-count imbalance, weekend-cap
// violations, and target deviation into the single weighted figure used to
// compare restarts.
func ComputeScore(s *State) float64 {
	stats := ComputeStatistics(s)
	score := stats.Coverage * 1000
	score -= float64(postImbalance(s)) * 10
	score -= float64(weekendCapViolations(s)) * 500
	score -= targetDeviationSum(s) * 5
	return score
}

func postImbalance(s *State) int {
	total := 0
	for _, counts := range s.Idx.PostWorkerCounts {
		maxC, minC := 0, 0
		first := true
		for _, w := range s.Config.Workers {
			c := counts[w.ID]
			if first {
				maxC, minC, first = c, c, false
				continue
			}
			if c > maxC {
				maxC = c
			}
			if c < minC {
				minC = c
			}
		}
		total += maxC - minC
	}
	return total
}

func weekendCapViolations(s *State) int {
	violations := 0
	for _, w := range s.Config.Workers {
		dates := s.WeekendDates(w.ID)
		if len(dates) == 0 {
			continue
		}
		maxRun, run := 1, 1
		for i := 1; i < len(dates); i++ {
			diff := daysBetween(dates[i], dates[i-1])
			if diff >= 5 && diff <= 10 {
				run++
			} else {
				run = 1
			}
			if run > maxRun {
				maxRun = run
			}
		}
		if maxRun > effectiveWeekendCap(s.Config.MaxConsecutiveWeekends, w.WorkPercentage) {
			violations++
		}
	}
	return violations
}

func targetDeviationSum(s *State) float64 {
	sum := 0.0
	for _, w := range s.Config.Workers {
		diff := s.ShiftCount(w.ID) - w.TargetShifts
		if diff < 0 {
			diff = -diff
		}
		sum += float64(diff)
	}
	return sum
}

// validateConfig enforces the configuration's structural bounds, raised as
// ConfigError before any scheduling work starts.
func validateConfig(cfg *Config) error {
	if cfg.EndDate.Before(cfg.StartDate) {
		return newConfigError("end_date %s is before start_date %s", cfg.EndDate.Format("2006-01-02"), cfg.StartDate.Format("2006-01-02"))
	}
	if cfg.NumShifts < 1 {
		return newConfigError("num_shifts must be >= 1, got %d", cfg.NumShifts)
	}
	if cfg.GapBetweenShifts < 0 {
		return newConfigError("gap_between_shifts must be >= 0, got %d", cfg.GapBetweenShifts)
	}
	if cfg.MaxConsecutiveWeekends < 1 {
		return newConfigError("max_consecutive_weekends must be >= 1, got %d", cfg.MaxConsecutiveWeekends)
	}

	ids := make(map[string]struct{}, len(cfg.Workers))
	for _, w := range cfg.Workers {
		if w.ID == "" {
			return newConfigError("worker id must not be empty")
		}
		if _, dup := ids[w.ID]; dup {
			return newConfigError("duplicate worker id %q", w.ID)
		}
		ids[w.ID] = struct{}{}
		if w.WorkPercentage <= 0 || w.WorkPercentage > 100 {
			return newConfigError("worker %s has invalid work_percentage %.2f (want 0 < p <= 100)", w.ID, w.WorkPercentage)
		}
	}
	for _, w := range cfg.Workers {
		for other := range w.IncompatibleWith {
			if _, ok := ids[other]; !ok {
				return newConfigError("worker %s lists unknown incompatible worker id %q", w.ID, other)
			}
		}
	}
	for _, vs := range cfg.VariableShifts {
		if vs.Shifts < 1 {
			return newConfigError("variable_shifts entry %s..%s has invalid shifts=%d",
				vs.Range.Start.Format("2006-01-02"), vs.Range.End.Format("2006-01-02"), vs.Shifts)
		}
	}
	return nil
}
