package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/wisbric/shiftroster/internal/dateutil"
	"github.com/wisbric/shiftroster/internal/engine"
)

// Normalize converts a validated RunConfig into an engine.Config, parsing
// every date field with dateutil. Malformed date-list entries are logged
// as warnings and skipped rather than failing the whole run, matching the
// parse-and-skip policy for range strings.
func (rc *RunConfig) Normalize(logger *slog.Logger) (*engine.Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	start, err := dateutil.ParseDate(rc.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	end, err := dateutil.ParseDate(rc.EndDate)
	if err != nil {
		return nil, fmt.Errorf("end_date: %w", err)
	}

	holidays := map[time.Time]struct{}{}
	for _, h := range rc.Holidays {
		d, err := dateutil.ParseDate(h)
		if err != nil {
			logger.Warn("skipping malformed holiday entry", "value", h, "error", err)
			continue
		}
		holidays[d] = struct{}{}
	}

	var variableShifts []engine.VariableShift
	for _, vs := range rc.VariableShifts {
		startD, err := dateutil.ParseDate(vs.Start)
		if err != nil {
			logger.Warn("skipping malformed variable_shifts entry", "start", vs.Start, "error", err)
			continue
		}
		endD, err := dateutil.ParseDate(vs.End)
		if err != nil {
			logger.Warn("skipping malformed variable_shifts entry", "end", vs.End, "error", err)
			continue
		}
		variableShifts = append(variableShifts, engine.VariableShift{
			Range:  dateutil.Range{Start: startD, End: endD},
			Shifts: vs.Shifts,
		})
	}

	workers := make([]*engine.Worker, 0, len(rc.Workers))
	for _, w := range rc.Workers {
		ew := &engine.Worker{
			ID:               w.ID,
			WorkPercentage:   w.WorkPercentage,
			IncompatibleWith: map[string]struct{}{},
		}
		for _, id := range w.IncompatibleWith {
			ew.IncompatibleWith[id] = struct{}{}
		}
		for _, s := range w.WorkPeriods {
			ranges, errs := dateutil.ParseRanges(s)
			for _, e := range errs {
				logger.Warn("skipping malformed work_periods entry", "worker", w.ID, "error", e)
			}
			ew.WorkPeriods = append(ew.WorkPeriods, ranges...)
		}
		for _, s := range w.DaysOff {
			ranges, errs := dateutil.ParseRanges(s)
			for _, e := range errs {
				logger.Warn("skipping malformed days_off entry", "worker", w.ID, "error", e)
			}
			ew.DaysOff = append(ew.DaysOff, ranges...)
		}
		for _, s := range w.MandatoryDays {
			dates, errs := dateutil.ParseDates(s)
			for _, e := range errs {
				logger.Warn("skipping malformed mandatory_days entry", "worker", w.ID, "error", e)
			}
			ew.MandatoryDays = append(ew.MandatoryDays, dates...)
		}
		workers = append(workers, ew)
	}

	return &engine.Config{
		StartDate:                start,
		EndDate:                  end,
		NumShifts:                rc.NumShifts,
		VariableShifts:           variableShifts,
		GapBetweenShifts:         rc.GapBetweenShifts,
		MaxConsecutiveWeekends:   rc.MaxConsecutiveWeekends,
		Holidays:                 holidays,
		Workers:                  workers,
		MaxShiftsBuffer:          rc.MaxShiftsBuffer,
		MinCoverageThreshold:     rc.MinCoverageThreshold,
		MaxImprovementIterations: rc.MaxImprovementIterations,
		Restarts:                 rc.Restarts,
		Seed:                     rc.Seed,
	}, nil
}
