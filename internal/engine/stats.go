package engine

import (
	"math"
	"sort"
)

// WorkerReport is a worker's per-run output summary: total, weekend count,
// target, deviation, post distribution, weekday distribution.
type WorkerReport struct {
	WorkerID            string      `json:"worker_id"`
	Total               int         `json:"total"`
	WeekendCount        int         `json:"weekend_count"`
	Target              int         `json:"target"`
	Deviation           int         `json:"deviation"`
	PostDistribution    map[int]int `json:"post_distribution"`
	WeekdayDistribution map[int]int `json:"weekday_distribution"`
}

// Statistics is emitted on demand and never feeds back into generation
// except through Scheduler's score.
type Statistics struct {
	Coverage      float64        `json:"coverage"`
	BalanceScore  float64        `json:"balance_score"`
	Violations    map[string]int `json:"violations"`
	WorkerReports []WorkerReport `json:"worker_reports"`
}

// ComputeStatistics derives coverage, a bounded balance score, violation
// counts by kind, and the per-worker report from state.
func ComputeStatistics(s *State) Statistics {
	total := s.Config.TotalSlots()
	filled := 0
	for _, slots := range s.Schedule {
		for _, w := range slots {
			if w != "" {
				filled++
			}
		}
	}
	coverage := 0.0
	if total > 0 {
		coverage = float64(filled) / float64(total)
	}

	reports := make([]WorkerReport, 0, len(s.Config.Workers))
	deviations := make([]float64, 0, len(s.Config.Workers))
	for _, w := range s.Config.Workers {
		shiftCount := s.ShiftCount(w.ID)
		deviation := shiftCount - w.TargetShifts
		deviations = append(deviations, float64(deviation))

		postDist := map[int]int{}
		for post := 0; post < s.Config.NumShifts; post++ {
			if c := s.PostCount(w.ID, post); c > 0 {
				postDist[post] = c
			}
		}
		weekdayDist := map[int]int{}
		for wd := 0; wd < 7; wd++ {
			if c := s.WeekdayCount(w.ID, wd); c > 0 {
				weekdayDist[wd] = c
			}
		}

		reports = append(reports, WorkerReport{
			WorkerID:            w.ID,
			Total:               shiftCount,
			WeekendCount:        s.WeekendCount(w.ID),
			Target:              w.TargetShifts,
			Deviation:           deviation,
			PostDistribution:    postDist,
			WeekdayDistribution: weekdayDist,
		})
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].WorkerID < reports[j].WorkerID })

	violations := map[string]int{
		"weekend_cap": weekendCapViolations(s),
	}
	if report := NewDataManager(s).VerifyConsistency(); !report.Clean() {
		violations["index_drift"] = len(report.ScheduleWithoutIndex) + len(report.IndexWithoutSchedule) +
			len(report.WeekendOutOfSync) + len(report.WeekdayOutOfSync)
	}

	return Statistics{
		Coverage:      coverage,
		BalanceScore:  boundedBalanceScore(deviations),
		Violations:    violations,
		WorkerReports: reports,
	}
}

// boundedBalanceScore maps the standard deviation of (shifts-target) across
// workers to (0,1]: perfect balance (stddev 0) scores 1, decaying toward 0
// as the spread grows.
func boundedBalanceScore(deviations []float64) float64 {
	if len(deviations) == 0 {
		return 1
	}
	mean := 0.0
	for _, d := range deviations {
		mean += d
	}
	mean /= float64(len(deviations))

	variance := 0.0
	for _, d := range deviations {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(deviations))

	return 1 / (1 + math.Sqrt(variance))
}
