package engine

import (
	"math"
	"time"

	"github.com/wisbric/shiftroster/internal/dateutil"
)

// ConstraintChecker decides whether a candidate (worker, date, post) is
// admissible. CanAssign is used both by the builder (with a relaxation
// level) and by the real-time validator, which always calls it at the
// strict level.
type ConstraintChecker struct {
	state *State
}

// NewConstraintChecker binds a checker to state.
func NewConstraintChecker(state *State) *ConstraintChecker {
	return &ConstraintChecker{state: state}
}

// Relaxation levels, in ascending leniency. Level 0 is used by real-time
// validation; the builder escalates through these during the body pass and
// improvement loop.
const (
	RelaxationStrict  = 0
	RelaxationGapOnly = 1
	RelaxationLoose   = 2
)

// CanAssign verifies, in order, that the slot isn't already occupied by
// this worker, the max-shifts cap, availability, the gap invariants at the
// given relaxation level, incompatibility with whoever already holds a
// post on the date, and the weekend-cap simulation. It returns the first
// failure reason, or (true, "") if admissible.
func (cc *ConstraintChecker) CanAssign(workerID string, d time.Time, post int, level int) (bool, string) {
	s := cc.state
	d = dateutil.Normalize(d)

	w, ok := s.Worker(workerID)
	if !ok {
		return false, "unknown worker"
	}
	if s.IsAssignedOn(workerID, d) {
		return false, "already assigned on this date"
	}
	if s.ShiftCount(workerID) >= w.MaxShifts {
		return false, "max shifts per worker reached"
	}
	if !w.Available(d) {
		return false, "not available on this date"
	}
	if reason, ok := cc.checkGapInvariants(w, d, level); !ok {
		return false, reason
	}
	if reason, ok := cc.checkIncompatibility(w, d); !ok {
		return false, reason
	}
	if exceeds, _ := cc.WouldExceedWeekendCap(workerID, d); exceeds && level < RelaxationLoose {
		return false, "would exceed consecutive weekend cap"
	}
	return true, ""
}

// effectiveGap resolves the configured gap plus a part-time penalty
// (workers under 70% add one day), relaxed by one at level 2, and never
// allowed below a 2-day floor.
func effectiveGap(cfgGap int, w *Worker, level int) int {
	gap := cfgGap
	if w.WorkPercentage < 70 {
		gap++
	}
	if level >= RelaxationLoose && gap > 2 {
		gap--
	}
	if gap < 2 {
		gap = 2
	}
	return gap
}

func daysBetween(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(math.Round(d.Hours() / 24))
}

// checkGapInvariants enforces the minimum gap against every existing
// assignment of w, the Friday/Monday rule (only when the configured gap is
// 1, dropped at level 2), and the 7/14-day same-weekday repeat rule for
// Mon-Thu pairs (dropped at level 2).
func (cc *ConstraintChecker) checkGapInvariants(w *Worker, d time.Time, level int) (string, bool) {
	s := cc.state
	holidays := s.Config.Holidays
	minSeparation := effectiveGap(s.Config.GapBetweenShifts, w, level) + 1

	for _, e := range s.AssignedDates(w.ID) {
		diff := daysBetween(d, e)
		if diff < minSeparation {
			return "minimum gap violation", false
		}
		if level < RelaxationLoose && s.Config.GapBetweenShifts == 1 && diff == 3 {
			wdE := dateutil.EffectiveWeekday(e, holidays)
			wdD := dateutil.EffectiveWeekday(d, holidays)
			if (wdE == 4 && wdD == 0) || (wdE == 0 && wdD == 4) {
				return "friday-monday rule violation", false
			}
		}
		if level < RelaxationLoose && (diff == 7 || diff == 14) {
			wdE := dateutil.EffectiveWeekday(e, holidays)
			wdD := dateutil.EffectiveWeekday(d, holidays)
			if wdE == wdD && wdE <= 3 {
				return "weekday-repeat rule violation", false
			}
		}
	}
	return "", true
}

// checkIncompatibility checks w against every worker already holding a
// post on d, bidirectionally.
func (cc *ConstraintChecker) checkIncompatibility(w *Worker, d time.Time) (string, bool) {
	s := cc.state
	slots := s.Schedule[d]
	for _, other := range slots {
		if other == "" || other == w.ID {
			continue
		}
		if w.IncompatibleWithWorker(other) {
			return "incompatible with " + other, false
		}
		if ow, ok := s.Worker(other); ok && ow.IncompatibleWithWorker(w.ID) {
			return "incompatible with " + other, false
		}
	}
	return "", true
}

// WouldExceedWeekendCap simulates admitting d: form workerID's
// weekend-like assignments plus d (if weekend-like), sort, and greedily
// partition into clusters where consecutive elements are 5-10 days apart.
// It returns whether the largest resulting cluster exceeds the effective
// cap, and that cluster's size.
func (cc *ConstraintChecker) WouldExceedWeekendCap(workerID string, d time.Time) (bool, int) {
	s := cc.state
	w, ok := s.Worker(workerID)
	if !ok {
		return false, 0
	}
	holidays := s.Config.Holidays
	dates := append([]time.Time(nil), s.WeekendDates(workerID)...)
	if dateutil.IsWeekendLike(d, holidays) {
		dates = insertSortedDate(dates, d)
	}
	if len(dates) == 0 {
		return false, 0
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

	cap := effectiveWeekendCap(s.Config.MaxConsecutiveWeekends, w.WorkPercentage)
	return maxRun > cap, maxRun
}

// effectiveWeekendCap scales max_consecutive_weekends down for part-time
// workers (p<70): max(1, floor(cap*p/100)).
func effectiveWeekendCap(cap int, percentage float64) int {
	if percentage >= 70 {
		return cap
	}
	eff := int(math.Floor(float64(cap) * percentage / 100))
	if eff < 1 {
		eff = 1
	}
	return eff
}
