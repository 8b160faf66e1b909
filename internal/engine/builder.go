package engine

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/wisbric/shiftroster/internal/dateutil"
)

// epsWorkload is the tolerance the improvement passes use before treating
// two workers' normalized loads as meaningfully different.
const epsWorkload = 1.0

// ScheduleBuilder runs the mandatory lock, priority pass, body pass, and
// improvement loop over a single State. One builder is created per restart
// attempt in the Scheduler.
type ScheduleBuilder struct {
	state  *State
	cc     *ConstraintChecker
	dm     *DataManager
	locked map[time.Time]map[int]struct{}
}

// NewScheduleBuilder wraps state for one restart's worth of building.
func NewScheduleBuilder(state *State) *ScheduleBuilder {
	return &ScheduleBuilder{
		state:  state,
		cc:     NewConstraintChecker(state),
		dm:     NewDataManager(state),
		locked: map[time.Time]map[int]struct{}{},
	}
}

// Run executes the full build sequence for one restart attempt: mandatory
// lock, priority pass over weekend-like dates (forward or reverse order per
// the outer restart), body pass over the remaining chronological slots, and
// the bounded improvement loop.
func (b *ScheduleBuilder) Run(attempt int, reverse bool, maxIterations int) error {
	if err := b.LockMandatory(); err != nil {
		return err
	}
	b.PriorityPass(attempt, reverse)
	b.BodyPass(attempt)
	b.ImprovementLoop(maxIterations)
	return nil
}

// LockMandatory places every worker's mandatory dates at the lowest unused
// post index and marks those slots locked, so later passes never displace
// them. It validates that every mandatory date falls inside the horizon,
// has no duplicates, and pairs no incompatible workers on the same date,
// before placing anything.
func (b *ScheduleBuilder) LockMandatory() error {
	s := b.state
	byDate := map[time.Time][]string{}

	for _, w := range s.Config.Workers {
		seen := map[time.Time]bool{}
		for _, md := range w.MandatoryDays {
			md = dateutil.Normalize(md)
			if md.Before(s.Config.StartDate) || md.After(s.Config.EndDate) {
				return newDataError("worker %s has mandatory date %s outside the horizon", w.ID, md.Format("2006-01-02"))
			}
			if seen[md] {
				return newDataError("worker %s has a duplicate mandatory date %s", w.ID, md.Format("2006-01-02"))
			}
			seen[md] = true
			byDate[md] = append(byDate[md], w.ID)
		}
	}

	for d, ids := range byDate {
		for i := 0; i < len(ids); i++ {
			wi, _ := s.Worker(ids[i])
			for j := i + 1; j < len(ids); j++ {
				wj, _ := s.Worker(ids[j])
				if wi.IncompatibleWithWorker(wj.ID) || wj.IncompatibleWithWorker(wi.ID) {
					return newDataError("workers %s and %s are both mandatory on %s but incompatible", ids[i], ids[j], d.Format("2006-01-02"))
				}
			}
		}
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sortDates(dates)

	for _, d := range dates {
		ids := byDate[d]
		sort.Strings(ids)
		slots := s.Schedule[d]
		for _, wid := range ids {
			if s.IsAssignedOn(wid, d) {
				// Already placed by an earlier LockMandatory call on this
				// state; re-locking is a no-op so the phase stays
				// idempotent.
				if post := b.postOf(wid, d); post >= 0 {
					b.lock(d, post)
				}
				continue
			}
			placed := false
			for post := 0; post < len(slots); post++ {
				if slots[post] == "" {
					if err := b.dm.Assign(wid, d, post); err != nil {
						return err
					}
					b.lock(d, post)
					placed = true
					break
				}
			}
			if !placed {
				return newDataError("no free post to place mandatory worker %s on %s", wid, d.Format("2006-01-02"))
			}
		}
	}
	return nil
}

// PriorityPass fills weekend-like dates first, at strict relaxation, in
// forward or reverse chronological order depending on the restart attempt.
func (b *ScheduleBuilder) PriorityPass(attempt int, reverse bool) {
	dates := weekendLikeDates(b.state.Config)
	if reverse {
		reverseDates(dates)
	}
	for _, d := range dates {
		b.fillDate(d, RelaxationStrict, attempt)
	}
}

// BodyPass fills every remaining empty slot in chronological order, at a
// relaxation level equal to min(attempt, 2).
func (b *ScheduleBuilder) BodyPass(attempt int) {
	level := attempt
	if level > RelaxationLoose {
		level = RelaxationLoose
	}
	for _, d := range b.state.Config.Dates() {
		b.fillDate(d, level, attempt)
	}
}

func (b *ScheduleBuilder) fillDate(d time.Time, level int, attempt int) {
	slots := b.state.Schedule[d]
	for post := range slots {
		if slots[post] != "" || b.isLocked(d, post) {
			continue
		}
		wid, score := b.bestCandidate(d, post, level, attempt)
		if wid == "" || math.IsInf(score, -1) {
			continue
		}
		_ = b.dm.Assign(wid, d, post)
	}
}

// bestCandidate scores every admissible worker for (d, post) at the given
// relaxation level and returns the highest scorer, breaking ties with a
// deterministic shuffle keyed on (attempt, date ordinal, post).
func (b *ScheduleBuilder) bestCandidate(d time.Time, post int, level int, attempt int) (string, float64) {
	s := b.state
	candidates := make([]string, 0, len(s.Config.Workers))
	for _, w := range s.Config.Workers {
		if ok, _ := b.cc.CanAssign(w.ID, d, post, level); ok {
			candidates = append(candidates, w.ID)
		}
	}
	if len(candidates) == 0 {
		return "", math.Inf(-1)
	}
	sort.Strings(candidates)

	seed := int64(attempt) + d.Unix()/86400 + int64(post)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	progress := b.progress()
	best, bestScore := "", math.Inf(-1)
	for _, wid := range candidates {
		score := b.scoreCandidate(wid, d, post, level, progress)
		if score > bestScore {
			bestScore = score
			best = wid
		}
	}
	return best, bestScore
}

// scoreCandidate computes the additive candidate score used to rank every
// admissible worker for a slot.
func (b *ScheduleBuilder) scoreCandidate(workerID string, d time.Time, post int, level int, progress float64) float64 {
	s := b.state
	w, _ := s.Worker(workerID)

	if w.IsMandatory(d) {
		return math.Inf(1)
	}

	// target_shifts is already net of mandatory dates (WorkloadCalculator
	// subtracts them); current non-mandatory shifts must be compared
	// against that same net figure. All mandatory dates are locked in
	// phase 1 before any scoring runs, so reserved_for_future_mandatory
	// is always 0 here.
	nonMandatoryCurrent := s.ShiftCount(workerID) - len(w.MandatoryDays)
	targetRemaining := w.TargetShifts - nonMandatoryCurrent
	if targetRemaining <= 0 {
		if level < RelaxationLoose {
			return math.Inf(-1)
		}
		return -1e9
	}

	score := 1000 * float64(targetRemaining)

	holidays := s.Config.Holidays
	if dateutil.IsWeekendLike(d, holidays) {
		score -= 300 * float64(s.WeekendCount(workerID))
	}

	numShifts := s.Config.NumShiftsFor(d)
	if numShifts > 0 && post == numShifts-1 {
		expected := float64(s.ShiftCount(workerID)+1) / float64(numShifts)
		actual := float64(s.PostCount(workerID, post))
		bonus := (expected - actual) * 1000
		bonus = clamp(bonus, -1000, 1000)
		score += bonus
	}

	if isoWeekBelowAverage(s, workerID, d) {
		score += 500
	}

	score += 500 * progress

	return score
}

func isoWeekBelowAverage(s *State, workerID string, d time.Time) bool {
	_, week := d.ISOWeek()
	inWeek := 0
	weeks := map[int]struct{}{}
	for _, ad := range s.AssignedDates(workerID) {
		_, wk := ad.ISOWeek()
		weeks[wk] = struct{}{}
		if wk == week {
			inWeek++
		}
	}
	if len(weeks) == 0 {
		return true
	}
	avg := float64(s.ShiftCount(workerID)) / float64(len(weeks))
	return float64(inWeek) < avg
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (b *ScheduleBuilder) progress() float64 {
	s := b.state
	total := s.Config.TotalSlots()
	if total == 0 {
		return 0
	}
	filled := 0
	for _, slots := range s.Schedule {
		for _, w := range slots {
			if w != "" {
				filled++
			}
		}
	}
	return float64(filled) / float64(total)
}

func (b *ScheduleBuilder) isLocked(d time.Time, post int) bool {
	_, ok := b.locked[d][post]
	return ok
}

func (b *ScheduleBuilder) lock(d time.Time, post int) {
	if b.locked[d] == nil {
		b.locked[d] = map[int]struct{}{}
	}
	b.locked[d][post] = struct{}{}
}

func (b *ScheduleBuilder) postOf(workerID string, d time.Time) int {
	for post, wid := range b.state.Schedule[d] {
		if wid == workerID {
			return post
		}
	}
	return -1
}

func weekendLikeDates(cfg *Config) []time.Time {
	var dates []time.Time
	for _, d := range cfg.Dates() {
		if dateutil.IsWeekendLike(d, cfg.Holidays) {
			dates = append(dates, d)
		}
	}
	return dates
}

func reverseDates(dates []time.Time) {
	for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
		dates[i], dates[j] = dates[j], dates[i]
	}
}

// ImprovementLoop runs the seven named passes in order, repeating until
// none of them change the schedule or maxIterations is reached (default
// 70).
func (b *ScheduleBuilder) ImprovementLoop(maxIterations int) {
	if maxIterations <= 0 {
		maxIterations = 70
	}
	for i := 0; i < maxIterations; i++ {
		changed := 0
		changed += b.tryFillEmpty()
		changed += b.balanceWorkloads()
		changed += b.improvePostRotation()
		changed += b.improveWeekendDistribution()
		changed += b.fixIncompatibility()
		changed += b.balanceLastPost()
		changed += b.balanceWeekdayDistribution()
		if changed == 0 {
			break
		}
	}
}

// tryFillEmpty scans every empty, unlocked slot and attempts a strict
// assignment.
func (b *ScheduleBuilder) tryFillEmpty() int {
	s := b.state
	changed := 0
	for _, d := range s.Config.Dates() {
		slots := s.Schedule[d]
		for post := range slots {
			if slots[post] != "" || b.isLocked(d, post) {
				continue
			}
			wid, score := b.bestCandidate(d, post, RelaxationStrict, 0)
			if wid != "" && !math.IsInf(score, -1) {
				_ = b.dm.Assign(wid, d, post)
				changed++
			}
		}
	}
	return changed
}

// balanceWorkloads finds workers over/under their normalized quota
// (shifts*100/percentage) and moves one non-mandatory assignment from an
// over-worker to an under-worker where the move is admissible.
func (b *ScheduleBuilder) balanceWorkloads() int {
	s := b.state
	changed := 0
	normalized := func(w *Worker) float64 {
		if w.WorkPercentage <= 0 {
			return 0
		}
		return float64(s.ShiftCount(w.ID)) * 100 / w.WorkPercentage
	}
	for _, over := range s.Config.Workers {
		for _, under := range s.Config.Workers {
			if over.ID == under.ID {
				continue
			}
			if normalized(over) <= normalized(under)+epsWorkload {
				continue
			}
			if b.moveOneAssignment(over, under) {
				changed++
			}
		}
	}
	return changed
}

func (b *ScheduleBuilder) moveOneAssignment(from, to *Worker) bool {
	s := b.state
	for _, d := range s.AssignedDates(from.ID) {
		if from.IsMandatory(d) {
			continue
		}
		post := b.postOf(from.ID, d)
		if post < 0 || b.isLocked(d, post) {
			continue
		}
		_ = b.dm.Unassign(d, post)
		if ok, _ := b.cc.CanAssign(to.ID, d, post, RelaxationGapOnly); ok {
			_ = b.dm.Assign(to.ID, d, post)
			return true
		}
		_ = b.dm.Assign(from.ID, d, post)
	}
	return false
}

// improvePostRotation finds, per worker, the most- and least-held posts
// and tries to relocate one over-held assignment to a same-worker slot at
// the least-held post on a different date.
func (b *ScheduleBuilder) improvePostRotation() int {
	s := b.state
	changed := 0
	maxPosts := s.Config.NumShifts
	if maxPosts <= 0 {
		return 0
	}
	for _, w := range s.Config.Workers {
		counts := make([]int, maxPosts)
		for p := 0; p < maxPosts; p++ {
			counts[p] = s.PostCount(w.ID, p)
		}
		over, under := argmax(counts), argmin(counts)
		if counts[over]-counts[under] < 2 {
			continue
		}
		for _, d := range s.AssignedDates(w.ID) {
			if w.IsMandatory(d) {
				continue
			}
			post := b.postOf(w.ID, d)
			if post != over || b.isLocked(d, post) {
				continue
			}
			if b.relocateToPost(w.ID, d, post, under) {
				changed++
				break
			}
		}
	}
	return changed
}

func (b *ScheduleBuilder) relocateToPost(workerID string, fromDate time.Time, fromPost int, targetPost int) bool {
	s := b.state
	_ = b.dm.Unassign(fromDate, fromPost)
	for _, d := range s.Config.Dates() {
		if d.Equal(fromDate) {
			continue
		}
		slots := s.Schedule[d]
		if targetPost >= len(slots) || slots[targetPost] != "" || b.isLocked(d, targetPost) {
			continue
		}
		if ok, _ := b.cc.CanAssign(workerID, d, targetPost, RelaxationGapOnly); ok {
			_ = b.dm.Assign(workerID, d, targetPost)
			return true
		}
	}
	_ = b.dm.Assign(workerID, fromDate, fromPost)
	return false
}

func monthKey(d time.Time) string { return d.Format("2006-01") }

// improveWeekendDistribution moves excess weekend assignments, per
// calendar month, from workers above the month's average to workers below
// it.
func (b *ScheduleBuilder) improveWeekendDistribution() int {
	s := b.state
	changed := 0

	byMonth := map[string][]time.Time{}
	for _, d := range s.Config.Dates() {
		if dateutil.IsWeekendLike(d, s.Config.Holidays) {
			byMonth[monthKey(d)] = append(byMonth[monthKey(d)], d)
		}
	}
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	for _, m := range months {
		dates := byMonth[m]
		counts := map[string]int{}
		for _, w := range s.Config.Workers {
			counts[w.ID] = 0
		}
		for _, d := range dates {
			for _, wid := range s.Schedule[d] {
				if wid != "" {
					counts[wid]++
				}
			}
		}
		avg := averageInt(counts)
		for _, over := range s.Config.Workers {
			if float64(counts[over.ID]) <= avg+epsWorkload {
				continue
			}
			for _, under := range s.Config.Workers {
				if over.ID == under.ID || float64(counts[under.ID]) >= avg-epsWorkload {
					continue
				}
				if b.moveWeekendAssignmentInMonth(over.ID, under.ID, dates) {
					changed++
					counts[over.ID]--
					counts[under.ID]++
					break
				}
			}
		}
	}
	return changed
}

func (b *ScheduleBuilder) moveWeekendAssignmentInMonth(fromID, toID string, dates []time.Time) bool {
	s := b.state
	from, _ := s.Worker(fromID)
	for _, d := range dates {
		if from.IsMandatory(d) {
			continue
		}
		post := b.postOf(fromID, d)
		if post < 0 || b.isLocked(d, post) {
			continue
		}
		_ = b.dm.Unassign(d, post)
		if ok, _ := b.cc.CanAssign(toID, d, post, RelaxationGapOnly); ok {
			_ = b.dm.Assign(toID, d, post)
			return true
		}
		_ = b.dm.Assign(fromID, d, post)
	}
	return false
}

// fixIncompatibility relocates (or, failing that, unassigns) one worker of
// every co-assigned pair that violates an incompatibility declaration.
func (b *ScheduleBuilder) fixIncompatibility() int {
	s := b.state
	changed := 0
	for _, d := range s.Config.Dates() {
		slots := s.Schedule[d]
		for i := 0; i < len(slots); i++ {
			wi := slots[i]
			if wi == "" {
				continue
			}
			wInfo, ok := s.Worker(wi)
			if !ok {
				continue
			}
			for j := i + 1; j < len(slots); j++ {
				wj := slots[j]
				if wj == "" {
					continue
				}
				conflict := wInfo.IncompatibleWithWorker(wj)
				if !conflict {
					if other, ok := s.Worker(wj); ok {
						conflict = other.IncompatibleWithWorker(wi)
					}
				}
				if conflict && b.relocateOrUnassign(wj, d, j) {
					changed++
				}
			}
		}
	}
	return changed
}

func (b *ScheduleBuilder) relocateOrUnassign(workerID string, d time.Time, post int) bool {
	if b.isLocked(d, post) {
		return false
	}
	w, ok := b.state.Worker(workerID)
	if !ok || w.IsMandatory(d) {
		return false
	}
	_ = b.dm.Unassign(d, post)
	for _, d2 := range b.state.Config.Dates() {
		if d2.Equal(d) {
			continue
		}
		slots := b.state.Schedule[d2]
		for p2 := range slots {
			if slots[p2] != "" || b.isLocked(d2, p2) {
				continue
			}
			if ok, _ := b.cc.CanAssign(workerID, d2, p2, RelaxationGapOnly); ok {
				_ = b.dm.Assign(workerID, d2, p2)
				return true
			}
		}
	}
	return true
}

// balanceLastPost relocates, for each worker whose highest-post-index count
// exceeds total_shifts(w)/num_shifts + 1, one last-post assignment to a
// free lower post on the same date. Workers below that target are not
// moved onto the last post.
func (b *ScheduleBuilder) balanceLastPost() int {
	s := b.state
	changed := 0
	lastPost := s.Config.NumShifts - 1
	if lastPost < 0 {
		return 0
	}
	for _, w := range s.Config.Workers {
		target := float64(s.ShiftCount(w.ID)) / float64(s.Config.NumShifts)
		actual := s.PostCount(w.ID, lastPost)
		if float64(actual) <= target+1 {
			continue
		}
		for _, d := range s.AssignedDates(w.ID) {
			if w.IsMandatory(d) {
				continue
			}
			post := b.postOf(w.ID, d)
			if post != lastPost || b.isLocked(d, post) {
				continue
			}
			if b.relocateToAnyOtherPost(w.ID, d, post) {
				changed++
				break
			}
		}
	}
	return changed
}

func (b *ScheduleBuilder) relocateToAnyOtherPost(workerID string, d time.Time, fromPost int) bool {
	s := b.state
	_ = b.dm.Unassign(d, fromPost)
	slots := s.Schedule[d]
	for p := range slots {
		if p == fromPost || slots[p] != "" {
			continue
		}
		if ok, _ := b.cc.CanAssign(workerID, d, p, RelaxationGapOnly); ok {
			_ = b.dm.Assign(workerID, d, p)
			return true
		}
	}
	_ = b.dm.Assign(workerID, d, fromPost)
	return false
}

// balanceWeekdayDistribution enforces max_weekday_count-min_weekday_count
// <= 2 per worker by relocating one overloaded-weekday assignment to the
// underloaded weekday.
func (b *ScheduleBuilder) balanceWeekdayDistribution() int {
	s := b.state
	changed := 0
	for _, w := range s.Config.Workers {
		counts := make([]int, 7)
		for wd := 0; wd < 7; wd++ {
			counts[wd] = s.WeekdayCount(w.ID, wd)
		}
		maxWd, minWd := argmax(counts), argmin(counts)
		if counts[maxWd]-counts[minWd] <= 2 {
			continue
		}
		for _, d := range s.AssignedDates(w.ID) {
			if w.IsMandatory(d) {
				continue
			}
			if dateutil.EffectiveWeekday(d, s.Config.Holidays) != maxWd {
				continue
			}
			post := b.postOf(w.ID, d)
			if post < 0 || b.isLocked(d, post) {
				continue
			}
			if b.relocateToWeekday(w.ID, d, post, minWd) {
				changed++
				break
			}
		}
	}
	return changed
}

func (b *ScheduleBuilder) relocateToWeekday(workerID string, fromDate time.Time, fromPost int, targetWeekday int) bool {
	s := b.state
	_ = b.dm.Unassign(fromDate, fromPost)
	for _, d := range s.Config.Dates() {
		if dateutil.EffectiveWeekday(d, s.Config.Holidays) != targetWeekday {
			continue
		}
		slots := s.Schedule[d]
		for p := range slots {
			if slots[p] != "" || b.isLocked(d, p) {
				continue
			}
			if ok, _ := b.cc.CanAssign(workerID, d, p, RelaxationGapOnly); ok {
				_ = b.dm.Assign(workerID, d, p)
				return true
			}
		}
	}
	_ = b.dm.Assign(workerID, fromDate, fromPost)
	return false
}

func argmax(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}

func argmin(counts []int) int {
	best := 0
	for i, c := range counts {
		if c < counts[best] {
			best = i
		}
	}
	return best
}

func averageInt(m map[string]int) float64 {
	if len(m) == 0 {
		return 0
	}
	total := 0
	for _, v := range m {
		total += v
	}
	return float64(total) / float64(len(m))
}
