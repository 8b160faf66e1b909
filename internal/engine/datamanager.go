package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/wisbric/shiftroster/internal/dateutil"
)

// DataManager is the only mutation surface over a State's schedule and
// indexes: Assign and Unassign update both sides of the bidirectional
// relation atomically, and VerifyConsistency/Repair detect and fix drift
// between them.
type DataManager struct {
	state *State
}

// NewDataManager wraps state for mutation.
func NewDataManager(state *State) *DataManager {
	return &DataManager{state: state}
}

// Assign places workerID at (d, post), updating schedule and every index.
// It fails if the slot is out of range or already occupied.
func (dm *DataManager) Assign(workerID string, d time.Time, post int) error {
	s := dm.state
	d = dateutil.Normalize(d)
	slots, ok := s.Schedule[d]
	if !ok {
		return newDataError("assign: %s is outside the schedule horizon", d.Format("2006-01-02"))
	}
	if post < 0 || post >= len(slots) {
		return newDataError("assign: post %d out of range on %s", post, d.Format("2006-01-02"))
	}
	if slots[post] != "" {
		return newDataError("assign: post %d on %s already held by %s", post, d.Format("2006-01-02"), slots[post])
	}
	slots[post] = workerID
	dm.index(workerID, d, post)
	return nil
}

// Unassign clears (d, post), updating schedule and every index. It is a
// no-op (returns nil) if the slot was already empty.
func (dm *DataManager) Unassign(d time.Time, post int) error {
	s := dm.state
	d = dateutil.Normalize(d)
	slots, ok := s.Schedule[d]
	if !ok {
		return newDataError("unassign: %s is outside the schedule horizon", d.Format("2006-01-02"))
	}
	if post < 0 || post >= len(slots) {
		return newDataError("unassign: post %d out of range on %s", post, d.Format("2006-01-02"))
	}
	workerID := slots[post]
	if workerID == "" {
		return nil
	}
	slots[post] = ""
	dm.deindex(workerID, d, post)
	return nil
}

// index updates every tracking index for a new (workerID, d, post)
// assignment. It does not touch the schedule itself.
func (dm *DataManager) index(workerID string, d time.Time, post int) {
	s := dm.state
	idx := s.Idx

	if idx.WorkerAssignments[workerID] == nil {
		idx.WorkerAssignments[workerID] = map[time.Time]struct{}{}
	}
	idx.WorkerAssignments[workerID][d] = struct{}{}

	if idx.WorkerPosts[workerID] == nil {
		idx.WorkerPosts[workerID] = map[int]struct{}{}
	}
	idx.WorkerPosts[workerID][post] = struct{}{}

	wd := dateutil.EffectiveWeekday(d, s.Config.Holidays)
	if idx.WorkerWeekdays[workerID] == nil {
		idx.WorkerWeekdays[workerID] = map[int]int{}
	}
	idx.WorkerWeekdays[workerID][wd]++

	if dateutil.IsWeekendLike(d, s.Config.Holidays) {
		idx.WorkerWeekends[workerID] = insertSortedDate(idx.WorkerWeekends[workerID], d)
	}

	if idx.PostWorkerCounts[post] == nil {
		idx.PostWorkerCounts[post] = map[string]int{}
	}
	idx.PostWorkerCounts[post][workerID]++
}

// deindex is the inverse of index: it removes (workerID, d, post) from
// every tracking index, cleaning up empty entries.
func (dm *DataManager) deindex(workerID string, d time.Time, post int) {
	s := dm.state
	idx := s.Idx

	delete(idx.WorkerAssignments[workerID], d)
	if len(idx.WorkerAssignments[workerID]) == 0 {
		delete(idx.WorkerAssignments, workerID)
	}

	stillHoldsPost := false
	for date, slots := range s.Schedule {
		if date.Equal(d) {
			continue
		}
		if post < len(slots) && slots[post] == workerID {
			stillHoldsPost = true
			break
		}
	}
	if !stillHoldsPost {
		delete(idx.WorkerPosts[workerID], post)
		if len(idx.WorkerPosts[workerID]) == 0 {
			delete(idx.WorkerPosts, workerID)
		}
	}

	wd := dateutil.EffectiveWeekday(d, s.Config.Holidays)
	if idx.WorkerWeekdays[workerID] != nil {
		idx.WorkerWeekdays[workerID][wd]--
		if idx.WorkerWeekdays[workerID][wd] <= 0 {
			delete(idx.WorkerWeekdays[workerID], wd)
		}
		if len(idx.WorkerWeekdays[workerID]) == 0 {
			delete(idx.WorkerWeekdays, workerID)
		}
	}

	if dateutil.IsWeekendLike(d, s.Config.Holidays) {
		idx.WorkerWeekends[workerID] = removeDate(idx.WorkerWeekends[workerID], d)
		if len(idx.WorkerWeekends[workerID]) == 0 {
			delete(idx.WorkerWeekends, workerID)
		}
	}

	if idx.PostWorkerCounts[post] != nil {
		idx.PostWorkerCounts[post][workerID]--
		if idx.PostWorkerCounts[post][workerID] <= 0 {
			delete(idx.PostWorkerCounts[post], workerID)
		}
		if len(idx.PostWorkerCounts[post]) == 0 {
			delete(idx.PostWorkerCounts, post)
		}
	}
}

func insertSortedDate(dates []time.Time, d time.Time) []time.Time {
	i := sort.Search(len(dates), func(i int) bool { return !dates[i].Before(d) })
	if i < len(dates) && dates[i].Equal(d) {
		return dates
	}
	dates = append(dates, time.Time{})
	copy(dates[i+1:], dates[i:])
	dates[i] = d
	return dates
}

func removeDate(dates []time.Time, d time.Time) []time.Time {
	for i, cur := range dates {
		if cur.Equal(d) {
			return append(dates[:i], dates[i+1:]...)
		}
	}
	return dates
}

// ConsistencyReport enumerates the four classes of schedule/index drift.
type ConsistencyReport struct {
	ScheduleWithoutIndex []Assignment
	IndexWithoutSchedule []Assignment
	WeekendOutOfSync     []string
	WeekdayOutOfSync     []string
}

// Clean reports whether no drift was found.
func (r ConsistencyReport) Clean() bool {
	return len(r.ScheduleWithoutIndex) == 0 && len(r.IndexWithoutSchedule) == 0 &&
		len(r.WeekendOutOfSync) == 0 && len(r.WeekdayOutOfSync) == 0
}

// VerifyConsistency compares the schedule against the indexes and reports
// every discrepancy found, without mutating anything.
func (dm *DataManager) VerifyConsistency() ConsistencyReport {
	s := dm.state
	var report ConsistencyReport

	fromSchedule := map[string]map[time.Time]struct{}{}
	dates := make([]time.Time, 0, len(s.Schedule))
	for d := range s.Schedule {
		dates = append(dates, d)
	}
	sortDates(dates)

	for _, d := range dates {
		slots := s.Schedule[d]
		for post, w := range slots {
			if w == "" {
				continue
			}
			if fromSchedule[w] == nil {
				fromSchedule[w] = map[time.Time]struct{}{}
			}
			fromSchedule[w][d] = struct{}{}
			if _, ok := s.Idx.WorkerAssignments[w][d]; !ok {
				report.ScheduleWithoutIndex = append(report.ScheduleWithoutIndex, Assignment{WorkerID: w, Date: d, Post: post})
			}
		}
	}

	workerIDs := make([]string, 0, len(s.Idx.WorkerAssignments))
	for w := range s.Idx.WorkerAssignments {
		workerIDs = append(workerIDs, w)
	}
	sort.Strings(workerIDs)

	for _, w := range workerIDs {
		for d := range s.Idx.WorkerAssignments[w] {
			if _, ok := fromSchedule[w][d]; !ok {
				report.IndexWithoutSchedule = append(report.IndexWithoutSchedule, Assignment{WorkerID: w, Date: d})
			}
		}
	}

	for _, w := range workerIDs {
		if !sameWeekendSet(fromSchedule[w], s.Idx.WorkerWeekends[w], s.Config.Holidays) {
			report.WeekendOutOfSync = append(report.WeekendOutOfSync, w)
		}
		if !sameWeekdayCounts(fromSchedule[w], s.Idx.WorkerWeekdays[w], s.Config.Holidays) {
			report.WeekdayOutOfSync = append(report.WeekdayOutOfSync, w)
		}
	}

	return report
}

func sameWeekendSet(assigned map[time.Time]struct{}, tracked []time.Time, holidays map[time.Time]struct{}) bool {
	expected := map[time.Time]struct{}{}
	for d := range assigned {
		if dateutil.IsWeekendLike(d, holidays) {
			expected[d] = struct{}{}
		}
	}
	if len(expected) != len(tracked) {
		return false
	}
	for _, d := range tracked {
		if _, ok := expected[d]; !ok {
			return false
		}
	}
	return true
}

func sameWeekdayCounts(assigned map[time.Time]struct{}, tracked map[int]int, holidays map[time.Time]struct{}) bool {
	expected := map[int]int{}
	for d := range assigned {
		expected[dateutil.EffectiveWeekday(d, holidays)]++
	}
	if len(expected) != len(tracked) {
		return false
	}
	for wd, count := range expected {
		if tracked[wd] != count {
			return false
		}
	}
	return true
}

// Repair rewrites every index from the schedule (ground truth) and returns
// a human-readable warning per discrepancy found. It is a no-op (and
// returns no warnings) when VerifyConsistency already reports clean.
func (dm *DataManager) Repair() []string {
	report := dm.VerifyConsistency()
	if report.Clean() {
		return nil
	}

	var warnings []string
	for _, a := range report.ScheduleWithoutIndex {
		warnings = append(warnings, fmt.Sprintf(
			"repair: %s assigned post %d on %s in schedule but missing from worker_assignments",
			a.WorkerID, a.Post, a.Date.Format("2006-01-02")))
	}
	for _, a := range report.IndexWithoutSchedule {
		warnings = append(warnings, fmt.Sprintf(
			"repair: worker_assignments[%s] claims %s but schedule has no matching slot",
			a.WorkerID, a.Date.Format("2006-01-02")))
	}
	for _, w := range report.WeekendOutOfSync {
		warnings = append(warnings, fmt.Sprintf("repair: worker_weekends[%s] out of sync with schedule", w))
	}
	for _, w := range report.WeekdayOutOfSync {
		warnings = append(warnings, fmt.Sprintf("repair: worker_weekdays[%s] out of sync with schedule", w))
	}

	dm.rebuildFromSchedule()
	return warnings
}

func (dm *DataManager) rebuildFromSchedule() {
	s := dm.state
	s.Idx = newIndexes()
	dates := make([]time.Time, 0, len(s.Schedule))
	for d := range s.Schedule {
		dates = append(dates, d)
	}
	sortDates(dates)
	for _, d := range dates {
		for post, w := range s.Schedule[d] {
			if w == "" {
				continue
			}
			dm.index(w, d, post)
		}
	}
}
