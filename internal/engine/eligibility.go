package engine

import (
	"sort"
	"time"
)

// The functions in this file are cheap, read-only lookups over the
// tracking indexes, used heavily by ConstraintChecker and the builder's
// scoring function. They never mutate State; DataManager is the only
// mutation surface.

// ShiftCount returns the number of dates currently assigned to workerID.
func (s *State) ShiftCount(workerID string) int {
	return len(s.Idx.WorkerAssignments[workerID])
}

// LastWorkedDate returns the most recent date assigned to workerID.
func (s *State) LastWorkedDate(workerID string) (time.Time, bool) {
	var last time.Time
	found := false
	for d := range s.Idx.WorkerAssignments[workerID] {
		if !found || d.After(last) {
			last = d
			found = true
		}
	}
	return last, found
}

// IsAssignedOn reports whether workerID already holds some post on d.
func (s *State) IsAssignedOn(workerID string, d time.Time) bool {
	_, ok := s.Idx.WorkerAssignments[workerID][d]
	return ok
}

// AssignedDates returns workerID's assigned dates, sorted ascending.
func (s *State) AssignedDates(workerID string) []time.Time {
	dates := make([]time.Time, 0, len(s.Idx.WorkerAssignments[workerID]))
	for d := range s.Idx.WorkerAssignments[workerID] {
		dates = append(dates, d)
	}
	sortDates(dates)
	return dates
}

// WeekendCount returns how many of workerID's assignments are weekend-like.
func (s *State) WeekendCount(workerID string) int {
	return len(s.Idx.WorkerWeekends[workerID])
}

// WeekendDates returns workerID's weekend-like assignments, sorted
// ascending (the index is maintained sorted at insertion time).
func (s *State) WeekendDates(workerID string) []time.Time {
	return s.Idx.WorkerWeekends[workerID]
}

// PostCount returns how many times workerID has held post.
func (s *State) PostCount(workerID string, post int) int {
	return s.Idx.PostWorkerCounts[post][workerID]
}

// WeekdayCount returns how many of workerID's assignments fall on
// effective weekday wd (Monday=0 .. Sunday=6).
func (s *State) WeekdayCount(workerID string, wd int) int {
	return s.Idx.WorkerWeekdays[workerID][wd]
}

// HeldPosts returns the set of post indices workerID currently holds on at
// least one date; Unassign drops a post once no date still has it.
func (s *State) HeldPosts(workerID string) map[int]struct{} {
	return s.Idx.WorkerPosts[workerID]
}

func sortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}
