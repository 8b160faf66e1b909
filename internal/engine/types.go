// Package engine implements the shift-scheduling core: the data model,
// constraint checker, workload calculator, incremental builder with
// constraint-relaxation levels, and the multi-restart orchestrator.
package engine

import (
	"time"

	"github.com/wisbric/shiftroster/internal/dateutil"
)

// Worker is a scheduling participant. Fields are immutable for the duration
// of a run once TargetShifts/MaxShifts are populated by WorkloadCalculator;
// the builder never mutates a Worker, only the shared State's schedule and
// indexes.
type Worker struct {
	ID               string              `json:"id"`
	WorkPercentage   float64             `json:"work_percentage"`
	WorkPeriods      []dateutil.Range    `json:"work_periods,omitempty"`
	DaysOff          []dateutil.Range    `json:"days_off,omitempty"`
	MandatoryDays    []time.Time         `json:"mandatory_days,omitempty"`
	IncompatibleWith map[string]struct{} `json:"incompatible_with,omitempty"`

	// TargetShifts and MaxShifts are derived by WorkloadCalculator.Compute
	// before the builder runs and are read-only afterward.
	TargetShifts int `json:"target_shifts"`
	MaxShifts    int `json:"max_shifts"`
}

// Available reports whether w can work on d: inside at least one work
// period (or no work periods declared, meaning the whole horizon), and
// outside every days-off range.
func (w *Worker) Available(d time.Time) bool {
	d = dateutil.Normalize(d)
	if len(w.WorkPeriods) > 0 {
		inPeriod := false
		for _, r := range w.WorkPeriods {
			if r.Contains(d) {
				inPeriod = true
				break
			}
		}
		if !inPeriod {
			return false
		}
	}
	for _, r := range w.DaysOff {
		if r.Contains(d) {
			return false
		}
	}
	return true
}

// IsMandatory reports whether d is one of w's mandatory dates.
func (w *Worker) IsMandatory(d time.Time) bool {
	d = dateutil.Normalize(d)
	for _, m := range w.MandatoryDays {
		if m.Equal(d) {
			return true
		}
	}
	return false
}

// IncompatibleWithWorker reports whether w and other may never share a
// date. Callers must check both directions, since the relation need not be
// declared on both workers.
func (w *Worker) IncompatibleWithWorker(other string) bool {
	_, ok := w.IncompatibleWith[other]
	return ok
}

// VariableShift overrides the post count for an inclusive date range.
type VariableShift struct {
	Range  dateutil.Range `json:"range"`
	Shifts int            `json:"shifts"`
}

// Config is the normalized, validated run configuration. It is built once
// (by internal/config, or directly by a test) and never mutated during a
// run.
type Config struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	NumShifts      int             `json:"num_shifts"`
	VariableShifts []VariableShift `json:"variable_shifts,omitempty"`

	GapBetweenShifts       int `json:"gap_between_shifts"`
	MaxConsecutiveWeekends int `json:"max_consecutive_weekends"`

	Holidays map[time.Time]struct{} `json:"holidays,omitempty"`

	Workers []*Worker `json:"workers"`

	// MaxShiftsBuffer is added to a worker's TargetShifts to derive
	// MaxShifts, the hard ceiling the builder enforces beyond the target.
	MaxShiftsBuffer int `json:"max_shifts_buffer"`

	MinCoverageThreshold     float64 `json:"min_coverage_threshold"`
	MaxImprovementIterations int     `json:"max_improvement_iterations"`
	Restarts                 int     `json:"restarts"`
	Seed                     int64   `json:"seed"`
}

// NumShiftsFor returns the post count for d, honoring VariableShifts
// overrides in declaration order, falling back to NumShifts.
func (c *Config) NumShiftsFor(d time.Time) int {
	d = dateutil.Normalize(d)
	for _, vs := range c.VariableShifts {
		if vs.Range.Contains(d) {
			return vs.Shifts
		}
	}
	return c.NumShifts
}

// Dates returns every calendar day in [StartDate, EndDate], inclusive, in
// chronological order.
func (c *Config) Dates() []time.Time {
	dates := make([]time.Time, 0, int(c.EndDate.Sub(c.StartDate).Hours()/24)+1)
	for d := c.StartDate; !d.After(c.EndDate); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// TotalSlots returns the sum of NumShiftsFor across the whole horizon.
func (c *Config) TotalSlots() int {
	total := 0
	for _, d := range c.Dates() {
		total += c.NumShiftsFor(d)
	}
	return total
}

// Assignment is the derived (worker, date, post) relation: it exists iff
// schedule[date][post] == worker.
type Assignment struct {
	WorkerID string
	Date     time.Time
	Post     int
}

// Schedule maps a normalized date to its ordered post slots; an empty
// string slot means UNASSIGNED.
type Schedule map[time.Time][]string

// Indexes are materialized views of Assignment, kept consistent by
// DataManager.
type Indexes struct {
	WorkerAssignments map[string]map[time.Time]struct{}
	WorkerPosts       map[string]map[int]struct{}
	WorkerWeekdays    map[string]map[int]int
	WorkerWeekends    map[string][]time.Time
	PostWorkerCounts  map[int]map[string]int
}

func newIndexes() *Indexes {
	return &Indexes{
		WorkerAssignments: map[string]map[time.Time]struct{}{},
		WorkerPosts:       map[string]map[int]struct{}{},
		WorkerWeekdays:    map[string]map[int]int{},
		WorkerWeekends:    map[string][]time.Time{},
		PostWorkerCounts:  map[int]map[string]int{},
	}
}

// State is the shared mutable state a Scheduler run operates over: the
// schedule, its indexes, and read-only config/worker views.
// ConstraintChecker and DataManager are stateless operators over a *State;
// ScheduleBuilder owns one of each for the same State, plus its own set of
// locked mandatory slots.
type State struct {
	Config     *Config
	Schedule   Schedule
	Idx        *Indexes
	workerByID map[string]*Worker
}

// NewState allocates an empty schedule (every slot UNASSIGNED) and empty
// indexes for cfg.
func NewState(cfg *Config) *State {
	s := &State{
		Config:     cfg,
		Schedule:   Schedule{},
		Idx:        newIndexes(),
		workerByID: map[string]*Worker{},
	}
	for _, w := range cfg.Workers {
		s.workerByID[w.ID] = w
	}
	for _, d := range cfg.Dates() {
		s.Schedule[d] = make([]string, cfg.NumShiftsFor(d))
	}
	return s
}

// Worker looks up a worker by id.
func (s *State) Worker(id string) (*Worker, bool) {
	w, ok := s.workerByID[id]
	return w, ok
}

// Reset clears the schedule and indexes back to their initial empty state.
// Scheduler.Run does not call it: each restart starts from a fresh NewState.
func (s *State) Reset() {
	s.Idx = newIndexes()
	s.Schedule = Schedule{}
	for _, d := range s.Config.Dates() {
		s.Schedule[d] = make([]string, s.Config.NumShiftsFor(d))
	}
}

// Snapshot deep-copies the schedule and indexes so a restart's best-so-far
// result can be preserved across value copies of the maps/sets, independent
// of further mutation.
func (s *State) Snapshot() *State {
	cp := &State{Config: s.Config, workerByID: s.workerByID}
	cp.Schedule = make(Schedule, len(s.Schedule))
	for d, slots := range s.Schedule {
		cpSlots := make([]string, len(slots))
		copy(cpSlots, slots)
		cp.Schedule[d] = cpSlots
	}
	cp.Idx = &Indexes{
		WorkerAssignments: make(map[string]map[time.Time]struct{}, len(s.Idx.WorkerAssignments)),
		WorkerPosts:       make(map[string]map[int]struct{}, len(s.Idx.WorkerPosts)),
		WorkerWeekdays:    make(map[string]map[int]int, len(s.Idx.WorkerWeekdays)),
		WorkerWeekends:    make(map[string][]time.Time, len(s.Idx.WorkerWeekends)),
		PostWorkerCounts:  make(map[int]map[string]int, len(s.Idx.PostWorkerCounts)),
	}
	for w, dates := range s.Idx.WorkerAssignments {
		m := make(map[time.Time]struct{}, len(dates))
		for d := range dates {
			m[d] = struct{}{}
		}
		cp.Idx.WorkerAssignments[w] = m
	}
	for w, posts := range s.Idx.WorkerPosts {
		m := make(map[int]struct{}, len(posts))
		for p := range posts {
			m[p] = struct{}{}
		}
		cp.Idx.WorkerPosts[w] = m
	}
	for w, wd := range s.Idx.WorkerWeekdays {
		m := make(map[int]int, len(wd))
		for k, v := range wd {
			m[k] = v
		}
		cp.Idx.WorkerWeekdays[w] = m
	}
	for w, dates := range s.Idx.WorkerWeekends {
		cp.Idx.WorkerWeekends[w] = append([]time.Time(nil), dates...)
	}
	for post, counts := range s.Idx.PostWorkerCounts {
		m := make(map[string]int, len(counts))
		for w, c := range counts {
			m[w] = c
		}
		cp.Idx.PostWorkerCounts[post] = m
	}
	return cp
}

// Restore replaces s's schedule and indexes with snap's, used by
// restore_best at the end of a multi-restart run.
func (s *State) Restore(snap *State) {
	s.Schedule = snap.Schedule
	s.Idx = snap.Idx
}
