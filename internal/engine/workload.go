package engine

import "sort"

// WorkloadCalculator computes per-worker target shift counts via weighted
// largest-remainder allocation.
type WorkloadCalculator struct {
	cfg *Config
}

// NewWorkloadCalculator binds a calculator to cfg's horizon and workers.
func NewWorkloadCalculator(cfg *Config) *WorkloadCalculator {
	return &WorkloadCalculator{cfg: cfg}
}

// Compute assigns TargetShifts (and the derived MaxShifts) on every worker
// in cfg.Workers. It mutates the Worker records in place; callers must call
// this before building a schedule and must not mutate workers afterward.
func (wc *WorkloadCalculator) Compute() {
	available := make(map[string]int, len(wc.cfg.Workers))
	for _, w := range wc.cfg.Workers {
		available[w.ID] = wc.availableSlots(w)
	}

	totalSlots := wc.cfg.TotalSlots()
	targets := largestRemainderAllocation(wc.cfg.Workers, available, totalSlots)

	for _, w := range wc.cfg.Workers {
		target := targets[w.ID]
		mandatory := len(w.MandatoryDays)
		target -= mandatory
		if target < 0 {
			target = 0
		}
		w.TargetShifts = target
		buffer := wc.cfg.MaxShiftsBuffer
		if buffer <= 0 {
			buffer = target / 4
			if buffer < 5 {
				buffer = 5
			}
		}
		w.MaxShifts = target + buffer
	}
}

// availableSlots sums the post count of every date w could in principle
// work: inside a work period (or no work periods declared) and not on a
// day off.
func (wc *WorkloadCalculator) availableSlots(w *Worker) int {
	total := 0
	for _, d := range wc.cfg.Dates() {
		if w.Available(d) {
			total += wc.cfg.NumShiftsFor(d)
		}
	}
	return total
}

// largestRemainderAllocation distributes totalSlots across workers
// proportional to available(w)*percentage(w), flooring each exact share
// and handing the remaining units to the largest fractional remainders
// (Hamilton's method).
func largestRemainderAllocation(workers []*Worker, available map[string]int, totalSlots int) map[string]int {
	type share struct {
		id        string
		exact     float64
		floor     int
		remainder float64
	}

	weights := make(map[string]float64, len(workers))
	var totalWeight float64
	for _, w := range workers {
		weight := float64(available[w.ID]) * w.WorkPercentage / 100.0
		weights[w.ID] = weight
		totalWeight += weight
	}

	result := make(map[string]int, len(workers))
	if totalWeight <= 0 {
		for _, w := range workers {
			result[w.ID] = 0
		}
		return result
	}

	shares := make([]share, 0, len(workers))
	flooredSum := 0
	for _, w := range workers {
		exact := float64(totalSlots) * weights[w.ID] / totalWeight
		floor := int(exact)
		shares = append(shares, share{id: w.ID, exact: exact, floor: floor, remainder: exact - float64(floor)})
		flooredSum += floor
	}

	remaining := totalSlots - flooredSum
	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].remainder != shares[j].remainder {
			return shares[i].remainder > shares[j].remainder
		}
		return shares[i].id < shares[j].id
	})
	for i := 0; i < remaining && i < len(shares); i++ {
		shares[i].floor++
	}

	for _, sh := range shares {
		result[sh.id] = sh.floor
	}
	return result
}
