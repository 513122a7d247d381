package volatility

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSeries is the ordered list of prices read from one file, header excluded
type PriceSeries []decimal.Decimal

// Record maps an instrument name to its volatility percentage
type Record map[string]float64

// ZeroSet holds instruments whose volatility is zero or undefined
type ZeroSet map[string]struct{}

// Add inserts name into the set
func (z ZeroSet) Add(name string) {
	z[name] = struct{}{}
}

// Contains reports whether name is in the set
func (z ZeroSet) Contains(name string) bool {
	_, ok := z[name]
	return ok
}

// Sorted returns the names in ascending order
func (z ZeroSet) Sorted() []string {
	names := make([]string, 0, len(z))
	for name := range z {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WorkerResult is the single message a worker sends for its whole group.
// A non-nil Err marks a failed worker; the other fields are then meaningless.
type WorkerResult struct {
	WorkerID   int
	Volatility Record
	Zero       ZeroSet
	// Sources maps every instrument in the result to the file it came from
	Sources map[string]string
	Files   int
	Err     error
}

func newWorkerResult(id int) WorkerResult {
	return WorkerResult{
		WorkerID:   id,
		Volatility: make(Record),
		Zero:       make(ZeroSet),
		Sources:    make(map[string]string),
	}
}

// Failed reports whether the result carries a failure
func (r WorkerResult) Failed() bool {
	return r.Err != nil
}

// Instruments returns the number of instruments in the result
func (r WorkerResult) Instruments() int {
	return len(r.Volatility) + len(r.Zero)
}

// DrainMode selects how the coordinator learns that every worker has finished
type DrainMode string

const (
	// DrainPoll receives with a timeout and checks worker liveness on every timeout
	DrainPoll DrainMode = "poll"
	// DrainSignal waits on a completion channel closed once every worker has exited
	DrainSignal DrainMode = "signal"
)

// ParseDrainMode validates a drain mode name
func ParseDrainMode(s string) (DrainMode, error) {
	switch DrainMode(s) {
	case DrainPoll, DrainSignal:
		return DrainMode(s), nil
	default:
		return "", fmt.Errorf("unknown drain mode %q (want %q or %q)", s, DrainPoll, DrainSignal)
	}
}

// Phase is the coordinator's position in a run
type Phase int32

const (
	PhaseInit Phase = iota
	PhaseSpawning
	PhaseDraining
	PhaseJoining
	PhaseReporting
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseSpawning:
		return "spawning"
	case PhaseDraining:
		return "draining"
	case PhaseJoining:
		return "joining"
	case PhaseReporting:
		return "reporting"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// RunStats summarises one coordinator run
type RunStats struct {
	Workers  int
	Files    int
	Polls    int
	Received int
	Duration time.Duration
}
