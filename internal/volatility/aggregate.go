package volatility

import (
	apperrors "volscan/internal/errors"
)

type origin struct {
	worker int
	path   string
}

// Aggregate is the coordinator's merge of every worker result.
// It is only touched by the coordinator goroutine.
type Aggregate struct {
	Volatility Record
	Zero       ZeroSet
	origins    map[string]origin
}

// NewAggregate returns an empty aggregate
func NewAggregate() *Aggregate {
	return &Aggregate{
		Volatility: make(Record),
		Zero:       make(ZeroSet),
		origins:    make(map[string]origin),
	}
}

// Merge adds res to the aggregate.
// An instrument already present yields *errors.ConsistencyError and leaves the aggregate unchanged.
// So does a name that res lists as both ranked and degenerate.
func (a *Aggregate) Merge(res WorkerResult) error {
	for name := range res.Volatility {
		if res.Zero.Contains(name) {
			return &apperrors.ConsistencyError{
				Instrument:   name,
				FirstWorker:  res.WorkerID,
				SecondWorker: res.WorkerID,
				Path:         res.Sources[name],
			}
		}
		if err := a.checkNew(name, res); err != nil {
			return err
		}
	}
	for name := range res.Zero {
		if err := a.checkNew(name, res); err != nil {
			return err
		}
	}

	for name, vol := range res.Volatility {
		a.Volatility[name] = vol
		a.origins[name] = origin{worker: res.WorkerID, path: res.Sources[name]}
	}
	for name := range res.Zero {
		a.Zero.Add(name)
		a.origins[name] = origin{worker: res.WorkerID, path: res.Sources[name]}
	}
	return nil
}

func (a *Aggregate) checkNew(name string, res WorkerResult) error {
	prev, seen := a.origins[name]
	if !seen {
		return nil
	}
	return &apperrors.ConsistencyError{
		Instrument:   name,
		FirstWorker:  prev.worker,
		SecondWorker: res.WorkerID,
		Path:         joinPaths(prev.path, res.Sources[name]),
	}
}

// Len returns the number of instruments merged so far
func (a *Aggregate) Len() int {
	return len(a.Volatility) + len(a.Zero)
}

// WorkerOf returns the worker that reported name
func (a *Aggregate) WorkerOf(name string) (int, bool) {
	o, ok := a.origins[name]
	return o.worker, ok
}

func joinPaths(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + ", " + b
	}
}
