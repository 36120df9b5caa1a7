package evcs

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// DEFAULT_TOLERANCE is the distance to a variable bound below which a solved
// value counts as solver noise.
const DEFAULT_TOLERANCE = 1e-6

type Status int

const (
	STATUS_UNKNOWN Status = iota
	STATUS_OPTIMAL
	STATUS_INFEASIBLE
	STATUS_UNBOUNDED
	STATUS_TIMED_OUT
	STATUS_SOLVER_ERROR
)

func (s Status) String() string {
	switch s {
	case STATUS_OPTIMAL:
		return "Optimal"
	case STATUS_INFEASIBLE:
		return "Infeasible"
	case STATUS_UNBOUNDED:
		return "Unbounded"
	case STATUS_TIMED_OUT:
		return "TimedOut"
	case STATUS_SOLVER_ERROR:
		return "SolverError"
	}
	return "Unknown"
}

// SolveResult is what a backend reports back. Values is indexed like the
// model variables and is only set when Status is STATUS_OPTIMAL. Tolerance
// is the one the values were clamped with; extraction checks against it.
type SolveResult struct {
	Status        Status
	Obj           float64
	Bound         float64
	Values        []float64
	Tolerance     float64
	NodesExplored int
	Elapsed       time.Duration
}

// Solver runs a built model on some MILP backend. Implementations must not
// modify the model. Infeasible, unbounded and timed out solves are results
// with a nil error; a non-nil error is always a *SolverError.
type Solver interface {
	Name() string
	Solve(ctx context.Context, m *EVCSModel, timeout time.Duration) (*SolveResult, error)
}

// NewSolver returns the backend named in opts.
func NewSolver(opts SolverOptions) (Solver, error) {
	switch strings.ToUpper(opts.Backend) {
	case "", BACKEND_BNB:
		return NewBranchAndBound(opts), nil
	case BACKEND_GUROBI:
		return newGurobiSolver(opts)
	}
	return nil, fmt.Errorf("evcs: unsupported solver backend %q", opts.Backend)
}

// Solve runs s on m, logs the outcome and records it in the solve metrics.
func Solve(ctx context.Context, s Solver, m *EVCSModel, timeout time.Duration) (*SolveResult, error) {
	Log(LOG_INFO, "Solving model with %d variables and %d constraints using %s", m.NumVars(), m.NumConstrs(), s.Name())
	ModelVariables.WithLabelValues("binary").Set(float64(m.xCount))
	ModelVariables.WithLabelValues("continuous").Set(float64(m.yCount))

	start := time.Now()
	res, err := s.Solve(ctx, m, timeout)
	elapsed := time.Since(start)

	status := STATUS_SOLVER_ERROR
	if res != nil {
		status = res.Status
		if res.Elapsed == 0 {
			res.Elapsed = elapsed
		}
		BnBNodes.WithLabelValues(s.Name()).Add(float64(res.NodesExplored))
	}
	SolvesTotal.WithLabelValues(s.Name(), status.String()).Inc()
	SolveDuration.WithLabelValues(s.Name(), status.String()).Observe(elapsed.Seconds())

	if err != nil {
		Log(LOG_ERROR, "Solver %s failed after %s: %s", s.Name(), elapsed, err.Error())
		return res, err
	}
	Log(LOG_INFO, "\n---OPTIMIZATION DONE--- status %s, obj %v, %s", status, res.Obj, elapsed)
	return res, nil
}

// clampValues maps solver noise back into the variable domains: y within
// tol below 0 or above D_i snaps to the bound, x within tol of 0 or 1 snaps
// to it. Anything further out is left untouched for extraction to reject.
func clampValues(m *EVCSModel, raw []float64, tol float64) []float64 {
	out := make([]float64, len(raw))
	for v, x := range raw {
		ub := m.VarUpperBound(v)
		switch {
		case m.varType[v] == VAR_BINARY && math.Abs(x) <= tol:
			x = 0
		case m.varType[v] == VAR_BINARY && math.Abs(x-1) <= tol:
			x = 1
		case m.varType[v] == VAR_CONTINUOUS && x < 0 && x >= -tol:
			x = 0
		case m.varType[v] == VAR_CONTINUOUS && x > ub && x <= ub+tol*math.Max(1, ub):
			x = ub
		}
		out[v] = x
	}
	return out
}
