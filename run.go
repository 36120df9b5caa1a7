package evcs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SolveInstance runs one build, solve and extract cycle on an instance.
// Infeasible, unbounded and timed out solves are reported in the returned
// solution's status with a nil error. Input faults, solver failures and
// integrity violations are returned as errors next to a solution carrying
// the failure in its comment. A non-nil cache is consulted first and filled
// with optimal solutions.
func SolveInstance(ctx context.Context, inst *EVCSInstance, params Params, s Solver, timeout time.Duration, cache SolutionCache) (*EVCSSolution, error) {
	sol := &EVCSSolution{RunID: uuid.NewString(), Backend: s.Name(), Status: STATUS_UNKNOWN.String()}

	nodes, demand, dist, err := InstanceInputs(inst)
	if err != nil {
		sol.Comment = err.Error()
		return sol, err
	}

	var key string
	if cache != nil {
		key = CacheKey(nodes, demand, dist, params)
		cached, ok, err := cache.Get(ctx, key)
		if err != nil {
			Log(LOG_ERROR, "Solution cache lookup failed: %s", err.Error())
		} else if ok {
			Log(LOG_INFO, "Reusing cached solution of run %s", cached.RunID)
			cached.Comment += "Served from cache. "
			return cached, nil
		}
	}

	model, err := CreateEVCSModel(nodes, demand, dist, params)
	if err != nil {
		sol.Comment = err.Error()
		return sol, err
	}

	res, err := Solve(ctx, s, model, timeout)
	if res != nil {
		sol.Status = res.Status.String()
		sol.NodesExplored = res.NodesExplored
		sol.Time = res.Elapsed.String()
		sol.LBound = res.Bound
	}
	if err != nil {
		sol.Status = STATUS_SOLVER_ERROR.String()
		sol.Comment = err.Error()
		return sol, err
	}

	result, err := ExtractSolution(model, res)
	var noSol *NoSolutionError
	if errors.As(err, &noSol) {
		sol.Comment = "No solution: model is " + noSol.Status.String()
		return sol, nil
	}
	if err != nil {
		sol.Comment = err.Error()
		return sol, err
	}

	sol.Optimal = true
	sol.Obj = result.Obj
	sol.FixedCost = result.FixedCost
	sol.VariableCost = result.VariableCost
	sol.OpenStations = result.OpenStations
	sol.Assignments = result.AssignmentList(model)

	if cache != nil {
		if err := cache.Put(ctx, key, sol); err != nil {
			Log(LOG_ERROR, "Solution cache store failed: %s", err.Error())
		}
	}
	return sol, nil
}
