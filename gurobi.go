//go:build gurobi

package evcs

import (
	"context"
	"fmt"
	"time"

	"git.solver4all.com/azaryc2s/gorobi/gurobi"
)

// GurobiSolver runs the model on a local Gurobi installation.
type GurobiSolver struct {
	env  *gurobi.Env
	opts SolverOptions
}

func newGurobiSolver(opts SolverOptions) (Solver, error) {
	env, err := gurobi.LoadEnv(opts.LogFile)
	if err != nil {
		return nil, &SolverError{Backend: BACKEND_GUROBI, Kind: SOLVER_ERR_LICENSE, Err: err}
	}
	env.SetIntParam("LogToConsole", int32(0))
	if opts.Tolerance <= 0 {
		opts.Tolerance = DEFAULT_TOLERANCE
	}
	return &GurobiSolver{env: env, opts: opts}, nil
}

func (g *GurobiSolver) Name() string { return BACKEND_GUROBI }

// Close frees the Gurobi environment.
func (g *GurobiSolver) Close() {
	g.env.Free()
}

func (g *GurobiSolver) fail(kind SolverErrorKind, err error) (*SolveResult, error) {
	Log(LOG_ERROR, err.Error())
	return &SolveResult{Status: STATUS_SOLVER_ERROR, Tolerance: g.opts.Tolerance}, &SolverError{Backend: g.Name(), Kind: kind, Err: err}
}

func (g *GurobiSolver) Solve(ctx context.Context, m *EVCSModel, timeout time.Duration) (*SolveResult, error) {
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	if ctx.Err() != nil || timeout < 0 {
		return &SolveResult{Status: STATUS_TIMED_OUT, Tolerance: g.opts.Tolerance}, nil
	}
	varCount := m.NumVars()
	varNames := make([]string, varCount)
	varType := make([]int8, varCount)
	for v := 0; v < varCount; v++ {
		varNames[v] = m.VarName(v)
		if m.VarType(v) == VAR_BINARY {
			varType[v] = gurobi.BINARY
		} else {
			varType[v] = gurobi.CONTINUOUS
		}
	}
	// Create model
	model, err := g.env.NewModel("evcs", int32(varCount), m.ObjCoeffs(), nil, nil, varType, varNames)
	if err != nil {
		return g.fail(SOLVER_ERR_CRASH, err)
	}
	defer model.Free()

	if err = model.SetIntAttr(gurobi.INT_ATTR_MODELSENSE, gurobi.MINIMIZE); err != nil {
		return g.fail(SOLVER_ERR_CRASH, err)
	}
	for _, c := range m.Constrs() {
		var sense int8
		switch c.Sense {
		case LESS_EQUAL:
			sense = gurobi.LESS_EQUAL
		case GREATER_EQUAL:
			sense = gurobi.GREATER_EQUAL
		default:
			sense = gurobi.EQUAL
		}
		if err = model.AddConstr(c.Ind, c.Val, sense, c.RHS, c.Name); err != nil {
			Log(LOG_ERROR, "Error adding constraint %s: %s", c.Name, err.Error())
			return g.fail(SOLVER_ERR_CRASH, err)
		}
	}
	if timeout > 0 {
		if err = model.SetDblParam("TimeLimit", timeout.Seconds()); err != nil {
			return g.fail(SOLVER_ERR_CRASH, err)
		}
	}

	start := time.Now()
	if err = model.Optimize(); err != nil {
		return g.fail(SOLVER_ERR_CRASH, err)
	}
	res := &SolveResult{Tolerance: g.opts.Tolerance, Elapsed: time.Since(start)}

	optimstatus, err := model.GetIntAttr(gurobi.INT_ATTR_STATUS)
	if err != nil {
		return g.fail(SOLVER_ERR_CRASH, err)
	}
	switch optimstatus {
	case gurobi.OPTIMAL:
		res.Status = STATUS_OPTIMAL
	// All costs are non-negative (Params.Validate, validated distances) and
	// all variables are bounded below by 0, so the objective is bounded below
	// by 0 and INF_OR_UNBD can only mean infeasible.
	case gurobi.INFEASIBLE, gurobi.INF_OR_UNBD:
		res.Status = STATUS_INFEASIBLE
		return res, nil
	case gurobi.UNBOUNDED:
		res.Status = STATUS_UNBOUNDED
		return res, nil
	case gurobi.TIME_LIMIT:
		res.Status = STATUS_TIMED_OUT
		return res, nil
	default:
		return g.fail(SOLVER_ERR_RESOURCE, fmt.Errorf("optimization stopped with gurobi status %d", optimstatus))
	}

	if res.Obj, err = model.GetDblAttr(gurobi.DBL_ATTR_OBJVAL); err != nil {
		return g.fail(SOLVER_ERR_CRASH, err)
	}
	if res.Bound, err = model.GetDblAttr(gurobi.DBL_ATTR_OBJBOUND); err != nil {
		Log(LOG_ERROR, "Couldn't retrieve the lower-bound-value: %s", err.Error())
		res.Bound = res.Obj
	}
	solA, err := model.GetDblAttrArray(gurobi.DBL_ATTR_X, 0, int32(varCount))
	if err != nil {
		return g.fail(SOLVER_ERR_CRASH, err)
	}
	res.Values = clampValues(m, solA, g.opts.Tolerance)
	return res, nil
}
