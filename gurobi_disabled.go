//go:build !gurobi

package evcs

import "errors"

func newGurobiSolver(opts SolverOptions) (Solver, error) {
	return nil, &SolverError{Backend: BACKEND_GUROBI, Kind: SOLVER_ERR_LICENSE, Err: errors.New("binary built without the gurobi tag")}
}
