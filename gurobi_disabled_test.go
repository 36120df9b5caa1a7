//go:build !gurobi

package evcs

import (
	"errors"
	"testing"
)

func TestGurobiUnavailableWithoutTag(t *testing.T) {
	_, err := NewSolver(SolverOptions{Backend: BACKEND_GUROBI})
	var se *SolverError
	if !errors.As(err, &se) || se.Kind != SOLVER_ERR_LICENSE || se.Backend != BACKEND_GUROBI {
		t.Fatalf("expected license SolverError, got %v", err)
	}
}
