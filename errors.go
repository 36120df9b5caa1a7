package evcs

import (
	"errors"
	"fmt"
)

var ErrEmptyNodeSet = errors.New("evcs: node set is empty")

// MissingDemandError reports a node of the node set without a demand entry.
type MissingDemandError struct {
	Node Node
}

func (e *MissingDemandError) Error() string {
	return fmt.Sprintf("evcs: no demand entry for node %q", e.Node)
}

// InvalidDemandError reports a negative or non-finite demand.
type InvalidDemandError struct {
	Node   Node
	Demand float64
}

func (e *InvalidDemandError) Error() string {
	return fmt.Sprintf("evcs: invalid demand %v at node %q", e.Demand, e.Node)
}

type DuplicateNodeError struct {
	Node Node
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("evcs: node %q appears more than once", e.Node)
}

// InvalidDistanceError reports a negative or NaN distance between two nodes.
type InvalidDistanceError struct {
	Pair Pair
	Dist float64
}

func (e *InvalidDistanceError) Error() string {
	return fmt.Sprintf("evcs: invalid distance %v for pair (%q, %q)", e.Dist, e.Pair.From, e.Pair.To)
}

type InvalidParamError struct {
	Name  string
	Value float64
}

func (e *InvalidParamError) Error() string {
	return fmt.Sprintf("evcs: invalid value %v for parameter %s", e.Value, e.Name)
}

// NoSolutionError is returned by extraction when the solve did not end Optimal.
type NoSolutionError struct {
	Status Status
}

func (e *NoSolutionError) Error() string {
	return fmt.Sprintf("evcs: no solution available, solve status is %s", e.Status)
}

// ResultIntegrityError means solved values violate the model. Node and Pair
// name the offender when one exists.
type ResultIntegrityError struct {
	Node   Node
	Pair   *Pair
	Reason string
}

func (e *ResultIntegrityError) Error() string {
	switch {
	case e.Pair != nil:
		return fmt.Sprintf("evcs: result integrity violated at pair (%q, %q): %s", e.Pair.From, e.Pair.To, e.Reason)
	case e.Node != "":
		return fmt.Sprintf("evcs: result integrity violated at node %q: %s", e.Node, e.Reason)
	}
	return "evcs: result integrity violated: " + e.Reason
}

type SolverErrorKind string

const (
	SOLVER_ERR_CRASH     SolverErrorKind = "crash"
	SOLVER_ERR_LICENSE   SolverErrorKind = "license"
	SOLVER_ERR_RESOURCE  SolverErrorKind = "resource"
	SOLVER_ERR_NUMERICAL SolverErrorKind = "numerical"
)

// SolverError is a failure of the solving backend itself, as opposed to an
// infeasible or unbounded model.
type SolverError struct {
	Backend string
	Kind    SolverErrorKind
	Err     error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("evcs: %s solver failed (%s): %v", e.Backend, e.Kind, e.Err)
}

func (e *SolverError) Unwrap() error {
	return e.Err
}
