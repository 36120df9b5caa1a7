package evcs

import (
	"fmt"
	"math"
)

// EVCSResult is the domain view of an optimal solve.
type EVCSResult struct {
	OpenStations []Node
	Assignments  map[Pair]float64
	Obj          float64
	FixedCost    float64
	VariableCost float64
}

// ExtractSolution turns the values of an optimal solve into open stations
// and a sparse assignment map, then re-checks the result against the model.
func ExtractSolution(m *EVCSModel, res *SolveResult) (*EVCSResult, error) {
	if res == nil {
		return nil, &NoSolutionError{Status: STATUS_UNKNOWN}
	}
	if res.Status != STATUS_OPTIMAL {
		return nil, &NoSolutionError{Status: res.Status}
	}
	if len(res.Values) != m.NumVars() {
		return nil, &ResultIntegrityError{Reason: fmt.Sprintf("solver returned %d values for %d variables", len(res.Values), m.NumVars())}
	}
	tol := res.Tolerance
	if tol <= 0 {
		tol = DEFAULT_TOLERANCE
	}

	out := &EVCSResult{Assignments: make(map[Pair]float64)}
	for j, n := range m.nodes {
		x := res.Values[m.xStart+j]
		switch {
		case math.Abs(x-1) <= tol:
			out.OpenStations = append(out.OpenStations, n)
		case math.Abs(x) <= tol:
		default:
			return nil, &ResultIntegrityError{Node: n, Reason: fmt.Sprintf("station variable has non-binary value %v", x)}
		}
	}
	for k, p := range m.pairs {
		y := res.Values[m.yStart+k]
		if y < -tol || math.IsNaN(y) {
			p := p
			return nil, &ResultIntegrityError{Pair: &p, Reason: fmt.Sprintf("negative assignment %v", y)}
		}
		if y <= tol {
			continue
		}
		out.Assignments[p] = y
		out.VariableCost += m.params.VariableCost * m.pairDist[k] * y
	}
	out.FixedCost = m.params.FixedCost * float64(len(out.OpenStations))
	out.Obj = out.FixedCost + out.VariableCost

	if err := checkSolutionValidity(m, out.OpenStations, out.Assignments, tol); err != nil {
		Log(LOG_ERROR, err.Error())
		return nil, err
	}
	Log(LOG_INFO, "Opened %d stations %v with %d assignments, cost %v", len(out.OpenStations), out.OpenStations, len(out.Assignments), out.Obj)
	return out, nil
}

// CheckSolutionValidity verifies a solution independently of any solver:
// station budget, assignments only on feasible pairs to open stations and
// every node's demand fully served within DEFAULT_TOLERANCE.
func CheckSolutionValidity(m *EVCSModel, open []Node, assignments map[Pair]float64) error {
	return checkSolutionValidity(m, open, assignments, DEFAULT_TOLERANCE)
}

func checkSolutionValidity(m *EVCSModel, open []Node, assignments map[Pair]float64, tol float64) error {
	if len(open) > m.params.MaxStations {
		return &ResultIntegrityError{Reason: fmt.Sprintf("%d stations opened, at most %d allowed", len(open), m.params.MaxStations)}
	}
	isOpen := make(map[Node]bool, len(open))
	for _, n := range open {
		if _, ok := m.nodeIdx[n]; !ok {
			return &ResultIntegrityError{Node: n, Reason: "station opened at unknown node"}
		}
		isOpen[n] = true
	}
	served := make([]float64, len(m.nodes))
	for p, y := range assignments {
		p := p
		if _, ok := m.pairIdx[p]; !ok {
			return &ResultIntegrityError{Pair: &p, Reason: "assignment on a pair outside coverage"}
		}
		if !isOpen[p.To] {
			return &ResultIntegrityError{Pair: &p, Reason: "demand assigned to a closed station"}
		}
		served[m.nodeIdx[p.From]] += y
	}
	for i, n := range m.nodes {
		if math.Abs(served[i]-m.demand[i]) > tol*math.Max(1, m.demand[i]) {
			return &ResultIntegrityError{Node: n, Reason: fmt.Sprintf("served %v of demand %v", served[i], m.demand[i])}
		}
	}
	return nil
}

// AssignmentList returns the assignments in the model's pair order.
func (r *EVCSResult) AssignmentList(m *EVCSModel) []Assignment {
	var out []Assignment
	for _, p := range m.pairs {
		if y, ok := r.Assignments[p]; ok {
			out = append(out, Assignment{From: p.From, To: p.To, Demand: y})
		}
	}
	return out
}
