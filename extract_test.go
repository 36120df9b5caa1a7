package evcs

import (
	"errors"
	"math"
	"testing"
)

// optimalValues is the optimum of the reference scenario: one station at A
// serving A and B.
func optimalValues(t *testing.T, m *EVCSModel) []float64 {
	t.Helper()
	values := make([]float64, m.NumVars())
	xa, _ := m.OpenIndex("A")
	yaa, _ := m.AssignIndex(Pair{"A", "A"})
	yba, _ := m.AssignIndex(Pair{"B", "A"})
	values[xa], values[yaa], values[yba] = 1, 10, 5
	return values
}

func scenarioModel(t *testing.T) *EVCSModel {
	t.Helper()
	nodes, demand, dist, params := scenario()
	m, err := CreateEVCSModel(nodes, demand, dist, params)
	if err != nil {
		t.Fatalf("CreateEVCSModel: %v", err)
	}
	return m
}

func TestExtractSolution(t *testing.T) {
	m := scenarioModel(t)
	res, err := ExtractSolution(m, &SolveResult{Status: STATUS_OPTIMAL, Values: optimalValues(t, m)})
	if err != nil {
		t.Fatalf("ExtractSolution: %v", err)
	}
	if len(res.OpenStations) != 1 || res.OpenStations[0] != "A" {
		t.Errorf("expected station at A, got %v", res.OpenStations)
	}
	if len(res.Assignments) != 2 || res.Assignments[Pair{"A", "A"}] != 10 || res.Assignments[Pair{"B", "A"}] != 5 {
		t.Errorf("unexpected assignments %v", res.Assignments)
	}
	if res.FixedCost != 1000 || res.VariableCost != 50 || res.Obj != 1050 {
		t.Errorf("unexpected costs %v + %v = %v", res.FixedCost, res.VariableCost, res.Obj)
	}
	list := res.AssignmentList(m)
	if len(list) != 2 || list[0] != (Assignment{From: "A", To: "A", Demand: 10}) || list[1] != (Assignment{From: "B", To: "A", Demand: 5}) {
		t.Errorf("unexpected assignment list %v", list)
	}
}

func TestExtractSolutionToleratesNoise(t *testing.T) {
	m := scenarioModel(t)
	values := optimalValues(t, m)
	xb, _ := m.OpenIndex("B")
	yab, _ := m.AssignIndex(Pair{"A", "B"})
	xa, _ := m.OpenIndex("A")
	values[xa] = 1 - 1e-9
	values[xb] = 1e-9
	values[yab] = 1e-9
	res, err := ExtractSolution(m, &SolveResult{Status: STATUS_OPTIMAL, Values: values})
	if err != nil {
		t.Fatalf("ExtractSolution: %v", err)
	}
	if len(res.OpenStations) != 1 {
		t.Errorf("noise must not open stations: %v", res.OpenStations)
	}
	if _, ok := res.Assignments[Pair{"A", "B"}]; ok {
		t.Errorf("assignments within tolerance of zero must be omitted")
	}
}

func TestExtractSolutionNoSolution(t *testing.T) {
	m := scenarioModel(t)
	for _, status := range []Status{STATUS_INFEASIBLE, STATUS_UNBOUNDED, STATUS_TIMED_OUT, STATUS_SOLVER_ERROR} {
		_, err := ExtractSolution(m, &SolveResult{Status: status, Obj: math.NaN()})
		var ns *NoSolutionError
		if !errors.As(err, &ns) || ns.Status != status {
			t.Errorf("status %s: expected NoSolutionError, got %v", status, err)
		}
	}
	_, err := ExtractSolution(m, nil)
	var ns *NoSolutionError
	if !errors.As(err, &ns) {
		t.Errorf("nil result: expected NoSolutionError, got %v", err)
	}
}

func TestExtractSolutionIntegrity(t *testing.T) {
	m := scenarioModel(t)
	xa, _ := m.OpenIndex("A")
	xb, _ := m.OpenIndex("B")
	xc, _ := m.OpenIndex("C")
	ybb, _ := m.AssignIndex(Pair{"B", "B"})
	yba, _ := m.AssignIndex(Pair{"B", "A"})

	tests := []struct {
		name   string
		modify func([]float64) []float64
		node   Node
		pair   *Pair
	}{
		{"closed station", func(v []float64) []float64 { v[yba], v[ybb] = 0, 5; return v }, "", &Pair{"B", "B"}},
		{"unmet demand", func(v []float64) []float64 { v[yba] = 4; return v }, "B", nil},
		{"non-binary station", func(v []float64) []float64 { v[xb] = 0.5; return v }, "B", nil},
		{"negative assignment", func(v []float64) []float64 { v[ybb] = -1; return v }, "", &Pair{"B", "B"}},
		{"budget", func(v []float64) []float64 { v[xb], v[xc] = 1, 1; return v }, "", nil},
		{"short values", func(v []float64) []float64 { return v[:len(v)-1] }, "", nil},
		{"station value out of range", func(v []float64) []float64 { v[xa] = 2; return v }, "A", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := tt.modify(optimalValues(t, m))
			_, err := ExtractSolution(m, &SolveResult{Status: STATUS_OPTIMAL, Values: values})
			var ie *ResultIntegrityError
			if !errors.As(err, &ie) {
				t.Fatalf("expected ResultIntegrityError, got %v", err)
			}
			if ie.Node != tt.node {
				t.Errorf("expected node %q, got %q", tt.node, ie.Node)
			}
			if (tt.pair == nil) != (ie.Pair == nil) || (tt.pair != nil && *tt.pair != *ie.Pair) {
				t.Errorf("expected pair %v, got %v", tt.pair, ie.Pair)
			}
		})
	}
}

func TestCheckSolutionValidity(t *testing.T) {
	m := scenarioModel(t)
	ok := map[Pair]float64{{"A", "A"}: 10, {"B", "A"}: 5}
	if err := CheckSolutionValidity(m, []Node{"A"}, ok); err != nil {
		t.Fatalf("valid solution rejected: %v", err)
	}
	relative := map[Pair]float64{{"A", "A"}: 10 + 5e-6, {"B", "A"}: 5}
	if err := CheckSolutionValidity(m, []Node{"A"}, relative); err != nil {
		t.Errorf("deviation within relative tolerance rejected: %v", err)
	}
	var ie *ResultIntegrityError
	outside := map[Pair]float64{{"A", "A"}: 10, {"B", "A"}: 5, {"C", "A"}: 0}
	if err := CheckSolutionValidity(m, []Node{"A"}, outside); !errors.As(err, &ie) || ie.Pair == nil || *ie.Pair != (Pair{"C", "A"}) {
		t.Errorf("expected error for pair beyond coverage, got %v", err)
	}
	if err := CheckSolutionValidity(m, []Node{"A", "Z"}, ok); !errors.As(err, &ie) || ie.Node != "Z" {
		t.Errorf("expected error for unknown station, got %v", err)
	}
}

func TestExtractSolutionUsesSolveTolerance(t *testing.T) {
	m := scenarioModel(t)
	values := optimalValues(t, m)
	xa, _ := m.OpenIndex("A")
	yba, _ := m.AssignIndex(Pair{"B", "A"})
	values[xa] = 1 - 5e-4
	values[yba] = 5 - 4e-3

	var ie *ResultIntegrityError
	if _, err := ExtractSolution(m, &SolveResult{Status: STATUS_OPTIMAL, Values: values}); !errors.As(err, &ie) {
		t.Fatalf("default tolerance should reject the values, got %v", err)
	}
	res, err := ExtractSolution(m, &SolveResult{Status: STATUS_OPTIMAL, Values: values, Tolerance: 1e-3})
	if err != nil {
		t.Fatalf("configured tolerance should accept the values: %v", err)
	}
	if len(res.OpenStations) != 1 || res.OpenStations[0] != "A" {
		t.Errorf("expected station at A, got %v", res.OpenStations)
	}
}

func TestBranchAndBoundResultCarriesTolerance(t *testing.T) {
	m := scenarioModel(t)
	opts := DefaultSolverOptions()
	opts.Tolerance = 1e-4
	res := solveModel(t, m, opts)
	if res.Tolerance != 1e-4 {
		t.Errorf("expected tolerance 1e-4, got %v", res.Tolerance)
	}
}
