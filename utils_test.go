package evcs

import (
	"errors"
	"math"
	"testing"
)

func TestCalcEdgeDist(t *testing.T) {
	coords := [][]float64{{0, 0}, {3, 4}, {1, 1}}
	d, err := CalcEdgeDist(coords, EDGE_WEIGHT_EUC_2D)
	if err != nil {
		t.Fatalf("CalcEdgeDist: %v", err)
	}
	if d[0][1] != 5 || d[1][0] != 5 || d[0][0] != 0 {
		t.Errorf("expected symmetric 5, got %v", d)
	}
	if d[0][2] != 1 {
		t.Errorf("EUC_2D rounds to nearest, got %v", d[0][2])
	}

	d, err = CalcEdgeDist(coords, EDGE_WEIGHT_CEIL_2D)
	if err != nil {
		t.Fatalf("CalcEdgeDist: %v", err)
	}
	if d[0][2] != 2 {
		t.Errorf("CEIL_2D rounds up, got %v", d[0][2])
	}

	d, err = CalcEdgeDist([][]float64{{7.0, 50.7}, {7.1, 50.7}}, EDGE_WEIGHT_GEO)
	if err != nil {
		t.Fatalf("CalcEdgeDist: %v", err)
	}
	if d[0][1] < 6.5 || d[0][1] > 7.5 {
		t.Errorf("expected about 7 km, got %v", d[0][1])
	}

	if _, err := CalcEdgeDist(coords, "MAN_2D"); err == nil {
		t.Errorf("expected error for unsupported type")
	}
	if _, err := CalcEdgeDist([][]float64{{1}}, EDGE_WEIGHT_EUC_2D); err == nil {
		t.Errorf("expected error for short coordinates")
	}
}

func TestNetworkDistances(t *testing.T) {
	nodes := []Node{"A", "B", "C", "E"}
	arcs := []Arc{
		{"A", "J", 3}, {"J", "B", 1}, // J is a junction
		{"B", "C", 4},
		{"A", "C", 10},
		{"A", "C", 9}, // parallel, longer than the path anyway
		{"C", "C", 5},
	}
	dist, err := NetworkDistances(nodes, arcs, false)
	if err != nil {
		t.Fatalf("NetworkDistances: %v", err)
	}
	expected := map[Pair]float64{
		{"A", "B"}: 4, {"B", "A"}: 4,
		{"A", "C"}: 8, {"C", "A"}: 8,
		{"B", "C"}: 4, {"A", "A"}: 0, {"C", "C"}: 0, {"E", "E"}: 0,
	}
	for p, want := range expected {
		if got, ok := dist[p]; !ok || got != want {
			t.Errorf("%v: expected %v, got %v (%v)", p, want, got, ok)
		}
	}
	if _, ok := dist[Pair{"A", "E"}]; ok {
		t.Errorf("unreachable pair must be missing")
	}
	if _, ok := dist[Pair{"A", "J"}]; ok {
		t.Errorf("junctions are not part of the matrix")
	}
}

func TestNetworkDistancesDirected(t *testing.T) {
	nodes := []Node{"A", "B", "C"}
	arcs := []Arc{{"A", "B", 3}, {"B", "C", 4}, {"A", "C", 20}, {"A", "C", 6}}
	dist, err := NetworkDistances(nodes, arcs, true)
	if err != nil {
		t.Fatalf("NetworkDistances: %v", err)
	}
	if dist[Pair{"A", "C"}] != 6 {
		t.Errorf("parallel arcs keep the shorter one, got %v", dist[Pair{"A", "C"}])
	}
	if _, ok := dist[Pair{"C", "A"}]; ok {
		t.Errorf("directed network has no path from C to A")
	}
}

func TestNetworkDistancesNegativeArc(t *testing.T) {
	_, err := NetworkDistances([]Node{"A", "B"}, []Arc{{"A", "B", -1}}, false)
	var ide *InvalidDistanceError
	if !errors.As(err, &ide) || ide.Pair != (Pair{"A", "B"}) {
		t.Fatalf("expected InvalidDistanceError, got %v", err)
	}
}

func TestInstanceInputs(t *testing.T) {
	inst := &EVCSInstance{
		Nodes:          []Node{"A", "B"},
		Demand:         map[Node]float64{"A": 1, "B": 2},
		EdgeWeightType: EDGE_WEIGHT_EXPLICIT,
		Distances:      []Arc{{"A", "B", 3}, {"B", "A", 3}},
	}
	nodes, demand, dist, err := InstanceInputs(inst)
	if err != nil {
		t.Fatalf("InstanceInputs: %v", err)
	}
	if len(nodes) != 2 || demand["B"] != 2 || dist[Pair{"B", "A"}] != 3 || len(dist) != 2 {
		t.Errorf("unexpected inputs %v %v %v", nodes, demand, dist)
	}

	inst.Distances = append(inst.Distances, Arc{"A", "B", 4})
	if _, _, _, err := InstanceInputs(inst); err == nil {
		t.Errorf("expected error for duplicate distance entry")
	}

	coord := &EVCSInstance{
		Nodes:           []Node{"A", "B"},
		Demand:          map[Node]float64{"A": 1, "B": 2},
		EdgeWeightType:  EDGE_WEIGHT_EUC_2D,
		NodeCoordinates: [][]float64{{0, 0}, {3, 4}},
	}
	_, _, dist, err = InstanceInputs(coord)
	if err != nil {
		t.Fatalf("InstanceInputs: %v", err)
	}
	if dist[Pair{"A", "B"}] != 5 || dist[Pair{"A", "A"}] != 0 {
		t.Errorf("unexpected coordinate distances %v", dist)
	}
	coord.NodeCoordinates = coord.NodeCoordinates[:1]
	if _, _, _, err := InstanceInputs(coord); err == nil {
		t.Errorf("expected error for missing coordinates")
	}

	network := &EVCSInstance{
		Nodes:          []Node{"A", "B"},
		Demand:         map[Node]float64{"A": 1, "B": 2},
		EdgeWeightType: EDGE_WEIGHT_NETWORK,
		Network:        []Arc{{"A", "B", 2.5}},
	}
	_, _, dist, err = InstanceInputs(network)
	if err != nil {
		t.Fatalf("InstanceInputs: %v", err)
	}
	if math.Abs(dist[Pair{"B", "A"}]-2.5) > 1e-12 {
		t.Errorf("unexpected network distances %v", dist)
	}
}

func TestSanitizeJsonArrayLineBreaks(t *testing.T) {
	in := "\"a\": [\n\t1,\n\t2\n],\n"
	if got := SanitizeJsonArrayLineBreaks(in); got != "\"a\": [1,2],\n" {
		t.Errorf("unexpected output %q", got)
	}
	plain := "\"name\": \"x\",\n"
	if got := SanitizeJsonArrayLineBreaks(plain); got != plain {
		t.Errorf("non-array lines must stay, got %q", got)
	}
}
