package evcs

import (
	"fmt"
	"math"
	"regexp"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// CalcEdgeDist computes the full distance matrix of the coordinates.
// EUC_2D rounds to the nearest integer, CEIL_2D rounds up, GEO reads the
// coordinates as (lon, lat) and returns great circle kilometres.
func CalcEdgeDist(coordinates [][]float64, distType string) ([][]float64, error) {
	n := len(coordinates)
	result := make([][]float64, n)
	for node := 0; node < n; node++ {
		if len(coordinates[node]) < 2 {
			return nil, fmt.Errorf("coordinates of node %d have %d components", node, len(coordinates[node]))
		}
		result[node] = make([]float64, n)
	}
	for node := 0; node < n; node++ {
		a := orb.Point{coordinates[node][0], coordinates[node][1]}
		for node2 := 0; node2 < node; node2++ {
			b := orb.Point{coordinates[node2][0], coordinates[node2][1]}
			var distance float64
			switch distType {
			case EDGE_WEIGHT_EUC_2D:
				distance = math.Floor(planar.Distance(a, b) + 0.5)
			case EDGE_WEIGHT_CEIL_2D:
				distance = math.Ceil(planar.Distance(a, b))
			case EDGE_WEIGHT_GEO:
				distance = geo.Distance(a, b) / 1000
			default:
				return nil, fmt.Errorf("unsupported edge weight type %q", distType)
			}
			result[node][node2] = distance
			result[node2][node] = distance
		}
	}
	return result, nil
}

// NetworkDistances computes shortest path distances between all nodes over
// the network arcs. Arc endpoints outside nodes act as junctions. Pairs
// without a path are left out of the matrix.
func NetworkDistances(nodes []Node, arcs []Arc, directed bool) (DistanceMatrix, error) {
	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	ids := make(map[Node]int64)
	id := func(n Node) int64 {
		if v, ok := ids[n]; ok {
			return v
		}
		v := int64(len(ids))
		ids[n] = v
		g.AddNode(simple.Node(v))
		return v
	}
	for _, n := range nodes {
		id(n)
	}
	setArc := func(u, v int64, w float64) {
		if e := g.WeightedEdge(u, v); e != nil && e.Weight() <= w {
			return
		}
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(u), simple.Node(v), w))
	}
	for _, a := range arcs {
		if a.Dist < 0 || math.IsNaN(a.Dist) {
			return nil, &InvalidDistanceError{Pair: Pair{a.From, a.To}, Dist: a.Dist}
		}
		u, v := id(a.From), id(a.To)
		if u == v {
			continue
		}
		setArc(u, v, a.Dist)
		if !directed {
			setArc(v, u, a.Dist)
		}
	}
	Log(LOG_DEBUG, "Network with %d vertices and %d arcs", len(ids), len(arcs))

	paths := path.DijkstraAllPaths(g)
	dist := make(DistanceMatrix)
	for _, i := range nodes {
		for _, j := range nodes {
			w := paths.Weight(ids[i], ids[j])
			if math.IsInf(w, 1) {
				continue
			}
			dist[Pair{i, j}] = w
		}
	}
	return dist, nil
}

// InstanceInputs derives the model inputs from an instance file according
// to its edge weight type.
func InstanceInputs(inst *EVCSInstance) ([]Node, DemandMap, DistanceMatrix, error) {
	demand := make(DemandMap, len(inst.Demand))
	for n, d := range inst.Demand {
		demand[n] = d
	}
	var dist DistanceMatrix
	switch inst.EdgeWeightType {
	case "", EDGE_WEIGHT_EXPLICIT:
		dist = make(DistanceMatrix, len(inst.Distances))
		for _, a := range inst.Distances {
			p := Pair{a.From, a.To}
			if _, dup := dist[p]; dup {
				return nil, nil, nil, fmt.Errorf("duplicate distance entry (%q, %q)", a.From, a.To)
			}
			dist[p] = a.Dist
		}
	case EDGE_WEIGHT_NETWORK:
		var err error
		if dist, err = NetworkDistances(inst.Nodes, inst.Network, inst.Directed); err != nil {
			return nil, nil, nil, err
		}
	default:
		if len(inst.NodeCoordinates) != len(inst.Nodes) {
			return nil, nil, nil, fmt.Errorf("%d coordinates for %d nodes", len(inst.NodeCoordinates), len(inst.Nodes))
		}
		d, err := CalcEdgeDist(inst.NodeCoordinates, inst.EdgeWeightType)
		if err != nil {
			return nil, nil, nil, err
		}
		dist = make(DistanceMatrix, len(inst.Nodes)*len(inst.Nodes))
		for a, i := range inst.Nodes {
			for b, j := range inst.Nodes {
				dist[Pair{i, j}] = d[a][b]
			}
		}
	}
	return inst.Nodes, demand, dist, nil
}

func SanitizeJsonArrayLineBreaks(json string) string {
	res := json
	var numbers = regexp.MustCompile(`\s*([-]?[0-9]+(\.[0-9]+)?(e[-+]?[0-9]+)?),\s+([-]?[0-9]+(\.[0-9]+)?(e[-+]?[0-9]+)?)(,)?`)
	var brackets = regexp.MustCompile(`\[(([-]?[0-9]+(\.[0-9]+)?(e[-+]?[0-9]+)?,)+[-]?[0-9]+(\.[0-9]+)?(e[-+]?[0-9]+)?)\s+\](,?)(\s+)`)
	for numbers.MatchString(res) {
		res = numbers.ReplaceAllString(res, "$1,$4$7")
	}
	for brackets.MatchString(res) {
		res = brackets.ReplaceAllString(res, "[$1]$7$8")
	}
	return res
}
