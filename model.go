package evcs

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Constr is one linear row: sum(Val[k] * var[Ind[k]]) Sense RHS.
type Constr struct {
	Name  string
	Ind   []int32
	Val   []float64
	Sense int8
	RHS   float64
}

// EVCSModel is the station siting MILP. It is built once by CreateEVCSModel
// and not modified afterwards; backends read it through the accessors.
//
// Variable layout: x_j (station opened at j) occupy [XStart, XStart+XCount),
// y_i_j (demand of i served at j) occupy [YStart, YStart+YCount), one per
// feasible pair in the order of FeasiblePairs.
type EVCSModel struct {
	nodes    []Node
	nodeIdx  map[Node]int
	demand   []float64
	params   Params
	pairs    []Pair
	pairDist []float64
	pairIdx  map[Pair]int

	varNames []string
	varType  []int8
	obj      []float64
	constrs  []Constr

	xStart, yStart int
	xCount, yCount int
}

// FeasiblePairs returns every (i, j) over nodes, in node order, for which a
// distance entry exists and does not exceed coverage.
func FeasiblePairs(nodes []Node, dist DistanceMatrix, coverage float64) []Pair {
	var pairs []Pair
	for _, i := range nodes {
		for _, j := range nodes {
			d, ok := dist[Pair{i, j}]
			if !ok || d > coverage {
				continue
			}
			pairs = append(pairs, Pair{i, j})
		}
	}
	return pairs
}

func validateInputs(nodes []Node, demand DemandMap, dist DistanceMatrix, params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if len(nodes) == 0 {
		return ErrEmptyNodeSet
	}
	seen := make(map[Node]bool, len(nodes))
	for _, n := range nodes {
		if seen[n] {
			return &DuplicateNodeError{Node: n}
		}
		seen[n] = true
	}
	for _, n := range nodes {
		d, ok := demand[n]
		if !ok {
			return &MissingDemandError{Node: n}
		}
		if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return &InvalidDemandError{Node: n, Demand: d}
		}
	}
	for _, i := range nodes {
		for _, j := range nodes {
			d, ok := dist[Pair{i, j}]
			if ok && (d < 0 || math.IsNaN(d)) {
				return &InvalidDistanceError{Pair: Pair{i, j}, Dist: d}
			}
		}
	}
	return nil
}

// CreateEVCSModel builds the station siting model:
//
//	min  sum_j F*x_j + sum_(i,j) V*d_ij*y_ij
//	s.t. sum_j y_ij = D_i           for every node i
//	     y_ij - D_i*x_j <= 0        for every feasible (i,j)
//	     sum_j x_j <= MaxStations
//	     x binary, y >= 0
func CreateEVCSModel(nodes []Node, demand DemandMap, dist DistanceMatrix, params Params) (*EVCSModel, error) {
	if err := validateInputs(nodes, demand, dist, params); err != nil {
		Log(LOG_ERROR, "Invalid model input: %s", err.Error())
		return nil, err
	}

	N := len(nodes)
	m := &EVCSModel{
		nodes:   append([]Node(nil), nodes...),
		nodeIdx: make(map[Node]int, N),
		demand:  make([]float64, N),
		params:  params,
	}
	for k, n := range nodes {
		m.nodeIdx[n] = k
		m.demand[k] = demand[n]
	}

	m.pairs = FeasiblePairs(nodes, dist, params.CoverageDistance)
	m.pairDist = make([]float64, len(m.pairs))
	m.pairIdx = make(map[Pair]int, len(m.pairs))
	for k, p := range m.pairs {
		m.pairDist[k] = dist[p]
		m.pairIdx[p] = k
	}
	Log(LOG_INFO, "%d nodes, %d of %d pairs within coverage distance %v", N, len(m.pairs), N*N, params.CoverageDistance)

	m.xStart = 0
	m.xCount = N
	m.yStart = m.xStart + m.xCount
	m.yCount = len(m.pairs)
	varCount := m.xCount + m.yCount

	m.varNames = make([]string, varCount)
	m.varType = make([]int8, varCount)
	m.obj = make([]float64, varCount)
	for j, n := range nodes {
		v := m.xStart + j
		m.varNames[v] = "x_" + lpName(n)
		m.varType[v] = VAR_BINARY
		m.obj[v] = params.FixedCost
	}
	for k, p := range m.pairs {
		v := m.yStart + k
		m.varNames[v] = fmt.Sprintf("y_%s_%s", lpName(p.From), lpName(p.To))
		m.varType[v] = VAR_CONTINUOUS
		m.obj[v] = params.VariableCost * m.pairDist[k]
	}

	// rows of y grouped by origin, so the demand rows need one pass
	byOrigin := make([][]int32, N)
	for k, p := range m.pairs {
		i := m.nodeIdx[p.From]
		byOrigin[i] = append(byOrigin[i], int32(m.yStart+k))
	}

	//Demand satisfaction: sum_j y_ij = D_i
	{
		Log(LOG_INFO, "Creating and setting constraints sum_j(y_ij) = D_i")
		for i, n := range nodes {
			ind := append([]int32(nil), byOrigin[i]...)
			val := make([]float64, len(ind))
			for k := range val {
				val[k] = 1.0
			}
			if len(ind) == 0 {
				Log(LOG_DEBUG, "Node %s has no station within reach, its demand row is empty", n)
			}
			m.constrs = append(m.constrs, Constr{Name: "demand_" + lpName(n), Ind: ind, Val: val, Sense: EQUAL, RHS: m.demand[i]})
		}
	}

	//Linking: y_ij <= D_i * x_j
	{
		Log(LOG_INFO, "Creating and setting constraints y_ij - D_i*x_j <= 0")
		for k, p := range m.pairs {
			i := m.nodeIdx[p.From]
			j := m.nodeIdx[p.To]
			ind := []int32{int32(m.yStart + k), int32(m.xStart + j)}
			val := []float64{1.0, -m.demand[i]}
			Log(LOG_SPAM, "Adding %s - %v*%s <= 0", m.varNames[ind[0]], m.demand[i], m.varNames[ind[1]])
			name := fmt.Sprintf("link_%s_%s", lpName(p.From), lpName(p.To))
			m.constrs = append(m.constrs, Constr{Name: name, Ind: ind, Val: val, Sense: LESS_EQUAL, RHS: 0})
		}
	}

	//Budget: sum_j x_j <= MaxStations
	{
		Log(LOG_INFO, "Creating and setting constraint sum_j(x_j) <= %d", params.MaxStations)
		ind := make([]int32, N)
		val := make([]float64, N)
		for j := 0; j < N; j++ {
			ind[j] = int32(m.xStart + j)
			val[j] = 1.0
		}
		m.constrs = append(m.constrs, Constr{Name: "budget", Ind: ind, Val: val, Sense: LESS_EQUAL, RHS: float64(params.MaxStations)})
	}

	// lpName is lossy: "a b" and "a_b", or pairs (a_b,c) and (a,b_c), would
	// share names in the LP file and in Gurobi
	uniqueNames(m.varNames)
	rowNames := make([]string, len(m.constrs))
	for k := range m.constrs {
		rowNames[k] = m.constrs[k].Name
	}
	uniqueNames(rowNames)
	for k := range m.constrs {
		m.constrs[k].Name = rowNames[k]
	}

	return m, nil
}

// uniqueNames suffixes every repeated name with its index until all names
// are distinct. First occurrences keep their name.
func uniqueNames(names []string) {
	used := make(map[string]bool, len(names))
	for _, n := range names {
		used[n] = true
	}
	seen := make(map[string]bool, len(names))
	for k, n := range names {
		if !seen[n] {
			seen[n] = true
			continue
		}
		name := fmt.Sprintf("%s_%d", n, k)
		for used[name] {
			name += "_"
		}
		used[name] = true
		seen[name] = true
		names[k] = name
	}
}

func (m *EVCSModel) Nodes() []Node         { return append([]Node(nil), m.nodes...) }
func (m *EVCSModel) Params() Params        { return m.params }
func (m *EVCSModel) FeasiblePairs() []Pair { return append([]Pair(nil), m.pairs...) }
func (m *EVCSModel) NumVars() int          { return len(m.varNames) }
func (m *EVCSModel) NumConstrs() int       { return len(m.constrs) }
func (m *EVCSModel) XStart() int           { return m.xStart }
func (m *EVCSModel) YStart() int           { return m.yStart }
func (m *EVCSModel) VarName(v int) string  { return m.varNames[v] }
func (m *EVCSModel) VarType(v int) int8    { return m.varType[v] }

// Demand returns D_n and whether n belongs to the model.
func (m *EVCSModel) Demand(n Node) (float64, bool) {
	k, ok := m.nodeIdx[n]
	if !ok {
		return 0, false
	}
	return m.demand[k], true
}

// Distance returns the distance of a feasible pair.
func (m *EVCSModel) Distance(p Pair) (float64, bool) {
	k, ok := m.pairIdx[p]
	if !ok {
		return 0, false
	}
	return m.pairDist[k], true
}

// OpenIndex returns the variable index of x_n.
func (m *EVCSModel) OpenIndex(n Node) (int, bool) {
	k, ok := m.nodeIdx[n]
	if !ok {
		return -1, false
	}
	return m.xStart + k, true
}

// AssignIndex returns the variable index of y_p, false when p is not feasible.
func (m *EVCSModel) AssignIndex(p Pair) (int, bool) {
	k, ok := m.pairIdx[p]
	if !ok {
		return -1, false
	}
	return m.yStart + k, true
}

// VarUpperBound is 1 for x and D_i for y_ij.
func (m *EVCSModel) VarUpperBound(v int) float64 {
	if v < m.yStart {
		return 1
	}
	p := m.pairs[v-m.yStart]
	return m.demand[m.nodeIdx[p.From]]
}

func (m *EVCSModel) ObjCoeffs() []float64 {
	return append([]float64(nil), m.obj...)
}

// Constrs returns a deep copy of the rows.
func (m *EVCSModel) Constrs() []Constr {
	out := make([]Constr, len(m.constrs))
	for k, c := range m.constrs {
		out[k] = Constr{
			Name:  c.Name,
			Ind:   append([]int32(nil), c.Ind...),
			Val:   append([]float64(nil), c.Val...),
			Sense: c.Sense,
			RHS:   c.RHS,
		}
	}
	return out
}

// Evaluate computes the objective value of a full variable vector.
func (m *EVCSModel) Evaluate(values []float64) float64 {
	obj := 0.0
	for v, c := range m.obj {
		obj += c * values[v]
	}
	return obj
}

// WriteLP writes the model in CPLEX LP format.
func (m *EVCSModel) WriteLP(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\\ EVCS station siting: %d nodes, %d pairs\n", len(m.nodes), len(m.pairs))
	fmt.Fprintln(bw, "Minimize")
	fmt.Fprintf(bw, " obj:%s\n", m.lpExpr(nil, m.obj))
	fmt.Fprintln(bw, "Subject To")
	for _, c := range m.constrs {
		var sense string
		switch c.Sense {
		case LESS_EQUAL:
			sense = "<="
		case GREATER_EQUAL:
			sense = ">="
		default:
			sense = "="
		}
		expr := m.lpExpr(c.Ind, c.Val)
		if expr == "" {
			// LP format has no empty rows
			expr = " 0 " + m.varNames[m.xStart]
		}
		fmt.Fprintf(bw, " %s:%s %s %s\n", c.Name, expr, sense, formatCoeff(c.RHS))
	}
	fmt.Fprintln(bw, "Bounds")
	for k := range m.pairs {
		fmt.Fprintf(bw, " %s >= 0\n", m.varNames[m.yStart+k])
	}
	fmt.Fprintln(bw, "Binaries")
	for j := 0; j < m.xCount; j++ {
		fmt.Fprintf(bw, " %s\n", m.varNames[m.xStart+j])
	}
	fmt.Fprintln(bw, "End")
	return bw.Flush()
}

// lpExpr renders a linear expression. A nil ind means val is dense.
func (m *EVCSModel) lpExpr(ind []int32, val []float64) string {
	var sb strings.Builder
	for k, c := range val {
		v := k
		if ind != nil {
			v = int(ind[k])
		}
		if c == 0 && ind == nil {
			continue
		}
		if c < 0 {
			sb.WriteString(" - ")
		} else {
			sb.WriteString(" + ")
		}
		sb.WriteString(formatCoeff(math.Abs(c)))
		sb.WriteByte(' ')
		sb.WriteString(m.varNames[v])
	}
	return strings.TrimPrefix(sb.String(), " +")
}

func formatCoeff(c float64) string {
	return strconv.FormatFloat(c, 'g', -1, 64)
}

// lpName keeps identifiers usable as LP column and row names.
func lpName(n Node) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			return r
		}
		return '_'
	}, string(n))
}
