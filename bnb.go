package evcs

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	simplexTol = 1e-10
	// artificialTol is the largest total artificial value accepted as feasible.
	artificialTol = 1e-9
	// penaltyAttempts bounds how often the artificial penalty is raised.
	penaltyAttempts = 3
)

// simplexFunc has the signature of lp.Simplex.
type simplexFunc func(c []float64, A mat.Matrix, b []float64, tol float64, initialBasic []int) (float64, []float64, error)

// BranchAndBound is a pure Go MILP backend: LP relaxations are solved with
// gonum's simplex, binaries are branched on depth first.
type BranchAndBound struct {
	MaxNodes  int
	Tolerance float64

	simplex simplexFunc
}

func NewBranchAndBound(opts SolverOptions) *BranchAndBound {
	b := &BranchAndBound{MaxNodes: opts.MaxNodes, Tolerance: opts.Tolerance, simplex: lp.Simplex}
	if b.Tolerance <= 0 {
		b.Tolerance = DEFAULT_TOLERANCE
	}
	return b
}

func (b *BranchAndBound) Name() string { return BACKEND_BNB }

type fixing struct {
	v   int
	val float64
}

type bnbNode struct {
	fix   []fixing
	bound float64
}

// lpPanicError carries a panic raised inside an LP solve.
type lpPanicError struct {
	v interface{}
}

func (e *lpPanicError) Error() string { return fmt.Sprintf("panic: %v", e.v) }

func (b *BranchAndBound) Solve(ctx context.Context, m *EVCSModel, timeout time.Duration) (res *SolveResult, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = &SolveResult{Status: STATUS_SOLVER_ERROR, Tolerance: b.Tolerance, Elapsed: time.Since(start)}
			err = &SolverError{Backend: b.Name(), Kind: SOLVER_ERR_CRASH, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	simplex := b.simplex
	if simplex == nil {
		simplex = lp.Simplex
	}

	sf, status := newStdForm(m, simplex)
	if status != STATUS_UNKNOWN {
		Log(LOG_INFO, "Model is %s before branching", status)
		return &SolveResult{Status: status, Obj: math.NaN(), Bound: math.NaN(), Tolerance: b.Tolerance, Elapsed: time.Since(start)}, nil
	}

	incumbent := math.Inf(1)
	var best []float64
	explored := 0
	stack := []bnbNode{{bound: math.Inf(-1)}}
	timedOut := func(pending float64) (*SolveResult, error) {
		Log(LOG_INFO, "Branch and bound stopped after %d nodes: %s", explored, ctx.Err().Error())
		return &SolveResult{
			Status:        STATUS_TIMED_OUT,
			Obj:           incumbent,
			Bound:         math.Min(pending, openBound(stack, incumbent)),
			Tolerance:     b.Tolerance,
			NodesExplored: explored,
			Elapsed:       time.Since(start),
		}, nil
	}

	for len(stack) > 0 {
		if ctx.Err() != nil {
			return timedOut(incumbent)
		}
		if b.MaxNodes > 0 && explored >= b.MaxNodes {
			res := &SolveResult{Status: STATUS_SOLVER_ERROR, Obj: incumbent, Bound: openBound(stack, incumbent), Tolerance: b.Tolerance, NodesExplored: explored, Elapsed: time.Since(start)}
			return res, &SolverError{Backend: b.Name(), Kind: SOLVER_ERR_RESOURCE, Err: fmt.Errorf("node limit %d reached", b.MaxNodes)}
		}
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node.bound >= incumbent-b.gap(incumbent) {
			continue
		}
		explored++

		obj, x, lpErr := sf.solveContext(ctx, node.fix)
		var pe *lpPanicError
		switch {
		case lpErr != nil && ctx.Err() != nil:
			return timedOut(node.bound)
		case errors.Is(lpErr, lp.ErrInfeasible):
			Log(LOG_SPAM, "Node %d infeasible with %d fixings", explored, len(node.fix))
			continue
		case errors.Is(lpErr, lp.ErrUnbounded):
			return &SolveResult{Status: STATUS_UNBOUNDED, Obj: math.Inf(-1), Bound: math.Inf(-1), Tolerance: b.Tolerance, NodesExplored: explored, Elapsed: time.Since(start)}, nil
		case errors.As(lpErr, &pe):
			res := &SolveResult{Status: STATUS_SOLVER_ERROR, Obj: incumbent, Tolerance: b.Tolerance, NodesExplored: explored, Elapsed: time.Since(start)}
			return res, &SolverError{Backend: b.Name(), Kind: SOLVER_ERR_CRASH, Err: lpErr}
		case lpErr != nil:
			res := &SolveResult{Status: STATUS_SOLVER_ERROR, Obj: incumbent, Tolerance: b.Tolerance, NodesExplored: explored, Elapsed: time.Since(start)}
			return res, &SolverError{Backend: b.Name(), Kind: SOLVER_ERR_NUMERICAL, Err: lpErr}
		}
		if obj >= incumbent-b.gap(incumbent) {
			continue
		}

		branch := -1
		bestFrac := b.Tolerance
		for v := m.xStart; v < m.xStart+m.xCount; v++ {
			frac := math.Min(x[v]-math.Floor(x[v]), math.Ceil(x[v])-x[v])
			if frac > bestFrac {
				branch, bestFrac = v, frac
			}
		}
		if branch < 0 {
			Log(LOG_DEBUG, "New incumbent %v at node %d", obj, explored)
			incumbent, best = obj, x
			continue
		}

		down := bnbNode{fix: withFixing(node.fix, branch, 0), bound: obj}
		up := bnbNode{fix: withFixing(node.fix, branch, 1), bound: obj}
		// the child on the rounding side is popped first
		if x[branch] >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	if best == nil {
		return &SolveResult{Status: STATUS_INFEASIBLE, Obj: math.NaN(), Bound: math.NaN(), Tolerance: b.Tolerance, NodesExplored: explored, Elapsed: time.Since(start)}, nil
	}
	return &SolveResult{
		Status:        STATUS_OPTIMAL,
		Obj:           incumbent,
		Bound:         incumbent,
		Values:        clampValues(m, best, b.Tolerance),
		Tolerance:     b.Tolerance,
		NodesExplored: explored,
		Elapsed:       time.Since(start),
	}, nil
}

func (b *BranchAndBound) gap(incumbent float64) float64 {
	if math.IsInf(incumbent, 0) {
		return 0
	}
	return 1e-9 * math.Max(1, math.Abs(incumbent))
}

func withFixing(fix []fixing, v int, val float64) []fixing {
	out := make([]fixing, len(fix), len(fix)+1)
	copy(out, fix)
	return append(out, fixing{v: v, val: val})
}

func openBound(stack []bnbNode, incumbent float64) float64 {
	bound := incumbent
	for _, n := range stack {
		if n.bound < bound {
			bound = n.bound
		}
	}
	return bound
}

type stdRow struct {
	ind   []int
	val   []float64
	sense int8
	rhs   float64
}

// stdForm is the relaxation of the model over assignment fractions
// f_ij = y_ij / D_i, so every matrix entry is 0 or ±1 whatever the demands:
//
//	sum_j f_ij = 1        for every node i with D_i > 0
//	f_ij - x_j <= 0       for every feasible (i,j) with D_i > 0
//	sum_j x_j <= MaxStations
//	x_j <= 1, or x_j = v when fixed
//
// Assignments of nodes without demand are fixed at 0. The costs of f_ij are
// V*d_ij*D_i and all costs are divided by the largest one.
type stdForm struct {
	m       *EVCSModel
	simplex simplexFunc
	xCol    []int // node -> column of x_j
	fCol    []int // feasible pair -> column of f_ij, -1 when D_i is 0
	ncol    int
	c       []float64
	rows    []stdRow
}

// newStdForm returns a status other than STATUS_UNKNOWN when the model is
// decided without solving: a node with demand but no feasible pair makes it
// infeasible.
func newStdForm(m *EVCSModel, simplex simplexFunc) (*stdForm, Status) {
	sf := &stdForm{m: m, simplex: simplex, xCol: make([]int, m.xCount), fCol: make([]int, m.yCount)}
	for j := range sf.xCol {
		sf.xCol[j] = sf.ncol
		sf.ncol++
	}
	byOrigin := make([][]int, len(m.nodes))
	for k, p := range m.pairs {
		i := m.nodeIdx[p.From]
		if m.demand[i] == 0 {
			sf.fCol[k] = -1
			continue
		}
		sf.fCol[k] = sf.ncol
		sf.ncol++
		byOrigin[i] = append(byOrigin[i], k)
	}

	sf.c = make([]float64, sf.ncol)
	for j, col := range sf.xCol {
		sf.c[col] = m.obj[m.xStart+j]
	}
	for k, col := range sf.fCol {
		if col >= 0 {
			sf.c[col] = m.obj[m.yStart+k] * m.demand[m.nodeIdx[m.pairs[k].From]]
		}
	}
	scale := 0.0
	for _, c := range sf.c {
		scale = math.Max(scale, math.Abs(c))
	}
	if scale > 0 {
		for k := range sf.c {
			sf.c[k] /= scale
		}
	}

	for i, ks := range byOrigin {
		if m.demand[i] == 0 {
			continue
		}
		if len(ks) == 0 {
			Log(LOG_INFO, "Node %s has demand %v but no station within reach", m.nodes[i], m.demand[i])
			return nil, STATUS_INFEASIBLE
		}
		row := stdRow{sense: EQUAL, rhs: 1}
		for _, k := range ks {
			row.ind = append(row.ind, sf.fCol[k])
			row.val = append(row.val, 1)
		}
		sf.rows = append(sf.rows, row)
	}
	for k, col := range sf.fCol {
		if col < 0 {
			continue
		}
		j := m.nodeIdx[m.pairs[k].To]
		sf.rows = append(sf.rows, stdRow{ind: []int{col, sf.xCol[j]}, val: []float64{1, -1}, sense: LESS_EQUAL})
	}
	budget := stdRow{sense: LESS_EQUAL, rhs: float64(m.params.MaxStations)}
	for _, col := range sf.xCol {
		budget.ind = append(budget.ind, col)
		budget.val = append(budget.val, 1)
	}
	sf.rows = append(sf.rows, budget)
	return sf, STATUS_UNKNOWN
}

type lpOutcome struct {
	obj    float64
	values []float64
	err    error
}

// solveContext runs solve in its own goroutine and gives up waiting when ctx
// is done. An abandoned solve finishes in the background and is discarded.
func (sf *stdForm) solveContext(ctx context.Context, fix []fixing) (float64, []float64, error) {
	done := make(chan lpOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- lpOutcome{err: &lpPanicError{v: r}}
			}
		}()
		obj, values, err := sf.solve(fix)
		done <- lpOutcome{obj: obj, values: values, err: err}
	}()
	select {
	case out := <-done:
		return out.obj, out.values, out.err
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

// solve solves the relaxation with the given binaries fixed and returns the
// model objective and the values indexed by model variable.
//
// Every row gets one auxiliary column: a slack for inequality rows and an
// artificial for equality rows. All right hand sides are non-negative, so
// the auxiliaries form a feasible identity basis and gonum never has to
// search for one. Artificials are penalised in the objective. When they stay
// positive a phase one solve tells infeasibility apart from a penalty that
// was too small.
func (sf *stdForm) solve(fix []fixing) (float64, []float64, error) {
	m := sf.m
	fixed := make(map[int]float64, len(fix))
	for _, f := range fix {
		fixed[f.v] = f.val
	}

	nRows := len(sf.rows) + m.xCount
	nCols := sf.ncol + nRows
	A := mat.NewDense(nRows, nCols, nil)
	b := make([]float64, nRows)
	basic := make([]int, nRows)
	var artificial []int

	for r, row := range sf.rows {
		for k, col := range row.ind {
			A.Set(r, col, row.val[k])
		}
		aux := sf.ncol + r
		A.Set(r, aux, 1)
		basic[r] = aux
		b[r] = row.rhs
		if row.sense == EQUAL {
			artificial = append(artificial, aux)
		}
	}
	for j, col := range sf.xCol {
		r := len(sf.rows) + j
		aux := sf.ncol + r
		A.Set(r, col, 1)
		A.Set(r, aux, 1)
		basic[r] = aux
		b[r] = 1
		if val, ok := fixed[m.xStart+j]; ok {
			b[r] = val
			artificial = append(artificial, aux)
		}
	}

	penalty := 1e3 * float64(nCols)
	checkedFeasible := false
	for attempt := 0; attempt < penaltyAttempts; attempt++ {
		c := make([]float64, nCols)
		copy(c, sf.c)
		for _, a := range artificial {
			c[a] = penalty
		}
		_, x, err := sf.simplex(c, A, b, simplexTol, basic)
		if err != nil {
			return 0, nil, err
		}
		if artificialSum(x, artificial) <= artificialTol {
			values := sf.values(x)
			return m.Evaluate(values), values, nil
		}
		if !checkedFeasible {
			phase1 := make([]float64, nCols)
			for _, a := range artificial {
				phase1[a] = 1
			}
			_, x1, err := sf.simplex(phase1, A, b, simplexTol, basic)
			if err != nil {
				return 0, nil, err
			}
			if artificialSum(x1, artificial) > artificialTol {
				return 0, nil, lp.ErrInfeasible
			}
			checkedFeasible = true
		}
		penalty *= 1e3
	}
	return 0, nil, fmt.Errorf("artificial variables remain positive with penalty %g", penalty)
}

func artificialSum(x []float64, artificial []int) float64 {
	sum := 0.0
	for _, a := range artificial {
		sum += math.Abs(x[a])
	}
	return sum
}

// values maps a relaxation solution back to model variables, y_ij = D_i*f_ij.
func (sf *stdForm) values(x []float64) []float64 {
	m := sf.m
	values := make([]float64, m.NumVars())
	for j, col := range sf.xCol {
		values[m.xStart+j] = x[col]
	}
	for k, col := range sf.fCol {
		if col >= 0 {
			values[m.yStart+k] = m.demand[m.nodeIdx[m.pairs[k].From]] * x[col]
		}
	}
	return values
}
