package evcs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSolveRecordsMetrics(t *testing.T) {
	nodes, demand, dist, params := scenario()
	m, err := CreateEVCSModel(nodes, demand, dist, params)
	if err != nil {
		t.Fatalf("CreateEVCSModel: %v", err)
	}
	s := NewBranchAndBound(DefaultSolverOptions())
	counter := SolvesTotal.WithLabelValues(BACKEND_BNB, "Optimal")
	before := testutil.ToFloat64(counter)
	if _, err := Solve(context.Background(), s, m, 0); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("expected counter %v, got %v", before+1, got)
	}
	if got := testutil.ToFloat64(ModelVariables.WithLabelValues("continuous")); got != 5 {
		t.Errorf("expected 5 continuous variables, got %v", got)
	}
}

func TestWriteMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evcs.prom")
	SolvesTotal.WithLabelValues(BACKEND_BNB, "Infeasible").Inc()
	if err := WriteMetrics(path); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "evcs_solves_total") {
		t.Errorf("textfile lacks solve counter:\n%s", data)
	}
	// a second call must not register twice
	if err := WriteMetrics(path); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
}
