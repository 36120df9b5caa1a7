package evcs

const (
	BACKEND_BNB    = "BNB"
	BACKEND_GUROBI = "GUROBI"

	EDGE_WEIGHT_EXPLICIT = "EXPLICIT"
	EDGE_WEIGHT_EUC_2D   = "EUC_2D"
	EDGE_WEIGHT_CEIL_2D  = "CEIL_2D"
	EDGE_WEIGHT_GEO      = "GEO"
	EDGE_WEIGHT_NETWORK  = "NETWORK"

	VAR_BINARY     int8 = 'B'
	VAR_CONTINUOUS int8 = 'C'

	LESS_EQUAL    int8 = '<'
	GREATER_EQUAL int8 = '>'
	EQUAL         int8 = '='
)

// Node identifies a location of the network. Identifiers are opaque.
type Node string

// Pair is an ordered (origin, station) pair of nodes.
type Pair struct {
	From Node
	To   Node
}

// DemandMap holds the charging demand originating at each node.
type DemandMap map[Node]float64

// DistanceMatrix is partial: a missing pair means there is no usable path.
type DistanceMatrix map[Pair]float64

type Arc struct {
	From Node    `json:"from"`
	To   Node    `json:"to"`
	Dist float64 `json:"dist"`
}

type Assignment struct {
	From   Node    `json:"from"`
	To     Node    `json:"to"`
	Demand float64 `json:"demand"`
}

type EVCSInstance struct {
	Name    string `json:"name"`
	Comment string `json:"comment"`
	Type    string `json:"type"`

	NodeCount       int               `json:"node_count"`
	Nodes           []Node            `json:"nodes"`
	Demand          map[Node]float64  `json:"demand"`
	EdgeWeightType  string            `json:"edge_weight_type"`
	NodeCoordinates [][]float64       `json:"node_coordinates,omitempty"`
	Distances       []Arc             `json:"distances,omitempty"`
	Network         []Arc             `json:"network,omitempty"`
	Directed        bool              `json:"directed,omitempty"`
	Params          *Params           `json:"params,omitempty"`
	Meta            map[string]string `json:"meta,omitempty"`

	Solution *EVCSSolution `json:"solution,omitempty"`
}

type EVCSSolution struct {
	RunID         string       `json:"run_id"`
	Backend       string       `json:"backend"`
	Status        string       `json:"status"`
	Optimal       bool         `json:"optimal"`
	Obj           float64      `json:"obj"`
	LBound        float64      `json:"lbound"`
	FixedCost     float64      `json:"fixed_cost"`
	VariableCost  float64      `json:"variable_cost"`
	OpenStations  []Node       `json:"open_stations"`
	Assignments   []Assignment `json:"assignments"`
	NodesExplored int          `json:"nodes_explored"`

	Time    string  `json:"time"`
	System  SysInfo `json:"system"`
	Comment string  `json:"comment"`
}

// SysInfo saves the basic system information
type SysInfo struct {
	Platform string
	CPU      string
	RAM      string
}
