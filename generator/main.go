package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"git.solver4all.com/azaryc2s/evcs"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "evcs-generator"
	app.Usage = "generate random EV charging station siting instances"
	app.Flags = []cli.Flag{
		cli.IntSliceFlag{Name: "n", Usage: "List of number of nodes"},
		cli.StringFlag{Name: "name", Value: "zarychta", Usage: "Name for the instance"},
		cli.StringFlag{Name: "outputDir", Value: ".", Usage: "Output directory"},
		cli.IntFlag{Name: "count", Value: 1, Usage: "Number of instances per node count"},
		cli.Int64Flag{Name: "seed", Usage: "Random seed. 0 seeds from the clock"},
		cli.Float64Flag{Name: "x", Value: 100, Usage: "Max value on the x-axis (longitude span for GEO)"},
		cli.Float64Flag{Name: "y", Value: 100, Usage: "Max value on the y-axis (latitude span for GEO)"},
		cli.StringFlag{Name: "w", Value: evcs.EDGE_WEIGHT_EUC_2D, Usage: "EDGE_WEIGHT_TYPE - how the distance between nodes is calculated. EUC_2D|CEIL_2D|GEO|EXPLICIT"},
		cli.Float64Flag{Name: "demandMax", Value: 50, Usage: "The highest demand of a node"},
		cli.Float64Flag{Name: "zeroShare", Value: 0.2, Usage: "Share of nodes without demand"},
		cli.Float64Flag{Name: "coverage", Value: evcs.DEFAULT_COVERAGE_DIST, Usage: "Coverage distance stored with the instance"},
		cli.IntFlag{Name: "maxStations", Value: evcs.DEFAULT_MAX_STATIONS, Usage: "Station budget stored with the instance"},
	}
	app.Action = generate
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func generate(c *cli.Context) error {
	nodes := c.IntSlice("n")
	if len(nodes) == 0 {
		nodes = []int{20}
	}
	seed := c.Int64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	w := c.String("w")
	switch w {
	case evcs.EDGE_WEIGHT_EUC_2D, evcs.EDGE_WEIGHT_CEIL_2D, evcs.EDGE_WEIGHT_GEO, evcs.EDGE_WEIGHT_EXPLICIT:
	default:
		return fmt.Errorf("unsupported edge weight type %q", w)
	}
	name := c.String("name")

	params := evcs.DefaultParams()
	params.CoverageDistance = c.Float64("coverage")
	params.MaxStations = c.Int("maxStations")

	for l := 0; l < c.Int("count"); l++ {
		for _, n := range nodes {
			ids := make([]evcs.Node, n)
			demand := make(map[evcs.Node]float64, n)
			coordinatesArray := make([][]float64, n)
			for node := 0; node < n; node++ {
				ids[node] = evcs.Node(fmt.Sprintf("%d", node+1))
				coordinatesArray[node] = []float64{rng.Float64() * c.Float64("x"), rng.Float64() * c.Float64("y")}
				if rng.Float64() < c.Float64("zeroShare") {
					demand[ids[node]] = 0
				} else {
					demand[ids[node]] = math.Round(rng.Float64()*c.Float64("demandMax")*10) / 10
				}
			}

			inst := evcs.EVCSInstance{
				Name:      fmt.Sprintf("%s_%d_%s_%d", name, n, w, l),
				Comment:   fmt.Sprintf("%s instance Nr. %d with %d nodes, distances as %s, seed %d", name, l, n, w, seed),
				Type:      "EVCS",
				NodeCount: n,
				Nodes:     ids,
				Demand:    demand,
				Params:    &params,
			}
			if w == evcs.EDGE_WEIGHT_EXPLICIT {
				d, err := evcs.CalcEdgeDist(coordinatesArray, evcs.EDGE_WEIGHT_EUC_2D)
				if err != nil {
					return err
				}
				inst.EdgeWeightType = evcs.EDGE_WEIGHT_EXPLICIT
				for a := range ids {
					for b := range ids {
						inst.Distances = append(inst.Distances, evcs.Arc{From: ids[a], To: ids[b], Dist: d[a][b]})
					}
				}
			} else {
				inst.EdgeWeightType = w
				inst.NodeCoordinates = coordinatesArray
			}

			jsonInst, err := json.MarshalIndent(inst, "", "\t")
			if err != nil {
				return err
			}
			jsonInst = []byte(evcs.SanitizeJsonArrayLineBreaks(string(jsonInst)))
			fileName := filepath.Join(c.String("outputDir"), inst.Name+".json")
			if err = os.WriteFile(fileName, jsonInst, 0644); err != nil {
				return err
			}
			log.Printf("Wrote %s", fileName)
		}
	}
	return nil
}
