package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"git.solver4all.com/azaryc2s/evcs"
)

func main() {
	if len(os.Args) < 2 {
		log.Printf("No arguments passed!")
		return
	}
	dirName := os.Args[1]
	dir, err := os.ReadDir(dirName)
	if err != nil {
		log.Printf("Couldn't open directory %s: %s\n", os.Args[1], err.Error())
		return
	}
	evcs.InitLoggers(evcs.LOG_ERROR)
	fmt.Printf("Name,Status,Optimal,Time,Obj,LBound,Gap,Stations,Dimension,Comment\n")
	for _, f := range dir {
		fileName := filepath.Join(dirName, f.Name())
		if !strings.HasSuffix(fileName, ".json") {
			continue
		}
		inst := evcs.EVCSInstance{}
		instStr, err := os.ReadFile(fileName)
		if err != nil {
			log.Printf("Couldn't read %s: %s\n", f.Name(), err.Error())
			return
		}
		if err = json.Unmarshal(instStr, &inst); err != nil {
			log.Printf("Couldn't parse %s: %s\n", f.Name(), err.Error())
			return
		}
		if inst.Solution == nil {
			fmt.Printf("No solution for %s\n", inst.Name)
			continue
		}
		sol := *inst.Solution
		if sol.Optimal {
			if err := verify(&inst); err != nil {
				sol.Comment = fmt.Sprintf("%s %s", sol.Comment, err.Error())
			}
		}
		gap := 0.0
		if sol.Optimal && sol.Obj != 0 {
			gap = math.Round((sol.Obj-sol.LBound)/math.Abs(sol.Obj)*1000) / 1000.0
		}
		comment := strings.ReplaceAll(sol.Comment, ",", ";")
		fmt.Printf("%s,%s,%t,%s,%.2f,%.2f,%.4f,%d,%d,%s\n", inst.Name, sol.Status, sol.Optimal, sol.Time, sol.Obj, sol.LBound, gap, len(sol.OpenStations), len(inst.Nodes), comment)
	}
}

// verify rebuilds the model of the instance and checks the stored solution
// against it, including the stored objective.
func verify(inst *evcs.EVCSInstance) error {
	params := evcs.DefaultParams()
	if inst.Params != nil {
		params = *inst.Params
	}
	nodes, demand, dist, err := evcs.InstanceInputs(inst)
	if err != nil {
		return err
	}
	model, err := evcs.CreateEVCSModel(nodes, demand, dist, params)
	if err != nil {
		return err
	}
	assignments := make(map[evcs.Pair]float64, len(inst.Solution.Assignments))
	variable := 0.0
	for _, a := range inst.Solution.Assignments {
		p := evcs.Pair{From: a.From, To: a.To}
		assignments[p] += a.Demand
		d, _ := model.Distance(p)
		variable += params.VariableCost * d * a.Demand
	}
	if err := evcs.CheckSolutionValidity(model, inst.Solution.OpenStations, assignments); err != nil {
		return err
	}
	obj := params.FixedCost*float64(len(inst.Solution.OpenStations)) + variable
	if math.Abs(obj-inst.Solution.Obj) > 1e-6*math.Max(1, math.Abs(obj)) {
		return fmt.Errorf("stored objective %v but solution costs %v", inst.Solution.Obj, obj)
	}
	return nil
}
