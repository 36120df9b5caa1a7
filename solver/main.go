/* Copyright 2021, Arkadiusz Zarychta, arkadiusz.zarychta@h-brs.de */
/* Copyright 2021, Gurobi Optimization, LLC */

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"git.solver4all.com/azaryc2s/evcs"
	"github.com/joho/godotenv"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
	"github.com/urfave/cli"
)

func main() {
	_ = godotenv.Load(".env")

	app := cli.NewApp()
	app.Name = "evcs-solver"
	app.Usage = "site EV charging stations on a network instance"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "input", Value: "input.json", Usage: "Path to the input instance"},
		cli.StringFlag{Name: "output", Usage: "Path to the output file. By default the input file will be overwritten adding the solution"},
		cli.StringFlag{Name: "config", Usage: "Optional YAML file with params and solver settings"},
		cli.StringFlag{Name: "backend", Usage: "Solver backend. BNB (default) or GUROBI"},
		cli.DurationFlag{Name: "timeout", Usage: "Time limit for the solve, e.g. 30s. 0 means none"},
		cli.Float64Flag{Name: "coverage", Usage: "Maximum service distance"},
		cli.IntFlag{Name: "max-stations", Usage: "Maximum number of stations"},
		cli.Float64Flag{Name: "fixed-cost", Usage: "Cost per opened station"},
		cli.Float64Flag{Name: "variable-cost", Usage: "Cost per unit demand per unit distance"},
		cli.BoolFlag{Name: "lp", Usage: "Write the model to <input>.lp before solving"},
		cli.StringFlag{Name: "metrics", Usage: "Write Prometheus metrics to this textfile after solving"},
		cli.IntFlag{Name: "log", Value: evcs.LOG_INFO, Usage: "Level of the logging output. Higher value is more verbose. Range 1-4"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		evcs.Log(evcs.LOG_ERROR, err.Error())
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	evcs.InitLoggers(c.Int("log"))
	inputF := c.String("input")

	cfg, err := evcs.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log") || cfg.LogLevel == 0 {
		cfg.LogLevel = c.Int("log")
	}
	evcs.InitLoggers(cfg.LogLevel)

	instStr, err := os.ReadFile(inputF)
	if err != nil {
		return fmt.Errorf("at %s: %w", inputF, err)
	}
	var pInst evcs.EVCSInstance
	if err = json.Unmarshal(instStr, &pInst); err != nil {
		return fmt.Errorf("at %s: %w", inputF, err)
	}

	params := cfg.Params
	if pInst.Params != nil {
		params = *pInst.Params
	}
	if c.IsSet("coverage") {
		params.CoverageDistance = c.Float64("coverage")
	}
	if c.IsSet("max-stations") {
		params.MaxStations = c.Int("max-stations")
	}
	if c.IsSet("fixed-cost") {
		params.FixedCost = c.Float64("fixed-cost")
	}
	if c.IsSet("variable-cost") {
		params.VariableCost = c.Float64("variable-cost")
	}
	if c.IsSet("backend") {
		cfg.Solver.Backend = strings.ToUpper(c.String("backend"))
	}
	if c.IsSet("timeout") {
		cfg.Solver.TimeLimit = c.Duration("timeout")
	}
	pInst.Params = &params

	if c.Bool("lp") {
		if err := writeLP(&pInst, params, strings.ReplaceAll(inputF, ".json", ".lp")); err != nil {
			return err
		}
	}

	solver, err := evcs.NewSolver(cfg.Solver)
	if err != nil {
		return err
	}
	if closer, ok := solver.(interface{ Close() }); ok {
		defer closer.Close()
	}

	var cache evcs.SolutionCache
	if cfg.RedisURL != "" {
		rc, err := evcs.NewRedisCache(cfg.RedisURL, 24*time.Hour)
		if err != nil {
			evcs.Log(evcs.LOG_ERROR, "Redis cache disabled: %s", err.Error())
		} else {
			defer rc.Close()
			cache = rc
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sol, solveErr := evcs.SolveInstance(ctx, &pInst, params, solver, cfg.Solver.TimeLimit, cache)
	sol.System = sysInfo()
	sol.Comment = fmt.Sprintf("Solver-Settings: Backend=%s, TimeLimit=%s, Coverage=%v, MaxStations=%d. %s",
		solver.Name(), cfg.Solver.TimeLimit, params.CoverageDistance, params.MaxStations, sol.Comment)
	pInst.Solution = sol

	outputF := c.String("output")
	if outputF == "" {
		outputF = inputF //overwrite the input file
	}
	if err := writeSolution(&pInst, outputF); err != nil {
		return err
	}
	if path := c.String("metrics"); path != "" {
		if err := evcs.WriteMetrics(path); err != nil {
			evcs.Log(evcs.LOG_ERROR, "Writing metrics to %s: %s", path, err.Error())
		}
	}
	if solveErr != nil {
		var ie *evcs.ResultIntegrityError
		if errors.As(solveErr, &ie) {
			evcs.Log(evcs.LOG_ERROR, "The computed solution is invalid!")
		}
		return solveErr
	}
	if sol.Optimal {
		evcs.Log(evcs.LOG_ERROR, "The computed solution is valid! ")
		evcs.Log(evcs.LOG_INFO, "Found an EVCS-Solution with obj-Value of %v opening %v\n", sol.Obj, sol.OpenStations)
	} else {
		evcs.Log(evcs.LOG_ERROR, "Model for %s ended with status %s", inputF, sol.Status)
	}
	return nil
}

func writeLP(inst *evcs.EVCSInstance, params evcs.Params, lpName string) error {
	nodes, demand, dist, err := evcs.InstanceInputs(inst)
	if err != nil {
		return err
	}
	model, err := evcs.CreateEVCSModel(nodes, demand, dist, params)
	if err != nil {
		return err
	}
	f, err := os.Create(lpName)
	if err != nil {
		return err
	}
	defer f.Close()
	return model.WriteLP(f)
}

func sysInfo() evcs.SysInfo {
	var info evcs.SysInfo
	if hostStat, err := host.Info(); err == nil {
		info.Platform = hostStat.Platform
	}
	if cpuStat, err := cpu.Info(); err == nil && len(cpuStat) > 0 {
		info.CPU = cpuStat[0].ModelName
	}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		info.RAM = fmt.Sprintf("%d GB", vmStat.Total/1024/1024/1024)
	}
	return info
}

func writeSolution(inst *evcs.EVCSInstance, fileName string) error {
	jsonInst, err := json.MarshalIndent(inst, "", "\t")
	if err != nil {
		return err
	}
	jsonInst = []byte(evcs.SanitizeJsonArrayLineBreaks(string(jsonInst)))
	return os.WriteFile(fileName, jsonInst, 0644)
}
