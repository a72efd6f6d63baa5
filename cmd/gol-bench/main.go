package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"torus-life/internal/core"
	_ "torus-life/internal/sims/life"
)

type scenario struct {
	index  int
	size   core.Size
	engine string
}

type scenarioResult struct {
	scenario
	generations int
	elapsed     time.Duration
	population  int
	err         error
}

type sweepConfig struct {
	generations int
	density     float64
	seed        int64
	workers     int
	engineCfg   map[string]string
}

func main() {
	sizes := flag.String("sizes", "10,20,100,1000", "comma-separated square sizes, or WxH entries")
	engines := flag.String("engines", "scalar,parallel,spectral", "comma-separated engines to measure")
	gens := flag.Int("gens", 1, "generations per scenario")
	density := flag.Float64("density", 0.3, "initial live-cell probability")
	seed := flag.Int64("seed", 42, "seed for the initial worlds")
	workers := flag.Int("workers", 1, "scenarios measured concurrently")
	device := flag.String("device", "auto", "accelerator platforms in preference order")
	lanes := flag.Int("lanes", 0, "host lanes for the cpu accelerator (0 = all CPUs)")
	out := flag.String("out", "simulation_results.csv", "CSV output path")
	flag.Parse()

	parsed, err := parseSizes(*sizes)
	if err != nil {
		log.Fatalf("parse -sizes: %v", err)
	}
	engineCfg := map[string]string{"device": *device}
	if *lanes > 0 {
		engineCfg["lanes"] = strconv.Itoa(*lanes)
	}
	cfg := sweepConfig{
		generations: *gens,
		density:     *density,
		seed:        *seed,
		workers:     max(*workers, 1),
		engineCfg:   engineCfg,
	}

	var scenarios []scenario
	for _, size := range parsed {
		for _, name := range splitList(*engines) {
			scenarios = append(scenarios, scenario{index: len(scenarios), size: size, engine: name})
		}
	}

	fmt.Printf("Measuring %d scenario(s) (%d workers, %d generation(s))\n", len(scenarios), cfg.workers, cfg.generations)
	start := time.Now()
	results := sweep(scenarios, cfg, func(res scenarioResult) {
		if res.err != nil {
			fmt.Fprintf(os.Stderr, "%dx%d %s: %v\n", res.size.W, res.size.H, res.engine, res.err)
			return
		}
		fmt.Printf("%dx%d %-9s %.6f s\n", res.size.W, res.size.H, res.engine, res.elapsed.Seconds())
	})

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	if err := writeCSV(f, results); err != nil {
		f.Close()
		log.Fatalf("write %s: %v", *out, err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("close %s: %v", *out, err)
	}
	fmt.Printf("Wrote %s (elapsed %s)\n", *out, time.Since(start).Round(time.Millisecond))
}

// sweep measures every scenario on a pool of workers and returns the results
// in scenario order. report sees each result as it completes.
func sweep(scenarios []scenario, cfg sweepConfig, report func(scenarioResult)) []scenarioResult {
	jobs := make(chan scenario)
	results := make(chan scenarioResult)
	var wg sync.WaitGroup

	for i := 0; i < cfg.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sc := range jobs {
				results <- measure(sc, cfg)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		for _, sc := range scenarios {
			jobs <- sc
		}
		close(jobs)
	}()

	all := make([]scenarioResult, 0, len(scenarios))
	for res := range results {
		if report != nil {
			report(res)
		}
		all = append(all, res)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].index < all[j].index })
	return all
}

func measure(sc scenario, cfg sweepConfig) scenarioResult {
	res := scenarioResult{scenario: sc, generations: cfg.generations}
	g, err := core.NewGrid(sc.size.W, sc.size.H)
	if err != nil {
		res.err = err
		return res
	}
	g.Randomize(core.NewRNG(cfg.seed), cfg.density)

	engine, err := core.NewEngine(sc.engine, cfg.engineCfg)
	if err != nil {
		res.err = err
		return res
	}
	defer core.Release(engine)

	res.elapsed, res.err = core.NewStopwatch().Time(func() error {
		return engine.Evolve(g, cfg.generations)
	})
	res.population = g.Population()
	return res
}

// writeCSV writes one row per successful scenario.
func writeCSV(w io.Writer, results []scenarioResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Width", "Height", "Engine", "Generations", "Elapsed (s)"}); err != nil {
		return err
	}
	for _, res := range results {
		if res.err != nil {
			continue
		}
		row := []string{
			strconv.Itoa(res.size.W),
			strconv.Itoa(res.size.H),
			res.engine,
			strconv.Itoa(res.generations),
			strconv.FormatFloat(res.elapsed.Seconds(), 'f', 6, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// parseSizes accepts "N" for an N×N grid or "WxH".
func parseSizes(s string) ([]core.Size, error) {
	var sizes []core.Size
	for _, item := range splitList(s) {
		ws, hs, found := strings.Cut(strings.ToLower(item), "x")
		if !found {
			hs = ws
		}
		w, err := strconv.Atoi(ws)
		if err != nil {
			return nil, fmt.Errorf("size %q: %w", item, err)
		}
		h, err := strconv.Atoi(hs)
		if err != nil {
			return nil, fmt.Errorf("size %q: %w", item, err)
		}
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("size %q: %w", item, core.ErrInvalidDimension)
		}
		sizes = append(sizes, core.Size{W: w, H: h})
	}
	if len(sizes) == 0 {
		return nil, errors.New("no sizes given")
	}
	return sizes, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
