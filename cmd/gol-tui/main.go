package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/gdamore/tcell/v2"

	"torus-life/internal/core"
	"torus-life/internal/gridio"
	_ "torus-life/internal/sims/life"
	"torus-life/internal/tui"
)

func main() {
	cfg := tui.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	g, err := initialGrid(cfg)
	if err != nil {
		log.Fatalf("initial world: %v", err)
	}
	engine, err := core.NewEngine(cfg.Engine, cfg.EngineConfig())
	if err != nil {
		log.Fatalf("%v (available: %v)", err, core.EngineNames())
	}
	session := core.NewSession(g, engine)
	defer session.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("creating screen: %v", err)
	}
	if err = screen.Init(); err != nil {
		log.Fatalf("initializing screen: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = tui.New(screen, session, cfg).Run(ctx)
	screen.Fini()
	if err != nil {
		log.Fatalf("evolve: %v", err)
	}
}

func initialGrid(cfg *tui.Config) (*core.Grid, error) {
	if cfg.Load != "" {
		return gridio.LoadFile(cfg.Load)
	}
	g, err := core.NewGrid(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	g.Randomize(core.NewRNG(cfg.Seed), cfg.Density)
	return g, nil
}
