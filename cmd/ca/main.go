//go:build ebiten

package main

import (
	"errors"
	"flag"
	"log"

	"torus-life/internal/app"
	"torus-life/internal/core"
	_ "torus-life/internal/sims/life"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	session, err := cfg.NewSession()
	if err != nil {
		log.Fatalf("%v (engines: %v)", err, core.EngineNames())
	}

	game := app.New(session, cfg)
	defer game.Close()
	w, h := game.Layout(0, 0)

	ebiten.SetWindowTitle("torus-life: " + session.Engine.Name())
	ebiten.SetTPS(cfg.TPS)
	ebiten.SetWindowSize(w, h)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
