package app

import (
	"flag"
	"strconv"

	"torus-life/internal/core"
	"torus-life/internal/gridio"
)

// Config represents the command-line parameters for the application.
type Config struct {
	Engine  string
	Device  string
	Lanes   int
	Width   int
	Height  int
	Density float64
	Scale   int
	TPS     int
	Seed    int64
	Load    string
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Engine:  "parallel",
		Device:  "auto",
		Width:   256,
		Height:  192,
		Density: 0.25,
		Scale:   3,
		TPS:     30,
		Seed:    42,
	}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Engine, "engine", c.Engine, "evolution engine")
	fs.StringVar(&c.Device, "device", c.Device, "comma-separated accelerator platforms in preference order (kage, cpu)")
	fs.IntVar(&c.Lanes, "lanes", c.Lanes, "host lanes for the cpu accelerator (0 = all CPUs)")
	fs.IntVar(&c.Width, "w", c.Width, "grid width")
	fs.IntVar(&c.Height, "h", c.Height, "grid height")
	fs.Float64Var(&c.Density, "density", c.Density, "initial live-cell probability")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixel scale multiplier")
	fs.IntVar(&c.TPS, "tps", c.TPS, "generations per second")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for simulation reset")
	fs.StringVar(&c.Load, "load", c.Load, "start from a saved world instead of a random one")
}

// EngineConfig is the key/value form handed to engine factories.
func (c *Config) EngineConfig() map[string]string {
	m := map[string]string{"device": c.Device}
	if c.Lanes > 0 {
		m["lanes"] = strconv.Itoa(c.Lanes)
	}
	return m
}

// NewSession builds the starting world and engine described by c.
func (c *Config) NewSession() (*core.Session, error) {
	var g *core.Grid
	var err error
	if c.Load != "" {
		g, err = gridio.LoadFile(c.Load)
	} else {
		g, err = core.NewGrid(c.Width, c.Height)
		if err == nil {
			g.Randomize(core.NewRNG(c.Seed), c.Density)
		}
	}
	if err != nil {
		return nil, err
	}
	engine, err := core.NewEngine(c.Engine, c.EngineConfig())
	if err != nil {
		return nil, err
	}
	return core.NewSession(g, engine), nil
}
