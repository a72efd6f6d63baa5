// Package tui draws a running world in a terminal.
package tui

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"torus-life/internal/core"
)

// Config represents the command-line parameters for the terminal viewer.
type Config struct {
	Engine   string
	Device   string
	Lanes    int
	Width    int
	Height   int
	Density  float64
	Seed     int64
	Interval time.Duration
	Load     string
	Paused   bool
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Engine:   "scalar",
		Device:   "auto",
		Width:    64,
		Height:   32,
		Density:  0.3,
		Seed:     42,
		Interval: 100 * time.Millisecond,
	}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Engine, "engine", c.Engine, "evolution engine")
	fs.StringVar(&c.Device, "device", c.Device, "comma-separated accelerator platforms in preference order")
	fs.IntVar(&c.Lanes, "lanes", c.Lanes, "host lanes for the cpu accelerator (0 = all CPUs)")
	fs.IntVar(&c.Width, "w", c.Width, "grid width")
	fs.IntVar(&c.Height, "h", c.Height, "grid height")
	fs.Float64Var(&c.Density, "density", c.Density, "initial live-cell probability")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for the initial world")
	fs.DurationVar(&c.Interval, "interval", c.Interval, "time between generations")
	fs.StringVar(&c.Load, "load", c.Load, "start from a saved world instead of a random one")
	fs.BoolVar(&c.Paused, "paused", c.Paused, "start paused")
}

// EngineConfig is the key/value form handed to engine factories.
func (c *Config) EngineConfig() map[string]string {
	m := map[string]string{"device": c.Device}
	if c.Lanes > 0 {
		m["lanes"] = fmt.Sprint(c.Lanes)
	}
	return m
}

var (
	liveStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGreen)
	deadStyle = tcell.StyleDefault.Foreground(tcell.ColorGreen).Background(tcell.ColorBlack)
	textStyle = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
)

// Viewer evolves a session on a timer and draws every generation.
type Viewer struct {
	screen   tcell.Screen
	session  *core.Session
	rng      *core.RNG
	density  float64
	interval time.Duration
	paused   bool
}

// New returns a viewer for session drawing on an initialised screen.
func New(screen tcell.Screen, session *core.Session, cfg *Config) *Viewer {
	interval := cfg.Interval
	if interval <= 0 {
		interval = NewConfig().Interval
	}
	return &Viewer{
		screen:   screen,
		session:  session,
		rng:      core.NewRNG(cfg.Seed),
		density:  cfg.Density,
		interval: interval,
		paused:   cfg.Paused,
	}
}

// Run processes keys and ticks until q or Esc is pressed, ctx is done or the
// engine fails.
//
//	space  pause / resume
//	n      advance one generation
//	r      reseed the world
func (v *Viewer) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	events := make(chan tcell.Event)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	v.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			quit, err := v.handle(ev)
			if quit || err != nil {
				return err
			}
			v.draw()
		case <-ticker.C:
			if v.paused {
				continue
			}
			if err := v.session.Advance(1); err != nil {
				return err
			}
			v.draw()
		}
	}
}

func (v *Viewer) handle(ev tcell.Event) (bool, error) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return true, nil
		}
		switch ev.Rune() {
		case 'q':
			return true, nil
		case ' ':
			v.paused = !v.paused
		case 'n':
			return false, v.session.Advance(1)
		case 'r':
			v.session.Grid.Randomize(v.rng, v.density)
			v.session.Reset(v.session.Grid)
		}
	}
	return false, nil
}

// draw renders each cell as two terminal columns and a status line below the
// grid, clipped to the screen.
func (v *Viewer) draw() {
	v.screen.Clear()
	g := v.session.Grid
	sw, sh := v.screen.Size()
	rows := min(g.Height(), sh-1)
	cols := min(g.Width(), sw/2)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			style := deadStyle
			if g.Cell(x, y) != 0 {
				style = liveStyle
			}
			v.screen.SetContent(x*2, y, ' ', nil, style)
			v.screen.SetContent(x*2+1, y, ' ', nil, style)
		}
	}

	status := fmt.Sprintf("gen %d  pop %d  %s", v.session.Generation(), g.Population(), v.session.Engine.Name())
	if v.paused {
		status += "  [paused]"
	}
	for i, r := range status {
		if i >= sw {
			break
		}
		v.screen.SetContent(i, max(rows, 0), r, nil, textStyle)
	}
	v.screen.Show()
}
