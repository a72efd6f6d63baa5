// Package shell implements the interactive command line for creating,
// editing, persisting and evolving a world.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"torus-life/internal/accel"
	"torus-life/internal/core"
	"torus-life/internal/gridio"
	"torus-life/internal/patterns"
)

const fallbackEngine = "scalar"

// Shell holds one world and the engine evolving it.
type Shell struct {
	cfg   Config
	out   io.Writer
	rng   *core.RNG
	watch *core.Stopwatch

	session    *core.Session
	engineName string

	print bool
	delay time.Duration
	sleep func(time.Duration)
}

// New returns a shell that writes all output to out.
func New(cfg Config, out io.Writer) *Shell {
	if cfg.Engine == "" {
		cfg.Engine = fallbackEngine
	}
	return &Shell{
		cfg:   cfg,
		out:   out,
		rng:   core.NewRNG(cfg.Seed),
		watch: core.NewStopwatch(),
		print: cfg.Print,
		delay: time.Duration(cfg.DelayMS) * time.Millisecond,
		sleep: time.Sleep,
	}
}

// Run reads commands from in until exit, quit or end of input.
func (s *Shell) Run(in io.Reader) error {
	s.help()
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, s.cfg.Prompt)
		if !sc.Scan() {
			fmt.Fprintln(s.out)
			return sc.Err()
		}
		if s.Exec(sc.Text()) {
			return nil
		}
	}
}

// Exec runs a single command line and reports whether the shell should exit.
func (s *Shell) Exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "exit", "quit":
		return true
	case "help":
		s.help()
	case "create":
		s.create(args)
	case "load":
		s.load(args)
	case "save":
		s.save(args)
	case "random":
		s.random(args)
	case "clear":
		if s.requireWorld() {
			s.session.Grid.Clear()
			fmt.Fprintln(s.out, "World cleared.")
		}
	case "run":
		s.run(args)
	case "step":
		s.step(args)
	case "set":
		s.set(args)
	case "get":
		s.get(args)
	case "set1d":
		s.set1D(args)
	case "get1d":
		s.get1D(args)
	case "print":
		s.printCmd(args)
	case "delay":
		s.delayCmd(args)
	case "info":
		s.info()
	default:
		if p, ok := patterns.Lookup(cmd); ok {
			s.stamp(p, args)
			return false
		}
		fmt.Fprintf(s.out, "Unknown command %q. Enter 'help' for a list of commands.\n", cmd)
	}
	return false
}

// Close releases the engine held by the current world.
func (s *Shell) Close() error {
	if s.session == nil {
		return nil
	}
	return s.session.Close()
}

func (s *Shell) help() {
	fmt.Fprint(s.out, `
Available commands:
  create <w> <h>        create an empty world
  load <file>           load a world from file
  save <file>           save the current world to file
  random [p]            fill the world with density p (default 0.5)
  clear                 kill every cell
  run <engine> <n>      evolve n generations (engines: `+strings.Join(core.EngineNames(), ", ")+`)
  step [n]              evolve n generations with the default engine
  set <x> <y> <s>       set a cell to 0 or 1
  get <x> <y>           show a cell
  set1d <i> <s>         set a cell by row-major index
  get1d <i>             show a cell by row-major index
  `+strings.Join(patterns.Names(), "|")+` <x> <y>
                        add a pattern anchored at (x, y)
  print [on|off]        print the world, or toggle printing after each generation
  delay <ms>            pause after each printed generation
  info                  show world and engine details
  help                  show this help
  exit | quit           leave the shell

`)
}

func (s *Shell) requireWorld() bool {
	if s.session == nil {
		fmt.Fprintln(s.out, "No world available! Create or load a world first.")
		return false
	}
	return true
}

func (s *Shell) setWorld(g *core.Grid) {
	if s.session == nil {
		s.session = core.NewSession(g, nil)
		return
	}
	s.session.Reset(g)
}

func (s *Shell) create(args []string) {
	ints, ok := s.ints(args, "create <width> <height>", 2)
	if !ok {
		return
	}
	g, err := core.NewGrid(ints[0], ints[1])
	if err != nil {
		fmt.Fprintf(s.out, "Cannot create world: %v\n", err)
		return
	}
	s.setWorld(g)
	fmt.Fprintf(s.out, "New world created (%d x %d).\n", g.Width(), g.Height())
}

func (s *Shell) load(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: load <file>")
		return
	}
	g, err := gridio.LoadFile(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error loading world: %v\n", err)
		return
	}
	s.setWorld(g)
	fmt.Fprintf(s.out, "World loaded from '%s' (%d x %d).\n", args[0], g.Width(), g.Height())
}

func (s *Shell) save(args []string) {
	if !s.requireWorld() {
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: save <file>")
		return
	}
	if err := gridio.SaveFile(args[0], s.session.Grid); err != nil {
		fmt.Fprintf(s.out, "Error saving world: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "World saved to '%s'.\n", args[0])
}

func (s *Shell) random(args []string) {
	if !s.requireWorld() {
		return
	}
	p := 0.5
	if len(args) > 0 {
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil || v < 0 || v > 1 {
			fmt.Fprintln(s.out, "Usage: random [p] with 0 <= p <= 1")
			return
		}
		p = v
	}
	s.session.Grid.Randomize(s.rng, p)
	fmt.Fprintf(s.out, "World randomized (density %g, population %d).\n", p, s.session.Grid.Population())
}

func (s *Shell) step(args []string) {
	n := 1
	if len(args) > 0 {
		ints, ok := s.ints(args, "step [n]", 1)
		if !ok {
			return
		}
		n = ints[0]
	}
	s.evolve(s.cfg.Engine, n)
}

func (s *Shell) run(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.out, "Usage: run <engine> <n>")
		return
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintln(s.out, "Usage: run <engine> <n>")
		return
	}
	s.evolve(strings.ToLower(args[0]), n)
}

// evolve advances the world one generation at a time so printing and
// stability detection see every generation.
func (s *Shell) evolve(engine string, n int) {
	if !s.requireWorld() {
		return
	}
	if n < 0 {
		fmt.Fprintln(s.out, "The number of generations must not be negative.")
		return
	}
	if err := s.useEngine(engine); err != nil {
		fmt.Fprintf(s.out, "%v. Available engines: %s\n", err, strings.Join(core.EngineNames(), ", "))
		return
	}

	done := 0
	stable := false
	elapsed, err := s.watch.Time(func() error {
		for done < n {
			err := s.session.Advance(1)
			if err != nil {
				if !acceleratorFailure(err) || s.engineName == fallbackEngine {
					return err
				}
				fmt.Fprintf(s.out, "%s engine failed: %v\nFalling back to %s evolution.\n", s.engineName, err, fallbackEngine)
				if err := s.useEngine(fallbackEngine); err != nil {
					return err
				}
				continue
			}
			done++
			if s.print {
				fmt.Fprintf(s.out, "Generation %d:\n%s", s.session.Generation(), s.session.Grid)
				if s.delay > 0 {
					s.sleep(s.delay)
				}
			}
			if s.session.Stable() {
				stable = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(s.out, "Evolution stopped after %d generation(s): %v\n", done, err)
		return
	}
	if stable {
		fmt.Fprintf(s.out, "Stable state reached at generation %d.\n", s.session.Generation())
	}
	fmt.Fprintf(s.out, "%s evolution of %d generation(s) completed in %.6f seconds (population %d).\n",
		s.engineName, done, elapsed.Seconds(), s.session.Grid.Population())
}

// useEngine makes name the session engine, reusing the current one when the
// name has not changed so accelerator state survives between runs.
func (s *Shell) useEngine(name string) error {
	if s.session.Engine != nil && s.engineName == name {
		return nil
	}
	e, err := core.NewEngine(name, s.cfg.EngineConfig())
	if err != nil {
		return err
	}
	if err := s.session.SetEngine(e); err != nil {
		fmt.Fprintf(s.out, "Releasing %s engine: %v\n", s.engineName, err)
	}
	s.engineName = name
	return nil
}

func acceleratorFailure(err error) bool {
	return errors.Is(err, accel.ErrDeviceUnavailable) ||
		errors.Is(err, accel.ErrBuildFailure) ||
		errors.Is(err, accel.ErrExecution)
}

func (s *Shell) set(args []string) {
	if !s.requireWorld() {
		return
	}
	ints, ok := s.ints(args, "set <x> <y> <state>", 3)
	if !ok {
		return
	}
	x, y, state := ints[0], ints[1], ints[2]
	g := s.session.Grid
	if x < 0 || y < 0 || x >= g.Width() || y >= g.Height() {
		fmt.Fprintf(s.out, "Cell (%d, %d) is outside the %d x %d world; nothing changed.\n", x, y, g.Width(), g.Height())
		return
	}
	g.SetCell(x, y, uint8(min(max(state, 0), 1)))
	fmt.Fprintf(s.out, "Cell state at (%d, %d) set to %d.\n", x, y, g.Cell(x, y))
}

func (s *Shell) get(args []string) {
	if !s.requireWorld() {
		return
	}
	ints, ok := s.ints(args, "get <x> <y>", 2)
	if !ok {
		return
	}
	fmt.Fprintf(s.out, "Cell state at (%d, %d) is: %d\n", ints[0], ints[1], s.session.Grid.Cell(ints[0], ints[1]))
}

func (s *Shell) set1D(args []string) {
	if !s.requireWorld() {
		return
	}
	ints, ok := s.ints(args, "set1d <index> <state>", 2)
	if !ok {
		return
	}
	g := s.session.Grid
	idx := ints[0]
	if idx < 0 || idx >= g.Len() {
		fmt.Fprintf(s.out, "Index %d is outside the %d-cell world; nothing changed.\n", idx, g.Len())
		return
	}
	g.SetCell1D(idx, uint8(min(max(ints[1], 0), 1)))
	fmt.Fprintf(s.out, "Cell state at index %d set to %d.\n", idx, g.Cell1D(idx))
}

func (s *Shell) get1D(args []string) {
	if !s.requireWorld() {
		return
	}
	ints, ok := s.ints(args, "get1d <index>", 1)
	if !ok {
		return
	}
	fmt.Fprintf(s.out, "Cell state at index %d is: %d\n", ints[0], s.session.Grid.Cell1D(ints[0]))
}

func (s *Shell) stamp(p patterns.Pattern, args []string) {
	if !s.requireWorld() {
		return
	}
	ints, ok := s.ints(args, p.Name+" <x> <y>", 2)
	if !ok {
		return
	}
	patterns.Stamp(s.session.Grid, p, ints[0], ints[1])
	fmt.Fprintf(s.out, "%s added at (%d, %d).\n", strings.ToUpper(p.Name[:1])+p.Name[1:], ints[0], ints[1])
}

func (s *Shell) printCmd(args []string) {
	if len(args) == 0 {
		if s.requireWorld() {
			fmt.Fprint(s.out, s.session.Grid)
		}
		return
	}
	switch strings.ToLower(args[0]) {
	case "on":
		s.print = true
	case "off":
		s.print = false
	default:
		fmt.Fprintln(s.out, "Please use 'print on' or 'print off'.")
	}
	state := "disabled"
	if s.print {
		state = "enabled"
	}
	fmt.Fprintf(s.out, "Printing after generation: %s\n", state)
}

func (s *Shell) delayCmd(args []string) {
	ints, ok := s.ints(args, "delay <ms>", 1)
	if !ok {
		return
	}
	if ints[0] < 0 {
		fmt.Fprintln(s.out, "Delay must not be negative.")
		return
	}
	s.delay = time.Duration(ints[0]) * time.Millisecond
	fmt.Fprintf(s.out, "Delay set to %d ms.\n", ints[0])
}

func (s *Shell) info() {
	if !s.requireWorld() {
		return
	}
	g := s.session.Grid
	fmt.Fprintf(s.out, "World %d x %d, generation %d, population %d\n", g.Width(), g.Height(), s.session.Generation(), g.Population())
	if s.watch.Total() > 0 {
		fmt.Fprintf(s.out, "Evolution time: last %s, total %s\n", s.watch.Last(), s.watch.Total())
	}
	if s.session.Engine == nil {
		fmt.Fprintf(s.out, "No engine yet; 'step' uses %s.\n", s.cfg.Engine)
		return
	}
	for _, group := range core.Describe(s.session.Engine).Groups {
		fmt.Fprintf(s.out, "%s:\n", group.Name)
		for _, p := range group.Params {
			fmt.Fprintf(s.out, "  %-12s %s\n", p.Label, p.Value)
		}
	}
}

// ints parses exactly want integer arguments, printing usage otherwise.
func (s *Shell) ints(args []string, usage string, want int) ([]int, bool) {
	if len(args) != want {
		fmt.Fprintf(s.out, "Usage: %s\n", usage)
		return nil, false
	}
	out := make([]int, want)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			fmt.Fprintf(s.out, "Usage: %s (%q is not an integer)\n", usage, a)
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
