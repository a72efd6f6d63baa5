package shell

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"torus-life/internal/sims/life"
)

func newShell(t *testing.T, cfg Config) (*Shell, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	s := New(cfg, &out)
	t.Cleanup(func() { s.Close() })
	return s, &out
}

func exec(t *testing.T, s *Shell, out *bytes.Buffer, lines ...string) string {
	t.Helper()
	out.Reset()
	for _, line := range lines {
		if s.Exec(line) {
			t.Fatalf("%q unexpectedly ended the shell", line)
		}
	}
	return out.String()
}

func expect(t *testing.T, got string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Fatalf("output missing %q:\n%s", w, got)
		}
	}
}

func TestCommandsWithoutWorld(t *testing.T) {
	s, out := newShell(t, DefaultConfig())
	for _, cmd := range []string{"set 1 1 1", "get 0 0", "set1d 0 1", "get1d 0", "run scalar 1", "step", "glider 0 0", "save x", "random", "info", "print"} {
		got := exec(t, s, out, cmd)
		expect(t, got, "No world available")
	}
}

func TestBlinkerTranscript(t *testing.T) {
	s, out := newShell(t, DefaultConfig())
	got := exec(t, s, out, "create 5 5", "blinker 1 2", "print")
	expect(t, got, "New world created (5 x 5).", "Blinker added at (1, 2).", ".....\n.....\n.***.\n.....\n.....\n")

	got = exec(t, s, out, "run scalar 1", "get 2 1", "get 1 2", "get1d 17")
	expect(t, got,
		"scalar evolution of 1 generation(s) completed",
		"Cell state at (2, 1) is: 1",
		"Cell state at (1, 2) is: 0",
		"Cell state at index 17 is: 1",
	)

	got = exec(t, s, out, "info")
	expect(t, got, "World 5 x 5, generation 1, population 3")
}

func TestCellEditing(t *testing.T) {
	s, out := newShell(t, DefaultConfig())
	got := exec(t, s, out, "create 4 3", "set 3 2 7", "get 3 2", "set 4 0 1", "set1d 5 1", "get 1 1", "set1d 12 1", "get1d -1")
	expect(t, got,
		"Cell state at (3, 2) set to 1.",
		"Cell state at (3, 2) is: 1",
		"Cell (4, 0) is outside the 4 x 3 world",
		"Cell state at index 5 set to 1.",
		"Cell state at (1, 1) is: 1",
		"Index 12 is outside the 12-cell world",
		"Cell state at index -1 is: 0",
	)
	if s.session.Grid.Population() != 2 {
		t.Fatalf("population %d, want 2", s.session.Grid.Population())
	}

	got = exec(t, s, out, "set 1 x 1", "get 1", "frobnicate")
	expect(t, got, `Usage: set <x> <y> <state> ("x" is not an integer)`, "Usage: get <x> <y>", `Unknown command "frobnicate"`)
}

func TestRunStopsWhenStable(t *testing.T) {
	s, out := newShell(t, DefaultConfig())
	got := exec(t, s, out, "create 6 6", "block 2 2", "run scalar 50")
	expect(t, got, "Stable state reached at generation 1.", "of 1 generation(s)")
	if s.session.Generation() != 1 {
		t.Fatalf("generation %d, want 1", s.session.Generation())
	}
}

func TestRunPrintsEachGenerationWithDelay(t *testing.T) {
	s, out := newShell(t, DefaultConfig())
	var slept []time.Duration
	s.sleep = func(d time.Duration) { slept = append(slept, d) }

	got := exec(t, s, out, "create 5 5", "blinker 1 2", "print on", "delay 25", "run scalar 3")
	expect(t, got, "Printing after generation: enabled", "Delay set to 25 ms.", "Generation 1:\n", "Generation 3:\n")
	if !slices.Equal(slept, []time.Duration{25 * time.Millisecond, 25 * time.Millisecond, 25 * time.Millisecond}) {
		t.Fatalf("slept %v", slept)
	}

	got = exec(t, s, out, "print sideways", "print off", "run scalar 1")
	expect(t, got, "Please use 'print on' or 'print off'.", "Printing after generation: disabled")
	if strings.Contains(got, "Generation 4:") {
		t.Fatalf("printed with printing disabled:\n%s", got)
	}
}

func TestParallelRunMatchesScalar(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device = "cpu"
	cfg.Lanes = 3

	a, outA := newShell(t, cfg)
	b, outB := newShell(t, cfg)
	exec(t, a, outA, "create 17 11", "random 0.4", "run parallel 9")
	exec(t, b, outB, "create 17 11", "random 0.4", "run scalar 9")
	expect(t, outA.String(), "parallel evolution of")
	if !a.session.Grid.Equal(b.session.Grid) {
		t.Fatalf("parallel run diverged from scalar\n%s\nvs\n%s", a.session.Grid, b.session.Grid)
	}

	got := exec(t, a, outA, "info")
	expect(t, got, "cpu/3")
}

func TestAcceleratorFailureFallsBackToScalar(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device = "no-such-platform"
	s, out := newShell(t, cfg)

	got := exec(t, s, out, "create 5 5", "blinker 1 2", "run opencl 3")
	expect(t, got, "opencl engine failed", "Falling back to scalar evolution.", "scalar evolution of 3 generation(s)")
	if s.session.Grid.Cell(2, 1) != 1 || s.session.Grid.Cell(1, 2) != 0 {
		t.Fatalf("expected vertical blinker after 3 generations\n%s", s.session.Grid)
	}
	if _, ok := s.session.Engine.(*life.Scalar); !ok {
		t.Fatalf("engine %T, want scalar", s.session.Engine)
	}
}

func TestRunRejectsBadArguments(t *testing.T) {
	s, out := newShell(t, DefaultConfig())
	got := exec(t, s, out, "create 3 3", "run warp 2", "run scalar -1", "run scalar")
	expect(t, got, `unknown engine "warp"`, "must not be negative", "Usage: run <engine> <n>")
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.txt")
	s, out := newShell(t, DefaultConfig())
	got := exec(t, s, out, "create 6 4", "glider 0 0", "save "+path)
	expect(t, got, "World saved to")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "6 4\n0 1 0 0 0 0\n") {
		t.Fatalf("saved file:\n%s", data)
	}

	want := s.session.Grid.Clone()
	got = exec(t, s, out, "step 2", "load "+path)
	expect(t, got, "World loaded from", "(6 x 4)")
	if !s.session.Grid.Equal(want) || s.session.Generation() != 0 {
		t.Fatal("load did not restore the saved world")
	}

	got = exec(t, s, out, "load "+filepath.Join(t.TempDir(), "missing.txt"))
	expect(t, got, "Error loading world")
	if !s.session.Grid.Equal(want) {
		t.Fatal("failed load replaced the world")
	}
}

func TestRunLoop(t *testing.T) {
	s, out := newShell(t, DefaultConfig())
	in := strings.NewReader("create 3 3\nquit\ncreate 9 9\n")
	if err := s.Run(in); err != nil {
		t.Fatal(err)
	}
	if s.session.Grid.Width() != 3 {
		t.Fatal("commands after quit were executed")
	}
	expect(t, out.String(), "Available commands:", "> ")

	if err := New(DefaultConfig(), &bytes.Buffer{}).Run(strings.NewReader("help")); err != nil {
		t.Fatalf("end of input: %v", err)
	}
}

func TestConfigSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shell.json")
	if err := os.WriteFile(path, []byte(`{"engine":"spectral","delay_ms":40,"print":true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine != "spectral" || cfg.DelayMS != 40 || !cfg.Print || cfg.Prompt != "> " {
		t.Fatalf("loaded %+v", cfg)
	}

	fs := flag.NewFlagSet("gol", flag.ContinueOnError)
	cfg.Bind(fs)
	if err := fs.Parse([]string{"-engine", "parallel", "-device", "cpu", "-lanes", "2"}); err != nil {
		t.Fatal(err)
	}
	if cfg.Engine != "parallel" || cfg.DelayMS != 40 {
		t.Fatalf("flags did not overlay file values: %+v", cfg)
	}
	m := cfg.EngineConfig()
	if m["device"] != "cpu" || m["lanes"] != "2" {
		t.Fatalf("engine config %v", m)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("missing config file should fail")
	}
}
