package life

import (
	"slices"
	"testing"

	"torus-life/internal/core"
)

func newGrid(t *testing.T, w, h int) *core.Grid {
	t.Helper()
	g, err := core.NewGrid(w, h)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func expectCells(t *testing.T, label string, g *core.Grid, alive map[[2]int]bool) {
	t.Helper()
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			got := g.Cell(x, y) == 1
			if want := alive[[2]int{x, y}]; got != want {
				t.Fatalf("%s: cell (%d,%d) alive=%v, expected %v\n%s", label, x, y, got, want, g)
			}
		}
	}
}

func TestBlinkerOscillation(t *testing.T) {
	for _, e := range testEngines(t) {
		g := newGrid(t, 5, 5)
		g.SetCell(2, 1, 1)
		g.SetCell(2, 2, 1)
		g.SetCell(2, 3, 1)

		if err := e.Evolve(g, 1); err != nil {
			t.Fatal(err)
		}
		expectCells(t, e.Name()+" first step", g, map[[2]int]bool{
			{1, 2}: true,
			{2, 2}: true,
			{3, 2}: true,
		})

		if err := e.Evolve(g, 1); err != nil {
			t.Fatal(err)
		}
		expectCells(t, e.Name()+" second step", g, map[[2]int]bool{
			{2, 1}: true,
			{2, 2}: true,
			{2, 3}: true,
		})
	}
}

func TestBlockIsStillLife(t *testing.T) {
	for _, e := range testEngines(t) {
		g := newGrid(t, 4, 4)
		g.SetCell(1, 1, 1)
		g.SetCell(2, 1, 1)
		g.SetCell(1, 2, 1)
		g.SetCell(2, 2, 1)
		before := g.Snapshot()

		if err := e.Evolve(g, 1); err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(before, g.Cells()) {
			t.Fatalf("%s: block changed after one generation\n%s", e.Name(), g)
		}
	}
}

func TestGliderTranslatesEveryFourGenerations(t *testing.T) {
	glider := [][2]int{{1, 0}, {2, 1}, {0, 2}, {1, 2}, {2, 2}}
	for _, e := range testEngines(t) {
		g := newGrid(t, 10, 10)
		for _, c := range glider {
			g.SetCell(c[0], c[1], 1)
		}
		if err := e.Evolve(g, 4); err != nil {
			t.Fatal(err)
		}
		want := map[[2]int]bool{}
		for _, c := range glider {
			want[[2]int{c[0] + 1, c[1] + 1}] = true
		}
		expectCells(t, e.Name()+" glider", g, want)
	}
}

func TestGliderWrapsAroundTorus(t *testing.T) {
	// 40 generations move the glider (+10,+10): a full lap of a 10x10 torus.
	glider := [][2]int{{1, 0}, {2, 1}, {0, 2}, {1, 2}, {2, 2}}
	for _, e := range testEngines(t) {
		g := newGrid(t, 10, 10)
		for _, c := range glider {
			g.SetCell(c[0]+7, c[1]+7, 1)
		}
		start := g.Snapshot()
		if err := e.Evolve(g, 40); err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(start, g.Cells()) {
			t.Fatalf("%s: glider did not return after a full lap\n%s", e.Name(), g)
		}
	}
}

func TestZeroGenerationsLeavesGridUntouched(t *testing.T) {
	for _, e := range testEngines(t) {
		g := newGrid(t, 6, 6)
		g.Randomize(core.NewRNG(5), 0.5)
		before := g.Snapshot()
		if err := e.Evolve(g, 0); err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(before, g.Cells()) {
			t.Fatalf("%s: zero generations changed the grid", e.Name())
		}
	}
}

func TestNegativeGenerationsRejected(t *testing.T) {
	for _, e := range testEngines(t) {
		g := newGrid(t, 3, 3)
		if err := e.Evolve(g, -1); err == nil {
			t.Fatalf("%s: expected error for negative generations", e.Name())
		}
	}
}

// TestEnginesAgree is the cross-engine invariant: from the same start every
// engine reaches the same board after the same number of generations.
func TestEnginesAgree(t *testing.T) {
	sizes := [][2]int{{1, 1}, {1, 7}, {2, 3}, {3, 3}, {8, 5}, {17, 13}, {32, 32}, {64, 9}}
	for i, size := range sizes {
		rng := core.NewRNG(int64(100 + i))
		base := newGrid(t, size[0], size[1])
		base.Randomize(rng, 0.35)

		for _, gens := range []int{0, 1, 2, 7, 25} {
			want := base.Clone()
			if err := NewScalar().Evolve(want, gens); err != nil {
				t.Fatal(err)
			}
			for _, e := range testEngines(t) {
				got := base.Clone()
				if err := e.Evolve(got, gens); err != nil {
					t.Fatalf("%s: %v", e.Name(), err)
				}
				if !got.Equal(want) {
					t.Fatalf("%s disagrees with scalar on %dx%d after %d generations\nwant:\n%sgot:\n%s",
						e.Name(), size[0], size[1], gens, want, got)
				}
			}
		}
	}
}

func TestEnginesAgreeAcrossSplitRuns(t *testing.T) {
	base := newGrid(t, 24, 18)
	base.Randomize(core.NewRNG(9), 0.4)

	whole := base.Clone()
	if err := NewScalar().Evolve(whole, 12); err != nil {
		t.Fatal(err)
	}

	par := NewParallel(Config{Platforms: []string{"cpu"}})
	defer par.Release()
	split := base.Clone()
	for _, n := range []int{5, 0, 4, 3} {
		if err := par.Evolve(split, n); err != nil {
			t.Fatal(err)
		}
	}
	if !split.Equal(whole) {
		t.Fatal("parallel runs of 5+0+4+3 generations differ from 12 scalar generations")
	}
}

func TestRegisteredEngines(t *testing.T) {
	for _, name := range []string{"scalar", "parallel", "opencl", "spectral"} {
		e, err := core.NewEngine(name, map[string]string{"device": "cpu", "lanes": "2"})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		g := newGrid(t, 4, 4)
		if err := e.Evolve(g, 1); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if err := core.Release(e); err != nil {
			t.Fatalf("%s release: %v", name, err)
		}
	}
	if _, err := core.NewEngine("nope", nil); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}
