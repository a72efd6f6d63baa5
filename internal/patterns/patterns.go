// Package patterns stamps well-known Life patterns onto a grid. Cells that
// fall outside the grid are dropped by the grid's own bounds policy.
package patterns

import (
	"sort"

	"torus-life/internal/core"
)

// Pattern is a set of live-cell offsets relative to an anchor.
type Pattern struct {
	Name  string
	Cells [][2]int
}

var (
	Glider = Pattern{Name: "glider", Cells: [][2]int{{1, 0}, {2, 1}, {0, 2}, {1, 2}, {2, 2}}}
	Toad   = Pattern{Name: "toad", Cells: [][2]int{{1, 0}, {2, 0}, {3, 0}, {0, 1}, {1, 1}, {2, 1}}}
	Beacon = Pattern{Name: "beacon", Cells: [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {2, 2}, {3, 2}, {2, 3}, {3, 3}}}
	// Methuselah is the R-pentomino; its top cell sits one row above the anchor.
	Methuselah = Pattern{Name: "methuselah", Cells: [][2]int{{0, 1}, {1, 1}, {0, 0}, {1, -1}, {2, 0}}}
	Block      = Pattern{Name: "block", Cells: [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}}
	Blinker    = Pattern{Name: "blinker", Cells: [][2]int{{0, 0}, {1, 0}, {2, 0}}}
)

var byName = map[string]Pattern{}

func init() {
	for _, p := range []Pattern{Glider, Toad, Beacon, Methuselah, Block, Blinker} {
		byName[p.Name] = p
	}
}

// Lookup returns the pattern registered under name.
func Lookup(name string) (Pattern, bool) {
	p, ok := byName[name]
	return p, ok
}

// Names lists the known patterns in sorted order.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stamp sets every cell of p alive with its anchor at (x, y).
func Stamp(g *core.Grid, p Pattern, x, y int) {
	for _, c := range p.Cells {
		g.SetCell(x+c[0], y+c[1], 1)
	}
}
