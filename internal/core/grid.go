package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDimension is returned when a grid is created with a width or
// height that is not positive.
var ErrInvalidDimension = errors.New("core: grid dimensions must be positive")

// Grid stores a toroidal Life board as two row-major byte buffers. The current
// buffer is what callers read and write; the next buffer is scratch space the
// engines fill before calling Swap.
type Grid struct {
	w, h int
	cur  []uint8
	nxt  []uint8
}

// NewGrid allocates a zero-filled grid with the given dimensions.
func NewGrid(w, h int) (*Grid, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimension, w, h)
	}
	return &Grid{w: w, h: h, cur: make([]uint8, w*h), nxt: make([]uint8, w*h)}, nil
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.w }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.h }

// Size returns both dimensions.
func (g *Grid) Size() Size { return Size{W: g.w, H: g.h} }

// Len returns width*height.
func (g *Grid) Len() int { return len(g.cur) }

// Index returns the linear slice index for coordinates (x, y).
func (g *Grid) Index(x, y int) int { return y*g.w + x }

// Wrap applies toroidal wrapping to the provided coordinates.
func (g *Grid) Wrap(x, y int) (int, int) {
	x = (x%g.w + g.w) % g.w
	y = (y%g.h + g.h) % g.h
	return x, y
}

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && x < g.w && y >= 0 && y < g.h
}

// SetCell writes state into the current generation. Any non-zero state is
// stored as 1. Coordinates outside the grid are ignored so pattern stamps may
// run off the edge.
func (g *Grid) SetCell(x, y int, state uint8) {
	if !g.inBounds(x, y) {
		return
	}
	g.cur[g.Index(x, y)] = alive(state)
}

// Cell reads the current generation, returning 0 outside the grid.
func (g *Grid) Cell(x, y int) uint8 {
	if !g.inBounds(x, y) {
		return 0
	}
	return g.cur[g.Index(x, y)]
}

// SetCell1D addresses a cell by its flattened index. The index is not checked
// against Len; it is split into x = idx % w, y = idx / w and then follows the
// SetCell rules.
func (g *Grid) SetCell1D(idx int, state uint8) {
	if idx < 0 {
		return
	}
	g.SetCell(idx%g.w, idx/g.w, state)
}

// Cell1D is the flattened-index counterpart of Cell.
func (g *Grid) Cell1D(idx int) uint8 {
	if idx < 0 {
		return 0
	}
	return g.Cell(idx%g.w, idx/g.w)
}

// Randomize sets every cell alive with probability p, independently.
func (g *Grid) Randomize(rng *RNG, p float64) {
	switch {
	case p < 0:
		p = 0
	case p > 1:
		p = 1
	}
	for i := range g.cur {
		g.cur[i] = 0
		if rng.Chance(p) {
			g.cur[i] = 1
		}
	}
}

// Clear kills every cell of the current generation.
func (g *Grid) Clear() {
	for i := range g.cur {
		g.cur[i] = 0
	}
}

// Cells exposes the current generation. Callers must not retain it across a
// Swap.
func (g *Grid) Cells() []uint8 { return g.cur }

// Next exposes the scratch buffer an engine writes the following generation
// into.
func (g *Grid) Next() []uint8 { return g.nxt }

// Swap makes the next buffer current. No data is copied.
func (g *Grid) Swap() { g.cur, g.nxt = g.nxt, g.cur }

// Replace commits a complete generation computed outside the grid, e.g. read
// back from a device.
func (g *Grid) Replace(cells []uint8) error {
	if len(cells) != len(g.cur) {
		return fmt.Errorf("core: replace with %d cells, grid holds %d", len(cells), len(g.cur))
	}
	for i, c := range cells {
		g.cur[i] = alive(c)
	}
	return nil
}

// Snapshot returns a copy of the current generation.
func (g *Grid) Snapshot() []uint8 {
	return append([]uint8(nil), g.cur...)
}

// Clone returns an independent grid with the same current generation.
func (g *Grid) Clone() *Grid {
	return &Grid{w: g.w, h: g.h, cur: g.Snapshot(), nxt: make([]uint8, len(g.nxt))}
}

// Population counts live cells.
func (g *Grid) Population() int {
	n := 0
	for _, c := range g.cur {
		n += int(c)
	}
	return n
}

// Equal reports whether both grids have the same size and current cells.
func (g *Grid) Equal(o *Grid) bool {
	if g.w != o.w || g.h != o.h {
		return false
	}
	for i := range g.cur {
		if g.cur[i] != o.cur[i] {
			return false
		}
	}
	return true
}

// String renders live cells as '*' and dead cells as '.', one row per line.
func (g *Grid) String() string {
	var b strings.Builder
	b.Grow((g.w + 1) * g.h)
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			if g.cur[g.Index(x, y)] != 0 {
				b.WriteByte('*')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func alive(state uint8) uint8 {
	if state != 0 {
		return 1
	}
	return 0
}
