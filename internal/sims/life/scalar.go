package life

import (
	"errors"
	"fmt"

	"torus-life/internal/core"
)

// ErrNegativeGenerations is returned when an engine is asked to run fewer
// than zero generations.
var ErrNegativeGenerations = errors.New("life: negative generation count")

// Scalar evolves the grid one cell at a time on the calling goroutine.
type Scalar struct{}

// NewScalar returns the sequential engine.
func NewScalar() *Scalar { return &Scalar{} }

// Name returns the engine identifier.
func (s *Scalar) Name() string { return "scalar" }

// Step advances the grid by one generation. Every cell of the next buffer is
// computed from the current buffer before the two are swapped.
func (s *Scalar) Step(g *core.Grid) {
	w, h := g.Width(), g.Height()
	cur, nxt := g.Cells(), g.Next()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			nxt[y*w+x] = Cell(cur, w, h, x, y)
		}
	}
	g.Swap()
}

// Evolve runs n generations.
func (s *Scalar) Evolve(g *core.Grid, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeGenerations, n)
	}
	for i := 0; i < n; i++ {
		s.Step(g)
	}
	return nil
}
