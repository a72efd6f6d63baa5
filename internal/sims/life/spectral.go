package life

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"torus-life/internal/core"
)

// Spectral counts neighbours for the whole board at once as a 2D circular
// convolution, computed with FFTs: a real transform along rows and a complex
// transform along columns. Circular convolution wraps at the edges exactly
// like the torus, so the counts match CountNeighbors.
type Spectral struct {
	w, h int
	half int
	norm float64

	rows *fourier.FFT
	cols *fourier.CmplxFFT

	kernel []complex128 // h rows of half coefficients
	freq   []complex128
	col    []complex128
	line   []float64
}

// NewSpectral returns an engine that plans its transforms on first use.
func NewSpectral() *Spectral { return &Spectral{} }

// Name returns the engine identifier.
func (s *Spectral) Name() string { return "spectral" }

func (s *Spectral) plan(w, h int) {
	if s.w == w && s.h == h && s.rows != nil {
		return
	}
	s.w, s.h = w, h
	s.half = w/2 + 1
	s.norm = 1 / float64(w*h)
	s.rows = fourier.NewFFT(w)
	s.cols = fourier.NewCmplxFFT(h)
	s.kernel = make([]complex128, h*s.half)
	s.freq = make([]complex128, h*s.half)
	s.col = make([]complex128, h)
	s.line = make([]float64, w)

	// Neighbourhood offsets accumulate so tiny boards, where several offsets
	// land on the same cell, count that cell as often as CountNeighbors does.
	spatial := make([]float64, w*h)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			fx := ((dx % w) + w) % w
			fy := ((dy % h) + h) % h
			spatial[fy*w+fx]++
		}
	}
	s.forward(s.kernel, spatial)
}

// forward writes the 2D transform of src (h rows of w values) into dst.
func (s *Spectral) forward(dst []complex128, src []float64) {
	for y := 0; y < s.h; y++ {
		s.rows.Coefficients(dst[y*s.half:(y+1)*s.half], src[y*s.w:(y+1)*s.w])
	}
	for x := 0; x < s.half; x++ {
		for y := 0; y < s.h; y++ {
			s.col[y] = dst[y*s.half+x]
		}
		s.cols.Coefficients(s.col, s.col)
		for y := 0; y < s.h; y++ {
			dst[y*s.half+x] = s.col[y]
		}
	}
}

// Step advances the grid by one generation.
func (s *Spectral) Step(g *core.Grid) {
	w, h := g.Width(), g.Height()
	s.plan(w, h)
	cur, nxt := g.Cells(), g.Next()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s.line[x] = float64(cur[y*w+x])
		}
		s.rows.Coefficients(s.freq[y*s.half:(y+1)*s.half], s.line)
	}
	for x := 0; x < s.half; x++ {
		for y := 0; y < h; y++ {
			s.col[y] = s.freq[y*s.half+x]
		}
		s.cols.Coefficients(s.col, s.col)
		for y := 0; y < h; y++ {
			s.col[y] *= s.kernel[y*s.half+x]
		}
		s.cols.Sequence(s.col, s.col)
		for y := 0; y < h; y++ {
			s.freq[y*s.half+x] = s.col[y]
		}
	}
	for y := 0; y < h; y++ {
		s.rows.Sequence(s.line, s.freq[y*s.half:(y+1)*s.half])
		for x := 0; x < w; x++ {
			idx := y*w + x
			n := int(math.Round(s.line[x] * s.norm))
			nxt[idx] = Next(cur[idx], n)
		}
	}
	g.Swap()
}

// Evolve runs n generations.
func (s *Spectral) Evolve(g *core.Grid, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeGenerations, n)
	}
	for i := 0; i < n; i++ {
		s.Step(g)
	}
	return nil
}
