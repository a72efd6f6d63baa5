//go:build ebiten

package ui

import (
	"image/color"

	"torus-life/internal/core"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// minGridScale is the smallest cell size at which grid lines stay readable.
const minGridScale = 4

// Overlay draws optional visuals on top of the grid.
type Overlay struct {
	size      core.Size
	scale     int
	showGrid  bool
	pixel     *ebiten.Image
	lineColor color.RGBA
}

// NewOverlay constructs a new overlay instance.
func NewOverlay(size core.Size, scale int) *Overlay {
	o := &Overlay{size: size, scale: scale, lineColor: color.RGBA{R: 40, G: 40, B: 48, A: 255}}
	o.pixel = ebiten.NewImage(1, 1)
	o.pixel.Fill(color.White)
	return o
}

// Update allows the overlay to update internal state.
func (o *Overlay) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		o.showGrid = !o.showGrid
	}
}

// Draw renders the overlay onto the provided screen.
func (o *Overlay) Draw(screen *ebiten.Image) {
	if !o.showGrid || o.scale < minGridScale {
		return
	}
	w := float64(o.size.W * o.scale)
	h := float64(o.size.H * o.scale)
	for x := 1; x < o.size.W; x++ {
		o.drawRect(screen, float64(x*o.scale), 0, 1, h)
	}
	for y := 1; y < o.size.H; y++ {
		o.drawRect(screen, 0, float64(y*o.scale), w, 1)
	}
}

func (o *Overlay) drawRect(screen *ebiten.Image, x, y, w, h float64) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(w, h)
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(o.lineColor)
	screen.DrawImage(o.pixel, op)
}
