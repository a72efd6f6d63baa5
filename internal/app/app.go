//go:build ebiten

package app

import (
	"errors"
	"image/color"
	"log"
	"time"

	"torus-life/internal/accel"
	"torus-life/internal/core"
	"torus-life/internal/render"
	"torus-life/internal/sims/life"
	"torus-life/internal/ui"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const hudWidth = 220

func init() {
	accel.RegisterPlatform(life.KagePlatform, render.OpenKage)
}

// Game adapts a session to the ebiten.Game interface.
type Game struct {
	session *core.Session
	painter *render.GridPainter
	hud     *ui.HUD
	overlay *ui.Overlay

	onColor  color.Color
	offColor color.Color

	scale    int
	paused   bool
	tickOnce bool
	seed     int64
	density  float64
}

// New constructs a Game for the provided session.
func New(session *core.Session, cfg *Config) *Game {
	g := session.Grid
	size := core.Size{W: g.Width(), H: g.Height()}
	return &Game{
		session:  session,
		painter:  render.NewGridPainter(size.W, size.H),
		hud:      ui.NewHUD(session, hudWidth),
		overlay:  ui.NewOverlay(size, cfg.Scale),
		onColor:  color.White,
		offColor: color.Black,
		scale:    cfg.Scale,
		seed:     cfg.Seed,
		density:  cfg.Density,
	}
}

// Reset reseeds the world and rewinds the generation counter.
func (g *Game) Reset(seed int64) {
	g.seed = seed
	grid := g.session.Grid
	grid.Randomize(core.NewRNG(seed), g.density)
	g.session.Reset(grid)
	g.tickOnce = false
}

// Update handles per-frame logic and advances the simulation.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.paused = false
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.tickOnce = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.Reset(g.seed)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.Reset(time.Now().UnixNano())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		g.session.Grid.Clear()
		g.session.Reset(g.session.Grid)
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		g.toggle(x/g.scale, y/g.scale)
	}

	g.overlay.Update()

	if !g.paused || g.tickOnce {
		if err := g.advance(); err != nil {
			return err
		}
		g.tickOnce = false
	}
	g.hud.Update(g.paused)
	return nil
}

func (g *Game) toggle(x, y int) {
	grid := g.session.Grid
	if x < 0 || y < 0 || x >= grid.Width() || y >= grid.Height() {
		return
	}
	grid.SetCell(x, y, 1-grid.Cell(x, y))
}

// advance evolves one generation, dropping to the scalar engine when the
// accelerator fails.
func (g *Game) advance() error {
	err := g.session.Advance(1)
	if err == nil {
		return nil
	}
	if _, scalar := g.session.Engine.(*life.Scalar); scalar || !acceleratorFailure(err) {
		return err
	}
	log.Printf("%s engine failed, falling back to scalar: %v", g.session.Engine.Name(), err)
	if rerr := g.session.SetEngine(life.NewScalar()); rerr != nil {
		log.Printf("release engine: %v", rerr)
	}
	return g.session.Advance(1)
}

func acceleratorFailure(err error) bool {
	return errors.Is(err, accel.ErrDeviceUnavailable) ||
		errors.Is(err, accel.ErrBuildFailure) ||
		errors.Is(err, accel.ErrExecution)
}

// Draw renders the current simulation state.
func (g *Game) Draw(screen *ebiten.Image) {
	g.painter.Blit(screen, g.session.Grid.Cells(), g.onColor, g.offColor, g.scale)
	g.overlay.Draw(screen)
	g.hud.Draw(screen, g.session.Grid.Width()*g.scale, g.session.Grid.Height()*g.scale)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.session.Grid.Width()*g.scale + g.hud.Width(), g.session.Grid.Height() * g.scale
}

// Close releases the session engine and the painter image.
func (g *Game) Close() error {
	g.painter.Dispose()
	return g.session.Close()
}
