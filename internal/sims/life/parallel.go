package life

import (
	"errors"
	"fmt"

	"torus-life/internal/accel"
	"torus-life/internal/core"
)

// ErrReleased is returned by a parallel engine after Release.
var ErrReleased = errors.New("life: parallel engine released")

// State is the lifecycle position of a Parallel engine.
type State int

const (
	Uninitialized State = iota
	DeviceReady
	Running
	Released
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case DeviceReady:
		return "device-ready"
	case Running:
		return "running"
	case Released:
		return "released"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Parallel evolves the grid with the life kernel on an accelerator device.
// The device, queue and compiled kernel are acquired once and kept across
// runs; the two cell buffers exist only for the duration of one Evolve.
type Parallel struct {
	cfg   Config
	state State

	dev    accel.Device
	queue  accel.Queue
	kernel accel.Kernel

	generations int
}

// NewParallel returns an engine that opens its device on first use.
func NewParallel(cfg Config) *Parallel {
	return &Parallel{cfg: cfg.withDefaults()}
}

// Name returns the engine identifier.
func (p *Parallel) Name() string { return "parallel" }

// State reports the lifecycle state.
func (p *Parallel) State() State { return p.state }

// Device returns the name of the open device, or "" before Init.
func (p *Parallel) Device() string {
	if p.dev == nil {
		return ""
	}
	return p.dev.Name()
}

// Init opens the device and builds the kernel. Calling it again once the
// device is ready does nothing. Anything acquired before a failure is
// released.
func (p *Parallel) Init() error {
	switch p.state {
	case DeviceReady, Running:
		return nil
	case Released:
		return ErrReleased
	}

	dev, err := p.cfg.Open(p.cfg.Platforms, p.cfg.Device)
	if err != nil {
		if !errors.Is(err, accel.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %w", accel.ErrDeviceUnavailable, err)
		}
		return fmt.Errorf("life: parallel init: %w", err)
	}
	p.dev = dev

	p.queue, err = dev.NewQueue()
	if err != nil {
		p.teardown()
		return fmt.Errorf("life: parallel init: %w: %w", accel.ErrDeviceUnavailable, err)
	}

	p.kernel, err = dev.Build(Program())
	if err != nil {
		var be *accel.BuildError
		if errors.As(err, &be) {
			p.cfg.Logger.Printf("parallel: build log for %s:\n%s", be.Device, be.Log)
		}
		if !errors.Is(err, accel.ErrBuildFailure) {
			err = fmt.Errorf("%w: %w", accel.ErrBuildFailure, err)
		}
		p.teardown()
		return fmt.Errorf("life: parallel init: %w", err)
	}

	p.state = DeviceReady
	p.cfg.Logger.Printf("parallel: using %s", dev.Name())
	return nil
}

// Evolve runs n generations on the device and commits the result to g. On
// failure g is left as it was and every device resource is released; the
// next call opens the device again.
func (p *Parallel) Evolve(g *core.Grid, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeGenerations, n)
	}
	if err := p.Init(); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	p.state = Running
	out, err := p.run(g, n)
	if err != nil {
		p.teardown()
		if !errors.Is(err, accel.ErrExecution) {
			err = fmt.Errorf("%w: %w", accel.ErrExecution, err)
		}
		return fmt.Errorf("life: parallel evolve: %w", err)
	}
	p.state = DeviceReady
	p.generations += n
	return g.Replace(out)
}

func (p *Parallel) run(g *core.Grid, n int) ([]uint8, error) {
	w, h := g.Width(), g.Height()

	var cur, next accel.Buffer
	defer func() {
		if cur != nil {
			cur.Release()
		}
		if next != nil {
			next.Release()
		}
	}()

	var err error
	if cur, err = p.dev.Alloc(w, h); err != nil {
		return nil, err
	}
	if next, err = p.dev.Alloc(w, h); err != nil {
		return nil, err
	}
	if err := p.queue.Write(cur, g.Cells()); err != nil {
		return nil, err
	}

	global := accel.Range{X: w, Y: h}
	for i := 0; i < n; i++ {
		if err := p.kernel.Bind(accel.KernelArgs{Cur: cur, Next: next, Width: w, Height: h}); err != nil {
			return nil, err
		}
		if err := p.queue.Enqueue(p.kernel, global); err != nil {
			return nil, err
		}
		if err := p.queue.Finish(); err != nil {
			return nil, err
		}
		cur, next = next, cur
	}

	out := make([]uint8, w*h)
	if err := p.queue.Read(cur, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Release frees the kernel, queue and device. It is safe to call more than
// once; the engine cannot be used afterwards.
func (p *Parallel) Release() error {
	if p.state == Released {
		return nil
	}
	err := p.teardown()
	p.state = Released
	return err
}

func (p *Parallel) teardown() error {
	var errs []error
	if p.kernel != nil {
		errs = append(errs, p.kernel.Release())
		p.kernel = nil
	}
	if p.queue != nil {
		errs = append(errs, p.queue.Release())
		p.queue = nil
	}
	if p.dev != nil {
		name := p.dev.Name()
		errs = append(errs, p.dev.Release())
		p.dev = nil
		p.cfg.Logger.Printf("parallel: released %s", name)
	}
	p.state = Uninitialized
	return errors.Join(errs...)
}

// Parameters describes the engine for the shell and the HUD.
func (p *Parallel) Parameters() core.ParameterSnapshot {
	device := p.Device()
	if device == "" {
		device = "--"
	}
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{{
		Name: "Parallel",
		Params: []core.Parameter{
			core.StringParam("engine", "Engine", p.Name()),
			core.StringParam("state", "State", p.state.String()),
			core.StringParam("device", "Device", device),
			core.IntParam("lanes", "Lanes", p.cfg.Device.Lanes),
			core.IntParam("generations", "Generations", p.generations),
		},
	}}}
}
