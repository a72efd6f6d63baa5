package life

import (
	"bytes"
	"errors"
	"log"
	"slices"
	"strings"
	"testing"

	"torus-life/internal/accel"
	"torus-life/internal/core"
)

// faultyDevice wraps the host device, injects failures and counts releases.
type faultyDevice struct {
	accel.Device

	failQueue      bool
	failBuild      bool
	failEnqueueAt  int // 1-based dispatch number that fails, 0 never
	failRead       bool
	opens          *int
	releases       int
	buffersLive    int
	queueReleased  int
	kernelReleased int
	dispatches     int
}

func (d *faultyDevice) NewQueue() (accel.Queue, error) {
	if d.failQueue {
		return nil, errors.New("queue creation refused")
	}
	q, err := d.Device.NewQueue()
	if err != nil {
		return nil, err
	}
	return &faultyQueue{Queue: q, dev: d}, nil
}

func (d *faultyDevice) Build(p accel.Program) (accel.Kernel, error) {
	if d.failBuild {
		return nil, &accel.BuildError{Program: p.Name, Device: "faulty", Log: "kernel.cl:3:1: error: expected ';'"}
	}
	k, err := d.Device.Build(p)
	if err != nil {
		return nil, err
	}
	return &faultyKernel{Kernel: k, dev: d}, nil
}

func (d *faultyDevice) Alloc(w, h int) (accel.Buffer, error) {
	b, err := d.Device.Alloc(w, h)
	if err != nil {
		return nil, err
	}
	d.buffersLive++
	return &faultyBuffer{Buffer: b, dev: d}, nil
}

func (d *faultyDevice) Release() error {
	d.releases++
	return d.Device.Release()
}

type faultyBuffer struct {
	accel.Buffer
	dev      *faultyDevice
	released bool
}

func (b *faultyBuffer) Release() error {
	if !b.released {
		b.released = true
		b.dev.buffersLive--
	}
	return b.Buffer.Release()
}

type faultyKernel struct {
	accel.Kernel
	dev *faultyDevice
}

func (k *faultyKernel) Bind(args accel.KernelArgs) error {
	args.Cur = args.Cur.(*faultyBuffer).Buffer
	args.Next = args.Next.(*faultyBuffer).Buffer
	return k.Kernel.Bind(args)
}

func (k *faultyKernel) Release() error {
	k.dev.kernelReleased++
	return k.Kernel.Release()
}

type faultyQueue struct {
	accel.Queue
	dev *faultyDevice
}

func (q *faultyQueue) Write(dst accel.Buffer, src []uint8) error {
	return q.Queue.Write(dst.(*faultyBuffer).Buffer, src)
}

func (q *faultyQueue) Enqueue(k accel.Kernel, global accel.Range) error {
	q.dev.dispatches++
	if q.dev.failEnqueueAt != 0 && q.dev.dispatches == q.dev.failEnqueueAt {
		return errors.New("device lost")
	}
	return q.Queue.Enqueue(k.(*faultyKernel).Kernel, global)
}

func (q *faultyQueue) Read(src accel.Buffer, dst []uint8) error {
	if q.dev.failRead {
		return errors.New("readback timed out")
	}
	return q.Queue.Read(src.(*faultyBuffer).Buffer, dst)
}

func (q *faultyQueue) Release() error {
	q.dev.queueReleased++
	return q.Queue.Release()
}

func faultyConfig(t *testing.T, dev *faultyDevice) Config {
	t.Helper()
	opens := 0
	dev.opens = &opens
	return Config{
		Platforms: []string{"faulty"},
		Open: func(prefer []string, cfg accel.Config) (accel.Device, error) {
			opens++
			host, err := accel.OpenCPU(accel.Config{Lanes: 2})
			if err != nil {
				return nil, err
			}
			dev.Device = host
			return dev, nil
		},
	}
}

func randomGrid(t *testing.T, seed int64) *core.Grid {
	t.Helper()
	g := newGrid(t, 12, 10)
	g.Randomize(core.NewRNG(seed), 0.4)
	return g
}

func TestParallelStateMachine(t *testing.T) {
	dev := &faultyDevice{}
	p := NewParallel(faultyConfig(t, dev))
	if p.State() != Uninitialized {
		t.Fatalf("new engine state %s", p.State())
	}
	if err := p.Init(); err != nil {
		t.Fatal(err)
	}
	if err := p.Init(); err != nil {
		t.Fatal(err)
	}
	if *dev.opens != 1 {
		t.Fatalf("Init opened the device %d times, want 1", *dev.opens)
	}
	if p.State() != DeviceReady {
		t.Fatalf("state after Init %s", p.State())
	}

	g := randomGrid(t, 1)
	if err := p.Evolve(g, 3); err != nil {
		t.Fatal(err)
	}
	if p.State() != DeviceReady {
		t.Fatalf("state after Evolve %s", p.State())
	}
	if dev.buffersLive != 0 {
		t.Fatalf("%d device buffers outlived the run", dev.buffersLive)
	}
	if dev.dispatches != 3 {
		t.Fatalf("%d dispatches for 3 generations", dev.dispatches)
	}

	for i := 0; i < 3; i++ {
		if err := p.Release(); err != nil {
			t.Fatal(err)
		}
	}
	if p.State() != Released {
		t.Fatalf("state after Release %s", p.State())
	}
	if dev.releases != 1 || dev.queueReleased != 1 || dev.kernelReleased != 1 {
		t.Fatalf("releases device=%d queue=%d kernel=%d, want 1 each", dev.releases, dev.queueReleased, dev.kernelReleased)
	}
	if err := p.Evolve(g, 1); !errors.Is(err, ErrReleased) {
		t.Fatalf("Evolve after Release: err = %v", err)
	}
}

func TestParallelDeviceUnavailable(t *testing.T) {
	p := NewParallel(Config{Platforms: []string{"no-such-platform"}})
	defer p.Release()
	g := randomGrid(t, 2)
	before := g.Snapshot()

	err := p.Evolve(g, 1)
	if !errors.Is(err, accel.ErrDeviceUnavailable) {
		t.Fatalf("err = %v, want ErrDeviceUnavailable", err)
	}
	if !slices.Equal(before, g.Cells()) {
		t.Fatal("failed init changed the grid")
	}
	if p.State() != Uninitialized {
		t.Fatalf("state %s after failed init", p.State())
	}
}

func TestParallelQueueFailureReleasesDevice(t *testing.T) {
	dev := &faultyDevice{failQueue: true}
	p := NewParallel(faultyConfig(t, dev))
	if err := p.Init(); !errors.Is(err, accel.ErrDeviceUnavailable) {
		t.Fatalf("err = %v, want ErrDeviceUnavailable", err)
	}
	if dev.releases != 1 {
		t.Fatalf("device released %d times after partial init", dev.releases)
	}
}

func TestParallelBuildFailureSurfacesDiagnostic(t *testing.T) {
	var logs bytes.Buffer
	dev := &faultyDevice{failBuild: true}
	cfg := faultyConfig(t, dev)
	cfg.Logger = log.New(&logs, "", 0)
	p := NewParallel(cfg)

	err := p.Init()
	if !errors.Is(err, accel.ErrBuildFailure) {
		t.Fatalf("err = %v, want ErrBuildFailure", err)
	}
	if !strings.Contains(err.Error(), "expected ';'") {
		t.Fatalf("error should carry the compiler diagnostic: %v", err)
	}
	if !strings.Contains(logs.String(), "expected ';'") {
		t.Fatalf("build log not reported: %q", logs.String())
	}
	if dev.releases != 1 || dev.queueReleased != 1 {
		t.Fatalf("partial init leaked: device=%d queue=%d releases", dev.releases, dev.queueReleased)
	}
}

func TestParallelExecutionFailureLeavesGridUnchanged(t *testing.T) {
	cases := []struct {
		name string
		dev  *faultyDevice
	}{
		{"dispatch", &faultyDevice{failEnqueueAt: 3}},
		{"readback", &faultyDevice{failRead: true}},
	}
	for _, c := range cases {
		p := NewParallel(faultyConfig(t, c.dev))
		g := randomGrid(t, 3)
		before := g.Snapshot()

		err := p.Evolve(g, 5)
		if !errors.Is(err, accel.ErrExecution) {
			t.Fatalf("%s: err = %v, want ErrExecution", c.name, err)
		}
		if !slices.Equal(before, g.Cells()) {
			t.Fatalf("%s: failed run committed cells to the grid", c.name)
		}
		if c.dev.buffersLive != 0 {
			t.Fatalf("%s: %d buffers leaked", c.name, c.dev.buffersLive)
		}
		if c.dev.releases != 1 || p.State() != Uninitialized {
			t.Fatalf("%s: device releases=%d state=%s", c.name, c.dev.releases, p.State())
		}

		// The engine recovers by opening the device again.
		c.dev.failEnqueueAt, c.dev.failRead = 0, false
		want := g.Clone()
		if err := NewScalar().Evolve(want, 5); err != nil {
			t.Fatal(err)
		}
		if err := p.Evolve(g, 5); err != nil {
			t.Fatalf("%s: retry: %v", c.name, err)
		}
		if !g.Equal(want) {
			t.Fatalf("%s: retry result differs from scalar", c.name)
		}
		p.Release()
	}
}

func TestParallelKernelFaultIsExecutionFailure(t *testing.T) {
	p := NewParallel(Config{
		Platforms: []string{"cpu"},
		Open: func(prefer []string, cfg accel.Config) (accel.Device, error) {
			dev, err := accel.OpenCPU(cfg)
			if err != nil {
				return nil, err
			}
			return panickyBuild{dev}, nil
		},
	})
	defer p.Release()
	g := randomGrid(t, 4)
	before := g.Snapshot()
	if err := p.Evolve(g, 2); !errors.Is(err, accel.ErrExecution) {
		t.Fatalf("err = %v, want ErrExecution", err)
	}
	if !slices.Equal(before, g.Cells()) {
		t.Fatal("faulting kernel changed the grid")
	}
}

// panickyBuild swaps the program entry for one that faults on every item.
type panickyBuild struct{ accel.Device }

func (d panickyBuild) Build(p accel.Program) (accel.Kernel, error) {
	p.Entry = func(cur []uint8, w, h, x, y int) uint8 { panic("illegal address") }
	return d.Device.Build(p)
}

func TestParallelParameters(t *testing.T) {
	p := NewParallel(Config{Platforms: []string{"cpu"}, Device: accel.Config{Lanes: 2}})
	defer p.Release()
	if err := p.Evolve(randomGrid(t, 5), 2); err != nil {
		t.Fatal(err)
	}
	params := map[string]string{}
	for _, group := range p.Parameters().Groups {
		for _, param := range group.Params {
			params[param.Key] = param.Value
		}
	}
	if params["device"] != "cpu/2" || params["generations"] != "2" || params["state"] != "device-ready" {
		t.Fatalf("unexpected parameters %v", params)
	}
}
