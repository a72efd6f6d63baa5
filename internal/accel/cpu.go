package accel

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// CPUPlatform is the name of the host platform, which is always available.
const CPUPlatform = "cpu"

// groupsPerLane splits the range finer than the lane count so a slow row
// band does not leave the other lanes idle.
const groupsPerLane = 4

func init() {
	RegisterPlatform(CPUPlatform, OpenCPU)
}

// OpenCPU opens the host device. Work-groups of rows run concurrently on up
// to cfg.Lanes goroutines.
func OpenCPU(cfg Config) (Device, error) {
	lanes := cfg.Lanes
	if lanes <= 0 {
		lanes = runtime.NumCPU()
	}
	return &cpuDevice{lanes: lanes}, nil
}

type cpuDevice struct {
	lanes    int
	released bool
}

func (d *cpuDevice) Name() string { return fmt.Sprintf("cpu/%d", d.lanes) }

func (d *cpuDevice) NewQueue() (Queue, error) {
	if d.released {
		return nil, ErrReleased
	}
	return &cpuQueue{dev: d}, nil
}

func (d *cpuDevice) Build(p Program) (Kernel, error) {
	if d.released {
		return nil, ErrReleased
	}
	if p.Entry == nil {
		return nil, &BuildError{Program: p.Name, Device: d.Name(), Log: "error: program has no host entry point"}
	}
	return &cpuKernel{dev: d, prog: p}, nil
}

func (d *cpuDevice) Alloc(w, h int) (Buffer, error) {
	if d.released {
		return nil, ErrReleased
	}
	if w <= 0 || h <= 0 {
		return nil, execErr("alloc %dx%d buffer", w, h)
	}
	return &cpuBuffer{dev: d, w: w, h: h, data: make([]uint8, w*h)}, nil
}

func (d *cpuDevice) Release() error {
	d.released = true
	return nil
}

func (d *cpuDevice) buffer(b Buffer) (*cpuBuffer, error) {
	cb, ok := b.(*cpuBuffer)
	if !ok || cb == nil || cb.dev != d {
		return nil, execErr("buffer does not belong to %s", d.Name())
	}
	if cb.data == nil {
		return nil, execErr("buffer used after release")
	}
	return cb, nil
}

type cpuBuffer struct {
	dev  *cpuDevice
	w, h int
	data []uint8
}

func (b *cpuBuffer) Width() int  { return b.w }
func (b *cpuBuffer) Height() int { return b.h }

func (b *cpuBuffer) Release() error {
	b.data = nil
	return nil
}

type cpuKernel struct {
	dev      *cpuDevice
	prog     Program
	args     KernelArgs
	bound    bool
	released bool
}

func (k *cpuKernel) Name() string { return k.prog.Name }

func (k *cpuKernel) Bind(args KernelArgs) error {
	if k.released {
		return ErrReleased
	}
	for _, b := range []Buffer{args.Cur, args.Next} {
		cb, err := k.dev.buffer(b)
		if err != nil {
			return err
		}
		if cb.w != args.Width || cb.h != args.Height {
			return execErr("bind %dx%d buffer to %dx%d kernel", cb.w, cb.h, args.Width, args.Height)
		}
	}
	k.args = args
	k.bound = true
	return nil
}

func (k *cpuKernel) Release() error {
	k.released = true
	k.bound = false
	k.args = KernelArgs{}
	return nil
}

// launch captures the bound arguments and returns the dispatch body.
func (k *cpuKernel) launch(global Range, lanes int) (func() error, error) {
	if k.released {
		return nil, ErrReleased
	}
	if !k.bound {
		return nil, execErr("kernel %q dispatched without arguments", k.prog.Name)
	}
	w, h := k.args.Width, k.args.Height
	if global.X != w || global.Y != h {
		return nil, execErr("range %dx%d does not match %dx%d arguments", global.X, global.Y, w, h)
	}
	cur, err := k.dev.buffer(k.args.Cur)
	if err != nil {
		return nil, err
	}
	next, err := k.dev.buffer(k.args.Next)
	if err != nil {
		return nil, err
	}
	src, dst := cur.data, next.data
	entry, name := k.prog.Entry, k.prog.Name
	rows := max(1, (h+lanes*groupsPerLane-1)/(lanes*groupsPerLane))

	return func() error {
		var g errgroup.Group
		g.SetLimit(lanes)
		for y0 := 0; y0 < h; y0 += rows {
			y1 := min(y0+rows, h)
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = execErr("kernel %q faulted in rows [%d,%d): %v", name, y0, y1, r)
					}
				}()
				for y := y0; y < y1; y++ {
					row := dst[y*w : (y+1)*w]
					for x := range row {
						row[x] = entry(src, w, h, x, y)
					}
				}
				return nil
			})
		}
		return g.Wait()
	}, nil
}

// cpuQueue runs commands in submission order on background goroutines. Each
// command waits for its predecessor before starting.
type cpuQueue struct {
	dev      *cpuDevice
	tail     chan struct{}
	released bool

	mu  sync.Mutex
	err error
}

func (q *cpuQueue) submit(cmd func() error) {
	prev := q.tail
	done := make(chan struct{})
	q.tail = done
	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		if q.failed() {
			return
		}
		if err := cmd(); err != nil {
			q.fail(err)
		}
	}()
}

func (q *cpuQueue) failed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err != nil
}

func (q *cpuQueue) fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err == nil {
		q.err = err
	}
}

func (q *cpuQueue) Write(dst Buffer, src []uint8) error {
	if q.released {
		return ErrReleased
	}
	b, err := q.dev.buffer(dst)
	if err != nil {
		return err
	}
	if len(src) != len(b.data) {
		return execErr("write %d cells into %dx%d buffer", len(src), b.w, b.h)
	}
	data := b.data
	q.submit(func() error {
		copy(data, src)
		return nil
	})
	return q.Finish()
}

func (q *cpuQueue) Enqueue(k Kernel, global Range) error {
	if q.released {
		return ErrReleased
	}
	ck, ok := k.(*cpuKernel)
	if !ok || ck.dev != q.dev {
		return execErr("kernel does not belong to %s", q.dev.Name())
	}
	run, err := ck.launch(global, q.dev.lanes)
	if err != nil {
		return err
	}
	q.submit(run)
	return nil
}

// Finish waits for all submitted commands and returns the first failure
// since the previous Finish.
func (q *cpuQueue) Finish() error {
	if q.tail != nil {
		<-q.tail
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	err := q.err
	q.err = nil
	return err
}

func (q *cpuQueue) Read(src Buffer, dst []uint8) error {
	if q.released {
		return ErrReleased
	}
	b, err := q.dev.buffer(src)
	if err != nil {
		return err
	}
	if len(dst) != len(b.data) {
		return execErr("read %dx%d buffer into %d cells", b.w, b.h, len(dst))
	}
	data := b.data
	q.submit(func() error {
		copy(dst, data)
		return nil
	})
	return q.Finish()
}

func (q *cpuQueue) Release() error {
	if q.released {
		return nil
	}
	err := q.Finish()
	q.released = true
	return err
}
