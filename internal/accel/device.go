// Package accel models a data-parallel compute device: a context that owns
// buffers and compiled kernels, and an in-order command queue that uploads,
// dispatches one work item per cell over a 2D range, and reads back.
package accel

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnavailable reports that no compatible compute device exists.
	ErrDeviceUnavailable = errors.New("accel: no compatible compute device")
	// ErrBuildFailure reports that a kernel program could not be compiled.
	ErrBuildFailure = errors.New("accel: kernel build failed")
	// ErrExecution reports a failed dispatch, transfer or wait.
	ErrExecution = errors.New("accel: execution failed")
	// ErrReleased reports use of an object after Release.
	ErrReleased = errors.New("accel: use of released object")
)

// BuildError carries the compiler diagnostic for a failed build.
type BuildError struct {
	Program string
	Device  string
	Log     string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("accel: building %q on %s:\n%s", e.Program, e.Device, e.Log)
}

// Is lets errors.Is match ErrBuildFailure.
func (e *BuildError) Is(target error) bool { return target == ErrBuildFailure }

// CellKernel computes one work item: the next state of cell (x, y) given the
// current generation of a w*h board.
type CellKernel func(cur []uint8, w, h, x, y int) uint8

// Program is a kernel in every form the devices understand. Host devices run
// Entry; shader devices compile Source.
type Program struct {
	Name   string
	Entry  CellKernel
	Source []byte
}

// Range is the global 2D work size of a dispatch.
type Range struct {
	X, Y int
}

// KernelArgs are the arguments bound to the life kernel before a dispatch.
type KernelArgs struct {
	Cur    Buffer
	Next   Buffer
	Width  int
	Height int
}

// Buffer is device-resident cell storage.
type Buffer interface {
	Width() int
	Height() int
	Release() error
}

// Kernel is a compiled program entry point with bound arguments.
type Kernel interface {
	Name() string
	Bind(args KernelArgs) error
	Release() error
}

// Queue is an in-order command queue. Enqueue returns once the dispatch is
// submitted; Finish blocks until everything submitted has completed.
type Queue interface {
	Write(dst Buffer, src []uint8) error
	Enqueue(k Kernel, global Range) error
	Finish() error
	Read(src Buffer, dst []uint8) error
	Release() error
}

// Device is an opened compute device together with its context.
type Device interface {
	Name() string
	NewQueue() (Queue, error)
	Build(p Program) (Kernel, error)
	Alloc(w, h int) (Buffer, error)
	Release() error
}

func execErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExecution, fmt.Sprintf(format, args...))
}
