//go:build ebiten

package render

import (
	"fmt"
	"image"

	"github.com/hajimehoshi/ebiten/v2"

	"torus-life/internal/accel"
)

// KageDeviceName identifies the shader device in logs and the HUD.
const KageDeviceName = "kage/ebiten"

// OpenKage opens the GPU device backed by ebiten images and Kage shaders.
// Transfers and dispatches must run on the game goroutine, from Update.
func OpenKage(accel.Config) (accel.Device, error) {
	return &kageDevice{}, nil
}

type kageDevice struct {
	released bool
}

func (d *kageDevice) Name() string { return KageDeviceName }

func (d *kageDevice) NewQueue() (accel.Queue, error) {
	if d.released {
		return nil, accel.ErrReleased
	}
	return &kageQueue{dev: d}, nil
}

func (d *kageDevice) Build(p accel.Program) (accel.Kernel, error) {
	if d.released {
		return nil, accel.ErrReleased
	}
	if len(p.Source) == 0 {
		return nil, &accel.BuildError{Program: p.Name, Device: KageDeviceName, Log: "error: program has no shader source"}
	}
	shader, err := ebiten.NewShader(p.Source)
	if err != nil {
		return nil, &accel.BuildError{Program: p.Name, Device: KageDeviceName, Log: err.Error()}
	}
	return &kageKernel{dev: d, name: p.Name, shader: shader}, nil
}

func (d *kageDevice) Alloc(w, h int) (accel.Buffer, error) {
	if d.released {
		return nil, accel.ErrReleased
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("accel: invalid buffer size %dx%d", w, h)
	}
	img := ebiten.NewImageWithOptions(image.Rect(0, 0, w, h), &ebiten.NewImageOptions{Unmanaged: true})
	return &kageBuffer{dev: d, w: w, h: h, img: img, pix: make([]byte, 4*w*h)}, nil
}

func (d *kageDevice) Release() error {
	d.released = true
	return nil
}

func (d *kageDevice) buffer(b accel.Buffer) (*kageBuffer, error) {
	kb, ok := b.(*kageBuffer)
	if !ok || kb.dev != d {
		return nil, fmt.Errorf("%w: buffer does not belong to %s", accel.ErrExecution, KageDeviceName)
	}
	if kb.img == nil {
		return nil, fmt.Errorf("%w: buffer %w", accel.ErrExecution, accel.ErrReleased)
	}
	return kb, nil
}

type kageBuffer struct {
	dev  *kageDevice
	w, h int
	img  *ebiten.Image
	pix  []byte
}

func (b *kageBuffer) Width() int  { return b.w }
func (b *kageBuffer) Height() int { return b.h }

func (b *kageBuffer) Release() error {
	if b.img != nil {
		b.img.Dispose()
		b.img = nil
	}
	return nil
}

type kageKernel struct {
	dev    *kageDevice
	name   string
	shader *ebiten.Shader

	cur, next *kageBuffer
}

func (k *kageKernel) Name() string { return k.name }

func (k *kageKernel) Bind(args accel.KernelArgs) error {
	if k.shader == nil {
		return accel.ErrReleased
	}
	cur, err := k.dev.buffer(args.Cur)
	if err != nil {
		return err
	}
	next, err := k.dev.buffer(args.Next)
	if err != nil {
		return err
	}
	if cur.w != args.Width || cur.h != args.Height || next.w != args.Width || next.h != args.Height {
		return fmt.Errorf("%w: kernel %s bound to %dx%d with buffers %dx%d and %dx%d",
			accel.ErrExecution, k.name, args.Width, args.Height, cur.w, cur.h, next.w, next.h)
	}
	k.cur, k.next = cur, next
	return nil
}

func (k *kageKernel) Release() error {
	if k.shader != nil {
		k.shader.Dispose()
		k.shader = nil
	}
	k.cur, k.next = nil, nil
	return nil
}

// kageQueue issues commands straight to ebiten, which batches draw calls
// in submission order and flushes them on ReadPixels.
type kageQueue struct {
	dev      *kageDevice
	released bool
}

func (q *kageQueue) Write(dst accel.Buffer, src []uint8) (err error) {
	if q.released {
		return accel.ErrReleased
	}
	b, err := q.dev.buffer(dst)
	if err != nil {
		return err
	}
	if len(src) != b.w*b.h {
		return fmt.Errorf("%w: write of %d cells into %dx%d buffer", accel.ErrExecution, len(src), b.w, b.h)
	}
	defer recoverExec(&err, "write")
	fillBinaryRGBA(b.pix, src, cellOn, cellOff)
	b.img.WritePixels(b.pix)
	return nil
}

func (q *kageQueue) Enqueue(k accel.Kernel, global accel.Range) (err error) {
	if q.released {
		return accel.ErrReleased
	}
	kk, ok := k.(*kageKernel)
	if !ok || kk.dev != q.dev {
		return fmt.Errorf("%w: kernel does not belong to %s", accel.ErrExecution, KageDeviceName)
	}
	if kk.cur == nil || kk.next == nil || kk.shader == nil {
		return fmt.Errorf("%w: kernel %s has no bound arguments", accel.ErrExecution, kk.name)
	}
	if global.X != kk.cur.w || global.Y != kk.cur.h {
		return fmt.Errorf("%w: range %dx%d does not cover %dx%d", accel.ErrExecution, global.X, global.Y, kk.cur.w, kk.cur.h)
	}
	defer recoverExec(&err, "dispatch")
	op := &ebiten.DrawRectShaderOptions{
		Blend: ebiten.BlendCopy,
		Uniforms: map[string]any{
			"Size": []float32{float32(global.X), float32(global.Y)},
		},
	}
	op.Images[0] = kk.cur.img
	kk.next.img.DrawRectShader(global.X, global.Y, kk.shader, op)
	return nil
}

func (q *kageQueue) Finish() error {
	if q.released {
		return accel.ErrReleased
	}
	return nil
}

func (q *kageQueue) Read(src accel.Buffer, dst []uint8) (err error) {
	if q.released {
		return accel.ErrReleased
	}
	b, err := q.dev.buffer(src)
	if err != nil {
		return err
	}
	if len(dst) != b.w*b.h {
		return fmt.Errorf("%w: read of %dx%d buffer into %d cells", accel.ErrExecution, b.w, b.h, len(dst))
	}
	defer recoverExec(&err, "read")
	b.img.ReadPixels(b.pix)
	decodeBinaryRGBA(dst, b.pix)
	return nil
}

func (q *kageQueue) Release() error {
	q.released = true
	return nil
}

// recoverExec turns an ebiten panic (for example a transfer attempted before
// the game loop started) into an execution error.
func recoverExec(err *error, op string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %s panicked: %v", accel.ErrExecution, op, r)
	}
}
