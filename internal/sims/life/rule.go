// Package life implements Conway's Game of Life (B3/S23) on a toroidal grid
// with interchangeable engines that must agree cell for cell.
package life

import (
	_ "embed"

	"torus-life/internal/accel"
)

// KernelName is the entry point name shared by every form of the program.
const KernelName = "evolveToroidal"

//go:embed kernel.kage
var kageSource []byte

// CountNeighbors returns the number of live cells among the eight toroidal
// neighbours of (x, y).
func CountNeighbors(cells []uint8, w, h, x, y int) int {
	n := 0
	for dy := -1; dy <= 1; dy++ {
		ny := ((y+dy)%h + h) % h
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx := ((x+dx)%w + w) % w
			n += int(cells[ny*w+nx])
		}
	}
	return n
}

// Next applies B3/S23: a live cell survives with two or three neighbours, a
// dead cell is born with exactly three.
func Next(state uint8, neighbors int) uint8 {
	if neighbors == 3 || (state == 1 && neighbors == 2) {
		return 1
	}
	return 0
}

// Cell computes the next state of (x, y). It is one work item of the
// accelerated program and the inner step of the scalar engine.
func Cell(cells []uint8, w, h, x, y int) uint8 {
	return Next(cells[y*w+x], CountNeighbors(cells, w, h, x, y))
}

// Program returns the life kernel in host and shader form.
func Program() accel.Program {
	return accel.Program{Name: KernelName, Entry: Cell, Source: kageSource}
}
