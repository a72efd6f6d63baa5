// Package gridio reads and writes grids in the plain-text board format:
// a "<width> <height>" header followed by width*height whitespace-separated
// 0/1 values in row-major order.
package gridio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"torus-life/internal/core"
)

// maxCells bounds the board size accepted from a file.
const maxCells = 1 << 28

// ErrFormat is returned for malformed or truncated board files.
var ErrFormat = errors.New("gridio: malformed grid")

// FormatError describes where a board file went wrong.
type FormatError struct {
	Field  string
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("gridio: malformed grid: %s: %s", e.Field, e.Detail)
}

// Is lets errors.Is match ErrFormat.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// Load parses a board. On any error no grid is returned.
func Load(r io.Reader) (*core.Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	w, err := readDim(sc, "width")
	if err != nil {
		return nil, err
	}
	h, err := readDim(sc, "height")
	if err != nil {
		return nil, err
	}
	if w > maxCells/h {
		return nil, &FormatError{Field: "header", Detail: fmt.Sprintf("%dx%d exceeds %d cells", w, h, maxCells)}
	}

	g, err := core.NewGrid(w, h)
	if err != nil {
		return nil, &FormatError{Field: "header", Detail: err.Error()}
	}
	total := w * h
	for i := 0; i < total; i++ {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, fmt.Errorf("gridio: reading cells: %w", err)
			}
			return nil, &FormatError{Field: "cells", Detail: fmt.Sprintf("got %d of %d values", i, total)}
		}
		switch sc.Text() {
		case "0":
		case "1":
			g.SetCell1D(i, 1)
		default:
			return nil, &FormatError{Field: fmt.Sprintf("cell %d", i), Detail: fmt.Sprintf("value %q is not 0 or 1", sc.Text())}
		}
	}
	return g, nil
}

func readDim(sc *bufio.Scanner, field string) (int, error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, fmt.Errorf("gridio: reading %s: %w", field, err)
		}
		return 0, &FormatError{Field: field, Detail: "missing"}
	}
	v, err := strconv.Atoi(sc.Text())
	if err != nil {
		return 0, &FormatError{Field: field, Detail: fmt.Sprintf("%q is not an integer", sc.Text())}
	}
	if v <= 0 {
		return 0, &FormatError{Field: field, Detail: fmt.Sprintf("%d is not positive", v)}
	}
	return v, nil
}

// Save writes the dimensions line followed by one line per row.
func Save(w io.Writer, g *core.Grid) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", g.Width(), g.Height())
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			if x > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteByte('0' + g.Cell(x, y))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// LoadFile reads a board from path.
func LoadFile(path string) (*core.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// SaveFile writes a board to path. The file is replaced only once the new
// contents are fully written.
func SaveFile(path string, g *core.Grid) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := Save(tmp, g); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
