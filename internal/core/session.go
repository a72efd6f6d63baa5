package core

import (
	"errors"
	"slices"
)

// Session couples a grid with the engine that evolves it and tracks how many
// generations have been computed.
type Session struct {
	Grid   *Grid
	Engine Engine

	generation int
	previous   []uint8
}

// NewSession returns a session at generation zero.
func NewSession(g *Grid, e Engine) *Session {
	return &Session{Grid: g, Engine: e}
}

// Generation returns the number of generations evolved so far.
func (s *Session) Generation() int { return s.generation }

// Advance evolves n generations with the session engine.
func (s *Session) Advance(n int) error {
	if s.Engine == nil {
		return errors.New("core: session has no engine")
	}
	s.previous = s.Grid.Snapshot()
	if err := s.Engine.Evolve(s.Grid, n); err != nil {
		return err
	}
	s.generation += n
	return nil
}

// Stable reports whether the last Advance left the grid unchanged.
func (s *Session) Stable() bool {
	return s.previous != nil && slices.Equal(s.previous, s.Grid.Cells())
}

// SetEngine swaps the engine, releasing the previous one.
func (s *Session) SetEngine(e Engine) error {
	var err error
	if s.Engine != nil && s.Engine != e {
		err = Release(s.Engine)
	}
	s.Engine = e
	return err
}

// Reset replaces the grid and rewinds the generation counter.
func (s *Session) Reset(g *Grid) {
	s.Grid = g
	s.generation = 0
	s.previous = nil
}

// Close releases the engine.
func (s *Session) Close() error {
	if s.Engine == nil {
		return nil
	}
	return Release(s.Engine)
}
