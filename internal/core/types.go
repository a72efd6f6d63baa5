package core

import (
	"fmt"
	"sort"
)

// Size describes the dimensions of a simulation grid.
type Size struct {
	W int
	H int
}

// Engine advances a grid by whole generations. Implementations must leave
// the grid untouched when they return an error.
type Engine interface {
	Name() string
	Evolve(g *Grid, generations int) error
}

// Releaser is implemented by engines that hold resources beyond the grid.
type Releaser interface {
	Release() error
}

// Factory constructs an Engine using an optional configuration map.
type Factory func(cfg map[string]string) (Engine, error)

var engines = map[string]Factory{}

// Register adds an engine factory under the provided name.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	engines[name] = f
}

// Engines exposes the registry of available engine factories.
func Engines() map[string]Factory {
	return engines
}

// EngineNames lists the registered engine names in sorted order.
func EngineNames() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewEngine builds the engine registered under name.
func NewEngine(name string, cfg map[string]string) (Engine, error) {
	f, ok := engines[name]
	if !ok {
		return nil, fmt.Errorf("core: unknown engine %q", name)
	}
	return f(cfg)
}

// Release frees engine resources if the engine holds any.
func Release(e Engine) error {
	if r, ok := e.(Releaser); ok {
		return r.Release()
	}
	return nil
}
