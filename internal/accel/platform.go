package accel

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
)

// Config carries device options shared by all platforms.
type Config struct {
	// Lanes bounds how many work-groups a host device runs at once.
	Lanes int
}

// DefaultConfig uses one lane per CPU.
func DefaultConfig() Config {
	return Config{Lanes: runtime.NumCPU()}
}

// FromMap populates a Config from a string map (flag-style key/value pairs).
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if v, ok := cfg["lanes"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			c.Lanes = parsed
		}
	}
	return c
}

// Opener opens a device on a platform. It returns ErrDeviceUnavailable (possibly
// wrapped) when the platform has no usable device.
type Opener func(cfg Config) (Device, error)

var platforms = map[string]Opener{}

// RegisterPlatform adds a platform under the provided name.
func RegisterPlatform(name string, open Opener) {
	if name == "" || open == nil {
		return
	}
	platforms[name] = open
}

// Platforms lists the registered platform names in sorted order.
func Platforms() []string {
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open returns a device from the first platform in prefer that opens. An empty
// preference list tries every registered platform.
func Open(prefer []string, cfg Config) (Device, error) {
	if len(prefer) == 0 {
		prefer = Platforms()
	}
	var errs []error
	for _, name := range prefer {
		open, ok := platforms[name]
		if !ok {
			errs = append(errs, fmt.Errorf("platform %q not registered", name))
			continue
		}
		dev, err := open(cfg)
		if err == nil {
			return dev, nil
		}
		errs = append(errs, fmt.Errorf("platform %q: %w", name, err))
	}
	if len(errs) == 0 {
		return nil, ErrDeviceUnavailable
	}
	return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, errors.Join(errs...))
}
