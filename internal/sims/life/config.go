package life

import (
	"io"
	"log"
	"strings"

	"torus-life/internal/accel"
)

// KagePlatform names the shader platform registered by the GUI build.
const KagePlatform = "kage"

// Config controls the parallel engine's device selection.
type Config struct {
	// Platforms is the device preference order; the first platform that
	// opens is used.
	Platforms []string
	Device    accel.Config

	// Open overrides device discovery. It defaults to accel.Open.
	Open func(prefer []string, cfg accel.Config) (accel.Device, error)
	// Logger receives device selection and teardown messages.
	Logger *log.Logger
}

// DefaultConfig prefers a GPU shader device and falls back to the host.
func DefaultConfig() Config {
	return Config{
		Platforms: []string{KagePlatform, accel.CPUPlatform},
		Device:    accel.DefaultConfig(),
	}
}

// FromMap populates a Config from a string map (flag-style key/value pairs).
// "device" holds a comma-separated platform list, "lanes" the host lane count.
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.Device = accel.FromMap(cfg)
	if v, ok := cfg["device"]; ok && v != "" && v != "auto" {
		var names []string
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			c.Platforms = names
		}
	}
	return c
}

func (c Config) withDefaults() Config {
	if c.Open == nil {
		c.Open = accel.Open
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}
	return c
}
