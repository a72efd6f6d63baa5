package shell

import (
	"encoding/json"
	"flag"
	"os"
	"strconv"

	"torus-life/internal/accel"
)

// Config holds the shell's startup settings.
type Config struct {
	Engine string `json:"engine"`
	Device string `json:"device"`
	Lanes  int    `json:"lanes"`
	// DelayMS pauses after each printed generation.
	DelayMS int    `json:"delay_ms"`
	Print   bool   `json:"print"`
	Seed    int64  `json:"seed"`
	Prompt  string `json:"prompt"`
}

// DefaultConfig returns the settings used when no flags or file are given.
func DefaultConfig() Config {
	return Config{
		Engine: "scalar",
		Device: "auto",
		Lanes:  accel.DefaultConfig().Lanes,
		Seed:   42,
		Prompt: "> ",
	}
}

// LoadConfig overlays the JSON file at filename onto the defaults.
func LoadConfig(filename string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}

	err = json.Unmarshal(data, &config)
	return config, err
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Engine, "engine", c.Engine, "engine used by 'step'")
	fs.StringVar(&c.Device, "device", c.Device, "comma-separated accelerator platforms in preference order")
	fs.IntVar(&c.Lanes, "lanes", c.Lanes, "host lanes for the cpu accelerator")
	fs.IntVar(&c.DelayMS, "delay", c.DelayMS, "milliseconds to pause after each printed generation")
	fs.BoolVar(&c.Print, "print", c.Print, "print the grid after every generation")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for 'random'")
}

// EngineConfig is the key/value form handed to engine factories.
func (c Config) EngineConfig() map[string]string {
	return map[string]string{
		"device": c.Device,
		"lanes":  strconv.Itoa(c.Lanes),
	}
}
