package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"torus-life/internal/shell"
	_ "torus-life/internal/sims/life"
)

func main() {
	cfg := shell.DefaultConfig()
	if path := configPath(os.Args[1:]); path != "" {
		loaded, err := shell.LoadConfig(path)
		if err != nil {
			log.Fatalf("load config %s: %v", path, err)
		}
		cfg = loaded
	}

	fs := flag.NewFlagSet("gol", flag.ExitOnError)
	cfg.Bind(fs)
	fs.String("config", "", "JSON file with shell settings; flags override it")
	fs.Parse(os.Args[1:])

	sh := shell.New(cfg, os.Stdout)
	defer sh.Close()
	if err := sh.Run(os.Stdin); err != nil {
		log.Fatalf("read commands: %v", err)
	}
}

// configPath finds -config before the full flag parse so the file can seed
// the defaults that flags then override.
func configPath(args []string) string {
	for i, arg := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
