package ui

import (
	"fmt"

	"torus-life/internal/core"
)

// WorldGroup reports the state of the session shown next to the grid.
func WorldGroup(s *core.Session, paused bool) core.ParameterGroup {
	state := "running"
	if paused {
		state = "paused"
	}
	g := s.Grid
	return core.ParameterGroup{
		Name: "World",
		Params: []core.Parameter{
			core.StringParam("size", "Size", fmt.Sprintf("%dx%d", g.Width(), g.Height())),
			core.IntParam("generation", "Generation", s.Generation()),
			core.IntParam("population", "Population", g.Population()),
			core.StringParam("state", "State", state),
		},
	}
}

// panelLines flattens parameter groups into the text rows of the panel.
func panelLines(groups []core.ParameterGroup) []string {
	var lines []string
	for i, group := range groups {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, group.Name)
		for _, p := range group.Params {
			value := p.Value
			if value == "" {
				value = "--"
			}
			lines = append(lines, fmt.Sprintf("  %-11s %s", p.Label, value))
		}
	}
	return lines
}

// keyHelp lists the viewer key bindings.
var keyHelp = []string{
	"space  pause",
	"n      step",
	"r      reseed",
	"s      new seed",
	"c      clear",
	"click  toggle cell",
	"g      grid lines",
	"q/esc  quit",
}
