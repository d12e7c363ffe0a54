package config

import (
	"fmt"
	"sort"
)

// Presets are named ready-to-run configurations. Each entry starts from the
// defaults and toggles a physics channel or shrinks the problem.
var Presets = map[string]func() *Config{
	"default": DefaultConfig,
	"sticking-only": func() *Config {
		c := DefaultConfig()
		c.Dust.Fragmentation = false
		return c
	},
	"static-gas": func() *Config {
		c := DefaultConfig()
		c.Gas.Hydrodynamics = false
		return c
	},
	"fragile": func() *Config {
		c := DefaultConfig()
		c.Dust.VFrag = 100
		return c
	},
	"compact": func() *Config {
		c := DefaultConfig()
		c.Grid.RInAU, c.Grid.ROutAU, c.Grid.NR = 3, 100, 40
		c.Grid.AMax, c.Grid.NM = 1, 60
		c.Integration.TEndYr = 1e4
		return c
	},
}

// Preset returns a copy of the named preset configuration.
func Preset(name string) (*Config, error) {
	fn, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("config: unknown preset %q", name)
	}
	return fn(), nil
}

// ListPresets returns the preset names in stable order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for n := range Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
