// Package config defines the immutable run configuration. The numerical core
// never reads files or the environment itself; only this package and cmd do.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chengchen0102/dustpy/internal/boundary"
)

const (
	DefaultAlpha        = 1e-3
	DefaultVFrag        = 1000.0 // cm/s
	DefaultFragExponent = 1.83
	DefaultDust2Gas     = 0.01
)

type Config struct {
	Star        StarConfig        `yaml:"star"`
	Grid        GridConfig        `yaml:"grid"`
	Gas         GasConfig         `yaml:"gas"`
	Dust        DustConfig        `yaml:"dust"`
	Integration IntegrationConfig `yaml:"integration"`
}

type StarConfig struct {
	Mass       float64 `yaml:"mass"`       // solar masses
	Luminosity float64 `yaml:"luminosity"` // solar luminosities
}

type GridConfig struct {
	RInAU  float64 `yaml:"r_in"`  // inner edge [au]
	ROutAU float64 `yaml:"r_out"` // outer edge [au]
	NR     int     `yaml:"n_r"`
	AMin   float64 `yaml:"a_min"` // smallest particle radius [cm]
	AMax   float64 `yaml:"a_max"` // largest particle radius [cm]
	NM     int     `yaml:"n_m"`
	RhoS   float64 `yaml:"rho_s"` // particle material density [g/cm^3]
}

type BCConfig struct {
	Type  string  `yaml:"type"` // value | gradient | powerlaw | floor
	Value float64 `yaml:"value"`
}

type GasConfig struct {
	Alpha         float64  `yaml:"alpha"`
	Mu            float64  `yaml:"mu"`
	FlareIr       float64  `yaml:"flare_irradiation"`
	MDisk         float64  `yaml:"m_disk"` // solar masses
	RC            float64  `yaml:"r_c"`    // characteristic radius [au]
	Floor         float64  `yaml:"floor"`
	Hydrodynamics bool     `yaml:"hydrodynamics"`
	BCInner       BCConfig `yaml:"bc_inner"`
	BCOuter       BCConfig `yaml:"bc_outer"`
}

type DustConfig struct {
	Dust2Gas          float64  `yaml:"dust_to_gas"`
	VFrag             float64  `yaml:"v_frag"` // cm/s
	TransitionWidth   float64  `yaml:"transition_width"`
	FragExponent      float64  `yaml:"frag_exponent"`
	ErosionRatio      float64  `yaml:"erosion_ratio"`
	ErosionExcavation float64  `yaml:"erosion_excavation"`
	BounceProb        float64  `yaml:"bounce_prob"`
	AMinFrag          float64  `yaml:"a_min_frag"` // cm
	Floor             float64  `yaml:"floor"`
	Sticking          bool     `yaml:"sticking"`
	Fragmentation     bool     `yaml:"fragmentation"`
	Backreaction      bool     `yaml:"backreaction"`
	BCInner           BCConfig `yaml:"bc_inner"`
	BCOuter           BCConfig `yaml:"bc_outer"`
}

type IntegrationConfig struct {
	Tol        float64 `yaml:"tol"`
	InitDtYr   float64 `yaml:"init_dt"` // years
	MinDtYr    float64 `yaml:"min_dt"`
	MaxDtYr    float64 `yaml:"max_dt"`
	MaxRetries int     `yaml:"max_retries"`
	TEndYr     float64 `yaml:"t_end"`
	Snapshots  int     `yaml:"snapshots"`
}

func DefaultConfig() *Config {
	return &Config{
		Star: StarConfig{Mass: 1, Luminosity: 1},
		Grid: GridConfig{
			RInAU: 1, ROutAU: 1000, NR: 100,
			AMin: 5e-5, AMax: 10, NM: 100,
			RhoS: 1.67,
		},
		Gas: GasConfig{
			Alpha:         DefaultAlpha,
			Mu:            2.3,
			FlareIr:       0.05,
			MDisk:         0.05,
			RC:            60,
			Floor:         1e-20,
			Hydrodynamics: true,
			BCInner:       BCConfig{Type: "gradient"},
			BCOuter:       BCConfig{Type: "floor", Value: 1e-20},
		},
		Dust: DustConfig{
			Dust2Gas:          DefaultDust2Gas,
			VFrag:             DefaultVFrag,
			TransitionWidth:   0.2,
			FragExponent:      DefaultFragExponent,
			ErosionRatio:      10,
			ErosionExcavation: 1,
			AMinFrag:          5e-5,
			Floor:             1e-40,
			Sticking:          true,
			Fragmentation:     true,
			Backreaction:      false,
			BCInner:           BCConfig{Type: "floor", Value: 1e-40},
			BCOuter:           BCConfig{Type: "floor", Value: 1e-40},
		},
		Integration: IntegrationConfig{
			Tol:        1e-3,
			InitDtYr:   0.1,
			MinDtYr:    1e-8,
			MaxDtYr:    1000,
			MaxRetries: 12,
			TEndYr:     1e5,
			Snapshots:  10,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports configuration errors before any stepping begins: unknown
// boundary tags, inverted grids and non-positive physics parameters never
// surface mid-run.
func (c *Config) Validate() error {
	if c.Star.Mass <= 0 || c.Star.Luminosity <= 0 {
		return fmt.Errorf("config: stellar mass and luminosity must be positive")
	}
	if c.Grid.RInAU <= 0 || c.Grid.ROutAU <= c.Grid.RInAU {
		return fmt.Errorf("config: invalid radial extent [%g, %g] au", c.Grid.RInAU, c.Grid.ROutAU)
	}
	if c.Grid.NR < 3 {
		return fmt.Errorf("config: need at least 3 radial cells, got %d", c.Grid.NR)
	}
	if c.Grid.AMin <= 0 || c.Grid.AMax <= c.Grid.AMin {
		return fmt.Errorf("config: invalid particle size extent [%g, %g] cm", c.Grid.AMin, c.Grid.AMax)
	}
	if c.Grid.NM < 2 {
		return fmt.Errorf("config: need at least 2 mass bins, got %d", c.Grid.NM)
	}
	if c.Gas.Alpha <= 0 {
		return fmt.Errorf("config: alpha must be positive, got %g", c.Gas.Alpha)
	}
	if c.Dust.VFrag <= 0 && c.Dust.Fragmentation {
		return fmt.Errorf("config: fragmentation velocity must be positive, got %g", c.Dust.VFrag)
	}
	if c.Integration.Tol <= 0 {
		return fmt.Errorf("config: tolerance must be positive, got %g", c.Integration.Tol)
	}
	for _, bc := range []BCConfig{c.Gas.BCInner, c.Gas.BCOuter, c.Dust.BCInner, c.Dust.BCOuter} {
		if _, err := boundary.ParseKind(bc.Type); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

// Boundary resolves a boundary block into its policy object.
func (b BCConfig) Boundary() (boundary.Condition, error) {
	kind, err := boundary.ParseKind(b.Type)
	if err != nil {
		return boundary.Condition{}, err
	}
	return boundary.Condition{Kind: kind, Value: b.Value}, nil
}
