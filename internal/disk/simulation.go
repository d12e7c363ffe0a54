// Package disk wires the gas and dust solvers, the collision kernel and the
// adaptive stepper into one runnable simulation. All coupling happens here:
// the numerical packages never import each other's state.
package disk

import (
	"context"
	"fmt"
	"math"

	"github.com/chengchen0102/dustpy/internal/boundary"
	"github.com/chengchen0102/dustpy/internal/cgs"
	"github.com/chengchen0102/dustpy/internal/config"
	"github.com/chengchen0102/dustpy/internal/dust"
	"github.com/chengchen0102/dustpy/internal/gas"
	"github.com/chengchen0102/dustpy/internal/grid"
	"github.com/chengchen0102/dustpy/internal/setup"
	"github.com/chengchen0102/dustpy/internal/sim"
)

// aIni is the largest particle radius populated by the initial dust
// distribution [cm].
const aIni = 1e-4

// Diagnostics are the read-only fields recomputed after every accepted step.
// They describe the accepted state and never feed back into the step that
// produced them.
type Diagnostics struct {
	GasVRad    []float64 // radial gas velocity at cell centers [cm/s]
	GasFlux    []float64 // gas mass flux through cell edges [g/s]
	DustStokes []float64 // Stokes numbers, flattened with stride Nm
	DustVRad   []float64 // dust radial drift velocities, same layout
}

// Simulation owns the full evolving disk state.
type Simulation struct {
	Cfg    *config.Config
	Grid   *grid.Radial
	Masses *grid.Mass

	GasField  *sim.Field
	DustField *sim.Field
	Stepper   *sim.Stepper
	Diag      Diagnostics

	solver  *gas.Solver
	builder *dust.Builder
	gasPar  gas.Params

	dustIn, dustOut boundary.Condition

	// Per-step coefficients, rebuilt in prepare from the committed state and
	// frozen across retries of the same step.
	bg     *gas.Background
	aero   *dust.Aero
	tensor *dust.RateTensor

	zeroNu []float64
	vEta   []float64
	col    []float64
}

// New builds a simulation from a validated configuration. The collision
// outcome arena is constructed here, so kernel mass-budget violations are
// reported before any stepping.
func New(cfg *config.Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mstar := cfg.Star.Mass * cgs.SolarMass
	g, err := grid.NewRadial(cfg.Grid.RInAU*cgs.AU, cfg.Grid.ROutAU*cgs.AU, cfg.Grid.NR, mstar)
	if err != nil {
		return nil, err
	}

	mMin := 4 * math.Pi / 3 * cfg.Grid.RhoS * math.Pow(cfg.Grid.AMin, 3)
	mMax := 4 * math.Pi / 3 * cfg.Grid.RhoS * math.Pow(cfg.Grid.AMax, 3)
	mg, err := grid.NewMass(mMin, mMax, cfg.Grid.NM, cfg.Grid.RhoS)
	if err != nil {
		return nil, err
	}

	minFragBin := 0
	for minFragBin < mg.N()-1 && mg.A[minFragBin] < cfg.Dust.AMinFrag {
		minFragBin++
	}
	builder, err := dust.NewBuilder(mg, dust.Params{
		VFrag:             cfg.Dust.VFrag,
		TransitionWidth:   cfg.Dust.TransitionWidth,
		FragExponent:      cfg.Dust.FragExponent,
		ErosionRatio:      cfg.Dust.ErosionRatio,
		ErosionExcavation: cfg.Dust.ErosionExcavation,
		BounceProb:        cfg.Dust.BounceProb,
		MinFragBin:        minFragBin,
		Sticking:          cfg.Dust.Sticking,
		Fragmentation:     cfg.Dust.Fragmentation,
		DensityThreshold:  10 * cfg.Dust.Floor,
	})
	if err != nil {
		return nil, err
	}

	gasIn, err := cfg.Gas.BCInner.Boundary()
	if err != nil {
		return nil, err
	}
	gasOut, err := cfg.Gas.BCOuter.Boundary()
	if err != nil {
		return nil, err
	}
	dustIn, err := cfg.Dust.BCInner.Boundary()
	if err != nil {
		return nil, err
	}
	dustOut, err := cfg.Dust.BCOuter.Boundary()
	if err != nil {
		return nil, err
	}

	sigmaGas := setup.GasProfile(g, cfg.Gas.MDisk*cgs.SolarMass, cfg.Gas.RC*cgs.AU, cfg.Gas.Floor)
	sigmaDust := setup.DustProfile(g, mg, sigmaGas, cfg.Dust.Dust2Gas, aIni, cfg.Dust.Floor)

	s := &Simulation{
		Cfg:       cfg,
		Grid:      g,
		Masses:    mg,
		GasField:  sim.NewField("gas", sigmaGas, cfg.Gas.Floor),
		DustField: sim.NewField("dust", sigmaDust, cfg.Dust.Floor),
		solver:    gas.NewSolver(g, gasIn, gasOut),
		builder:   builder,
		gasPar: gas.Params{
			Alpha:   cfg.Gas.Alpha,
			Mu:      cfg.Gas.Mu,
			LStar:   cfg.Star.Luminosity * cgs.SolarLum,
			FlareIr: cfg.Gas.FlareIr,
		},
		dustIn:  dustIn,
		dustOut: dustOut,
		zeroNu:  make([]float64, g.N()),
		vEta:    make([]float64, g.N()),
		col:     make([]float64, g.N()),
	}
	s.Diag = Diagnostics{
		GasVRad: make([]float64, g.N()),
		GasFlux: make([]float64, g.N()+1),
	}

	s.Stepper = sim.New(sim.Config{
		Tol:        cfg.Integration.Tol,
		InitDt:     cfg.Integration.InitDtYr * cgs.Year,
		MinDt:      cfg.Integration.MinDtYr * cgs.Year,
		MaxDt:      cfg.Integration.MaxDtYr * cgs.Year,
		MaxRetries: cfg.Integration.MaxRetries,
	})
	s.Stepper.Add(sim.NewExplicit(s.DustField, s.dustRHS))
	if cfg.Gas.Hydrodynamics {
		s.Stepper.Add(sim.NewImplicit(s.GasField, s.solver))
		s.Stepper.AddLimiter(func() float64 {
			return s.solver.StableDt(s.GasField.Data)
		})
	}
	s.Stepper.SetPrepare(s.prepare)
	s.Stepper.SetFinalize(s.finalize)

	// Populate coefficients and diagnostics for the initial state so
	// observers see consistent fields before the first step.
	if err := s.prepare(); err != nil {
		return nil, fmt.Errorf("disk: initial coefficients: %w", err)
	}
	s.finalize()
	return s, nil
}

// prepare recomputes every per-step coefficient set from the committed
// state: thermal background, aerodynamics, backreaction, relative velocities
// and the collision rate tensor. It runs once per step so rejected trials
// retry against identical coefficients.
func (s *Simulation) prepare() error {
	cfg := s.Cfg
	s.bg = gas.ComputeBackground(s.Grid, s.GasField.Data, s.gasPar)

	nu := s.bg.Nu
	if !cfg.Gas.Hydrodynamics {
		nu = s.zeroNu
	}
	s.solver.SetViscosity(nu)

	// Gas velocities from the previous step's diagnostics close the drag
	// coupling one step behind, keeping the step explicit in the coupling.
	s.aero = dust.ComputeAero(s.Grid, s.Masses, s.bg, cfg.Gas.Alpha, s.Diag.GasVRad)

	if cfg.Dust.Backreaction {
		a, b := dust.Backreaction(s.DustField.Data, s.GasField.Data, s.aero)
		for i := range s.vEta {
			s.vEta[i] = s.bg.Eta[i] * s.Grid.VKep(i)
		}
		s.solver.SetBackreaction(a, b, s.vEta)
	} else {
		s.solver.SetBackreaction(nil, nil, nil)
	}

	rv := dust.RelativeVelocities(s.Grid, s.Masses, s.bg, s.aero, cfg.Gas.Alpha, s.GasField.Data)
	s.tensor = s.builder.Build(s.Grid, s.aero, rv, s.DustField.Data)
	return nil
}

// dustRHS is the explicit right-hand side of the dust equation: the local
// Smoluchowski source at every radius plus radial transport.
func (s *Simulation) dustRHS(t float64, y, dydt []float64) {
	nm := s.Masses.N()
	for i := 0; i < s.Grid.N(); i++ {
		s.tensor.SourceRow(s.Masses, i, y[i*nm:(i+1)*nm], dydt[i*nm:(i+1)*nm])
	}
	dust.Transport(s.Grid, s.aero, y, s.GasField.Data, dydt)
}

// finalize enforces the dust boundary conditions on the accepted state and
// refreshes the diagnostic fields.
func (s *Simulation) finalize() {
	nr, nm := s.Grid.N(), s.Masses.N()

	for k := 0; k < nm; k++ {
		for i := 0; i < nr; i++ {
			s.col[i] = s.DustField.Data[i*nm+k]
		}
		s.dustIn.Apply(s.Grid, boundary.Inner, s.col)
		s.dustOut.Apply(s.Grid, boundary.Outer, s.col)
		s.DustField.Data[k] = math.Max(s.col[0], s.DustField.Floor)
		s.DustField.Data[(nr-1)*nm+k] = math.Max(s.col[nr-1], s.DustField.Floor)
	}

	vRad, flux := s.solver.Diagnose(s.GasField.Data)
	copy(s.Diag.GasVRad, vRad)
	copy(s.Diag.GasFlux, flux)
	s.Diag.DustStokes = s.aero.St
	s.Diag.DustVRad = s.aero.VRad
}

// Time returns the current simulated time in seconds.
func (s *Simulation) Time() float64 { return s.Stepper.Time() }

// TimeYr returns the current simulated time in years.
func (s *Simulation) TimeYr() float64 { return s.Stepper.Time() / cgs.Year }

// Step advances the simulation by one accepted step.
func (s *Simulation) Step() sim.Report { return s.Stepper.Step() }

// Run advances the simulation until the configured end time. onStep, if
// non-nil, is called after every accepted step; returning false stops the run
// cleanly. A fatal step aborts with its error.
func (s *Simulation) Run(ctx context.Context, onStep func(sim.Report) bool) error {
	tEnd := s.Cfg.Integration.TEndYr * cgs.Year
	for s.Stepper.Time() < tEnd {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rep := s.Stepper.Step()
		if rep.Status == sim.Fatal {
			return fmt.Errorf("disk: step at t = %.4g yr: %w", s.TimeYr(), rep.Err)
		}
		if onStep != nil && !onStep(rep) {
			return nil
		}
	}
	return nil
}

// SizeDistribution returns the dust surface density per mass bin summed over
// all radii, weighted by annulus area. Useful for plotting growth fronts.
func (s *Simulation) SizeDistribution() []float64 {
	nm := s.Masses.N()
	out := make([]float64, nm)
	for i := 0; i < s.Grid.N(); i++ {
		for k := 0; k < nm; k++ {
			out[k] += s.DustField.Data[i*nm+k] * s.Grid.Area[i]
		}
	}
	return out
}

// DustColumn returns the total dust surface density at every radius.
func (s *Simulation) DustColumn() []float64 {
	nr, nm := s.Grid.N(), s.Masses.N()
	out := make([]float64, nr)
	for i := 0; i < nr; i++ {
		for k := 0; k < nm; k++ {
			out[i] += s.DustField.Data[i*nm+k]
		}
	}
	return out
}
