// Package metrics provides run observers: scalar summaries sampled after
// every accepted step. Observers never mutate the simulation.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/chengchen0102/dustpy/internal/disk"
	"github.com/chengchen0102/dustpy/internal/sim"
)

// Observer is one scalar run summary.
type Observer interface {
	Name() string
	Observe(s *disk.Simulation, rep sim.Report)
	Value() float64
	Reset()
}

// GasMass tracks the current total gas mass [g].
type GasMass struct {
	mass float64
}

func NewGasMass() *GasMass { return &GasMass{} }

func (m *GasMass) Name() string { return "gas_mass" }

func (m *GasMass) Observe(s *disk.Simulation, rep sim.Report) {
	m.mass = floats.Dot(s.Grid.Area, s.GasField.Data)
}

func (m *GasMass) Value() float64 { return m.mass }
func (m *GasMass) Reset()         { m.mass = 0 }

// DustMass tracks the current total dust mass [g], summed over all bins.
type DustMass struct {
	mass float64
}

func NewDustMass() *DustMass { return &DustMass{} }

func (m *DustMass) Name() string { return "dust_mass" }

func (m *DustMass) Observe(s *disk.Simulation, rep sim.Report) {
	m.mass = floats.Dot(s.Grid.Area, s.DustColumn())
}

func (m *DustMass) Value() float64 { return m.mass }
func (m *DustMass) Reset()         { m.mass = 0 }

// DustMassDrift tracks the largest relative deviation of the total dust mass
// from its first observed value. With transport and boundary losses disabled
// it measures how well the collision kernel conserves mass in practice.
type DustMassDrift struct {
	initial  float64
	maxDrift float64
	samples  int
}

func NewDustMassDrift() *DustMassDrift { return &DustMassDrift{} }

func (m *DustMassDrift) Name() string { return "dust_mass_drift" }

func (m *DustMassDrift) Observe(s *disk.Simulation, rep sim.Report) {
	mass := floats.Dot(s.Grid.Area, s.DustColumn())
	if m.samples == 0 {
		m.initial = mass
	}
	m.samples++
	if m.initial != 0 {
		drift := math.Abs(mass-m.initial) / math.Abs(m.initial)
		m.maxDrift = math.Max(m.maxDrift, drift)
	}
}

func (m *DustMassDrift) Value() float64 { return m.maxDrift }

func (m *DustMassDrift) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}

// Accretion accumulates the gas mass carried through the innermost interior
// edge [g]. Positive means mass lost to the star.
type Accretion struct {
	total float64
}

func NewAccretion() *Accretion { return &Accretion{} }

func (m *Accretion) Name() string { return "accreted_mass" }

func (m *Accretion) Observe(s *disk.Simulation, rep sim.Report) {
	if rep.Status != sim.Accepted {
		return
	}
	m.total += -s.Diag.GasFlux[1] * rep.Dt
}

func (m *Accretion) Value() float64 { return m.total }
func (m *Accretion) Reset()         { m.total = 0 }

// Retries counts the truncation-error rejections across the whole run.
type Retries struct {
	total int
}

func NewRetries() *Retries { return &Retries{} }

func (m *Retries) Name() string { return "retries" }

func (m *Retries) Observe(s *disk.Simulation, rep sim.Report) {
	m.total += rep.Retries
}

func (m *Retries) Value() float64 { return float64(m.total) }
func (m *Retries) Reset()         { m.total = 0 }

// Collect runs every observer against the current state and returns the
// name-to-value map, the shape stored in run metadata.
func Collect(obs []Observer, s *disk.Simulation, rep sim.Report) map[string]float64 {
	out := make(map[string]float64, len(obs))
	for _, o := range obs {
		o.Observe(s, rep)
		out[o.Name()] = o.Value()
	}
	return out
}
