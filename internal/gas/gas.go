// Package gas models the one-dimensional viscous evolution of the gas
// surface density: the midplane thermal background derived from stellar
// irradiation, the tri-diagonal transport operator, and the implicit
// backward-Euler update with swappable boundary closures.
package gas

import (
	"math"

	"github.com/chengchen0102/dustpy/internal/cgs"
	"github.com/chengchen0102/dustpy/internal/grid"
)

// Params are the scalar gas physics parameters. They are immutable during a
// run.
type Params struct {
	Alpha   float64 // turbulent viscosity parameter
	Mu      float64 // mean molecular weight [proton masses]
	LStar   float64 // stellar luminosity [erg/s]
	FlareIr float64 // fraction of stellar irradiation absorbed by the disk surface
}

// Background holds the per-radius midplane quantities derived from the
// current gas surface density. It is recomputed every step and never
// persisted.
type Background struct {
	T      []float64 // midplane temperature [K]
	Cs     []float64 // isothermal sound speed [cm/s]
	Hp     []float64 // pressure scale height [cm]
	Nu     []float64 // kinematic viscosity [cm^2/s]
	RhoMid []float64 // midplane mass density [g/cm^3]
	MFP    []float64 // gas mean free path [cm]
	Eta    []float64 // pressure-gradient parameter (dimensionless)
}

// ComputeBackground evaluates the thermal and density structure for the
// given surface density profile. The temperature follows a passively
// irradiated disk, T ∝ r^-1/2, which makes the viscosity scale linearly
// with radius.
func ComputeBackground(g *grid.Radial, sigma []float64, p Params) *Background {
	n := g.N()
	bg := &Background{
		T:      make([]float64, n),
		Cs:     make([]float64, n),
		Hp:     make([]float64, n),
		Nu:     make([]float64, n),
		RhoMid: make([]float64, n),
		MFP:    make([]float64, n),
		Eta:    make([]float64, n),
	}

	lnP := make([]float64, n)
	for i := 0; i < n; i++ {
		r := g.R[i]
		bg.T[i] = math.Pow(p.FlareIr*p.LStar/(8*math.Pi*cgs.StefBoltz*r*r), 0.25)
		bg.Cs[i] = math.Sqrt(cgs.Boltzmann * bg.T[i] / (p.Mu * cgs.ProtonMass))
		bg.Hp[i] = bg.Cs[i] / g.OmegaK[i]
		bg.Nu[i] = p.Alpha * bg.Cs[i] * bg.Hp[i]
		bg.RhoMid[i] = sigma[i] / (math.Sqrt(2*math.Pi) * bg.Hp[i])
		bg.MFP[i] = 0.5 * p.Mu * cgs.ProtonMass / (bg.RhoMid[i] * cgs.SigmaH2)
		lnP[i] = math.Log(bg.RhoMid[i] * bg.Cs[i] * bg.Cs[i])
	}

	// eta = -1/2 (Hp/r)^2 dlnP/dlnr, centered in log radius.
	for i := 0; i < n; i++ {
		var dlnP float64
		switch i {
		case 0:
			dlnP = (lnP[1] - lnP[0]) / math.Log(g.R[1]/g.R[0])
		case n - 1:
			dlnP = (lnP[n-1] - lnP[n-2]) / math.Log(g.R[n-1]/g.R[n-2])
		default:
			dlnP = (lnP[i+1] - lnP[i-1]) / math.Log(g.R[i+1]/g.R[i-1])
		}
		h := bg.Hp[i] / g.R[i]
		bg.Eta[i] = -0.5 * h * h * dlnP
	}
	return bg
}
