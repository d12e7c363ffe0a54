// Package dust implements the two-dimensional (radius × particle mass) dust
// component: aerodynamic coupling to the gas, pairwise relative velocities,
// the collision kernel with its mass-conserving outcome partition, the
// Smoluchowski source term, and radial advection-diffusion transport.
//
// All per-step quantities (stopping times, velocities, the rate tensor) are
// recomputed from the previous accepted state each step and never persisted.
package dust

import (
	"math"

	"github.com/chengchen0102/dustpy/internal/gas"
	"github.com/chengchen0102/dustpy/internal/grid"
)

// Aero holds the per-radius, per-mass-bin aerodynamic quantities, flattened
// row-major with stride Nm.
type Aero struct {
	Nm   int
	St   []float64 // Stokes number
	VRad []float64 // radial drift velocity [cm/s]
	Diff []float64 // radial diffusivity [cm^2/s]
	Hd   []float64 // dust scale height [cm]
}

// ComputeAero evaluates stopping times (Epstein and Stokes I regimes), drift
// velocities, diffusivities and settled scale heights for the current gas
// state. gasVRad is the radial gas velocity from the previous step's
// diagnostics; it enters the drag-coupled drift term.
func ComputeAero(g *grid.Radial, mg *grid.Mass, bg *gas.Background, alpha float64, gasVRad []float64) *Aero {
	nr, nm := g.N(), mg.N()
	a := &Aero{
		Nm:   nm,
		St:   make([]float64, nr*nm),
		VRad: make([]float64, nr*nm),
		Diff: make([]float64, nr*nm),
		Hd:   make([]float64, nr*nm),
	}

	for i := 0; i < nr; i++ {
		vth := math.Sqrt(8/math.Pi) * bg.Cs[i]
		vEta := bg.Eta[i] * g.VKep(i)
		for k := 0; k < nm; k++ {
			rad := mg.A[k]
			var ts float64
			if rad < 2.25*bg.MFP[i] {
				ts = mg.RhoS * rad / (vth * bg.RhoMid[i]) // Epstein
			} else {
				ts = 4 * mg.RhoS * rad * rad / (9 * vth * bg.RhoMid[i] * bg.MFP[i]) // Stokes I
			}
			st := ts * g.OmegaK[i]
			p := i*nm + k

			a.St[p] = st
			a.VRad[p] = (gasVRad[i] - 2*vEta*st) / (1 + st*st)
			a.Diff[p] = bg.Nu[i] / (1 + st*st)
			settle := math.Sqrt(alpha / (math.Min(st, 0.5) * (1 + st*st)))
			a.Hd[p] = bg.Hp[i] * math.Min(1, settle)
		}
	}
	return a
}

// Backreaction computes the per-radius coefficients (A, B) that modify the
// gas advection term for the collective drag of the dust population.
// sigmaDust is the flattened dust state with stride nm. Without dust both
// coefficients reduce to (1, 0).
func Backreaction(sigmaDust, sigmaGas []float64, aero *Aero) (a, b []float64) {
	nm := aero.Nm
	nr := len(sigmaGas)
	a = make([]float64, nr)
	b = make([]float64, nr)

	for i := 0; i < nr; i++ {
		var x, y float64
		if sigmaGas[i] > 0 {
			for k := 0; k < nm; k++ {
				p := i*nm + k
				eps := sigmaDust[p] / sigmaGas[i]
				st2 := aero.St[p] * aero.St[p]
				x += eps / (1 + st2)
				y += eps * aero.St[p] / (1 + st2)
			}
		}
		denom := (1+x)*(1+x) + y*y
		a[i] = (1 + x) / denom
		b[i] = y / denom
	}
	return a, b
}
