// Package setup builds the initial surface-density profiles handed to the
// core. It is the external initializer the solvers assume: the core treats
// its outputs as opaque arrays with the documented invariants.
package setup

import (
	"math"

	"github.com/chengchen0102/dustpy/internal/grid"
)

// GasProfile returns the self-similar Lynden-Bell & Pringle profile for a
// viscosity scaling linearly with radius,
//
//	Sigma(r) = Mdisk / (2 pi rc r) * exp(-r/rc),
//
// floored to the given value. mdisk is in grams, rc in centimeters.
func GasProfile(g *grid.Radial, mdisk, rc, floor float64) []float64 {
	sigma := make([]float64, g.N())
	for i, r := range g.R {
		sigma[i] = math.Max(mdisk/(2*math.Pi*rc*r)*math.Exp(-r/rc), floor)
	}
	return sigma
}

// DustProfile seeds dust at a fixed dust-to-gas ratio into the small-grain
// bins up to radius aIni, MRN-weighted (mass per logarithmic bin ∝ a^1/2),
// with every other bin at the floor. The result is flattened row-major with
// stride mg.N().
func DustProfile(g *grid.Radial, mg *grid.Mass, sigmaGas []float64, d2g, aIni, floor float64) []float64 {
	nr, nm := g.N(), mg.N()

	weights := make([]float64, nm)
	var norm float64
	for k := 0; k < nm; k++ {
		if mg.A[k] <= aIni {
			weights[k] = math.Sqrt(mg.A[k] / aIni)
			norm += weights[k]
		}
	}
	if norm == 0 {
		weights[0] = 1
		norm = 1
	}

	sigma := make([]float64, nr*nm)
	for i := 0; i < nr; i++ {
		total := d2g * sigmaGas[i]
		for k := 0; k < nm; k++ {
			sigma[i*nm+k] = math.Max(total*weights[k]/norm, floor)
		}
	}
	return sigma
}
