package dust

import "github.com/chengchen0102/dustpy/internal/grid"

// Transport accumulates the radial advection-diffusion rate for every mass
// bin into out (flattened, stride aero.Nm). Advective fluxes are upwinded by
// the sign of the interface drift velocity; diffusive fluxes act on the
// dust-to-gas ratio gradient scaled by the gas diffusivity. Boundary cells
// are left at zero rate: their values are governed by the attached boundary
// condition, not the interior stencil.
func Transport(g *grid.Radial, aero *Aero, y, sigmaGas, out []float64) {
	nr, nm := g.N(), aero.Nm

	for k := 0; k < nm; k++ {
		var gPrev, gCur float64 // radius-weighted edge fluxes

		for i := 1; i < nr; i++ {
			pl, pr := (i-1)*nm+k, i*nm+k

			v := 0.5 * (aero.VRad[pl] + aero.VRad[pr])
			var adv float64
			if v >= 0 {
				adv = v * y[pl]
			} else {
				adv = v * y[pr]
			}

			d := 0.5 * (aero.Diff[pl] + aero.Diff[pr])
			sigE := 0.5 * (sigmaGas[i-1] + sigmaGas[i])
			var grad float64
			if sigmaGas[i-1] > 0 && sigmaGas[i] > 0 {
				grad = (y[pr]/sigmaGas[i] - y[pl]/sigmaGas[i-1]) / (g.R[i] - g.R[i-1])
			}
			diff := -d * sigE * grad

			gCur = g.RE[i] * (adv + diff)
			if i > 1 {
				w := 2 / (g.RE[i]*g.RE[i] - g.RE[i-1]*g.RE[i-1])
				out[(i-1)*nm+k] += -w * (gCur - gPrev)
			}
			gPrev = gCur
		}
	}
}
