package dust

import (
	"math"

	"github.com/chengchen0102/dustpy/internal/cgs"
	"github.com/chengchen0102/dustpy/internal/gas"
	"github.com/chengchen0102/dustpy/internal/grid"
)

// RelVel is the pairwise relative velocity field v[r,k,l], flattened with
// strides (Nm*Nm, Nm, 1). Symmetric in (k, l) by construction; recomputed
// every step and discarded.
type RelVel struct {
	Nm int
	V  []float64
}

// At returns v_rel between bins k and l at radius i.
func (rv *RelVel) At(i, k, l int) float64 {
	return rv.V[(i*rv.Nm+k)*rv.Nm+l]
}

// brownian is the thermal relative velocity of two particles of mass mi, mj.
func brownian(temp, mi, mj float64) float64 {
	return math.Sqrt(8 * cgs.Boltzmann * temp * (mi + mj) / (math.Pi * mi * mj))
}

// turbulent is the Ormel & Cuzzi closure for turbulence-induced relative
// motion, switching regimes on the larger Stokes number against the
// turnover time of the smallest eddies (1/sqrt(Re)) and the largest eddy
// (St = 1).
func turbulent(vg, re, st1, st2 float64) float64 {
	if st1 < st2 {
		st1, st2 = st2, st1
	}
	switch {
	case st1 < 1/math.Sqrt(re):
		return vg * math.Pow(re, 0.25) * math.Abs(st1-st2)
	case st1 < 1:
		return vg * math.Sqrt(3*st1)
	default:
		return vg * math.Sqrt(1/(1+st1)+1/(1+st2))
	}
}

// radialDrift is the difference of the drag-induced radial velocities.
func radialDrift(v1, v2 float64) float64 {
	return math.Abs(v1 - v2)
}

// azimuthalDrift is the difference of the sub-Keplerian azimuthal offsets.
func azimuthalDrift(vEta, st1, st2 float64) float64 {
	return vEta * math.Abs(1/(1+st1*st1)-1/(1+st2*st2))
}

// verticalSettling is the difference of the settling velocities evaluated at
// one scale height.
func verticalSettling(omega, h1, st1, h2, st2 float64) float64 {
	return omega * math.Abs(h1*math.Min(st1, 0.5)-h2*math.Min(st2, 0.5))
}

// RelativeVelocities combines the independent velocity sources in quadrature
// for every mass-bin pair at every radius.
func RelativeVelocities(g *grid.Radial, mg *grid.Mass, bg *gas.Background, aero *Aero, alpha float64, sigmaGas []float64) *RelVel {
	nr, nm := g.N(), mg.N()
	rv := &RelVel{Nm: nm, V: make([]float64, nr*nm*nm)}

	for i := 0; i < nr; i++ {
		vg := math.Sqrt(alpha) * bg.Cs[i]
		re := alpha * sigmaGas[i] * cgs.SigmaH2 / (2 * cgs.MuGas * cgs.ProtonMass)
		if re < 1 {
			re = 1
		}
		vEta := bg.Eta[i] * g.VKep(i)

		for k := 0; k < nm; k++ {
			pk := i*nm + k
			for l := k; l < nm; l++ {
				pl := i*nm + l

				vb := brownian(bg.T[i], mg.M[k], mg.M[l])
				vt := turbulent(vg, re, aero.St[pk], aero.St[pl])
				vr := radialDrift(aero.VRad[pk], aero.VRad[pl])
				va := azimuthalDrift(vEta, aero.St[pk], aero.St[pl])
				vs := verticalSettling(g.OmegaK[i], aero.Hd[pk], aero.St[pk], aero.Hd[pl], aero.St[pl])

				v := math.Sqrt(vb*vb + vt*vt + vr*vr + va*va + vs*vs)
				rv.V[(i*nm+k)*nm+l] = v
				rv.V[(i*nm+l)*nm+k] = v
			}
		}
	}
	return rv
}
