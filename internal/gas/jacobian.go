package gas

import (
	"math"

	"github.com/chengchen0102/dustpy/internal/boundary"
	"github.com/chengchen0102/dustpy/internal/grid"
	"github.com/chengchen0102/dustpy/internal/integrators"
)

// Solver assembles the tri-diagonal operator of the gas surface-density
// equation and performs the implicit update. The interior rows encode
// viscous spreading, optionally modified by dust backreaction; the first and
// last rows are owned by the attached boundary conditions and encode boundary
// algebra, not physics.
//
// Disabling hydrodynamics means zeroing the viscosity before assembly, not
// zeroing velocities afterwards: the diagnostic fields recomputed after a
// solve never feed back into the same step.
type Solver struct {
	g            *grid.Radial
	Inner, Outer boundary.Condition

	// SExt is an optional external source term added to the implicit
	// right-hand side. Nil means zero.
	SExt []float64

	nu           []float64
	backA, backB []float64 // nil means A=1, B=0
	vEta         []float64 // eta * vKep per cell, used by the backreaction term
}

// NewSolver creates a gas solver with the given boundary closures attached.
func NewSolver(g *grid.Radial, inner, outer boundary.Condition) *Solver {
	return &Solver{g: g, Inner: inner, Outer: outer}
}

// SetViscosity installs the per-cell kinematic viscosity used by the next
// assembly. A zero profile turns the interior physics off entirely.
func (s *Solver) SetViscosity(nu []float64) { s.nu = nu }

// SetBackreaction installs the dust backreaction coefficients A, B and the
// maximum drift speed profile eta*vKep. Passing nils restores pure viscous
// evolution.
func (s *Solver) SetBackreaction(a, b, vEta []float64) {
	s.backA, s.backB, s.vEta = a, b, vEta
}

// edgeCoefficients returns, for interior edge e (between cells e-1 and e),
// the linear weights cl, cr such that the radius-weighted mass flux through
// the edge is G_e = cl*Sigma[e-1] - cr*Sigma[e].
func (s *Solver) edgeCoefficients(e int) (cl, cr float64) {
	g := s.g
	dr := g.R[e] - g.R[e-1]
	sre := math.Sqrt(g.RE[e])

	aEdge := 1.0
	if s.backA != nil {
		aEdge = 0.5 * (s.backA[e-1] + s.backA[e])
	}
	cl = 3 * aEdge * sre * s.nu[e-1] * math.Sqrt(g.R[e-1]) / dr
	cr = 3 * aEdge * sre * s.nu[e] * math.Sqrt(g.R[e]) / dr

	if s.backB != nil {
		vb := 0.5 * (2*s.backB[e-1]*s.vEta[e-1] + 2*s.backB[e]*s.vEta[e])
		if vb >= 0 {
			cl += g.RE[e] * vb
		} else {
			cr += -g.RE[e] * vb
		}
	}
	return cl, cr
}

// Jacobian is the assembled gas transport operator. J holds the interior
// physics rows with the first and last rows zeroed; the boundary constraint
// rows and their right-hand sides are kept separately because they combine
// with dt only at solve time.
type Jacobian struct {
	J             *integrators.Tridiagonal
	RowIn, RowOut [3]float64
	RHSIn, RHSOut float64
}

// Assemble builds the operator for the current coefficient set. Interior row
// i couples only cells i-1, i, i+1.
func (s *Solver) Assemble() *Jacobian {
	g := s.g
	n := g.N()
	jac := &Jacobian{J: integrators.NewTridiagonal(n)}

	for i := 1; i < n-1; i++ {
		clm, crm := s.edgeCoefficients(i)
		clp, crp := s.edgeCoefficients(i + 1)
		w := 2 / (g.RE[i+1]*g.RE[i+1] - g.RE[i]*g.RE[i])

		jac.J.Lower[i] = w * clm
		jac.J.Diag[i] = -w * (clp + crm)
		jac.J.Upper[i] = w * crp
	}

	jac.RowIn, jac.RHSIn = s.Inner.Row(g, boundary.Inner)
	jac.RowOut, jac.RHSOut = s.Outer.Row(g, boundary.Outer)
	return jac
}

// System implements integrators.ImplicitOperator: it composes
// (I - dt*J) x = y + dt*SExt for the interior rows and substitutes the raw
// boundary constraint rows for the first and last equations.
func (s *Solver) System(y []float64, t, dt float64) (*integrators.Tridiagonal, []float64, error) {
	jac := s.Assemble()
	n := s.g.N()

	m := integrators.NewTridiagonal(n)
	rhs := make([]float64, n)
	for i := 1; i < n-1; i++ {
		m.Lower[i] = -dt * jac.J.Lower[i]
		m.Diag[i] = 1 - dt*jac.J.Diag[i]
		m.Upper[i] = -dt * jac.J.Upper[i]
		rhs[i] = y[i]
		if s.SExt != nil {
			rhs[i] += dt * s.SExt[i]
		}
	}

	m.Diag[0] = jac.RowIn[0]
	m.Upper[0] = jac.RowIn[1]
	m.FirstExtra = jac.RowIn[2]
	rhs[0] = jac.RHSIn

	m.Diag[n-1] = jac.RowOut[0]
	m.Lower[n-1] = jac.RowOut[1]
	m.LastExtra = jac.RowOut[2]
	rhs[n-1] = jac.RHSOut

	return m, rhs, nil
}

// StableDt suggests a time-step ceiling keeping the relative gas change per
// step below ten percent of the local surface density. The implicit scheme is
// unconditionally stable; this bound preserves accuracy of the first-order
// update.
func (s *Solver) StableDt(sigma []float64) float64 {
	jac := s.Assemble()
	rate := jac.J.Mul(sigma)
	dt := math.Inf(1)
	for i := 1; i < len(sigma)-1; i++ {
		if rate[i] == 0 || sigma[i] <= 0 {
			continue
		}
		lim := 0.1 * sigma[i] / math.Abs(rate[i])
		if lim < dt {
			dt = lim
		}
	}
	return dt
}

// Diagnose recomputes the radial gas velocity at cell centers and the mass
// flux through interior edges from the given (post-solve) surface density.
// These fields are read-only outputs for coupling and plotting.
func (s *Solver) Diagnose(sigma []float64) (vRad, fluxEdge []float64) {
	g := s.g
	n := g.N()
	vRad = make([]float64, n)
	fluxEdge = make([]float64, n+1)

	vEdge := make([]float64, n+1)
	for e := 1; e < n; e++ {
		cl, cr := s.edgeCoefficients(e)
		ge := cl*sigma[e-1] - cr*sigma[e]
		sigEdge := 0.5 * (sigma[e-1] + sigma[e])
		if sigEdge > 0 {
			vEdge[e] = ge / (g.RE[e] * sigEdge)
		}
		fluxEdge[e] = 2 * math.Pi * ge
	}
	for i := 0; i < n; i++ {
		vRad[i] = 0.5 * (vEdge[i] + vEdge[i+1])
	}
	vRad[0] = vEdge[1]
	vRad[n-1] = vEdge[n-1]
	return vRad, fluxEdge
}
