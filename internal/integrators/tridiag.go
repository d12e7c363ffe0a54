package integrators

import (
	"fmt"
	"math"
)

// Tridiagonal is a tri-diagonal system matrix with three bands. The first and
// last rows may carry one extra off-band entry (FirstExtra on column 2,
// LastExtra on column n-3) so that boundary rows built from three
// edge-adjacent points fit; those entries are eliminated algebraically before
// the Thomas sweep.
type Tridiagonal struct {
	Lower []float64 // Lower[i] multiplies x[i-1]; Lower[0] unused
	Diag  []float64
	Upper []float64 // Upper[i] multiplies x[i+1]; Upper[n-1] unused

	FirstExtra float64
	LastExtra  float64
}

// NewTridiagonal allocates an n x n system with zeroed bands.
func NewTridiagonal(n int) *Tridiagonal {
	return &Tridiagonal{
		Lower: make([]float64, n),
		Diag:  make([]float64, n),
		Upper: make([]float64, n),
	}
}

// N returns the system dimension.
func (m *Tridiagonal) N() int { return len(m.Diag) }

// Mul computes y = M x, including the boundary extra entries.
func (m *Tridiagonal) Mul(x []float64) []float64 {
	n := m.N()
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		v := m.Diag[i] * x[i]
		if i > 0 {
			v += m.Lower[i] * x[i-1]
		}
		if i < n-1 {
			v += m.Upper[i] * x[i+1]
		}
		y[i] = v
	}
	if n > 2 {
		y[0] += m.FirstExtra * x[2]
		y[n-1] += m.LastExtra * x[n-3]
	}
	return y
}

// Solve solves M x = b by forward elimination and back substitution. The
// matrix bands and b are left untouched. A vanishing pivot reports a singular
// system with the offending row.
func (m *Tridiagonal) Solve(b []float64) ([]float64, error) {
	n := m.N()
	if len(b) != n {
		return nil, fmt.Errorf("tridiag: rhs length %d does not match system size %d", len(b), n)
	}

	lo := append([]float64(nil), m.Lower...)
	di := append([]float64(nil), m.Diag...)
	up := append([]float64(nil), m.Upper...)
	rhs := append([]float64(nil), b...)

	// Fold the off-band boundary entries into the tri-diagonal pattern using
	// the adjacent interior row.
	if m.FirstExtra != 0 {
		switch {
		case up[1] != 0:
			f := m.FirstExtra / up[1]
			di[0] -= f * lo[1]
			up[0] -= f * di[1]
			rhs[0] -= f * rhs[1]
		case lo[2] == 0 && up[2] == 0 && di[2] != 0:
			// Row 2 is diagonal-only, e.g. a decoupled interior. It removes
			// the corner without introducing fill.
			f := m.FirstExtra / di[2]
			rhs[0] -= f * rhs[2]
		default:
			return nil, fmt.Errorf("tridiag: cannot eliminate first-row corner, zero pivot in row 1")
		}
	}
	if m.LastExtra != 0 {
		switch {
		case lo[n-2] != 0:
			f := m.LastExtra / lo[n-2]
			di[n-1] -= f * up[n-2]
			lo[n-1] -= f * di[n-2]
			rhs[n-1] -= f * rhs[n-2]
		case lo[n-3] == 0 && up[n-3] == 0 && di[n-3] != 0:
			f := m.LastExtra / di[n-3]
			rhs[n-1] -= f * rhs[n-3]
		default:
			return nil, fmt.Errorf("tridiag: cannot eliminate last-row corner, zero pivot in row %d", n-2)
		}
	}

	// Thomas algorithm.
	for i := 1; i < n; i++ {
		piv := di[i-1]
		if piv == 0 || math.IsNaN(piv) {
			return nil, fmt.Errorf("tridiag: singular system, zero pivot at row %d", i-1)
		}
		f := lo[i] / piv
		di[i] -= f * up[i-1]
		rhs[i] -= f * rhs[i-1]
	}
	if di[n-1] == 0 || math.IsNaN(di[n-1]) {
		return nil, fmt.Errorf("tridiag: singular system, zero pivot at row %d", n-1)
	}

	x := make([]float64, n)
	x[n-1] = rhs[n-1] / di[n-1]
	for i := n - 2; i >= 0; i-- {
		x[i] = (rhs[i] - up[i]*x[i+1]) / di[i]
	}
	return x, nil
}
