// Package grid provides the immutable radial and mass discretizations that
// every other component borrows. Grids are validated once at construction and
// never mutated afterwards.
package grid

import (
	"fmt"
	"math"

	"github.com/chengchen0102/dustpy/internal/cgs"
)

// Radial is a logarithmically spaced 1-D radial grid. R holds the cell
// centers, RE the cell edges (len(R)+1), Area the annulus area of each cell
// and OmegaK the Keplerian orbital frequency at each cell center.
type Radial struct {
	R      []float64
	RE     []float64
	Area   []float64
	OmegaK []float64
	Mstar  float64
}

// NewRadial builds a log-spaced radial grid from rIn to rOut (cell edges, cm)
// with n cells around a star of mass mstar (g). Cell centers sit at the
// geometric mean of their edges.
func NewRadial(rIn, rOut float64, n int, mstar float64) (*Radial, error) {
	if n < 3 {
		return nil, fmt.Errorf("grid: need at least 3 radial cells, got %d", n)
	}
	if rIn <= 0 || rOut <= rIn {
		return nil, fmt.Errorf("grid: invalid radial extent [%g, %g]", rIn, rOut)
	}
	if mstar <= 0 {
		return nil, fmt.Errorf("grid: stellar mass must be positive, got %g", mstar)
	}

	g := &Radial{
		R:      make([]float64, n),
		RE:     make([]float64, n+1),
		Area:   make([]float64, n),
		OmegaK: make([]float64, n),
		Mstar:  mstar,
	}

	step := math.Log(rOut/rIn) / float64(n)
	for i := 0; i <= n; i++ {
		g.RE[i] = rIn * math.Exp(float64(i)*step)
	}
	g.RE[n] = rOut
	for i := 0; i < n; i++ {
		g.R[i] = math.Sqrt(g.RE[i] * g.RE[i+1])
		g.Area[i] = math.Pi * (g.RE[i+1]*g.RE[i+1] - g.RE[i]*g.RE[i])
		g.OmegaK[i] = math.Sqrt(cgs.GravConst * mstar / (g.R[i] * g.R[i] * g.R[i]))
	}

	if err := checkMonotonic(g.R, "radial centers"); err != nil {
		return nil, err
	}
	if err := checkMonotonic(g.RE, "radial edges"); err != nil {
		return nil, err
	}
	return g, nil
}

// N returns the number of radial cells.
func (g *Radial) N() int { return len(g.R) }

// VKep returns the Keplerian orbital velocity at cell i.
func (g *Radial) VKep(i int) float64 { return g.OmegaK[i] * g.R[i] }

// Mass is a geometrically spaced particle mass grid. M holds the bin masses,
// A the representative particle radii for a material density RhoS. Xi is the
// constant bin-to-bin mass ratio.
type Mass struct {
	M    []float64
	A    []float64
	RhoS float64
	Xi   float64
}

// NewMass builds a geometric mass grid from mMin to mMax (g) with n bins.
// rhoS is the particle material density (g cm^-3).
func NewMass(mMin, mMax float64, n int, rhoS float64) (*Mass, error) {
	if n < 2 {
		return nil, fmt.Errorf("grid: need at least 2 mass bins, got %d", n)
	}
	if mMin <= 0 || mMax <= mMin {
		return nil, fmt.Errorf("grid: invalid mass extent [%g, %g]", mMin, mMax)
	}
	if rhoS <= 0 {
		return nil, fmt.Errorf("grid: material density must be positive, got %g", rhoS)
	}

	m := &Mass{
		M:    make([]float64, n),
		A:    make([]float64, n),
		RhoS: rhoS,
		Xi:   math.Pow(mMax/mMin, 1/float64(n-1)),
	}
	step := math.Log(mMax/mMin) / float64(n-1)
	for k := 0; k < n; k++ {
		m.M[k] = mMin * math.Exp(float64(k)*step)
		m.A[k] = math.Cbrt(3 * m.M[k] / (4 * math.Pi * rhoS))
	}
	m.M[n-1] = mMax

	if err := checkMonotonic(m.M, "mass bins"); err != nil {
		return nil, err
	}
	return m, nil
}

// N returns the number of mass bins.
func (m *Mass) N() int { return len(m.M) }

// Locate returns the largest bin index k with M[k] <= mass. A mass exactly on
// a bin value belongs to that bin. Masses below the grid map to bin 0, masses
// above the grid to the last bin.
func (m *Mass) Locate(mass float64) int {
	n := len(m.M)
	if mass <= m.M[0] {
		return 0
	}
	if mass >= m.M[n-1] {
		return n - 1
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if m.M[mid] <= mass {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

func checkMonotonic(x []float64, what string) error {
	for i := 1; i < len(x); i++ {
		if !(x[i] > x[i-1]) || math.IsNaN(x[i]) {
			return fmt.Errorf("grid: %s not strictly increasing at index %d", what, i)
		}
	}
	return nil
}
