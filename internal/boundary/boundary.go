// Package boundary implements the closed set of boundary-condition policies
// shared by the gas and dust solvers. A condition is a tag plus one scalar
// parameter; it is attached independently to the inner and outer edge of a
// field.
//
// A condition has two forms: Row produces the constraint row used to
// overwrite the first or last row of the implicit gas operator, and Apply
// enforces the condition directly on an explicitly integrated field. The
// constraint rows carry no time-step factor; the implicit solver combines
// them with dt at solve time.
package boundary

import (
	"fmt"
	"math"

	"github.com/chengchen0102/dustpy/internal/grid"
)

// Kind tags the boundary-condition variant.
type Kind int

const (
	// ConstantValue pins the edge cell to the parameter value.
	ConstantValue Kind = iota
	// ConstantGradient linearly extrapolates the edge cell from the two
	// adjacent interior cells. The parameter is unused.
	ConstantGradient
	// PowerLaw extrapolates the edge cell as a power law in radius with the
	// parameter as exponent.
	PowerLaw
	// Floor pins the edge cell to the field floor given as parameter.
	Floor
)

var kindNames = map[string]Kind{
	"value":    ConstantValue,
	"gradient": ConstantGradient,
	"powerlaw": PowerLaw,
	"floor":    Floor,
}

// ParseKind resolves a configuration tag to a Kind. Unknown tags are a
// configuration error and must be reported before stepping begins.
func ParseKind(s string) (Kind, error) {
	k, ok := kindNames[s]
	if !ok {
		return 0, fmt.Errorf("boundary: unknown condition tag %q", s)
	}
	return k, nil
}

func (k Kind) String() string {
	switch k {
	case ConstantValue:
		return "value"
	case ConstantGradient:
		return "gradient"
	case PowerLaw:
		return "powerlaw"
	case Floor:
		return "floor"
	}
	return "unknown"
}

// Edge selects which end of the radial grid a condition is attached to.
type Edge int

const (
	Inner Edge = iota
	Outer
)

// Condition is one boundary policy instance. It is stateless beyond its
// parameter.
type Condition struct {
	Kind  Kind
	Value float64
}

// Row returns the constraint row over the three edge-adjacent cells, ordered
// from the edge inward, together with its right-hand side. The row encodes
// row · x = rhs for the new-time solution and replaces the physics row of the
// implicit operator.
func (c Condition) Row(g *grid.Radial, e Edge) (row [3]float64, rhs float64) {
	r0, r1, r2 := edgeRadii(g, e)
	switch c.Kind {
	case ConstantValue:
		return [3]float64{1, 0, 0}, c.Value
	case Floor:
		return [3]float64{1, 0, 0}, c.Value
	case PowerLaw:
		return [3]float64{1, -math.Pow(r0/r1, c.Value), 0}, 0
	case ConstantGradient:
		// x0 = x1 + (x1-x2)*(r1-r0)/(r2-r1), written as a homogeneous row.
		k := (r1 - r0) / (r2 - r1)
		return [3]float64{1, -(1 + k), k}, 0
	}
	return [3]float64{1, 0, 0}, 0
}

// Apply enforces the condition on the edge cell of an explicitly integrated
// radial profile.
func (c Condition) Apply(g *grid.Radial, e Edge, f []float64) {
	i0, i1, i2 := edgeIndices(g, e)
	r0, r1, r2 := edgeRadii(g, e)
	switch c.Kind {
	case ConstantValue, Floor:
		f[i0] = c.Value
	case PowerLaw:
		f[i0] = f[i1] * math.Pow(r0/r1, c.Value)
	case ConstantGradient:
		k := (r1 - r0) / (r2 - r1)
		f[i0] = (1+k)*f[i1] - k*f[i2]
	}
}

func edgeIndices(g *grid.Radial, e Edge) (int, int, int) {
	if e == Inner {
		return 0, 1, 2
	}
	n := g.N()
	return n - 1, n - 2, n - 3
}

func edgeRadii(g *grid.Radial, e Edge) (float64, float64, float64) {
	i0, i1, i2 := edgeIndices(g, e)
	return g.R[i0], g.R[i1], g.R[i2]
}
