package dust

import (
	"fmt"
	"math"

	"github.com/chengchen0102/dustpy/internal/grid"
)

// Params are the collision physics parameters. They are immutable during a
// run; the fragment power-law exponent and minimum fragment bin are tunable
// physics constants, not structural requirements.
type Params struct {
	VFrag             float64 // fragmentation velocity threshold [cm/s]
	TransitionWidth   float64 // width of the stick/fragment transition, as a fraction of VFrag
	FragExponent      float64 // xi in the fragment distribution n(m) dm ∝ m^-xi dm
	ErosionRatio      float64 // mass ratio above which the cratering branch applies
	ErosionExcavation float64 // excavated target mass in units of the projectile mass
	BounceProb        float64 // share of non-fragmenting collisions that bounce
	MinFragBin        int     // smallest bin fragments can populate

	Sticking      bool
	Fragmentation bool

	// DensityThreshold: bins below this surface density are treated as empty
	// when pairing. ConservationTol is the relative mass budget tolerance per
	// collision event.
	DensityThreshold float64
	ConservationTol  float64
}

// OutcomeKind tags what a collision does with the involved mass.
type OutcomeKind int

const (
	Stick OutcomeKind = iota
	Fragment
	Erode
	Bounce
)

func (k OutcomeKind) String() string {
	switch k {
	case Stick:
		return "stick"
	case Fragment:
		return "fragment"
	case Erode:
		return "erode"
	case Bounce:
		return "bounce"
	}
	return "unknown"
}

// Channel routes a fraction of the total colliding mass into a target bin.
type Channel struct {
	Bin  int
	Frac float64
}

// WeightedOutcome is one collision branch with its probability and mass
// redistribution.
type WeightedOutcome struct {
	Kind     OutcomeKind
	Prob     float64
	Channels []Channel
}

// pairTemplate holds the velocity-independent part of a pair's outcome: the
// geometric cross section and the mass redistributions of each branch. The
// redistributions depend only on the colliding masses and are computed once.
type pairTemplate struct {
	crossSection float64
	stick        []Channel
	frag         []Channel
	fragKind     OutcomeKind
	bounce       []Channel
}

// Builder constructs the collision rate tensor. Outcome templates for all
// unordered bin pairs are precomputed and their mass budgets verified at
// construction, so kernel bugs surface at initialization rather than
// mid-run.
type Builder struct {
	mg        *grid.Mass
	p         Params
	templates []pairTemplate
}

// NewBuilder precomputes the outcome arena. The per-event mass conservation
// invariant is checked for every pair and branch; a violation is a
// construction error, never silently clamped.
func NewBuilder(mg *grid.Mass, p Params) (*Builder, error) {
	if p.ConservationTol <= 0 {
		p.ConservationTol = 1e-12
	}
	nm := mg.N()
	if p.MinFragBin < 0 || p.MinFragBin >= nm {
		return nil, fmt.Errorf("dust: minimum fragment bin %d outside grid [0, %d)", p.MinFragBin, nm)
	}

	b := &Builder{mg: mg, p: p, templates: make([]pairTemplate, nm*(nm+1)/2)}
	for i := 0; i < nm; i++ {
		for j := i; j < nm; j++ {
			tpl, err := b.buildTemplate(i, j)
			if err != nil {
				return nil, err
			}
			b.templates[b.pairIndex(i, j)] = tpl
		}
	}
	return b, nil
}

// pairIndex maps the unordered pair (i, j), i <= j, into the flat arena.
func (b *Builder) pairIndex(i, j int) int {
	nm := b.mg.N()
	return i*nm - i*(i-1)/2 + (j - i)
}

func (b *Builder) buildTemplate(i, j int) (pairTemplate, error) {
	mg := b.mg
	mi, mj := mg.M[i], mg.M[j]
	mtot := mi + mj
	sum := mg.A[i] + mg.A[j]

	tpl := pairTemplate{crossSection: math.Pi * sum * sum}
	tpl.stick = b.splitChannels(mtot, mtot)

	if b.p.ErosionRatio > 0 && mj/mi >= b.p.ErosionRatio {
		// Cratering: only an excavated mass leaves the larger body; fragments
		// come from the projectile plus the excavated mass.
		exc := math.Min(b.p.ErosionExcavation*mi, 0.5*mj)
		remnant := mj - exc
		tpl.fragKind = Erode
		tpl.frag = appendChannels(
			b.fragmentChannels(i, mi+exc, mtot),
			b.splitChannels(remnant, mtot),
		)
	} else {
		tpl.fragKind = Fragment
		tpl.frag = b.fragmentChannels(j, mtot, mtot)
	}

	if i == j {
		tpl.bounce = []Channel{{Bin: i, Frac: 1}}
	} else {
		tpl.bounce = []Channel{{Bin: i, Frac: mi / mtot}, {Bin: j, Frac: mj / mtot}}
	}

	for _, set := range []struct {
		kind OutcomeKind
		ch   []Channel
	}{{Stick, tpl.stick}, {tpl.fragKind, tpl.frag}, {Bounce, tpl.bounce}} {
		if err := b.checkBudget(set.ch); err != nil {
			return tpl, fmt.Errorf("dust: %s outcome of pair (%d, %d): %w", set.kind, i, j, err)
		}
	}
	return tpl, nil
}

// splitChannels places a body of the given mass into the nearest enclosing
// bins so that both mass and number are conserved in expectation. Fractions
// are expressed relative to total, the full colliding mass of the event. A
// mass exactly on a bin value goes entirely to that (lower-index) bin; mass
// beyond the grid collects in the last bin.
func (b *Builder) splitChannels(mass, total float64) []Channel {
	mg := b.mg
	nm := mg.N()
	k := mg.Locate(mass)
	if k == nm-1 || mass <= mg.M[0] {
		return []Channel{{Bin: k, Frac: mass / total}}
	}
	m1, m2 := mg.M[k], mg.M[k+1]
	if mass == m1 {
		return []Channel{{Bin: k, Frac: mass / total}}
	}
	eps := (m2 - mass) / (m2 - m1) // number fraction ending up in the lower bin
	return []Channel{
		{Bin: k, Frac: eps * m1 / total},
		{Bin: k + 1, Frac: (1 - eps) * m2 / total},
	}
}

// fragmentChannels distributes fragMass over a power-law size distribution
// truncated at MinFragBin below and at bin kmax above, normalized so the
// summed fragment mass equals fragMass. Fractions are relative to total.
func (b *Builder) fragmentChannels(kmax int, fragMass, total float64) []Channel {
	mg := b.mg
	lo := b.p.MinFragBin
	if kmax < lo {
		return []Channel{{Bin: lo, Frac: fragMass / total}}
	}

	// Mass per logarithmic bin scales as m^(2-xi) for n(m) ∝ m^-xi.
	ex := 2 - b.p.FragExponent
	var norm float64
	weights := make([]float64, kmax-lo+1)
	for k := lo; k <= kmax; k++ {
		w := math.Pow(mg.M[k]/mg.M[kmax], ex)
		weights[k-lo] = w
		norm += w
	}

	ch := make([]Channel, 0, len(weights))
	for k := lo; k <= kmax; k++ {
		ch = append(ch, Channel{Bin: k, Frac: weights[k-lo] / norm * fragMass / total})
	}
	return ch
}

func (b *Builder) checkBudget(ch []Channel) error {
	var sum float64
	for _, c := range ch {
		sum += c.Frac
	}
	if math.Abs(sum-1) > b.p.ConservationTol {
		return fmt.Errorf("mass budget off by %.3e (tolerance %.1e)", sum-1, b.p.ConservationTol)
	}
	return nil
}

func appendChannels(a, b []Channel) []Channel {
	out := make([]Channel, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

// PairRate is one entry of the rate tensor: the vertically integrated
// collision kernel of bins (I, J) at one radius and its outcome branches.
type PairRate struct {
	I, J     int
	Rate     float64 // [cm^2/s], surface-density formulation
	Outcomes []WeightedOutcome
}

// RateTensor is the sparse per-radius collection of pair collision rates.
// It is rebuilt every step because the relative velocities change; iteration
// order is fixed by bin index for reproducibility.
type RateTensor struct {
	Nm    int
	Pairs [][]PairRate
}

// fragProbability is the smooth monotonic transition from sticking to
// fragmentation around the threshold velocity.
func (b *Builder) fragProbability(v float64) float64 {
	if !b.p.Fragmentation {
		return 0
	}
	w := b.p.TransitionWidth * b.p.VFrag
	switch {
	case v >= b.p.VFrag:
		return 1
	case v <= b.p.VFrag-w:
		return 0
	default:
		return (v - (b.p.VFrag - w)) / w
	}
}

// Build assembles the rate tensor for the current dust state. Pairs where
// either bin is effectively empty are skipped; the symmetric counterpart of
// each pair is represented once.
func (b *Builder) Build(g *grid.Radial, aero *Aero, rv *RelVel, sigmaDust []float64) *RateTensor {
	nr, nm := g.N(), b.mg.N()
	t := &RateTensor{Nm: nm, Pairs: make([][]PairRate, nr)}

	for i := 0; i < nr; i++ {
		var pairs []PairRate
		for k := 0; k < nm; k++ {
			if sigmaDust[i*nm+k] <= b.p.DensityThreshold {
				continue
			}
			for l := k; l < nm; l++ {
				if sigmaDust[i*nm+l] <= b.p.DensityThreshold {
					continue
				}

				v := rv.At(i, k, l)
				hk, hl := aero.Hd[i*nm+k], aero.Hd[i*nm+l]
				tpl := b.templates[b.pairIndex(k, l)]
				rate := tpl.crossSection * v / math.Sqrt(2*math.Pi*(hk*hk+hl*hl))

				pf := b.fragProbability(v)
				ps := (1 - pf) * (1 - b.p.BounceProb)
				pb := (1 - pf) * b.p.BounceProb
				if !b.p.Sticking {
					pb += ps
					ps = 0
				}

				var outcomes []WeightedOutcome
				if ps > 0 {
					outcomes = append(outcomes, WeightedOutcome{Kind: Stick, Prob: ps, Channels: tpl.stick})
				}
				if pf > 0 {
					outcomes = append(outcomes, WeightedOutcome{Kind: tpl.fragKind, Prob: pf, Channels: tpl.frag})
				}
				if pb > 0 {
					outcomes = append(outcomes, WeightedOutcome{Kind: Bounce, Prob: pb, Channels: tpl.bounce})
				}
				pairs = append(pairs, PairRate{I: k, J: l, Rate: rate, Outcomes: outcomes})
			}
		}
		t.Pairs[i] = pairs
	}
	return t
}
