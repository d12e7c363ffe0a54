package dust

import (
	"math"
	"testing"

	"github.com/chengchen0102/dustpy/internal/cgs"
	"github.com/chengchen0102/dustpy/internal/grid"
)

func testMassGrid(t *testing.T) *grid.Mass {
	t.Helper()
	mg, err := grid.NewMass(1e-12, 1e-3, 24, 1.67)
	if err != nil {
		t.Fatalf("mass grid: %v", err)
	}
	return mg
}

func testKernelParams() Params {
	return Params{
		VFrag:             1000,
		TransitionWidth:   0.2,
		FragExponent:      1.83,
		ErosionRatio:      10,
		ErosionExcavation: 1,
		MinFragBin:        0,
		Sticking:          true,
		Fragmentation:     true,
		DensityThreshold:  1e-39,
		ConservationTol:   1e-12,
	}
}

func TestBuilderValidatesAllBudgets(t *testing.T) {
	if _, err := NewBuilder(testMassGrid(t), testKernelParams()); err != nil {
		t.Fatalf("builder: %v", err)
	}
}

func TestBuilderRejectsBadFragBin(t *testing.T) {
	p := testKernelParams()
	p.MinFragBin = 24
	if _, err := NewBuilder(testMassGrid(t), p); err == nil {
		t.Fatal("expected error for fragment bin outside grid")
	}
}

func TestSplitChannelsConservesMassAndNumber(t *testing.T) {
	mg := testMassGrid(t)
	b, err := NewBuilder(mg, testKernelParams())
	if err != nil {
		t.Fatal(err)
	}

	mass := math.Sqrt(mg.M[5] * mg.M[6]) // strictly between two bins
	ch := b.splitChannels(mass, mass)
	if len(ch) != 2 || ch[0].Bin != 5 || ch[1].Bin != 6 {
		t.Fatalf("channels = %+v", ch)
	}

	var fracSum, numSum float64
	for _, c := range ch {
		fracSum += c.Frac
		numSum += c.Frac * mass / mg.M[c.Bin]
	}
	if math.Abs(fracSum-1) > 1e-12 {
		t.Errorf("mass fractions sum to %.15f", fracSum)
	}
	if math.Abs(numSum-1) > 1e-12 {
		t.Errorf("implied particle number = %.15f, want 1", numSum)
	}
}

func TestSplitChannelsExactBinValue(t *testing.T) {
	mg := testMassGrid(t)
	b, err := NewBuilder(mg, testKernelParams())
	if err != nil {
		t.Fatal(err)
	}

	ch := b.splitChannels(mg.M[7], mg.M[7])
	if len(ch) != 1 || ch[0].Bin != 7 || ch[0].Frac != 1 {
		t.Errorf("mass on bin value split as %+v, want single channel", ch)
	}
}

func TestSplitChannelsBeyondGrid(t *testing.T) {
	mg := testMassGrid(t)
	b, err := NewBuilder(mg, testKernelParams())
	if err != nil {
		t.Fatal(err)
	}

	last := mg.N() - 1
	mass := 2 * mg.M[last]
	ch := b.splitChannels(mass, mass)
	if len(ch) != 1 || ch[0].Bin != last || ch[0].Frac != 1 {
		t.Errorf("over-grid mass split as %+v, want last bin", ch)
	}
}

func TestFragmentChannelsNormalization(t *testing.T) {
	mg := testMassGrid(t)
	p := testKernelParams()
	p.MinFragBin = 3
	b, err := NewBuilder(mg, p)
	if err != nil {
		t.Fatal(err)
	}

	frag := 0.4
	ch := b.fragmentChannels(10, frag, 1.0)
	var sum float64
	for _, c := range ch {
		if c.Bin < 3 || c.Bin > 10 {
			t.Errorf("fragment channel in bin %d outside [3, 10]", c.Bin)
		}
		sum += c.Frac
	}
	if math.Abs(sum-frag) > 1e-12 {
		t.Errorf("fragment fractions sum to %g, want %g", sum, frag)
	}
	// For xi < 2 most of the fragment mass sits in the largest fragments.
	if ch[len(ch)-1].Frac <= ch[0].Frac {
		t.Error("fragment mass distribution not increasing toward large bins")
	}
}

func TestErosionTemplate(t *testing.T) {
	mg := testMassGrid(t)
	b, err := NewBuilder(mg, testKernelParams())
	if err != nil {
		t.Fatal(err)
	}

	// Adjacent bins differ by about a factor 2.4, so far-apart bins trigger
	// the cratering branch.
	i, j := 2, 12
	if mg.M[j]/mg.M[i] < testKernelParams().ErosionRatio {
		t.Fatalf("pair (%d, %d) does not exceed the erosion ratio", i, j)
	}
	tpl := b.templates[b.pairIndex(i, j)]
	if tpl.fragKind != Erode {
		t.Fatalf("fragKind = %v, want erode", tpl.fragKind)
	}
	var sum float64
	for _, c := range tpl.frag {
		sum += c.Frac
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("erosion channels sum to %.15f", sum)
	}
}

func TestFragProbabilityRamp(t *testing.T) {
	mg := testMassGrid(t)
	b, err := NewBuilder(mg, testKernelParams())
	if err != nil {
		t.Fatal(err)
	}

	if p := b.fragProbability(100); p != 0 {
		t.Errorf("p(100) = %g, want 0", p)
	}
	if p := b.fragProbability(1000); p != 1 {
		t.Errorf("p(1000) = %g, want 1", p)
	}
	if p := b.fragProbability(900); math.Abs(p-0.5) > 1e-12 {
		t.Errorf("p(900) = %g, want 0.5", p)
	}

	off := testKernelParams()
	off.Fragmentation = false
	b2, err := NewBuilder(mg, off)
	if err != nil {
		t.Fatal(err)
	}
	if p := b2.fragProbability(1e6); p != 0 {
		t.Errorf("fragmentation disabled, p = %g, want 0", p)
	}
}

func TestBuildSkipsEmptyBins(t *testing.T) {
	mg := testMassGrid(t)
	b, err := NewBuilder(mg, testKernelParams())
	if err != nil {
		t.Fatal(err)
	}
	g, err := grid.NewRadial(cgs.AU, 100*cgs.AU, 3, cgs.SolarMass)
	if err != nil {
		t.Fatal(err)
	}
	nr, nm := g.N(), mg.N()

	aero := &Aero{
		Nm:   nm,
		St:   make([]float64, nr*nm),
		VRad: make([]float64, nr*nm),
		Diff: make([]float64, nr*nm),
		Hd:   make([]float64, nr*nm),
	}
	for p := range aero.Hd {
		aero.Hd[p] = 1e12
	}
	rv := &RelVel{Nm: nm, V: make([]float64, nr*nm*nm)}
	for p := range rv.V {
		rv.V[p] = 100 // well below the fragmentation threshold
	}

	// Only bins 2 and 5 at the first radius carry dust.
	sigma := make([]float64, nr*nm)
	sigma[2], sigma[5] = 1e-4, 1e-4

	tensor := b.Build(g, aero, rv, sigma)
	if len(tensor.Pairs) != nr {
		t.Fatalf("tensor covers %d radii, want %d", len(tensor.Pairs), nr)
	}
	for i := 1; i < nr; i++ {
		if len(tensor.Pairs[i]) != 0 {
			t.Errorf("empty radius %d has %d pairs", i, len(tensor.Pairs[i]))
		}
	}

	pairs := tensor.Pairs[0]
	if len(pairs) != 3 {
		t.Fatalf("got %d pairs, want (2,2), (2,5), (5,5)", len(pairs))
	}
	for _, pr := range pairs {
		if pr.Rate <= 0 {
			t.Errorf("pair (%d,%d) rate = %g", pr.I, pr.J, pr.Rate)
		}
		if len(pr.Outcomes) != 1 || pr.Outcomes[0].Kind != Stick || pr.Outcomes[0].Prob != 1 {
			t.Errorf("pair (%d,%d) outcomes = %+v, want pure sticking", pr.I, pr.J, pr.Outcomes)
		}
	}

	// The rate carries the geometric cross section, relative velocity and
	// vertical overlap of the pair.
	pr := pairs[1]
	tpl := b.templates[b.pairIndex(pr.I, pr.J)]
	h := aero.Hd[pr.I]
	want := tpl.crossSection * 100 / math.Sqrt(2*math.Pi*2*h*h)
	if math.Abs(pr.Rate-want) > 1e-12*want {
		t.Errorf("rate = %g, want %g", pr.Rate, want)
	}
}

func TestSourceRowConservesMass(t *testing.T) {
	mg := testMassGrid(t)
	b, err := NewBuilder(mg, testKernelParams())
	if err != nil {
		t.Fatal(err)
	}
	nm := mg.N()

	stick := b.templates[b.pairIndex(2, 5)]
	erode := b.templates[b.pairIndex(2, 12)]
	tensor := &RateTensor{
		Nm: nm,
		Pairs: [][]PairRate{{
			{I: 2, J: 5, Rate: 1e-3, Outcomes: []WeightedOutcome{
				{Kind: Stick, Prob: 0.6, Channels: stick.stick},
				{Kind: Fragment, Prob: 0.4, Channels: stick.frag},
			}},
			{I: 2, J: 12, Rate: 5e-4, Outcomes: []WeightedOutcome{
				{Kind: Erode, Prob: 1, Channels: erode.frag},
			}},
			{I: 3, J: 3, Rate: 2e-3, Outcomes: []WeightedOutcome{
				{Kind: Stick, Prob: 1, Channels: b.templates[b.pairIndex(3, 3)].stick},
			}},
		}},
	}

	y := make([]float64, nm)
	for k := range y {
		y[k] = 1e-4 / float64(k+1)
	}
	out := make([]float64, nm)
	tensor.SourceRow(mg, 0, y, out)

	var net, gross float64
	for _, v := range out {
		net += v
		gross += math.Abs(v)
	}
	if gross == 0 {
		t.Fatal("source term is identically zero")
	}
	if math.Abs(net) > 1e-12*gross {
		t.Errorf("net mass rate %g exceeds 1e-12 of gross %g", net, gross)
	}
}

func TestSourceRowSelfCollisionFactor(t *testing.T) {
	mg := testMassGrid(t)
	b, err := NewBuilder(mg, testKernelParams())
	if err != nil {
		t.Fatal(err)
	}
	nm := mg.N()

	k := 3
	rate := 2.0
	tensor := &RateTensor{
		Nm: nm,
		Pairs: [][]PairRate{{
			{I: k, J: k, Rate: rate, Outcomes: []WeightedOutcome{
				{Kind: Stick, Prob: 1, Channels: b.templates[b.pairIndex(k, k)].stick},
			}},
		}},
	}

	y := make([]float64, nm)
	y[k] = 3e-5
	out := make([]float64, nm)
	tensor.SourceRow(mg, 0, y, out)

	n := y[k] / mg.M[k]
	scale := 0.5 * rate * n * n * 2 * mg.M[k] // gross loss rate with the 1/2 self factor
	var gain float64
	for i, v := range out {
		if i != k && v > 0 {
			gain += v
		}
	}
	if gain <= 0 {
		t.Fatal("no mass moved to larger bins")
	}
	total := gain + out[k]
	if math.Abs(total) > 1e-12*scale {
		t.Errorf("net rate = %g, want 0 (scale %g)", total, scale)
	}
	if out[k] >= 0 {
		t.Errorf("colliding bin rate = %g, want negative", out[k])
	}
}

func TestSourceRowGrowthDirection(t *testing.T) {
	mg := testMassGrid(t)
	p := testKernelParams()
	p.Fragmentation = false
	b, err := NewBuilder(mg, p)
	if err != nil {
		t.Fatal(err)
	}
	nm := mg.N()

	tensor := &RateTensor{
		Nm: nm,
		Pairs: [][]PairRate{{
			{I: 0, J: 0, Rate: 1, Outcomes: []WeightedOutcome{
				{Kind: Stick, Prob: 1, Channels: b.templates[b.pairIndex(0, 0)].stick},
			}},
		}},
	}

	y := make([]float64, nm)
	y[0] = 1e-4
	out := make([]float64, nm)
	tensor.SourceRow(mg, 0, y, out)

	if out[0] >= 0 {
		t.Errorf("smallest bin rate = %g, want negative", out[0])
	}
	var upper float64
	for k := 1; k < nm; k++ {
		upper += out[k]
	}
	if upper <= 0 {
		t.Error("sticking moved no mass to larger bins")
	}
}
