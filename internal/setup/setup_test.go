package setup

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/chengchen0102/dustpy/internal/cgs"
	"github.com/chengchen0102/dustpy/internal/grid"
)

func TestGasProfileCarriesDiskMass(t *testing.T) {
	g, err := grid.NewRadial(cgs.AU, 1000*cgs.AU, 100, cgs.SolarMass)
	if err != nil {
		t.Fatal(err)
	}

	mdisk := 0.05 * cgs.SolarMass
	sigma := GasProfile(g, mdisk, 60*cgs.AU, 0)

	// The annulus-integrated profile recovers the disk mass up to the small
	// truncation inside the inner edge.
	got := floats.Dot(g.Area, sigma)
	if math.Abs(got-mdisk) > 0.03*mdisk {
		t.Errorf("integrated mass = %g, want %g within 3%%", got, mdisk)
	}

	for i := 1; i < g.N(); i++ {
		if sigma[i] >= sigma[i-1] {
			t.Fatalf("profile not decreasing at %d", i)
		}
	}
}

func TestGasProfileFloor(t *testing.T) {
	g, err := grid.NewRadial(cgs.AU, 1000*cgs.AU, 50, cgs.SolarMass)
	if err != nil {
		t.Fatal(err)
	}

	floor := 1e-20
	sigma := GasProfile(g, 0.05*cgs.SolarMass, 10*cgs.AU, floor)
	for i, v := range sigma {
		if v < floor {
			t.Errorf("sigma[%d] = %g below floor", i, v)
		}
	}
	// Far beyond the cutoff the exponential drops to the floor.
	if sigma[g.N()-1] != floor {
		t.Errorf("outer cell = %g, want floor", sigma[g.N()-1])
	}
}

func TestDustProfileSeedsSmallGrains(t *testing.T) {
	g, err := grid.NewRadial(cgs.AU, 100*cgs.AU, 10, cgs.SolarMass)
	if err != nil {
		t.Fatal(err)
	}
	mg, err := grid.NewMass(1e-15, 1e-3, 20, 1.67)
	if err != nil {
		t.Fatal(err)
	}

	sigmaGas := GasProfile(g, 0.05*cgs.SolarMass, 60*cgs.AU, 1e-20)
	d2g := 0.01
	aIni := 1e-4
	floor := 1e-40
	sigma := DustProfile(g, mg, sigmaGas, d2g, aIni, floor)

	nm := mg.N()
	for i := 0; i < g.N(); i++ {
		var total float64
		for k := 0; k < nm; k++ {
			v := sigma[i*nm+k]
			if v < floor {
				t.Fatalf("dust[%d,%d] = %g below floor", i, k, v)
			}
			if mg.A[k] > aIni && v != floor {
				t.Errorf("large grain bin %d populated at radius %d", k, i)
			}
			total += v
		}
		want := d2g * sigmaGas[i]
		if math.Abs(total-want) > 1e-9*want {
			t.Errorf("dust-to-gas at %d = %g, want %g", i, total/sigmaGas[i], d2g)
		}
	}
}
