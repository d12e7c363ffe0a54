package metrics

import (
	"testing"

	"github.com/chengchen0102/dustpy/internal/config"
	"github.com/chengchen0102/dustpy/internal/disk"
	"github.com/chengchen0102/dustpy/internal/sim"
)

func testSim(t *testing.T) *disk.Simulation {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Grid.RInAU, cfg.Grid.ROutAU, cfg.Grid.NR = 5, 50, 10
	cfg.Grid.AMin, cfg.Grid.AMax, cfg.Grid.NM = 1e-5, 1e-3, 8
	cfg.Gas.Hydrodynamics = false
	cfg.Dust.Fragmentation = false
	cfg.Integration.InitDtYr = 10
	s, err := disk.New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return s
}

func TestMassObservers(t *testing.T) {
	s := testSim(t)
	gas := NewGasMass()
	dust := NewDustMass()

	rep := sim.Report{Status: sim.Accepted}
	gas.Observe(s, rep)
	dust.Observe(s, rep)

	if gas.Value() <= 0 {
		t.Errorf("gas mass = %g", gas.Value())
	}
	if dust.Value() <= 0 {
		t.Errorf("dust mass = %g", dust.Value())
	}
	// The seeded disk carries roughly a percent of its gas in dust.
	ratio := dust.Value() / gas.Value()
	if ratio < 0.005 || ratio > 0.02 {
		t.Errorf("dust-to-gas mass ratio = %g", ratio)
	}

	gas.Reset()
	if gas.Value() != 0 {
		t.Error("reset did not clear the observer")
	}
}

func TestDustMassDriftOverRun(t *testing.T) {
	s := testSim(t)
	drift := NewDustMassDrift()

	drift.Observe(s, sim.Report{Status: sim.Accepted})
	if drift.Value() != 0 {
		t.Errorf("drift after first sample = %g", drift.Value())
	}

	for i := 0; i < 5; i++ {
		rep := s.Step()
		if rep.Status != sim.Accepted {
			t.Fatalf("step %d: %v", i, rep.Err)
		}
		drift.Observe(s, rep)
	}
	// Coagulation conserves mass to round-off; boundary cells may bleed a
	// little through the floor.
	if drift.Value() > 0.05 {
		t.Errorf("dust mass drift = %g", drift.Value())
	}
}

func TestRetriesAccumulate(t *testing.T) {
	s := testSim(t)
	r := NewRetries()

	r.Observe(s, sim.Report{Status: sim.Accepted, Retries: 2})
	r.Observe(s, sim.Report{Status: sim.Accepted, Retries: 3})
	if r.Value() != 5 {
		t.Errorf("retries = %g, want 5", r.Value())
	}
}

func TestAccretionSkipsRejectedSteps(t *testing.T) {
	s := testSim(t)
	a := NewAccretion()

	a.Observe(s, sim.Report{Status: sim.Rejected, Dt: 100})
	if a.Value() != 0 {
		t.Errorf("rejected step accreted %g", a.Value())
	}
}

func TestCollect(t *testing.T) {
	s := testSim(t)
	obs := []Observer{NewGasMass(), NewDustMass(), NewRetries()}

	got := Collect(obs, s, sim.Report{Status: sim.Accepted})
	for _, o := range obs {
		if _, ok := got[o.Name()]; !ok {
			t.Errorf("missing key %q", o.Name())
		}
	}
	if got["gas_mass"] <= 0 {
		t.Errorf("gas_mass = %g", got["gas_mass"])
	}
}
