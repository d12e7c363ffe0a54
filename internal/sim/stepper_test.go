package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/chengchen0102/dustpy/internal/integrators"
)

func decayRHS(lambda float64) integrators.RHS {
	return func(_ float64, y, dydt []float64) {
		for i := range y {
			dydt[i] = -lambda * y[i]
		}
	}
}

func testConfig() Config {
	return Config{Tol: 1e-6, InitDt: 0.1, MinDt: 1e-12, MaxDt: 10, MaxRetries: 20}
}

func TestStepAdvancesExplicitField(t *testing.T) {
	f := NewField("x", []float64{1}, 0)
	s := New(testConfig())
	s.Add(NewExplicit(f, decayRHS(1)))

	rep := s.Step()
	if rep.Status != Accepted {
		t.Fatalf("status = %v, err = %v", rep.Status, rep.Err)
	}
	if s.Time() != rep.Dt {
		t.Errorf("time = %g, want %g", s.Time(), rep.Dt)
	}
	want := math.Exp(-rep.Dt)
	if math.Abs(f.Data[0]-want) > 1e-7 {
		t.Errorf("x = %g, want %g", f.Data[0], want)
	}
	if s.State() != Converged {
		t.Errorf("state = %v, want converged", s.State())
	}
}

func TestStepRetriesOnTruncationError(t *testing.T) {
	f := NewField("x", []float64{1}, 0)
	cfg := testConfig()
	cfg.InitDt = 1.0
	s := New(cfg)
	s.Add(NewExplicit(f, decayRHS(1e4)))

	rep := s.Step()
	if rep.Status != Accepted {
		t.Fatalf("status = %v, err = %v", rep.Status, rep.Err)
	}
	if rep.Retries == 0 {
		t.Error("stiff step accepted without retries")
	}
	if rep.Dt >= 1.0 {
		t.Errorf("accepted dt = %g, want shrunken", rep.Dt)
	}
	if f.Data[0] <= 0 || f.Data[0] >= 1 {
		t.Errorf("x = %g after decay step", f.Data[0])
	}
}

func TestStepRejectionLeavesStateUntouched(t *testing.T) {
	f := NewField("x", []float64{1}, 0)
	cfg := testConfig()
	cfg.InitDt = 1.0
	cfg.MaxRetries = 0 // first rejection is fatal
	s := New(cfg)
	s.Add(NewExplicit(f, decayRHS(1e4)))

	rep := s.Step()
	if rep.Status != Fatal {
		t.Fatalf("status = %v, want fatal", rep.Status)
	}
	if f.Data[0] != 1 {
		t.Errorf("x = %g, rejected trial leaked into the field", f.Data[0])
	}
	if s.Time() != 0 {
		t.Errorf("time = %g, want 0", s.Time())
	}
}

func TestStepFatalOnNonFinite(t *testing.T) {
	f := NewField("x", []float64{1}, 0)
	s := New(testConfig())
	s.Add(NewExplicit(f, func(_ float64, y, dydt []float64) {
		dydt[0] = math.NaN()
	}))

	rep := s.Step()
	if rep.Status != Fatal {
		t.Fatalf("status = %v, want fatal", rep.Status)
	}
	if !errors.Is(rep.Err, ErrNonFinite) {
		t.Errorf("err = %v, want ErrNonFinite", rep.Err)
	}
	var stepErr *StepError
	if !errors.As(rep.Err, &stepErr) || stepErr.Field != "x" {
		t.Errorf("err = %v, want StepError naming the field", rep.Err)
	}

	// A failed stepper refuses further stepping.
	rep = s.Step()
	if rep.Status != Fatal || !errors.Is(rep.Err, ErrNotStepping) {
		t.Errorf("stepping after failure: %v, %v", rep.Status, rep.Err)
	}
}

func TestStepAppliesFloor(t *testing.T) {
	f := NewField("x", []float64{1}, 0.5)
	cfg := testConfig()
	cfg.InitDt = 2.0
	cfg.Tol = 1e-3
	s := New(cfg)
	s.Add(NewExplicit(f, decayRHS(1)))

	for i := 0; i < 20; i++ {
		if rep := s.Step(); rep.Status != Accepted {
			t.Fatalf("step %d: %v", i, rep.Err)
		}
	}
	if f.Data[0] != 0.5 {
		t.Errorf("x = %g, want pinned at floor 0.5", f.Data[0])
	}
}

type scalarRelax struct {
	rate float64
}

func (o *scalarRelax) System(y []float64, _, dt float64) (*integrators.Tridiagonal, []float64, error) {
	m := integrators.NewTridiagonal(len(y))
	rhs := make([]float64, len(y))
	for i := range y {
		m.Diag[i] = 1 + dt*o.rate
		rhs[i] = y[i]
	}
	return m, rhs, nil
}

func TestStepMixedExplicitImplicit(t *testing.T) {
	fe := NewField("explicit", []float64{1}, 0)
	fi := NewField("implicit", []float64{1}, 0)
	s := New(testConfig())
	s.Add(NewExplicit(fe, decayRHS(1)))
	s.Add(NewImplicit(fi, &scalarRelax{rate: 1}))

	rep := s.Step()
	if rep.Status != Accepted {
		t.Fatalf("step: %v", rep.Err)
	}
	// Both fields advanced with the same dt.
	wantImplicit := 1 / (1 + rep.Dt)
	if math.Abs(fi.Data[0]-wantImplicit) > 1e-12 {
		t.Errorf("implicit = %g, want %g", fi.Data[0], wantImplicit)
	}
	if fe.Data[0] >= 1 {
		t.Errorf("explicit field did not advance")
	}
}

func TestLimiterCapsStep(t *testing.T) {
	f := NewField("x", []float64{1}, 0)
	s := New(testConfig())
	s.Add(NewExplicit(f, decayRHS(1)))
	s.AddLimiter(func() float64 { return 0.01 })

	rep := s.Step()
	if rep.Status != Accepted {
		t.Fatalf("step: %v", rep.Err)
	}
	if rep.Dt > 0.01 {
		t.Errorf("dt = %g, want capped at 0.01", rep.Dt)
	}
}

func TestPrepareRunsOncePerStep(t *testing.T) {
	f := NewField("x", []float64{1}, 0)
	cfg := testConfig()
	cfg.InitDt = 1.0
	s := New(cfg)
	s.Add(NewExplicit(f, decayRHS(1e4)))

	calls := 0
	s.SetPrepare(func() error {
		calls++
		return nil
	})
	finalized := 0
	s.SetFinalize(func() { finalized++ })

	rep := s.Step()
	if rep.Status != Accepted {
		t.Fatalf("step: %v", rep.Err)
	}
	if calls != 1 {
		t.Errorf("prepare ran %d times for one step with %d retries", calls, rep.Retries)
	}
	if finalized != 1 {
		t.Errorf("finalize ran %d times", finalized)
	}
}

func TestRemoveInstruction(t *testing.T) {
	fa := NewField("a", []float64{1}, 0)
	fb := NewField("b", []float64{1}, 0)
	s := New(testConfig())
	s.Add(NewExplicit(fa, decayRHS(1)))
	s.Add(NewExplicit(fb, decayRHS(1)))

	if !s.Remove("a") {
		t.Fatal("Remove(a) = false")
	}
	if s.Remove("a") {
		t.Fatal("Remove(a) succeeded twice")
	}

	if rep := s.Step(); rep.Status != Accepted {
		t.Fatalf("step: %v", rep.Err)
	}
	if fa.Data[0] != 1 {
		t.Errorf("removed field advanced to %g", fa.Data[0])
	}
	if fb.Data[0] >= 1 {
		t.Errorf("remaining field did not advance")
	}
}
