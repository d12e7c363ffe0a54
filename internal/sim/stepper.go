package sim

import (
	"math"

	"github.com/chengchen0102/dustpy/internal/integrators"
)

// Stepper advances all registered instructions consistently under one global
// adaptive time step. Step n+1 strictly depends on the fully resolved state
// of step n; a rejected trial leaves every field byte-for-byte unchanged.
type Stepper struct {
	cfg          Config
	instructions []*Instruction
	limiters     []Limiter

	prepare  func() error
	finalize func()

	t     float64
	dt    float64
	state State
}

// New creates an idle stepper with the given bounds.
func New(cfg Config) *Stepper {
	return &Stepper{cfg: cfg, dt: cfg.InitDt, state: Idle}
}

// Add appends an instruction to the ordered update list.
func (s *Stepper) Add(ins *Instruction) { s.instructions = append(s.instructions, ins) }

// Remove detaches the instruction evolving the named field and reports
// whether one was found. The field itself stays frozen at its last value.
func (s *Stepper) Remove(fieldName string) bool {
	for i, ins := range s.instructions {
		if ins.Field.Name == fieldName {
			s.instructions = append(s.instructions[:i], s.instructions[i+1:]...)
			return true
		}
	}
	return false
}

// AddLimiter registers an additional global time-step ceiling, evaluated
// once per step.
func (s *Stepper) AddLimiter(l Limiter) { s.limiters = append(s.limiters, l) }

// SetPrepare installs the hook recomputing per-step coefficients from the
// committed state. It runs once per step, before any trial, so retries reuse
// the same coefficient set.
func (s *Stepper) SetPrepare(f func() error) { s.prepare = f }

// SetFinalize installs the hook recomputing diagnostics from the accepted
// state. Its outputs never feed back into the same step.
func (s *Stepper) SetFinalize(f func()) { s.finalize = f }

// Time returns the current simulated time.
func (s *Stepper) Time() float64 { return s.t }

// Dt returns the step size the next trial will start from.
func (s *Stepper) Dt() float64 { return s.dt }

// State returns the stepper state.
func (s *Stepper) State() State { return s.state }

func (s *Stepper) fail(dt float64, retries int, err error) Report {
	s.state = Failed
	return Report{Status: Fatal, Dt: dt, Retries: retries, Err: err}
}

// Step advances the simulation by one accepted step: explicit instructions
// are trialed with the embedded error estimate, all proposed step scales and
// registered limiters are combined into one global dt, implicit instructions
// are solved with that dt, and the accepted stage combinations are committed
// together. Truncation-error rejections shrink dt and retry without
// advancing time, up to the configured retry cap.
func (s *Stepper) Step() Report {
	if s.state == Failed {
		return Report{Status: Fatal, Err: ErrNotStepping}
	}
	s.state = Stepping

	if s.prepare != nil {
		if err := s.prepare(); err != nil {
			return s.fail(s.dt, 0, err)
		}
	}

	dtCap := s.cfg.MaxDt
	for _, lim := range s.limiters {
		if l := lim(); l < dtCap {
			dtCap = l
		}
	}
	dt := math.Min(math.Max(s.dt, s.cfg.MinDt), dtCap)

	staged := make([][]float64, len(s.instructions))
	retries := 0
	for {
		reject := false
		minNext := dtCap

		for idx, ins := range s.instructions {
			if ins.RHS == nil {
				continue
			}
			yNew, errRatio, dtNext := ins.rk.StepAdaptive(ins.RHS, ins.Field.Data, s.t, dt, s.cfg.Tol)
			staged[idx] = yNew
			if errRatio > 1 {
				reject = true
			}
			if dtNext < minNext {
				minNext = dtNext
			}
		}

		if reject {
			retries++
			if retries > s.cfg.MaxRetries {
				return s.fail(dt, retries, ErrRetriesExhausted)
			}
			if minNext < s.cfg.MinDt {
				return s.fail(minNext, retries, ErrStepTooSmall)
			}
			dt = minNext
			continue
		}

		for idx, ins := range s.instructions {
			if ins.Implicit == nil {
				continue
			}
			yNew, err := integrators.BackwardEuler(ins.Implicit, ins.Field.Data, s.t, dt)
			if err != nil {
				return s.fail(dt, retries, &StepError{Field: ins.Field.Name, Index: -1, Time: s.t, Wrapped: err})
			}
			staged[idx] = yNew
		}

		for idx, ins := range s.instructions {
			y := staged[idx]
			if y == nil {
				continue
			}
			if j := checkFinite(y); j >= 0 {
				return s.fail(dt, retries, &StepError{Field: ins.Field.Name, Index: j, Time: s.t, Wrapped: ErrNonFinite})
			}
			if j := checkNonNegative(y); j >= 0 {
				return s.fail(dt, retries, &StepError{Field: ins.Field.Name, Index: j, Time: s.t, Wrapped: ErrNegativeDensity})
			}
		}

		for idx, ins := range s.instructions {
			if staged[idx] == nil {
				continue
			}
			copy(ins.Field.Data, staged[idx])
			ins.Field.ApplyFloor()
		}
		s.t += dt
		s.dt = math.Min(math.Max(minNext, s.cfg.MinDt), s.cfg.MaxDt)
		s.state = Converged

		if s.finalize != nil {
			s.finalize()
		}
		return Report{Status: Accepted, Dt: dt, Retries: retries}
	}
}

// checkNonNegative returns the index of the first element more negative than
// rounding noise permits, or -1. Tiny negative excursions are tolerated here
// and removed by the floor afterwards.
func checkNonNegative(y []float64) int {
	scale := 0.0
	for _, v := range y {
		if a := math.Abs(v); a > scale {
			scale = a
		}
	}
	tol := 1e-10 * scale
	for i, v := range y {
		if v < -tol {
			return i
		}
	}
	return -1
}
