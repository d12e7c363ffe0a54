// Package sim provides the integration orchestrator: an ordered list of
// per-field integration instructions advanced jointly under one adaptive
// global time step.
package sim

import (
	"math"

	"github.com/chengchen0102/dustpy/internal/integrators"
)

// Field is one evolved state array with its floor value. Fields are owned
// exclusively by the stepper during a step and mutated only on acceptance.
type Field struct {
	Name  string
	Data  []float64
	Floor float64
}

// NewField wraps a state array.
func NewField(name string, data []float64, floor float64) *Field {
	return &Field{Name: name, Data: data, Floor: floor}
}

// ApplyFloor clamps every element to the floor value.
func (f *Field) ApplyFloor() {
	for i, v := range f.Data {
		if v < f.Floor {
			f.Data[i] = f.Floor
		}
	}
}

// checkFinite returns the index of the first non-finite element, or -1.
func checkFinite(x []float64) int {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}

// Instruction binds one field to one integration scheme. Explicit
// instructions carry a right-hand-side function and an embedded adaptive
// Runge-Kutta scheme; implicit instructions carry an operator that assembles
// and solves their linear system. Removing an instruction from the stepper
// disables that field's evolution without affecting others.
type Instruction struct {
	Field    *Field
	RHS      integrators.RHS
	Implicit integrators.ImplicitOperator

	rk *integrators.RK45
}

// NewExplicit creates an explicit adaptive instruction.
func NewExplicit(f *Field, rhs integrators.RHS) *Instruction {
	return &Instruction{Field: f, RHS: rhs, rk: integrators.NewRK45()}
}

// NewImplicit creates an implicit backward-Euler instruction.
func NewImplicit(f *Field, op integrators.ImplicitOperator) *Instruction {
	return &Instruction{Field: f, Implicit: op}
}

// Limiter proposes an additional ceiling on the global time step. Returning
// +Inf leaves the step unconstrained.
type Limiter func() float64

// Status reports the outcome of one Step call.
type Status int

const (
	Accepted Status = iota
	Rejected
	Fatal
)

func (s Status) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Fatal:
		return "fatal"
	}
	return "unknown"
}

// State is the stepper state machine.
type State int

const (
	Idle State = iota
	Stepping
	Converged
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Stepping:
		return "stepping"
	case Converged:
		return "converged"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Report summarizes one accepted, rejected or fatal step.
type Report struct {
	Status  Status
	Dt      float64
	Retries int
	Err     error
}

// Config bounds the adaptive stepping.
type Config struct {
	Tol        float64 // relative truncation-error tolerance for explicit schemes
	InitDt     float64
	MinDt      float64
	MaxDt      float64
	MaxRetries int
}

// DefaultConfig returns conservative stepping bounds (times in seconds).
func DefaultConfig() Config {
	return Config{
		Tol:        1e-4,
		InitDt:     3.15e5,
		MinDt:      1e-2,
		MaxDt:      3.15e10,
		MaxRetries: 12,
	}
}
