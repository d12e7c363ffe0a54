package integrators

// ImplicitOperator assembles the linear system of a backward-Euler update,
// (I - dt*J) x = y + dt*S, with boundary rows already substituted. The
// returned right-hand side must have the same length as the system.
type ImplicitOperator interface {
	System(y []float64, t, dt float64) (*Tridiagonal, []float64, error)
}

// BackwardEuler advances a field implicitly by one step of size dt. The
// input slice is left untouched; a singular system surfaces as an error.
func BackwardEuler(op ImplicitOperator, y []float64, t, dt float64) ([]float64, error) {
	m, b, err := op.System(y, t, dt)
	if err != nil {
		return nil, err
	}
	return m.Solve(b)
}
