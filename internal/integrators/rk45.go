package integrators

import "math"

// RHS evaluates the time derivative of a field into dydt. Implementations
// must not retain y or dydt.
type RHS func(t float64, y, dydt []float64)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is an adaptive explicit Runge-Kutta 5(4) scheme with an embedded
// lower-order error estimate. Stage storage is reused across calls.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64

	k1, k2, k3, k4, k5, k6, k7 []float64
	stage                      []float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make([]float64, n)
		r.k2 = make([]float64, n)
		r.k3 = make([]float64, n)
		r.k4 = make([]float64, n)
		r.k5 = make([]float64, n)
		r.k6 = make([]float64, n)
		r.k7 = make([]float64, n)
		r.stage = make([]float64, n)
	}
}

// StepAdaptive evaluates one trial step of size dt. It returns the candidate
// solution, the maximum component error relative to tol (errRatio <= 1 means
// the step is acceptable) and a proposed size for the next trial.
func (r *RK45) StepAdaptive(f RHS, y []float64, t, dt, tol float64) (yNew []float64, errRatio, dtNext float64) {
	n := len(y)
	r.ensureScratch(n)

	f(t, y, r.k1)

	for i := 0; i < n; i++ {
		r.stage[i] = y[i] + dt*b21*r.k1[i]
	}
	f(t+a2*dt, r.stage, r.k2)

	for i := 0; i < n; i++ {
		r.stage[i] = y[i] + dt*(b31*r.k1[i]+b32*r.k2[i])
	}
	f(t+a3*dt, r.stage, r.k3)

	for i := 0; i < n; i++ {
		r.stage[i] = y[i] + dt*(b41*r.k1[i]+b42*r.k2[i]+b43*r.k3[i])
	}
	f(t+a4*dt, r.stage, r.k4)

	for i := 0; i < n; i++ {
		r.stage[i] = y[i] + dt*(b51*r.k1[i]+b52*r.k2[i]+b53*r.k3[i]+b54*r.k4[i])
	}
	f(t+a5*dt, r.stage, r.k5)

	for i := 0; i < n; i++ {
		r.stage[i] = y[i] + dt*(b61*r.k1[i]+b62*r.k2[i]+b63*r.k3[i]+b64*r.k4[i]+b65*r.k5[i])
	}
	f(t+dt, r.stage, r.k6)

	yNew = make([]float64, n)
	for i := 0; i < n; i++ {
		yNew[i] = y[i] + dt*(c1*r.k1[i]+c3*r.k3[i]+c4*r.k4[i]+c5*r.k5[i]+c6*r.k6[i])
	}
	f(t+dt, yNew, r.k7)

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*r.k1[i] + dc3*r.k3[i] + dc4*r.k4[i] + dc5*r.k5[i] + dc6*r.k6[i] + dc7*r.k7[i])
		scale := math.Abs(y[i]) + math.Abs(dt*r.k1[i]) + 1e-30
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}

	errRatio = errMax / tol
	if errRatio > 1 {
		scale := math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
		dtNext = dt * scale
	} else if errRatio > 0 {
		scale := math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
		dtNext = dt * scale
	} else {
		dtNext = dt * r.maxScale
	}
	return yNew, errRatio, dtNext
}
