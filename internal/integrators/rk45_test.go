package integrators

import (
	"math"
	"testing"
)

func TestRK45ExponentialDecay(t *testing.T) {
	rk := NewRK45()
	decay := func(_ float64, y, dydt []float64) {
		for i := range y {
			dydt[i] = -y[i]
		}
	}

	y := []float64{1}
	dt := 0.1
	yNew, errRatio, _ := rk.StepAdaptive(decay, y, 0, dt, 1e-6)
	if errRatio > 1 {
		t.Fatalf("smooth problem rejected, errRatio = %g", errRatio)
	}
	want := math.Exp(-dt)
	if math.Abs(yNew[0]-want) > 1e-9 {
		t.Errorf("y = %.12f, want %.12f", yNew[0], want)
	}
	if y[0] != 1 {
		t.Error("input state was modified")
	}
}

func TestRK45GrowsStepOnSmoothProblem(t *testing.T) {
	rk := NewRK45()
	decay := func(_ float64, y, dydt []float64) {
		for i := range y {
			dydt[i] = -y[i]
		}
	}

	_, _, dtNext := rk.StepAdaptive(decay, []float64{1}, 0, 1e-4, 1e-6)
	if dtNext <= 1e-4 {
		t.Errorf("dtNext = %g, want growth beyond 1e-4", dtNext)
	}
}

func TestRK45RejectsStiffStep(t *testing.T) {
	rk := NewRK45()
	stiff := func(_ float64, y, dydt []float64) {
		for i := range y {
			dydt[i] = -1e4 * y[i]
		}
	}

	_, errRatio, dtNext := rk.StepAdaptive(stiff, []float64{1}, 0, 1.0, 1e-6)
	if errRatio <= 1 {
		t.Fatalf("stiff problem accepted at dt = 1, errRatio = %g", errRatio)
	}
	if dtNext >= 1.0 {
		t.Errorf("dtNext = %g, want shrinkage below 1", dtNext)
	}
}

func TestRK45Oscillator(t *testing.T) {
	rk := NewRK45()
	osc := func(_ float64, y, dydt []float64) {
		dydt[0] = y[1]
		dydt[1] = -y[0]
	}

	y := []float64{1, 0}
	tNow, dt := 0.0, 0.05
	for tNow < 2*math.Pi {
		yNew, errRatio, dtNext := rk.StepAdaptive(osc, y, tNow, dt, 1e-8)
		if errRatio > 1 {
			dt = dtNext
			continue
		}
		y = yNew
		tNow += dt
		dt = math.Min(dtNext, 2*math.Pi-tNow)
		if dt <= 0 {
			break
		}
	}

	energy := y[0]*y[0] + y[1]*y[1]
	if math.Abs(energy-1) > 1e-6 {
		t.Errorf("energy after one period = %.10f, want 1", energy)
	}
}
