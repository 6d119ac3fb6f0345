package integrators

import (
	"math"

	"github.com/san-kum/modsim/internal/dynamo"
)

// Dormand-Prince tableau.
var (
	dpNodes = [7]float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1, 1}

	dpCoupling = [7][6]float64{
		{},
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
		{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
		{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
		{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0},
	}

	// fifth-order weights minus the embedded fourth-order weights
	dpError = [7]float64{
		35.0/384.0 - 5179.0/57600.0,
		0,
		500.0/1113.0 - 7571.0/16695.0,
		125.0/192.0 - 393.0/640.0,
		-2187.0/6784.0 + 92097.0/339200.0,
		11.0/84.0 - 187.0/2100.0,
		-1.0 / 40.0,
	}
)

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

// Step takes one fifth-order step of size dt without error control.
func (r *RK45) Step(sys System, x dynamo.Vector, t, dt float64) (dynamo.Vector, error) {
	xNew, _, err := r.stages(sys, x, t, dt)
	return xNew, err
}

// StepAdaptive attempts a step of size dt. A rejected attempt leaves x
// unchanged in the result and proposes a smaller step.
func (r *RK45) StepAdaptive(sys System, x dynamo.Vector, t, dt float64, tol Tolerance) (StepResult, error) {
	xNew, k, err := r.stages(sys, x, t, dt)
	if err != nil {
		return StepResult{}, err
	}

	errMax := 0.0
	for i := range x {
		est := 0.0
		for s, w := range dpError {
			est += w * k[s][i]
		}
		est *= dt
		scale := tol.AbsTol + tol.RelTol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		if scale <= 0 {
			scale = 1e-12
		}
		errMax = math.Max(errMax, math.Abs(est)/scale)
	}

	res := StepResult{Error: errMax}
	switch {
	case math.IsNaN(errMax) || math.IsInf(errMax, 0):
		res.X = x.Clone()
		res.Next = dt * r.minScale
	case errMax > 1:
		res.X = x.Clone()
		res.Next = dt * math.Max(r.minScale, r.safety*math.Pow(errMax, -0.25))
	case errMax > 0:
		res.X = xNew
		res.Accepted = true
		res.Next = dt * math.Min(r.maxScale, r.safety*math.Pow(errMax, -0.2))
	default:
		res.X = xNew
		res.Accepted = true
		res.Next = dt * r.maxScale
	}
	return res, nil
}

// stages evaluates all seven stages. The seventh stage is the derivative at
// the new point and is only needed for the error estimate.
func (r *RK45) stages(sys System, x dynamo.Vector, t, dt float64) (dynamo.Vector, [7]dynamo.Vector, error) {
	var k [7]dynamo.Vector
	n := len(x)
	trial := make(dynamo.Vector, n)

	for s := 0; s < 7; s++ {
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < s; j++ {
				sum += dpCoupling[s][j] * k[j][i]
			}
			trial[i] = x[i] + dt*sum
		}
		dx, err := sys.Derive(trial, t+dpNodes[s]*dt)
		if err != nil {
			return nil, k, err
		}
		k[s] = dx.Clone()
	}

	xNew := make(dynamo.Vector, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < 6; j++ {
			sum += dpCoupling[6][j] * k[j][i]
		}
		xNew[i] = x[i] + dt*sum
	}
	return xNew, k, nil
}
