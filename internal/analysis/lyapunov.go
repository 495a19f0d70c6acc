package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// LyapunovExponent estimates the largest Lyapunov exponent with the Benettin
// method: a companion trajectory starts d0 away along the first axis and is
// pulled back to d0 after every step. The result is the mean log stretch per
// unit time. Maps advance time by one per iteration, whatever dt is.
func LyapunovExponent(
	f dynamo.Field,
	integ dynamo.Integrator,
	x0 dynamo.State,
	dt, duration float64,
	d0 float64,
) (float64, error) {
	if len(x0) == 0 {
		return 0, dynamo.ErrInvalidState
	}
	if d0 <= 0 || dt <= 0 || duration <= 0 {
		return 0, fmt.Errorf("lyapunov: dt, duration and d0 must be positive")
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += d0

	advance := dt
	if dynamo.IsDiscrete(f) {
		advance = 1
	}

	t := 0.0
	sumLog := 0.0
	for t < duration {
		var err error
		if x, err = integ.Step(f, x, t, dt); err != nil {
			return 0, err
		}
		if xp, err = integ.Step(f, xp, t, dt); err != nil {
			return 0, err
		}
		t += advance

		sep, _ := x.Distance(xp)
		if sep == 0 {
			xp = x.Clone()
			xp[0] += d0
			continue
		}
		sumLog += math.Log(sep / d0)
		xp = x.Add(xp.Sub(x).Scale(d0 / sep))
	}

	return sumLog / t, nil
}

// LogisticLyapunov returns the exponent of the logistic map at r as the
// orbit average of ln|r(1-2x)|.
func LogisticLyapunov(r, x0 float64, transient, n int) (float64, error) {
	if n < 1 {
		return 0, fmt.Errorf("%w: need at least one iterate", dynamo.ErrInsufficientSamples)
	}
	x := x0
	step := func() error {
		if x < 0 || x > 1 || math.IsNaN(x) {
			return fmt.Errorf("%w: logistic x=%g not in [0,1]", dynamo.ErrDomain, x)
		}
		x = r * x * (1 - x)
		return nil
	}

	for i := 0; i < transient; i++ {
		if err := step(); err != nil {
			return 0, err
		}
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		d := math.Abs(r * (1 - 2*x))
		if d == 0 {
			// superstable orbit
			return math.Inf(-1), nil
		}
		sum += math.Log(d)
		if err := step(); err != nil {
			return 0, err
		}
	}
	return sum / float64(n), nil
}
