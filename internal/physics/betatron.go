package physics

import (
	"math"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// Betatron is a one-turn map for transverse particle motion in a ring.
// State: [x, px, y, py]. Each turn applies a thin sextupole kick, an
// optional octupole kick, and a linear rotation by the betatron phase
// 2π·Q in each plane. With a positive OGY gain, states inside the capture
// radius of the target orbit are pulled toward it.
type Betatron struct {
	dynamo.Discrete

	qx, qy   float64 // tunes
	k2       float64 // sextupole strength
	k3       float64 // octupole strength
	octupole bool
	aperture float64
	gain     float64 // OGY gain, 0 disables control
	capture  float64 // capture radius around target
	target   dynamo.State

	cx, sx float64
	cy, sy float64
}

func NewBetatron() Betatron {
	b := Betatron{
		qx:       0.31,
		qy:       0.32,
		k2:       1.0,
		k3:       0.0,
		aperture: 1.0,
		capture:  0.05,
		target:   dynamo.State{0, 0, 0, 0},
	}
	return b.withPhases()
}

func (b Betatron) withPhases() Betatron {
	b.sx, b.cx = math.Sincos(2 * math.Pi * b.qx)
	b.sy, b.cy = math.Sincos(2 * math.Pi * b.qy)
	return b
}

func (b Betatron) Kind() dynamo.Kind { return dynamo.KindBetatronMap }
func (b Betatron) Dim() int          { return 4 }

func (b Betatron) Next(s dynamo.State) (dynamo.State, error) {
	x, px, y, py := s[0], s[1], s[2], s[3]

	px += b.k2 * (x*x - y*y)
	py += -2 * b.k2 * x * y
	if b.octupole {
		r2 := x*x + y*y
		px += b.k3 * x * r2
		py += b.k3 * y * r2
	}

	out := dynamo.State{
		b.cx*x + b.sx*px,
		-b.sx*x + b.cx*px,
		b.cy*y + b.sy*py,
		-b.sy*y + b.cy*py,
	}

	if b.gain > 0 {
		if d, err := out.Distance(b.target); err == nil && d < b.capture {
			for i := range out {
				out[i] -= b.gain * (out[i] - b.target[i])
			}
		}
	}
	return out, nil
}

// InBounds reports whether the particle is still inside the aperture.
func (b Betatron) InBounds(s dynamo.State) bool {
	return s[0]*s[0]+s[2]*s[2] <= b.aperture*b.aperture
}

// Target returns a copy of the orbit the controller stabilises.
func (b Betatron) Target() dynamo.State { return b.target.Clone() }

func (b Betatron) DefaultState() dynamo.State { return dynamo.State{0.1, 0, 0.05, 0} }

func (b Betatron) Params() dynamo.Params {
	oct := 0.0
	if b.octupole {
		oct = 1
	}
	return dynamo.Params{
		"qx": b.qx, "qy": b.qy, "k2": b.k2, "k3": b.k3, "octupole": oct,
		"aperture": b.aperture, "ogy_gain": b.gain, "capture_radius": b.capture,
		"target_x": b.target[0], "target_px": b.target[1],
		"target_y": b.target[2], "target_py": b.target[3],
	}
}

func (b Betatron) WithParam(n string, v float64) (dynamo.Field, error) {
	b.target = b.target.Clone()
	switch n {
	case "qx":
		b.qx = v
	case "qy":
		b.qy = v
	case "k2":
		b.k2 = v
	case "k3":
		b.k3 = v
	case "octupole":
		b.octupole = v != 0
	case "aperture":
		if v <= 0 {
			return nil, outOfBounds(b.Kind(), n, v, "aperture must be positive")
		}
		b.aperture = v
	case "ogy_gain":
		if v < 0 || v > 1 {
			return nil, outOfBounds(b.Kind(), n, v, "gain must lie in [0, 1]")
		}
		b.gain = v
	case "capture_radius":
		if v < 0 {
			return nil, outOfBounds(b.Kind(), n, v, "radius must be non-negative")
		}
		b.capture = v
	case "target_x":
		b.target[0] = v
	case "target_px":
		b.target[1] = v
	case "target_y":
		b.target[2] = v
	case "target_py":
		b.target[3] = v
	default:
		return nil, unknownParam(b.Kind(), n)
	}
	return admit(b.withPhases(), n, v)
}
