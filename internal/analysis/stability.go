package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// Stability classifies a fixed point by the eigenvalues of its Jacobian.
type Stability int

const (
	StableNode Stability = iota
	StableFocus
	UnstableNode
	UnstableFocus
	Saddle
	NonHyperbolic
)

var stabilityNames = [...]string{
	StableNode:    "stable node",
	StableFocus:   "stable focus",
	UnstableNode:  "unstable node",
	UnstableFocus: "unstable focus",
	Saddle:        "saddle",
	NonHyperbolic: "non-hyperbolic",
}

func (s Stability) String() string {
	if s < 0 || int(s) >= len(stabilityNames) {
		return fmt.Sprintf("Stability(%d)", int(s))
	}
	return stabilityNames[s]
}

func (s Stability) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Stable reports whether nearby states converge to the point.
func (s Stability) Stable() bool { return s == StableNode || s == StableFocus }

const hyperbolicTol = 1e-9

// Classify reads the eigenvalues of a flow's Jacobian by the sign of their
// real parts, or of a map's Jacobian by their modulus against 1.
func Classify(eigenvalues []complex128, discrete bool) Stability {
	var in, out int
	rotating := false
	for _, l := range eigenvalues {
		growth := real(l)
		if discrete {
			growth = cmplx.Abs(l) - 1
		}
		switch {
		case math.Abs(growth) < hyperbolicTol:
			return NonHyperbolic
		case growth < 0:
			in++
		default:
			out++
		}
		if math.Abs(imag(l)) > hyperbolicTol {
			rotating = true
		}
	}
	switch {
	case out == 0 && rotating:
		return StableFocus
	case out == 0:
		return StableNode
	case in == 0 && rotating:
		return UnstableFocus
	case in == 0:
		return UnstableNode
	}
	return Saddle
}

// FixedPoint is one equilibrium with its linear stability.
type FixedPoint struct {
	State       dynamo.State `json:"state"`
	Eigenvalues []complex128 `json:"-"`
	Stability   Stability    `json:"stability"`
}

// Eigenvalues returns the eigenvalues of the Dim×Dim row-major matrix jac.
func Eigenvalues(jac []float64, dim int) ([]complex128, error) {
	if len(jac) != dim*dim {
		return nil, fmt.Errorf("%w: jacobian has %d entries, want %d", dynamo.ErrDimensionMismatch, len(jac), dim*dim)
	}
	var eig mat.Eigen
	if !eig.Factorize(mat.NewDense(dim, dim, jac), mat.EigenNone) {
		return nil, fmt.Errorf("eigendecomposition did not converge")
	}
	return eig.Values(nil), nil
}

// FixedPoints linearizes f at each of its closed-form fixed points. Points
// that are not finite are skipped.
func FixedPoints(f dynamo.Field) ([]FixedPoint, error) {
	lin, ok := f.(dynamo.Linearizable)
	if !ok {
		return nil, fmt.Errorf("%s has no closed-form fixed points", f.Kind())
	}
	discrete := dynamo.IsDiscrete(f)

	var out []FixedPoint
	for _, x := range lin.FixedPoints() {
		if !x.IsValid() {
			continue
		}
		vals, err := Eigenvalues(lin.Jacobian(x), f.Dim())
		if err != nil {
			return nil, fmt.Errorf("fixed point %v: %w", x, err)
		}
		out = append(out, FixedPoint{State: x, Eigenvalues: vals, Stability: Classify(vals, discrete)})
	}
	return out, nil
}
