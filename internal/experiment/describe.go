package experiment

import (
	"fmt"
	"math"
	"strings"
)

type modelDoc struct {
	summary   string
	equations []string
}

var docs = map[string]modelDoc{
	"vanderpol": {"Self-sustained relaxation oscillator with a stable limit cycle.",
		[]string{"dx/dt = y", "dy/dt = μ(1 - x²)y - x"}},
	"lorenz": {"Convection model whose butterfly attractor is the classic example of chaos.",
		[]string{"dx/dt = σ(y - x)", "dy/dt = x(ρ - z) - y", "dz/dt = xy - βz"}},
	"duffing": {"Periodically forced oscillator in a double-well potential.",
		[]string{"dx/dt = y", "dy/dt = -γy - αx - βx³ + F cos(ωt)"}},
	"logistic": {"One-dimensional map with a period-doubling route to chaos.",
		[]string{"x' = r x (1 - x)"}},
	"betatron": {"Transverse particle motion in a storage ring: sextupole and octupole kicks followed by a linear rotation.",
		[]string{"px += k2(x² - y²) + k3·x(x² + y²)", "py += -2·k2·xy + k3·y(x² + y²)", "(x, px) and (y, py) rotate by 2πqx and 2πqy"}},
	"rossler": {"Spiral-type chaotic flow with a single nonlinear term.",
		[]string{"dx/dt = -y - z", "dy/dt = x + ay", "dz/dt = b + z(x - c)"}},
	"henon": {"Two-dimensional quadratic map with a fractal strange attractor.",
		[]string{"x' = 1 - a x² + y", "y' = b x"}},
	"hopf": {"Normal form of the Hopf bifurcation: a limit cycle of radius √μ appears for μ > 0.",
		[]string{"dx/dt = μx - y - x(x² + y²)", "dy/dt = x + μy - y(x² + y²)"}},
	"pendulum": {"Simple pendulum with optional linear damping.",
		[]string{"dθ/dt = ω", "dω/dt = -(g/L) sin θ - damping·ω"}},
}

// Markdown renders the model description as a markdown document.
func (m ModelInfo) Markdown() string {
	var b strings.Builder
	kind := "flow"
	if m.Discrete {
		kind = "map"
	}
	fmt.Fprintf(&b, "# %s\n\n", m.Name)
	if m.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", m.Summary)
	}
	fmt.Fprintf(&b, "A %d-dimensional %s.\n\n", m.Dim, kind)

	if len(m.Equations) > 0 {
		b.WriteString("```\n")
		for _, eq := range m.Equations {
			b.WriteString(eq)
			b.WriteByte('\n')
		}
		b.WriteString("```\n\n")
	}

	b.WriteString("| parameter | default |\n|---|---|\n")
	for _, name := range m.Params.Names() {
		fmt.Fprintf(&b, "| %s | %g |\n", name, m.Params[name])
	}
	fmt.Fprintf(&b, "\nDefault state: `%v`\n", m.DefaultState)

	if len(m.FixedPoints) > 0 {
		b.WriteString("\n## Fixed points\n\n| state | eigenvalues | stability |\n|---|---|---|\n")
		for _, fp := range m.FixedPoints {
			var eig []string
			for _, l := range fp.Eigenvalues {
				if imag(l) >= -1e-12 {
					eig = append(eig, formatEigenvalue(l))
				}
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", formatState(fp.State), strings.Join(eig, ", "), fp.Stability)
		}
	}
	if m.CycleRadius > 0 {
		fmt.Fprintf(&b, "\nLimit cycle radius: %.4g\n", m.CycleRadius)
	}

	if len(m.Presets) > 0 {
		b.WriteString("\n## Presets\n\n")
		for _, p := range m.Presets {
			fmt.Fprintf(&b, "- `%s`\n", p)
		}
	}
	return b.String()
}

func formatState(x []float64) string {
	parts := make([]string, len(x))
	for i, v := range x {
		parts[i] = fmt.Sprintf("%.4g", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatEigenvalue(l complex128) string {
	if math.Abs(imag(l)) < 1e-12 {
		return fmt.Sprintf("%.4g", real(l))
	}
	return fmt.Sprintf("%.4g±%.4gi", real(l), math.Abs(imag(l)))
}
