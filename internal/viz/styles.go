package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/chaoslab/internal/sim"
)

// Styles are the lipgloss styles derived from a theme.
type Styles struct {
	Theme  Theme
	Title  lipgloss.Style
	Panel  lipgloss.Style
	Plot   lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Muted  lipgloss.Style
	Error  lipgloss.Style
	phases map[sim.Phase]lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Theme: t,
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
		Plot:  lipgloss.NewStyle().Foreground(t.Secondary),
		Label: lipgloss.NewStyle().Foreground(t.Muted),
		Value: lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		Muted: lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		Error: lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		phases: map[sim.Phase]lipgloss.Style{
			sim.Idle:    lipgloss.NewStyle().Bold(true).Foreground(t.Muted),
			sim.Running: lipgloss.NewStyle().Bold(true).Foreground(t.Success),
			sim.Paused:  lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		},
	}
}

// Phase renders the session phase in its status colour.
func (s Styles) Phase(p sim.Phase) string {
	return s.phases[p].Render(strings.ToUpper(p.String()))
}

// Metric renders "label value" with a compact number format.
func (s Styles) Metric(label string, v float64) string {
	return s.Label.Render(label) + " " + s.Value.Render(FormatValue(v))
}

func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 0):
		if v > 0 {
			return "+inf"
		}
		return "-inf"
	case v != 0 && (math.Abs(v) < 1e-3 || math.Abs(v) >= 1e5):
		return fmt.Sprintf("%.3e", v)
	}
	return fmt.Sprintf("%.4f", v)
}

var sparkRunes = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders the last width values as block glyphs scaled to their
// range. Non-finite values render as a gap.
func Sparkline(values []float64, width int) string {
	if width < 1 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	span := hi - lo
	if span <= 0 || math.IsInf(span, 0) {
		span = 1
	}

	var b strings.Builder
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			b.WriteRune(' ')
			continue
		}
		idx := int((v - lo) / span * float64(len(sparkRunes)-1))
		b.WriteRune(sparkRunes[max(0, min(idx, len(sparkRunes)-1))])
	}
	if pad := width - len(values); pad > 0 {
		b.WriteString(strings.Repeat("─", pad))
	}
	return b.String()
}

// Box renders content in a rounded panel with a title line above it.
func (s Styles) Box(title, content string) string {
	return s.Title.Render(title) + "\n" + s.Panel.Render(content)
}
