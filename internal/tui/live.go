package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/chaoslab/internal/analysis"
	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/experiment"
	"github.com/san-kum/chaoslab/internal/sim"
	"github.com/san-kum/chaoslab/internal/viz"
)

const (
	defaultFPS = 30
	maxSpeed   = 1000
	sparkWidth = 40
	lyapWindow = 200
	addOffset  = 1e-3
)

type frameMsg time.Time

// Model is the live view: it owns one session and advances it one frame
// per tick while running.
type Model struct {
	exp     *experiment.Experiment
	sess    *sim.Session
	tracker *analysis.Tracker

	xi, yi int
	styles viz.Styles
	keys   keyMap
	help   help.Model
	input  textinput.Model

	editing  bool
	width    int
	height   int
	interval time.Duration
	status   string
	err      error
}

type Options struct {
	FPS    int
	Theme  string
	XIndex int
	YIndex int
}

func New(exp *experiment.Experiment, opts Options) (*Model, error) {
	sess, err := exp.NewSession()
	if err != nil {
		return nil, err
	}
	dim := exp.Field().Dim()
	if opts.XIndex >= dim || opts.YIndex >= dim {
		return nil, fmt.Errorf("axes %d,%d: %w", opts.XIndex, opts.YIndex, dynamo.ErrDimensionMismatch)
	}
	if opts.FPS <= 0 {
		opts.FPS = defaultFPS
	}
	theme, _ := viz.GetTheme(opts.Theme)

	ti := textinput.New()
	ti.Placeholder = "name=value"
	ti.CharLimit = 40
	ti.Width = 24

	m := &Model{
		exp:      exp,
		sess:     sess,
		xi:       opts.XIndex,
		yi:       opts.YIndex,
		styles:   viz.NewStyles(theme),
		keys:     defaultKeys(),
		help:     help.New(),
		input:    ti,
		width:    80,
		height:   24,
		interval: time.Second / time.Duration(opts.FPS),
	}
	if dim == 1 {
		m.yi = 0
	} else if m.xi == m.yi {
		m.yi = (m.xi + 1) % dim
	}
	m.rebindTracker()
	return m, nil
}

func (m *Model) Session() *sim.Session { return m.sess }

// rebindTracker follows the current ensemble; the first two trajectories
// form the divergence pair.
func (m *Model) rebindTracker() {
	m.tracker = nil
	ens := m.sess.Ensemble()
	if ens.Len() < 2 {
		return
	}
	tr, err := m.exp.Tracker(ens, 0, 1)
	if err == nil {
		m.tracker = tr
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *Model) Init() tea.Cmd { return m.tick() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case frameMsg:
		m.frame()
		return m, m.tick()

	case tea.KeyMsg:
		if m.editing {
			return m.updateInput(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) frame() {
	if m.sess.Phase() != sim.Running {
		return
	}
	r, err := m.sess.Frame()
	if err != nil {
		m.err = err
		return
	}
	if n := len(r.Divergences); n > 0 {
		m.status = fmt.Sprintf("%d trajectories diverged at t=%.3f", n, r.Time)
	}
	if m.tracker == nil {
		return
	}
	if _, err := m.tracker.Sample(); err != nil {
		if errors.Is(err, dynamo.ErrStaleEnsemble) {
			m.rebindTracker()
			return
		}
		if errors.Is(err, dynamo.ErrDivergent) {
			m.tracker = nil
		}
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		switch m.sess.Phase() {
		case sim.Idle:
			m.err = m.sess.Start()
		case sim.Running:
			m.err = m.sess.Pause()
		case sim.Paused:
			m.err = m.sess.Resume()
		}

	case key.Matches(msg, m.keys.Reset):
		m.err = m.sess.Reset()
		m.status = "reset"
		m.rebindTracker()

	case key.Matches(msg, m.keys.Faster):
		m.err = m.sess.SetSpeed(min(m.sess.Speed()*2, maxSpeed))

	case key.Matches(msg, m.keys.Slower):
		m.err = m.sess.SetSpeed(max(m.sess.Speed()/2, 1))

	case key.Matches(msg, m.keys.AxisX):
		m.xi = (m.xi + 1) % m.sess.Field().Dim()

	case key.Matches(msg, m.keys.AxisY):
		m.yi = (m.yi + 1) % m.sess.Field().Dim()

	case key.Matches(msg, m.keys.Add):
		m.addTrajectory()

	case key.Matches(msg, m.keys.Remove):
		ens := m.sess.Ensemble()
		if ens.Len() > 1 {
			m.err = ens.RemoveTrajectory(ens.Len() - 1)
			m.rebindTracker()
		}

	case key.Matches(msg, m.keys.Theme):
		m.styles = viz.NewStyles(viz.NextTheme(m.styles.Theme))

	case key.Matches(msg, m.keys.Param):
		m.editing = true
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// addTrajectory starts a new member next to the first one.
func (m *Model) addTrajectory() {
	ens := m.sess.Ensemble()
	x, err := ens.State(0)
	if err != nil {
		m.err = err
		return
	}
	x[0] += addOffset * float64(ens.Len())
	if _, err := ens.AddTrajectory(x); err != nil {
		m.err = err
		return
	}
	if ens.Len() == 2 {
		m.rebindTracker()
	}
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.editing = false
		m.input.Blur()
		m.err = m.applyParam(m.input.Value())
		return m, nil
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// applyParam parses "name=value" and swaps the session onto the new field.
func (m *Model) applyParam(s string) error {
	name, raw, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("parameter %s: %w", name, err)
	}
	f, err := dynamo.WithParams(m.sess.Field(), map[string]float64{strings.TrimSpace(name): v})
	if err != nil {
		return err
	}
	if err := m.sess.SetField(f); err != nil {
		return err
	}
	m.status = fmt.Sprintf("%s = %g", name, v)
	m.rebindTracker()
	return nil
}

func (m *Model) View() string {
	s := m.styles
	ens := m.sess.Ensemble()
	field := m.sess.Field()

	header := s.Title.Render(fmt.Sprintf("chaoslab · %s", field.Kind())) + "  " +
		s.Phase(m.sess.Phase()) + "  " + s.Label.Render(field.Params().String())

	cw := max(m.width-4, 20)
	ch := max(m.height-10, 6)
	canvas, _, err := viz.Portrait(ens.Snapshots(), m.xi, m.yi, cw, ch, dynamo.IsDiscrete(field))
	var plotView string
	if err != nil {
		plotView = s.Error.Render(err.Error())
	} else {
		plotView = s.Plot.Render(strings.Join(canvas.Lines(), "\n"))
	}

	stats := []string{
		s.Metric("t", ens.Time()),
		s.Metric("frames", float64(m.sess.Frames())),
		s.Metric("live", float64(ens.Live())) + s.Label.Render(fmt.Sprintf("/%d", ens.Len())),
		s.Metric("speed", float64(m.sess.Speed())),
		s.Label.Render(fmt.Sprintf("axes x%d,x%d", m.xi, m.yi)),
	}
	lines := []string{header, s.Panel.Render(plotView), strings.Join(stats, "  ")}

	if m.tracker != nil && m.tracker.Len() > 0 {
		samples := m.tracker.Samples()
		logs := make([]float64, len(samples))
		for i, d := range samples {
			logs[i] = d.Log10
		}
		line := s.Label.Render("log10 d ") + s.Plot.Render(viz.Sparkline(logs, sparkWidth))
		if lambda, err := m.tracker.EstimateLyapunov(lyapWindow); err == nil {
			line += "  " + s.Metric("λ", lambda)
		}
		lines = append(lines, line)
	}

	switch {
	case m.editing:
		lines = append(lines, s.Label.Render("param ")+m.input.View())
	case m.err != nil:
		lines = append(lines, s.Error.Render(m.err.Error()))
	case m.status != "":
		lines = append(lines, s.Muted.Render(m.status))
	}
	lines = append(lines, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Run blocks until the user quits.
func Run(m *Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
