package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/chaoslab/internal/config"
	"github.com/san-kum/chaoslab/internal/experiment"
	"github.com/san-kum/chaoslab/internal/sim"
)

func newModel(t *testing.T) *Model {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Ensemble.Initial = [][]float64{{1, 1, 1}, {1.0001, 1, 1}}
	exp, err := experiment.New(experiment.NewRegistry(), cfg, nil)
	if err != nil {
		t.Fatalf("experiment: %v", err)
	}
	m, err := New(exp, Options{FPS: 60})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return m
}

func press(m *Model, k string) {
	var msg tea.KeyMsg
	switch k {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	m.Update(msg)
}

func TestToggleCycle(t *testing.T) {
	m := newModel(t)
	if m.Session().Phase() != sim.Idle {
		t.Fatalf("initial phase %s", m.Session().Phase())
	}

	press(m, " ")
	if m.Session().Phase() != sim.Running {
		t.Fatalf("after space: %s", m.Session().Phase())
	}

	m.Update(frameMsg(time.Now()))
	m.Update(frameMsg(time.Now()))
	if m.Session().Frames() != 2 {
		t.Errorf("frames = %d, want 2", m.Session().Frames())
	}
	if m.tracker == nil || m.tracker.Len() != 2 {
		t.Errorf("tracker not sampling each frame")
	}

	press(m, " ")
	if m.Session().Phase() != sim.Paused {
		t.Fatalf("after second space: %s", m.Session().Phase())
	}
	m.Update(frameMsg(time.Now()))
	if m.Session().Frames() != 2 {
		t.Error("paused session advanced")
	}

	press(m, "r")
	if m.Session().Phase() != sim.Idle || m.Session().Frames() != 0 {
		t.Errorf("reset left phase %s frames %d", m.Session().Phase(), m.Session().Frames())
	}
}

func TestSpeedAndAxes(t *testing.T) {
	m := newModel(t)
	press(m, "+")
	press(m, "+")
	if m.Session().Speed() != 4 {
		t.Errorf("speed = %d, want 4", m.Session().Speed())
	}
	for i := 0; i < 5; i++ {
		press(m, "-")
	}
	if m.Session().Speed() != 1 {
		t.Errorf("speed = %d, want 1", m.Session().Speed())
	}

	press(m, "x")
	press(m, "x")
	press(m, "x")
	if m.xi != 0 {
		t.Errorf("x axis did not wrap: %d", m.xi)
	}
}

func TestAddRemoveTrajectory(t *testing.T) {
	m := newModel(t)
	press(m, "a")
	if n := m.Session().Ensemble().Len(); n != 3 {
		t.Fatalf("len = %d, want 3", n)
	}
	press(m, "d")
	press(m, "d")
	press(m, "d")
	if n := m.Session().Ensemble().Len(); n != 1 {
		t.Errorf("len = %d, want 1", n)
	}
	if m.tracker != nil {
		t.Error("tracker kept with a single trajectory")
	}
}

func TestParamEdit(t *testing.T) {
	m := newModel(t)
	press(m, "p")
	if !m.editing {
		t.Fatal("p did not open the parameter prompt")
	}
	for _, r := range "rho=14" {
		press(m, string(r))
	}
	press(m, "enter")

	if m.editing {
		t.Error("prompt still open")
	}
	if m.err != nil {
		t.Fatalf("applyParam: %v", m.err)
	}
	if rho := m.Session().Field().Params()["rho"]; rho != 14 {
		t.Errorf("rho = %v, want 14", rho)
	}

	if err := m.applyParam("rho"); err == nil {
		t.Error("expected error for missing value")
	}
	if err := m.applyParam("nope=1"); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestView(t *testing.T) {
	m := newModel(t)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	press(m, " ")
	m.Update(frameMsg(time.Now()))

	out := m.View()
	for _, want := range []string{"lorenz", "RUNNING", "rho=28"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
