package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/keplersim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestProject(t *testing.T) {
	x, y := project(0, 0, 1, 70, 24)
	if x != 35 || y != 12 {
		t.Errorf("origin at (%d, %d), want (35, 12)", x, y)
	}

	// the full extent reaches the top edge but stays on the canvas
	x, y = project(1, 1, 1, 70, 24)
	if x != 59 || y != 0 {
		t.Errorf("corner at (%d, %d), want (59, 0)", x, y)
	}
}

func TestExtentOf(t *testing.T) {
	ps := dynamo.NewParticles(
		dynamo.Particle{Mass: 1},
		dynamo.Particle{Pos: r3.Vec{X: 2, Y: -3}},
	)
	if got := extentOf(ps); got != 3.75 {
		t.Errorf("extent = %v, want 3.75", got)
	}
	if got := extentOf(dynamo.NewParticles(dynamo.Particle{Mass: 1})); got != 1 {
		t.Errorf("single particle extent = %v, want 1", got)
	}
}

func TestSparkline(t *testing.T) {
	if got := sparkline(nil, 10); got != "" {
		t.Errorf("empty sparkline %q", got)
	}
	got := sparkline([]float64{0, 1}, 10)
	if got != "▁█" {
		t.Errorf("sparkline = %q", got)
	}
}

func TestLiveRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewLiveRenderer("circular", 1000)
	r.out = &buf

	ps := dynamo.NewParticles(
		dynamo.Particle{Mass: 1},
		dynamo.Particle{Pos: r3.Vec{X: 1}, Vel: r3.Vec{Y: 1}},
	)
	r.OnStep(dynamo.Clock{T: 0.5, Step: 3}, ps)

	out := buf.String()
	if !strings.Contains(out, "circular  t=0.50  step=3") {
		t.Errorf("missing header in %q", out)
	}
	if !strings.Contains(out, "*") || !strings.Contains(out, "o") {
		t.Error("expected both bodies on the canvas")
	}

	// frames closer together than the frame rate are dropped
	buf.Reset()
	r.frameRate = 1
	r.lastFrame = time.Now()
	r.OnStep(dynamo.Clock{T: 0.6, Step: 4}, ps)
	if buf.Len() != 0 {
		t.Error("expected frame to be skipped")
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(model)
}

func TestInteractiveFlow(t *testing.T) {
	m := *NewInteractiveApp()
	if m.state != stateMenu {
		t.Fatal("expected menu")
	}
	if !strings.Contains(m.View(), "keplertest") {
		t.Error("menu does not list presets")
	}

	m = send(t, m, key("j"))
	m = send(t, m, key("k"))
	m = send(t, m, key("enter"))
	if m.state != stateConfig || m.selected != m.presets[0] {
		t.Fatalf("expected config for %s, got state %d (%s)", m.presets[0], m.state, m.selected)
	}

	m = send(t, m, key("s"))
	if m.state != stateSim || !m.running {
		t.Fatalf("expected running simulation, err %v", m.err)
	}

	m = send(t, m, tickMsg(time.Now()))
	if step := m.exp.Clock().Step; step != 1 {
		t.Errorf("expected one step, got %d", step)
	}
	if len(m.trails[1]) != 1 {
		t.Errorf("expected one trail point, got %d", len(m.trails[1]))
	}
	if !strings.Contains(m.View(), "running") {
		t.Error("sim view missing status")
	}

	m = send(t, m, key("p"))
	m = send(t, m, tickMsg(time.Now()))
	if step := m.exp.Clock().Step; step != 1 {
		t.Errorf("paused simulation stepped to %d", step)
	}

	m = send(t, m, key("q"))
	if m.state != stateMenu || m.exp != nil {
		t.Error("expected return to menu")
	}
}

func TestInteractiveBadSettings(t *testing.T) {
	m := *NewInteractiveApp()
	m = send(t, m, key("enter"))
	m.params["dt"] = 0

	m = send(t, m, key("s"))
	if m.state != stateConfig || m.err == nil {
		t.Error("expected to stay in config with an error")
	}
	if !strings.Contains(m.View(), "dt") {
		t.Error("config view missing parameter")
	}
}
