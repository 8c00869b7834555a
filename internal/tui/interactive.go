package tui

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/keplersim/internal/config"
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/experiment"
	"github.com/san-kum/keplersim/internal/metrics"
	"github.com/san-kum/keplersim/internal/orbit"
	"github.com/san-kum/keplersim/internal/sim"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var presetInfo = map[string]string{
	"circular":   "one body, circular orbit",
	"eccentric":  "e = 0.6, inclined",
	"keplertest": "two-body drift check",
	"solar":      "jupiter and saturn",
	"migration":  "damped, migrating pair",
	"comparison": "leapfrog baseline",
}

const (
	trailLen   = 120
	historyLen = 60
)

type state int

const (
	stateMenu state = iota
	stateConfig
	stateSim
)

type model struct {
	state    state
	cursor   int
	presets  []string
	selected string

	params      map[string]float64
	paramNames  []string
	paramCursor int
	editing     bool
	editBuf     string

	running   bool
	paused    bool
	exp       *experiment.Experiment
	seq       *sim.Sequence
	energy    *metrics.EnergyDrift
	flagged   int
	err       error
	extent    float64
	speed     float64
	trails    [][]trailPoint
	history   []float64
	lastFrame time.Time
	fps       float64

	width  int
	height int
}

type trailPoint struct {
	x, y  float64
	speed float64
}

func NewInteractiveApp() *model {
	return &model{
		state:      stateMenu,
		presets:    config.ListPresets(),
		params:     map[string]float64{"dt": config.DefaultDt, "duration": config.DefaultDuration},
		paramNames: []string{"dt", "duration"},
		speed:      1.0,
		width:      80,
		height:     24,
	}
}

func (m model) Init() tea.Cmd { return nil }

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.state != stateSim {
			return m, nil
		}
		if m.running && !m.paused && m.seq != nil {
			now := time.Now()
			if !m.lastFrame.IsZero() {
				if dt := now.Sub(m.lastFrame).Seconds(); dt > 0 {
					m.fps = 1.0 / dt
				}
			}
			m.lastFrame = now
			steps := int(m.speed)
			if steps < 1 {
				steps = 1
			}
			for i := 0; i < steps && !m.paused; i++ {
				m.step()
			}
		}
		if m.running {
			return m, tick()
		}
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		return m.simKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selectPreset(m.presets[m.cursor])
	}
	return m, nil
}

func (m *model) selectPreset(name string) {
	m.selected = name
	m.state = stateConfig
	m.paramCursor = 0
	m.err = nil
	if cfg := config.GetPreset(name); cfg != nil {
		m.params["dt"] = cfg.Dt
		m.params["duration"] = cfg.Duration
	}
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			var val float64
			if _, err := fmt.Sscanf(m.editBuf, "%g", &val); err == nil {
				m.params[m.paramNames[m.paramCursor]] = val
			}
			m.editing = false
			m.editBuf = ""
		case "esc":
			m.editing = false
			m.editBuf = ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == 'e' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(m.paramNames)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing = true
		m.editBuf = fmt.Sprintf("%g", m.params[m.paramNames[m.paramCursor]])
	case "s":
		if err := m.start(); err != nil {
			m.err = err
			return m, nil
		}
		m.state = stateSim
		return m, tea.Batch(tea.ClearScreen, tick())
	case "left", "h":
		m.params[m.paramNames[m.paramCursor]] /= 2
	case "right", "l":
		m.params[m.paramNames[m.paramCursor]] *= 2
	}
	return m, nil
}

func (m model) simKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.running = false
		m.state = stateMenu
		m.reset()
		return m, tea.ClearScreen
	case " ", "p":
		m.paused = !m.paused
	case "r":
		if err := m.start(); err != nil {
			m.err = err
		}
		return m, tea.ClearScreen
	case "c":
		m.running = false
		m.state = stateConfig
		m.reset()
		return m, tea.ClearScreen
	case "+", "=":
		m.speed = math.Min(m.speed*2, 64)
	case "-", "_":
		m.speed = math.Max(m.speed/2, 1)
	case "0":
		m.speed = 1.0
	}
	return m, nil
}

func (m *model) start() error {
	cfg := config.GetPreset(m.selected)
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s", m.selected)
	}
	cfg.Dt = m.params["dt"]
	cfg.Duration = m.params["duration"]

	exp := experiment.New(cfg, slog.New(slog.DiscardHandler))
	if err := exp.Setup(); err != nil {
		return err
	}

	ps := exp.Scenario().Particles
	m.exp = exp
	m.seq = exp.Sequence()
	m.energy = metrics.NewEnergyDrift(experiment.InvariantsFor(cfg.Integrator), cfg.Softening)
	m.energy.Observe(*exp.Clock(), ps)
	m.extent = extentOf(ps)
	m.trails = make([][]trailPoint, ps.Len())
	m.history = make([]float64, 0, historyLen)
	m.flagged = 0
	m.err = nil
	m.speed = 1.0
	m.lastFrame = time.Time{}
	m.running = true
	m.paused = false
	return nil
}

func (m *model) reset() {
	m.exp = nil
	m.seq = nil
	m.energy = nil
	m.trails = nil
	m.history = nil
}

func (m *model) step() {
	clock := m.exp.Clock()
	if clock.T >= m.params["duration"] {
		m.paused = true
		return
	}

	outcomes, err := m.seq.Step()
	m.flagged += len(dynamo.Failures(outcomes))
	if err != nil {
		m.err = err
		m.paused = true
		return
	}

	ps := m.exp.Scenario().Particles
	m.energy.Observe(*clock, ps)

	for i := 0; i < ps.Len(); i++ {
		p := ps.At(i)
		m.trails[i] = append(m.trails[i], trailPoint{p.Pos.X, p.Pos.Y, math.Hypot(p.Vel.X, p.Vel.Y)})
		if len(m.trails[i]) > trailLen {
			m.trails[i] = m.trails[i][1:]
		}
	}

	if ps.Len() > 1 {
		ref := ps.Reference()
		body := 0
		if ref == 0 {
			body = 1
		}
		if el, err := orbit.FromParticle(clock.G, ps.At(body), ps.At(ref)); err == nil {
			m.history = append(m.history, el.A)
			if len(m.history) > historyLen {
				m.history = m.history[1:]
			}
		}
	}
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.viewSim()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("          " + cyan.Render("k e p l e r s i m") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, name := range m.presets {
		desc := presetInfo[name]
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-14s", name)) + dim.Render(desc) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-14s", name)) + dimmer.Render(desc) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter start   q quit") + "\n")

	return b.String()
}

func (m model) viewConfig() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("      " + cyan.Render(m.selected) + "  " + dim.Render(presetInfo[m.selected]) + "\n")
	b.WriteString(dimmer.Render("      "+strings.Repeat("─", 30)) + "\n\n")

	for i, name := range m.paramNames {
		val := fmt.Sprintf("%10.4g", m.params[name])
		if m.editing && i == m.paramCursor {
			val = fmt.Sprintf("%10s", m.editBuf+"▋")
		}
		if i == m.paramCursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-10s", name)) + magenta.Render(val) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-10s", name)) + dim.Render(val) + "\n")
		}
	}

	if m.err != nil {
		b.WriteString("\n      " + red.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select  ←→ halve/double  enter edit  s start  esc back") + "\n")

	return b.String()
}

func (m model) viewSim() string {
	cw := m.width - 6
	ch := m.height - 12
	if cw < 50 {
		cw = 50
	}
	if ch < 12 {
		ch = 12
	}

	canvas := newCanvas(cw, ch)
	if m.exp != nil {
		m.drawOrbits(canvas, cw, ch)
	}

	var b strings.Builder

	statusIcon := green.Render("●")
	statusText := green.Render("running")
	if m.paused {
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("paused")
	}
	name := m.selected
	if m.exp != nil {
		name += " " + dim.Render(m.exp.Integrator().Name())
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s\n", statusIcon, cyan.Render(name), statusText))

	var t float64
	if m.exp != nil {
		t = m.exp.Clock().T
	}
	progress := math.Min(t/m.params["duration"], 1)
	barWidth := 36
	filled := int(progress * float64(barWidth))
	timeStr := fmt.Sprintf("t=%.2f/%.0f", t, m.params["duration"])
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	b.WriteString(fmt.Sprintf("   %s %s  %s  %s\n\n", bar, dim.Render(timeStr),
		dim.Render(fmt.Sprintf("x%.0f", m.speed)), dim.Render(fmt.Sprintf("%.0ffps", m.fps))))

	for _, row := range canvas {
		b.WriteString("   " + string(row) + "\n")
	}

	if m.energy != nil {
		b.WriteString(fmt.Sprintf("\n   %s %s  %s %s  %s %s\n",
			dim.Render("E"), white.Render(fmt.Sprintf("%.6g", m.energy.Current())),
			dim.Render("|dE/E|"), magenta.Render(fmt.Sprintf("%.2e", m.energy.Value())),
			dim.Render("flagged"), flaggedStyle(m.flagged).Render(fmt.Sprintf("%d", m.flagged))))
	}

	if len(m.history) > 1 {
		b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("a"), cyan.Render(sparkline(m.history, 24))))
	}

	if m.err != nil {
		b.WriteString("   " + red.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + dim.Render("   space pause  ±speed  r restart  c config  q quit") + "\n")

	return b.String()
}

func flaggedStyle(n int) lipgloss.Style {
	if n > 0 {
		return red
	}
	return green
}

func (m model) drawOrbits(canvas [][]rune, w, h int) {
	ps := m.exp.Scenario().Particles
	ref := ps.Reference()

	for i, trail := range m.trails {
		if i == ref {
			continue
		}
		maxV := 0.0
		for _, pt := range trail {
			maxV = math.Max(maxV, pt.speed)
		}
		for _, pt := range trail {
			x, y := project(pt.x, pt.y, m.extent, w, h)
			set(canvas, x, y, trailChar(pt.speed, maxV), w, h)
		}
	}

	for i := 0; i < ps.Len(); i++ {
		p := ps.At(i)
		x, y := project(p.Pos.X, p.Pos.Y, m.extent, w, h)
		c := '⬤'
		if i == ref {
			c = '✶'
		}
		set(canvas, x, y, c, w, h)
	}
}

// RunInteractive starts the preset browser. A non-empty preset skips the
// menu and opens that preset's settings.
func RunInteractive(preset string) error {
	app := NewInteractiveApp()
	if preset != "" {
		if config.GetPreset(preset) == nil {
			return fmt.Errorf("unknown preset: %s", preset)
		}
		app.selectPreset(preset)
	}
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
