package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/ecology"
	"github.com/san-kum/popdyn/internal/metrics"
	"github.com/san-kum/popdyn/internal/sim"
)

const (
	width      = 60
	height     = 16
	chartTail  = 400
	driftTrail = 120
)

type TickMsg time.Time

// Model is the live view of one session. The session is advanced only
// from Update, so it needs no locking.
type Model struct {
	sess     *sim.Session
	interval time.Duration
	canvas   *Canvas

	paramKeys []string
	selected  int
	// set by a parameter edit, cleared by reset
	dirty bool

	phase     bool
	showHelp  bool
	drift     []float64
	lastError error
}

func NewModel(sess *sim.Session, interval time.Duration) Model {
	if interval <= 0 {
		interval = dynamo.DefaultTickInterval
	}
	return Model{
		sess:      sess,
		interval:  interval,
		canvas:    NewCanvas(width, height),
		paramKeys: ecology.ParamNames(sess.Model()),
		drift:     make([]float64, 0, driftTrail),
	}
}

func (m Model) Session() *sim.Session { return m.sess }

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.sess.Running() {
				m.sess.Pause()
			} else {
				m.sess.Start()
			}
		case "r":
			m.reset()
		case "m":
			m.switchModel()
		case "tab", "down", "j":
			m.cycleParam(1)
		case "shift+tab", "up", "k":
			m.cycleParam(-1)
		case "+", "=", "right", "l":
			m.adjustParam(1.05)
		case "-", "_", "left", "h":
			m.adjustParam(0.95)
		case "p":
			m.phase = !m.phase
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.sess.Running() {
			snap, err := m.sess.Tick()
			if err != nil {
				m.lastError = err
			} else if snap.Conservation != nil {
				m.drift = append(m.drift, snap.Conservation.DriftPercent)
				if len(m.drift) > driftTrail {
					m.drift = m.drift[1:]
				}
			}
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) reset() {
	m.lastError = m.sess.Reset()
	if m.lastError == nil {
		m.dirty = false
		m.drift = m.drift[:0]
	}
}

func (m *Model) switchModel() {
	next := dynamo.PredatorPrey
	if m.sess.Model() == dynamo.PredatorPrey {
		next = dynamo.Competition
	}
	m.lastError = m.sess.SetModel(next)
	if m.lastError == nil {
		m.paramKeys = ecology.ParamNames(next)
		m.selected = 0
		m.dirty = false
		m.drift = m.drift[:0]
	}
}

func (m *Model) cycleParam(dir int) {
	n := len(m.paramKeys)
	if n == 0 {
		return
	}
	m.selected = ((m.selected+dir)%n + n) % n
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.sess.Params().GetParams()[key]
	next := val * factor
	if val == 0 {
		next = math.Copysign(0.01, factor-1)
	}
	m.lastError = m.sess.SetParameter(key, next)
	if m.lastError == nil {
		m.dirty = true
	}
}

func (m Model) View() string {
	snap := m.sess.SnapshotTail(chartTail)

	var left string
	if m.phase {
		left = canvasStyle.Render(m.drawPhase(snap.History))
	} else {
		left = canvasStyle.Render(m.drawChart(snap.History))
	}

	var s strings.Builder
	title := "COMPETITION"
	if snap.Model == dynamo.PredatorPrey {
		title = "PREDATOR-PREY"
	}
	s.WriteString(headerStyle().Render(title) + "  " + m.statusBadge(snap) + "\n\n")

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2f", snap.ElapsedTime)) + "\n")
	s.WriteString(labelStyle.Render("Steps") + valueStyle.Render(fmt.Sprintf("%d", snap.Steps)) + "\n")
	s.WriteString(labelStyle.Render("N1") + lipgloss.NewStyle().Foreground(CurrentTheme.Prey).Render(formatPop(snap.State.N1)) + "\n")
	s.WriteString(labelStyle.Render("N2") + lipgloss.NewStyle().Foreground(CurrentTheme.Pred).Render(formatPop(snap.State.N2)) + "\n")

	if c := snap.Conservation; c != nil {
		color := CurrentTheme.Success
		if !c.IsConserved {
			color = CurrentTheme.Error
		}
		s.WriteString(labelStyle.Render("H drift") + lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%.4f%%", c.DriftPercent)) + "\n")
		if len(m.drift) > 1 {
			s.WriteString(labelStyle.Render("") + lipgloss.NewStyle().Foreground(CurrentTheme.Muted).Render(SparklineChart(m.drift, 30)) + "\n")
		}
	}

	s.WriteString("\n" + m.warningsView(snap.Warnings))

	s.WriteString("\nPARAMETERS\n")
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-6s %10.4g", k, snap.Parameters[k])
		if i == m.selected {
			s.WriteString(activeParamStyle().Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + valueStyle.Render(line) + "\n")
		}
	}
	if m.dirty {
		s.WriteString(lipgloss.NewStyle().Foreground(CurrentTheme.Warning).Render("edited: press R to restart with new values") + "\n")
	}
	if m.lastError != nil {
		s.WriteString(lipgloss.NewStyle().Foreground(CurrentTheme.Error).Render(m.lastError.Error()) + "\n")
	}

	s.WriteString(helpStyle.Render("SP:Start/Pause R:Reset M:Model Q:Quit\nTab:Select +/-:Tune P:Phase T:Theme ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, left, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpOverlay + "\n\n" + mainView
	}
	return mainView
}

const helpOverlay = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Start/Pause simulation   ║
║  R        - Reset with current params║
║  M        - Switch model             ║
║  Q        - Quit                     ║
║  Tab/J    - Next parameter           ║
║  K        - Previous parameter       ║
║  + / -    - Adjust parameter (5%)    ║
║  P        - Toggle phase plane       ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

func (m Model) statusBadge(snap sim.Snapshot) string {
	if snap.Running {
		return Badge("RUNNING", CurrentTheme.Success)
	}
	return Badge("PAUSED", CurrentTheme.Warning)
}

func (m Model) warningsView(w metrics.Warnings) string {
	if !w.Any() {
		return Badge("REALISTIC", CurrentTheme.Success) + "\n"
	}
	var b strings.Builder
	var badges []string
	if w.NearExtinction {
		badges = append(badges, Badge("NEAR-EXTINCTION", CurrentTheme.Error))
	}
	if w.AttoFoxProblem {
		badges = append(badges, Badge("ATTO-FOX", CurrentTheme.Warning))
	}
	if w.HasErrors() {
		badges = append(badges, Badge("IMPLAUSIBLE", CurrentTheme.Error))
	}
	if len(badges) > 0 {
		b.WriteString(strings.Join(badges, " ") + "\n")
	}
	for _, msg := range w.Messages {
		color := CurrentTheme.Warning
		if strings.HasPrefix(msg, "error:") {
			color = CurrentTheme.Error
		}
		b.WriteString(lipgloss.NewStyle().Foreground(color).Width(46).Render(msg) + "\n")
	}
	return b.String()
}

func (m Model) drawChart(hist []dynamo.TrajectoryPoint) string {
	if len(hist) < 2 {
		return "waiting for data…"
	}
	n1 := make([]float64, len(hist))
	n2 := make([]float64, len(hist))
	for i, p := range hist {
		n1[i], n2[i] = p.N1, p.N2
	}
	return asciigraph.PlotMany([][]float64{n1, n2},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red),
		asciigraph.Caption("N1 (green)  N2 (red)"),
	)
}

// drawPhase plots the trajectory in the (N1, N2) plane, scaled to the
// largest population seen.
func (m Model) drawPhase(hist []dynamo.TrajectoryPoint) string {
	m.canvas.Clear()
	if len(hist) == 0 {
		return m.canvas.String()
	}
	xmax, ymax := 0.0, 0.0
	for _, p := range hist {
		xmax = math.Max(xmax, p.N1)
		ymax = math.Max(ymax, p.N2)
	}
	xmax *= 1.05
	ymax *= 1.05

	px, py := m.canvas.Project(hist[0].N1, hist[0].N2, xmax, ymax)
	for _, p := range hist[1:] {
		x, y := m.canvas.Project(p.N1, p.N2, xmax, ymax)
		m.canvas.DrawLine(px, py, x, y)
		px, py = x, y
	}
	caption := fmt.Sprintf("N1 → (max %.3g)   N2 ↑ (max %.3g)", xmax, ymax)
	return m.canvas.String() + lipgloss.NewStyle().Foreground(CurrentTheme.Muted).Render(caption)
}

func formatPop(v float64) string {
	if v != 0 && (v < 1e-2 || v >= 1e6) {
		return fmt.Sprintf("%.3e", v)
	}
	return fmt.Sprintf("%.3f", v)
}
