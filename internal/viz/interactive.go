package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/popdyn/internal/config"
	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/sim"
)

var modelInfo = map[dynamo.ModelKind]string{
	dynamo.Competition:  "two species, shared resources",
	dynamo.PredatorPrey: "closed orbits, conserved H",
}

const (
	stateMenu = iota
	statePreset
	stateSim
)

// App walks through model and preset selection, then runs the live view.
type App struct {
	state, cursor int
	models        []dynamo.ModelKind
	selected      dynamo.ModelKind
	presets       []string
	opts          sim.Options
	interval      time.Duration
	live          Model
	err           error
}

func NewApp(opts sim.Options, interval time.Duration) App {
	return App{
		state:    stateMenu,
		models:   []dynamo.ModelKind{dynamo.PredatorPrey, dynamo.Competition},
		opts:     opts,
		interval: interval,
	}
}

func (a App) Init() tea.Cmd { return nil }

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.state == stateSim {
		next, cmd := a.live.Update(msg)
		a.live = next.(Model)
		return a, cmd
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}
	switch key.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "q", "esc":
		if a.state == statePreset {
			a.state, a.cursor = stateMenu, 0
			return a, nil
		}
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < a.entries()-1 {
			a.cursor++
		}
	case "enter", " ":
		return a.choose()
	}
	return a, nil
}

func (a App) entries() int {
	if a.state == statePreset {
		// the configured defaults come first
		return len(a.presets) + 1
	}
	return len(a.models)
}

func (a App) choose() (App, tea.Cmd) {
	if a.state == stateMenu {
		a.selected = a.models[a.cursor]
		a.presets = config.ListPresets(a.selected)
		a.state, a.cursor = statePreset, 0
		return a, nil
	}

	var (
		sess *sim.Session
		err  error
	)
	if a.cursor == 0 {
		sess, err = sim.NewModel(a.selected, a.opts)
	} else {
		sess, err = sim.New(config.GetPreset(a.selected, a.presets[a.cursor-1]), a.opts)
	}
	if err != nil {
		a.err = err
		return a, nil
	}
	a.live = NewModel(sess, a.interval)
	a.state = stateSim
	return a, a.live.Init()
}

func (a App) View() string {
	switch a.state {
	case stateMenu:
		return a.viewMenu()
	case statePreset:
		return a.viewPresets()
	}
	return a.live.View()
}

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	subStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	cursorMark = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true).Render("▸")
	itemOn     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	itemOff    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	descOn     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	descOff    = lipgloss.NewStyle().Foreground(lipgloss.Color("#444455"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

func (a App) header(title, sub string) string {
	return "\n\n    " + titleStyle.Render(title) + "\n    " + subStyle.Render(sub) + "\n    " + subStyle.Render("─────────────────────────") + "\n\n"
}

func (a App) item(b *strings.Builder, i int, name, desc string) {
	if i == a.cursor {
		b.WriteString(fmt.Sprintf("    %s %s  %s\n", cursorMark, itemOn.Render(fmt.Sprintf("%-16s", name)), descOn.Render(desc)))
		return
	}
	b.WriteString(fmt.Sprintf("    %s  %s\n", itemOff.Render(fmt.Sprintf("  %-16s", name)), descOff.Render(desc)))
}

func hints(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(keyStyle.Render(pairs[i]) + subStyle.Render(" "+pairs[i+1]+"  "))
	}
	return "\n    " + b.String() + "\n"
}

func (a App) viewMenu() string {
	var b strings.Builder
	b.WriteString(a.header("POPDYN", "population dynamics engine"))
	for i, kind := range a.models {
		a.item(&b, i, kind.String(), modelInfo[kind])
	}
	b.WriteString(hints("j/k", "navigate", "enter", "select", "q", "quit"))
	return b.String()
}

func (a App) viewPresets() string {
	var b strings.Builder
	b.WriteString(a.header(strings.ToUpper(a.selected.String()), modelInfo[a.selected]))
	a.item(&b, 0, "defaults", "configured parameters")
	for i, name := range a.presets {
		a.item(&b, i+1, name, config.Presets[a.selected][name].Description)
	}
	if a.err != nil {
		b.WriteString("\n    " + lipgloss.NewStyle().Foreground(CurrentTheme.Error).Render(a.err.Error()) + "\n")
	}
	b.WriteString(hints("j/k", "navigate", "enter", "start", "esc", "back"))
	return b.String()
}

// RunInteractive starts the picker on the alternate screen.
func RunInteractive(opts sim.Options, interval time.Duration) error {
	_, err := tea.NewProgram(NewApp(opts, interval), tea.WithAltScreen()).Run()
	return err
}

// RunLive opens the live view of sess directly.
func RunLive(sess *sim.Session, interval time.Duration) error {
	_, err := tea.NewProgram(NewModel(sess, interval), tea.WithAltScreen()).Run()
	return err
}
