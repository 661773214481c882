package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/abfsim/internal/env"
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

const (
	fineStep   = 0.1
	coarseStep = 1.0
	historyLen = 60
)

// model plays episodes of an Environment with the keyboard standing in for
// the agent: the arrow keys set the drive frequency applied on every tick.
type model struct {
	env *env.Environment

	omega   float64
	paused  bool
	speed   float64
	ret     float64
	reward  float64
	err     error
	episode int

	history []float64

	width  int
	height int
}

func newModel(e *env.Environment) model {
	m := model{
		env:     e,
		speed:   1,
		history: make([]float64, 0, historyLen),
		width:   80,
		height:  24,
	}
	m.reset()
	return m
}

func (m *model) reset() {
	m.env.Reset()
	m.ret = 0
	m.reward = 0
	m.err = nil
	m.episode++
	m.history = m.history[:0]
	m.history = append(m.history, maxAbs(m.env.Observation()))
}

func (m model) Init() tea.Cmd { return tick() }

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
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
		if !m.paused {
			steps := max(1, int(m.speed))
			for i := 0; i < steps && m.env.Status() == env.Running; i++ {
				m.step()
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	cfg := m.env.Config()
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "left", "h":
		m.omega -= fineStep
	case "right", "l":
		m.omega += fineStep
	case "down", "j", "[":
		m.omega -= coarseStep
	case "up", "k", "]":
		m.omega += coarseStep
	case "0":
		m.omega = 0
	case " ", "p":
		m.paused = !m.paused
	case "r":
		m.reset()
	case "+", "=":
		m.speed = math.Min(m.speed*2, 16)
	case "-", "_":
		m.speed = math.Max(m.speed/2, 1)
	}
	m.omega = math.Max(cfg.ActionLow, math.Min(cfg.ActionHigh, m.omega))
	return m, nil
}

func (m *model) step() {
	if _, err := m.env.Advance([]float64{m.omega}); err != nil {
		m.err = err
		return
	}
	m.reward = m.env.Reward()
	m.ret += m.reward

	m.history = append(m.history, maxAbs(m.env.Observation()))
	if len(m.history) > historyLen {
		m.history = m.history[1:]
	}
}

func (m model) View() string {
	cfg := m.env.Config()
	coeffs := m.env.Coefficients()
	obs := m.env.Observation()

	var b strings.Builder

	statusIcon, statusText := green.Render("●"), green.Render("running")
	switch {
	case m.env.Status() == env.Success:
		statusIcon, statusText = cyan.Render("◆"), cyan.Render("success")
	case m.env.Status() == env.Failure:
		statusIcon, statusText = red.Render("✕"), red.Render("failure")
	case m.paused:
		statusIcon, statusText = yellow.Render("○"), yellow.Render("paused")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s  %s\n",
		statusIcon, cyan.Render("a b f s i m"), statusText, dim.Render(fmt.Sprintf("episode %d", m.episode))))

	progress := float64(m.env.Steps()) / float64(cfg.MaxSteps)
	barWidth := 36
	filled := int(math.Min(progress, 1) * float64(barWidth))
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	b.WriteString(fmt.Sprintf("   %s %s  %s\n\n", bar,
		dim.Render(fmt.Sprintf("%d/%d", m.env.Steps(), cfg.MaxSteps)),
		dim.Render(fmt.Sprintf("x%.0f", m.speed))))

	trackWidth := max(40, m.width-10)
	b.WriteString(m.track(obs, cfg, trackWidth))

	b.WriteString(fmt.Sprintf("\n   %s %s   %s %s   %s %s\n",
		dim.Render("w"), magenta.Render(fmt.Sprintf("%+.2f", m.omega)),
		dim.Render("reward"), white.Render(fmt.Sprintf("%+.3f", m.reward)),
		dim.Render("return"), white.Render(fmt.Sprintf("%+.3f", m.ret))))

	var lock strings.Builder
	lock.WriteString("   ")
	for i := 0; i < coeffs.Len() && i < 8; i++ {
		mark := green.Render("locked")
		if math.Abs(m.omega) > math.Abs(coeffs.Cmb(i)) {
			mark = yellow.Render("slipping")
		}
		lock.WriteString(dim.Render(fmt.Sprintf("%d:", i)) + mark + "  ")
	}
	b.WriteString(lock.String() + "\n")

	if len(m.history) > 1 {
		b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("max|x|"), cyan.Render(sparkline(m.history, 24))))
	}
	if m.err != nil {
		b.WriteString("   " + red.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + dim.Render("   ←→ w±0.1  ↑↓ w±1  0 zero  space pause  ±speed  r reset  q quit") + "\n")
	return b.String()
}

// track draws one lane per swimmer across [-L/2, L/2] with the target
// zone marked around the origin.
func (m model) track(obs []float64, cfg env.Config, w int) string {
	half := math.Max(cfg.BoxLength/2, 1)
	for _, x := range obs {
		half = math.Max(half, math.Abs(x))
	}
	col := func(x float64) int {
		c := int(math.Round((x/half + 1) / 2 * float64(w-1)))
		return max(0, min(w-1, c))
	}

	lo, hi := col(-cfg.SuccessRadius), col(cfg.SuccessRadius)
	var b strings.Builder
	for i, x := range obs {
		if i >= 8 {
			b.WriteString(dim.Render(fmt.Sprintf("   … %d more\n", len(obs)-i)))
			break
		}
		lane := []rune(strings.Repeat("─", w))
		for c := lo; c <= hi; c++ {
			lane[c] = '░'
		}
		lane[col(x)] = '●'
		b.WriteString("   " + dimmer.Render(string(lane[:col(x)])) +
			cyan.Render("●") + dimmer.Render(string(lane[col(x)+1:])) +
			dim.Render(fmt.Sprintf(" %+.2f", x)) + "\n")
	}
	return b.String()
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := max(1, len(data)/width)
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		idx := int((data[i*step] - minVal) / rang * 7)
		sb.WriteRune(chars[max(0, min(7, idx))])
	}
	return sb.String()
}

func maxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

// RunInteractive plays episodes of e in the terminal until the user quits.
func RunInteractive(e *env.Environment) error {
	p := tea.NewProgram(newModel(e), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
