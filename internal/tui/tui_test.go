package tui

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/env"
	"github.com/san-kum/abfsim/internal/swimmer"
)

func newTestModel(t *testing.T) model {
	t.Helper()
	coeffs, err := swimmer.NewCoefficients([]float64{1, 1}, []float64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	cfg := env.DefaultConfig()
	cfg.MaxSteps = 3
	cfg.SuccessRadius = 0
	e, err := env.New(cfg, coeffs, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	return newModel(e)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func update(m model, msg tea.Msg) model {
	next, _ := m.Update(msg)
	return next.(model)
}

func TestOmegaKeys(t *testing.T) {
	m := newTestModel(t)

	m = update(m, key("right"))
	m = update(m, key("right"))
	m = update(m, key("up"))
	if m.omega < 1.19 || m.omega > 1.21 {
		t.Errorf("expected w=1.2, got %f", m.omega)
	}

	for i := 0; i < 10; i++ {
		m = update(m, key("up"))
	}
	if m.omega != m.env.Config().ActionHigh {
		t.Errorf("w should clamp to the action bound, got %f", m.omega)
	}

	m = update(m, key("0"))
	if m.omega != 0 {
		t.Errorf("expected w=0, got %f", m.omega)
	}
}

func TestTickAdvancesEpisode(t *testing.T) {
	m := newTestModel(t)
	m = update(m, key("right"))

	m = update(m, tickMsg{})
	if m.env.Steps() != 1 {
		t.Fatalf("expected 1 step, got %d", m.env.Steps())
	}
	if len(m.history) != 2 {
		t.Errorf("expected history of 2, got %d", len(m.history))
	}

	m = update(m, key("p"))
	m = update(m, tickMsg{})
	if m.env.Steps() != 1 {
		t.Error("paused model should not step")
	}

	m = update(m, key("p"))
	for i := 0; i < 5; i++ {
		m = update(m, tickMsg{})
	}
	if m.env.Status() != env.Failure || m.env.Steps() != 3 {
		t.Errorf("expected failure after 3 steps, got %s at %d", m.env.Status(), m.env.Steps())
	}
	if !strings.Contains(m.View(), "failure") {
		t.Error("view should report the failed episode")
	}

	m = update(m, key("r"))
	if m.env.Status() != env.Running || m.episode != 2 || m.ret != 0 {
		t.Errorf("reset should start episode 2, got %s episode %d", m.env.Status(), m.episode)
	}
}

func TestView(t *testing.T) {
	m := newTestModel(t)
	m = update(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	v := m.View()
	for _, want := range []string{"episode 1", "0/3", "locked", "return"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := sparkline([]float64{0, 1, 2, 3}, 4); got != "▁▃▅█" {
		t.Errorf("unexpected sparkline %q", got)
	}
	if sparkline(nil, 4) != "" {
		t.Error("expected empty sparkline")
	}
}

func TestLiveRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewLiveRenderer(&buf, 10, 0)
	x := dynamo.State{-10, 5, 0, 3.14159, 0}
	r.OnStep(x, dynamo.Control{1.5}, 2)

	out := buf.String()
	if !strings.Contains(out, "w=1.500") || !strings.Contains(out, "x0=-10.00") {
		t.Errorf("unexpected frame:\n%s", out)
	}
	if !strings.ContainsRune(out, '>') || !strings.ContainsRune(out, '<') {
		t.Error("expected heading glyphs for both swimmers")
	}
	if r.column(-100) != 0 || r.column(100) != width-1 {
		t.Error("positions outside the span should pin to the edges")
	}
}
