package tui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/san-kum/abfsim/internal/dynamo"
)

const (
	width       = 70
	height      = 8
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer draws a rollout frame by frame as a dynamo.Observer. Every
// swimmer gets its own lane on a track spanning [-Span, Span].
type LiveRenderer struct {
	Span      float64
	out       io.Writer
	frameRate int
	lastFrame time.Time
	canvas    [][]rune
	trails    [][]int
}

func NewLiveRenderer(out io.Writer, span float64, frameRate int) *LiveRenderer {
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
	}
	return &LiveRenderer{
		Span:      span,
		out:       out,
		frameRate: frameRate,
		canvas:    canvas,
	}
}

func (r *LiveRenderer) OnStep(x dynamo.State, u dynamo.Control, t float64) {
	elapsed := time.Since(r.lastFrame)
	if r.frameRate > 0 && elapsed < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()

	r.clear()
	r.drawTrack(x)
	r.render(x, u, t)
}

func (r *LiveRenderer) clear() {
	for y := range r.canvas {
		for x := range r.canvas[y] {
			r.canvas[y][x] = ' '
		}
	}
}

func (r *LiveRenderer) set(x, y int, c rune) {
	if x >= 0 && x < width && y >= 0 && y < height {
		r.canvas[y][x] = c
	}
}

// column maps a position onto the track, pinning it to the edges.
func (r *LiveRenderer) column(pos float64) int {
	span := r.Span
	if span <= 0 {
		span = 1
	}
	c := int(math.Round((pos/span + 1) / 2 * float64(width-1)))
	return max(0, min(width-1, c))
}

func (r *LiveRenderer) drawTrack(x dynamo.State) {
	n := (len(x) - 1) / 2
	if n <= 0 {
		return
	}
	if len(r.trails) != n {
		r.trails = make([][]int, n)
	}

	origin := r.column(0)
	for y := 0; y < height; y++ {
		r.set(origin, y, '│')
	}

	lanes := min(n, height)
	for i := 0; i < lanes; i++ {
		y := i * height / lanes
		col := r.column(x[i])

		r.trails[i] = append(r.trails[i], col)
		if len(r.trails[i]) > 20 {
			r.trails[i] = r.trails[i][1:]
		}
		for _, c := range r.trails[i] {
			r.set(c, y, '·')
		}

		glyph := '>'
		if math.Cos(x[n+i]) < 0 {
			glyph = '<'
		}
		r.set(col, y, glyph)
	}
}

func (r *LiveRenderer) render(x dynamo.State, u dynamo.Control, t float64) {
	var b strings.Builder
	b.WriteString(clearScreen)
	w := 0.0
	if len(u) > 0 {
		w = u[0]
	}
	b.WriteString(fmt.Sprintf("  t=%.2f  w=%.3f\n", t, w))
	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	for _, row := range r.canvas {
		b.WriteString("  ")
		b.WriteString(string(row))
		b.WriteString("\n")
	}

	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	n := (len(x) - 1) / 2
	stateStr := "  "
	for i := 0; i < n && i < 4; i++ {
		stateStr += fmt.Sprintf("x%d=%.2f ", i, x[i])
	}
	b.WriteString(stateStr + "\n")

	fmt.Fprint(r.out, b.String())
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }
