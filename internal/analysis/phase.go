package analysis

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/abfsim/internal/sim"
)

// Point is one sample of a two-dimensional plot.
type Point struct{ X, Y float64 }

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	Points []Point
}

// Lag wraps a phase difference into (-pi, pi].
func Lag(theta, thetaB float64) float64 {
	d := math.Mod(theta-thetaB, 2*math.Pi)
	switch {
	case d > math.Pi:
		d -= 2 * math.Pi
	case d <= -math.Pi:
		d += 2 * math.Pi
	}
	return d
}

// GeneratePhasePortrait plots swimmer i's phase lag against its angular
// velocity. A locked swimmer collapses to a point; a slipping one traces
// a closed curve.
func GeneratePhasePortrait(result *sim.Result, i int) *PhasePortrait2D {
	if result == nil || len(result.Records) == 0 || i < 0 || i >= len(result.Records[0].X) {
		return nil
	}

	portrait := &PhasePortrait2D{
		Points: make([]Point, 0, len(result.Records)),
	}
	for _, rec := range result.Records {
		portrait.Points = append(portrait.Points, Point{
			X: Lag(rec.Theta[i], rec.FieldAngle),
			Y: rec.AngularVelocity[i],
		})
	}
	return portrait
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width <= 1 || height <= 1 {
		return ""
	}
	return scatterASCII(portrait.Points, width, height)
}

// bounds returns the range of v padded by 10% on each side.
func bounds(v []float64) (lo, span float64) {
	lo, hi := floats.Min(v), floats.Max(v)
	span = hi - lo
	if span == 0 {
		span = 1
	}
	return lo - 0.1*span, 1.2 * span
}

// scatterASCII plots points with '•', drawing the axes where they cross
// the visible area.
func scatterASCII(points []Point, width, height int) string {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for k, p := range points {
		xs[k], ys[k] = p.X, p.Y
	}
	minX, spanX := bounds(xs)
	minY, spanY := bounds(ys)

	col := func(x float64) int { return int((x - minX) / spanX * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/spanY*float64(height-1)) }

	canvas := make([][]rune, height)
	for r := range canvas {
		canvas[r] = []rune(strings.Repeat(" ", width))
	}
	set := func(r, c int, ch rune, over bool) {
		if r >= 0 && r < height && c >= 0 && c < width && (over || canvas[r][c] == ' ') {
			canvas[r][c] = ch
		}
	}

	for _, p := range points {
		set(row(p.Y), col(p.X), '•', true)
	}
	if minX <= 0 && minX+spanX >= 0 {
		for r := 0; r < height; r++ {
			set(r, col(0), '│', false)
		}
	}
	if minY <= 0 && minY+spanY >= 0 {
		for c := 0; c < width; c++ {
			set(row(0), c, '─', false)
		}
	}

	var sb strings.Builder
	for _, line := range canvas {
		sb.WriteString(string(line))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// StroboscopicSection records swimmer i's position and lag each time the
// field completes a revolution.
type StroboscopicSection struct {
	Points []Point
}

// GenerateStroboscopicSection samples result whenever the field angle
// crosses a multiple of 2*pi, interpolating linearly between records.
func GenerateStroboscopicSection(result *sim.Result, i int) *StroboscopicSection {
	if result == nil || len(result.Records) == 0 || i < 0 || i >= len(result.Records[0].X) {
		return nil
	}

	section := &StroboscopicSection{
		Points: make([]Point, 0),
	}

	prev := result.Records[0]
	for _, rec := range result.Records[1:] {
		kPrev := math.Floor(prev.FieldAngle / (2 * math.Pi))
		kCurr := math.Floor(rec.FieldAngle / (2 * math.Pi))
		if kCurr != kPrev {
			threshold := math.Max(kPrev, kCurr) * 2 * math.Pi
			frac := (threshold - prev.FieldAngle) / (rec.FieldAngle - prev.FieldAngle)
			if math.IsNaN(frac) || math.IsInf(frac, 0) {
				frac = 0.5
			}
			section.Points = append(section.Points, Point{
				X: prev.X[i] + frac*(rec.X[i]-prev.X[i]),
				Y: Lag(prev.Theta[i]+frac*(rec.Theta[i]-prev.Theta[i]), threshold),
			})
		}
		prev = rec
	}

	return section
}

// StroboscopicSectionToASCII plots position (x) against lag (y).
func StroboscopicSectionToASCII(section *StroboscopicSection, width, height int) string {
	if section == nil || len(section.Points) == 0 {
		return "no revolutions completed"
	}
	return PhasePortraitToASCII(&PhasePortrait2D{Points: section.Points}, width, height)
}
