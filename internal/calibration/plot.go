package calibration

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PlotBand renders the propagated band, its mean and the measurements as
// a PNG image.
func PlotBand(w io.Writer, band Band, ms []Measurement) error {
	if len(band.Omega) == 0 {
		return fmt.Errorf("plot data invalid")
	}

	p := plot.New()
	p.Title.Text = "Forward velocity"
	p.X.Label.Text = "omega [Hz]"
	p.Y.Label.Text = "V [um/s]"
	p.X.Min = 0
	p.Y.Min = 0

	n := len(band.Omega)
	outline := make(plotter.XYs, 0, 2*n)
	for i := 0; i < n; i++ {
		outline = append(outline, plotter.XY{X: band.Omega[i], Y: band.Lo[i]})
	}
	for i := n - 1; i >= 0; i-- {
		outline = append(outline, plotter.XY{X: band.Omega[i], Y: band.Hi[i]})
	}
	poly, err := plotter.NewPolygon(outline)
	if err != nil {
		return err
	}
	poly.Color = color.RGBA{R: 31, G: 119, B: 180, A: 64}
	poly.LineStyle.Width = 0

	mean := make(plotter.XYs, n)
	for i := range mean {
		mean[i] = plotter.XY{X: band.Omega[i], Y: band.Mean[i]}
	}
	line, err := plotter.NewLine(mean)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(poly, line)

	if len(ms) > 0 {
		pts := make(plotter.XYs, len(ms))
		for i, m := range ms {
			pts[i] = plotter.XY{X: m.Omega, Y: m.V}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Shape = draw.PlusGlyph{}
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
	}

	wt, err := p.WriterTo(8*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
