package fluxmaps

import(
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/abworrall/fluxmaps/pkg/emath"
)

var ErrNothingToPlot = errors.New("fluxmaps: no finite points to plot")

type spectrumPoints struct {
	plotter.XYs
	plotter.YErrors
}

// spectrumData picks the rows that can go on a log energy axis.
func spectrumData(rows []MacroResult) spectrumPoints {
	sp := spectrumPoints{}
	for _, r := range rows {
		if r.EMean <= 0 || !emath.IsFinite(r.EMean) || !emath.IsFinite(r.Flux) || !emath.IsFinite(r.FluxErr) {
			continue
		}
		sp.XYs = append(sp.XYs, plotter.XY{X: r.EMean, Y: r.Flux})
		sp.YErrors = append(sp.YErrors, struct{ Low, High float64 }{r.FluxErr, r.FluxErr})
	}
	return sp
}

// WriteSpectrumPlot plots the mean flux of each macro bin against its
// mean energy, with the flux error as error bars.
func WriteSpectrumPlot(rows []MacroResult, title, filename string) error {
	sp := spectrumData(rows)
	if len(sp.XYs) == 0 {
		return fmt.Errorf("spectrum plot '%s': %w", filename, ErrNothingToPlot)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "E [MeV]"
	p.Y.Label.Text = "mean flux [cm^-2 s^-1 sr^-1]"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	points, err := plotter.NewScatter(sp.XYs)
	if err != nil {
		return fmt.Errorf("spectrum plot: %v", err)
	}
	points.GlyphStyle.Radius = vg.Points(3)

	bars, err := plotter.NewYErrorBars(sp)
	if err != nil {
		return fmt.Errorf("spectrum plot: %v", err)
	}
	p.Add(points, bars)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, filename); err != nil {
		return fmt.Errorf("spectrum plot save '%s': %v", filename, err)
	}
	return nil
}
