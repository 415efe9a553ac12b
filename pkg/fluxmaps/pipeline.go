// Package fluxmaps turns time-binned counts and exposure maps into
// foreground-subtracted flux maps, one per macro energy bin, plus a
// summary report.
package fluxmaps

import(
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abworrall/fluxmaps/pkg/ebins"
	"github.com/abworrall/fluxmaps/pkg/emath"
	"github.com/abworrall/fluxmaps/pkg/foreground"
	"github.com/abworrall/fluxmaps/pkg/healpix"
	"github.com/abworrall/fluxmaps/pkg/mapstore"
)

// Pipeline runs every macro bin of a Config, in order, then writes the
// report. It is single threaded, and stops at the first error.
type Pipeline struct {
	Config  Config
	ForeSub bool
	Policy  NormPolicy

	Store   mapstore.Store
	Bins    ebins.Index
	Fore    foreground.Service
	Log     *zap.Logger
}

// NewPipeline uses a foreground.Model that caches its integrated maps
// under the config's output_fore dir.
func NewPipeline(cfg Config, store mapstore.Store, bins ebins.Index, log *zap.Logger) *Pipeline {
	fore := foreground.NewModel(store, cfg.PowerLawIndex)
	fore.CacheDir = cfg.ForeDir()
	fore.Label = cfg.ForeLabel

	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		Config: cfg,
		ForeSub: true,
		Policy: PolicyN,
		Store: store,
		Bins: bins,
		Fore: fore,
		Log: log,
	}
}

func (p *Pipeline)timeSummer() TimeSummer {
	return TimeSummer{
		Store: p.Store,
		ManifestDir: p.Config.OutputDir,
		CacheDir: p.Config.CountDir(),
		Log: p.Log,
	}
}

// Run processes all the macro bins and writes the report. If the report
// is already there, it fails with ErrReportExists before touching
// anything else.
func (p *Pipeline)Run() ([]MacroResult, error) {
	reportPath := p.Config.ReportPath()
	if ReportExists(reportPath) {
		return nil, fmt.Errorf("%w: '%s'", ErrReportExists, reportPath)
	}

	rows := []MacroResult{}
	for i := range p.Config.MacroBins {
		row, err := p.RunMacroBin(i)
		if err != nil {
			return rows, fmt.Errorf("macro bin %d %s: %w", i, p.Config.MacroBins[i], err)
		}
		rows = append(rows, row)
	}

	if err := WriteReport(reportPath, rows, p.ForeSub); err != nil {
		return rows, err
	}
	p.Log.Info("wrote report", zap.String("file", reportPath), zap.Int("rows", len(rows)))

	if p.Config.SpectrumPlot {
		plotPath := p.Config.SpectrumPlotPath()
		title := fmt.Sprintf("%s %s %s", p.Config.OutLabel, p.Config.MaskLabel, p.Config.BinningLabel)
		if err := WriteSpectrumPlot(rows, title, plotPath); errors.Is(err, ErrNothingToPlot) {
			p.Log.Warn("no spectrum plot", zap.Error(err))
		} else if err != nil {
			return rows, err
		} else {
			p.Log.Info("wrote spectrum plot", zap.String("file", plotPath))
		}
	}

	return rows, nil
}

// RunMacroBin computes the flux maps of one macro bin, writes them out,
// and returns its report row.
func (p *Pipeline)RunMacroBin(i int) (MacroResult, error) {
	cfg := p.Config
	mb := cfg.MacroBins[i]
	row := MacroResult{}
	log := p.Log.With(zap.Int("macro_bin", i), zap.Stringer("range", mb))

	mask, err := p.Store.ReadMap(cfg.MaskFiles[i])
	if err != nil {
		return row, fmt.Errorf("mask: %w", err)
	}
	unmasked := mask.Unmasked()
	row.FSky = mask.FSky()
	sr := healpix.PixelSolidAngle(mask.Npix())

	bins, err := p.Bins.Bins(cfg.MicroBinsFile, mb.Min, mb.Max)
	if err != nil {
		return row, err
	}

	ts := p.timeSummer()
	counts, exposures := []emath.SkyMap{}, []emath.SkyMap{}
	for _, b := range bins {
		sm, err := ts.SumMicroBin(cfg.OutLabel, b.Index, cfg.InLabels)
		if err != nil {
			return row, err
		}
		if err := emath.SameSize(mask, sm.Counts, sm.Exposure); err != nil {
			return row, fmt.Errorf("%s vs mask: %w", b, err)
		}
		counts = append(counts, sm.Counts)
		exposures = append(exposures, sm.Exposure)
	}

	if row.CN, err = EstimateNoise(counts, exposures, unmasked, sr); err != nil {
		return row, err
	}

	fs := FluxSubtractor{Fore: p.Fore, ForeFiles: cfg.ForeFiles, Policy: p.Policy, Log: log}
	fr, err := fs.ComputeFlux(counts, exposures, bins, sr, p.ForeSub, mask)
	if err != nil {
		return row, err
	}
	row.Fore = fr.Fore

	agg, err := AggregateMacroBin(fr.Flux, fr.FluxErr, mask)
	if err != nil {
		return row, err
	}
	row.Flux, row.FluxErr = agg.Mean, agg.MeanErr

	first, last := bins[0], bins[len(bins)-1]
	row.EMin, row.EMax = first.EMin, last.EMax
	row.EMean = emath.GeometricMean_F64(first.EMax, last.EMin)

	fluxName := cfg.FluxMapName("flux", row.EMin, row.EMax)
	if err := p.Store.WriteMap(fluxName, agg.Map); err != nil {
		return row, err
	}
	if err := p.Store.WriteMap(cfg.FluxMapName("fluxmasked", row.EMin, row.EMax), agg.Masked); err != nil {
		return row, err
	}

	if cfg.Preview.Enabled {
		pngName := strings.TrimSuffix(fluxName, ".fits") + ".png"
		title := fmt.Sprintf("%s flux %.0f-%.0f MeV", cfg.OutLabel, row.EMin, row.EMax)
		if err := WritePreview(agg.Masked, title, pngName, cfg.Preview.Width); err != nil {
			return row, err
		}
	}

	log.Info("macro bin done", zap.Float64("fsky", row.FSky), zap.Float64("cn", row.CN),
		zap.Float64("flux", row.Flux), zap.Float64("flux_err", row.FluxErr), zap.String("map", fluxName))

	return row, nil
}
