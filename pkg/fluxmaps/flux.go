package fluxmaps

import(
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/abworrall/fluxmaps/pkg/ebins"
	"github.com/abworrall/fluxmaps/pkg/emath"
	"github.com/abworrall/fluxmaps/pkg/foreground"
)

// Starting point of every foreground fit.
const(
	FitN0 = 1.0
	FitC0 = 1e-10
)

// ForeSummary is what gets reported about the foreground fits of a macro bin.
type ForeSummary struct {
	N, NLow, NHigh float64
	C, CLow, CHigh float64
}

// summarizeFits takes the mean of the values and the extremes of the bounds.
func summarizeFits(fits []foreground.FitResult) ForeSummary {
	n := len(fits)
	ns, nlo, nhi := make([]float64, n), make([]float64, n), make([]float64, n)
	cs, clo, chi := make([]float64, n), make([]float64, n), make([]float64, n)
	for i, fr := range fits {
		ns[i], nlo[i], nhi[i] = fr.N, fr.NLow, fr.NHigh
		cs[i], clo[i], chi[i] = fr.C, fr.CLow, fr.CHigh
	}
	return ForeSummary{
		N: floats.Sum(ns) / float64(n), NLow: floats.Min(nlo), NHigh: floats.Max(nhi),
		C: floats.Sum(cs) / float64(n), CLow: floats.Min(clo), CHigh: floats.Max(chi),
	}
}

// FluxResult holds the per micro bin flux maps of a macro bin.
type FluxResult struct {
	Flux      []emath.SkyMap
	FluxErr   []emath.SkyMap
	Templates []emath.SkyMap          // integrated foreground, if subtracted
	Fits      []foreground.FitResult  // one per micro bin, if subtracted
	Fore      *ForeSummary            // nil unless subtracted
}

// FluxSubtractor turns summed counts and exposure into flux, optionally
// removing the fitted foreground.
type FluxSubtractor struct {
	Fore      foreground.Service
	ForeFiles []foreground.Node
	Policy    NormPolicy
	Log       *zap.Logger
}

// ComputeFlux gives, for each micro bin b, flux_b = counts_b/exposure_b/sr
// and fluxErr_b = sqrt(counts_b)/exposure_b/sr. With foreSub, the fitted
// foreground template times the policy's normalization is taken off
// flux_b; the error maps are unchanged. Any fit failure is returned.
//
// The ForeSummary reduces only the fit of the last micro bin.
func (fs FluxSubtractor)ComputeFlux(counts, exposures []emath.SkyMap, bins []ebins.MicroBin, sr float64, foreSub bool, mask emath.SkyMap) (FluxResult, error) {
	fr := FluxResult{}
	if len(counts) != len(bins) || len(exposures) != len(bins) {
		return fr, fmt.Errorf("flux: %d micro bins, %d counts maps, %d exposure maps", len(bins), len(counts), len(exposures))
	}
	if foreSub && fs.Fore == nil {
		return fr, fmt.Errorf("flux: foreground subtraction with no foreground model")
	}
	log := fs.Log
	if log == nil {
		log = zap.NewNop()
	}

	for b, mb := range bins {
		flux, err := counts[b].Div(exposures[b])
		if err != nil {
			return fr, fmt.Errorf("flux, %s: %w", mb, err)
		}
		flux = flux.DivBy(sr)

		fluxErr, err := counts[b].Sqrt().Div(exposures[b])
		if err != nil {
			return fr, fmt.Errorf("flux error, %s: %w", mb, err)
		}
		fluxErr = fluxErr.DivBy(sr)

		if foreSub {
			tmpl, err := fs.Fore.IntegralMap(fs.ForeFiles, mb.EMin, mb.EMax)
			if err != nil {
				return fr, fmt.Errorf("foreground, %s: %w", mb, err)
			}
			fit, err := fs.Fore.Fit(tmpl, counts[b], exposures[b], mask, FitN0, FitC0)
			if err != nil {
				return fr, fmt.Errorf("foreground fit, %s: %w", mb, err)
			}
			if flux, err = flux.Sub(tmpl.Scale(fs.Policy.Pick(fit))); err != nil {
				return fr, fmt.Errorf("foreground subtraction, %s: %w", mb, err)
			}
			log.Info("foreground fit", zap.Int("micro_bin", mb.Index), zap.Stringer("fit", fit),
				zap.String("policy", string(fs.Policy)))

			fr.Templates = append(fr.Templates, tmpl)
			fr.Fits = append(fr.Fits, fit)
		}

		fr.Flux = append(fr.Flux, flux)
		fr.FluxErr = append(fr.FluxErr, fluxErr)
	}

	if foreSub && len(fr.Fits) > 0 {
		summary := summarizeFits(fr.Fits[len(fr.Fits)-1:])
		fr.Fore = &summary
	}

	return fr, nil
}
