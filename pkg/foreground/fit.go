package foreground

import(
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/abworrall/fluxmaps/pkg/emath"
	"github.com/abworrall/fluxmaps/pkg/healpix"
)

var ErrFitNotConverged = errors.New("foreground: fit did not converge")

// FitResult is the outcome of fitting counts to N*template + C. The bounds
// are absolute values (not offsets) of the 1-sigma interval.
type FitResult struct {
	N, C         float64
	NLow, NHigh  float64
	CLow, CHigh  float64
}

func (fr FitResult)String() string {
	return fmt.Sprintf("N=%.4g[%.4g,%.4g] C=%.4g[%.4g,%.4g]", fr.N, fr.NLow, fr.NHigh, fr.C, fr.CLow, fr.CHigh)
}

// A rise of 0.5 in -logL marks the 1-sigma bounds of one parameter.
const deltaNLL = 0.5

// poissonProblem holds the unmasked pixels of a fit. The expected counts
// in pixel p are mu = (N*tmpl[p] + C) * expSr[p].
type poissonProblem struct {
	tmpl, counts, expSr []float64
	cScale              float64 // C is fitted as C/cScale so both params are O(1)
}

func newPoissonProblem(template, counts, exposure, mask emath.SkyMap, c0 float64) (*poissonProblem, error) {
	if err := emath.SameSize(mask, template, counts, exposure); err != nil {
		return nil, err
	}

	sr := healpix.PixelSolidAngle(len(mask))
	pp := &poissonProblem{}
	sumK, sumE := 0.0, 0.0
	for _, p := range mask.Unmasked() {
		pp.tmpl   = append(pp.tmpl, template[p])
		pp.counts = append(pp.counts, counts[p])
		pp.expSr  = append(pp.expSr, exposure[p]*sr)
		sumK += counts[p]
		sumE += exposure[p]*sr
	}
	if len(pp.tmpl) == 0 {
		return nil, fmt.Errorf("%w: no unmasked pixels", ErrFitNotConverged)
	}

	switch {
	case sumK > 0 && sumE > 0: pp.cScale = sumK / sumE
	case c0 > 0:               pp.cScale = c0
	default:                   pp.cScale = 1
	}

	return pp, nil
}

// nll is -logL, dropping the log(k!) term which doesn't depend on N or C.
func (pp *poissonProblem)nll(n, c float64) float64 {
	total := 0.0
	for i := range pp.tmpl {
		mu := (n*pp.tmpl[i] + c) * pp.expSr[i]
		k := pp.counts[i]
		switch {
		case mu > 0:
			total += mu - k*math.Log(mu)
		case mu == 0 && k == 0:
		default:
			return math.Inf(1)
		}
	}
	return total
}

func (pp *poissonProblem)nllScaled(x []float64) float64 {
	return pp.nll(x[0], x[1]*pp.cScale)
}

// FitPoisson fits counts against N*template + C over the unmasked pixels,
// starting from (n0, c0), by minimizing the Poisson -logL.
func FitPoisson(template, counts, exposure, mask emath.SkyMap, n0, c0 float64) (FitResult, error) {
	pp, err := newPoissonProblem(template, counts, exposure, mask, c0)
	if err != nil {
		return FitResult{}, err
	}

	problem := optimize.Problem{Func: pp.nllScaled}
	settings := &optimize.Settings{
		MajorIterations: 20000,
		Converger: &optimize.FunctionConverge{Absolute: 1e-10, Relative: 1e-12, Iterations: 200},
	}
	x0 := []float64{n0, c0 / pp.cScale}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return FitResult{}, fmt.Errorf("%w: %v", ErrFitNotConverged, err)
	}
	switch result.Status {
	case optimize.Failure, optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit:
		return FitResult{}, fmt.Errorf("%w: status %v", ErrFitNotConverged, result.Status)
	}
	if !emath.IsFinite(result.F) {
		return FitResult{}, fmt.Errorf("%w: -logL=%v at minimum", ErrFitNotConverged, result.F)
	}

	best := []float64{result.X[0], result.X[1]}
	fr := FitResult{N: best[0], C: best[1] * pp.cScale}

	bounds := [4]float64{}
	for i, dir := range []struct{ param int; sign float64 }{{0, -1}, {0, 1}, {1, -1}, {1, 1}} {
		b, err := pp.bound(best, result.F, dir.param, dir.sign)
		if err != nil {
			return FitResult{}, err
		}
		bounds[i] = b
	}
	fr.NLow, fr.NHigh = bounds[0], bounds[1]
	fr.CLow, fr.CHigh = bounds[2]*pp.cScale, bounds[3]*pp.cScale

	return fr, nil
}

// bound walks parameter `param` away from the best fit in direction sign,
// with the other parameter held at its best value, until -logL has risen
// by deltaNLL; then bisects to pin down the crossing.
func (pp *poissonProblem)bound(best []float64, fmin float64, param int, sign float64) (float64, error) {
	excess := func(v float64) float64 {
		x := []float64{best[0], best[1]}
		x[param] = v
		d := pp.nllScaled(x) - fmin - deltaNLL
		if math.IsNaN(d) {
			return math.Inf(1)
		}
		return d
	}

	inside := best[param]
	step := 1e-3 * math.Max(math.Abs(inside), 1e-3)
	outside := inside + sign*step
	for i:=0; excess(outside) < 0; i++ {
		if i > 200 {
			return 0, fmt.Errorf("%w: param %d bound not bracketed", ErrFitNotConverged, param)
		}
		inside = outside
		step *= 2
		outside = best[param] + sign*step
	}

	for i:=0; i<100; i++ {
		mid := 0.5 * (inside + outside)
		if excess(mid) < 0 {
			inside = mid
		} else {
			outside = mid
		}
	}

	return 0.5 * (inside + outside), nil
}
