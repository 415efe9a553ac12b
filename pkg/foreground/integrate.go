package foreground

import(
	"math"
)

// IntegrateSpectrum integrates one pixel's differential spectrum over
// [emin,emax]. The spectrum is known at the node energies es (ascending)
// with intensities is; between two nodes it is a power law (a straight
// line in log-log), and beyond the outermost nodes it is extrapolated with
// spectral index gamma, i.e. I(E) ~ E^-gamma.
func IntegrateSpectrum(es, is []float64, emin, emax, gamma float64) float64 {
	if len(es) == 0 || emax <= emin {
		return 0
	}

	last := len(es)-1
	total := 0.0

	// Below the first node
	if emin < es[0] {
		total += powerLawIntegral(is[0], es[0], gamma, emin, math.Min(emax, es[0]))
	}

	for k:=0; k<last; k++ {
		a := math.Max(emin, es[k])
		b := math.Min(emax, es[k+1])
		if b <= a {
			continue
		}
		total += segmentIntegral(es[k], is[k], es[k+1], is[k+1], a, b)
	}

	// Above the last node
	if emax > es[last] {
		total += powerLawIntegral(is[last], es[last], gamma, math.Max(emin, es[last]), emax)
	}

	return total
}

// segmentIntegral integrates between two nodes over [a,b], a sub-range of
// [e0,e1]. Non-positive intensities can't be interpolated in log-log, so
// those segments fall back to a straight line.
func segmentIntegral(e0, i0, e1, i1, a, b float64) float64 {
	if i0 > 0 && i1 > 0 {
		index := -math.Log(i1/i0) / math.Log(e1/e0)
		return powerLawIntegral(i0, e0, index, a, b)
	}

	lin := func(e float64) float64 { return i0 + (i1-i0)*(e-e0)/(e1-e0) }
	return 0.5 * (lin(a) + lin(b)) * (b - a)
}

// powerLawIntegral is the integral over [a,b] of i0*(E/e0)^-index.
func powerLawIntegral(i0, e0, index, a, b float64) float64 {
	if math.Abs(1-index) < 1e-12 {
		return i0 * e0 * math.Log(b/a)
	}
	p := 1 - index
	return i0 * e0 / p * (math.Pow(b/e0, p) - math.Pow(a/e0, p))
}
