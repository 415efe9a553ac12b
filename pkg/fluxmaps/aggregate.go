package fluxmaps

import(
	"fmt"
	"math"

	"github.com/abworrall/fluxmaps/pkg/emath"
)

// Aggregate is a macro bin's flux, reduced from its micro bins.
type Aggregate struct {
	Map     emath.SkyMap
	Masked  emath.SkyMap // Map, with UNSEEN on masked pixels
	Mean    float64      // over the unmasked pixels
	MeanErr float64
}

// AggregateMacroBin sums the micro bin flux maps. The error maps are
// summed the same way before taking the root mean square over the
// unmasked pixels; they are not added in quadrature.
func AggregateMacroBin(flux, fluxErr []emath.SkyMap, mask emath.SkyMap) (Aggregate, error) {
	agg := Aggregate{}

	all := []emath.SkyMap{mask}
	all = append(all, flux...)
	all = append(all, fluxErr...)
	if err := emath.SameSize(all...); err != nil {
		return agg, fmt.Errorf("aggregate: %w", err)
	}

	var err error
	if agg.Map, err = emath.Sum(flux); err != nil {
		return agg, fmt.Errorf("aggregate flux: %w", err)
	}
	errSum, err := emath.Sum(fluxErr)
	if err != nil {
		return agg, fmt.Errorf("aggregate flux error: %w", err)
	}
	if agg.Masked, err = agg.Map.ApplyMask(mask); err != nil {
		return agg, err
	}

	unmasked := mask.Unmasked()
	agg.Mean = agg.Map.MeanOver(unmasked)
	agg.MeanErr = math.Sqrt(errSum.Square().MeanOver(unmasked))

	return agg, nil
}
