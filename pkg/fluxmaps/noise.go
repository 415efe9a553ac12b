package fluxmaps

import(
	"fmt"

	"github.com/abworrall/fluxmaps/pkg/emath"
)

// EstimateNoise is the Poisson white-noise term of a macro bin: for each
// micro bin b, the map counts_b / exposure_b^2 / sr is averaged over the
// unmasked pixels, and the averages are summed. Zero exposure is not
// guarded against, and gives a non-finite result.
func EstimateNoise(counts, exposures []emath.SkyMap, unmasked []int, sr float64) (float64, error) {
	if len(counts) != len(exposures) {
		return 0, fmt.Errorf("noise: %d counts maps vs %d exposure maps", len(counts), len(exposures))
	}

	cn := 0.0
	for b := range counts {
		cnb, err := counts[b].Div(exposures[b].Square())
		if err != nil {
			return 0, fmt.Errorf("noise, micro bin %d: %w", b, err)
		}
		cn += cnb.DivBy(sr).MeanOver(unmasked)
	}

	return cn, nil
}
