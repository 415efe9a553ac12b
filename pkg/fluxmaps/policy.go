package fluxmaps

import(
	"fmt"
	"strings"

	"github.com/abworrall/fluxmaps/pkg/foreground"
)

// NormPolicy picks which foreground normalization gets subtracted: the
// best fit N, or one of its bounds.
type NormPolicy string

const(
	PolicyN     NormPolicy = "n"
	PolicyNLow  NormPolicy = "nlow"
	PolicyNHigh NormPolicy = "nhigh"
)

var NormPolicies = []NormPolicy{PolicyN, PolicyNLow, PolicyNHigh}

func ListNormPolicies() string {
	names := []string{}
	for _, np := range NormPolicies {
		names = append(names, string(np))
	}
	return strings.Join(names, ",")
}

func ParseNormPolicy(s string) (NormPolicy, error) {
	for _, np := range NormPolicies {
		if string(np) == strings.ToLower(s) {
			return np, nil
		}
	}
	return "", fmt.Errorf("%w '%s' (want one of %s)", ErrUnknownPolicy, s, ListNormPolicies())
}

func (np NormPolicy)Pick(fr foreground.FitResult) float64 {
	switch np {
	case PolicyNLow:  return fr.NLow
	case PolicyNHigh: return fr.NHigh
	default:          return fr.N
	}
}
