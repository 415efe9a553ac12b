package fluxmaps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/fluxmaps/pkg/foreground"
)

func TestParseNormPolicy(t *testing.T) {
	for _, s := range []string{"n", "nlow", "nhigh", "NLow"} {
		np, err := ParseNormPolicy(s)
		require.NoError(t, err, s)
		assert.NotEmpty(t, np)
	}

	_, err := ParseNormPolicy("nmid")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
	assert.Contains(t, err.Error(), "n,nlow,nhigh")
}

func TestNormPolicy_Pick(t *testing.T) {
	fr := foreground.FitResult{N: 1.1, NLow: 0.9, NHigh: 1.4, C: 3}
	assert.Equal(t, 1.1, PolicyN.Pick(fr))
	assert.Equal(t, 0.9, PolicyNLow.Pick(fr))
	assert.Equal(t, 1.4, PolicyNHigh.Pick(fr))
}
