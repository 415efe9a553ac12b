package fluxmaps

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/fluxmaps/pkg/emath"
)

func TestWritePreview(t *testing.T) {
	m := emath.NewSkyMap(48)
	for p := range m {
		m[p] = float64(p)
	}
	m[3] = emath.UNSEEN

	filename := filepath.Join(t.TempDir(), "output_flux", "P8_flux_100-400.png")
	require.NoError(t, WritePreview(m, "P8 flux", filename, 200))

	f, err := os.Open(filename)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 140, img.Bounds().Dy())

	assert.ErrorIs(t, WritePreview(m, "again", filename, 200), os.ErrExist)
	assert.Error(t, WritePreview(emath.NewSkyMap(10), "bad", filepath.Join(t.TempDir(), "x.png"), 200))
	assert.Error(t, WritePreview(m, "tiny", filepath.Join(t.TempDir(), "x.png"), 4))
}

func TestPercentileRange(t *testing.T) {
	m := emath.NewSkyMap(1000)
	for p := range m {
		m[p] = float64(p)
	}
	m[0] = emath.UNSEEN

	lo, hi := PercentileRange(m, 1, 99)
	assert.InDelta(t, 11, lo, 2)
	assert.InDelta(t, 989, hi, 2)

	lo, hi = PercentileRange(emath.SkyMap{5, 5, 5}, 1, 99)
	assert.Equal(t, 5.0, lo)
	assert.Equal(t, 6.0, hi)

	lo, hi = PercentileRange(emath.SkyMap{emath.UNSEEN}, 1, 99)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestColorRamp(t *testing.T) {
	ramp, err := newColorRamp(previewRamp)
	require.NoError(t, err)

	r, g, b, _ := ramp.At(-3).RGBA()
	r0, g0, b0, _ := ramp[0].RGBA()
	assert.Equal(t, []uint32{r0, g0, b0}, []uint32{r, g, b})

	r, g, b, _ = ramp.At(7).RGBA()
	r1, g1, b1, _ := ramp[len(ramp)-1].RGBA()
	assert.Equal(t, []uint32{r1, g1, b1}, []uint32{r, g, b})

	_, err = newColorRamp([]string{"#zzz"})
	assert.Error(t, err)
}
