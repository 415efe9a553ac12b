package emath

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum_IsPixelwiseAddition(t *testing.T) {
	got, err := Sum([]SkyMap{{1, 2, 3}, {10, 20, 30}, {100, 200, 300}})
	require.NoError(t, err)
	if diff := cmp.Diff(SkyMap{111, 222, 333}, got); diff != "" {
		t.Errorf("Sum mismatch (-want +got):\n%s", diff)
	}
}

func TestSum_DoesNotMutateInputs(t *testing.T) {
	a := SkyMap{1, 1}
	_, err := Sum([]SkyMap{a, {2, 2}})
	require.NoError(t, err)
	assert.Equal(t, SkyMap{1, 1}, a)
}

func TestResolutionMismatch(t *testing.T) {
	a, b := SkyMap{1, 2, 3}, SkyMap{1, 2}

	_, err := Sum([]SkyMap{a, b})
	require.ErrorIs(t, err, ErrResolutionMismatch)
	_, err = a.Div(b)
	require.ErrorIs(t, err, ErrResolutionMismatch)
	_, err = a.Sub(b)
	require.ErrorIs(t, err, ErrResolutionMismatch)
	_, err = a.ApplyMask(b)
	require.ErrorIs(t, err, ErrResolutionMismatch)
	require.ErrorIs(t, a.AddInPlace(b), ErrResolutionMismatch)
}

func TestDiv_ZeroIsNotFinite(t *testing.T) {
	got, err := SkyMap{1, 0, 4}.Div(SkyMap{0, 0, 2})
	require.NoError(t, err)
	assert.True(t, math.IsInf(got[0], 1))
	assert.True(t, math.IsNaN(got[1]))
	assert.Equal(t, 2.0, got[2])
}

func TestMaskHelpers(t *testing.T) {
	tests := []struct {
		name     string
		mask     SkyMap
		unmasked []int
		fsky     float64
	}{
		{"all kept", SkyMap{1, 1, 1, 1}, []int{0, 1, 2, 3}, 1},
		{"none kept", SkyMap{0, 0, 0, 0}, []int{}, 0},
		{"half", SkyMap{0, 2, 0, -1}, []int{1, 3}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unmasked, tt.mask.Unmasked())
			assert.Equal(t, tt.fsky, tt.mask.FSky())
			assert.GreaterOrEqual(t, tt.mask.FSky(), 0.0)
			assert.LessOrEqual(t, tt.mask.FSky(), 1.0)
		})
	}
}

func TestMeanOver(t *testing.T) {
	m := SkyMap{1, 100, 3, 100}
	assert.Equal(t, 2.0, m.MeanOver([]int{0, 2}))
	assert.True(t, math.IsNaN(m.MeanOver(nil)))
}

func TestApplyMask(t *testing.T) {
	got, err := SkyMap{5, 6, 7}.ApplyMask(SkyMap{1, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, SkyMap{5, UNSEEN, 7}, got)

	min, max := got.MinMax()
	assert.Equal(t, 5.0, min)
	assert.Equal(t, 7.0, max)
}

func TestGeometricMean(t *testing.T) {
	got, err := GeometricMean(SkyMap{1, 4, 0}, SkyMap{4, 9, 5})
	require.NoError(t, err)
	assert.Equal(t, SkyMap{2, 6, 0}, got)
	assert.Equal(t, 10.0, GeometricMean_F64(1, 100))
}

func TestDivBy(t *testing.T) {
	m := SkyMap{3, 0, -6}
	assert.Equal(t, SkyMap{1, 0, -2}, m.DivBy(3))
	assert.Equal(t, SkyMap{3, 0, -6}, m)
	assert.True(t, math.IsNaN(m.DivBy(0)[1]))
}
