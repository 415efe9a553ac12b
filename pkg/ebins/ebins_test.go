package ebins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_Bins(t *testing.T) {
	s := NewStatic(100, 200, 400, 800)
	require.Len(t, s, 3)

	bins, err := s.Bins("", 1, 3)
	require.NoError(t, err)
	require.Len(t, bins, 2)
	assert.Equal(t, 1, bins[0].Index)
	assert.Equal(t, 200.0, bins[0].EMin)
	assert.Equal(t, 800.0, bins[1].EMax)
	assert.InDelta(t, 282.842712, bins[0].EMean, 1e-6)

	for _, r := range [][2]int{{-1, 2}, {0, 4}, {2, 2}, {3, 1}} {
		_, err := s.Bins("", r[0], r[1])
		assert.ErrorIs(t, err, ErrBinRange, "range %v", r)
	}
}

func TestFITSIndex_ReadsEbounds(t *testing.T) {
	name := filepath.Join(t.TempDir(), "ebounds.fits")
	writeEbounds(t, name, []float32{100000, 200000, 400000, 800000})

	bins, err := NewFITSIndex().Bins(name, 0, 3)
	require.NoError(t, err)
	require.Len(t, bins, 3)
	assert.Equal(t, MicroBin{Index: 0, EMin: 100, EMax: 200, EMean: bins[0].EMean}, bins[0])
	assert.Equal(t, 400.0, bins[2].EMin)
	assert.Equal(t, 800.0, bins[2].EMax)

	_, err = NewFITSIndex().Bins(name, 2, 5)
	require.ErrorIs(t, err, ErrBinRange)
}

func TestFITSIndex_MissingFile(t *testing.T) {
	_, err := NewFITSIndex().Bins(filepath.Join(t.TempDir(), "nope.fits"), 0, 1)
	require.Error(t, err)
}

func writeEbounds(t *testing.T, name string, edgesKeV []float32) {
	t.Helper()

	w, err := os.Create(name)
	require.NoError(t, err)
	defer w.Close()

	f, err := fitsio.Create(w)
	require.NoError(t, err)
	defer f.Close()

	phdu, err := fitsio.NewPrimaryHDU(nil)
	require.NoError(t, err)
	require.NoError(t, f.Write(phdu))

	cols := []fitsio.Column{
		{Name: "CHANNEL", Format: "J"},
		{Name: "E_MIN", Format: "E", Unit: "keV"},
		{Name: "E_MAX", Format: "E", Unit: "keV"},
	}
	tbl, err := fitsio.NewTable("EBOUNDS", cols, fitsio.BINARY_TBL)
	require.NoError(t, err)
	defer tbl.Close()

	for i := 0; i+1 < len(edgesKeV); i++ {
		ch := int32(i + 1)
		emin, emax := edgesKeV[i], edgesKeV[i+1]
		require.NoError(t, tbl.Write(&ch, &emin, &emax))
	}
	require.NoError(t, f.Write(tbl))
}
