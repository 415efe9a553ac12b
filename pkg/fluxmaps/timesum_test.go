package fluxmaps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/fluxmaps/pkg/emath"
	"github.com/abworrall/fluxmaps/pkg/mapstore"
)

func constMap(npix int, v float64) emath.SkyMap {
	m := emath.NewSkyMap(npix)
	for i := range m {
		m[i] = v
	}
	return m
}

// addLabel installs the maps of one time period, and its manifest: a
// counts file with one field per micro bin, and an exposure cube with one
// field per bin edge.
func addLabel(t *testing.T, store *mapstore.MemStore, dir, label string, counts []float64, exposureEdges []float64) {
	t.Helper()
	npix := 12
	countsFile, expFile := label+"/ccube_gtbin.fits", label+"/expcube_gtexpcube2.fits"

	fields := []emath.SkyMap{}
	for _, c := range counts {
		fields = append(fields, constMap(npix, c))
	}
	store.Put(countsFile, fields...)

	fields = []emath.SkyMap{}
	for _, e := range exposureEdges {
		fields = append(fields, constMap(npix, e))
	}
	store.Put(expFile, fields...)

	manifest := "# made by the binning step\n" + countsFile + "\n  " + expFile + "  \n" + label + "/ltcube_gtltcube.fits\n\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, label+"_outfiles.txt"), []byte(manifest), 0644))
}

func TestTimeSummer_SumsLabels(t *testing.T) {
	dir := t.TempDir()
	store := mapstore.NewMemStore()
	addLabel(t, store, dir, "y1", []float64{1, 2, 3}, []float64{1, 4, 9, 16})
	addLabel(t, store, dir, "y2", []float64{10, 20, 30}, []float64{1, 1, 1, 1})

	ts := TimeSummer{Store: store, ManifestDir: dir, CacheDir: "output_count"}
	sm, err := ts.SumMicroBin("P8", 1, []string{"y1", "y2"})
	require.NoError(t, err)

	assert.Equal(t, constMap(12, 22), sm.Counts)
	assert.Equal(t, constMap(12, 6+1), sm.Exposure) // sqrt(4*9) + sqrt(1*1)

	assert.Equal(t, []string{"output_count/P8_counts_1.fits", "output_count/P8_exposure_1.fits"}, store.Writes)
	cached, err := store.ReadMap("output_count/P8_exposure_1.fits")
	require.NoError(t, err)
	assert.Equal(t, sm.Exposure, cached)
}

func TestTimeSummer_TrustsCacheBlindly(t *testing.T) {
	dir := t.TempDir()
	store := mapstore.NewMemStore()
	addLabel(t, store, dir, "y1", []float64{1, 2, 3}, []float64{1, 4, 9, 16})

	ts := TimeSummer{Store: store, ManifestDir: dir, CacheDir: "output_count"}
	first, err := ts.SumMicroBin("P8", 0, []string{"y1"})
	require.NoError(t, err)
	readsAfterFirst := store.Reads["y1/ccube_gtbin.fits"]

	// With the manifests and inputs gone, only the cache can answer
	require.NoError(t, os.Remove(filepath.Join(dir, "y1_outfiles.txt")))
	delete(store.Files, "y1/ccube_gtbin.fits")
	delete(store.Files, "y1/expcube_gtexpcube2.fits")

	second, err := ts.SumMicroBin("P8", 0, []string{"y1"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, readsAfterFirst, store.Reads["y1/ccube_gtbin.fits"])
	assert.Len(t, store.Writes, 2)

	// Not validated against anything: a stale cache is returned as-is
	store.Files["output_count/P8_counts_0.fits"][0][0] = 999
	third, err := ts.SumMicroBin("P8", 0, []string{"y1"})
	require.NoError(t, err)
	assert.Equal(t, 999.0, third.Counts[0])
}

func TestTimeSummer_HalfWrittenCache(t *testing.T) {
	dir := t.TempDir()
	store := mapstore.NewMemStore()
	addLabel(t, store, dir, "y1", []float64{5}, []float64{2, 2})
	store.Put("output_count/P8_counts_0.fits", constMap(12, 5))

	ts := TimeSummer{Store: store, ManifestDir: dir, CacheDir: "output_count"}
	sm, err := ts.SumMicroBin("P8", 0, []string{"y1"})
	require.NoError(t, err)
	assert.Equal(t, constMap(12, 2), sm.Exposure)
	assert.Equal(t, []string{"output_count/P8_exposure_0.fits"}, store.Writes)
}

func TestTimeSummer_Errors(t *testing.T) {
	dir := t.TempDir()
	store := mapstore.NewMemStore()
	ts := TimeSummer{Store: store, ManifestDir: dir, CacheDir: "output_count"}

	_, err := ts.SumMicroBin("P8", 0, []string{"nolabel"})
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "nocounts_outfiles.txt"), []byte("x_gtexpcube2.fits\n"), 0644))
	_, err = ts.SumMicroBin("P8", 0, []string{"nocounts"})
	assert.ErrorIs(t, err, ErrManifestIncomplete)

	store.Put("c_gtbin.fits", constMap(12, 1))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "noexp_outfiles.txt"), []byte("c_gtbin.fits\n"), 0644))
	_, err = ts.SumMicroBin("P8", 0, []string{"noexp"})
	assert.ErrorIs(t, err, ErrManifestIncomplete)

	// The exposure cube needs a field past the last micro bin
	addLabel(t, store, dir, "short", []float64{1, 1}, []float64{1, 1})
	_, err = ts.SumMicroBin("P8", 1, []string{"short"})
	assert.ErrorIs(t, err, mapstore.ErrNoSuchField)

	store.Put("big_gtbin.fits", constMap(48, 1))
	store.Put("big_gtexpcube2.fits", constMap(12, 1), constMap(12, 1))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mixed_outfiles.txt"), []byte("big_gtbin.fits\nbig_gtexpcube2.fits\n"), 0644))
	_, err = ts.SumMicroBin("P8", 0, []string{"mixed"})
	assert.ErrorIs(t, err, emath.ErrResolutionMismatch)

	assert.Empty(t, store.Writes)
}
