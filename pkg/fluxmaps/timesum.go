package fluxmaps

import(
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/abworrall/fluxmaps/pkg/emath"
	"github.com/abworrall/fluxmaps/pkg/mapstore"
)

// Markers for the manifest lines that name a product, by the tool that made it.
const(
	CountsMarker   = "gtbin"
	ExposureMarker = "gtexpcube2"
)

// SummedMaps are the counts and exposure of one micro bin, summed over
// all time periods.
type SummedMaps struct {
	Counts   emath.SkyMap
	Exposure emath.SkyMap
}

// TimeSummer sums the per-time-period maps of each micro bin, and caches
// the sums in CacheDir.
//
// The cache is trusted blindly: if both maps of a micro bin are there,
// they are returned as-is. Nothing checks them against the manifests or
// the maps the manifests name, so after changing the inputs the cache
// must be removed by hand. Concurrent runs for the same output label
// race on the cache.
type TimeSummer struct {
	Store       mapstore.Store
	ManifestDir string
	CacheDir    string
	Log         *zap.Logger
}

func (ts TimeSummer)CountsName(outLabel string, microBin int) string {
	return filepath.Join(ts.CacheDir, fmt.Sprintf("%s_counts_%d.fits", outLabel, microBin))
}

func (ts TimeSummer)ExposureName(outLabel string, microBin int) string {
	return filepath.Join(ts.CacheDir, fmt.Sprintf("%s_exposure_%d.fits", outLabel, microBin))
}

func (ts TimeSummer)ManifestPath(label string) string {
	return filepath.Join(ts.ManifestDir, label+"_outfiles.txt")
}

func (ts TimeSummer)log() *zap.Logger {
	if ts.Log == nil {
		return zap.NewNop()
	}
	return ts.Log
}

// SumMicroBin returns the summed maps for one micro bin, from the cache
// if possible. Counts maps contribute their field `microBin`; exposure
// cubes contribute the geometric mean of fields `microBin` and
// `microBin+1`, since they are sampled at the bin edges.
func (ts TimeSummer)SumMicroBin(outLabel string, microBin int, inLabels []string) (SummedMaps, error) {
	countsName, expName := ts.CountsName(outLabel, microBin), ts.ExposureName(outLabel, microBin)

	if ts.Store.Exists(countsName) && ts.Store.Exists(expName) {
		sm := SummedMaps{}
		var err error
		if sm.Counts, err = ts.Store.ReadMap(countsName); err != nil {
			return sm, err
		}
		if sm.Exposure, err = ts.Store.ReadMap(expName); err != nil {
			return sm, err
		}
		ts.log().Debug("summed maps from cache", zap.Int("micro_bin", microBin), zap.String("counts", countsName))
		return sm, nil
	}

	counts, exposures := []emath.SkyMap{}, []emath.SkyMap{}
	for _, label := range inLabels {
		c, e, err := ts.readManifestMaps(label, microBin)
		if err != nil {
			return SummedMaps{}, err
		}
		counts = append(counts, c...)
		exposures = append(exposures, e...)
	}

	sm := SummedMaps{}
	var err error
	if sm.Counts, err = emath.Sum(counts); err != nil {
		return sm, fmt.Errorf("sum counts, micro bin %d: %w", microBin, err)
	}
	if sm.Exposure, err = emath.Sum(exposures); err != nil {
		return sm, fmt.Errorf("sum exposure, micro bin %d: %w", microBin, err)
	}
	if err := emath.SameSize(sm.Counts, sm.Exposure); err != nil {
		return sm, fmt.Errorf("micro bin %d counts vs exposure: %w", microBin, err)
	}

	for _, out := range []struct{ name string; m emath.SkyMap }{{countsName, sm.Counts}, {expName, sm.Exposure}} {
		if ts.Store.Exists(out.name) {
			// Left behind by a run that died between the two writes
			ts.log().Warn("keeping existing cache map", zap.String("file", out.name))
			continue
		}
		if err := ts.Store.WriteMap(out.name, out.m); err != nil {
			return sm, fmt.Errorf("cache micro bin %d: %w", microBin, err)
		}
	}

	ts.log().Debug("summed maps", zap.Int("micro_bin", microBin), zap.Int("counts_maps", len(counts)),
		zap.Int("exposure_cubes", len(exposures)))

	return sm, nil
}

// readManifestMaps reads the maps a label's manifest names; it needs at
// least one counts map and one exposure cube.
func (ts TimeSummer)readManifestMaps(label string, microBin int) ([]emath.SkyMap, []emath.SkyMap, error) {
	lines, err := readManifest(ts.ManifestPath(label))
	if err != nil {
		return nil, nil, err
	}

	counts, exposures := []emath.SkyMap{}, []emath.SkyMap{}
	for _, line := range lines {
		if strings.Contains(line, CountsMarker) {
			maps, err := ts.Store.ReadFields(line, microBin)
			if err != nil {
				return nil, nil, fmt.Errorf("label %s counts: %w", label, err)
			}
			counts = append(counts, maps[0])
		}
		if strings.Contains(line, ExposureMarker) {
			maps, err := ts.Store.ReadFields(line, microBin, microBin+1)
			if err != nil {
				return nil, nil, fmt.Errorf("label %s exposure: %w", label, err)
			}
			e, err := emath.GeometricMean(maps[0], maps[1])
			if err != nil {
				return nil, nil, fmt.Errorf("label %s exposure '%s': %w", label, line, err)
			}
			exposures = append(exposures, e)
		}
	}

	if len(counts) == 0 {
		return nil, nil, fmt.Errorf("%w: '%s' names no %s product", ErrManifestIncomplete, ts.ManifestPath(label), CountsMarker)
	}
	if len(exposures) == 0 {
		return nil, nil, fmt.Errorf("%w: '%s' names no %s product", ErrManifestIncomplete, ts.ManifestPath(label), ExposureMarker)
	}

	return counts, exposures, nil
}

// readManifest returns the non-blank lines of a manifest, trimmed.
func readManifest(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	defer f.Close()

	lines := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("manifest '%s': %w", filename, err)
	}
	return lines, nil
}
