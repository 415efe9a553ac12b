// Package foreground models the diffuse galactic emission: integrating a
// model over an energy window into a map, and fitting that map to counts.
package foreground

import(
	"fmt"
	"path/filepath"
	"sort"

	"github.com/abworrall/fluxmaps/pkg/emath"
	"github.com/abworrall/fluxmaps/pkg/mapstore"
)

// A Node is one model map of differential intensity, at a known energy (MeV).
type Node struct {
	File   string   `yaml:"file"`
	Energy float64  `yaml:"energy"`
}

// Service is what the flux subtraction needs from a foreground model.
type Service interface {
	IntegralMap(nodes []Node, emin, emax float64) (emath.SkyMap, error)
	Fit(template, counts, exposure, mask emath.SkyMap, n0, c0 float64) (FitResult, error)
}

// Model integrates model maps read from a map store, and fits by Poisson
// likelihood. If CacheDir is set, each integrated map is saved there and
// reused as-is by later calls (and later runs) for the same window.
type Model struct {
	Store         mapstore.Store
	PowerLawIndex float64 // used beyond the energy range of the nodes
	CacheDir      string
	Label         string

	nodeMaps      map[string]emath.SkyMap
}

func NewModel(store mapstore.Store, powerLawIndex float64) *Model {
	return &Model{
		Store: store,
		PowerLawIndex: powerLawIndex,
		nodeMaps: map[string]emath.SkyMap{},
	}
}

func (m *Model)CacheName(emin, emax float64) string {
	return filepath.Join(m.CacheDir, fmt.Sprintf("%s_%d-%d.fits", m.Label, int(emin), int(emax)))
}

func (m *Model)IntegralMap(nodes []Node, emin, emax float64) (emath.SkyMap, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("foreground: no model files")
	}
	if emax <= emin {
		return nil, fmt.Errorf("foreground: empty energy window [%g,%g)", emin, emax)
	}

	if m.CacheDir != "" && m.Store.Exists(m.CacheName(emin, emax)) {
		return m.Store.ReadMap(m.CacheName(emin, emax))
	}

	sorted := append([]Node{}, nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Energy < sorted[j].Energy })

	es := make([]float64, len(sorted))
	maps := make([]emath.SkyMap, len(sorted))
	for i, n := range sorted {
		nm, err := m.nodeMap(n.File)
		if err != nil {
			return nil, err
		}
		es[i], maps[i] = n.Energy, nm
	}
	if err := emath.SameSize(maps...); err != nil {
		return nil, fmt.Errorf("foreground model maps: %w", err)
	}

	out := emath.NewSkyMap(maps[0].Npix())
	is := make([]float64, len(maps))
	for p := range out {
		for i := range maps {
			is[i] = maps[i][p]
		}
		out[p] = IntegrateSpectrum(es, is, emin, emax, m.PowerLawIndex)
	}

	if m.CacheDir != "" {
		if err := m.Store.WriteMap(m.CacheName(emin, emax), out); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (m *Model)nodeMap(file string) (emath.SkyMap, error) {
	if m.nodeMaps == nil {
		m.nodeMaps = map[string]emath.SkyMap{}
	}
	if nm, ok := m.nodeMaps[file]; ok {
		return nm, nil
	}
	nm, err := m.Store.ReadMap(file)
	if err != nil {
		return nil, fmt.Errorf("foreground model '%s': %w", file, err)
	}
	m.nodeMaps[file] = nm
	return nm, nil
}

func (m *Model)Fit(template, counts, exposure, mask emath.SkyMap, n0, c0 float64) (FitResult, error) {
	return FitPoisson(template, counts, exposure, mask, n0, c0)
}
