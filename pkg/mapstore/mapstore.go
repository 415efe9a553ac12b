// Package mapstore reads and writes pixelized-sphere maps. A map file may
// hold several stacked maps ("fields"), e.g. one per energy plane.
package mapstore

import(
	"errors"
	"fmt"
	"sort"

	"github.com/abworrall/fluxmaps/pkg/emath"
)

var(
	ErrMapExists   = errors.New("mapstore: map already exists")
	ErrMapNotFound = errors.New("mapstore: map not found")
	ErrNoSuchField = errors.New("mapstore: no such field")
)

// Store is what the pipeline needs from map storage. Names are paths for
// the FITS store, and opaque keys for the in-memory one.
type Store interface {
	Exists(name string) bool
	ReadMap(name string) (emath.SkyMap, error)                    // field 0
	ReadFields(name string, fields ...int) ([]emath.SkyMap, error) // in the order asked for
	WriteMap(name string, m emath.SkyMap) error                    // never overwrites
}

// MemStore keeps maps in memory. It counts reads per name, so tests can
// see what the pipeline actually touched.
type MemStore struct {
	Files  map[string][]emath.SkyMap
	Reads  map[string]int
	Writes []string
}

func NewMemStore() *MemStore {
	return &MemStore{
		Files: map[string][]emath.SkyMap{},
		Reads: map[string]int{},
		Writes: []string{},
	}
}

// Put installs a (possibly multi-field) file, replacing any existing one.
func (s *MemStore)Put(name string, fields ...emath.SkyMap) {
	s.Files[name] = fields
}

func (s *MemStore)Exists(name string) bool {
	_, ok := s.Files[name]
	return ok
}

func (s *MemStore)ReadMap(name string) (emath.SkyMap, error) {
	maps, err := s.ReadFields(name, 0)
	if err != nil {
		return nil, err
	}
	return maps[0], nil
}

func (s *MemStore)ReadFields(name string, fields ...int) ([]emath.SkyMap, error) {
	file, ok := s.Files[name]
	if !ok {
		return nil, fmt.Errorf("read '%s': %w", name, ErrMapNotFound)
	}
	s.Reads[name]++

	out := []emath.SkyMap{}
	for _, f := range fields {
		if f < 0 || f >= len(file) {
			return nil, fmt.Errorf("read '%s' field %d of %d: %w", name, f, len(file), ErrNoSuchField)
		}
		out = append(out, file[f].Copy())
	}
	return out, nil
}

func (s *MemStore)WriteMap(name string, m emath.SkyMap) error {
	if s.Exists(name) {
		return fmt.Errorf("write '%s': %w", name, ErrMapExists)
	}
	s.Files[name] = []emath.SkyMap{m.Copy()}
	s.Writes = append(s.Writes, name)
	return nil
}

// Names lists the stored files, sorted.
func (s *MemStore)Names() []string {
	names := []string{}
	for n := range s.Files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
