// Package ebins maps micro energy-bin indices to physical energies.
package ebins

import(
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/astrogo/fitsio"
)

var ErrBinRange = errors.New("ebins: bin range out of bounds")

// A MicroBin is one of the narrow energy bins the input maps are stored in.
// Energies are in MeV.
type MicroBin struct {
	Index int
	EMin  float64
	EMax  float64
	EMean float64 // geometric mean of EMin and EMax
}

func (mb MicroBin)String() string {
	return fmt.Sprintf("bin%d[%.2f-%.2f MeV]", mb.Index, mb.EMin, mb.EMax)
}

// Index returns the micro bins [min,max) defined by a resource (e.g. a file).
type Index interface {
	Bins(resource string, min, max int) ([]MicroBin, error)
}

// Static is an in-memory Index; the resource name is ignored.
type Static []MicroBin

func (s Static)Bins(resource string, min, max int) ([]MicroBin, error) {
	if min < 0 || max > len(s) || min >= max {
		return nil, fmt.Errorf("%w: [%d,%d) of %d", ErrBinRange, min, max, len(s))
	}
	out := make([]MicroBin, max-min)
	copy(out, s[min:max])
	return out, nil
}

// NewStatic builds bins from consecutive edges; n edges give n-1 bins.
func NewStatic(edges ...float64) Static {
	s := Static{}
	for i:=0; i+1<len(edges); i++ {
		s = append(s, newMicroBin(i, edges[i], edges[i+1]))
	}
	return s
}

func newMicroBin(i int, emin, emax float64) MicroBin {
	return MicroBin{Index: i, EMin: emin, EMax: emax, EMean: math.Sqrt(emin*emax)}
}

// FITSIndex reads the EBOUNDS extension written by gtbin, whose E_MIN and
// E_MAX columns are in keV.
type FITSIndex struct {
	Extension string
	ToMeV     float64
}

func NewFITSIndex() FITSIndex {
	return FITSIndex{Extension: "EBOUNDS", ToMeV: 1e-3}
}

func (fi FITSIndex)Bins(filename string, min, max int) ([]MicroBin, error) {
	all, err := fi.load(filename)
	if err != nil {
		return nil, err
	}
	bins, err := all.Bins(filename, min, max)
	if err != nil {
		return nil, fmt.Errorf("'%s': %w", filename, err)
	}
	return bins, nil
}

func (fi FITSIndex)load(filename string) (Static, error) {
	r, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r '%s': %v", filename, err)
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("fits parsing '%s': %v", filename, err)
	}
	defer f.Close()

	var tbl *fitsio.Table
	for _, hdu := range f.HDUs() {
		if t, ok := hdu.(*fitsio.Table); ok && hdu.Name() == fi.Extension {
			tbl = t
		}
	}
	if tbl == nil {
		return nil, fmt.Errorf("'%s' has no %s table", filename, fi.Extension)
	}

	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, fmt.Errorf("%s read '%s': %v", fi.Extension, filename, err)
	}
	defer rows.Close()

	s := Static{}
	for rows.Next() {
		data := map[string]interface{}{"E_MIN": nil, "E_MAX": nil}
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("%s row %d '%s': %v", fi.Extension, len(s), filename, err)
		}
		emin, err1 := asFloat(data["E_MIN"])
		emax, err2 := asFloat(data["E_MAX"])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%s row %d '%s': bad energies %v, %v", fi.Extension, len(s), filename, data["E_MIN"], data["E_MAX"])
		}
		s = append(s, newMicroBin(len(s), emin*fi.ToMeV, emax*fi.ToMeV))
	}

	return s, rows.Err()
}

func asFloat(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float32: return float64(x), nil
	case float64: return x, nil
	case int16:   return float64(x), nil
	case int32:   return float64(x), nil
	case int64:   return float64(x), nil
	}
	return 0, fmt.Errorf("not a number: %T", v)
}
