package mapstore

import(
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/astrogo/fitsio"

	"github.com/abworrall/fluxmaps/pkg/emath"
	"github.com/abworrall/fluxmaps/pkg/healpix"
)

// FITSStore keeps maps as HEALPix binary tables: one row per pixel, one
// column per field. This is how gtbin/gtexpcube2 and healpy write them.
type FITSStore struct {
	ColumnName string // name given to the column of maps we write
}

func NewFITSStore() *FITSStore {
	return &FITSStore{ColumnName: "SIGNAL"}
}

func (s *FITSStore)Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func (s *FITSStore)ReadMap(name string) (emath.SkyMap, error) {
	maps, err := s.ReadFields(name, 0)
	if err != nil {
		return nil, err
	}
	return maps[0], nil
}

func (s *FITSStore)ReadFields(name string, fields ...int) ([]emath.SkyMap, error) {
	r, err := os.Open(name)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("open+r '%s': %w", name, ErrMapNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("open+r '%s': %v", name, err)
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("fits parsing '%s': %v", name, err)
	}
	defer f.Close()

	tbl := firstTable(f)
	if tbl == nil {
		return nil, fmt.Errorf("'%s' has no binary table HDU: %w", name, ErrMapNotFound)
	}

	cols := tbl.Cols()
	for _, field := range fields {
		if field < 0 || field >= len(cols) {
			return nil, fmt.Errorf("'%s' field %d of %d: %w", name, field, len(cols), ErrNoSuchField)
		}
	}

	out := make([]emath.SkyMap, len(fields))
	for i := range out {
		out[i] = emath.SkyMap{}
	}

	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, fmt.Errorf("table read '%s': %v", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		data := map[string]interface{}{}
		for _, field := range fields {
			data[cols[field].Name] = nil
		}
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("row scan '%s': %v", name, err)
		}
		for i, field := range fields {
			vals, err := toFloats(data[cols[field].Name])
			if err != nil {
				return nil, fmt.Errorf("'%s' column %s: %v", name, cols[field].Name, err)
			}
			out[i] = append(out[i], vals...)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows '%s': %v", name, err)
	}

	return out, nil
}

// WriteMap creates any missing parent directories, and refuses to replace
// an existing file.
func (s *FITSStore)WriteMap(name string, m emath.SkyMap) error {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("mkdir for '%s': %v", name, err)
	}

	w, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if os.IsExist(err) {
		return fmt.Errorf("open+w '%s': %w", name, ErrMapExists)
	} else if err != nil {
		return fmt.Errorf("open+w '%s': %v", name, err)
	}

	if err := s.encode(w, m); err != nil {
		w.Close()
		os.Remove(name) // no half-written maps left behind to be trusted later
		return fmt.Errorf("fits writing '%s': %v", name, err)
	}
	if err := w.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("close '%s': %v", name, err)
	}
	return nil
}

func (s *FITSStore)encode(w *os.File, m emath.SkyMap) error {
	f, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer f.Close()

	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return err
	}
	if err := f.Write(phdu); err != nil {
		return err
	}

	cols := []fitsio.Column{{Name: s.ColumnName, Format: "D"}}
	tbl, err := fitsio.NewTable("SKYMAP", cols, fitsio.BINARY_TBL)
	if err != nil {
		return err
	}
	defer tbl.Close()

	cards := []fitsio.Card{
		{Name: "PIXTYPE", Value: "HEALPIX", Comment: "HEALPIX pixelisation"},
		{Name: "ORDERING", Value: "RING", Comment: "Pixel ordering scheme"},
		{Name: "INDXSCHM", Value: "IMPLICIT", Comment: "Indexing: IMPLICIT or EXPLICIT"},
		{Name: "FIRSTPIX", Value: 0, Comment: "First pixel # (0 based)"},
		{Name: "LASTPIX", Value: len(m) - 1, Comment: "Last pixel # (0 based)"},
	}
	if nside, err := healpix.NsideFromNpix(len(m)); err == nil {
		cards = append(cards, fitsio.Card{Name: "NSIDE", Value: nside, Comment: "Resolution parameter of HEALPIX"})
	}
	if err := tbl.Header().Append(cards...); err != nil {
		return err
	}

	for i := range m {
		v := m[i]
		if err := tbl.Write(&v); err != nil {
			return fmt.Errorf("row %d: %v", i, err)
		}
	}

	return f.Write(tbl)
}

func firstTable(f *fitsio.File) *fitsio.Table {
	for _, hdu := range f.HDUs() {
		if tbl, ok := hdu.(*fitsio.Table); ok {
			return tbl
		}
	}
	return nil
}

// toFloats flattens a scanned cell (a scalar, or a fixed/variable length
// vector of any numeric type) into float64s.
func toFloats(cell interface{}) ([]float64, error) {
	rv := reflect.ValueOf(cell)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]float64, rv.Len())
		for i:=0; i<rv.Len(); i++ {
			f, err := scalarToFloat(rv.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	default:
		f, err := scalarToFloat(rv)
		if err != nil {
			return nil, err
		}
		return []float64{f}, nil
	}
}

func scalarToFloat(rv reflect.Value) (float64, error) {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("non-numeric cell of kind %s", rv.Kind())
}
