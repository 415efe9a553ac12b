package emath

import(
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// UNSEEN is the HEALPix convention for "no value at this pixel".
const UNSEEN = -1.6375e30

var ErrResolutionMismatch = errors.New("emath: map resolution mismatch")

// A SkyMap holds one value per pixel of a pixelized sphere. The pixel
// ordering is whatever the map was written with; maps combined in one
// operation must have the same number of pixels.
type SkyMap []float64

func NewSkyMap(npix int) SkyMap { return make(SkyMap, npix) }

func (m SkyMap)Npix() int { return len(m) }

func (m SkyMap)Copy() SkyMap {
	m2 := make(SkyMap, len(m))
	copy(m2, m)
	return m2
}

// SameSize returns ErrResolutionMismatch unless all the maps have the same pixel count.
func SameSize(maps ...SkyMap) error {
	for i:=1; i<len(maps); i++ {
		if len(maps[i]) != len(maps[0]) {
			return fmt.Errorf("%w: %d pixels vs %d", ErrResolutionMismatch, len(maps[i]), len(maps[0]))
		}
	}
	return nil
}

// Sum adds the maps pixel-wise. No normalization is applied.
func Sum(maps []SkyMap) (SkyMap, error) {
	if len(maps) == 0 {
		return nil, fmt.Errorf("emath: sum of zero maps")
	}
	if err := SameSize(maps...); err != nil {
		return nil, err
	}
	out := maps[0].Copy()
	for _, m := range maps[1:] {
		floats.Add(out, m)
	}
	return out, nil
}

func (m SkyMap)AddInPlace(o SkyMap) error {
	if err := SameSize(m, o); err != nil {
		return err
	}
	floats.Add(m, o)
	return nil
}

func (m SkyMap)Sub(o SkyMap) (SkyMap, error) {
	if err := SameSize(m, o); err != nil {
		return nil, err
	}
	return floats.SubTo(NewSkyMap(len(m)), m, o), nil
}

func (m SkyMap)Mul(o SkyMap) (SkyMap, error) {
	if err := SameSize(m, o); err != nil {
		return nil, err
	}
	return floats.MulTo(NewSkyMap(len(m)), m, o), nil
}

// Div divides pixel by pixel. A zero in `o` is not guarded against; the
// result simply carries Inf or NaN at that pixel.
func (m SkyMap)Div(o SkyMap) (SkyMap, error) {
	if err := SameSize(m, o); err != nil {
		return nil, err
	}
	return floats.DivTo(NewSkyMap(len(m)), m, o), nil
}

func (m SkyMap)Scale(f float64) SkyMap {
	out := m.Copy()
	floats.Scale(f, out)
	return out
}

// DivBy divides every pixel by f.
func (m SkyMap)DivBy(f float64) SkyMap {
	out := NewSkyMap(len(m))
	for i, v := range m {
		out[i] = v / f
	}
	return out
}

func (m SkyMap)Sqrt() SkyMap {
	out := NewSkyMap(len(m))
	for i, v := range m {
		out[i] = math.Sqrt(v)
	}
	return out
}

func (m SkyMap)Square() SkyMap {
	out := NewSkyMap(len(m))
	for i, v := range m {
		out[i] = v*v
	}
	return out
}

// Unmasked returns the ascending indices of the non-zero pixels, when m is
// used as a mask.
func (m SkyMap)Unmasked() []int {
	idx := []int{}
	for i, v := range m {
		if v != 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

// FSky is the fraction of the sphere kept by the mask m.
func (m SkyMap)FSky() float64 {
	if len(m) == 0 {
		return 0
	}
	return float64(len(m.Unmasked())) / float64(len(m))
}

// MeanOver is the arithmetic mean of the pixels listed in idx. An empty
// index set gives NaN.
func (m SkyMap)MeanOver(idx []int) float64 {
	vals := make([]float64, len(idx))
	for i, p := range idx {
		vals[i] = m[p]
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// ApplyMask returns a copy of m where every pixel that is zero in mask
// carries UNSEEN.
func (m SkyMap)ApplyMask(mask SkyMap) (SkyMap, error) {
	if err := SameSize(m, mask); err != nil {
		return nil, err
	}
	out := m.Copy()
	for i := range out {
		if mask[i] == 0 {
			out[i] = UNSEEN
		}
	}
	return out, nil
}

// MinMax ignores UNSEEN and non-finite pixels.
func (m SkyMap)MinMax() (float64, float64) {
	min := math.MaxFloat64
	max := -1.0 * min
	for _, v := range m {
		if v == UNSEEN || math.IsNaN(v) || math.IsInf(v, 0) { continue }
		if v > max { max = v }
		if v < min { min = v }
	}
	return min, max
}

func (m SkyMap)Stats() string {
	min, max := m.MinMax()
	return fmt.Sprintf("map[%d pix, vals{%g,%g}]", len(m), min, max)
}
