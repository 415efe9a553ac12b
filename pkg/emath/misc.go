package emath

import "math"

// Some functions that only operate on basic types, that are useful

// GeometricMean combines two maps pixel by pixel as sqrt(a*b). Exposure
// cubes are sampled at energy-bin edges, and this gives the value at the
// (logarithmic) bin center.
func GeometricMean(a, b SkyMap) (SkyMap, error) {
	ab, err := a.Mul(b)
	if err != nil {
		return nil, err
	}
	return ab.Sqrt(), nil
}

// GeometricMean_F64 is the scalar version, used for bin energies.
func GeometricMean_F64(a, b float64) float64 {
	return math.Sqrt(a * b)
}

func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
