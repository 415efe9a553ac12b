// Package healpix has the small amount of HEALPix geometry the flux maps
// need: pixel counts, pixel solid angle, and angle->pixel lookup in the
// RING scheme (used for the quick-look projections).
package healpix

import(
	"fmt"
	"math"
)

// NsideFromNpix inverts npix = 12*nside^2.
func NsideFromNpix(npix int) (int, error) {
	if npix <= 0 || npix%12 != 0 {
		return 0, fmt.Errorf("healpix: %d is not a valid pixel count", npix)
	}
	nside := int(math.Round(math.Sqrt(float64(npix / 12))))
	if 12*nside*nside != npix {
		return 0, fmt.Errorf("healpix: %d is not a valid pixel count", npix)
	}
	return nside, nil
}

func Npix(nside int) int { return 12 * nside * nside }

// PixelSolidAngle is the area of one pixel in steradians; all pixels are equal-area.
func PixelSolidAngle(npix int) float64 {
	return 4 * math.Pi / float64(npix)
}

// Ang2PixRing returns the RING-scheme pixel containing colatitude theta
// and longitude phi, both in radians.
func Ang2PixRing(nside int, theta, phi float64) int {
	z := math.Cos(theta)
	za := math.Abs(z)

	tt := math.Mod(phi, 2*math.Pi)
	if tt < 0 { tt += 2*math.Pi }
	tt /= math.Pi / 2 // in [0,4)

	ns := float64(nside)
	npix := Npix(nside)

	if za <= 2.0/3.0 {
		// Equatorial region
		temp1 := ns * (0.5 + tt)
		temp2 := ns * z * 0.75
		jp := int(temp1 - temp2) // index of ascending edge line
		jm := int(temp1 + temp2) // index of descending edge line

		ir := nside + 1 + jp - jm // ring number counted from z=2/3, in [1, 2nside+1]
		kshift := 1 - (ir & 1)

		ip := (jp + jm - nside + kshift + 1) / 2
		ip = ip % (4 * nside)

		ncap := 2 * nside * (nside - 1)
		return ncap + (ir-1)*4*nside + ip
	}

	// Polar caps
	tp := tt - math.Floor(tt)
	tmp := ns * math.Sqrt(3*(1-za))

	jp := int(tp * tmp)
	jm := int((1 - tp) * tmp)

	ir := jp + jm + 1 // ring number counted from the closest pole
	ip := int(tt * float64(ir))
	ip = ip % (4 * ir)

	if z > 0 {
		return 2*ir*(ir-1) + ip
	}
	return npix - 2*ir*(ir+1) + ip
}
