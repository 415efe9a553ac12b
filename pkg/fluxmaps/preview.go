package fluxmaps

import(
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/codahale/hdrhistogram"
	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"

	"github.com/abworrall/fluxmaps/pkg/emath"
	"github.com/abworrall/fluxmaps/pkg/healpix"
)

// The colour ramp of the previews, from low to high flux.
var previewRamp = []string{"#000004", "#3b0f70", "#8c2981", "#de4968", "#fe9f6d", "#fcfdbf"}

var(
	previewBackground = color.RGBA{0xff, 0xff, 0xff, 0xff}
	previewUnseen     = color.RGBA{0x80, 0x80, 0x80, 0xff}
)

// Percentiles of the unmasked pixels that set the ends of the colour ramp.
const(
	previewLowPrct  = 1.0
	previewHighPrct = 99.0
	histResolution  = 1000000
)

// WritePreview saves a quick-look Mollweide projection of a HEALPix RING
// map as a PNG, `width` pixels wide. UNSEEN pixels are gray. It won't
// overwrite an existing file.
func WritePreview(m emath.SkyMap, title, filename string, width int) error {
	nside, err := healpix.NsideFromNpix(m.Npix())
	if err != nil {
		return fmt.Errorf("preview '%s': %v", filename, err)
	}
	if width < 16 {
		return fmt.Errorf("preview '%s': width %d too small", filename, width)
	}
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("preview '%s': %w", filename, os.ErrExist)
	}

	lo, hi := PercentileRange(m, previewLowPrct, previewHighPrct)
	ramp, err := newColorRamp(previewRamp)
	if err != nil {
		return err
	}

	// Render at about the map's own resolution, then resample to the width asked for
	w := int(2 * math.Sqrt(float64(m.Npix())))
	if w < 128 { w = 128 }
	if w > 4096 { w = 4096 }
	src := image.NewRGBA(image.Rect(0, 0, w, w/2))
	renderMollweide(src, func(theta, phi float64) color.Color {
		v := m[healpix.Ang2PixRing(nside, theta, phi)]
		if v == emath.UNSEEN || !emath.IsFinite(v) {
			return previewUnseen
		}
		return ramp.At((v - lo) / (hi - lo))
	})

	dst := image.NewRGBA(image.Rect(0, 0, width, width/2 + 40))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(previewBackground), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, image.Rect(0, 0, width, width/2), src, src.Bounds(), draw.Over, nil)

	dc := gg.NewContextForImage(dst)
	drawColorBar(dc, ramp, width, width/2, lo, hi)
	dc.SetRGB(0,0,0)
	dc.DrawString(title, 10, 15)

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("preview dir: %v", err)
	}
	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("preview save '%s': %v", filename, err)
	}
	return nil
}

// renderMollweide colours each raster pixel inside the Mollweide ellipse
// with the colour of the sky at that position; longitude increases to the
// left, as seen from inside the sphere.
func renderMollweide(img *image.RGBA, at func(theta, phi float64) color.Color) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for j:=0; j<h; j++ {
		for i:=0; i<w; i++ {
			x := (float64(i)+0.5)/float64(w) * 4*math.Sqrt2 - 2*math.Sqrt2
			y := math.Sqrt2 - (float64(j)+0.5)/float64(h) * 2*math.Sqrt2
			if x*x/8 + y*y/2 > 1 {
				img.Set(i, j, previewBackground)
				continue
			}
			aux := math.Asin(y / math.Sqrt2)
			lat := math.Asin((2*aux + math.Sin(2*aux)) / math.Pi)
			lon := math.Pi * x / (2 * math.Sqrt2 * math.Cos(aux))
			img.Set(i, j, at(math.Pi/2 - lat, -lon))
		}
	}
}

func drawColorBar(dc *gg.Context, ramp colorRamp, width, top int, lo, hi float64) {
	x0, x1 := float64(width)*0.2, float64(width)*0.8
	for x := x0; x < x1; x++ {
		dc.SetColor(ramp.At((x - x0) / (x1 - x0)))
		dc.DrawRectangle(x, float64(top+5), 1, 12)
		dc.Fill()
	}
	dc.SetRGB(0,0,0)
	dc.DrawStringAnchored(fmt.Sprintf("%.2e", lo), x0, float64(top+32), 0.5, 0)
	dc.DrawStringAnchored(fmt.Sprintf("%.2e", hi), x1, float64(top+32), 0.5, 0)
}

type colorRamp []colorful.Color

func newColorRamp(hexes []string) (colorRamp, error) {
	r := colorRamp{}
	for _, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("colour ramp '%s': %v", h, err)
		}
		r = append(r, c)
	}
	return r, nil
}

// At maps [0,1] onto the ramp, blending in Lab space; t is clamped.
func (r colorRamp)At(t float64) color.Color {
	if math.IsNaN(t) || t <= 0 {
		return r[0].Clamped()
	}
	if t >= 1 {
		return r[len(r)-1].Clamped()
	}
	pos := t * float64(len(r)-1)
	i := int(pos)
	return r[i].BlendLab(r[i+1], pos - float64(i)).Clamped()
}

// PercentileRange finds the values at two percentiles of the finite,
// non-UNSEEN pixels of m, to within a millionth of the map's range. A
// flat or empty map gives a range of width one.
func PercentileRange(m emath.SkyMap, loPrct, hiPrct float64) (float64, float64) {
	min, max := m.MinMax()
	if min > max {
		return 0, 1
	}
	if max == min {
		return min, min + 1
	}

	h := hdrhistogram.New(0, histResolution, 3)
	for _, v := range m {
		if v == emath.UNSEEN || !emath.IsFinite(v) { continue }
		h.RecordValue(int64((v - min) / (max - min) * histResolution))
	}

	toValue := func(q float64) float64 {
		return min + float64(h.ValueAtQuantile(q)) / histResolution * (max - min)
	}
	lo, hi := toValue(loPrct), toValue(hiPrct)
	if hi <= lo {
		hi = lo + (max - min) / histResolution
	}
	return lo, hi
}
