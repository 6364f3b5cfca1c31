// grbwatch/astro/sfd.go
package astro

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/astrogo/fitsio"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "astro")

// RV is the ratio of total to selective extinction used for Av.
const RV = 3.1

// ReddeningMap returns the selective extinction E(B-V) at a Galactic position.
type ReddeningMap interface {
	EBV(l, b float64) (float64, error)
}

// Extinction returns Av = RV * E(B-V) at the given equatorial position.
func Extinction(m ReddeningMap, raDeg, decDeg float64) (float64, error) {
	l, b := EquatorialToGalactic(raDeg, decDeg)
	ebv, err := m.EBV(l, b)
	if err != nil {
		return 0, err
	}
	return RV * ebv, nil
}

// DownloadFunc fetches url into localSavePath.
type DownloadFunc func(url, localSavePath string) error

// SFDMap reads the Schlegel, Finkbeiner & Davis (1998) E(B-V) maps, one
// Lambert equal-area projection per Galactic hemisphere. Each hemisphere is
// loaded on first use and fetched with Download when missing.
type SFDMap struct {
	Dir         string
	URLTemplate string // %s is replaced by "ngp" or "sgp"
	Download    DownloadFunc

	mu    sync.Mutex
	poles map[string]*lambertImage
}

// NewSFDMap returns a map reading SFD_dust_4096_{ngp,sgp}.fits from dir.
// A nil download disables fetching missing files.
func NewSFDMap(dir, urlTemplate string, download DownloadFunc) *SFDMap {
	return &SFDMap{Dir: dir, URLTemplate: urlTemplate, Download: download}
}

// EBV implements ReddeningMap with bilinear interpolation between pixels.
func (m *SFDMap) EBV(l, b float64) (float64, error) {
	pole := "ngp"
	if b < 0 {
		pole = "sgp"
	}
	img, err := m.hemisphere(pole)
	if err != nil {
		return 0, err
	}
	x, y := img.pixel(l, b)
	return img.bilinear(x, y), nil
}

func (m *SFDMap) hemisphere(pole string) (*lambertImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if img, ok := m.poles[pole]; ok {
		return img, nil
	}

	path := filepath.Join(m.Dir, fmt.Sprintf("SFD_dust_4096_%s.fits", pole))
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if m.Download == nil || m.URLTemplate == "" {
			return nil, fmt.Errorf("SFD map %s not found and fetching is disabled", path)
		}
		url := fmt.Sprintf(m.URLTemplate, pole)
		log.Infof("Fetching SFD %s map from %s", pole, url)
		if err := m.Download(url, path); err != nil {
			return nil, fmt.Errorf("failed to fetch SFD %s map: %w", pole, err)
		}
	}

	img, err := readLambertImage(path)
	if err != nil {
		return nil, err
	}
	if m.poles == nil {
		m.poles = make(map[string]*lambertImage, 2)
	}
	m.poles[pole] = img
	return img, nil
}

// lambertImage is one hemisphere of the SFD map.
type lambertImage struct {
	width, height  int
	data           []float32 // row-major, x fastest
	crpix1, crpix2 float64   // FITS 1-based reference pixel
	scale          float64   // LAM_SCAL
	nsgp           float64   // LAM_NSGP: +1 north, -1 south
}

func readLambertImage(path string) (*lambertImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SFD map %s: %w", path, err)
	}
	defer f.Close()

	fits, err := fitsio.Open(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FITS file %s: %w", path, err)
	}
	defer fits.Close()

	hdu, ok := fits.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("primary HDU of %s is not an image", path)
	}
	hdr := hdu.Header()
	axes := hdr.Axes()
	if len(axes) != 2 {
		return nil, fmt.Errorf("SFD map %s has %d axes, want 2", path, len(axes))
	}

	var data []float32
	if err := hdu.Read(&data); err != nil {
		return nil, fmt.Errorf("failed to read image data from %s: %w", path, err)
	}

	img := &lambertImage{
		width:  axes[0],
		height: axes[1],
		data:   data,
		crpix1: cardFloat(hdr, "CRPIX1", float64(axes[0])/2+0.5),
		crpix2: cardFloat(hdr, "CRPIX2", float64(axes[1])/2+0.5),
		scale:  cardFloat(hdr, "LAM_SCAL", float64(axes[0])/2),
		nsgp:   cardFloat(hdr, "LAM_NSGP", 1),
	}
	if len(img.data) != img.width*img.height {
		return nil, fmt.Errorf("SFD map %s has %d pixels, want %dx%d", path, len(img.data), img.width, img.height)
	}
	return img, nil
}

func cardFloat(hdr *fitsio.Header, name string, def float64) float64 {
	card := hdr.Get(name)
	if card == nil {
		return def
	}
	switch v := card.Value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	}
	return def
}

// pixel returns the 0-based image coordinates of Galactic (l, b) in degrees.
func (img *lambertImage) pixel(l, b float64) (x, y float64) {
	return lambertPixel(l, b, img.crpix1, img.crpix2, img.scale, img.nsgp)
}

func lambertPixel(l, b, crpix1, crpix2, scale, nsgp float64) (x, y float64) {
	lr := l * math.Pi / 180
	br := b * math.Pi / 180
	r := math.Sqrt(math.Max(0, 1-nsgp*math.Sin(br)))
	x = crpix1 - 1 + scale*math.Cos(lr)*r
	y = crpix2 - 1 - nsgp*scale*math.Sin(lr)*r
	return x, y
}

// bilinear interpolates at (x, y), clamping to the nearest edge pixel.
func (img *lambertImage) bilinear(x, y float64) float64 {
	x = math.Max(0, math.Min(float64(img.width-1), x))
	y = math.Max(0, math.Min(float64(img.height-1), y))

	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := min(x0+1, img.width-1), min(y0+1, img.height-1)
	fx, fy := x-float64(x0), y-float64(y0)

	at := func(px, py int) float64 { return float64(img.data[py*img.width+px]) }
	return (1-fx)*(1-fy)*at(x0, y0) +
		fx*(1-fy)*at(x1, y0) +
		(1-fx)*fy*at(x0, y1) +
		fx*fy*at(x1, y1)
}
