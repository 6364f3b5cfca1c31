// grbwatch/astro/coords.go
package astro

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// icrsToGalactic rotates ICRS unit vectors into the Galactic frame
// (Hipparcos definition).
var icrsToGalactic = [3][3]float64{
	{-0.0548755604162154, -0.8734370902348850, -0.4838350155487132},
	{+0.4941094278755837, -0.4448296299600112, +0.7469822444972189},
	{-0.8676661490190047, -0.1980763734312015, +0.4559837761750669},
}

// ParseRA parses a right ascension given in decimal degrees.
func ParseRA(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid right ascension %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid right ascension %q", s)
	}
	return v, nil
}

// ParseDec parses a declination given in decimal degrees.
func ParseDec(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid declination %q: %w", s, err)
	}
	if math.IsNaN(v) || v < -90 || v > 90 {
		return 0, fmt.Errorf("declination %q outside [-90, 90]", s)
	}
	return v, nil
}

// FormatHMS renders an angle in degrees as colon separated hours, minutes
// and seconds with the given number of decimals on the seconds.
func FormatHMS(deg float64, precision int) string {
	hours := wrap360(deg) / 15
	h, m, s := split60(hours, precision)
	h %= 24
	return fmt.Sprintf("%02d:%02d:%s", h, m, formatSeconds(s, precision))
}

// FormatDMS renders an angle in degrees as signed colon separated degrees,
// arcminutes and arcseconds.
func FormatDMS(deg float64, precision int) string {
	sign := "+"
	if deg < 0 {
		sign = "-"
	}
	d, m, s := split60(math.Abs(deg), precision)
	return fmt.Sprintf("%s%02d:%02d:%s", sign, d, m, formatSeconds(s, precision))
}

// EquatorialToGalactic converts ICRS right ascension and declination in
// degrees to Galactic longitude in [0, 360) and latitude in degrees.
func EquatorialToGalactic(raDeg, decDeg float64) (l, b float64) {
	ra := raDeg * math.Pi / 180
	dec := decDeg * math.Pi / 180
	v := [3]float64{
		math.Cos(dec) * math.Cos(ra),
		math.Cos(dec) * math.Sin(ra),
		math.Sin(dec),
	}

	var g [3]float64
	for i := range icrsToGalactic {
		for j := range v {
			g[i] += icrsToGalactic[i][j] * v[j]
		}
	}

	l = math.Atan2(g[1], g[0]) * 180 / math.Pi
	b = math.Asin(math.Max(-1, math.Min(1, g[2]))) * 180 / math.Pi
	return wrap360(l), b
}

func wrap360(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// split60 splits a value into whole units, minutes and seconds, rounding the
// seconds to precision decimals and carrying into minutes and units.
func split60(v float64, precision int) (units, minutes int64, seconds float64) {
	scale := math.Pow(10, float64(precision))
	total := int64(math.Round(v * 3600 * scale))
	perMinute := int64(60 * scale)
	perUnit := 60 * perMinute

	units = total / perUnit
	total -= units * perUnit
	minutes = total / perMinute
	total -= minutes * perMinute
	return units, minutes, float64(total) / scale
}

func formatSeconds(s float64, precision int) string {
	if precision <= 0 {
		return fmt.Sprintf("%02.0f", s)
	}
	return fmt.Sprintf("%0*.*f", precision+3, precision, s)
}
