// Package sky contains spherical geometry on the celestial sphere. All angles are in degrees.
package sky

import "math"

const deg2rad = math.Pi / 180

// Separation returns the angular distance between two sky positions, using the haversine
// formula, which remains accurate for small separations
func Separation(ra1, dec1, ra2, dec2 float64) float64 {
	dRa := (ra2 - ra1) * deg2rad
	dDec := (dec2 - dec1) * deg2rad
	sinDDec := math.Sin(dDec / 2)
	sinDRa := math.Sin(dRa / 2)
	h := sinDDec*sinDDec + math.Cos(dec1*deg2rad)*math.Cos(dec2*deg2rad)*sinDRa*sinDRa
	if h > 1 {
		h = 1
	}
	return 2 * math.Asin(math.Sqrt(h)) / deg2rad
}

// NormalizeRa maps a right ascension onto [0, 360)
func NormalizeRa(ra float64) float64 {
	ra = math.Mod(ra, 360)
	if ra < 0 {
		ra += 360
	}
	return ra
}

// ValidPosition returns true iff ra and dec are finite and dec lies within [-90, 90]
func ValidPosition(ra, dec float64) bool {
	return !math.IsNaN(ra) && !math.IsInf(ra, 0) && !math.IsNaN(dec) && dec >= -90 && dec <= 90
}
