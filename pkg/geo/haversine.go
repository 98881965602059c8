package geo

import "math"

const earthRadiusMeters = 6_371_000.0

// EquirectangularDist returns an approximate distance in meters between
// two lat/lon points, accurate to well under 1% at the scale of a
// single road segment.
func EquirectangularDist(lat1, lon1, lat2, lon2 float64) float64 {
	x := (lon2 - lon1) * math.Cos((lat1+lat2)/2*math.Pi/180) * math.Pi / 180
	y := (lat2 - lat1) * math.Pi / 180
	return math.Sqrt(x*x+y*y) * earthRadiusMeters
}
