// Package geo provides great-circle distance over resource coordinates.
// All distances in this system are in statute miles.
package geo

import "math"

// EarthRadiusMiles is the mean radius of Earth used for Haversine distance.
const EarthRadiusMiles = 3958.8

// Haversine returns the great-circle distance in miles between two points
// specified by latitude and longitude in degrees. Full precision; rounding
// happens only at the response boundary.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// RoundMiles rounds a distance to one decimal place for presentation.
func RoundMiles(miles float64) float64 {
	return math.Round(miles*10) / 10
}
