package cluster

import "math"

const (
	earthRadiusKm = 6371.0

	// kmPerDegreeLat is the approximate surface distance covered by one
	// degree of latitude. Used only to size grid scan windows, never for
	// exact distance checks.
	kmPerDegreeLat = 111.0
)

// DistanceKm returns the great-circle distance in kilometers between two
// lat/lon pairs using the Haversine formula. Symmetric, zero for identical
// points; NaN inputs propagate NaN.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// latSpanDegrees converts a radius in kilometers to a latitude span in degrees.
func latSpanDegrees(radiusKm float64) float64 {
	return radiusKm / kmPerDegreeLat
}

// lonSpanDegrees converts a radius in kilometers to a longitude span in
// degrees at the given latitude. One degree of longitude shrinks by
// cos(latitude) away from the equator, so the span is widened accordingly.
// The cosine is clamped so polar queries widen the scan instead of blowing up;
// over-scanning only costs extra candidate checks, never correctness.
func lonSpanDegrees(radiusKm, latitude float64) float64 {
	cosLat := math.Cos(latitude * math.Pi / 180.0)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	return radiusKm / (kmPerDegreeLat * cosLat)
}
