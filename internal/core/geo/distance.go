// Package geo holds the containment math shared by the software geofencing
// platform and the reconciliation pass, so both agree on what "inside" means.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371008.8

// Distance returns the great-circle distance in metres between two points.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lng2 - lng1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// Contains reports whether (lat, lng) lies within radius metres of the center.
// The boundary counts as inside.
func Contains(centerLat, centerLng, radius, lat, lng float64) bool {
	return Distance(centerLat, centerLng, lat, lng) <= radius
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
