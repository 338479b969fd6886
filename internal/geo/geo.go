// Package geo holds the location sample type and the distance math used to
// decide whether a new sample is worth forwarding.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6371000.0

// Location is a single latitude/longitude reading in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate returns an error if the coordinates are not a usable position.
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || math.IsInf(l.Latitude, 0) {
		return errors.New("latitude is not a finite number")
	}
	if math.IsNaN(l.Longitude) || math.IsInf(l.Longitude, 0) {
		return errors.New("longitude is not a finite number")
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		return errors.New("latitude out of range")
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return errors.New("longitude out of range")
	}
	return nil
}

func (l Location) String() string {
	return fmt.Sprintf("%.6f,%.6f", l.Latitude, l.Longitude)
}

// Distance returns the great-circle distance between a and b in meters
// (haversine formula).
func Distance(a, b Location) float64 {
	phi1 := a.Latitude * math.Pi / 180
	phi2 := b.Latitude * math.Pi / 180
	dPhi := (b.Latitude - a.Latitude) * math.Pi / 180
	dLambda := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
