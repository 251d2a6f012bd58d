// Package geo implements the geofence check for shift check-ins.
package geo

import (
	"errors"
	"math"
	"strconv"

	"github.com/gulldan/volunteerhub/internal/model"
)

const earthRadiusMeters = 6371000

var ErrOutsideGeofence = errors.New("location outside shift geofence")

// Haversine returns the great-circle distance in meters between two
// points given in decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const deg = math.Pi / 180
	dLat := (lat2 - lat1) * deg
	dLon := (lon2 - lon1) * deg
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*deg)*math.Cos(lat2*deg)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// FormatLocation renders coordinates as the "lat,lon" string stored on
// attendance rows.
func FormatLocation(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', 6, 64) + "," + strconv.FormatFloat(lon, 'f', 6, 64)
}

// CheckGeofence validates a reported location against a shift's
// geofence.  Shifts without a geofence accept any location.
func CheckGeofence(s *model.Shift, lat, lon float64) error {
	if !s.HasGeofence() {
		return nil
	}
	if Haversine(*s.GeofenceLat, *s.GeofenceLon, lat, lon) > *s.GeofenceRadius {
		return ErrOutsideGeofence
	}
	return nil
}
