package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gulldan/volunteerhub/internal/model"
)

func TestHaversineKnownDistance(t *testing.T) {
	// Red Square to Gorky Park is roughly 2.5 km.
	d := Haversine(55.7539, 37.6208, 55.7298, 37.6019)
	assert.InDelta(t, 2900, d, 400)
}

func TestHaversineZero(t *testing.T) {
	assert.InDelta(t, 0, Haversine(48.8566, 2.3522, 48.8566, 2.3522), 0.001)
}

func TestCheckGeofence(t *testing.T) {
	lat, lon, radius := 55.7539, 37.6208, 150.0
	s := &model.Shift{GeofenceLat: &lat, GeofenceLon: &lon, GeofenceRadius: &radius}

	// ~50 m away: inside.
	assert.NoError(t, CheckGeofence(s, 55.75425, 37.62115))
	// ~2.5 km away: outside.
	assert.ErrorIs(t, CheckGeofence(s, 55.7298, 37.6019), ErrOutsideGeofence)
}

func TestCheckGeofenceUnset(t *testing.T) {
	s := &model.Shift{}
	assert.NoError(t, CheckGeofence(s, 0, 0))
}
