package model

import "time"

// Role is a job type within an event.  It may require skills and a
// minimum age and may auto-approve applications while capacity lasts.
type Role struct {
	ID             uint64    `json:"id"`              // roles.id
	EventID        uint64    `json:"event_id"`        // roles.event_id
	Title          string    `json:"title"`           // roles.title
	Description    string    `json:"description"`     // roles.description
	RequiredSkills *string   `json:"required_skills"` // roles.required_skills (nullable JSON array)
	MinAge         *int      `json:"min_age"`         // roles.min_age (nullable)
	AutoApprove    bool      `json:"auto_approve"`    // roles.auto_approve
	CreatedAt      time.Time `json:"created_at"`      // roles.created_at
}

// Shift is a time window under a role with an integer capacity.
// Capacity is the sole scarce resource: the number of approved
// applications for a shift must never exceed it.
type Shift struct {
	ID             uint64    `json:"id"`              // shifts.id
	RoleID         uint64    `json:"role_id"`         // shifts.role_id
	StartTime      time.Time `json:"start_time"`      // shifts.start_time
	EndTime        time.Time `json:"end_time"`        // shifts.end_time
	Capacity       int       `json:"capacity"`        // shifts.capacity
	QRID           string    `json:"qr_id"`           // shifts.qr_id (uuid printed on kiosk posters)
	GeofenceLat    *float64  `json:"geofence_lat"`    // shifts.geofence_lat (nullable)
	GeofenceLon    *float64  `json:"geofence_lon"`    // shifts.geofence_lon (nullable)
	GeofenceRadius *float64  `json:"geofence_radius"` // shifts.geofence_radius meters (nullable)
}

// HasGeofence reports whether check-ins for the shift require a location.
func (s *Shift) HasGeofence() bool {
	return s.GeofenceLat != nil && s.GeofenceLon != nil && s.GeofenceRadius != nil
}
