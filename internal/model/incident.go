package model

import "time"

// Incident is a report filed by a coordinator during an event: an
// injury, a no-show cluster, damaged equipment and so on.
type Incident struct {
	ID        uint64    `json:"id"`         // incidents.id
	EventID   uint64    `json:"event_id"`   // incidents.event_id
	ShiftID   *uint64   `json:"shift_id"`   // incidents.shift_id (nullable)
	UserID    *uint64   `json:"user_id"`    // incidents.user_id (nullable, volunteer involved)
	Type      string    `json:"type"`       // incidents.type
	Note      string    `json:"note"`       // incidents.note
	PhotoRefs *string   `json:"photo_refs"` // incidents.photo_refs (nullable JSON array)
	CreatedBy uint64    `json:"created_by"` // incidents.created_by
	CreatedAt time.Time `json:"created_at"` // incidents.created_at
}

// AnalyticsEvent is an append-only audit/analytics row.  Notification
// sends, signups and hour verifications are recorded here and feed the
// organization stats queries.
type AnalyticsEvent struct {
	ID        uint64    `json:"id"`         // analytics_events.id
	UserID    *uint64   `json:"user_id"`    // analytics_events.user_id (nullable)
	EventType string    `json:"event_type"` // analytics_events.event_type
	EventData *string   `json:"event_data"` // analytics_events.event_data (nullable JSON)
	CreatedAt time.Time `json:"created_at"` // analytics_events.created_at
}
