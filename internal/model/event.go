package model

import "time"

// Event status values.
const (
	EventDraft     = "draft"
	EventPublished = "published"
	EventClosed    = "closed"
)

// Event visibility values.
const (
	VisibilityPublic   = "public"
	VisibilityUnlisted = "unlisted"
	VisibilityPrivate  = "private"
)

// Event is a volunteering event published by an organization.  Roles and
// shifts live under it.  Applications are accepted only while the event
// is published.
type Event struct {
	ID              uint64    `json:"id"`                // events.id
	OrgID           uint64    `json:"org_id"`            // events.org_id
	Slug            string    `json:"slug"`              // events.slug
	Title           string    `json:"title"`             // events.title
	ShortDesc       string    `json:"short_description"` // events.short_description
	LongDesc        string    `json:"long_description"`  // events.long_description
	Address         *string   `json:"address"`           // events.address (nullable)
	City            *string   `json:"city"`              // events.city (nullable)
	Latitude        *float64  `json:"latitude"`          // events.latitude (nullable)
	Longitude       *float64  `json:"longitude"`         // events.longitude (nullable)
	Timezone        string    `json:"timezone"`          // events.timezone
	StartDate       time.Time `json:"start_date"`        // events.start_date
	EndDate         time.Time `json:"end_date"`          // events.end_date
	Category        string    `json:"category"`          // events.category
	Tags            *string   `json:"tags"`              // events.tags (nullable, comma separated)
	Visibility      string    `json:"visibility"`        // events.visibility
	Status          string    `json:"status"`            // events.status
	CustomQuestions *string   `json:"custom_questions"`  // events.custom_questions (nullable JSON)
	CreatedAt       time.Time `json:"created_at"`        // events.created_at
	UpdatedAt       time.Time `json:"updated_at"`        // events.updated_at
}

// Organization owns events and receives incident reports.
type Organization struct {
	ID          uint64    `json:"id"`          // organizations.id
	Name        string    `json:"name"`        // organizations.name
	Description string    `json:"description"` // organizations.description
	CreatedAt   time.Time `json:"created_at"`  // organizations.created_at
}
