package model

import "time"

// Application status values.  An application is created as pending,
// approved or waitlisted and is later mutated by organizer actions or
// by waitlist promotion.
const (
	ApplicationPending    = "pending"
	ApplicationApproved   = "approved"
	ApplicationWaitlisted = "waitlisted"
	ApplicationDeclined   = "declined"
	ApplicationCancelled  = "cancelled"
)

// Application records a volunteer's request to work a specific shift.
// One user holds at most one application per shift; the constraint is
// enforced by the submission workflow rather than the schema.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – applicant.
//  EventID       – event the shift belongs to.
//  RoleID        – role the shift belongs to.
//  ShiftID       – shift being applied for.
//  Status        – state of the application (pending, approved,
//                  waitlisted, declined, cancelled).
//  Answers       – opaque JSON blob of custom-question answers.
//  UploadedFiles – opaque JSON array of uploaded-file references.
//  AppliedAt     – submission timestamp; waitlist promotion orders by it.
//  DecidedAt     – when the status last changed (nullable).
type Application struct {
	ID            uint64     `json:"id"`             // applications.id
	UserID        uint64     `json:"user_id"`        // applications.user_id
	EventID       uint64     `json:"event_id"`       // applications.event_id
	RoleID        uint64     `json:"role_id"`        // applications.role_id
	ShiftID       uint64     `json:"shift_id"`       // applications.shift_id
	Status        string     `json:"status"`         // applications.status
	Answers       *string    `json:"answers"`        // applications.answers (nullable JSON)
	UploadedFiles *string    `json:"uploaded_files"` // applications.uploaded_files (nullable JSON)
	AppliedAt     time.Time  `json:"applied_at"`     // applications.applied_at
	DecidedAt     *time.Time `json:"decided_at"`     // applications.decided_at (nullable)
}
