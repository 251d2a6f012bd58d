package model

import "time"

// Attendance status values.  There is no transition from checked_in to
// no_show: no_show is batch-set by the reminder job for volunteers who
// never checked in.
const (
	AttendanceCheckedIn  = "checked_in"
	AttendanceCheckedOut = "checked_out"
	AttendanceNoShow     = "no_show"
)

// Check-in sources tag where a check-in came from.
const (
	CheckinSourceQR       = "qr"
	CheckinSourceKiosk    = "kiosk"
	CheckinSourceTelegram = "telegram"
	CheckinSourceManual   = "manual"
)

// Attendance is the zero-or-one check-in/check-out record per application.
// It is created at first check-in, mutated at checkout and at hours
// verification, and never deleted.
//
// Fields:
//  ID            – primary key identifier.
//  ApplicationID – application this record belongs to.
//  ShiftID       – shift the attendance was recorded for.
//  Status        – checked_in, checked_out or no_show.
//  CheckinAt     – when the volunteer checked in (nullable).
//  CheckoutAt    – when the volunteer checked out (nullable).
//  CheckinSource – qr, kiosk, telegram or manual.
//  CheckinLocation – raw "lat,lon" string when a location was supplied.
//  HoursWorked   – wall-clock hours between check-in and check-out.
//  HoursVerified – set once a coordinator has verified the hours.
//  VerifiedBy    – coordinator who verified (nullable).
type Attendance struct {
	ID              uint64     `json:"id"`               // attendance.id
	ApplicationID   uint64     `json:"application_id"`   // attendance.application_id
	ShiftID         uint64     `json:"shift_id"`         // attendance.shift_id
	Status          string     `json:"status"`           // attendance.status
	CheckinAt       *time.Time `json:"checkin_at"`       // attendance.checkin_at (nullable)
	CheckoutAt      *time.Time `json:"checkout_at"`      // attendance.checkout_at (nullable)
	CheckinSource   string     `json:"checkin_source"`   // attendance.checkin_source
	CheckinLocation *string    `json:"checkin_location"` // attendance.checkin_location (nullable)
	HoursWorked     float64    `json:"hours_worked"`     // attendance.hours_worked
	HoursVerified   bool       `json:"hours_verified"`   // attendance.hours_verified
	VerifiedBy      *uint64    `json:"verified_by"`      // attendance.verified_by (nullable)
}
