package service

import "errors"

// Domain rule violations surfaced to handlers.  Handlers map these to
// HTTP status codes with errors.Is, so wrap rather than replace them.
var (
	ErrEventClosed    = errors.New("event is not open for applications")
	ErrShiftFull      = errors.New("shift has no free capacity")
	ErrTooYoung       = errors.New("volunteer below minimum age for role")
	ErrMissingSkills  = errors.New("volunteer lacks required skills")
	ErrAlreadyApplied = errors.New("already applied to this shift")
	ErrInvalidStatus  = errors.New("invalid application status")

	ErrNotApproved      = errors.New("application is not approved")
	ErrAlreadyCheckedIn = errors.New("already checked in")
	ErrNotCheckedIn     = errors.New("not checked in")
	ErrNotCheckedOut    = errors.New("not checked out")
	ErrAlreadyVerified  = errors.New("hours already verified")
)
