// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and services to distinguish between different failure
// scenarios. For example, ErrForbidden indicates that the current user
// is not authorized to operate on a resource owned by someone else,
// while ErrConflict signals that an operation cannot proceed due to
// existing dependent records.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because
// of conflicting state, such as deleting a shift that still has
// applications. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// ErrEventNotFound indicates that an event was not located in the DB.
var ErrEventNotFound = errors.New("event not found")

// ErrShiftNotFound indicates that a shift was not located in the DB.
var ErrShiftNotFound = errors.New("shift not found")

// ErrApplicationNotFound indicates that an application was not located
// in the DB.
var ErrApplicationNotFound = errors.New("application not found")

// ErrAttendanceNotFound indicates that no attendance record exists for
// the application.
var ErrAttendanceNotFound = errors.New("attendance not found")
