package service

import (
	"context"
	"database/sql"
	"log"
	"math"
	"time"

	"github.com/gulldan/volunteerhub/internal/model"
	"github.com/gulldan/volunteerhub/internal/notify"
	"github.com/gulldan/volunteerhub/internal/repository"
)

// AttendanceStore is the slice of AttendanceRepo the service needs.
type AttendanceStore interface {
	GetByApplicationTx(ctx context.Context, tx *sql.Tx, applicationID uint64) (model.Attendance, error)
	CreateCheckinTx(ctx context.Context, tx *sql.Tx, applicationID, shiftID uint64, source string, location *string) error
	ReviveCheckinTx(ctx context.Context, tx *sql.Tx, applicationID uint64, source string, location *string) error
	CheckoutTx(ctx context.Context, tx *sql.Tx, applicationID uint64, hours float64) error
	VerifyTx(ctx context.Context, tx *sql.Tx, applicationID uint64, hours float64, verifiedBy uint64) error
}

// AttendanceService owns check-in, checkout and hours verification.
type AttendanceService struct {
	db         *sql.DB
	apps       ApplicationStore
	attendance AttendanceStore
	users      UserStore
	notifier   Notifier
	analytics  AnalyticsLogger
	now        func() time.Time
}

func NewAttendanceService(db *sql.DB, apps ApplicationStore, attendance AttendanceStore,
	users UserStore, notifier Notifier, analytics AnalyticsLogger) *AttendanceService {
	return &AttendanceService{
		db: db, apps: apps, attendance: attendance, users: users,
		notifier: notifier, analytics: analytics, now: time.Now,
	}
}

// CheckIn records a volunteer's arrival.  Only approved applications
// can check in, and a volunteer who already checked in (or out) cannot
// check in again.  A no_show row left by the batch job is revived: the
// volunteer did show up, just late.
func (s *AttendanceService) CheckIn(ctx context.Context, applicationID uint64, source string, location *string) (repository.Detail, error) {
	d, err := s.apps.GetDetail(ctx, applicationID)
	if err != nil {
		return d, err
	}
	if d.Status != model.ApplicationApproved {
		return d, ErrNotApproved
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return d, err
	}
	defer func() { _ = tx.Rollback() }()

	att, err := s.attendance.GetByApplicationTx(ctx, tx, applicationID)
	switch {
	case err == repository.ErrAttendanceNotFound:
		err = s.attendance.CreateCheckinTx(ctx, tx, applicationID, d.ShiftID, source, location)
	case err != nil:
		return d, err
	case att.Status == model.AttendanceNoShow:
		err = s.attendance.ReviveCheckinTx(ctx, tx, applicationID, source, location)
	default:
		return d, ErrAlreadyCheckedIn
	}
	if err != nil {
		return d, err
	}
	if err := tx.Commit(); err != nil {
		return d, err
	}

	s.logEvent(ctx, d.UserID, repository.AnalyticsCheckin, map[string]any{
		"application_id": applicationID,
		"source":         source,
	})
	s.notifier.Application(ctx, d, notify.KindCheckinOK)
	return d, nil
}

// CheckOut records departure.  Hours come from the override when the
// coordinator supplies one, otherwise from the check-in time, clamped
// to the shift end so lingering after a shift does not inflate hours.
func (s *AttendanceService) CheckOut(ctx context.Context, applicationID uint64, hoursOverride *float64) (float64, error) {
	d, err := s.apps.GetDetail(ctx, applicationID)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	att, err := s.attendance.GetByApplicationTx(ctx, tx, applicationID)
	if err == repository.ErrAttendanceNotFound {
		return 0, ErrNotCheckedIn
	}
	if err != nil {
		return 0, err
	}
	if att.Status != model.AttendanceCheckedIn || att.CheckinAt == nil {
		return 0, ErrNotCheckedIn
	}

	end := s.now()
	if end.After(d.ShiftEnd) {
		end = d.ShiftEnd
	}
	hours := roundHours(end.Sub(*att.CheckinAt))
	if hoursOverride != nil {
		hours = *hoursOverride
	}

	if err := s.attendance.CheckoutTx(ctx, tx, applicationID, hours); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	s.notifier.Application(ctx, d, notify.KindShiftDone)
	return hours, nil
}

// Verify freezes an attendance's hours and adds them to the user's
// lifetime total in the same transaction.  A nil hours override keeps
// the recorded value.  Verification is one-shot.
func (s *AttendanceService) Verify(ctx context.Context, verifierID, applicationID uint64, hoursOverride *float64) (float64, error) {
	d, err := s.apps.GetDetail(ctx, applicationID)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	att, err := s.attendance.GetByApplicationTx(ctx, tx, applicationID)
	if err != nil {
		return 0, err
	}
	if att.HoursVerified {
		return 0, ErrAlreadyVerified
	}
	if att.Status != model.AttendanceCheckedOut {
		return 0, ErrNotCheckedOut
	}

	hours := att.HoursWorked
	if hoursOverride != nil {
		hours = *hoursOverride
	}
	if err := s.attendance.VerifyTx(ctx, tx, applicationID, hours, verifierID); err != nil {
		return 0, err
	}
	if err := s.users.AddHoursTx(ctx, tx, d.UserID, int(math.Round(hours))); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	s.logEvent(ctx, d.UserID, repository.AnalyticsHoursVerified, map[string]any{
		"application_id": applicationID,
		"hours":          hours,
		"verified_by":    verifierID,
	})
	s.notifier.Application(ctx, d, notify.KindHoursVerified)
	return hours, nil
}

// VerifyResult is the per-application outcome of a bulk verification.
type VerifyResult struct {
	ApplicationID uint64  `json:"application_id"`
	Hours         float64 `json:"hours,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// BulkVerify verifies many attendances, collecting per-application
// outcomes instead of stopping at the first failure.
func (s *AttendanceService) BulkVerify(ctx context.Context, verifierID uint64, applicationIDs []uint64) []VerifyResult {
	out := make([]VerifyResult, 0, len(applicationIDs))
	for _, id := range applicationIDs {
		res := VerifyResult{ApplicationID: id}
		hours, err := s.Verify(ctx, verifierID, id, nil)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Hours = hours
		}
		out = append(out, res)
	}
	return out
}

func (s *AttendanceService) logEvent(ctx context.Context, userID uint64, eventType string, payload map[string]any) {
	if s.analytics == nil {
		return
	}
	if err := s.analytics.Log(ctx, &userID, eventType, payload); err != nil {
		log.Printf("attendance: analytics log failed: %v", err)
	}
}

// roundHours converts a duration to hours with two decimals, never
// negative.
func roundHours(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return math.Round(d.Hours()*100) / 100
}
