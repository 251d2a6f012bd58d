package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/gulldan/volunteerhub/internal/model"
)

// AttendanceRepo manages the zero-or-one attendance record per
// application.  Rows are created at first check-in and mutated at
// checkout and verification; they are never deleted.
type AttendanceRepo struct{ db *sql.DB }

func NewAttendanceRepo(db *sql.DB) *AttendanceRepo { return &AttendanceRepo{db: db} }

const attendanceColumns = `id, application_id, shift_id, status, checkin_at, checkout_at,
	checkin_source, checkin_location, hours_worked, hours_verified, verified_by`

func scanAttendance(s interface{ Scan(...any) error }) (model.Attendance, error) {
	var a model.Attendance
	err := s.Scan(&a.ID, &a.ApplicationID, &a.ShiftID, &a.Status, &a.CheckinAt, &a.CheckoutAt,
		&a.CheckinSource, &a.CheckinLocation, &a.HoursWorked, &a.HoursVerified, &a.VerifiedBy)
	return a, err
}

// GetByApplicationTx returns the attendance row for an application
// within the caller's transaction.
func (r *AttendanceRepo) GetByApplicationTx(ctx context.Context, tx *sql.Tx, applicationID uint64) (model.Attendance, error) {
	a, err := scanAttendance(tx.QueryRowContext(ctx,
		"SELECT "+attendanceColumns+" FROM attendance WHERE application_id=?", applicationID))
	if err == sql.ErrNoRows {
		return a, ErrAttendanceNotFound
	}
	return a, err
}

// CreateCheckinTx inserts a fresh checked_in row within the caller's
// transaction.
func (r *AttendanceRepo) CreateCheckinTx(ctx context.Context, tx *sql.Tx, applicationID, shiftID uint64, source string, location *string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO attendance (application_id, shift_id, status, checkin_at, checkin_source, checkin_location)
		 VALUES (?,?,'checked_in',NOW(),?,?)`,
		applicationID, shiftID, source, location)
	return err
}

// ReviveCheckinTx flips an existing row (checked_out or no_show) back to
// checked_in.  Duplicate check-in guards live in the service layer.
func (r *AttendanceRepo) ReviveCheckinTx(ctx context.Context, tx *sql.Tx, applicationID uint64, source string, location *string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE attendance SET status='checked_in', checkin_at=NOW(), checkin_source=?, checkin_location=?
		 WHERE application_id=?`,
		source, location, applicationID)
	return err
}

// CheckoutTx stamps checkout time and hours within the caller's
// transaction.
func (r *AttendanceRepo) CheckoutTx(ctx context.Context, tx *sql.Tx, applicationID uint64, hours float64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE attendance SET status='checked_out', checkout_at=NOW(), hours_worked=?
		 WHERE application_id=?`,
		hours, applicationID)
	return err
}

// VerifyTx freezes the hours and marks them verified.  The caller is
// responsible for the already-verified guard and for incrementing the
// user's hours_total in the same transaction.
func (r *AttendanceRepo) VerifyTx(ctx context.Context, tx *sql.Tx, applicationID uint64, hours float64, verifiedBy uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE attendance SET hours_worked=?, hours_verified=1, verified_by=?
		 WHERE application_id=?`,
		hours, verifiedBy, applicationID)
	return err
}

// MarkNoShow sets no_show for approved applications without a check-in
// once the shift has ended.  Returns the number of rows inserted.
func (r *AttendanceRepo) MarkNoShow(ctx context.Context, before time.Time) (int64, error) {
	// Attendance rows are only created at check-in, so a no-show is an
	// approved application with no attendance row after shift end.
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance (application_id, shift_id, status, checkin_source)
		 SELECT a.id, a.shift_id, 'no_show', 'manual'
		 FROM applications a
		 JOIN shifts s ON s.id = a.shift_id
		 LEFT JOIN attendance att ON att.application_id = a.id
		 WHERE a.status='approved' AND att.id IS NULL AND s.end_time < ?`,
		before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// OverdueCheckin is a checked_in attendance whose shift ended; the batch
// job auto-checks these out with hours from the scheduled window.
type OverdueCheckin struct {
	ApplicationID uint64
	UserID        uint64
	EventID       uint64
	EventTitle    string
	ShiftStart    time.Time
	ShiftEnd      time.Time
}

// ListOverdueCheckins returns checked_in attendances whose shift ended
// before the cutoff.
func (r *AttendanceRepo) ListOverdueCheckins(ctx context.Context, endedBefore time.Time) ([]OverdueCheckin, error) {
	const q = `SELECT a.id, a.user_id, a.event_id, e.title, s.start_time, s.end_time
		FROM attendance att
		JOIN applications a ON a.id = att.application_id
		JOIN shifts s ON s.id = a.shift_id
		JOIN events e ON e.id = a.event_id
		WHERE att.status = 'checked_in' AND a.status = 'approved' AND s.end_time < ?
		ORDER BY s.end_time`
	rows, err := r.db.QueryContext(ctx, q, endedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]OverdueCheckin, 0)
	for rows.Next() {
		var oc OverdueCheckin
		if err := rows.Scan(&oc.ApplicationID, &oc.UserID, &oc.EventID, &oc.EventTitle,
			&oc.ShiftStart, &oc.ShiftEnd); err != nil {
			return nil, err
		}
		out = append(out, oc)
	}
	return out, rows.Err()
}
