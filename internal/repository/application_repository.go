// This file covers applications: the (user, event, role, shift) tuples
// whose status transitions drive the whole workflow.  Capacity-sensitive
// operations are Tx variants, executed while the workflow holds the
// shift row lock.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/gulldan/volunteerhub/internal/model"
)

// ApplicationRepo provides CRUD operations for applications.
type ApplicationRepo struct{ db *sql.DB }

func NewApplicationRepo(db *sql.DB) *ApplicationRepo { return &ApplicationRepo{db: db} }

const applicationColumns = `id, user_id, event_id, role_id, shift_id, status,
	answers, uploaded_files, applied_at, decided_at`

func scanApplication(s interface{ Scan(...any) error }) (model.Application, error) {
	var a model.Application
	err := s.Scan(&a.ID, &a.UserID, &a.EventID, &a.RoleID, &a.ShiftID, &a.Status,
		&a.Answers, &a.UploadedFiles, &a.AppliedAt, &a.DecidedAt)
	return a, err
}

// CreateTx inserts an application within the caller's transaction and
// populates the generated ID.  The caller decides the initial status
// while holding the shift row lock.
func (r *ApplicationRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Application) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO applications (user_id, event_id, role_id, shift_id, status, answers, uploaded_files)
		 VALUES (?,?,?,?,?,?,?)`,
		a.UserID, a.EventID, a.RoleID, a.ShiftID, a.Status, a.Answers, a.UploadedFiles)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByID returns a bare application row.
func (r *ApplicationRepo) GetByID(ctx context.Context, id uint64) (model.Application, error) {
	a, err := scanApplication(r.db.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM applications WHERE id=?", id))
	if err == sql.ErrNoRows {
		return a, ErrApplicationNotFound
	}
	return a, err
}

// GetByUserAndShift returns the user's application for a shift, if any.
// The workflow uses it to enforce one application per (user, shift).
func (r *ApplicationRepo) GetByUserAndShift(ctx context.Context, userID, shiftID uint64) (model.Application, error) {
	a, err := scanApplication(r.db.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM applications WHERE user_id=? AND shift_id=? LIMIT 1",
		userID, shiftID))
	if err == sql.ErrNoRows {
		return a, ErrApplicationNotFound
	}
	return a, err
}

// Detail is an application joined with the context every notification
// and check-in needs: who applied, to what event/role/shift, and how to
// reach them.
type Detail struct {
	model.Application
	UserName              string     `json:"user_name"`
	UserEmail             string     `json:"user_email"`
	TelegramUserID        *int64     `json:"-"`
	NotificationsTelegram bool       `json:"-"`
	NotificationsEmail    bool       `json:"-"`
	EventTitle            string     `json:"event_title"`
	RoleTitle             string     `json:"role_title"`
	ShiftStart            time.Time  `json:"shift_start"`
	ShiftEnd              time.Time  `json:"shift_end"`
	GeofenceLat           *float64   `json:"-"`
	GeofenceLon           *float64   `json:"-"`
	GeofenceRadius        *float64   `json:"-"`
}

const detailQuery = `SELECT a.id, a.user_id, a.event_id, a.role_id, a.shift_id, a.status,
		a.answers, a.uploaded_files, a.applied_at, a.decided_at,
		u.name, u.email, u.telegram_user_id, u.notifications_telegram, u.notifications_email,
		e.title, r.title, s.start_time, s.end_time,
		s.geofence_lat, s.geofence_lon, s.geofence_radius
	FROM applications a
	JOIN users u ON u.id = a.user_id
	JOIN events e ON e.id = a.event_id
	JOIN roles r ON r.id = a.role_id
	JOIN shifts s ON s.id = a.shift_id
	WHERE a.id = ?`

func scanDetail(s interface{ Scan(...any) error }) (Detail, error) {
	var d Detail
	err := s.Scan(&d.ID, &d.UserID, &d.EventID, &d.RoleID, &d.ShiftID, &d.Status,
		&d.Answers, &d.UploadedFiles, &d.AppliedAt, &d.DecidedAt,
		&d.UserName, &d.UserEmail, &d.TelegramUserID,
		&d.NotificationsTelegram, &d.NotificationsEmail,
		&d.EventTitle, &d.RoleTitle, &d.ShiftStart, &d.ShiftEnd,
		&d.GeofenceLat, &d.GeofenceLon, &d.GeofenceRadius)
	return d, err
}

// GetDetail loads an application with user, event, role and shift
// context in a single query.
func (r *ApplicationRepo) GetDetail(ctx context.Context, id uint64) (Detail, error) {
	d, err := scanDetail(r.db.QueryRowContext(ctx, detailQuery, id))
	if err == sql.ErrNoRows {
		return d, ErrApplicationNotFound
	}
	return d, err
}

// GetDetailTx is GetDetail inside the caller's transaction.
func (r *ApplicationRepo) GetDetailTx(ctx context.Context, tx *sql.Tx, id uint64) (Detail, error) {
	d, err := scanDetail(tx.QueryRowContext(ctx, detailQuery, id))
	if err == sql.ErrNoRows {
		return d, ErrApplicationNotFound
	}
	return d, err
}

// UpdateStatusTx persists a new status and stamps decided_at within the
// caller's transaction.
func (r *ApplicationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE applications SET status=?, decided_at=NOW() WHERE id=?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

// ApprovedCountTx counts approved applications for a shift within the
// caller's transaction.  Call with the shift row locked: the count is
// only trustworthy while no concurrent approval can commit.
func (r *ApplicationRepo) ApprovedCountTx(ctx context.Context, tx *sql.Tx, shiftID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM applications WHERE shift_id=? AND status='approved'",
		shiftID).Scan(&n)
	return n, err
}

// EarliestWaitlistedTx returns the id of the earliest-submitted
// waitlisted application for a shift; ties break by insertion order.
// sql.ErrNoRows means the waitlist is empty.
func (r *ApplicationRepo) EarliestWaitlistedTx(ctx context.Context, tx *sql.Tx, shiftID uint64) (uint64, error) {
	var id uint64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM applications WHERE shift_id=? AND status='waitlisted'
		 ORDER BY applied_at, id LIMIT 1`, shiftID).Scan(&id)
	return id, err
}

// EventRow is an application as listed on the organizer/coordinator
// panels: applicant contact data, role, shift window and the attendance
// state (or "registered" when no attendance row exists yet).
type EventRow struct {
	ApplicationID    uint64     `json:"application_id"`
	ShiftID          uint64     `json:"shift_id"`
	UserName         string     `json:"user_name"`
	Email            string     `json:"email"`
	Phone            *string    `json:"phone,omitempty"`
	RoleTitle        string     `json:"role_title"`
	ShiftStart       time.Time  `json:"shift_start"`
	ShiftEnd         time.Time  `json:"shift_end"`
	Status           string     `json:"status"`
	AttendanceStatus string     `json:"attendance_status"`
	CheckinAt        *time.Time `json:"checkin_at,omitempty"`
	CheckoutAt       *time.Time `json:"checkout_at,omitempty"`
	HoursWorked      float64    `json:"hours_worked"`
	AppliedAt        time.Time  `json:"applied_at"`
}

// ListByEvent returns all applications for an event with attendance
// state, ordered approved first, then waitlisted, then pending, then by
// submission time.  This is the coordinator live-panel query.
func (r *ApplicationRepo) ListByEvent(ctx context.Context, eventID uint64) ([]EventRow, error) {
	const q = `SELECT a.id, a.shift_id, u.name, u.email, u.phone, r.title,
			s.start_time, s.end_time, a.status,
			COALESCE(att.status, 'registered'), att.checkin_at, att.checkout_at,
			COALESCE(att.hours_worked, 0), a.applied_at
		FROM applications a
		JOIN users u ON u.id = a.user_id
		JOIN roles r ON r.id = a.role_id
		JOIN shifts s ON s.id = a.shift_id
		LEFT JOIN attendance att ON att.application_id = a.id
		WHERE a.event_id = ?
		ORDER BY CASE a.status
			WHEN 'approved' THEN 1
			WHEN 'waitlisted' THEN 2
			WHEN 'pending' THEN 3
			ELSE 4 END,
			a.applied_at`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]EventRow, 0)
	for rows.Next() {
		var er EventRow
		if err := rows.Scan(&er.ApplicationID, &er.ShiftID, &er.UserName, &er.Email, &er.Phone,
			&er.RoleTitle, &er.ShiftStart, &er.ShiftEnd, &er.Status,
			&er.AttendanceStatus, &er.CheckinAt, &er.CheckoutAt,
			&er.HoursWorked, &er.AppliedAt); err != nil {
			return nil, err
		}
		out = append(out, er)
	}
	return out, rows.Err()
}

// UpcomingRow is an approved application with the context a volunteer
// needs to show up: event, role, address, shift window and the shift QR.
type UpcomingRow struct {
	ApplicationID uint64    `json:"application_id"`
	ShiftID       uint64    `json:"shift_id"`
	EventTitle    string    `json:"event_title"`
	RoleTitle     string    `json:"role_title"`
	Address       *string   `json:"address,omitempty"`
	ShiftStart    time.Time `json:"shift_start"`
	ShiftEnd      time.Time `json:"shift_end"`
	QRID          string    `json:"qr_id"`
}

// ListUpcomingByUser returns the user's approved applications for shifts
// that have not started yet, soonest first.
func (r *ApplicationRepo) ListUpcomingByUser(ctx context.Context, userID uint64) ([]UpcomingRow, error) {
	const q = `SELECT a.id, a.shift_id, e.title, r.title, e.address,
			s.start_time, s.end_time, s.qr_id
		FROM applications a
		JOIN events e ON e.id = a.event_id
		JOIN roles r ON r.id = a.role_id
		JOIN shifts s ON s.id = a.shift_id
		WHERE a.user_id = ? AND a.status = 'approved' AND s.start_time >= NOW()
		ORDER BY s.start_time`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]UpcomingRow, 0)
	for rows.Next() {
		var ur UpcomingRow
		if err := rows.Scan(&ur.ApplicationID, &ur.ShiftID, &ur.EventTitle, &ur.RoleTitle,
			&ur.Address, &ur.ShiftStart, &ur.ShiftEnd, &ur.QRID); err != nil {
			return nil, err
		}
		out = append(out, ur)
	}
	return out, rows.Err()
}

// MineRow is an application as shown on the volunteer's own list.
type MineRow struct {
	ApplicationID uint64    `json:"application_id"`
	EventID       uint64    `json:"event_id"`
	EventTitle    string    `json:"event_title"`
	RoleTitle     string    `json:"role_title"`
	ShiftStart    time.Time `json:"shift_start"`
	ShiftEnd      time.Time `json:"shift_end"`
	Status        string    `json:"status"`
	AppliedAt     time.Time `json:"applied_at"`
}

// ListByUser returns all of a user's applications, newest first.
func (r *ApplicationRepo) ListByUser(ctx context.Context, userID uint64) ([]MineRow, error) {
	const q = `SELECT a.id, a.event_id, e.title, r.title, s.start_time, s.end_time,
			a.status, a.applied_at
		FROM applications a
		JOIN events e ON e.id = a.event_id
		JOIN roles r ON r.id = a.role_id
		JOIN shifts s ON s.id = a.shift_id
		WHERE a.user_id = ?
		ORDER BY a.applied_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]MineRow, 0)
	for rows.Next() {
		var mr MineRow
		if err := rows.Scan(&mr.ApplicationID, &mr.EventID, &mr.EventTitle, &mr.RoleTitle,
			&mr.ShiftStart, &mr.ShiftEnd, &mr.Status, &mr.AppliedAt); err != nil {
			return nil, err
		}
		out = append(out, mr)
	}
	return out, rows.Err()
}

// ListOpenIDsByEvent returns the ids of applications still pending,
// approved or waitlisted for an event.  Closing an event cancels them.
func (r *ApplicationRepo) ListOpenIDsByEvent(ctx context.Context, eventID uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM applications WHERE event_id=?
		 AND status IN ('pending','approved','waitlisted') ORDER BY id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
