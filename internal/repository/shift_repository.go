package repository

import (
	"context"
	"database/sql"

	"github.com/gulldan/volunteerhub/internal/model"
)

// ShiftRepo manages persistence for shifts.  Capacity-sensitive reads
// have Tx variants so the workflow can lock the shift row for the
// duration of a status decision.
type ShiftRepo struct{ db *sql.DB }

func NewShiftRepo(db *sql.DB) *ShiftRepo { return &ShiftRepo{db: db} }

const shiftColumns = `id, role_id, start_time, end_time, capacity, qr_id,
	geofence_lat, geofence_lon, geofence_radius`

func scanShift(s interface{ Scan(...any) error }) (model.Shift, error) {
	var sh model.Shift
	err := s.Scan(&sh.ID, &sh.RoleID, &sh.StartTime, &sh.EndTime, &sh.Capacity,
		&sh.QRID, &sh.GeofenceLat, &sh.GeofenceLon, &sh.GeofenceRadius)
	return sh, err
}

// Create inserts a shift under a role and returns its ID.
func (r *ShiftRepo) Create(ctx context.Context, s *model.Shift) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO shifts (role_id, start_time, end_time, capacity, qr_id,
			geofence_lat, geofence_lon, geofence_radius)
		 VALUES (?,?,?,?,?,?,?,?)`,
		s.RoleID, s.StartTime, s.EndTime, s.Capacity, s.QRID,
		s.GeofenceLat, s.GeofenceLon, s.GeofenceRadius)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID returns a single shift.
func (r *ShiftRepo) GetByID(ctx context.Context, id uint64) (model.Shift, error) {
	sh, err := scanShift(r.db.QueryRowContext(ctx,
		"SELECT "+shiftColumns+" FROM shifts WHERE id=?", id))
	if err == sql.ErrNoRows {
		return sh, ErrShiftNotFound
	}
	return sh, err
}

// GetByQRID resolves a shift by the uuid printed on kiosk material.
func (r *ShiftRepo) GetByQRID(ctx context.Context, qrID string) (model.Shift, error) {
	sh, err := scanShift(r.db.QueryRowContext(ctx,
		"SELECT "+shiftColumns+" FROM shifts WHERE qr_id=?", qrID))
	if err == sql.ErrNoRows {
		return sh, ErrShiftNotFound
	}
	return sh, err
}

// GetForUpdateTx loads a shift with a row lock inside the caller's
// transaction.  Every transition into 'approved' takes this lock first,
// so concurrent approvals of the same shift serialize and the capacity
// check cannot race.
func (r *ShiftRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Shift, error) {
	sh, err := scanShift(tx.QueryRowContext(ctx,
		"SELECT "+shiftColumns+" FROM shifts WHERE id=? FOR UPDATE", id))
	if err == sql.ErrNoRows {
		return sh, ErrShiftNotFound
	}
	return sh, err
}

// ShiftOccupancy is a shift with its live application aggregates, as
// listed under a role in the catalog.
type ShiftOccupancy struct {
	model.Shift
	SlotsAvailable int `json:"slots_available"`
	WaitlistCount  int `json:"waitlist_count"`
}

// ListByRole returns a role's shifts ordered by start time, each with
// remaining slots and current waitlist length.
func (r *ShiftRepo) ListByRole(ctx context.Context, roleID uint64) ([]ShiftOccupancy, error) {
	const q = `SELECT s.id, s.role_id, s.start_time, s.end_time, s.capacity, s.qr_id,
			s.geofence_lat, s.geofence_lon, s.geofence_radius,
			s.capacity - COALESCE(a.approved_count, 0),
			COALESCE(a.waitlist_count, 0)
		FROM shifts s
		LEFT JOIN (
			SELECT shift_id,
				SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END) AS approved_count,
				SUM(CASE WHEN status = 'waitlisted' THEN 1 ELSE 0 END) AS waitlist_count
			FROM applications
			WHERE status IN ('approved','waitlisted')
			GROUP BY shift_id
		) a ON s.id = a.shift_id
		WHERE s.role_id = ? ORDER BY s.start_time`
	rows, err := r.db.QueryContext(ctx, q, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ShiftOccupancy, 0)
	for rows.Next() {
		var so ShiftOccupancy
		if err := rows.Scan(&so.ID, &so.RoleID, &so.StartTime, &so.EndTime, &so.Capacity,
			&so.QRID, &so.GeofenceLat, &so.GeofenceLon, &so.GeofenceRadius,
			&so.SlotsAvailable, &so.WaitlistCount); err != nil {
			return nil, err
		}
		out = append(out, so)
	}
	return out, rows.Err()
}
