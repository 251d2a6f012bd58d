package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/gulldan/volunteerhub/internal/model"
)

// ReminderRepo persists the durable due-time queue.  Rows are inserted
// when an application is confirmed and consumed by the batch job, so
// pending reminders survive process restarts.
type ReminderRepo struct{ db *sql.DB }

func NewReminderRepo(db *sql.DB) *ReminderRepo { return &ReminderRepo{db: db} }

// Schedule inserts reminder rows for an application.  Reminders whose
// fire time is already in the past are skipped.
func (r *ReminderRepo) Schedule(ctx context.Context, applicationID uint64, reminders []model.Reminder) error {
	now := time.Now().UTC()
	for _, rem := range reminders {
		if rem.FireAt.Before(now) {
			continue
		}
		if _, err := r.db.ExecContext(ctx,
			"INSERT INTO reminders (application_id, kind, fire_at) VALUES (?,?,?)",
			applicationID, rem.Kind, rem.FireAt); err != nil {
			return err
		}
	}
	return nil
}

// CancelPending removes unsent reminders for an application.  Called
// when an application leaves the approved state.
func (r *ReminderRepo) CancelPending(ctx context.Context, applicationID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM reminders WHERE application_id=? AND sent_at IS NULL", applicationID)
	return err
}

// DueReminder is a due reminder joined with delivery context.
type DueReminder struct {
	ID            uint64
	ApplicationID uint64
	Kind          string
	UserID        uint64
	EventID       uint64
	ShiftID       uint64
	EventTitle    string
	ShiftStart    time.Time
}

// ListDue returns unsent reminders due at or before now whose
// application is still approved and whose user can be reached over
// Telegram.  Two overlapping batch runs may both claim a row; the
// at-least-once behaviour is accepted.
func (r *ReminderRepo) ListDue(ctx context.Context, now time.Time) ([]DueReminder, error) {
	const q = `SELECT rem.id, rem.application_id, rem.kind,
			a.user_id, a.event_id, a.shift_id, e.title, s.start_time
		FROM reminders rem
		JOIN applications a ON a.id = rem.application_id
		JOIN users u ON u.id = a.user_id
		JOIN events e ON e.id = a.event_id
		JOIN shifts s ON s.id = a.shift_id
		WHERE rem.sent_at IS NULL AND rem.fire_at <= ?
		  AND a.status = 'approved'
		  AND u.telegram_user_id IS NOT NULL AND u.notifications_telegram = 1
		ORDER BY rem.fire_at`
	rows, err := r.db.QueryContext(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]DueReminder, 0)
	for rows.Next() {
		var d DueReminder
		if err := rows.Scan(&d.ID, &d.ApplicationID, &d.Kind, &d.UserID, &d.EventID,
			&d.ShiftID, &d.EventTitle, &d.ShiftStart); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkSent stamps a reminder as delivered.
func (r *ReminderRepo) MarkSent(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE reminders SET sent_at=NOW() WHERE id=? AND sent_at IS NULL", id)
	return err
}
