package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Analytics event types written across the application.
const (
	AnalyticsSignupSubmitted  = "signup_submitted"
	AnalyticsStatusChanged    = "status_changed"
	AnalyticsNotificationSent = "notification_sent"
	AnalyticsHoursVerified    = "hours_verified"
	AnalyticsCheckin          = "checkin"
	AnalyticsAutoCheckout     = "auto_checkout"
)

// AnalyticsRepo appends audit/analytics rows and serves the aggregate
// queries behind the organizer dashboard.
type AnalyticsRepo struct{ db *sql.DB }

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{db: db} }

// Log appends an analytics row.  The payload is marshalled to JSON;
// marshal failures and insert failures are both returned so the caller
// can decide whether to ignore them (most call sites do).
func (r *AnalyticsRepo) Log(ctx context.Context, userID *uint64, eventType string, payload map[string]any) error {
	var data *string
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		s := string(b)
		data = &s
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO analytics_events (user_id, event_type, event_data) VALUES (?,?,?)",
		userID, eventType, data)
	return err
}

// OrgStats is the headline dashboard block for an organization.
type OrgStats struct {
	Events        int     `json:"events"`
	Applications  int     `json:"applications"`
	Approved      int     `json:"approved"`
	HoursVerified float64 `json:"hours_verified"`
}

// GetOrgStats aggregates an organization's events, applications and
// verified hours.
func (r *AnalyticsRepo) GetOrgStats(ctx context.Context, orgID uint64) (OrgStats, error) {
	var s OrgStats
	err := r.db.QueryRowContext(ctx, `SELECT
			(SELECT COUNT(*) FROM events WHERE org_id=?),
			(SELECT COUNT(*) FROM applications a JOIN events e ON e.id=a.event_id WHERE e.org_id=?),
			(SELECT COUNT(*) FROM applications a JOIN events e ON e.id=a.event_id WHERE e.org_id=? AND a.status='approved'),
			(SELECT COALESCE(SUM(att.hours_worked),0) FROM attendance att
				JOIN applications a ON a.id=att.application_id
				JOIN events e ON e.id=a.event_id
				WHERE e.org_id=? AND att.hours_verified=1)`,
		orgID, orgID, orgID, orgID).
		Scan(&s.Events, &s.Applications, &s.Approved, &s.HoursVerified)
	return s, err
}

// TopVolunteer is one dashboard leaderboard row.
type TopVolunteer struct {
	UserID uint64  `json:"user_id"`
	Name   string  `json:"name"`
	Hours  float64 `json:"hours"`
	Shifts int     `json:"shifts"`
}

// TopVolunteers returns the organization's volunteers with the most
// verified hours.
func (r *AnalyticsRepo) TopVolunteers(ctx context.Context, orgID uint64, limit int) ([]TopVolunteer, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `SELECT u.id, u.name, COALESCE(SUM(att.hours_worked),0), COUNT(att.id)
		FROM users u
		JOIN applications a ON a.user_id = u.id
		JOIN events e ON e.id = a.event_id
		JOIN attendance att ON att.application_id = a.id
		WHERE e.org_id = ? AND att.hours_verified = 1
		GROUP BY u.id, u.name
		ORDER BY 3 DESC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]TopVolunteer, 0, limit)
	for rows.Next() {
		var tv TopVolunteer
		if err := rows.Scan(&tv.UserID, &tv.Name, &tv.Hours, &tv.Shifts); err != nil {
			return nil, err
		}
		out = append(out, tv)
	}
	return out, rows.Err()
}

// RecentActivity returns the latest analytics rows, newest first.
func (r *AnalyticsRepo) RecentActivity(ctx context.Context, limit int) ([]ActivityRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_type, event_data, created_at FROM analytics_events
		 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ActivityRow, 0, limit)
	for rows.Next() {
		var a ActivityRow
		if err := rows.Scan(&a.EventType, &a.EventData, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ActivityRow is a single recent-activity entry.
type ActivityRow struct {
	EventType string    `json:"event_type"`
	EventData *string   `json:"event_data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
