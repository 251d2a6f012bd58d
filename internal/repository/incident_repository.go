package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/gulldan/volunteerhub/internal/model"
)

// IncidentRepo stores coordinator incident reports.
type IncidentRepo struct{ db *sql.DB }

func NewIncidentRepo(db *sql.DB) *IncidentRepo { return &IncidentRepo{db: db} }

// Create inserts an incident and returns its ID.
func (r *IncidentRepo) Create(ctx context.Context, in *model.Incident) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO incidents (event_id, shift_id, user_id, type, note, photo_refs, created_by)
		 VALUES (?,?,?,?,?,?,?)`,
		in.EventID, in.ShiftID, in.UserID, in.Type, in.Note, in.PhotoRefs, in.CreatedBy)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// OrgIncident is an incident joined with the event title and the name
// of the volunteer involved, if any.
type OrgIncident struct {
	model.Incident
	EventTitle string    `json:"event_title"`
	UserName   *string   `json:"user_name,omitempty"`
	ReportedAt time.Time `json:"reported_at"`
}

// ListByOrg returns an organization's incidents, newest first,
// optionally filtered by type.
func (r *IncidentRepo) ListByOrg(ctx context.Context, orgID uint64, incidentType string) ([]OrgIncident, error) {
	q := `SELECT i.id, i.event_id, i.shift_id, i.user_id, i.type, i.note, i.photo_refs,
			i.created_by, i.created_at, e.title, u.name
		FROM incidents i
		JOIN events e ON e.id = i.event_id
		LEFT JOIN users u ON u.id = i.user_id
		WHERE e.org_id = ?`
	args := []any{orgID}
	if incidentType != "" {
		q += ` AND i.type = ?`
		args = append(args, incidentType)
	}
	q += ` ORDER BY i.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]OrgIncident, 0)
	for rows.Next() {
		var oi OrgIncident
		if err := rows.Scan(&oi.ID, &oi.EventID, &oi.ShiftID, &oi.UserID, &oi.Type, &oi.Note,
			&oi.PhotoRefs, &oi.CreatedBy, &oi.CreatedAt, &oi.EventTitle, &oi.UserName); err != nil {
			return nil, err
		}
		oi.ReportedAt = oi.CreatedAt
		out = append(out, oi)
	}
	return out, rows.Err()
}
