// Package repository contains data access logic built on database/sql.
// This file covers events: organizer CRUD, the public catalog and the
// filtered search used by the event browser.
package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/gulldan/volunteerhub/internal/model"
)

// EventRepo manages persistence for events.
type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `e.id, e.org_id, e.slug, e.title, e.short_description, e.long_description,
	e.address, e.city, e.latitude, e.longitude, e.timezone, e.start_date, e.end_date,
	e.category, e.tags, e.visibility, e.status, e.custom_questions, e.created_at, e.updated_at`

func scanEvent(s interface{ Scan(...any) error }) (model.Event, error) {
	var e model.Event
	err := s.Scan(&e.ID, &e.OrgID, &e.Slug, &e.Title, &e.ShortDesc, &e.LongDesc,
		&e.Address, &e.City, &e.Latitude, &e.Longitude, &e.Timezone,
		&e.StartDate, &e.EndDate, &e.Category, &e.Tags, &e.Visibility,
		&e.Status, &e.CustomQuestions, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// Create inserts a new event in draft state and returns its ID.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) (uint64, error) {
	const q = `INSERT INTO events (org_id, slug, title, short_description, long_description,
		address, city, latitude, longitude, timezone, start_date, end_date,
		category, tags, visibility, status, custom_questions)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, e.OrgID, e.Slug, e.Title, e.ShortDesc, e.LongDesc,
		e.Address, e.City, e.Latitude, e.Longitude, e.Timezone, e.StartDate, e.EndDate,
		e.Category, e.Tags, e.Visibility, e.Status, e.CustomQuestions)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update stores the mutable event fields.  Status changes go through
// UpdateStatus so that closing an event stays an explicit operation.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	const q = `UPDATE events SET title=?, short_description=?, long_description=?,
		address=?, city=?, latitude=?, longitude=?, timezone=?, start_date=?, end_date=?,
		category=?, tags=?, visibility=?, custom_questions=?, updated_at=NOW()
		WHERE id=?`
	res, err := r.db.ExecContext(ctx, q, e.Title, e.ShortDesc, e.LongDesc,
		e.Address, e.City, e.Latitude, e.Longitude, e.Timezone, e.StartDate, e.EndDate,
		e.Category, e.Tags, e.Visibility, e.CustomQuestions, e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// UpdateStatus moves an event between draft, published and closed.
func (r *EventRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE events SET status=?, updated_at=NOW() WHERE id=?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// GetByID returns a single event.  ErrEventNotFound is returned when
// the row does not exist.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events e WHERE e.id=?", id))
	if err == sql.ErrNoRows {
		return e, ErrEventNotFound
	}
	return e, err
}

// OrgID returns the owning organization of an event without loading the
// whole row.  Used by ownership checks.
func (r *EventRepo) OrgID(ctx context.Context, id uint64) (uint64, error) {
	var orgID uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT org_id FROM events WHERE id=?", id).Scan(&orgID)
	if err == sql.ErrNoRows {
		return 0, ErrEventNotFound
	}
	return orgID, err
}

// ListUpcoming returns published public/unlisted events starting today or
// later, with the organization name attached, ordered by start date.
func (r *EventRepo) ListUpcoming(ctx context.Context) ([]EventSummary, error) {
	const q = `SELECT ` + eventColumns + `, o.name
		FROM events e JOIN organizations o ON o.id = e.org_id
		WHERE e.start_date >= CURDATE() AND e.status = 'published'
		  AND e.visibility IN ('public','unlisted')
		ORDER BY e.start_date`
	return r.queryEventSummaries(ctx, q)
}

// ListByOrg returns all events of an organization, newest first.
func (r *EventRepo) ListByOrg(ctx context.Context, orgID uint64) ([]EventSummary, error) {
	const q = `SELECT ` + eventColumns + `, o.name
		FROM events e JOIN organizations o ON o.id = e.org_id
		WHERE e.org_id = ? ORDER BY e.start_date DESC`
	return r.queryEventSummaries(ctx, q, orgID)
}

// EventSummary is an event with its organization name, as shown in the
// catalog and the organizer dashboard.
type EventSummary struct {
	model.Event
	OrgName string `json:"org_name"`
}

func (r *EventRepo) queryEventSummaries(ctx context.Context, q string, args ...any) ([]EventSummary, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]EventSummary, 0)
	for rows.Next() {
		var s EventSummary
		if err := rows.Scan(&s.ID, &s.OrgID, &s.Slug, &s.Title, &s.ShortDesc, &s.LongDesc,
			&s.Address, &s.City, &s.Latitude, &s.Longitude, &s.Timezone,
			&s.StartDate, &s.EndDate, &s.Category, &s.Tags, &s.Visibility,
			&s.Status, &s.CustomQuestions, &s.CreatedAt, &s.UpdatedAt, &s.OrgName); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SearchFilter holds the optional catalog search criteria.  Zero values
// mean "no filter".
type SearchFilter struct {
	Text     string
	Category string
	City     string
	DateFrom string // YYYY-MM-DD
	DateTo   string // YYYY-MM-DD
	MaxAge   *int   // applicant age: keep events whose minimum role age fits
	Skill    string
	Tag      string
}

// Search returns published public/unlisted events matching the filter,
// with aggregate slot availability computed from roles, shifts and
// approved applications.  The filter is applied in SQL; the text filter
// matches title, short description and category.
func (r *EventRepo) Search(ctx context.Context, f SearchFilter) ([]EventSearchResult, error) {
	q := `SELECT ` + eventColumns + `, o.name,
		COALESCE(slot.slots_available, 0), COALESCE(slot.approved_count, 0), slot.min_role_age
		FROM events e
		JOIN organizations o ON o.id = e.org_id
		LEFT JOIN (
			SELECT r.event_id,
				SUM(s.capacity - COALESCE(a.approved_count,0)) AS slots_available,
				SUM(COALESCE(a.approved_count,0)) AS approved_count,
				MIN(r.min_age) AS min_role_age,
				GROUP_CONCAT(r.required_skills SEPARATOR ',') AS role_skills
			FROM roles r
			JOIN shifts s ON s.role_id = r.id
			LEFT JOIN (
				SELECT shift_id, COUNT(*) AS approved_count
				FROM applications WHERE status = 'approved' GROUP BY shift_id
			) a ON a.shift_id = s.id
			GROUP BY r.event_id
		) slot ON slot.event_id = e.id
		WHERE e.status = 'published' AND e.visibility IN ('public','unlisted')`
	args := make([]any, 0, 8)
	if f.Text != "" {
		q += ` AND (e.title LIKE ? OR e.short_description LIKE ? OR e.category LIKE ?)`
		like := "%" + f.Text + "%"
		args = append(args, like, like, like)
	}
	if f.Category != "" {
		q += ` AND e.category = ?`
		args = append(args, f.Category)
	}
	if f.City != "" {
		q += ` AND e.city LIKE ?`
		args = append(args, "%"+f.City+"%")
	}
	if f.DateFrom != "" {
		q += ` AND e.start_date >= ?`
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		q += ` AND e.start_date <= ?`
		args = append(args, f.DateTo)
	}
	if f.MaxAge != nil {
		q += ` AND (slot.min_role_age IS NULL OR slot.min_role_age <= ?)`
		args = append(args, *f.MaxAge)
	}
	if f.Skill != "" {
		q += ` AND slot.role_skills LIKE ?`
		args = append(args, "%"+f.Skill+"%")
	}
	if f.Tag != "" {
		q += ` AND e.tags LIKE ?`
		args = append(args, "%"+f.Tag+"%")
	}
	q += ` ORDER BY e.start_date`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]EventSearchResult, 0)
	for rows.Next() {
		var s EventSearchResult
		if err := rows.Scan(&s.ID, &s.OrgID, &s.Slug, &s.Title, &s.ShortDesc, &s.LongDesc,
			&s.Address, &s.City, &s.Latitude, &s.Longitude, &s.Timezone,
			&s.StartDate, &s.EndDate, &s.Category, &s.Tags, &s.Visibility,
			&s.Status, &s.CustomQuestions, &s.CreatedAt, &s.UpdatedAt,
			&s.OrgName, &s.SlotsAvailable, &s.ApprovedCount, &s.MinRoleAge); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// EventSearchResult extends EventSummary with aggregate availability.
type EventSearchResult struct {
	EventSummary
	SlotsAvailable int  `json:"slots_available"`
	ApprovedCount  int  `json:"approved_count"`
	MinRoleAge     *int `json:"min_role_age,omitempty"`
}

// Slugify builds a URL slug from an event title.  Non-alphanumeric runs
// collapse to single dashes.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
