package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gulldan/volunteerhub/internal/model"
)

// ErrRoleNotFound indicates that a role was not located in the DB.
var ErrRoleNotFound = errors.New("role not found")

// RoleRepo manages persistence for roles (job types within events).
type RoleRepo struct{ db *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{db: db} }

// Create inserts a role under an event and returns its ID.
func (r *RoleRepo) Create(ctx context.Context, role *model.Role) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (event_id, title, description, required_skills, min_age, auto_approve)
		 VALUES (?,?,?,?,?,?)`,
		role.EventID, role.Title, role.Description, role.RequiredSkills, role.MinAge, role.AutoApprove)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID returns a single role.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (model.Role, error) {
	var role model.Role
	err := r.db.QueryRowContext(ctx,
		`SELECT id, event_id, title, description, required_skills, min_age, auto_approve, created_at
		 FROM roles WHERE id=?`, id).
		Scan(&role.ID, &role.EventID, &role.Title, &role.Description,
			&role.RequiredSkills, &role.MinAge, &role.AutoApprove, &role.CreatedAt)
	if err == sql.ErrNoRows {
		return role, ErrRoleNotFound
	}
	return role, err
}

// ListByEvent returns all roles of an event.
func (r *RoleRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, title, description, required_skills, min_age, auto_approve, created_at
		 FROM roles WHERE event_id=? ORDER BY id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Role, 0)
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.EventID, &role.Title, &role.Description,
			&role.RequiredSkills, &role.MinAge, &role.AutoApprove, &role.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}
