package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gulldan/volunteerhub/internal/model"
)

// ErrOrganizationNotFound indicates the organization does not exist.
var ErrOrganizationNotFound = errors.New("organization not found")

// OrganizationRepo manages persistence for organizations.
type OrganizationRepo struct{ DB *sql.DB }

func NewOrganizationRepo(db *sql.DB) *OrganizationRepo { return &OrganizationRepo{DB: db} }

// Create inserts an organization and returns its ID.
func (r *OrganizationRepo) Create(ctx context.Context, name, description string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO organizations (name, description) VALUES (?,?)", name, description)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID returns a single organization.
func (r *OrganizationRepo) GetByID(ctx context.Context, id uint64) (model.Organization, error) {
	var o model.Organization
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, description, created_at FROM organizations WHERE id=?", id).
		Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return o, ErrOrganizationNotFound
	}
	return o, err
}

// List returns all organizations ordered by name.
func (r *OrganizationRepo) List(ctx context.Context) ([]model.Organization, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, description, created_at FROM organizations ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Organization, 0)
	for rows.Next() {
		var o model.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
