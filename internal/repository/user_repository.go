package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gulldan/volunteerhub/internal/model"
	"github.com/gulldan/volunteerhub/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userColumns = `id,name,email,phone,password_hash,role,org_id,age,skills,hours_total,
	telegram_user_id,telegram_username,notifications_telegram,notifications_email,
	created_at,updated_at`

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role,
		&u.OrgID, &u.Age, &u.Skills, &u.HoursTotal,
		&u.TelegramUserID, &u.TelegramUsername,
		&u.NotificationsTelegram, &u.NotificationsEmail,
		&u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		name, email, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByTelegramID fetches a user by their linked Telegram account.
func (r *UserRepo) GetByTelegramID(ctx context.Context, telegramUserID int64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE telegram_user_id=? LIMIT 1", telegramUserID))
}

// UpdateProfile stores the mutable profile fields: phone, age and skills.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, phone *string, age *int, skills *string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET phone=?, age=?, skills=? WHERE id=?",
		phone, age, skills, id)
	return err
}

// UpdateNotificationPrefs toggles the per-channel notification opt-ins.
func (r *UserRepo) UpdateNotificationPrefs(ctx context.Context, id uint64, telegram, email bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET notifications_telegram=?, notifications_email=? WHERE id=?",
		telegram, email, id)
	return err
}

// LinkTelegram attaches a verified Telegram account to the user.
func (r *UserRepo) LinkTelegram(ctx context.Context, id uint64, telegramUserID int64, username string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET telegram_user_id=?, telegram_username=?, telegram_linked_at=NOW() WHERE id=?",
		telegramUserID, username, id)
	return err
}

// SetOrg attaches the user to an organization.  Done once when an
// organizer creates or joins an org.
func (r *UserRepo) SetOrg(ctx context.Context, id, orgID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET org_id=? WHERE id=?", orgID, id)
	return err
}

// AddHoursTx increments the user's cumulative verified hours within the
// caller's transaction.  Hours are rounded by the caller.
func (r *UserRepo) AddHoursTx(ctx context.Context, tx *sql.Tx, id uint64, hours int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE users SET hours_total = hours_total + ? WHERE id=?", hours, id)
	return err
}
