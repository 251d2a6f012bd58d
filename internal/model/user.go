package model

import "time"

// User roles.  The value is stored in the JWT "role" claim and checked
// by the RequireRole middleware.
const (
	RoleVolunteer   = "VOLUNTEER"
	RoleOrganizer   = "ORGANIZER"
	RoleCoordinator = "COORDINATOR"
)

// User mirrors the users table.  Volunteers accumulate verified hours in
// HoursTotal; Telegram fields are populated once the account is linked.
type User struct {
	ID                    uint64    `json:"id"`                     // users.id
	Name                  string    `json:"name"`                   // users.name
	Email                 string    `json:"email"`                  // users.email
	Phone                 *string   `json:"phone"`                  // users.phone (nullable)
	PasswordHash          string    `json:"-"`                      // users.password_hash
	Role                  string    `json:"role"`                   // users.role
	OrgID                 *uint64   `json:"org_id"`                 // users.org_id (nullable, set for organizers/coordinators)
	Age                   *int      `json:"age"`                    // users.age (nullable)
	Skills                *string   `json:"skills"`                 // users.skills (nullable JSON array)
	HoursTotal            int       `json:"hours_total"`            // users.hours_total
	TelegramUserID        *int64    `json:"telegram_user_id"`       // users.telegram_user_id (nullable)
	TelegramUsername      *string   `json:"telegram_username"`      // users.telegram_username (nullable)
	NotificationsTelegram bool      `json:"notifications_telegram"` // users.notifications_telegram
	NotificationsEmail    bool      `json:"notifications_email"`    // users.notifications_email
	CreatedAt             time.Time `json:"created_at"`             // users.created_at
	UpdatedAt             time.Time `json:"updated_at"`             // users.updated_at
}
