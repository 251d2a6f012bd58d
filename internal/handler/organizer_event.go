package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/gulldan/volunteerhub/internal/model"
	"github.com/gulldan/volunteerhub/internal/repository"
	"github.com/gulldan/volunteerhub/internal/service"
)

// OrganizerHandler serves the organizer console: organization setup,
// event lifecycle, roles and shifts, application decisions and the
// dashboard blocks.
type OrganizerHandler struct {
	Users     *repository.UserRepo
	Orgs      *repository.OrganizationRepo
	Events    *repository.EventRepo
	Roles     *repository.RoleRepo
	Shifts    *repository.ShiftRepo
	Apps      *repository.ApplicationRepo
	Analytics *repository.AnalyticsRepo
	Workflow  *service.WorkflowService
}

func NewOrganizerHandler(users *repository.UserRepo, orgs *repository.OrganizationRepo,
	events *repository.EventRepo, roles *repository.RoleRepo, shifts *repository.ShiftRepo,
	apps *repository.ApplicationRepo, analytics *repository.AnalyticsRepo,
	wf *service.WorkflowService) *OrganizerHandler {
	return &OrganizerHandler{
		Users: users, Orgs: orgs, Events: events, Roles: roles,
		Shifts: shifts, Apps: apps, Analytics: analytics, Workflow: wf,
	}
}

// orgOf resolves the caller's organization.  Errors map through fail():
// organizers without one yet get a 422 pointing them at organization
// creation.
func (h *OrganizerHandler) orgOf(c echo.Context) (uint64, error) {
	userID, err := getUserID(c)
	if err != nil {
		return 0, err
	}
	u, err := h.Users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return 0, err
	}
	if u.OrgID == nil {
		return 0, errNoOrganization
	}
	return *u.OrgID, nil
}

// ownedEvent loads an event and verifies it belongs to the caller's org.
func (h *OrganizerHandler) ownedEvent(c echo.Context) (model.Event, error) {
	orgID, err := h.orgOf(c)
	if err != nil {
		return model.Event{}, err
	}
	eventID, err := pathID(c, "id")
	if err != nil {
		return model.Event{}, err
	}
	ev, err := h.Events.GetByID(c.Request().Context(), eventID)
	if err != nil {
		return model.Event{}, err
	}
	if ev.OrgID != orgID {
		return model.Event{}, repository.ErrForbidden
	}
	return ev, nil
}

type createOrgReq struct {
	Name        string `json:"name" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// CreateOrganization creates an organization and attaches the caller to
// it.  One organization per organizer; a second call is rejected.
func (h *OrganizerHandler) CreateOrganization(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	u, err := h.Users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	if u.OrgID != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "organization already exists"})
	}
	var req createOrgReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	orgID, err := h.Orgs.Create(c.Request().Context(), req.Name, req.Description)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Users.SetOrg(c.Request().Context(), userID, orgID); err != nil {
		return fail(c, err)
	}
	org, err := h.Orgs.GetByID(c.Request().Context(), orgID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, org)
}

type eventReq struct {
	Title           string    `json:"title" validate:"required,min=3,max=255"`
	ShortDesc       string    `json:"short_description" validate:"required,max=500"`
	LongDesc        string    `json:"long_description"`
	Address         *string   `json:"address"`
	City            *string   `json:"city"`
	Latitude        *float64  `json:"latitude"`
	Longitude       *float64  `json:"longitude"`
	Timezone        string    `json:"timezone"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	EndDate         time.Time `json:"end_date" validate:"required"`
	Category        string    `json:"category" validate:"required"`
	Tags            *string   `json:"tags"`
	Visibility      string    `json:"visibility" validate:"omitempty,oneof=public unlisted private"`
	CustomQuestions *string   `json:"custom_questions"`
}

func (r *eventReq) apply(ev *model.Event) {
	ev.Title = r.Title
	ev.ShortDesc = r.ShortDesc
	ev.LongDesc = r.LongDesc
	ev.Address = r.Address
	ev.City = r.City
	ev.Latitude = r.Latitude
	ev.Longitude = r.Longitude
	ev.Timezone = r.Timezone
	if ev.Timezone == "" {
		ev.Timezone = "UTC"
	}
	ev.StartDate = r.StartDate
	ev.EndDate = r.EndDate
	ev.Category = r.Category
	ev.Tags = r.Tags
	ev.Visibility = r.Visibility
	if ev.Visibility == "" {
		ev.Visibility = model.VisibilityPublic
	}
	ev.CustomQuestions = r.CustomQuestions
}

// CreateEvent creates a draft event under the caller's organization.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
	orgID, err := h.orgOf(c)
	if err != nil {
		return fail(c, err)
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if !req.EndDate.After(req.StartDate) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "end_date must be after start_date"})
	}
	ev := model.Event{OrgID: orgID, Status: model.EventDraft}
	req.apply(&ev)
	ev.Slug = repository.Slugify(ev.Title)
	id, err := h.Events.Create(c.Request().Context(), &ev)
	if err != nil {
		return fail(c, err)
	}
	created, err := h.Events.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateEvent replaces the editable fields of an owned event.  The slug
// follows the title so published links stay predictable.
func (h *OrganizerHandler) UpdateEvent(c echo.Context) error {
	ev, err := h.ownedEvent(c)
	if err != nil {
		return fail(c, err)
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if !req.EndDate.After(req.StartDate) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "end_date must be after start_date"})
	}
	req.apply(&ev)
	ev.Slug = repository.Slugify(ev.Title)
	if err := h.Events.Update(c.Request().Context(), &ev); err != nil {
		return fail(c, err)
	}
	updated, err := h.Events.GetByID(c.Request().Context(), ev.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// ListEvents returns the caller organization's events, all statuses.
func (h *OrganizerHandler) ListEvents(c echo.Context) error {
	orgID, err := h.orgOf(c)
	if err != nil {
		return fail(c, err)
	}
	events, err := h.Events.ListByOrg(c.Request().Context(), orgID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

// PublishEvent moves a draft event to published, opening applications.
// Publishing requires at least one role with at least one shift.
func (h *OrganizerHandler) PublishEvent(c echo.Context) error {
	ev, err := h.ownedEvent(c)
	if err != nil {
		return fail(c, err)
	}
	if ev.Status != model.EventDraft {
		return c.JSON(http.StatusConflict, echo.Map{"error": "only draft events can be published"})
	}
	roles, err := h.Roles.ListByEvent(c.Request().Context(), ev.ID)
	if err != nil {
		return fail(c, err)
	}
	hasShift := false
	for _, role := range roles {
		shifts, err := h.Shifts.ListByRole(c.Request().Context(), role.ID)
		if err != nil {
			return fail(c, err)
		}
		if len(shifts) > 0 {
			hasShift = true
			break
		}
	}
	if !hasShift {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "event needs at least one role with a shift"})
	}
	if err := h.Events.UpdateStatus(c.Request().Context(), ev.ID, model.EventPublished); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": model.EventPublished})
}

// CloseEvent closes a published event.  Open applications are cancelled
// and the affected volunteers are notified.
func (h *OrganizerHandler) CloseEvent(c echo.Context) error {
	ev, err := h.ownedEvent(c)
	if err != nil {
		return fail(c, err)
	}
	if ev.Status != model.EventPublished {
		return c.JSON(http.StatusConflict, echo.Map{"error": "only published events can be closed"})
	}
	if err := h.Events.UpdateStatus(c.Request().Context(), ev.ID, model.EventClosed); err != nil {
		return fail(c, err)
	}
	if err := h.Workflow.CancelOpenApplications(c.Request().Context(), ev.ID); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": model.EventClosed})
}

type roleReq struct {
	Title          string  `json:"title" validate:"required,min=2,max=255"`
	Description    string  `json:"description"`
	RequiredSkills *string `json:"required_skills"`
	MinAge         *int    `json:"min_age" validate:"omitempty,gte=14,lte=120"`
	AutoApprove    bool    `json:"auto_approve"`
}

// CreateRole adds a role under an owned event.
func (h *OrganizerHandler) CreateRole(c echo.Context) error {
	ev, err := h.ownedEvent(c)
	if err != nil {
		return fail(c, err)
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	role := model.Role{
		EventID:        ev.ID,
		Title:          req.Title,
		Description:    req.Description,
		RequiredSkills: req.RequiredSkills,
		MinAge:         req.MinAge,
		AutoApprove:    req.AutoApprove,
	}
	id, err := h.Roles.Create(c.Request().Context(), &role)
	if err != nil {
		return fail(c, err)
	}
	created, err := h.Roles.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

type shiftReq struct {
	RoleID         uint64    `json:"role_id" validate:"required"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" validate:"required"`
	Capacity       int       `json:"capacity" validate:"required,gte=1"`
	GeofenceLat    *float64  `json:"geofence_lat"`
	GeofenceLon    *float64  `json:"geofence_lon"`
	GeofenceRadius *float64  `json:"geofence_radius" validate:"omitempty,gt=0"`
}

// CreateShift adds a shift under a role of an owned event.  Each shift
// gets a fresh QR id for kiosk check-in.
func (h *OrganizerHandler) CreateShift(c echo.Context) error {
	ev, err := h.ownedEvent(c)
	if err != nil {
		return fail(c, err)
	}
	var req shiftReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if !req.EndTime.After(req.StartTime) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "end_time must be after start_time"})
	}
	role, err := h.Roles.GetByID(c.Request().Context(), req.RoleID)
	if err != nil {
		return fail(c, err)
	}
	if role.EventID != ev.ID {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "role does not belong to event"})
	}
	sh := model.Shift{
		RoleID:         req.RoleID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Capacity:       req.Capacity,
		QRID:           uuid.NewString(),
		GeofenceLat:    req.GeofenceLat,
		GeofenceLon:    req.GeofenceLon,
		GeofenceRadius: req.GeofenceRadius,
	}
	id, err := h.Shifts.Create(c.Request().Context(), &sh)
	if err != nil {
		return fail(c, err)
	}
	created, err := h.Shifts.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// ListApplications returns every application for an owned event with
// applicant context, for the review screen.
func (h *OrganizerHandler) ListApplications(c echo.Context) error {
	ev, err := h.ownedEvent(c)
	if err != nil {
		return fail(c, err)
	}
	rows, err := h.Apps.ListByEvent(c.Request().Context(), ev.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

type decideReq struct {
	Status string `json:"status" validate:"required,oneof=approved waitlisted declined"`
}

// DecideApplication sets an application's status.  Approvals respect
// shift capacity; freeing an approved slot promotes from the waitlist.
func (h *OrganizerHandler) DecideApplication(c echo.Context) error {
	orgID, err := h.orgOf(c)
	if err != nil {
		return fail(c, err)
	}
	appID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid application id"})
	}
	app, err := h.Apps.GetByID(c.Request().Context(), appID)
	if err != nil {
		return fail(c, err)
	}
	eventOrg, err := h.Events.OrgID(c.Request().Context(), app.EventID)
	if err != nil {
		return fail(c, err)
	}
	if eventOrg != orgID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var req decideReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	d, err := h.Workflow.SetStatus(c.Request().Context(), appID, req.Status)
	if err != nil {
		return fail(c, err)
	}
	d.Status = req.Status
	return c.JSON(http.StatusOK, d)
}

// Stats returns the organization dashboard headline numbers.
func (h *OrganizerHandler) Stats(c echo.Context) error {
	orgID, err := h.orgOf(c)
	if err != nil {
		return fail(c, err)
	}
	stats, err := h.Analytics.GetOrgStats(c.Request().Context(), orgID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// TopVolunteers returns the organization's verified-hours leaderboard.
func (h *OrganizerHandler) TopVolunteers(c echo.Context) error {
	orgID, err := h.orgOf(c)
	if err != nil {
		return fail(c, err)
	}
	limit := queryInt(c, "limit", 10)
	rows, err := h.Analytics.TopVolunteers(c.Request().Context(), orgID, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// RecentActivity returns the latest workflow activity entries.
func (h *OrganizerHandler) RecentActivity(c echo.Context) error {
	if _, err := h.orgOf(c); err != nil {
		return fail(c, err)
	}
	rows, err := h.Analytics.RecentActivity(c.Request().Context(), queryInt(c, "limit", 20))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}
