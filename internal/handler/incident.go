package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gulldan/volunteerhub/internal/model"
	"github.com/gulldan/volunteerhub/internal/repository"
)

// IncidentHandler serves coordinator incident reports.
type IncidentHandler struct {
	Org       *OrganizerHandler
	Incidents *repository.IncidentRepo
	Events    *repository.EventRepo
}

func NewIncidentHandler(org *OrganizerHandler, incidents *repository.IncidentRepo, events *repository.EventRepo) *IncidentHandler {
	return &IncidentHandler{Org: org, Incidents: incidents, Events: events}
}

type incidentReq struct {
	EventID   uint64  `json:"event_id" validate:"required"`
	ShiftID   *uint64 `json:"shift_id"`
	UserID    *uint64 `json:"user_id"`
	Type      string  `json:"type" validate:"required,oneof=injury no_show equipment behaviour other"`
	Note      string  `json:"note" validate:"required,max=4000"`
	PhotoRefs *string `json:"photo_refs"`
}

// Create files an incident against one of the caller org's events.
func (h *IncidentHandler) Create(c echo.Context) error {
	orgID, err := h.Org.orgOf(c)
	if err != nil {
		return fail(c, err)
	}
	var req incidentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	eventOrg, err := h.Events.OrgID(c.Request().Context(), req.EventID)
	if err != nil {
		return fail(c, err)
	}
	if eventOrg != orgID {
		return fail(c, repository.ErrForbidden)
	}
	userID, _ := getUserID(c)
	in := model.Incident{
		EventID:   req.EventID,
		ShiftID:   req.ShiftID,
		UserID:    req.UserID,
		Type:      req.Type,
		Note:      req.Note,
		PhotoRefs: req.PhotoRefs,
		CreatedBy: userID,
	}
	id, err := h.Incidents.Create(c.Request().Context(), &in)
	if err != nil {
		return fail(c, err)
	}
	in.ID = id
	return c.JSON(http.StatusCreated, in)
}

// List returns the caller org's incidents, optionally filtered by type.
func (h *IncidentHandler) List(c echo.Context) error {
	orgID, err := h.Org.orgOf(c)
	if err != nil {
		return fail(c, err)
	}
	rows, err := h.Incidents.ListByOrg(c.Request().Context(), orgID, c.QueryParam("type"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}
