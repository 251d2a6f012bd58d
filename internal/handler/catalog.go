package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gulldan/volunteerhub/internal/model"
	"github.com/gulldan/volunteerhub/internal/repository"
)

// CatalogHandler serves the public event catalog: listing, search and
// the event page with its roles and shift occupancy.
type CatalogHandler struct {
	Events *repository.EventRepo
	Roles  *repository.RoleRepo
	Shifts *repository.ShiftRepo
	Orgs   *repository.OrganizationRepo
}

func NewCatalogHandler(e *repository.EventRepo, r *repository.RoleRepo, s *repository.ShiftRepo, o *repository.OrganizationRepo) *CatalogHandler {
	return &CatalogHandler{Events: e, Roles: r, Shifts: s, Orgs: o}
}

// ListUpcoming handles GET /v1/events.
func (h *CatalogHandler) ListUpcoming(c echo.Context) error {
	events, err := h.Events.ListUpcoming(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// Search handles GET /v1/events/search with free-text and facet query
// parameters.
func (h *CatalogHandler) Search(c echo.Context) error {
	f := repository.SearchFilter{
		Text:     c.QueryParam("q"),
		Category: c.QueryParam("category"),
		City:     c.QueryParam("city"),
		Skill:    c.QueryParam("skill"),
		Tag:      c.QueryParam("tag"),
	}
	if v := c.QueryParam("date_from"); v != "" {
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_from"})
		}
		f.DateFrom = v
	}
	if v := c.QueryParam("date_to"); v != "" {
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_to"})
		}
		f.DateTo = v
	}
	if v := c.QueryParam("age"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid age"})
		}
		f.MaxAge = &n
	}

	results, err := h.Events.Search(c.Request().Context(), f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": results})
}

type roleDetail struct {
	model.Role
	Shifts []repository.ShiftOccupancy `json:"shifts"`
}

// GetEvent handles GET /v1/events/:id.  Draft and private events are
// hidden from the public page.
func (h *CatalogHandler) GetEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()

	event, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if event.Status == model.EventDraft || event.Visibility == model.VisibilityPrivate {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}

	roles, err := h.Roles.ListByEvent(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	out := make([]roleDetail, 0, len(roles))
	for _, role := range roles {
		shifts, err := h.Shifts.ListByRole(ctx, role.ID)
		if err != nil {
			return fail(c, err)
		}
		out = append(out, roleDetail{Role: role, Shifts: shifts})
	}

	org, err := h.Orgs.GetByID(ctx, event.OrgID)
	if err != nil && err != repository.ErrOrganizationNotFound {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"event":        event,
		"organization": org,
		"roles":        out,
	})
}

// ListOrganizations handles GET /v1/organizations.
func (h *CatalogHandler) ListOrganizations(c echo.Context) error {
	orgs, err := h.Orgs.List(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"organizations": orgs})
}
