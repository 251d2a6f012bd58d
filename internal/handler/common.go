// Package handler contains the Echo HTTP handlers.  Handlers translate
// between the JSON API surface and the service/repository layers and
// own nothing but that translation.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gulldan/volunteerhub/internal/middleware"
	"github.com/gulldan/volunteerhub/internal/repository"
	"github.com/gulldan/volunteerhub/internal/service"
)

// Handler-level errors that fail() maps straight to a status code.
var (
	errUnauthorized   = errors.New("unauthorized")
	errInvalidID      = errors.New("invalid id")
	errNoOrganization = errors.New("no organization; create one first")
)

// getUserID extracts the authenticated user's id from context.
func getUserID(c echo.Context) (uint64, error) {
	id := middleware.UserID(c)
	if id == 0 {
		return 0, errUnauthorized
	}
	return id, nil
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// queryInt parses an optional numeric query parameter.
func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// fail maps domain errors to HTTP responses.  Anything unrecognized is
// a 500 with a generic message; the real error stays in the server log.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, errUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})

	case errors.Is(err, errInvalidID):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})

	case errors.Is(err, errNoOrganization):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})

	case errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrShiftNotFound),
		errors.Is(err, repository.ErrRoleNotFound),
		errors.Is(err, repository.ErrApplicationNotFound),
		errors.Is(err, repository.ErrAttendanceNotFound),
		errors.Is(err, repository.ErrOrganizationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})

	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})

	case errors.Is(err, service.ErrShiftFull),
		errors.Is(err, service.ErrAlreadyApplied),
		errors.Is(err, service.ErrAlreadyCheckedIn),
		errors.Is(err, service.ErrAlreadyVerified):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})

	case errors.Is(err, service.ErrEventClosed),
		errors.Is(err, service.ErrTooYoung),
		errors.Is(err, service.ErrMissingSkills),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrNotApproved),
		errors.Is(err, service.ErrNotCheckedIn),
		errors.Is(err, service.ErrNotCheckedOut):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
