package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gulldan/volunteerhub/internal/config"
	"github.com/gulldan/volunteerhub/internal/geo"
	"github.com/gulldan/volunteerhub/internal/middleware"
	"github.com/gulldan/volunteerhub/internal/model"
	"github.com/gulldan/volunteerhub/internal/repository"
	"github.com/gulldan/volunteerhub/internal/service"
	"github.com/gulldan/volunteerhub/internal/telegram"
)

// CheckinHandler serves attendance: token-based check-in (QR and kiosk),
// manual coordinator check-in/out, hours verification and the bulk
// variants of each.
type CheckinHandler struct {
	Cfg        config.Config
	Attendance *service.AttendanceService
	Apps       *repository.ApplicationRepo
	Shifts     *repository.ShiftRepo
	Events     *repository.EventRepo
	Users      *repository.UserRepo
}

func NewCheckinHandler(cfg config.Config, att *service.AttendanceService, apps *repository.ApplicationRepo,
	shifts *repository.ShiftRepo, events *repository.EventRepo, users *repository.UserRepo) *CheckinHandler {
	return &CheckinHandler{Cfg: cfg, Attendance: att, Apps: apps, Shifts: shifts, Events: events, Users: users}
}

type processReq struct {
	Token  string   `json:"token" validate:"required"`
	Source string   `json:"source" validate:"omitempty,oneof=qr kiosk"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
}

// Process checks a volunteer in from a scanned token.  The token is the
// only credential: kiosks post here unauthenticated.  Shifts with a
// geofence additionally require coordinates within the radius.
func (h *CheckinHandler) Process(c echo.Context) error {
	var req processReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	claims, err := telegram.ParseCheckinToken(h.Cfg.QRSecret, req.Token)
	switch {
	case errors.Is(err, telegram.ErrTokenExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "token expired"})
	case err != nil:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid token"})
	}
	sh, err := h.Shifts.GetByID(c.Request().Context(), claims.ShiftID)
	if err != nil {
		return fail(c, err)
	}
	var location *string
	if sh.HasGeofence() {
		if req.Lat == nil || req.Lon == nil {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "location required"})
		}
		if err := geo.CheckGeofence(&sh, *req.Lat, *req.Lon); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "outside geofence"})
		}
	}
	if req.Lat != nil && req.Lon != nil {
		loc := geo.FormatLocation(*req.Lat, *req.Lon)
		location = &loc
	}
	source := req.Source
	if source == "" {
		source = model.CheckinSourceQR
	}
	d, err := h.Attendance.CheckIn(c.Request().Context(), claims.ApplicationID, source, location)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"application_id": d.ID,
		"user_name":      d.UserName,
		"role_title":     d.RoleTitle,
		"shift_start":    d.ShiftStart,
		"shift_end":      d.ShiftEnd,
	})
}

// Kiosk returns the shift behind a poster QR id, so the kiosk screen can
// show what it is checking people into.
func (h *CheckinHandler) Kiosk(c echo.Context) error {
	qrID := c.Param("qr_id")
	if qrID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing qr id"})
	}
	sh, err := h.Shifts.GetByQRID(c.Request().Context(), qrID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sh)
}

// ownedApplication loads an application and verifies its event belongs
// to the caller's organization.
func (h *CheckinHandler) ownedApplication(c echo.Context, appID uint64) (model.Application, error) {
	userID, err := getUserID(c)
	if err != nil {
		return model.Application{}, err
	}
	u, err := h.Users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return model.Application{}, err
	}
	if u.OrgID == nil {
		return model.Application{}, repository.ErrForbidden
	}
	app, err := h.Apps.GetByID(c.Request().Context(), appID)
	if err != nil {
		return model.Application{}, err
	}
	eventOrg, err := h.Events.OrgID(c.Request().Context(), app.EventID)
	if err != nil {
		return model.Application{}, err
	}
	if eventOrg != *u.OrgID {
		return model.Application{}, repository.ErrForbidden
	}
	return app, nil
}

// ManualCheckIn checks a volunteer in on a coordinator's say-so.
func (h *CheckinHandler) ManualCheckIn(c echo.Context) error {
	appID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid application id"})
	}
	if _, err := h.ownedApplication(c, appID); err != nil {
		return fail(c, err)
	}
	d, err := h.Attendance.CheckIn(c.Request().Context(), appID, model.CheckinSourceManual, nil)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"application_id": d.ID, "status": model.AttendanceCheckedIn})
}

type checkoutReq struct {
	Hours *float64 `json:"hours" validate:"omitempty,gte=0"`
}

// CheckOut ends a volunteer's shift and reports the hours worked.  The
// body may carry an hours override; without one the hours come from
// the check-in time.
func (h *CheckinHandler) CheckOut(c echo.Context) error {
	appID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid application id"})
	}
	if _, err := h.ownedApplication(c, appID); err != nil {
		return fail(c, err)
	}
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	hours, err := h.Attendance.CheckOut(c.Request().Context(), appID, req.Hours)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"application_id": appID, "hours": hours})
}

type verifyReq struct {
	Hours *float64 `json:"hours" validate:"omitempty,gte=0"`
}

// Verify confirms a checked-out volunteer's hours, optionally overriding
// the computed value, and credits them to the volunteer's total.
func (h *CheckinHandler) Verify(c echo.Context) error {
	appID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid application id"})
	}
	if _, err := h.ownedApplication(c, appID); err != nil {
		return fail(c, err)
	}
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	verifierID := middleware.UserID(c)
	hours, err := h.Attendance.Verify(c.Request().Context(), verifierID, appID, req.Hours)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"application_id": appID, "hours": hours})
}

type bulkReq struct {
	ApplicationIDs []uint64 `json:"application_ids" validate:"required,min=1,dive,required"`
}

type bulkRow struct {
	ApplicationID uint64   `json:"application_id"`
	Hours         *float64 `json:"hours,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// BulkCheckIn checks several volunteers in at once.  Rows fail
// independently; one bad id does not stop the rest.
func (h *CheckinHandler) BulkCheckIn(c echo.Context) error {
	return h.bulk(c, func(c echo.Context, appID uint64) (*float64, error) {
		_, err := h.Attendance.CheckIn(c.Request().Context(), appID, model.CheckinSourceManual, nil)
		return nil, err
	})
}

// BulkCheckOut checks several volunteers out at once.
func (h *CheckinHandler) BulkCheckOut(c echo.Context) error {
	return h.bulk(c, func(c echo.Context, appID uint64) (*float64, error) {
		hours, err := h.Attendance.CheckOut(c.Request().Context(), appID, nil)
		if err != nil {
			return nil, err
		}
		return &hours, nil
	})
}

// BulkVerify verifies hours for several applications at once.
func (h *CheckinHandler) BulkVerify(c echo.Context) error {
	return h.bulk(c, func(c echo.Context, appID uint64) (*float64, error) {
		hours, err := h.Attendance.Verify(c.Request().Context(), middleware.UserID(c), appID, nil)
		if err != nil {
			return nil, err
		}
		return &hours, nil
	})
}

func (h *CheckinHandler) bulk(c echo.Context, op func(echo.Context, uint64) (*float64, error)) error {
	var req bulkReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	out := make([]bulkRow, 0, len(req.ApplicationIDs))
	for _, id := range req.ApplicationIDs {
		row := bulkRow{ApplicationID: id}
		if _, err := h.ownedApplication(c, id); err != nil {
			row.Error = "forbidden or not found"
			out = append(out, row)
			continue
		}
		hours, err := op(c, id)
		if err != nil {
			row.Error = err.Error()
		} else {
			row.Hours = hours
		}
		out = append(out, row)
	}
	return c.JSON(http.StatusOK, out)
}
