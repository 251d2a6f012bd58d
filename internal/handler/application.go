package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gulldan/volunteerhub/internal/config"
	"github.com/gulldan/volunteerhub/internal/model"
	"github.com/gulldan/volunteerhub/internal/repository"
	"github.com/gulldan/volunteerhub/internal/service"
	"github.com/gulldan/volunteerhub/internal/telegram"
)

// ApplicationHandler serves the volunteer-facing application endpoints:
// submitting, listing, cancelling and fetching the check-in pass.
type ApplicationHandler struct {
	Cfg      config.Config
	Workflow *service.WorkflowService
	Apps     *repository.ApplicationRepo
	Bot      *telegram.Client
}

func NewApplicationHandler(cfg config.Config, wf *service.WorkflowService, apps *repository.ApplicationRepo, bot *telegram.Client) *ApplicationHandler {
	return &ApplicationHandler{Cfg: cfg, Workflow: wf, Apps: apps, Bot: bot}
}

type submitReq struct {
	EventID       uint64            `json:"event_id" validate:"required"`
	RoleID        uint64            `json:"role_id" validate:"required"`
	ShiftID       uint64            `json:"shift_id" validate:"required"`
	Answers       map[string]string `json:"answers"`
	UploadedFiles []string          `json:"uploaded_files"`
	ForceWaitlist bool              `json:"force_waitlist"`
}

// Submit applies the authenticated volunteer to a shift.
func (h *ApplicationHandler) Submit(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req submitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	app, err := h.Workflow.Submit(c.Request().Context(), userID, service.SubmitInput{
		EventID:       req.EventID,
		RoleID:        req.RoleID,
		ShiftID:       req.ShiftID,
		Answers:       req.Answers,
		UploadedFiles: req.UploadedFiles,
		ForceWaitlist: req.ForceWaitlist,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, app)
}

// ListMine returns every application the volunteer has made, newest first.
func (h *ApplicationHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rows, err := h.Apps.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// ListUpcoming returns the volunteer's approved shifts that have not
// started yet, with the details needed to show up.
func (h *ApplicationHandler) ListUpcoming(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rows, err := h.Apps.ListUpcomingByUser(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// Cancel withdraws the volunteer's own application.  Cancelling an
// approved application frees its slot and promotes from the waitlist.
func (h *ApplicationHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	appID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid application id"})
	}
	if err := h.Workflow.Cancel(c.Request().Context(), userID, appID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type checkinPassResp struct {
	Token    string `json:"token"`
	DeepLink string `json:"deep_link,omitempty"`
}

// CheckinPass issues a signed check-in token for an approved application.
// The token is what the on-site QR encodes; the deep link opens the bot
// with the same payload for volunteers who check in through Telegram.
func (h *ApplicationHandler) CheckinPass(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	appID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid application id"})
	}
	app, err := h.Apps.GetByID(c.Request().Context(), appID)
	if err != nil {
		return fail(c, err)
	}
	if app.UserID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if app.Status != model.ApplicationApproved {
		return fail(c, service.ErrNotApproved)
	}
	token := telegram.NewCheckinToken(h.Cfg.QRSecret, app.ID, app.ShiftID)
	resp := checkinPassResp{Token: token}
	if h.Bot != nil && h.Bot.Enabled() {
		resp.DeepLink = h.Bot.DeepLink(token)
	}
	return c.JSON(http.StatusOK, resp)
}
