package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gulldan/volunteerhub/internal/config"
	"github.com/gulldan/volunteerhub/internal/geo"
	"github.com/gulldan/volunteerhub/internal/model"
	"github.com/gulldan/volunteerhub/internal/repository"
	"github.com/gulldan/volunteerhub/internal/service"
	"github.com/gulldan/volunteerhub/internal/store"
	"github.com/gulldan/volunteerhub/internal/telegram"
)

// TelegramHandler receives bot updates.  Two update shapes matter: a
// /start command carrying a check-in token, and a shared location that
// resolves a parked geofenced check-in.  Everything else is ignored.
// The endpoint always answers 200 so Telegram does not retry.
type TelegramHandler struct {
	Cfg        config.Config
	Bot        *telegram.Client
	Users      *repository.UserRepo
	Apps       *repository.ApplicationRepo
	Shifts     *repository.ShiftRepo
	Attendance *service.AttendanceService
	Pending    *store.PendingCheckinStore
}

func NewTelegramHandler(cfg config.Config, bot *telegram.Client, users *repository.UserRepo,
	apps *repository.ApplicationRepo, shifts *repository.ShiftRepo,
	att *service.AttendanceService, pending *store.PendingCheckinStore) *TelegramHandler {
	return &TelegramHandler{Cfg: cfg, Bot: bot, Users: users, Apps: apps, Shifts: shifts, Attendance: att, Pending: pending}
}

type tgUpdate struct {
	Message *tgMessage `json:"message"`
}
type tgMessage struct {
	Chat     tgChat      `json:"chat"`
	From     tgFrom      `json:"from"`
	Text     string      `json:"text"`
	Location *tgLocation `json:"location"`
}
type tgChat struct {
	ID int64 `json:"id"`
}
type tgFrom struct {
	ID int64 `json:"id"`
}
type tgLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Webhook handles one bot update.
func (h *TelegramHandler) Webhook(c echo.Context) error {
	var up tgUpdate
	if err := c.Bind(&up); err != nil || up.Message == nil {
		return c.NoContent(http.StatusOK)
	}
	msg := up.Message
	switch {
	case msg.Location != nil:
		h.handleLocation(c, msg)
	case strings.HasPrefix(msg.Text, "/start "):
		h.handleStart(c, msg, strings.TrimSpace(strings.TrimPrefix(msg.Text, "/start ")))
	}
	return c.NoContent(http.StatusOK)
}

// handleStart processes a deep-link check-in token.  Shifts with a
// geofence park the check-in until the user shares a location.
func (h *TelegramHandler) handleStart(c echo.Context, msg *tgMessage, payload string) {
	ctx := c.Request().Context()
	claims, err := telegram.ParseCheckinToken(h.Cfg.QRSecret, payload)
	if err != nil {
		h.reply(c, msg.Chat.ID, "That check-in code is not valid. Ask for a fresh QR code.")
		return
	}
	u, err := h.Users.GetByTelegramID(ctx, msg.From.ID)
	if err != nil {
		h.reply(c, msg.Chat.ID, "Link your Telegram account in the app first, then scan again.")
		return
	}
	app, err := h.Apps.GetByID(ctx, claims.ApplicationID)
	if err != nil || app.UserID != u.ID || app.ShiftID != claims.ShiftID {
		h.reply(c, msg.Chat.ID, "That check-in code does not belong to you.")
		return
	}
	sh, err := h.Shifts.GetByID(ctx, claims.ShiftID)
	if err != nil {
		h.reply(c, msg.Chat.ID, "Could not find that shift anymore.")
		return
	}
	if sh.HasGeofence() && h.Pending.Enabled() {
		if err := h.Pending.Put(ctx, msg.Chat.ID, app.ID, sh.ID); err != nil {
			c.Logger().Errorf("park pending checkin: %v", err)
			h.reply(c, msg.Chat.ID, "Something went wrong, try scanning again.")
			return
		}
		h.reply(c, msg.Chat.ID, "Almost there. Share your location to confirm you are on site.")
		return
	}
	h.checkIn(c, msg.Chat.ID, app.ID, nil)
}

// handleLocation resolves a parked geofenced check-in.
func (h *TelegramHandler) handleLocation(c echo.Context, msg *tgMessage) {
	ctx := c.Request().Context()
	if !h.Pending.Enabled() {
		return
	}
	appID, shiftID, err := h.Pending.Take(ctx, msg.Chat.ID)
	if errors.Is(err, store.ErrNoPendingCheckin) {
		h.reply(c, msg.Chat.ID, "No check-in waiting for a location. Scan the shift QR code first.")
		return
	}
	if err != nil {
		c.Logger().Errorf("take pending checkin: %v", err)
		return
	}
	sh, err := h.Shifts.GetByID(ctx, shiftID)
	if err != nil {
		h.reply(c, msg.Chat.ID, "Could not find that shift anymore.")
		return
	}
	if err := geo.CheckGeofence(&sh, msg.Location.Latitude, msg.Location.Longitude); err != nil {
		h.reply(c, msg.Chat.ID, "You seem to be outside the event area. Get closer and scan again.")
		return
	}
	loc := geo.FormatLocation(msg.Location.Latitude, msg.Location.Longitude)
	h.checkIn(c, msg.Chat.ID, appID, &loc)
}

func (h *TelegramHandler) checkIn(c echo.Context, chatID int64, appID uint64, location *string) {
	d, err := h.Attendance.CheckIn(c.Request().Context(), appID, model.CheckinSourceTelegram, location)
	switch {
	case errors.Is(err, service.ErrAlreadyCheckedIn):
		h.reply(c, chatID, "You are already checked in for this shift.")
	case err != nil:
		c.Logger().Errorf("telegram checkin: %v", err)
		h.reply(c, chatID, "Check-in failed, please find a coordinator.")
	default:
		h.reply(c, chatID, "Checked in for "+d.RoleTitle+" at "+d.EventTitle+". Have a good shift!")
	}
}

func (h *TelegramHandler) reply(c echo.Context, chatID int64, text string) {
	if h.Bot == nil || !h.Bot.Enabled() {
		return
	}
	if err := h.Bot.SendMessage(c.Request().Context(), chatID, text); err != nil {
		c.Logger().Errorf("telegram reply: %v", err)
	}
}
