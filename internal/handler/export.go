package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"

	"github.com/gulldan/volunteerhub/internal/repository"
)

// ExportHandler serves file exports: the organizer's per-event
// attendance CSV and the volunteer's upcoming-shifts calendar feed.
type ExportHandler struct {
	Org  *OrganizerHandler
	Apps *repository.ApplicationRepo
}

func NewExportHandler(org *OrganizerHandler, apps *repository.ApplicationRepo) *ExportHandler {
	return &ExportHandler{Org: org, Apps: apps}
}

// attendanceCSVRow is the column layout of the attendance export.
type attendanceCSVRow struct {
	ApplicationID uint64  `csv:"application_id"`
	Volunteer     string  `csv:"volunteer"`
	Email         string  `csv:"email"`
	Role          string  `csv:"role"`
	ShiftStart    string  `csv:"shift_start"`
	ShiftEnd      string  `csv:"shift_end"`
	Status        string  `csv:"status"`
	Attendance    string  `csv:"attendance"`
	CheckinAt     string  `csv:"checkin_at"`
	CheckoutAt    string  `csv:"checkout_at"`
	Hours         float64 `csv:"hours"`
}

// AttendanceCSV streams an owned event's applications with attendance
// state as CSV.
func (h *ExportHandler) AttendanceCSV(c echo.Context) error {
	ev, err := h.Org.ownedEvent(c)
	if err != nil {
		return fail(c, err)
	}
	rows, err := h.Apps.ListByEvent(c.Request().Context(), ev.ID)
	if err != nil {
		return fail(c, err)
	}
	out := make([]attendanceCSVRow, 0, len(rows))
	for _, r := range rows {
		row := attendanceCSVRow{
			ApplicationID: r.ApplicationID,
			Volunteer:     r.UserName,
			Email:         r.Email,
			Role:          r.RoleTitle,
			ShiftStart:    r.ShiftStart.Format(time.RFC3339),
			ShiftEnd:      r.ShiftEnd.Format(time.RFC3339),
			Status:        r.Status,
			Attendance:    r.AttendanceStatus,
			Hours:         r.HoursWorked,
		}
		if r.CheckinAt != nil {
			row.CheckinAt = r.CheckinAt.Format(time.RFC3339)
		}
		if r.CheckoutAt != nil {
			row.CheckoutAt = r.CheckoutAt.Format(time.RFC3339)
		}
		out = append(out, row)
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=attendance_%s.csv", ev.Slug))
	c.Response().WriteHeader(http.StatusOK)
	return gocsv.Marshal(&out, c.Response())
}

// CalendarICS renders the volunteer's upcoming approved shifts as an
// iCalendar feed.
func (h *ExportHandler) CalendarICS(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, err)
	}
	rows, err := h.Apps.ListUpcomingByUser(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/calendar; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=shifts.ics")
	c.Response().WriteHeader(http.StatusOK)

	w := c.Response()
	fmt.Fprintln(w, "BEGIN:VCALENDAR")
	fmt.Fprintln(w, "VERSION:2.0")
	fmt.Fprintln(w, "PRODID:-//volunteerhub//shifts//EN")
	fmt.Fprintln(w, "X-WR-CALNAME:My volunteer shifts")
	fmt.Fprintln(w, "CALSCALE:GREGORIAN")
	stamp := time.Now().UTC().Format("20060102T150405Z")
	for _, r := range rows {
		fmt.Fprintln(w, "BEGIN:VEVENT")
		fmt.Fprintf(w, "UID:application-%d@volunteerhub\n", r.ApplicationID)
		fmt.Fprintf(w, "DTSTAMP:%s\n", stamp)
		fmt.Fprintf(w, "DTSTART:%s\n", r.ShiftStart.UTC().Format("20060102T150405Z"))
		fmt.Fprintf(w, "DTEND:%s\n", r.ShiftEnd.UTC().Format("20060102T150405Z"))
		fmt.Fprintf(w, "SUMMARY:%s\n", icsEscape(r.EventTitle+" - "+r.RoleTitle))
		if r.Address != nil {
			fmt.Fprintf(w, "LOCATION:%s\n", icsEscape(*r.Address))
		}
		fmt.Fprintln(w, "END:VEVENT")
	}
	fmt.Fprintln(w, "END:VCALENDAR")
	return nil
}

// icsEscape escapes the characters iCalendar text values reserve.
func icsEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', ';', ',':
			out = append(out, '\\', s[i])
		case '\n':
			out = append(out, '\\', 'n')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
