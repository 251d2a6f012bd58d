package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulldan/volunteerhub/internal/config"
	"github.com/gulldan/volunteerhub/internal/repository"
	"github.com/gulldan/volunteerhub/internal/service"
	"github.com/gulldan/volunteerhub/internal/telegram"
)

const testQRSecret = "test-qr-secret"

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	return e
}

type stubNotifier struct{ kinds []string }

func (s *stubNotifier) Application(_ context.Context, _ repository.Detail, kind string) bool {
	s.kinds = append(s.kinds, kind)
	return true
}

type stubAnalytics struct{}

func (stubAnalytics) Log(context.Context, *uint64, string, map[string]any) error { return nil }

func newCheckinFixture(t *testing.T) (*CheckinHandler, sqlmock.Sqlmock, *stubNotifier) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	apps := repository.NewApplicationRepo(db)
	attendance := repository.NewAttendanceRepo(db)
	shifts := repository.NewShiftRepo(db)
	events := repository.NewEventRepo(db)
	users := repository.NewUserRepo(db)
	notifier := &stubNotifier{}
	svc := service.NewAttendanceService(db, apps, attendance, users, notifier, stubAnalytics{})

	cfg := config.Config{QRSecret: testQRSecret}
	return NewCheckinHandler(cfg, svc, apps, shifts, events, users), mock, notifier
}

func postJSON(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func shiftRows(geofenced bool) *sqlmock.Rows {
	start := time.Now().Add(time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "role_id", "start_time", "end_time", "capacity", "qr_id",
		"geofence_lat", "geofence_lon", "geofence_radius",
	})
	if geofenced {
		return rows.AddRow(3, 2, start, start.Add(4*time.Hour), 10, "qr-uuid", 55.7539, 37.6208, 150.0)
	}
	return rows.AddRow(3, 2, start, start.Add(4*time.Hour), 10, "qr-uuid", nil, nil, nil)
}

func approvedDetailRows() *sqlmock.Rows {
	start := time.Now().Add(time.Hour)
	return sqlmock.NewRows([]string{
		"id", "user_id", "event_id", "role_id", "shift_id", "status",
		"answers", "uploaded_files", "applied_at", "decided_at",
		"name", "email", "telegram_user_id", "notifications_telegram", "notifications_email",
		"event_title", "role_title", "start_time", "end_time",
		"geofence_lat", "geofence_lon", "geofence_radius",
	}).AddRow(11, 7, 1, 2, 3, "approved",
		nil, nil, time.Now().Add(-24*time.Hour), time.Now(),
		"Anna", "anna@example.com", nil, true, false,
		"City Marathon", "Registration desk", start, start.Add(4*time.Hour),
		nil, nil, nil)
}

func TestProcessRejectsGarbageToken(t *testing.T) {
	h, _, _ := newCheckinFixture(t)
	c, rec := postJSON(newTestEcho(), "/v1/checkin/process", `{"token":"not-a-token"}`)

	require.NoError(t, h.Process(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessRejectsTokenSignedWithOtherSecret(t *testing.T) {
	h, _, _ := newCheckinFixture(t)
	token := telegram.NewCheckinToken("some-other-secret", 11, 3)
	c, rec := postJSON(newTestEcho(), "/v1/checkin/process", `{"token":"`+token+`"}`)

	require.NoError(t, h.Process(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessGeofencedShiftRequiresLocation(t *testing.T) {
	h, mock, _ := newCheckinFixture(t)
	mock.ExpectQuery(`FROM shifts WHERE id=\?`).WithArgs(uint64(3)).WillReturnRows(shiftRows(true))

	token := telegram.NewCheckinToken(testQRSecret, 11, 3)
	c, rec := postJSON(newTestEcho(), "/v1/checkin/process", `{"token":"`+token+`"}`)

	require.NoError(t, h.Process(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "location required")
}

func TestProcessGeofencedShiftRejectsFarLocation(t *testing.T) {
	h, mock, _ := newCheckinFixture(t)
	mock.ExpectQuery(`FROM shifts WHERE id=\?`).WithArgs(uint64(3)).WillReturnRows(shiftRows(true))

	token := telegram.NewCheckinToken(testQRSecret, 11, 3)
	// Roughly 3km away from the shift geofence center.
	c, rec := postJSON(newTestEcho(), "/v1/checkin/process",
		`{"token":"`+token+`","lat":55.7299,"lon":37.6033}`)

	require.NoError(t, h.Process(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "outside geofence")
}

func TestProcessChecksInOnValidToken(t *testing.T) {
	h, mock, notifier := newCheckinFixture(t)

	mock.ExpectQuery(`FROM shifts WHERE id=\?`).WithArgs(uint64(3)).WillReturnRows(shiftRows(false))
	mock.ExpectQuery(`FROM applications a`).WithArgs(uint64(11)).WillReturnRows(approvedDetailRows())
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM attendance WHERE application_id=\?`).
		WithArgs(uint64(11)).WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO attendance`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	token := telegram.NewCheckinToken(testQRSecret, 11, 3)
	c, rec := postJSON(newTestEcho(), "/v1/checkin/process", `{"token":"`+token+`"}`)

	require.NoError(t, h.Process(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Anna", resp["user_name"])
	assert.Equal(t, "Registration desk", resp["role_title"])
	assert.Contains(t, notifier.kinds, "checkin_success")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKioskResolvesShiftByQRID(t *testing.T) {
	h, mock, _ := newCheckinFixture(t)
	mock.ExpectQuery(`FROM shifts WHERE qr_id=\?`).WithArgs("qr-uuid").WillReturnRows(shiftRows(false))

	req := httptest.NewRequest(http.MethodGet, "/v1/kiosk/qr-uuid", nil)
	rec := httptest.NewRecorder()
	c := newTestEcho().NewContext(req, rec)
	c.SetParamNames("qr_id")
	c.SetParamValues("qr-uuid")

	require.NoError(t, h.Kiosk(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"qr_id":"qr-uuid"`)
}

func TestKioskUnknownQRIDIs404(t *testing.T) {
	h, mock, _ := newCheckinFixture(t)
	mock.ExpectQuery(`FROM shifts WHERE qr_id=\?`).WithArgs("gone").WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/v1/kiosk/gone", nil)
	rec := httptest.NewRecorder()
	c := newTestEcho().NewContext(req, rec)
	c.SetParamNames("qr_id")
	c.SetParamValues("gone")

	require.NoError(t, h.Kiosk(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
