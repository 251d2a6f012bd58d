package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulldan/volunteerhub/internal/config"
	"github.com/gulldan/volunteerhub/internal/middleware"
	"github.com/gulldan/volunteerhub/internal/repository"
	"github.com/gulldan/volunteerhub/internal/telegram"
)

func newApplicationFixture(t *testing.T) (*ApplicationHandler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{QRSecret: testQRSecret}
	return NewApplicationHandler(cfg, nil, repository.NewApplicationRepo(db), nil), mock
}

func applicationRow(id, userID, shiftID uint64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "event_id", "role_id", "shift_id", "status",
		"answers", "uploaded_files", "applied_at", "decided_at",
	}).AddRow(id, userID, 1, 2, shiftID, status, nil, nil, time.Now(), nil)
}

func getAs(e *echo.Echo, path string, userID uint64, appID string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxUserID, userID)
	if appID != "" {
		c.SetParamNames("id")
		c.SetParamValues(appID)
	}
	return c, rec
}

func TestCheckinPassIssuesTokenForApprovedApplication(t *testing.T) {
	h, mock := newApplicationFixture(t)
	mock.ExpectQuery(`FROM applications WHERE id=\?`).WithArgs(uint64(11)).
		WillReturnRows(applicationRow(11, 7, 3, "approved"))

	c, rec := getAs(newTestEcho(), "/v1/applications/11/pass", 7, "11")
	require.NoError(t, h.CheckinPass(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp checkinPassResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// Without a configured bot there is a token but no deep link.
	assert.Empty(t, resp.DeepLink)

	claims, err := telegram.ParseCheckinToken(testQRSecret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), claims.ApplicationID)
	assert.Equal(t, uint64(3), claims.ShiftID)
}

func TestCheckinPassForbidsOtherUsersApplication(t *testing.T) {
	h, mock := newApplicationFixture(t)
	mock.ExpectQuery(`FROM applications WHERE id=\?`).WithArgs(uint64(11)).
		WillReturnRows(applicationRow(11, 99, 3, "approved"))

	c, rec := getAs(newTestEcho(), "/v1/applications/11/pass", 7, "11")
	require.NoError(t, h.CheckinPass(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckinPassRejectsUnapprovedApplication(t *testing.T) {
	h, mock := newApplicationFixture(t)
	mock.ExpectQuery(`FROM applications WHERE id=\?`).WithArgs(uint64(11)).
		WillReturnRows(applicationRow(11, 7, 3, "waitlisted"))

	c, rec := getAs(newTestEcho(), "/v1/applications/11/pass", 7, "11")
	require.NoError(t, h.CheckinPass(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCheckinPassUnknownApplicationIs404(t *testing.T) {
	h, mock := newApplicationFixture(t)
	mock.ExpectQuery(`FROM applications WHERE id=\?`).WithArgs(uint64(404)).
		WillReturnError(sql.ErrNoRows)

	c, rec := getAs(newTestEcho(), "/v1/applications/404/pass", 7, "404")
	require.NoError(t, h.CheckinPass(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckinPassRequiresAuth(t *testing.T) {
	h, _ := newApplicationFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/applications/11/pass", nil)
	rec := httptest.NewRecorder()
	c := newTestEcho().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("11")

	require.NoError(t, h.CheckinPass(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
