package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulldan/volunteerhub/internal/repository"
)

func newCatalogFixture(t *testing.T) (*CatalogHandler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewCatalogHandler(
		repository.NewEventRepo(db),
		repository.NewRoleRepo(db),
		repository.NewShiftRepo(db),
		repository.NewOrganizationRepo(db),
	), mock
}

func getPath(e *echo.Echo, path string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestSearchPassesDateRangeThrough(t *testing.T) {
	h, mock := newCatalogFixture(t)
	mock.ExpectQuery(`AND e\.start_date >= \? AND e\.start_date <= \?`).
		WithArgs("2026-09-01", "2026-09-30").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, rec := getPath(newTestEcho(), "/v1/events/search?date_from=2026-09-01&date_to=2026-09-30")
	require.NoError(t, h.Search(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchRejectsMalformedDates(t *testing.T) {
	h, _ := newCatalogFixture(t)

	for _, query := range []string{"date_from=tomorrow", "date_to=2026-13-40"} {
		c, rec := getPath(newTestEcho(), "/v1/events/search?"+query)
		require.NoError(t, h.Search(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}
