package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"City Marathon 2026", "city-marathon-2026"},
		{"  Beach   clean-up!  ", "beach-clean-up"},
		{"Уборка парка Gorky Park", "gorky-park"},
		{"---", ""},
		{"Food & Shelter (night)", "food-shelter-night"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.title), "title %q", tc.title)
	}
}

func eventSummaryRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "org_id", "slug", "title", "short_description", "long_description",
		"address", "city", "latitude", "longitude", "timezone",
		"start_date", "end_date", "category", "tags", "visibility",
		"status", "custom_questions", "created_at", "updated_at", "org_name",
	}).AddRow(1, 10, "city-marathon", "City Marathon", "Help runners", "",
		nil, "Stockholm", nil, nil, "Europe/Stockholm",
		now.Add(48*time.Hour), now.Add(50*time.Hour), "sport", nil, "public",
		"published", nil, now, now, "Runners Org")
}

func TestListUpcomingFiltersPublished(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEventRepo(db)

	mock.ExpectQuery(`e\.status = 'published'\s+AND e\.visibility IN \('public','unlisted'\)`).
		WillReturnRows(eventSummaryRows())

	out, err := repo.ListUpcoming(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "City Marathon", out[0].Title)
	assert.Equal(t, "Runners Org", out[0].OrgName)
}

func TestSearchAppliesFiltersInOrder(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEventRepo(db)

	age := 16
	// Search appends the availability aggregates to the summary columns.
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "org_id", "slug", "title", "short_description", "long_description",
		"address", "city", "latitude", "longitude", "timezone",
		"start_date", "end_date", "category", "tags", "visibility",
		"status", "custom_questions", "created_at", "updated_at",
		"org_name", "slots_available", "approved_count", "min_role_age",
	}).AddRow(1, 10, "city-marathon", "City Marathon", "Help runners", "",
		nil, "Stockholm", nil, nil, "Europe/Stockholm",
		now.Add(48*time.Hour), now.Add(50*time.Hour), "sport", nil, "public",
		"published", nil, now, now, "Runners Org", 12, 3, 16)

	mock.ExpectQuery(`AND e\.category = \?.*AND e\.city LIKE \?`).
		WithArgs("%marathon%", "%marathon%", "%marathon%", "sport", "%Stockholm%", 16).
		WillReturnRows(rows)

	out, err := repo.Search(context.Background(), SearchFilter{
		Text:     "marathon",
		Category: "sport",
		City:     "Stockholm",
		MaxAge:   &age,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 12, out[0].SlotsAvailable)
	assert.Equal(t, 3, out[0].ApprovedCount)
	require.NotNil(t, out[0].MinRoleAge)
	assert.Equal(t, 16, *out[0].MinRoleAge)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchNoFiltersStillRestrictsVisibility(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEventRepo(db)

	mock.ExpectQuery(`WHERE e\.status = 'published' AND e\.visibility IN \('public','unlisted'\)\s+ORDER BY e\.start_date`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	out, err := repo.Search(context.Background(), SearchFilter{})
	require.NoError(t, err)
	assert.Empty(t, out)
}
