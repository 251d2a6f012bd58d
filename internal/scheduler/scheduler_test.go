package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gulldan/volunteerhub/internal/model"
	"github.com/gulldan/volunteerhub/internal/notify"
	"github.com/gulldan/volunteerhub/internal/repository"
)

type mockReminders struct{ mock.Mock }

func (m *mockReminders) ListDue(ctx context.Context, now time.Time) ([]repository.DueReminder, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]repository.DueReminder), args.Error(1)
}
func (m *mockReminders) MarkSent(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

type mockAttendanceSource struct{ mock.Mock }

func (m *mockAttendanceSource) ListOverdueCheckins(ctx context.Context, endedBefore time.Time) ([]repository.OverdueCheckin, error) {
	args := m.Called(ctx, endedBefore)
	return args.Get(0).([]repository.OverdueCheckin), args.Error(1)
}
func (m *mockAttendanceSource) CheckoutTx(ctx context.Context, tx *sql.Tx, applicationID uint64, hours float64) error {
	return m.Called(ctx, tx, applicationID, hours).Error(0)
}
func (m *mockAttendanceSource) MarkNoShow(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type mockDetails struct{ mock.Mock }

func (m *mockDetails) GetDetail(ctx context.Context, id uint64) (repository.Detail, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(repository.Detail), args.Error(1)
}

type recordingNotifier struct {
	kinds []string
	apps  []uint64
}

func (n *recordingNotifier) Application(_ context.Context, d repository.Detail, kind string) bool {
	n.kinds = append(n.kinds, kind)
	n.apps = append(n.apps, d.ID)
	return true
}

type nopAnalytics struct{ entries []string }

func (a *nopAnalytics) Log(_ context.Context, _ *uint64, eventType string, _ map[string]any) error {
	a.entries = append(a.entries, eventType)
	return nil
}

type jobDeps struct {
	sqlm       sqlmock.Sqlmock
	reminders  *mockReminders
	attendance *mockAttendanceSource
	details    *mockDetails
	notifier   *recordingNotifier
	analytics  *nopAnalytics
}

func newJob(t *testing.T, now time.Time) (*Job, *jobDeps) {
	db, sqlm, err := sqlmock.New()
	require.NoError(t, err)
	sqlm.MatchExpectationsInOrder(false)
	t.Cleanup(func() { db.Close() })
	for i := 0; i < 4; i++ {
		sqlm.ExpectBegin()
		sqlm.ExpectCommit()
		sqlm.ExpectRollback()
	}
	d := &jobDeps{
		sqlm:       sqlm,
		reminders:  &mockReminders{},
		attendance: &mockAttendanceSource{},
		details:    &mockDetails{},
		notifier:   &recordingNotifier{},
		analytics:  &nopAnalytics{},
	}
	j := New(db, d.reminders, d.attendance, d.details, d.notifier, d.analytics, 15*time.Minute)
	j.now = func() time.Time { return now }
	return j, d
}

func detailFor(id uint64) repository.Detail {
	d := repository.Detail{}
	d.ID = id
	d.UserID = 7
	return d
}

func TestRunOnceSendsDueReminders(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	j, d := newJob(t, now)

	due := []repository.DueReminder{
		{ID: 1, ApplicationID: 11, Kind: model.Reminder24h},
		{ID: 2, ApplicationID: 12, Kind: model.Reminder2h},
		{ID: 3, ApplicationID: 13, Kind: model.ReminderCheckout},
	}
	d.reminders.On("ListDue", mock.Anything, now).Return(due, nil)
	d.details.On("GetDetail", mock.Anything, uint64(11)).Return(detailFor(11), nil)
	d.details.On("GetDetail", mock.Anything, uint64(12)).Return(detailFor(12), nil)
	d.details.On("GetDetail", mock.Anything, uint64(13)).Return(detailFor(13), nil)
	d.reminders.On("MarkSent", mock.Anything, mock.Anything).Return(nil)
	d.attendance.On("ListOverdueCheckins", mock.Anything, now.Add(-time.Hour)).
		Return([]repository.OverdueCheckin{}, nil)
	d.attendance.On("MarkNoShow", mock.Anything, now.Add(-time.Hour)).Return(int64(0), nil)

	j.RunOnce(context.Background())

	assert.Equal(t, []string{notify.KindReminder24h, notify.KindReminder2h, notify.KindCheckoutPrompt}, d.notifier.kinds)
	d.reminders.AssertNumberOfCalls(t, "MarkSent", 3)
}

func TestRunOnceSkipsReminderWhenDetailMissing(t *testing.T) {
	now := time.Now()
	j, d := newJob(t, now)

	due := []repository.DueReminder{{ID: 1, ApplicationID: 11, Kind: model.Reminder24h}}
	d.reminders.On("ListDue", mock.Anything, mock.Anything).Return(due, nil)
	d.details.On("GetDetail", mock.Anything, uint64(11)).
		Return(repository.Detail{}, repository.ErrApplicationNotFound)
	d.attendance.On("ListOverdueCheckins", mock.Anything, mock.Anything).
		Return([]repository.OverdueCheckin{}, nil)
	d.attendance.On("MarkNoShow", mock.Anything, mock.Anything).Return(int64(0), nil)

	j.RunOnce(context.Background())

	assert.Empty(t, d.notifier.kinds)
	d.reminders.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything)
}

func TestRunOnceAutoCheckoutCreditsScheduledWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	j, d := newJob(t, now)

	start := now.Add(-6 * time.Hour)
	end := now.Add(-90 * time.Minute) // ended 1.5h ago, past the grace period
	overdue := []repository.OverdueCheckin{{
		ApplicationID: 21, UserID: 7, EventID: 1, EventTitle: "Marathon",
		ShiftStart: start, ShiftEnd: end,
	}}
	d.reminders.On("ListDue", mock.Anything, mock.Anything).Return([]repository.DueReminder{}, nil)
	d.attendance.On("ListOverdueCheckins", mock.Anything, now.Add(-time.Hour)).Return(overdue, nil)
	// Credited hours come from the scheduled window: 4.5h.
	d.attendance.On("CheckoutTx", mock.Anything, mock.Anything, uint64(21), 4.5).Return(nil)
	d.attendance.On("MarkNoShow", mock.Anything, mock.Anything).Return(int64(0), nil)
	d.details.On("GetDetail", mock.Anything, uint64(21)).Return(detailFor(21), nil)

	j.RunOnce(context.Background())

	d.attendance.AssertCalled(t, "CheckoutTx", mock.Anything, mock.Anything, uint64(21), 4.5)
	assert.Equal(t, []string{notify.KindShiftDone}, d.notifier.kinds)
	assert.Contains(t, d.analytics.entries, repository.AnalyticsAutoCheckout)
}

func TestRunOnceAutoCheckoutRowFailureContinues(t *testing.T) {
	now := time.Now()
	j, d := newJob(t, now)

	start := now.Add(-5 * time.Hour)
	end := now.Add(-2 * time.Hour)
	overdue := []repository.OverdueCheckin{
		{ApplicationID: 21, UserID: 7, ShiftStart: start, ShiftEnd: end},
		{ApplicationID: 22, UserID: 8, ShiftStart: start, ShiftEnd: end},
	}
	d.reminders.On("ListDue", mock.Anything, mock.Anything).Return([]repository.DueReminder{}, nil)
	d.attendance.On("ListOverdueCheckins", mock.Anything, mock.Anything).Return(overdue, nil)
	d.attendance.On("CheckoutTx", mock.Anything, mock.Anything, uint64(21), mock.Anything).
		Return(errors.New("deadlock"))
	d.attendance.On("CheckoutTx", mock.Anything, mock.Anything, uint64(22), mock.Anything).Return(nil)
	d.attendance.On("MarkNoShow", mock.Anything, mock.Anything).Return(int64(0), nil)
	d.details.On("GetDetail", mock.Anything, uint64(22)).Return(detailFor(22), nil)

	j.RunOnce(context.Background())

	// Only the row that committed is notified.
	assert.Equal(t, []uint64{22}, d.notifier.apps)
}

func TestRunOnceMarksNoShows(t *testing.T) {
	now := time.Now()
	j, d := newJob(t, now)

	d.reminders.On("ListDue", mock.Anything, mock.Anything).Return([]repository.DueReminder{}, nil)
	d.attendance.On("ListOverdueCheckins", mock.Anything, mock.Anything).
		Return([]repository.OverdueCheckin{}, nil)
	d.attendance.On("MarkNoShow", mock.Anything, now.Add(-time.Hour)).Return(int64(3), nil)

	j.RunOnce(context.Background())

	d.attendance.AssertCalled(t, "MarkNoShow", mock.Anything, now.Add(-time.Hour))
}

func TestScheduledHours(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, 3.5, scheduledHours(start, start.Add(3*time.Hour+30*time.Minute)))
	assert.Equal(t, 0.0, scheduledHours(start, start.Add(-time.Hour)))
	assert.Equal(t, 0.33, scheduledHours(start, start.Add(20*time.Minute)))
}