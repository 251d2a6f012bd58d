package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gulldan/volunteerhub/internal/model"
	"github.com/gulldan/volunteerhub/internal/repository"
)

// newTxDB returns an sqlmock-backed DB used only for transaction
// control; all queries inside the transactions go through the mocked
// stores.
func newTxDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, m
}

type mockApps struct{ mock.Mock }

func (m *mockApps) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Application) error {
	args := m.Called(ctx, tx, a)
	if args.Error(0) == nil {
		a.ID = 101 // pretend the insert assigned an id
	}
	return args.Error(0)
}

func (m *mockApps) GetByUserAndShift(ctx context.Context, userID, shiftID uint64) (model.Application, error) {
	args := m.Called(ctx, userID, shiftID)
	return args.Get(0).(model.Application), args.Error(1)
}

func (m *mockApps) GetDetail(ctx context.Context, id uint64) (repository.Detail, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(repository.Detail), args.Error(1)
}

func (m *mockApps) GetDetailTx(ctx context.Context, tx *sql.Tx, id uint64) (repository.Detail, error) {
	args := m.Called(ctx, tx, id)
	return args.Get(0).(repository.Detail), args.Error(1)
}

func (m *mockApps) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	return m.Called(ctx, tx, id, status).Error(0)
}

func (m *mockApps) ApprovedCountTx(ctx context.Context, tx *sql.Tx, shiftID uint64) (int, error) {
	args := m.Called(ctx, tx, shiftID)
	return args.Int(0), args.Error(1)
}

func (m *mockApps) EarliestWaitlistedTx(ctx context.Context, tx *sql.Tx, shiftID uint64) (uint64, error) {
	args := m.Called(ctx, tx, shiftID)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockApps) ListOpenIDsByEvent(ctx context.Context, eventID uint64) ([]uint64, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).([]uint64), args.Error(1)
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Event), args.Error(1)
}

type mockRoles struct{ mock.Mock }

func (m *mockRoles) GetByID(ctx context.Context, id uint64) (model.Role, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Role), args.Error(1)
}

type mockShifts struct{ mock.Mock }

func (m *mockShifts) GetByID(ctx context.Context, id uint64) (model.Shift, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Shift), args.Error(1)
}

func (m *mockShifts) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Shift, error) {
	args := m.Called(ctx, tx, id)
	return args.Get(0).(model.Shift), args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUsers) AddHoursTx(ctx context.Context, tx *sql.Tx, id uint64, hours int) error {
	return m.Called(ctx, tx, id, hours).Error(0)
}

type mockReminders struct{ mock.Mock }

func (m *mockReminders) Schedule(ctx context.Context, applicationID uint64, reminders []model.Reminder) error {
	return m.Called(ctx, applicationID, reminders).Error(0)
}

func (m *mockReminders) CancelPending(ctx context.Context, applicationID uint64) error {
	return m.Called(ctx, applicationID).Error(0)
}

type mockAttendance struct{ mock.Mock }

func (m *mockAttendance) GetByApplicationTx(ctx context.Context, tx *sql.Tx, applicationID uint64) (model.Attendance, error) {
	args := m.Called(ctx, tx, applicationID)
	return args.Get(0).(model.Attendance), args.Error(1)
}

func (m *mockAttendance) CreateCheckinTx(ctx context.Context, tx *sql.Tx, applicationID, shiftID uint64, source string, location *string) error {
	return m.Called(ctx, tx, applicationID, shiftID, source, location).Error(0)
}

func (m *mockAttendance) ReviveCheckinTx(ctx context.Context, tx *sql.Tx, applicationID uint64, source string, location *string) error {
	return m.Called(ctx, tx, applicationID, source, location).Error(0)
}

func (m *mockAttendance) CheckoutTx(ctx context.Context, tx *sql.Tx, applicationID uint64, hours float64) error {
	return m.Called(ctx, tx, applicationID, hours).Error(0)
}

func (m *mockAttendance) VerifyTx(ctx context.Context, tx *sql.Tx, applicationID uint64, hours float64, verifiedBy uint64) error {
	return m.Called(ctx, tx, applicationID, hours, verifiedBy).Error(0)
}

// recordingNotifier captures every dispatched kind per application.
type recordingNotifier struct {
	sent []sentNotification
}

type sentNotification struct {
	ApplicationID uint64
	Kind          string
}

func (n *recordingNotifier) Application(ctx context.Context, d repository.Detail, kind string) bool {
	n.sent = append(n.sent, sentNotification{ApplicationID: d.ID, Kind: kind})
	return true
}

func (n *recordingNotifier) kinds() []string {
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Kind)
	}
	return out
}
