package service

import (
	"context"
	"database/sql"
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

func newWorkflow(t *testing.T) (*WorkflowService, *workflowDeps) {
	t.Helper()
	db, sqlm := newTxDB(t)
	d := &workflowDeps{
		sqlm:      sqlm,
		apps:      &mockApps{},
		events:    &mockEvents{},
		roles:     &mockRoles{},
		shifts:    &mockShifts{},
		users:     &mockUsers{},
		reminders: &mockReminders{},
		notifier:  &recordingNotifier{},
	}
	svc := NewWorkflowService(db, d.apps, d.events, d.roles, d.shifts, d.users, d.reminders, d.notifier, nil)
	return svc, d
}

type workflowDeps struct {
	sqlm      sqlmock.Sqlmock
	apps      *mockApps
	events    *mockEvents
	roles     *mockRoles
	shifts    *mockShifts
	users     *mockUsers
	reminders *mockReminders
	notifier  *recordingNotifier
}

func publishedEvent() model.Event {
	return model.Event{ID: 1, Status: model.EventPublished}
}

func adultUser() model.User {
	age := 25
	return model.User{ID: 7, Age: &age}
}

func shiftWithCapacity(c int) model.Shift {
	return model.Shift{ID: 3, RoleID: 2, Capacity: c,
		StartTime: time.Now().Add(48 * time.Hour),
		EndTime:   time.Now().Add(52 * time.Hour)}
}

func detailFor(id uint64, status string) repository.Detail {
	tg := int64(900)
	return repository.Detail{
		Application: model.Application{ID: id, UserID: 7, EventID: 1, RoleID: 2, ShiftID: 3, Status: status},
		UserName:    "Dana", EventTitle: "Park Cleanup", RoleTitle: "Crew",
		ShiftStart: time.Now().Add(48 * time.Hour), ShiftEnd: time.Now().Add(52 * time.Hour),
		TelegramUserID: &tg, NotificationsTelegram: true,
	}
}

func submitInput() SubmitInput {
	return SubmitInput{EventID: 1, RoleID: 2, ShiftID: 3}
}

// expectSubmitLookups wires the pre-transaction reads every successful
// Submit performs.
func expectSubmitLookups(d *workflowDeps, role model.Role, shift model.Shift, user model.User) {
	d.events.On("GetByID", mock.Anything, uint64(1)).Return(publishedEvent(), nil)
	d.roles.On("GetByID", mock.Anything, uint64(2)).Return(role, nil)
	d.shifts.On("GetByID", mock.Anything, uint64(3)).Return(shift, nil)
	d.users.On("GetByID", mock.Anything, uint64(7)).Return(user, nil)
	d.apps.On("GetByUserAndShift", mock.Anything, uint64(7), uint64(3)).
		Return(model.Application{}, repository.ErrApplicationNotFound)
}

func TestSubmitAutoApprove(t *testing.T) {
	svc, d := newWorkflow(t)
	role := model.Role{ID: 2, EventID: 1, AutoApprove: true}
	shift := shiftWithCapacity(5)
	expectSubmitLookups(d, role, shift, adultUser())

	d.sqlm.ExpectBegin()
	d.shifts.On("GetForUpdateTx", mock.Anything, mock.Anything, uint64(3)).Return(shift, nil)
	d.apps.On("ApprovedCountTx", mock.Anything, mock.Anything, uint64(3)).Return(2, nil)
	d.apps.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.sqlm.ExpectCommit()

	d.apps.On("GetDetail", mock.Anything, uint64(101)).Return(detailFor(101, model.ApplicationApproved), nil)
	d.reminders.On("Schedule", mock.Anything, uint64(101), mock.Anything).Return(nil)

	app, err := svc.Submit(context.Background(), 7, submitInput())
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationApproved, app.Status)
	assert.Equal(t, []string{notify.KindApproved}, d.notifier.kinds())
	d.reminders.AssertCalled(t, "Schedule", mock.Anything, uint64(101), mock.Anything)
}

func TestSubmitFullShiftGoesToWaitlist(t *testing.T) {
	svc, d := newWorkflow(t)
	role := model.Role{ID: 2, EventID: 1, AutoApprove: true}
	shift := shiftWithCapacity(2)
	expectSubmitLookups(d, role, shift, adultUser())

	d.sqlm.ExpectBegin()
	d.shifts.On("GetForUpdateTx", mock.Anything, mock.Anything, uint64(3)).Return(shift, nil)
	d.apps.On("ApprovedCountTx", mock.Anything, mock.Anything, uint64(3)).Return(2, nil)
	d.apps.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.sqlm.ExpectCommit()

	d.apps.On("GetDetail", mock.Anything, uint64(101)).Return(detailFor(101, model.ApplicationWaitlisted), nil)

	app, err := svc.Submit(context.Background(), 7, submitInput())
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationWaitlisted, app.Status)
	assert.Equal(t, []string{notify.KindWaitlisted}, d.notifier.kinds())
	d.reminders.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitWithoutAutoApproveIsPending(t *testing.T) {
	svc, d := newWorkflow(t)
	role := model.Role{ID: 2, EventID: 1, AutoApprove: false}
	shift := shiftWithCapacity(5)
	expectSubmitLookups(d, role, shift, adultUser())

	d.sqlm.ExpectBegin()
	d.shifts.On("GetForUpdateTx", mock.Anything, mock.Anything, uint64(3)).Return(shift, nil)
	d.apps.On("ApprovedCountTx", mock.Anything, mock.Anything, uint64(3)).Return(0, nil)
	d.apps.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.sqlm.ExpectCommit()

	d.apps.On("GetDetail", mock.Anything, uint64(101)).Return(detailFor(101, model.ApplicationPending), nil)

	app, err := svc.Submit(context.Background(), 7, submitInput())
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationPending, app.Status)
	// Pending applications get a receipt, not a confirmation.
	assert.Equal(t, []string{notify.KindReceived}, d.notifier.kinds())
}

func TestSubmitForceWaitlist(t *testing.T) {
	svc, d := newWorkflow(t)
	role := model.Role{ID: 2, EventID: 1, AutoApprove: true}
	shift := shiftWithCapacity(5)
	expectSubmitLookups(d, role, shift, adultUser())

	d.sqlm.ExpectBegin()
	d.shifts.On("GetForUpdateTx", mock.Anything, mock.Anything, uint64(3)).Return(shift, nil)
	d.apps.On("ApprovedCountTx", mock.Anything, mock.Anything, uint64(3)).Return(0, nil)
	d.apps.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.sqlm.ExpectCommit()

	d.apps.On("GetDetail", mock.Anything, uint64(101)).Return(detailFor(101, model.ApplicationWaitlisted), nil)

	in := submitInput()
	in.ForceWaitlist = true
	app, err := svc.Submit(context.Background(), 7, in)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationWaitlisted, app.Status)
}

func TestSubmitClosedEvent(t *testing.T) {
	svc, d := newWorkflow(t)
	d.events.On("GetByID", mock.Anything, uint64(1)).
		Return(model.Event{ID: 1, Status: model.EventClosed}, nil)

	_, err := svc.Submit(context.Background(), 7, submitInput())
	assert.ErrorIs(t, err, ErrEventClosed)
}

func TestSubmitBelowMinAge(t *testing.T) {
	svc, d := newWorkflow(t)
	minAge := 18
	age := 15
	d.events.On("GetByID", mock.Anything, uint64(1)).Return(publishedEvent(), nil)
	d.roles.On("GetByID", mock.Anything, uint64(2)).
		Return(model.Role{ID: 2, EventID: 1, MinAge: &minAge}, nil)
	d.shifts.On("GetByID", mock.Anything, uint64(3)).Return(shiftWithCapacity(5), nil)
	d.users.On("GetByID", mock.Anything, uint64(7)).Return(model.User{ID: 7, Age: &age}, nil)

	_, err := svc.Submit(context.Background(), 7, submitInput())
	assert.ErrorIs(t, err, ErrTooYoung)
}

func TestSubmitMissingSkills(t *testing.T) {
	svc, d := newWorkflow(t)
	required := `["first aid","driving"]`
	skills := `["driving"]`
	user := adultUser()
	user.Skills = &skills
	d.events.On("GetByID", mock.Anything, uint64(1)).Return(publishedEvent(), nil)
	d.roles.On("GetByID", mock.Anything, uint64(2)).
		Return(model.Role{ID: 2, EventID: 1, RequiredSkills: &required}, nil)
	d.shifts.On("GetByID", mock.Anything, uint64(3)).Return(shiftWithCapacity(5), nil)
	d.users.On("GetByID", mock.Anything, uint64(7)).Return(user, nil)

	_, err := svc.Submit(context.Background(), 7, submitInput())
	assert.ErrorIs(t, err, ErrMissingSkills)
}

func TestSubmitDuplicate(t *testing.T) {
	svc, d := newWorkflow(t)
	d.events.On("GetByID", mock.Anything, uint64(1)).Return(publishedEvent(), nil)
	d.roles.On("GetByID", mock.Anything, uint64(2)).Return(model.Role{ID: 2, EventID: 1}, nil)
	d.shifts.On("GetByID", mock.Anything, uint64(3)).Return(shiftWithCapacity(5), nil)
	d.users.On("GetByID", mock.Anything, uint64(7)).Return(adultUser(), nil)
	d.apps.On("GetByUserAndShift", mock.Anything, uint64(7), uint64(3)).
		Return(model.Application{ID: 55, Status: model.ApplicationPending}, nil)

	_, err := svc.Submit(context.Background(), 7, submitInput())
	assert.ErrorIs(t, err, ErrAlreadyApplied)
}

func TestSubmitAfterCancelAllowed(t *testing.T) {
	svc, d := newWorkflow(t)
	role := model.Role{ID: 2, EventID: 1}
	shift := shiftWithCapacity(5)
	d.events.On("GetByID", mock.Anything, uint64(1)).Return(publishedEvent(), nil)
	d.roles.On("GetByID", mock.Anything, uint64(2)).Return(role, nil)
	d.shifts.On("GetByID", mock.Anything, uint64(3)).Return(shift, nil)
	d.users.On("GetByID", mock.Anything, uint64(7)).Return(adultUser(), nil)
	d.apps.On("GetByUserAndShift", mock.Anything, uint64(7), uint64(3)).
		Return(model.Application{ID: 55, Status: model.ApplicationCancelled}, nil)

	d.sqlm.ExpectBegin()
	d.shifts.On("GetForUpdateTx", mock.Anything, mock.Anything, uint64(3)).Return(shift, nil)
	d.apps.On("ApprovedCountTx", mock.Anything, mock.Anything, uint64(3)).Return(0, nil)
	d.apps.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.sqlm.ExpectCommit()
	d.apps.On("GetDetail", mock.Anything, uint64(101)).Return(detailFor(101, model.ApplicationPending), nil)

	_, err := svc.Submit(context.Background(), 7, submitInput())
	assert.NoError(t, err)
}

func TestSetStatusApproveFullShift(t *testing.T) {
	svc, d := newWorkflow(t)
	d.sqlm.ExpectBegin()
	d.apps.On("GetDetailTx", mock.Anything, mock.Anything, uint64(55)).
		Return(detailFor(55, model.ApplicationPending), nil)
	d.shifts.On("GetForUpdateTx", mock.Anything, mock.Anything, uint64(3)).
		Return(shiftWithCapacity(1), nil)
	d.apps.On("ApprovedCountTx", mock.Anything, mock.Anything, uint64(3)).Return(1, nil)
	d.sqlm.ExpectRollback()

	_, err := svc.SetStatus(context.Background(), 55, model.ApplicationApproved)
	assert.ErrorIs(t, err, ErrShiftFull)
	d.apps.AssertNotCalled(t, "UpdateStatusTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, d.notifier.sent)
}

func TestSetStatusApprove(t *testing.T) {
	svc, d := newWorkflow(t)
	d.sqlm.ExpectBegin()
	d.apps.On("GetDetailTx", mock.Anything, mock.Anything, uint64(55)).
		Return(detailFor(55, model.ApplicationPending), nil)
	d.shifts.On("GetForUpdateTx", mock.Anything, mock.Anything, uint64(3)).
		Return(shiftWithCapacity(2), nil)
	d.apps.On("ApprovedCountTx", mock.Anything, mock.Anything, uint64(3)).Return(1, nil)
	d.apps.On("UpdateStatusTx", mock.Anything, mock.Anything, uint64(55), model.ApplicationApproved).Return(nil)
	d.sqlm.ExpectCommit()
	d.reminders.On("Schedule", mock.Anything, uint64(55), mock.Anything).Return(nil)

	_, err := svc.SetStatus(context.Background(), 55, model.ApplicationApproved)
	require.NoError(t, err)
	assert.Equal(t, []string{notify.KindApproved}, d.notifier.kinds())
}

func TestDeclineApprovedPromotesEarliestWaitlisted(t *testing.T) {
	svc, d := newWorkflow(t)
	d.sqlm.ExpectBegin()
	d.apps.On("GetDetailTx", mock.Anything, mock.Anything, uint64(55)).
		Return(detailFor(55, model.ApplicationApproved), nil)
	d.shifts.On("GetForUpdateTx", mock.Anything, mock.Anything, uint64(3)).
		Return(shiftWithCapacity(1), nil)
	d.apps.On("UpdateStatusTx", mock.Anything, mock.Anything, uint64(55), model.ApplicationDeclined).Return(nil)
	d.apps.On("ApprovedCountTx", mock.Anything, mock.Anything, uint64(3)).Return(0, nil)
	d.apps.On("EarliestWaitlistedTx", mock.Anything, mock.Anything, uint64(3)).Return(uint64(42), nil)
	d.apps.On("UpdateStatusTx", mock.Anything, mock.Anything, uint64(42), model.ApplicationApproved).Return(nil)
	d.sqlm.ExpectCommit()

	d.reminders.On("CancelPending", mock.Anything, uint64(55)).Return(nil)
	d.apps.On("GetDetail", mock.Anything, uint64(42)).Return(detailFor(42, model.ApplicationApproved), nil)
	d.reminders.On("Schedule", mock.Anything, uint64(42), mock.Anything).Return(nil)

	_, err := svc.SetStatus(context.Background(), 55, model.ApplicationDeclined)
	require.NoError(t, err)

	assert.Equal(t, []string{notify.KindDeclined, notify.KindApproved}, d.notifier.kinds())
	assert.Equal(t, uint64(42), d.notifier.sent[1].ApplicationID)
	// Capacity one means exactly one promotion attempt.
	d.apps.AssertNumberOfCalls(t, "EarliestWaitlistedTx", 1)
}

func TestCancelApprovedFreesSlot(t *testing.T) {
	svc, d := newWorkflow(t)
	d.apps.On("GetDetail", mock.Anything, uint64(55)).Return(detailFor(55, model.ApplicationApproved), nil)

	d.sqlm.ExpectBegin()
	d.apps.On("GetDetailTx", mock.Anything, mock.Anything, uint64(55)).
		Return(detailFor(55, model.ApplicationApproved), nil)
	d.shifts.On("GetForUpdateTx", mock.Anything, mock.Anything, uint64(3)).
		Return(shiftWithCapacity(1), nil)
	d.apps.On("UpdateStatusTx", mock.Anything, mock.Anything, uint64(55), model.ApplicationCancelled).Return(nil)
	d.apps.On("ApprovedCountTx", mock.Anything, mock.Anything, uint64(3)).Return(0, nil)
	d.apps.On("EarliestWaitlistedTx", mock.Anything, mock.Anything, uint64(3)).Return(uint64(42), nil)
	d.apps.On("UpdateStatusTx", mock.Anything, mock.Anything, uint64(42), model.ApplicationApproved).Return(nil)
	d.sqlm.ExpectCommit()

	d.reminders.On("CancelPending", mock.Anything, uint64(55)).Return(nil)
	d.apps.On("GetDetail", mock.Anything, uint64(42)).Return(detailFor(42, model.ApplicationApproved), nil)
	d.reminders.On("Schedule", mock.Anything, uint64(42), mock.Anything).Return(nil)

	err := svc.Cancel(context.Background(), 7, 55)
	require.NoError(t, err)
	// Only the promoted volunteer hears about it.
	assert.Equal(t, []string{notify.KindApproved}, d.notifier.kinds())
	assert.Equal(t, uint64(42), d.notifier.sent[0].ApplicationID)
}

func TestCancelSomeoneElsesApplication(t *testing.T) {
	svc, d := newWorkflow(t)
	d.apps.On("GetDetail", mock.Anything, uint64(55)).Return(detailFor(55, model.ApplicationApproved), nil)

	err := svc.Cancel(context.Background(), 8, 55)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestDeclineWithEmptyWaitlist(t *testing.T) {
	svc, d := newWorkflow(t)
	d.sqlm.ExpectBegin()
	d.apps.On("GetDetailTx", mock.Anything, mock.Anything, uint64(55)).
		Return(detailFor(55, model.ApplicationApproved), nil)
	d.shifts.On("GetForUpdateTx", mock.Anything, mock.Anything, uint64(3)).
		Return(shiftWithCapacity(1), nil)
	d.apps.On("UpdateStatusTx", mock.Anything, mock.Anything, uint64(55), model.ApplicationDeclined).Return(nil)
	d.apps.On("ApprovedCountTx", mock.Anything, mock.Anything, uint64(3)).Return(0, nil)
	d.apps.On("EarliestWaitlistedTx", mock.Anything, mock.Anything, uint64(3)).
		Return(uint64(0), sql.ErrNoRows)
	d.sqlm.ExpectCommit()
	d.reminders.On("CancelPending", mock.Anything, uint64(55)).Return(nil)

	_, err := svc.SetStatus(context.Background(), 55, model.ApplicationDeclined)
	require.NoError(t, err)
	assert.Equal(t, []string{notify.KindDeclined}, d.notifier.kinds())
}

func TestSetStatusNoop(t *testing.T) {
	svc, d := newWorkflow(t)
	d.sqlm.ExpectBegin()
	d.apps.On("GetDetailTx", mock.Anything, mock.Anything, uint64(55)).
		Return(detailFor(55, model.ApplicationApproved), nil)
	d.sqlm.ExpectCommit()

	_, err := svc.SetStatus(context.Background(), 55, model.ApplicationApproved)
	require.NoError(t, err)
	assert.Empty(t, d.notifier.sent)
	d.apps.AssertNotCalled(t, "UpdateStatusTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	svc, _ := newWorkflow(t)
	_, err := svc.SetStatus(context.Background(), 55, "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestHasRequiredSkills(t *testing.T) {
	req := `["First Aid","driving"]`
	have := `["first aid","Driving","cooking"]`
	none := ""

	assert.True(t, hasRequiredSkills(nil, nil))
	assert.True(t, hasRequiredSkills(&none, nil))
	assert.True(t, hasRequiredSkills(&req, &have))
	short := `["first aid"]`
	assert.False(t, hasRequiredSkills(&req, &short))
	assert.False(t, hasRequiredSkills(&req, nil))
}
