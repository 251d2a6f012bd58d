// Package service implements the application workflow and attendance
// rules on top of the repository layer.  All capacity-sensitive
// transitions run inside a transaction that first locks the shift row,
// so the approved count can never exceed capacity under concurrency.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gulldan/volunteerhub/internal/model"
	"github.com/gulldan/volunteerhub/internal/notify"
	"github.com/gulldan/volunteerhub/internal/repository"
)

// ApplicationStore is the slice of ApplicationRepo the workflow needs.
type ApplicationStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, a *model.Application) error
	GetByUserAndShift(ctx context.Context, userID, shiftID uint64) (model.Application, error)
	GetDetail(ctx context.Context, id uint64) (repository.Detail, error)
	GetDetailTx(ctx context.Context, tx *sql.Tx, id uint64) (repository.Detail, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error
	ApprovedCountTx(ctx context.Context, tx *sql.Tx, shiftID uint64) (int, error)
	EarliestWaitlistedTx(ctx context.Context, tx *sql.Tx, shiftID uint64) (uint64, error)
	ListOpenIDsByEvent(ctx context.Context, eventID uint64) ([]uint64, error)
}

type EventStore interface {
	GetByID(ctx context.Context, id uint64) (model.Event, error)
}

type RoleStore interface {
	GetByID(ctx context.Context, id uint64) (model.Role, error)
}

type ShiftStore interface {
	GetByID(ctx context.Context, id uint64) (model.Shift, error)
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Shift, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	AddHoursTx(ctx context.Context, tx *sql.Tx, id uint64, hours int) error
}

type ReminderStore interface {
	Schedule(ctx context.Context, applicationID uint64, reminders []model.Reminder) error
	CancelPending(ctx context.Context, applicationID uint64) error
}

// Notifier dispatches a notification about an application.  The bool
// result is informational only; delivery failure never fails a
// workflow.
type Notifier interface {
	Application(ctx context.Context, d repository.Detail, kind string) bool
}

type AnalyticsLogger interface {
	Log(ctx context.Context, userID *uint64, eventType string, payload map[string]any) error
}

// WorkflowService owns application submission, status transitions and
// waitlist promotion.
type WorkflowService struct {
	db        *sql.DB
	apps      ApplicationStore
	events    EventStore
	roles     RoleStore
	shifts    ShiftStore
	users     UserStore
	reminders ReminderStore
	notifier  Notifier
	analytics AnalyticsLogger
}

func NewWorkflowService(db *sql.DB, apps ApplicationStore, events EventStore, roles RoleStore,
	shifts ShiftStore, users UserStore, reminders ReminderStore,
	notifier Notifier, analytics AnalyticsLogger) *WorkflowService {
	return &WorkflowService{
		db: db, apps: apps, events: events, roles: roles, shifts: shifts,
		users: users, reminders: reminders, notifier: notifier, analytics: analytics,
	}
}

// SubmitInput is a volunteer's application to one shift.
type SubmitInput struct {
	EventID       uint64
	RoleID        uint64
	ShiftID       uint64
	Answers       map[string]string
	UploadedFiles []string
	ForceWaitlist bool
}

// Submit validates and stores an application, deciding its initial
// status in one transaction:
//
//	force_waitlist          -> waitlisted
//	shift already full      -> waitlisted
//	role auto-approves      -> approved
//	otherwise               -> pending
//
// The shift row is locked before counting so auto-approval cannot
// oversubscribe the shift.
func (s *WorkflowService) Submit(ctx context.Context, userID uint64, in SubmitInput) (model.Application, error) {
	var app model.Application

	event, err := s.events.GetByID(ctx, in.EventID)
	if err != nil {
		return app, err
	}
	if event.Status != model.EventPublished {
		return app, ErrEventClosed
	}

	role, err := s.roles.GetByID(ctx, in.RoleID)
	if err != nil {
		return app, err
	}
	if role.EventID != event.ID {
		return app, repository.ErrRoleNotFound
	}

	shift, err := s.shifts.GetByID(ctx, in.ShiftID)
	if err != nil {
		return app, err
	}
	if shift.RoleID != role.ID {
		return app, repository.ErrShiftNotFound
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return app, err
	}
	if role.MinAge != nil && (user.Age == nil || *user.Age < *role.MinAge) {
		return app, ErrTooYoung
	}
	if !hasRequiredSkills(role.RequiredSkills, user.Skills) {
		return app, ErrMissingSkills
	}

	// One live application per shift.  Cancelled and declined
	// applications do not block a fresh attempt.
	if prev, err := s.apps.GetByUserAndShift(ctx, userID, in.ShiftID); err == nil {
		if prev.Status != model.ApplicationCancelled && prev.Status != model.ApplicationDeclined {
			return app, ErrAlreadyApplied
		}
	} else if err != repository.ErrApplicationNotFound {
		return app, err
	}

	app = model.Application{
		UserID:  userID,
		EventID: in.EventID,
		RoleID:  in.RoleID,
		ShiftID: in.ShiftID,
	}
	if len(in.Answers) > 0 {
		raw, err := json.Marshal(in.Answers)
		if err != nil {
			return app, err
		}
		str := string(raw)
		app.Answers = &str
	}
	if len(in.UploadedFiles) > 0 {
		raw, err := json.Marshal(in.UploadedFiles)
		if err != nil {
			return app, err
		}
		str := string(raw)
		app.UploadedFiles = &str
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return app, err
	}
	defer func() { _ = tx.Rollback() }()

	locked, err := s.shifts.GetForUpdateTx(ctx, tx, in.ShiftID)
	if err != nil {
		return app, err
	}
	approved, err := s.apps.ApprovedCountTx(ctx, tx, in.ShiftID)
	if err != nil {
		return app, err
	}

	switch {
	case in.ForceWaitlist:
		app.Status = model.ApplicationWaitlisted
	case approved >= locked.Capacity:
		app.Status = model.ApplicationWaitlisted
	case role.AutoApprove:
		app.Status = model.ApplicationApproved
	default:
		app.Status = model.ApplicationPending
	}

	if err := s.apps.CreateTx(ctx, tx, &app); err != nil {
		return app, err
	}
	if err := tx.Commit(); err != nil {
		return app, err
	}

	s.logEvent(ctx, userID, repository.AnalyticsSignupSubmitted, map[string]any{
		"application_id": app.ID,
		"shift_id":       app.ShiftID,
		"status":         app.Status,
	})

	detail, err := s.apps.GetDetail(ctx, app.ID)
	if err != nil {
		log.Printf("workflow: load detail for %d after submit: %v", app.ID, err)
		return app, nil
	}
	switch app.Status {
	case model.ApplicationApproved:
		s.notifier.Application(ctx, detail, notify.KindApproved)
		s.scheduleReminders(ctx, detail)
	case model.ApplicationWaitlisted:
		s.notifier.Application(ctx, detail, notify.KindWaitlisted)
	default:
		s.notifier.Application(ctx, detail, notify.KindReceived)
	}
	return app, nil
}

// SetStatus moves an application to approved, waitlisted or declined.
// Entering approved re-checks capacity under the shift lock and fails
// with ErrShiftFull when the shift is full.  Leaving approved frees a
// slot and promotes the earliest-waitlisted applications until capacity
// is reached again, all in the same transaction.
func (s *WorkflowService) SetStatus(ctx context.Context, applicationID uint64, status string) (repository.Detail, error) {
	switch status {
	case model.ApplicationApproved, model.ApplicationWaitlisted, model.ApplicationDeclined:
	default:
		return repository.Detail{}, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	detail, promoted, err := s.transition(ctx, applicationID, status)
	if err != nil {
		return detail, err
	}
	s.afterTransition(ctx, detail, status, promoted)
	return detail, nil
}

// Cancel withdraws a volunteer's own application.  A freed approved
// slot promotes from the waitlist exactly as a decline does.
func (s *WorkflowService) Cancel(ctx context.Context, userID, applicationID uint64) error {
	d, err := s.apps.GetDetail(ctx, applicationID)
	if err != nil {
		return err
	}
	if d.UserID != userID {
		return repository.ErrForbidden
	}
	if d.Status == model.ApplicationCancelled {
		return nil
	}
	detail, promoted, err := s.transition(ctx, applicationID, model.ApplicationCancelled)
	if err != nil {
		return err
	}
	s.afterTransition(ctx, detail, model.ApplicationCancelled, promoted)
	return nil
}

// CancelOpenApplications cancels every pending, approved or waitlisted
// application of an event and notifies each owner.  Called when an
// event is closed or cancelled; no promotion happens since the whole
// event is going away.
func (s *WorkflowService) CancelOpenApplications(ctx context.Context, eventID uint64) error {
	ids, err := s.apps.ListOpenIDsByEvent(ctx, eventID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		err = s.apps.UpdateStatusTx(ctx, tx, id, model.ApplicationCancelled)
		if err == nil {
			err = tx.Commit()
		} else {
			_ = tx.Rollback()
		}
		if err != nil {
			return err
		}
		if err := s.reminders.CancelPending(ctx, id); err != nil {
			log.Printf("workflow: cancel reminders for %d: %v", id, err)
		}
		if d, err := s.apps.GetDetail(ctx, id); err == nil {
			s.notifier.Application(ctx, d, notify.KindEventCancelled)
		}
	}
	return nil
}

// transition performs the transactional part of a status change and
// returns the pre-transition detail plus any promoted application IDs.
func (s *WorkflowService) transition(ctx context.Context, applicationID uint64, status string) (repository.Detail, []uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.Detail{}, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	d, err := s.apps.GetDetailTx(ctx, tx, applicationID)
	if err != nil {
		return d, nil, err
	}
	if d.Status == status {
		return d, nil, tx.Commit()
	}

	entering := status == model.ApplicationApproved
	leaving := d.Status == model.ApplicationApproved

	var shift model.Shift
	if entering || leaving {
		shift, err = s.shifts.GetForUpdateTx(ctx, tx, d.ShiftID)
		if err != nil {
			return d, nil, err
		}
	}

	if entering {
		n, err := s.apps.ApprovedCountTx(ctx, tx, d.ShiftID)
		if err != nil {
			return d, nil, err
		}
		if n >= shift.Capacity {
			return d, nil, ErrShiftFull
		}
	}

	if err := s.apps.UpdateStatusTx(ctx, tx, applicationID, status); err != nil {
		return d, nil, err
	}

	var promoted []uint64
	if leaving {
		promoted, err = s.promoteTx(ctx, tx, shift)
		if err != nil {
			return d, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return d, nil, err
	}
	return d, promoted, nil
}

// promoteTx fills freed capacity from the waitlist in applied_at order.
// The caller must hold the shift row lock.
func (s *WorkflowService) promoteTx(ctx context.Context, tx *sql.Tx, shift model.Shift) ([]uint64, error) {
	var promoted []uint64
	n, err := s.apps.ApprovedCountTx(ctx, tx, shift.ID)
	if err != nil {
		return nil, err
	}
	for n < shift.Capacity {
		id, err := s.apps.EarliestWaitlistedTx(ctx, tx, shift.ID)
		if err == sql.ErrNoRows {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := s.apps.UpdateStatusTx(ctx, tx, id, model.ApplicationApproved); err != nil {
			return nil, err
		}
		promoted = append(promoted, id)
		n++
	}
	return promoted, nil
}

// afterTransition runs the post-commit side effects of a status change:
// the owner's notification, reminder bookkeeping and promotion
// notifications.
func (s *WorkflowService) afterTransition(ctx context.Context, d repository.Detail, status string, promoted []uint64) {
	if d.Status == status {
		return // no-op transition, nothing changed
	}

	s.logEvent(ctx, d.UserID, repository.AnalyticsStatusChanged, map[string]any{
		"application_id": d.ID,
		"from":           d.Status,
		"to":             status,
	})

	// d carries the pre-transition status; patch it so templates see
	// the new state.
	d.Status = status
	switch status {
	case model.ApplicationApproved:
		s.notifier.Application(ctx, d, notify.KindApproved)
		s.scheduleReminders(ctx, d)
	case model.ApplicationWaitlisted:
		s.notifier.Application(ctx, d, notify.KindWaitlisted)
		s.cancelReminders(ctx, d.ID)
	case model.ApplicationDeclined:
		s.notifier.Application(ctx, d, notify.KindDeclined)
		s.cancelReminders(ctx, d.ID)
	case model.ApplicationCancelled:
		s.cancelReminders(ctx, d.ID)
	}

	for _, id := range promoted {
		pd, err := s.apps.GetDetail(ctx, id)
		if err != nil {
			log.Printf("workflow: load promoted application %d: %v", id, err)
			continue
		}
		s.notifier.Application(ctx, pd, notify.KindApproved)
		s.scheduleReminders(ctx, pd)
		s.logEvent(ctx, pd.UserID, repository.AnalyticsStatusChanged, map[string]any{
			"application_id": pd.ID,
			"from":           model.ApplicationWaitlisted,
			"to":             model.ApplicationApproved,
			"promoted":       true,
		})
	}
}

func (s *WorkflowService) scheduleReminders(ctx context.Context, d repository.Detail) {
	rems := []model.Reminder{
		{Kind: model.Reminder24h, FireAt: d.ShiftStart.Add(-24 * time.Hour)},
		{Kind: model.Reminder2h, FireAt: d.ShiftStart.Add(-2 * time.Hour)},
		{Kind: model.ReminderCheckout, FireAt: d.ShiftEnd.Add(15 * time.Minute)},
	}
	if err := s.reminders.Schedule(ctx, d.ID, rems); err != nil {
		log.Printf("workflow: schedule reminders for %d: %v", d.ID, err)
	}
}

func (s *WorkflowService) cancelReminders(ctx context.Context, applicationID uint64) {
	if err := s.reminders.CancelPending(ctx, applicationID); err != nil {
		log.Printf("workflow: cancel reminders for %d: %v", applicationID, err)
	}
}

func (s *WorkflowService) logEvent(ctx context.Context, userID uint64, eventType string, payload map[string]any) {
	if s.analytics == nil {
		return
	}
	if err := s.analytics.Log(ctx, &userID, eventType, payload); err != nil {
		log.Printf("workflow: analytics log failed: %v", err)
	}
}

// hasRequiredSkills reports whether the volunteer's skills cover the
// role's required skills.  Both are nullable JSON string arrays;
// matching is case-insensitive.
func hasRequiredSkills(required, have *string) bool {
	if required == nil || *required == "" {
		return true
	}
	var req []string
	if err := json.Unmarshal([]byte(*required), &req); err != nil || len(req) == 0 {
		return true
	}
	var own []string
	if have != nil && *have != "" {
		if err := json.Unmarshal([]byte(*have), &own); err != nil {
			own = nil
		}
	}
	set := make(map[string]struct{}, len(own))
	for _, s := range own {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	for _, r := range req {
		if _, ok := set[strings.ToLower(strings.TrimSpace(r))]; !ok {
			return false
		}
	}
	return true
}
