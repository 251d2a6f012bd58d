// Package scheduler runs the periodic batch job: due reminders,
// auto-checkout for volunteers who forgot, and no-show marking.  All
// due-times live in the database, so a restart picks up exactly where
// the previous process stopped.
package scheduler

import (
	"context"
	"database/sql"
	"log"
	"math"
	"time"

	"github.com/gulldan/volunteerhub/internal/model"
	"github.com/gulldan/volunteerhub/internal/notify"
	"github.com/gulldan/volunteerhub/internal/repository"
)

// Auto-checkout kicks in this long after the scheduled shift end.
const autoCheckoutGrace = time.Hour

// ReminderSource lists and stamps due reminders.
type ReminderSource interface {
	ListDue(ctx context.Context, now time.Time) ([]repository.DueReminder, error)
	MarkSent(ctx context.Context, id uint64) error
}

// AttendanceSource serves the auto-checkout and no-show sweeps.
type AttendanceSource interface {
	ListOverdueCheckins(ctx context.Context, endedBefore time.Time) ([]repository.OverdueCheckin, error)
	CheckoutTx(ctx context.Context, tx *sql.Tx, applicationID uint64, hours float64) error
	MarkNoShow(ctx context.Context, before time.Time) (int64, error)
}

// DetailSource loads application context for notifications.
type DetailSource interface {
	GetDetail(ctx context.Context, id uint64) (repository.Detail, error)
}

type Notifier interface {
	Application(ctx context.Context, d repository.Detail, kind string) bool
}

type AnalyticsLogger interface {
	Log(ctx context.Context, userID *uint64, eventType string, payload map[string]any) error
}

// Job is the batch worker.  Run drives it on an interval; RunOnce is a
// single sweep, exposed for tests.
type Job struct {
	db         *sql.DB
	reminders  ReminderSource
	attendance AttendanceSource
	apps       DetailSource
	notifier   Notifier
	analytics  AnalyticsLogger
	interval   time.Duration
	now        func() time.Time
}

func New(db *sql.DB, reminders ReminderSource, attendance AttendanceSource, apps DetailSource,
	notifier Notifier, analytics AnalyticsLogger, interval time.Duration) *Job {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Job{
		db: db, reminders: reminders, attendance: attendance, apps: apps,
		notifier: notifier, analytics: analytics, interval: interval, now: time.Now,
	}
}

// Run sweeps immediately and then on every tick until the context is
// cancelled.
func (j *Job) Run(ctx context.Context) {
	log.Printf("scheduler: running every %s", j.interval)
	j.RunOnce(ctx)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("scheduler: stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs one sweep: send due reminders, auto-checkout overdue
// check-ins, mark no-shows.  Each stage logs and continues on error so
// one bad row cannot stall the rest.
func (j *Job) RunOnce(ctx context.Context) {
	now := j.now()
	j.sendDueReminders(ctx, now)
	j.autoCheckout(ctx, now)
	if n, err := j.attendance.MarkNoShow(ctx, now.Add(-autoCheckoutGrace)); err != nil {
		log.Printf("scheduler: mark no-shows: %v", err)
	} else if n > 0 {
		log.Printf("scheduler: marked %d no-shows", n)
	}
}

func (j *Job) sendDueReminders(ctx context.Context, now time.Time) {
	due, err := j.reminders.ListDue(ctx, now)
	if err != nil {
		log.Printf("scheduler: list due reminders: %v", err)
		return
	}
	for _, rem := range due {
		d, err := j.apps.GetDetail(ctx, rem.ApplicationID)
		if err != nil {
			log.Printf("scheduler: reminder %d: load application %d: %v", rem.ID, rem.ApplicationID, err)
			continue
		}
		var kind string
		switch rem.Kind {
		case model.Reminder24h:
			kind = notify.KindReminder24h
		case model.Reminder2h:
			kind = notify.KindReminder2h
		case model.ReminderCheckout:
			kind = notify.KindCheckoutPrompt
		default:
			log.Printf("scheduler: reminder %d has unknown kind %q", rem.ID, rem.Kind)
			_ = j.reminders.MarkSent(ctx, rem.ID)
			continue
		}
		j.notifier.Application(ctx, d, kind)
		if err := j.reminders.MarkSent(ctx, rem.ID); err != nil {
			log.Printf("scheduler: mark reminder %d sent: %v", rem.ID, err)
		}
	}
	if len(due) > 0 {
		log.Printf("scheduler: processed %d reminders", len(due))
	}
}

// autoCheckout closes out volunteers still checked in an hour after
// their shift ended, crediting the scheduled window rather than the
// open-ended wall clock.
func (j *Job) autoCheckout(ctx context.Context, now time.Time) {
	overdue, err := j.attendance.ListOverdueCheckins(ctx, now.Add(-autoCheckoutGrace))
	if err != nil {
		log.Printf("scheduler: list overdue check-ins: %v", err)
		return
	}
	for _, oc := range overdue {
		hours := scheduledHours(oc.ShiftStart, oc.ShiftEnd)
		tx, err := j.db.BeginTx(ctx, nil)
		if err != nil {
			log.Printf("scheduler: begin auto-checkout tx: %v", err)
			return
		}
		err = j.attendance.CheckoutTx(ctx, tx, oc.ApplicationID, hours)
		if err == nil {
			err = tx.Commit()
		} else {
			_ = tx.Rollback()
		}
		if err != nil {
			log.Printf("scheduler: auto-checkout application %d: %v", oc.ApplicationID, err)
			continue
		}

		uid := oc.UserID
		if j.analytics != nil {
			_ = j.analytics.Log(ctx, &uid, repository.AnalyticsAutoCheckout, map[string]any{
				"application_id": oc.ApplicationID,
				"hours":          hours,
			})
		}
		if d, err := j.apps.GetDetail(ctx, oc.ApplicationID); err == nil {
			j.notifier.Application(ctx, d, notify.KindShiftDone)
		}
	}
	if len(overdue) > 0 {
		log.Printf("scheduler: auto-checked-out %d attendances", len(overdue))
	}
}

func scheduledHours(start, end time.Time) float64 {
	h := end.Sub(start).Hours()
	if h < 0 {
		return 0
	}
	return math.Round(h*100) / 100
}
