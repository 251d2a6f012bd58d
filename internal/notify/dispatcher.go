package notify

import (
	"context"
	"log"

	"github.com/gulldan/volunteerhub/internal/queue"
	"github.com/gulldan/volunteerhub/internal/repository"
)

// Sender is the direct-send fallback, satisfied by telegram.Client.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	Enabled() bool
}

// Dispatcher routes notifications to volunteers over Telegram.  Every
// attempt, delivered or skipped, is recorded in the analytics log.
type Dispatcher struct {
	Direct    Sender
	Analytics *repository.AnalyticsRepo
	// QueueDisabled forces direct sends, used when no broker is
	// configured.
	QueueDisabled bool
}

func NewDispatcher(direct Sender, analytics *repository.AnalyticsRepo, queueDisabled bool) *Dispatcher {
	return &Dispatcher{Direct: direct, Analytics: analytics, QueueDisabled: queueDisabled}
}

// Application sends a notification about an application to its owner.
// Returns true when the message was queued or delivered, false when the
// user is unreachable or has notifications off.  Failures never
// propagate to the caller: a broken broker or bot must not break the
// workflow that triggered the notification.
func (t *Dispatcher) Application(ctx context.Context, d repository.Detail, kind string) bool {
	if !d.NotificationsTelegram || d.TelegramUserID == nil {
		t.record(ctx, d, kind, "skipped")
		return false
	}
	text := MessageFor(kind, d)
	msg := queue.TelegramMessage{
		ChatID:        *d.TelegramUserID,
		Text:          text,
		Kind:          kind,
		ApplicationID: d.ID,
	}
	if !t.QueueDisabled {
		if err := queue.PublishTelegram(ctx, msg); err == nil {
			t.record(ctx, d, kind, "queued")
			return true
		}
		// Broker down; fall through to a direct send.
	}
	if t.Direct != nil && t.Direct.Enabled() {
		if err := t.Direct.SendMessage(ctx, *d.TelegramUserID, text); err != nil {
			log.Printf("notify: direct send %s to user %d failed: %v", kind, d.UserID, err)
			t.record(ctx, d, kind, "failed")
			return false
		}
		t.record(ctx, d, kind, "sent")
		return true
	}
	t.record(ctx, d, kind, "failed")
	return false
}

func (t *Dispatcher) record(ctx context.Context, d repository.Detail, kind, outcome string) {
	if t.Analytics == nil {
		return
	}
	uid := d.UserID
	err := t.Analytics.Log(ctx, &uid, repository.AnalyticsNotificationSent, map[string]any{
		"application_id": d.ID,
		"kind":           kind,
		"outcome":        outcome,
	})
	if err != nil {
		log.Printf("notify: analytics log failed: %v", err)
	}
}
