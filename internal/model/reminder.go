package model

import "time"

// Reminder kinds.  24h and 2h fire before shift start; checkout fires
// shortly after shift end to prompt volunteers who forgot to check out.
const (
	Reminder24h      = "24h"
	Reminder2h       = "2h"
	ReminderCheckout = "checkout"
)

// Reminder is a durable due-time row processed by the batch job.  Rows
// survive process restarts, unlike in-process timers.  SentAt is stamped
// once the notification has been handed to the dispatcher.
type Reminder struct {
	ID            uint64     `json:"id"`             // reminders.id
	ApplicationID uint64     `json:"application_id"` // reminders.application_id
	Kind          string     `json:"kind"`           // reminders.kind
	FireAt        time.Time  `json:"fire_at"`        // reminders.fire_at
	SentAt        *time.Time `json:"sent_at"`        // reminders.sent_at (nullable)
}
