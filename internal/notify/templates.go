// Package notify builds user-facing notification texts and dispatches
// them, preferring the RabbitMQ queue and falling back to a direct
// Bot API send when the broker is down.
package notify

import (
	"fmt"
	"time"

	"github.com/gulldan/volunteerhub/internal/repository"
)

// Notification kinds.  Stored in analytics payloads and carried on the
// queue, so the strings are part of the wire format.
const (
	KindApproved       = "application_approved"
	KindWaitlisted     = "application_waitlisted"
	KindDeclined       = "application_declined"
	KindReceived       = "application_received"
	KindReminder24h    = "reminder_24h"
	KindReminder2h     = "reminder_2h"
	KindCheckoutPrompt = "checkout_prompt"
	KindCheckinOK      = "checkin_success"
	KindShiftDone      = "shift_completed"
	KindHoursVerified  = "hours_verified"
	KindEventCancelled = "event_cancelled"
)

func shiftWindow(d repository.Detail) string {
	return fmt.Sprintf("%s - %s",
		d.ShiftStart.Format("Mon, 2 Jan 15:04"),
		d.ShiftEnd.Format("15:04"))
}

// MessageFor renders the text for a notification kind from application
// context.  Unknown kinds render a generic update so a new kind can
// never silence a notification entirely.
func MessageFor(kind string, d repository.Detail) string {
	switch kind {
	case KindApproved:
		return fmt.Sprintf("You're confirmed for \"%s\" as %s.\nShift: %s.\nSee you there!",
			d.EventTitle, d.RoleTitle, shiftWindow(d))
	case KindWaitlisted:
		return fmt.Sprintf("You're on the waitlist for \"%s\" (%s).\nWe'll notify you the moment a spot opens up.",
			d.EventTitle, d.RoleTitle)
	case KindDeclined:
		return fmt.Sprintf("Unfortunately your application for \"%s\" (%s) was declined.\nBrowse other events - we'd love to see you elsewhere.",
			d.EventTitle, d.RoleTitle)
	case KindReceived:
		return fmt.Sprintf("We received your application for \"%s\" (%s).\nThe organizer will review it shortly.",
			d.EventTitle, d.RoleTitle)
	case KindReminder24h:
		return fmt.Sprintf("Reminder: your shift at \"%s\" (%s) starts tomorrow.\nShift: %s.",
			d.EventTitle, d.RoleTitle, shiftWindow(d))
	case KindReminder2h:
		return fmt.Sprintf("Your shift at \"%s\" (%s) starts in about 2 hours.\nShift: %s.",
			d.EventTitle, d.RoleTitle, shiftWindow(d))
	case KindCheckoutPrompt:
		return fmt.Sprintf("Your shift at \"%s\" has ended. Don't forget to check out so your hours get recorded.",
			d.EventTitle)
	case KindCheckinOK:
		return fmt.Sprintf("Checked in to \"%s\" (%s) at %s. Have a great shift!",
			d.EventTitle, d.RoleTitle, time.Now().Format("15:04"))
	case KindShiftDone:
		return fmt.Sprintf("Thanks for volunteering at \"%s\"! Your hours were recorded and await verification.",
			d.EventTitle)
	case KindHoursVerified:
		return fmt.Sprintf("Your hours for \"%s\" (%s) were verified and added to your total.",
			d.EventTitle, d.RoleTitle)
	case KindEventCancelled:
		return fmt.Sprintf("\"%s\" was cancelled by the organizer. Your application is no longer active.",
			d.EventTitle)
	}
	return fmt.Sprintf("Update on your application for \"%s\".", d.EventTitle)
}
