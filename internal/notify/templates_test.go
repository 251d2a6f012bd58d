package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gulldan/volunteerhub/internal/repository"
)

func sampleDetail() repository.Detail {
	start := time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC)
	return repository.Detail{
		EventTitle: "River Cleanup",
		RoleTitle:  "Crew lead",
		ShiftStart: start,
		ShiftEnd:   start.Add(4 * time.Hour),
	}
}

func TestMessageForIncludesEventAndRole(t *testing.T) {
	d := sampleDetail()
	for _, kind := range []string{
		KindApproved, KindWaitlisted, KindDeclined, KindReceived,
		KindReminder24h, KindReminder2h, KindHoursVerified,
	} {
		msg := MessageFor(kind, d)
		assert.Contains(t, msg, "River Cleanup", kind)
		assert.Contains(t, msg, "Crew lead", kind)
	}
}

func TestMessageForRemindersCarryShiftWindow(t *testing.T) {
	d := sampleDetail()
	assert.Contains(t, MessageFor(KindReminder24h, d), "Sat, 12 Sep 09:00 - 13:00")
	assert.Contains(t, MessageFor(KindReminder2h, d), "in about 2 hours")
}

func TestMessageForUnknownKindStillRendersSomething(t *testing.T) {
	msg := MessageFor("brand_new_kind", sampleDetail())
	assert.Contains(t, msg, "River Cleanup")
	assert.NotEmpty(t, msg)
}
