// Package store keeps short-lived check-in state in Redis.
//
// Geofenced shifts need two messages from the bot flow: the deep-link
// tap (which identifies the application) and the shared location.  The
// gap between them is bridged by a TTL key so a dropped conversation
// cleans itself up.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingTTL = 10 * time.Minute

var ErrNoPendingCheckin = errors.New("no pending check-in")

// PendingCheckinStore holds application IDs awaiting a location share,
// keyed by Telegram chat.
type PendingCheckinStore struct {
	rdb *redis.Client
}

func NewPendingCheckinStore(rdb *redis.Client) *PendingCheckinStore {
	return &PendingCheckinStore{rdb: rdb}
}

// Enabled reports whether a Redis connection is available.
func (s *PendingCheckinStore) Enabled() bool { return s != nil && s.rdb != nil }

func pendingKey(chatID int64) string {
	return fmt.Sprintf("checkin:pending:%d", chatID)
}

// Put records that chatID's next location share belongs to the given
// application and shift.
func (s *PendingCheckinStore) Put(ctx context.Context, chatID int64, applicationID, shiftID uint64) error {
	if !s.Enabled() {
		return errors.New("pending store unavailable")
	}
	val := fmt.Sprintf("%d:%d", applicationID, shiftID)
	return s.rdb.Set(ctx, pendingKey(chatID), val, pendingTTL).Err()
}

// Take atomically fetches and deletes the pending check-in for a chat.
func (s *PendingCheckinStore) Take(ctx context.Context, chatID int64) (applicationID, shiftID uint64, err error) {
	if !s.Enabled() {
		return 0, 0, ErrNoPendingCheckin
	}
	val, err := s.rdb.GetDel(ctx, pendingKey(chatID)).Result()
	if err == redis.Nil {
		return 0, 0, ErrNoPendingCheckin
	}
	if err != nil {
		return 0, 0, err
	}
	parts := strings.SplitN(val, ":", 2)
	if len(parts) != 2 {
		return 0, 0, ErrNoPendingCheckin
	}
	applicationID, err = strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, ErrNoPendingCheckin
	}
	shiftID, err = strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, 0, ErrNoPendingCheckin
	}
	return applicationID, shiftID, nil
}
