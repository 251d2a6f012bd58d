package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Check-in tokens are short self-describing strings carried in QR codes
// and bot deep links:
//
//	CHECKIN:<applicationID>:<shiftID>:<issuedUnixMs>:<sig8>
//
// sig8 is the first 8 hex characters of an HMAC-SHA256 over the first
// four fields.  Tokens expire 24 hours after issue.

const checkinTokenTTL = 24 * time.Hour

var (
	ErrTokenMalformed = errors.New("check-in token malformed")
	ErrTokenBadSig    = errors.New("check-in token signature mismatch")
	ErrTokenExpired   = errors.New("check-in token expired")
)

// CheckinClaims are the fields recovered from a valid check-in token.
type CheckinClaims struct {
	ApplicationID uint64
	ShiftID       uint64
	IssuedAt      time.Time
}

func checkinSig(secret string, appID, shiftID uint64, issuedMs int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "CHECKIN:%d:%d:%d", appID, shiftID, issuedMs)
	return hex.EncodeToString(mac.Sum(nil))[:8]
}

// NewCheckinToken issues a signed token for an application's shift.
func NewCheckinToken(secret string, appID, shiftID uint64) string {
	ms := time.Now().UnixMilli()
	return fmt.Sprintf("CHECKIN:%d:%d:%d:%s", appID, shiftID, ms, checkinSig(secret, appID, shiftID, ms))
}

// ParseCheckinToken validates the signature and expiry and returns the
// claims.  The signature is checked before expiry so a forged token is
// never reported as merely expired.
func ParseCheckinToken(secret, token string) (CheckinClaims, error) {
	var claims CheckinClaims
	parts := strings.Split(token, ":")
	if len(parts) != 5 || parts[0] != "CHECKIN" {
		return claims, ErrTokenMalformed
	}
	appID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return claims, ErrTokenMalformed
	}
	shiftID, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return claims, ErrTokenMalformed
	}
	ms, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return claims, ErrTokenMalformed
	}
	want := checkinSig(secret, appID, shiftID, ms)
	if !hmac.Equal([]byte(want), []byte(parts[4])) {
		return claims, ErrTokenBadSig
	}
	issued := time.UnixMilli(ms)
	if time.Since(issued) > checkinTokenTTL {
		return claims, ErrTokenExpired
	}
	claims.ApplicationID = appID
	claims.ShiftID = shiftID
	claims.IssuedAt = issued
	return claims, nil
}
