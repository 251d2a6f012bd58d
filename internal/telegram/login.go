package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Login widget auth ages older than this are rejected to limit replay.
const loginMaxAge = 24 * time.Hour

var ErrLoginInvalid = errors.New("telegram login data invalid")

// LoginData is the payload posted by the Telegram login widget.
type LoginData struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
	AuthDate  int64  `json:"auth_date"`
	Hash      string `json:"hash"`
}

// VerifyLogin checks the widget's HMAC per the Telegram spec: the
// data-check string is every non-empty field except hash, sorted,
// joined with newlines, signed with SHA256(botToken) as the key.
func VerifyLogin(botToken string, d LoginData) error {
	if d.Hash == "" || d.ID == 0 {
		return ErrLoginInvalid
	}
	fields := map[string]string{
		"id":        fmt.Sprintf("%d", d.ID),
		"auth_date": fmt.Sprintf("%d", d.AuthDate),
	}
	if d.FirstName != "" {
		fields["first_name"] = d.FirstName
	}
	if d.LastName != "" {
		fields["last_name"] = d.LastName
	}
	if d.Username != "" {
		fields["username"] = d.Username
	}
	if d.PhotoURL != "" {
		fields["photo_url"] = d.PhotoURL
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}
	check := strings.Join(pairs, "\n")

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(check))
	want := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(want), []byte(d.Hash)) {
		return ErrLoginInvalid
	}
	if time.Since(time.Unix(d.AuthDate, 0)) > loginMaxAge {
		return ErrLoginInvalid
	}
	return nil
}
