// Package telegram talks to the Telegram Bot API and implements the
// check-in token and login-widget signature schemes.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal Bot API client.  Only sendMessage is needed;
// everything else the bot does is driven by deep links and the login
// widget, which never call the API.
type Client struct {
	token   string
	botName string
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given bot token.  An empty token
// yields a disabled client whose sends fail fast, which keeps local
// development working without a bot.
func NewClient(token, botName string) *Client {
	return &Client{
		token:   token,
		botName: botName,
		baseURL: "https://api.telegram.org",
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a bot token is configured.
func (c *Client) Enabled() bool { return c.token != "" }

// SendMessage posts a plain-text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if c.token == "" {
		return errors.New("telegram: bot token not configured")
	}
	form := url.Values{}
	form.Set("chat_id", strconv.FormatInt(chatID, 10))
	form.Set("text", text)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr struct {
		Description string `json:"description"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Description != "" {
		return fmt.Errorf("telegram: sendMessage failed: %s", apiErr.Description)
	}
	return fmt.Errorf("telegram: sendMessage failed with status %d", resp.StatusCode)
}

// DeepLink builds a t.me start link that carries a payload to the bot.
func (c *Client) DeepLink(payload string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", c.botName, url.QueryEscape(payload))
}
