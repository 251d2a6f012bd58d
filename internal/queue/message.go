// Package queue carries Telegram notifications through RabbitMQ so the
// request path never blocks on the Bot API.  The publisher enqueues,
// the consumer drains and delivers.
package queue

// TelegramMessage is the payload carried on the notify.telegram queue.
type TelegramMessage struct {
	ChatID        int64  `json:"chat_id"`
	Text          string `json:"text"`
	Kind          string `json:"kind"`
	ApplicationID uint64 `json:"application_id,omitempty"`
	QueuedAt      string `json:"queued_at"`
}
