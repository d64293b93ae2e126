package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"applicant-assessment-service/internal/delivery"
)

// DefaultOutboxStream is the stream an external mailer consumes.
const DefaultOutboxStream = "assessment:notifications"

// OutboxNotifier implements delivery.Notifier by appending each rendered message
// to a Redis stream. Attachments are carried as a JSON array.
type OutboxNotifier struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewOutboxNotifier(client *redis.Client, stream string, maxLen int64) *OutboxNotifier {
	if stream == "" {
		stream = DefaultOutboxStream
	}
	return &OutboxNotifier{client: client, stream: stream, maxLen: maxLen}
}

type outboxAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

func (n *OutboxNotifier) Send(ctx context.Context, msg delivery.Message) error {
	attachments := make([]outboxAttachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		attachments = append(attachments, outboxAttachment{Filename: a.Filename, ContentType: a.ContentType, Data: a.Data})
	}
	encoded, err := json.Marshal(attachments)
	if err != nil {
		return fmt.Errorf("encode attachments: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]any{
			"to":          msg.To,
			"role":        string(msg.Role),
			"record":      msg.RecordID,
			"subject":     msg.Subject,
			"text":        msg.Text,
			"html":        msg.HTML,
			"attachments": string(encoded),
		},
	}
	if n.maxLen > 0 {
		args.MaxLen = n.maxLen
		args.Approx = true
	}
	if err := n.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", n.stream, err)
	}
	return nil
}
