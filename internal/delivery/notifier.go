package delivery

import (
	"context"
	"log"
)

// Notifier sends one rendered message. Implementations must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier only logs messages. It is the development default.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, msg Message) error {
	log.Printf("notify: to=%s role=%s record=%s subject=%q attachments=%d", msg.To, msg.Role, msg.RecordID, msg.Subject, len(msg.Attachments))
	return nil
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }
