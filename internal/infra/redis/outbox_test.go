package redis

import (
	"context"
	"encoding/json"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"applicant-assessment-service/internal/delivery"
)

func TestOutboxNotifierAppendsToStream(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	notifier := NewOutboxNotifier(client, "", 100)

	msg := delivery.Message{
		To:       "jbrown@generatorsource.com",
		Role:     delivery.RoleManager,
		RecordID: "rec-1",
		Subject:  "Test Results: Ada - Austin, TX - 80%",
		Text:     "plain",
		HTML:     "<p>html</p>",
		Attachments: []delivery.Attachment{{
			Filename:    "certificate.txt",
			ContentType: "text/plain",
			Data:        []byte("certified"),
		}},
	}
	if err := notifier.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	entries, err := client.XRange(context.Background(), DefaultOutboxStream, "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	values := entries[0].Values
	if values["to"] != msg.To || values["record"] != "rec-1" || values["role"] != string(delivery.RoleManager) {
		t.Fatalf("unexpected entry: %+v", values)
	}

	var attachments []outboxAttachment
	if err := json.Unmarshal([]byte(values["attachments"].(string)), &attachments); err != nil {
		t.Fatalf("decode attachments: %v", err)
	}
	if len(attachments) != 1 || string(attachments[0].Data) != "certified" {
		t.Fatalf("unexpected attachments: %+v", attachments)
	}
}
