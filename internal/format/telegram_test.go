package format

import (
	"context"
	"strings"
	"testing"

	"github.com/chattrace/chattrace/internal/model"
)

func TestParseTelegram(t *testing.T) {
	path := writeFixture(t, "result.json", telegramFixture)
	events := collect(t, parseTelegram, path, 100)
	meta, members, messages, done := splitEvents(t, events)

	if meta.Name != "Weekend Plans" {
		t.Errorf("meta.Name = %q, want %q", meta.Name, "Weekend Plans")
	}
	if meta.ChatKind != model.ChatDirect {
		t.Errorf("meta.ChatKind = %q, want direct", meta.ChatKind)
	}
	if len(members) != 0 {
		t.Errorf("got %d roster members, want 0 (telegram derives from senders)", len(members))
	}

	// message 6 has no from_id and is skipped
	if len(messages) != 5 {
		t.Fatalf("got %d messages, want 5", len(messages))
	}
	if done.Messages != 5 {
		t.Errorf("done.Messages = %d, want 5", done.Messages)
	}
	// user100, user200 and the synthetic service sender
	if done.Members != 3 {
		t.Errorf("done.Members = %d, want 3", done.Members)
	}

	first := messages[0]
	if first.SenderID != "user100" || first.SenderName != "Alice" {
		t.Errorf("first sender = %s/%s, want user100/Alice", first.SenderID, first.SenderName)
	}
	if first.TS != 1709283600 {
		t.Errorf("first TS = %d, want 1709283600", first.TS)
	}
	if first.Type != model.TypeText || first.Content != "morning" {
		t.Errorf("first message = %v %q, want text %q", first.Type, first.Content, "morning")
	}

	entity := messages[1]
	if entity.Content != "@Alice see you at noon" {
		t.Errorf("entity text flattened to %q, want %q", entity.Content, "@Alice see you at noon")
	}

	service := messages[2]
	if service.SenderID != "telegram:service" || service.SenderName != model.SystemSenderName {
		t.Errorf("service sender = %s/%s, want telegram:service/%s",
			service.SenderID, service.SenderName, model.SystemSenderName)
	}
	if service.Type != model.TypeSystem {
		t.Errorf("service type = %v, want system", service.Type)
	}

	if messages[3].Type != model.TypeImage {
		t.Errorf("photo type = %v, want image", messages[3].Type)
	}
	if messages[4].Type != model.TypeEmoji {
		t.Errorf("sticker type = %v, want emoji", messages[4].Type)
	}
}

func TestParseTelegramTruncated(t *testing.T) {
	trunc := telegramFixture[:len(telegramFixture)/2]
	path := writeFixture(t, "result.json", trunc)

	err := parseTelegram(context.Background(), path, Options{BatchSize: 100}, func(Event) error { return nil })
	if err == nil {
		t.Fatal("parsing truncated export succeeded, want error")
	}
}

func TestParseTelegramMissingMessages(t *testing.T) {
	path := writeFixture(t, "result.json", `{"name": "x", "type": "personal_chat", "id": 1}`)

	err := parseTelegram(context.Background(), path, Options{BatchSize: 100}, func(Event) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "missing messages") {
		t.Fatalf("err = %v, want missing messages array", err)
	}
}

func TestFlattenTelegramText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain string", `"hello"`, "hello"},
		{"empty", ``, ""},
		{"mixed entities", `["a ", {"type": "link", "text": "b"}, " c"]`, "a b c"},
		{"entity only", `[{"type": "code", "text": "x=1"}]`, "x=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flattenTelegramText([]byte(tt.raw))
			if got != tt.want {
				t.Errorf("flattenTelegramText(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
