package format

import (
	"context"
	"testing"
	"time"

	"github.com/chattrace/chattrace/internal/model"
)

func TestParseQQTxt(t *testing.T) {
	path := writeFixture(t, "export.txt", qqFixture)
	events := collect(t, parseQQTxt, path, 100)
	meta, members, messages, done := splitEvents(t, events)

	if meta.Name != "周末开黑群" {
		t.Errorf("meta.Name = %q, want 周末开黑群", meta.Name)
	}
	if meta.ChatKind != model.ChatGroup {
		t.Errorf("meta.ChatKind = %q, want group", meta.ChatKind)
	}
	if len(members) != 0 {
		t.Errorf("got %d roster members, want 0 (qq derives from senders)", len(members))
	}

	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}
	if done.Messages != 3 || done.Members != 2 {
		t.Errorf("done = %d msgs/%d members, want 3/2", done.Messages, done.Members)
	}

	first := messages[0]
	if first.SenderID != "10001" || first.SenderName != "风清扬" {
		t.Errorf("first sender = %s/%s, want 10001/风清扬", first.SenderID, first.SenderName)
	}
	wantTS := time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local).Unix()
	if first.TS != wantTS {
		t.Errorf("first TS = %d, want %d", first.TS, wantTS)
	}
	if first.Content != "上号吗" {
		t.Errorf("first content = %q, want 上号吗", first.Content)
	}

	multi := messages[1]
	if multi.Content != "来了来了\n等我五分钟" {
		t.Errorf("multiline content = %q, want two joined lines", multi.Content)
	}

	if messages[2].Type != model.TypeImage || messages[2].Content != "[图片]" {
		t.Errorf("placeholder message = %v %q, want image [图片]", messages[2].Type, messages[2].Content)
	}
}

func TestParseQQTxtNoRecords(t *testing.T) {
	path := writeFixture(t, "export.txt", "消息记录\n消息对象:nobody\n\njust prose, no headers\n")

	err := parseQQTxt(context.Background(), path, Options{BatchSize: 100}, func(Event) error { return nil })
	if err == nil {
		t.Fatal("parsing headerless export succeeded, want error")
	}
}

func TestQQHeaderRe(t *testing.T) {
	tests := []struct {
		line   string
		sender string
		id     string
	}{
		{"2024-03-01 9:00:00 风清扬(10001)", "风清扬", "10001"},
		{"2024-03-01 21:15:09 some guy<mail@example.com>", "some guy", "mail@example.com"},
		{"2024-12-31 23:59:59 nested(name)(999)", "nested(name)", "999"},
	}
	for _, tt := range tests {
		m := qqHeaderRe.FindStringSubmatch(tt.line)
		if m == nil {
			t.Errorf("header %q did not match", tt.line)
			continue
		}
		if m[2] != tt.sender || m[3] != tt.id {
			t.Errorf("header %q parsed as %q/%q, want %q/%q", tt.line, m[2], m[3], tt.sender, tt.id)
		}
	}

	if qqHeaderRe.MatchString("not a header at all") {
		t.Error("prose line matched the header pattern")
	}
}
