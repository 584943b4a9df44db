package format

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chattrace/chattrace/internal/model"
)

// telegramJSON describes the Telegram Desktop "result.json" export.
// Members are not enumerable up front; the importer derives them from
// message senders.
func telegramJSON() *Descriptor {
	return &Descriptor{
		ID:         "telegram-json",
		Platform:   "telegram",
		Priority:   10,
		Extensions: []string{".json"},
		Signature: Signature{
			RequiredFields: []string{`"messages"`, `"date_unixtime"`},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`"type"\s*:\s*"(personal_chat|saved_messages|private_group|private_supergroup|public_supergroup|public_channel|bot_chat)"`),
			},
		},
		Parse: parseTelegram,
	}
}

type tgMessage struct {
	Type      string          `json:"type"`
	DateUnix  string          `json:"date_unixtime"`
	Date      string          `json:"date"`
	From      string          `json:"from"`
	FromID    string          `json:"from_id"`
	Actor     string          `json:"actor"`
	ActorID   string          `json:"actor_id"`
	Text      json.RawMessage `json:"text"`
	Photo     string          `json:"photo"`
	File      string          `json:"file"`
	MediaType string          `json:"media_type"`
	MimeType  string          `json:"mime_type"`
}

func parseTelegram(ctx context.Context, path string, opts Options, emit EmitFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	total := info.Size()

	cr := &countingReader{r: f}
	dec := json.NewDecoder(cr)
	s := NewStream(emit, opts.BatchSize)

	if err := expectDelim(dec, '{'); err != nil {
		return fmt.Errorf("telegram export: %w", err)
	}

	var (
		chatName    string
		chatType    string
		sawMessages bool
	)

	for dec.More() {
		key, err := decodeKey(dec)
		if err != nil {
			return fmt.Errorf("telegram export: %w", err)
		}

		switch key {
		case "name":
			if err := dec.Decode(&chatName); err != nil {
				return fmt.Errorf("telegram export: name: %w", err)
			}
		case "type":
			if err := dec.Decode(&chatType); err != nil {
				return fmt.Errorf("telegram export: type: %w", err)
			}
		case "messages":
			sawMessages = true
			if err := s.Meta(Meta{
				Name:     chatName,
				Platform: "telegram",
				ChatKind: telegramChatKind(chatType),
			}); err != nil {
				return err
			}
			if err := parseTelegramMessages(ctx, dec, s, cr, total); err != nil {
				return err
			}
		default:
			// skip values we do not model (id, etc.)
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return fmt.Errorf("telegram export: %s: %w", key, err)
			}
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return fmt.Errorf("telegram export: truncated: %w", err)
	}
	if !sawMessages {
		return fmt.Errorf("telegram export: missing messages array")
	}
	if err := s.Progress(cr.n, total); err != nil {
		return err
	}
	return s.Close()
}

func parseTelegramMessages(ctx context.Context, dec *json.Decoder, s *Stream, cr *countingReader, total int64) error {
	if err := expectDelim(dec, '['); err != nil {
		return fmt.Errorf("telegram export: messages: %w", err)
	}

	const progressEvery = 5000
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var m tgMessage
		if err := dec.Decode(&m); err != nil {
			return fmt.Errorf("telegram export: message %d: %w", s.Messages()+1, err)
		}

		raw, ok := telegramToRaw(&m)
		if !ok {
			continue
		}
		if err := s.Message(raw); err != nil {
			return err
		}
		if s.Messages()%progressEvery == 0 {
			if err := s.Progress(cr.n, total); err != nil {
				return err
			}
		}
	}
	if err := expectDelim(dec, ']'); err != nil {
		return fmt.Errorf("telegram export: messages: truncated: %w", err)
	}
	return nil
}

func telegramToRaw(m *tgMessage) (RawMessage, bool) {
	ts := telegramTS(m)
	if ts == 0 {
		return RawMessage{}, false
	}

	if m.Type == "service" {
		return RawMessage{
			SenderID:   "telegram:service",
			SenderName: model.SystemSenderName,
			TS:         ts,
			Type:       model.TypeSystem,
			Content:    m.Actor,
		}, true
	}
	if m.Type != "message" {
		return RawMessage{}, false
	}

	senderID := m.FromID
	if senderID == "" {
		return RawMessage{}, false
	}

	return RawMessage{
		SenderID:   senderID,
		SenderName: m.From,
		TS:         ts,
		Type:       telegramType(m),
		Content:    flattenTelegramText(m.Text),
	}, true
}

func telegramTS(m *tgMessage) int64 {
	if m.DateUnix != "" {
		if v, err := strconv.ParseInt(m.DateUnix, 10, 64); err == nil {
			return v
		}
	}
	if m.Date != "" {
		if t, err := time.ParseInLocation("2006-01-02T15:04:05", m.Date, time.Local); err == nil {
			return t.Unix()
		}
	}
	return 0
}

func telegramType(m *tgMessage) model.MessageType {
	if m.Photo != "" {
		return model.TypeImage
	}
	switch m.MediaType {
	case "sticker":
		return model.TypeEmoji
	case "voice_message":
		return model.TypeVoice
	case "video_message", "video_file", "animation":
		return model.TypeVideo
	case "audio_file":
		return model.TypeFile
	}
	if m.File != "" {
		switch {
		case strings.HasPrefix(m.MimeType, "image/"):
			return model.TypeImage
		case strings.HasPrefix(m.MimeType, "video/"):
			return model.TypeVideo
		default:
			return model.TypeFile
		}
	}
	return model.TypeText
}

// flattenTelegramText handles both plain strings and entity arrays.
func flattenTelegramText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		var str string
		if err := json.Unmarshal(p, &str); err == nil {
			b.WriteString(str)
			continue
		}
		var ent struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(p, &ent); err == nil {
			b.WriteString(ent.Text)
		}
	}
	return b.String()
}

func telegramChatKind(chatType string) model.ChatKind {
	switch chatType {
	case "personal_chat", "saved_messages", "bot_chat":
		return model.ChatDirect
	default:
		return model.ChatGroup
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func decodeKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

// countingReader tracks bytes consumed from the underlying file so
// parsers can report byte-level progress.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
