package format

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/chattrace/chattrace/internal/model"
)

const maxLineSize = 10 * 1024 * 1024 // 10MB

// wechatJSONL describes the line-oriented WeChat backup export: one
// JSON record per line. Exports may be gzip-compressed and may carry
// embedded media payload records that dwarf the useful payload, so the
// format declares a preprocessor.
func wechatJSONL() *Descriptor {
	return &Descriptor{
		ID:         "wechat-jsonl",
		Platform:   "wechat",
		Priority:   20,
		Extensions: []string{".jsonl"},
		Signature: Signature{
			RequiredFields: []string{`"talker"`, `"ts"`},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`"kind"\s*:\s*"(meta|roster|msg|media)"`),
			},
		},
		Parse:      parseWeChat,
		Preprocess: preprocessWeChat,
	}
}

// wcRecord is the union of all line kinds. Kind selects which fields
// are meaningful.
type wcRecord struct {
	Kind string `json:"kind"`

	// kind=meta
	Name     string `json:"name"`
	ChatKind string `json:"chatKind"`

	// kind=roster
	RosterMembers []wcMember `json:"members"`

	// kind=msg
	Talker     string `json:"talker"`
	TalkerName string `json:"talkerName"`
	TS         int64  `json:"ts"`
	Type       int    `json:"type"`
	Content    string `json:"content"`
}

type wcMember struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Nick string `json:"nick"`
}

func parseWeChat(ctx context.Context, path string, opts Options, emit EmitFunc) error {
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
	scanner := bufio.NewScanner(cr)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	s := NewStream(emit, opts.BatchSize)

	const progressEvery = 5000
	lineNum := 0
	metaSent := false
	ensureMeta := func() error {
		if metaSent {
			return nil
		}
		metaSent = true
		// exports without a leading meta record still need a session
		// descriptor before the first batch
		return s.Meta(Meta{Name: baseName(path), Platform: "wechat", ChatKind: model.ChatGroup})
	}
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec wcRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("wechat export: line %d: %w", lineNum, err)
		}

		switch rec.Kind {
		case "meta":
			if metaSent {
				return fmt.Errorf("wechat export: line %d: duplicate meta record", lineNum)
			}
			metaSent = true
			if err := s.Meta(Meta{
				Name:     rec.Name,
				Platform: "wechat",
				ChatKind: wechatChatKind(rec.ChatKind),
			}); err != nil {
				return err
			}
		case "roster":
			if err := ensureMeta(); err != nil {
				return err
			}
			members := make([]RawMember, 0, len(rec.RosterMembers))
			for _, m := range rec.RosterMembers {
				if m.ID == "" {
					continue
				}
				members = append(members, RawMember{
					PlatformID:   m.ID,
					Name:         m.Name,
					PlatformNick: m.Nick,
				})
			}
			if err := s.Members(members); err != nil {
				return err
			}
		case "msg":
			if err := ensureMeta(); err != nil {
				return err
			}
			if rec.Talker == "" || rec.TS == 0 {
				return fmt.Errorf("wechat export: line %d: message missing talker or ts", lineNum)
			}
			raw := RawMessage{
				SenderID:   rec.Talker,
				SenderName: rec.TalkerName,
				TS:         rec.TS,
				Type:       wechatType(rec.Type),
				Content:    rec.Content,
			}
			if raw.Type == model.TypeSystem {
				raw.SenderID = "wechat:system"
				raw.SenderName = model.SystemSenderName
			}
			if err := s.Message(raw); err != nil {
				return err
			}
			if s.Messages()%progressEvery == 0 {
				if err := s.Progress(cr.n, total); err != nil {
					return err
				}
			}
		case "media":
			// media payloads carry no message data; the preprocessor
			// normally strips them before we get here
		default:
			return fmt.Errorf("wechat export: line %d: unknown record kind %q", lineNum, rec.Kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("wechat export: %w", err)
	}
	if err := ensureMeta(); err != nil {
		return err
	}
	if err := s.Progress(cr.n, total); err != nil {
		return err
	}
	return s.Close()
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// preprocessWeChat rewrites the export into tmpDir, decompressing gzip
// input and dropping media payload records. The reduced file is what
// the parser then consumes.
func preprocessWeChat(ctx context.Context, src, tmpDir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	var reader io.Reader = in
	head := make([]byte, 2)
	if _, err := io.ReadFull(in, head); err == nil && head[0] == 0x1f && head[1] == 0x8b {
		if _, err := in.Seek(0, io.SeekStart); err != nil {
			return "", err
		}
		zr, err := gzip.NewReader(in)
		if err != nil {
			return "", fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		reader = zr
	} else {
		if _, err := in.Seek(0, io.SeekStart); err != nil {
			return "", err
		}
	}

	out, err := os.CreateTemp(tmpDir, "chattrace-pre-*.jsonl")
	if err != nil {
		return "", err
	}
	w := bufio.NewWriter(out)

	// On any failure below, the half-written temp file is removed here;
	// on success the caller owns it.
	fail := func(err error) (string, error) {
		out.Close()
		os.Remove(out.Name())
		return "", err
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	// Only the kind field matters here; full decoding would defeat the
	// point of the reduction pass.
	kindRe := regexp.MustCompile(`"kind"\s*:\s*"media"`)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		line := scanner.Bytes()
		if len(line) == 0 || kindRe.Match(line) {
			continue
		}
		if _, err := w.Write(line); err != nil {
			return fail(err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail(err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fail(fmt.Errorf("read %s: %w", src, err))
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	if err := out.Close(); err != nil {
		return fail(err)
	}
	return out.Name(), nil
}

func wechatChatKind(kind string) model.ChatKind {
	if kind == "group" || kind == "chatroom" {
		return model.ChatGroup
	}
	return model.ChatDirect
}

// wechatType maps the vendor's numeric message types onto the enum.
func wechatType(t int) model.MessageType {
	switch t {
	case 1:
		return model.TypeText
	case 3:
		return model.TypeImage
	case 34:
		return model.TypeVoice
	case 43, 62:
		return model.TypeVideo
	case 47:
		return model.TypeEmoji
	case 49:
		return model.TypeLink
	case 10000:
		return model.TypeSystem
	default:
		return model.TypeOther
	}
}
