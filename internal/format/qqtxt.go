package format

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/chattrace/chattrace/internal/model"
)

// qqTXT describes the plain-text QQ chat export: a banner header, then
// message records of a timestamp/sender line followed by content
// lines, separated by blank lines. Members are derived from senders.
func qqTXT() *Descriptor {
	return &Descriptor{
		ID:         "qq-txt",
		Platform:   "qq",
		Priority:   30,
		Extensions: []string{".txt"},
		Signature: Signature{
			RequiredFields: []string{"消息记录", "消息对象"},
			Patterns: []*regexp.Regexp{
				qqHeaderRe,
			},
		},
		Parse: parseQQTxt,
	}
}

// qqHeaderRe matches "2023-01-02 15:04:05 Nick(10001)" and the
// email-style variant "... Nick<mail@host>".
var qqHeaderRe = regexp.MustCompile(`(?m)^(\d{4}-\d{2}-\d{2} \d{1,2}:\d{2}:\d{2}) (.*)[(<]([^()<>]+)[)>]\s*$`)

var qqSubjectRe = regexp.MustCompile(`消息对象:(.*)`)
var qqGroupRe = regexp.MustCompile(`消息分组:(.*群.*)`)

func parseQQTxt(ctx context.Context, path string, opts Options, emit EmitFunc) error {
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

	var (
		metaSent bool
		name     = baseName(path)
		kind     = model.ChatDirect

		cur        *RawMessage
		curContent []string
	)

	flushCur := func() error {
		if cur == nil {
			return nil
		}
		content := strings.TrimSpace(strings.Join(curContent, "\n"))
		cur.Content = content
		cur.Type = qqContentType(content)
		msg := *cur
		cur, curContent = nil, nil
		return s.Message(msg)
	}

	const progressEvery = 5000
	lineNum := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNum++
		line := scanner.Text()

		if !metaSent {
			if m := qqSubjectRe.FindStringSubmatch(line); m != nil {
				name = strings.TrimSpace(m[1])
				continue
			}
			if qqGroupRe.MatchString(line) {
				kind = model.ChatGroup
				continue
			}
		}

		if m := qqHeaderRe.FindStringSubmatch(line); m != nil {
			if !metaSent {
				metaSent = true
				if err := s.Meta(Meta{Name: name, Platform: "qq", ChatKind: kind}); err != nil {
					return err
				}
			}
			if err := flushCur(); err != nil {
				return err
			}
			t, err := time.ParseInLocation("2006-01-02 15:04:05", m[1], time.Local)
			if err != nil {
				return fmt.Errorf("qq export: line %d: bad timestamp %q", lineNum, m[1])
			}
			cur = &RawMessage{
				SenderID:   strings.TrimSpace(m[3]),
				SenderName: strings.TrimSpace(m[2]),
				TS:         t.Unix(),
			}
			if s.Messages()%progressEvery == 0 {
				if err := s.Progress(cr.n, total); err != nil {
					return err
				}
			}
			continue
		}

		if cur != nil && line != "" {
			curContent = append(curContent, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("qq export: %w", err)
	}
	if err := flushCur(); err != nil {
		return err
	}
	if !metaSent {
		return fmt.Errorf("qq export: no message records found")
	}
	if err := s.Progress(cr.n, total); err != nil {
		return err
	}
	return s.Close()
}

// qqContentType maps the export's bracket placeholders onto the enum.
func qqContentType(content string) model.MessageType {
	switch content {
	case "[图片]":
		return model.TypeImage
	case "[表情]":
		return model.TypeEmoji
	case "[语音]":
		return model.TypeVoice
	case "[视频]":
		return model.TypeVideo
	case "[文件]":
		return model.TypeFile
	}
	return model.TypeText
}
