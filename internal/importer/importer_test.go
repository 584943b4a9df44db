package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/chattrace/chattrace/internal/config"
	"github.com/chattrace/chattrace/internal/format"
	"github.com/chattrace/chattrace/internal/model"
	"github.com/chattrace/chattrace/internal/store"
)

const telegramExport = `{
  "name": "Weekend Plans",
  "type": "private_group",
  "id": 777,
  "messages": [
    {"id": 1, "type": "message", "date": "2024-03-01T09:00:00", "date_unixtime": "1709283600", "from": "Alice", "from_id": "user100", "text": "morning"},
    {"id": 2, "type": "message", "date": "2024-03-01T09:01:00", "date_unixtime": "1709283660", "from": "Bob", "from_id": "user200", "text": "hey"},
    {"id": 3, "type": "service", "date": "2024-03-01T09:02:00", "date_unixtime": "1709283720", "actor": "Alice", "actor_id": "user100", "action": "pin_message", "text": ""},
    {"id": 4, "type": "message", "date": "2024-03-01T09:03:00", "date_unixtime": "1709283780", "from": "Alice", "from_id": "user100", "text": "lunch?"}
  ]
}`

const wechatRenameExport = `{"kind":"meta","name":"renamers","chatKind":"group"}
{"kind":"roster","members":[{"id":"wxid_a","name":"Ming","nick":"xiaoming"},{"id":"wxid_b","name":"Hong","nick":"dahong"}]}
{"kind":"msg","talker":"wxid_a","talkerName":"Ming","ts":1709283600,"type":1,"content":"one"}
{"kind":"msg","talker":"wxid_a","talkerName":"Ming","ts":1709283660,"type":1,"content":"two"}
{"kind":"msg","talker":"wxid_a","talkerName":"Ming The Great","ts":1709283720,"type":1,"content":"three"}
{"kind":"msg","talker":"wxid_b","talkerName":"Hong","ts":1709283780,"type":1,"content":"four"}
`

func newTestImporter(t *testing.T) (*Importer, *store.Manager) {
	t.Helper()
	mgr, err := store.NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mgr.CloseAll)

	cfg := config.Default().Importer
	cfg.BatchSize = 2 // small batches exercise the flush path
	return New(format.NewRegistry(), mgr, cfg), mgr
}

func writeExport(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportTelegram(t *testing.T) {
	ctx := context.Background()
	imp, mgr := newTestImporter(t)

	var stages []Stage
	sessionID, err := imp.Import(ctx, writeExport(t, "result.json", telegramExport), func(p Progress) {
		stages = append(stages, p.Stage)
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	sess, err := mgr.Get(ctx, sessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.Name != "Weekend Plans" || sess.Platform != "telegram" || sess.ChatKind != model.ChatGroup {
		t.Errorf("session = %+v", sess)
	}

	st, err := mgr.Acquire(sessionID)
	if err != nil {
		t.Fatal(err)
	}
	messages, members, err := st.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if messages != 4 {
		t.Errorf("messages = %d, want 4", messages)
	}
	// user100, user200 and the synthetic service sender
	if members != 3 {
		t.Errorf("members = %d, want 3", members)
	}

	if stages[0] != StageDetecting {
		t.Errorf("first stage = %s, want detecting", stages[0])
	}
	if stages[len(stages)-1] != StageDone {
		t.Errorf("last stage = %s, want done", stages[len(stages)-1])
	}
}

func TestImportGzipWithPlainExtension(t *testing.T) {
	ctx := context.Background()
	imp, mgr := newTestImporter(t)

	// compressed export that kept its .jsonl name
	path := filepath.Join(t.TempDir(), "backup.jsonl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(wechatRenameExport)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	sessionID, err := imp.Import(ctx, path, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	st, err := mgr.Acquire(sessionID)
	if err != nil {
		t.Fatal(err)
	}
	messages, members, err := st.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if messages != 4 || members != 2 {
		t.Errorf("got %d messages / %d members, want 4 / 2", messages, members)
	}
}

func TestImportIdempotentSeparateSessions(t *testing.T) {
	ctx := context.Background()
	imp, mgr := newTestImporter(t)
	path := writeExport(t, "result.json", telegramExport)

	id1, err := imp.Import(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := imp.Import(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if id1 == id2 {
		t.Fatal("two imports produced the same session id")
	}

	sessions, err := mgr.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Errorf("got %d sessions, want 2 (imports never merge)", len(sessions))
	}
}

func TestImportNicknameHistory(t *testing.T) {
	ctx := context.Background()
	imp, mgr := newTestImporter(t)

	sessionID, err := imp.Import(ctx, writeExport(t, "backup.jsonl", wechatRenameExport), nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	st, err := mgr.Acquire(sessionID)
	if err != nil {
		t.Fatal(err)
	}
	members, err := st.Members(ctx)
	if err != nil {
		t.Fatal(err)
	}
	hist, err := st.NicknameHistory(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var renamer, steady int64
	for id, m := range members {
		switch m.PlatformID {
		case "wxid_a":
			renamer = id
		case "wxid_b":
			steady = id
		}
	}

	if got := members[renamer].DisplayName; got != "Ming The Great" {
		t.Errorf("renamer display name = %q, want latest name", got)
	}
	entries := hist[renamer]
	if len(entries) != 2 {
		t.Fatalf("renamer history = %d entries, want 2", len(entries))
	}
	if entries[0].Name != "Ming" || entries[1].Name != "Ming The Great" {
		t.Errorf("history names = %q, %q", entries[0].Name, entries[1].Name)
	}
	// gapless: first entry ends exactly where the second starts
	if entries[0].EndTS == nil || *entries[0].EndTS != entries[1].StartTS {
		t.Errorf("entry[0].EndTS = %v, want %d", entries[0].EndTS, entries[1].StartTS)
	}
	if entries[1].EndTS != nil {
		t.Errorf("entry[1].EndTS = %v, want open", *entries[1].EndTS)
	}

	// a member with one steady name gets no history rows
	if len(hist[steady]) != 0 {
		t.Errorf("steady member history = %+v, want none", hist[steady])
	}
}

func TestImportUnrecognizedFormat(t *testing.T) {
	imp, mgr := newTestImporter(t)

	_, err := imp.Import(context.Background(), writeExport(t, "notes.txt", "nothing chat-like"), nil)
	if !model.IsKind(err, model.KindUnrecognizedFormat) {
		t.Fatalf("Import error = %v, want unrecognized format", err)
	}
	assertNoStoreFiles(t, mgr.DataDir())
}

func TestImportMalformedRollsBack(t *testing.T) {
	imp, mgr := newTestImporter(t)

	// detectable as telegram, but the messages array is truncated
	trunc := telegramExport[:strings.Index(telegramExport, `"hey"`)]
	var sawError bool
	_, err := imp.Import(context.Background(), writeExport(t, "result.json", trunc), func(p Progress) {
		if p.Stage == StageError {
			sawError = true
		}
	})
	if !model.IsKind(err, model.KindMalformedInput) {
		t.Fatalf("Import error = %v, want malformed input", err)
	}
	if !sawError {
		t.Error("no error-stage progress event reported")
	}
	assertNoStoreFiles(t, mgr.DataDir())
}

func TestImportInvalidRecordRollsBack(t *testing.T) {
	// a wechat message whose ts is present but talker empty fails parse
	// validation; nothing may remain on disk
	imp, mgr := newTestImporter(t)

	bad := `{"kind":"meta","name":"x","chatKind":"group"}
{"kind":"msg","talker":"wxid_a","talkerName":"A","ts":1709283600,"type":1,"content":"ok"}
{"kind":"msg","talker":"","talkerName":"B","ts":1709283660,"type":1,"content":"bad"}
`
	_, err := imp.Import(context.Background(), writeExport(t, "backup.jsonl", bad), nil)
	if !model.IsKind(err, model.KindMalformedInput) {
		t.Fatalf("Import error = %v, want malformed input", err)
	}
	assertNoStoreFiles(t, mgr.DataDir())
}

func assertNoStoreFiles(t *testing.T, dataDir string) {
	t.Helper()
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		t.Errorf("leftover file after failed import: %s", e.Name())
	}
}

func TestProgressCallbackPanicIsContained(t *testing.T) {
	imp, _ := newTestImporter(t)

	_, err := imp.Import(context.Background(), writeExport(t, "result.json", telegramExport), func(Progress) {
		panic("listener bug")
	})
	if err != nil {
		t.Fatalf("Import failed because of a progress panic: %v", err)
	}
}
