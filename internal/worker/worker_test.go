package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chattrace/chattrace/internal/analytics"
	"github.com/chattrace/chattrace/internal/config"
)

const telegramExport = `{
  "name": "Worker Test",
  "type": "personal_chat",
  "id": 1,
  "messages": [
    {"id": 1, "type": "message", "date": "2024-03-01T09:00:00", "date_unixtime": "1709283600", "from": "Alice", "from_id": "user100", "text": "hello"},
    {"id": 2, "type": "message", "date": "2024-03-01T09:01:00", "date_unixtime": "1709283660", "from": "Bob", "from_id": "user200", "text": "hi"}
  ]
}`

func startWorker(t *testing.T) (*Worker, context.CancelFunc) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	w, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-w.stopped
	})
	return w, cancel
}

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "result.json")
	if err := os.WriteFile(path, []byte(telegramExport), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWorkerImportAndQuery(t *testing.T) {
	ctx := context.Background()
	w, _ := startWorker(t)

	sessionID, err := w.Import(ctx, writeExport(t), nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	sessions, err := w.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != sessionID {
		t.Fatalf("sessions = %+v, want the imported one", sessions)
	}
	if sessions[0].Name != "Worker Test" {
		t.Errorf("Name = %q, want Worker Test", sessions[0].Name)
	}

	var total int64
	err = w.Query(ctx, func(qctx context.Context, eng *analytics.Engine) {
		total = eng.ActivityRanking(qctx, sessionID, nil).Total
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 2 {
		t.Errorf("query total = %d, want 2", total)
	}
}

func TestWorkerSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	w, _ := startWorker(t)

	sessionID, err := w.Import(ctx, writeExport(t), nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Rename(ctx, sessionID, "renamed"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	sess, err := w.Session(ctx, sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Name != "renamed" {
		t.Errorf("Name = %q, want renamed", sess.Name)
	}

	if err := w.Delete(ctx, sessionID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	sessions, err := w.Sessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions after delete = %+v, want none", sessions)
	}
}

func TestWorkerStopped(t *testing.T) {
	w, cancel := startWorker(t)
	cancel()
	<-w.stopped

	if _, err := w.Sessions(context.Background()); err != ErrStopped {
		t.Fatalf("Sessions after stop = %v, want ErrStopped", err)
	}
}

func TestWorkerFormats(t *testing.T) {
	w, _ := startWorker(t)

	formats := w.Formats()
	if len(formats) != 3 {
		t.Fatalf("got %d formats, want 3", len(formats))
	}
	// priority order: telegram, wechat, qq
	want := []string{"telegram-json", "wechat-jsonl", "qq-txt"}
	for i, f := range formats {
		if f.ID != want[i] {
			t.Errorf("formats[%d] = %s, want %s", i, f.ID, want[i])
		}
	}
}
