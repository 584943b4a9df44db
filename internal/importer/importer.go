// Package importer drives one streaming parser and produces one
// fully-populated, indexed per-session store, or nothing at all.
package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/chattrace/chattrace/internal/config"
	"github.com/chattrace/chattrace/internal/format"
	"github.com/chattrace/chattrace/internal/logger"
	"github.com/chattrace/chattrace/internal/model"
	"github.com/chattrace/chattrace/internal/store"
)

// Importer resolves formats and runs imports against a Manager's data
// directory. One import runs at a time per session; there is no
// parallel writer.
type Importer struct {
	registry *format.Registry
	mgr      *store.Manager
	cfg      config.ImporterConfig
}

// New wires an importer.
func New(registry *format.Registry, mgr *store.Manager, cfg config.ImporterConfig) *Importer {
	return &Importer{registry: registry, mgr: mgr, cfg: cfg}
}

// Import ingests one export file and returns the new session id. On
// any failure the in-flight transaction is rolled back, the partial
// store file is deleted and any preprocessor temp file removed; no
// partial session ever becomes visible.
func (imp *Importer) Import(ctx context.Context, path string, onProgress ProgressFunc) (string, error) {
	report := onProgress.guard()
	report(Progress{Stage: StageDetecting, Message: "detecting format"})

	desc, err := imp.registry.Detect(path)
	if err != nil {
		report(Progress{Stage: StageError, Message: err.Error()})
		return "", err
	}
	logger.Info("format detected", "format", desc.ID, "platform", desc.Platform, "file", path)

	workPath := path
	info, err := os.Stat(path)
	if err != nil {
		return "", model.NewImportError(model.KindIOFailure, err)
	}

	// Size reduction before parsing; the temp artifact is cleaned up in
	// all paths, including failure.
	if desc.ShouldPreprocess(path, info.Size(), imp.cfg.PreprocessThresholdBytes) {
		tmp, err := desc.Preprocess(ctx, path, os.TempDir())
		if err != nil {
			perr := model.NewImportError(model.KindPreprocessFailure, err)
			report(Progress{Stage: StageError, Message: perr.Error()})
			return "", perr
		}
		defer os.Remove(tmp)
		workPath = tmp
		logger.Info("preprocessed export", "format", desc.ID, "working_file", tmp)
	}

	sessionID := uuid.NewString()
	storePath := imp.mgr.Path(sessionID)

	st, err := store.Create(storePath)
	if err != nil {
		return "", model.NewImportError(model.KindIOFailure, err)
	}

	run := &importRun{
		st:     st,
		cfg:    imp.cfg,
		nicks:  newNickTracker(),
		cache:  make(map[string]int64),
		report: report,
	}

	if err := run.execute(ctx, desc, workPath, sessionID); err != nil {
		run.abort()
		st.Close()
		os.Remove(storePath)
		os.Remove(storePath + "-wal")
		os.Remove(storePath + "-shm")
		report(Progress{Stage: StageError, Message: err.Error()})
		return "", err
	}

	if err := st.Close(); err != nil {
		logger.Warn("closing freshly imported store", "session_id", sessionID, "error", err)
	}
	report(Progress{Stage: StageDone, MessagesProcessed: run.messages, Message: "import complete"})
	logger.Info("import complete",
		"session_id", sessionID,
		"messages", run.messages,
		"members", len(run.cache),
	)
	return sessionID, nil
}

// importRun is the consumer-side state for a single import.
type importRun struct {
	st     *store.Store
	cfg    config.ImporterConfig
	report ProgressFunc

	tx       *txState
	cache    map[string]int64 // platformId -> member row id
	nicks    *nickTracker
	meta     *format.Meta
	done     *format.Done
	members  int64
	messages int64

	sinceCommit     int64
	sinceCheckpoint int64
}

// execute runs the producer/consumer pipeline and all post-load steps.
func (r *importRun) execute(ctx context.Context, desc *format.Descriptor, workPath, sessionID string) error {
	events := make(chan format.Event, 4)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		err := desc.Parse(gctx, workPath, format.Options{BatchSize: r.cfg.BatchSize}, func(ev format.Event) error {
			select {
			case events <- ev:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
		if err != nil {
			return classifyParseError(err)
		}
		return nil
	})
	g.Go(func() error {
		for ev := range events {
			if err := r.handle(gctx, ev); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		var ie *model.ImportError
		if errors.As(err, &ie) {
			return ie
		}
		return model.NewImportError(model.KindIOFailure, err)
	}

	if r.done == nil {
		return model.NewImportError(model.KindMalformedInput,
			fmt.Errorf("event stream ended without done event"))
	}
	if err := r.commit(); err != nil {
		return model.NewImportError(model.KindIOFailure, err)
	}

	// Written counts must match the parser's own final counts.
	messages, members, err := r.st.Counts(ctx)
	if err != nil {
		return model.NewImportError(model.KindIOFailure, err)
	}
	if messages != r.done.Messages {
		return model.NewImportError(model.KindMalformedInput,
			fmt.Errorf("message count mismatch: wrote %d, parser reported %d", messages, r.done.Messages))
	}
	if members != r.done.Members {
		return model.NewImportError(model.KindMalformedInput,
			fmt.Errorf("member count mismatch: wrote %d, parser reported %d", members, r.done.Members))
	}

	if err := r.materializeNicknames(ctx); err != nil {
		return model.NewImportError(model.KindIOFailure, err)
	}

	name := ""
	kind := model.ChatGroup
	platform := desc.Platform
	if r.meta != nil {
		name = r.meta.Name
		kind = r.meta.ChatKind
		if r.meta.Platform != "" {
			platform = r.meta.Platform
		}
	}
	if name == "" {
		name = sessionID[:8]
	}
	if err := r.st.WriteSession(ctx, model.Session{
		ID:         sessionID,
		Name:       name,
		Platform:   platform,
		ChatKind:   kind,
		ImportedAt: time.Now(),
	}); err != nil {
		return model.NewImportError(model.KindIOFailure, err)
	}

	// Indexing once after bulk load is far faster than maintaining
	// indexes during it.
	if err := r.st.CreateIndexes(ctx); err != nil {
		return model.NewImportError(model.KindIOFailure, err)
	}
	if err := r.st.Checkpoint(ctx); err != nil {
		return model.NewImportError(model.KindIOFailure, err)
	}
	return nil
}

func (r *importRun) handle(ctx context.Context, ev format.Event) error {
	switch e := ev.(type) {
	case format.Meta:
		meta := e
		r.meta = &meta
		return nil

	case format.Members:
		if err := r.ensureTx(); err != nil {
			return err
		}
		for _, m := range e.Members {
			id, err := r.upsertMember(m.PlatformID, m.Name, m.PlatformNick)
			if err != nil {
				return err
			}
			r.nicks.register(m.PlatformID, id, m.PlatformNick)
		}
		return nil

	case format.MessageBatch:
		return r.handleBatch(ctx, e.Messages)

	case format.Progress:
		r.report(Progress{
			Stage:             StageParsing,
			BytesRead:         e.BytesRead,
			TotalBytes:        e.TotalBytes,
			MessagesProcessed: e.Messages,
		})
		return nil

	case format.Done:
		done := e
		r.done = &done
		return nil

	default:
		return fmt.Errorf("unexpected event type %T", ev)
	}
}

func (r *importRun) handleBatch(ctx context.Context, msgs []format.RawMessage) error {
	if err := r.ensureTx(); err != nil {
		return err
	}
	for _, msg := range msgs {
		memberID, ok := r.cache[msg.SenderID]
		if !ok {
			// Unseen sender: insert the member row first. The name
			// defaults to the raw platform id until a real one shows up.
			name := msg.SenderName
			if name == "" {
				name = msg.SenderID
			}
			id, err := r.upsertMember(msg.SenderID, name, "")
			if err != nil {
				return err
			}
			r.nicks.register(msg.SenderID, id, "")
			memberID = id
		}

		if _, err := r.tx.insertMessage.Exec(memberID, msg.TS, int(msg.Type), msg.Content); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		r.messages++
		r.sinceCommit++
		r.sinceCheckpoint++

		r.nicks.observe(msg.SenderID, msg.SenderName, msg.TS)

		// Bounded transactions: committing every N messages bounds
		// transaction-log growth and gives a natural progress point.
		if r.sinceCommit >= int64(r.cfg.CommitEvery) {
			if err := r.commit(); err != nil {
				return err
			}
			r.sinceCommit = 0
			r.report(Progress{Stage: StageImporting, MessagesProcessed: r.messages, Message: "messages written"})

			if r.sinceCheckpoint >= int64(r.cfg.CheckpointEvery) {
				if err := r.st.Checkpoint(ctx); err != nil {
					return err
				}
				r.sinceCheckpoint = 0
			}
			if err := r.ensureTx(); err != nil {
				return err
			}
		}
	}
	return nil
}

// upsertMember inserts or updates a member row inside the current
// transaction and caches its row id.
func (r *importRun) upsertMember(platformID, name, nick string) (int64, error) {
	if id, ok := r.cache[platformID]; ok {
		if name != "" || nick != "" {
			_, err := r.tx.tx.Exec(
				`UPDATE member SET
					display_name = CASE WHEN ? != '' THEN ? ELSE display_name END,
					platform_nick = CASE WHEN ? != '' THEN ? ELSE platform_nick END
				 WHERE id = ?`,
				name, name, nick, nick, id)
			if err != nil {
				return 0, fmt.Errorf("update member: %w", err)
			}
		}
		return id, nil
	}

	if name == "" {
		name = platformID
	}
	var nickArg any
	if nick != "" {
		nickArg = nick
	}
	res, err := r.tx.tx.Exec(
		"INSERT INTO member (platform_id, display_name, platform_nick) VALUES (?, ?, ?)",
		platformID, name, nickArg)
	if err != nil {
		return 0, fmt.Errorf("insert member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert member: %w", err)
	}
	r.cache[platformID] = id
	r.members++
	return id, nil
}

// materializeNicknames writes the reconstructed history in one extra
// transaction: gapless entries where each end equals the next start,
// the last one open. Members with a single distinct real name get no
// rows, only their current display name fixed up.
func (r *importRun) materializeNicknames(ctx context.Context) error {
	tx, err := r.st.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin nickname tx: %w", err)
	}
	defer tx.Rollback()

	insert, err := tx.Prepare(
		"INSERT INTO nickname_history (member_id, name, start_ts, end_ts) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare nickname insert: %w", err)
	}
	defer insert.Close()

	for _, m := range r.nicks.byPlatform {
		entries, distinct := m.history()
		if distinct == 0 {
			continue
		}
		latest := entries[len(entries)-1].name
		if _, err := tx.Exec("UPDATE member SET display_name = ? WHERE id = ?", latest, m.memberID); err != nil {
			return fmt.Errorf("update member name: %w", err)
		}
		if distinct < 2 {
			// a member who only ever used one real name has no history
			continue
		}
		for i, e := range entries {
			var end any
			if i+1 < len(entries) {
				end = entries[i+1].startTS
			}
			if _, err := insert.Exec(m.memberID, e.name, e.startTS, end); err != nil {
				return fmt.Errorf("insert nickname entry: %w", err)
			}
		}
	}
	return tx.Commit()
}

// txState couples a write transaction with its prepared statements.
type txState struct {
	tx            *sql.Tx
	insertMessage *sql.Stmt
}

func (r *importRun) ensureTx() error {
	if r.tx != nil {
		return nil
	}
	tx, err := r.st.DB().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.Prepare("INSERT INTO message (member_id, ts, type, content) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare message insert: %w", err)
	}
	r.tx = &txState{tx: tx, insertMessage: stmt}
	return nil
}

func (r *importRun) commit() error {
	if r.tx == nil {
		return nil
	}
	r.tx.insertMessage.Close()
	if err := r.tx.tx.Commit(); err != nil {
		r.tx = nil
		return fmt.Errorf("commit: %w", err)
	}
	r.tx = nil
	return nil
}

func (r *importRun) abort() {
	if r.tx == nil {
		return
	}
	r.tx.insertMessage.Close()
	r.tx.tx.Rollback()
	r.tx = nil
}

// classifyParseError keeps typed errors, maps filesystem problems to
// IOFailure and everything else a parser reports to MalformedInput.
func classifyParseError(err error) error {
	var ie *model.ImportError
	if errors.As(err, &ie) {
		return ie
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return model.NewImportError(model.KindIOFailure, err)
	}
	return model.NewImportError(model.KindMalformedInput, err)
}
