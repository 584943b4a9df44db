// Package worker serializes access to the session data directory. A
// single goroutine owns the store manager, the importer and the
// analytics engine; callers talk to it through request/reply channels,
// so imports never race queries or session management.
package worker

import (
	"context"
	"errors"

	"github.com/chattrace/chattrace/internal/analytics"
	"github.com/chattrace/chattrace/internal/config"
	"github.com/chattrace/chattrace/internal/format"
	"github.com/chattrace/chattrace/internal/importer"
	"github.com/chattrace/chattrace/internal/logger"
	"github.com/chattrace/chattrace/internal/model"
	"github.com/chattrace/chattrace/internal/store"
)

// ErrStopped is returned for requests made after the worker shut down.
var ErrStopped = errors.New("worker stopped")

// FormatCapability describes one supported export format.
type FormatCapability struct {
	ID         string
	Platform   string
	Extensions []string
}

// ImportResult is the terminal outcome of one import request.
type ImportResult struct {
	SessionID string
	Err       error
}

type request func(ctx context.Context)

// Worker owns the manager/importer/engine trio and executes requests
// one at a time.
type Worker struct {
	mgr      *store.Manager
	imp      *importer.Importer
	eng      *analytics.Engine
	registry *format.Registry

	requests chan request
	stopped  chan struct{}
}

// New builds a worker over the given data directory.
func New(cfg *config.Config) (*Worker, error) {
	mgr, err := store.NewManager(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	registry := format.NewRegistry()
	return &Worker{
		mgr:      mgr,
		imp:      importer.New(registry, mgr, cfg.Importer),
		eng:      analytics.NewEngine(mgr, analytics.OptionsFromConfig(cfg.Analytics)),
		registry: registry,
		requests: make(chan request),
		stopped:  make(chan struct{}),
	}, nil
}

// Run consumes requests until the context is cancelled, then closes
// all cached store connections. It must run in its own goroutine.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.stopped)
	defer w.mgr.CloseAll()
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutting down")
			return
		case req := <-w.requests:
			req(ctx)
		}
	}
}

// do submits a request and waits for it to be picked up. The returned
// error is non-nil only when the worker is no longer serving.
func (w *Worker) do(ctx context.Context, req request) error {
	select {
	case w.requests <- req:
		return nil
	case <-w.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Import runs one import to completion. Progress events flow through
// onProgress from the worker goroutine; imports queue behind whatever
// the worker is currently doing.
func (w *Worker) Import(ctx context.Context, path string, onProgress importer.ProgressFunc) (string, error) {
	reply := make(chan ImportResult, 1)
	err := w.do(ctx, func(runCtx context.Context) {
		id, err := w.imp.Import(runCtx, path, onProgress)
		reply <- ImportResult{SessionID: id, Err: err}
	})
	if err != nil {
		return "", err
	}
	select {
	case res := <-reply:
		return res.SessionID, res.Err
	case <-w.stopped:
		return "", ErrStopped
	}
}

// Sessions lists the imported sessions, newest first.
func (w *Worker) Sessions(ctx context.Context) ([]model.Session, error) {
	var (
		sessions []model.Session
		err      error
	)
	if derr := w.doWait(ctx, func(runCtx context.Context) {
		sessions, err = w.mgr.List(runCtx)
	}); derr != nil {
		return nil, derr
	}
	return sessions, err
}

// Session fetches one session's metadata.
func (w *Worker) Session(ctx context.Context, sessionID string) (model.Session, error) {
	var (
		s   model.Session
		err error
	)
	if derr := w.doWait(ctx, func(runCtx context.Context) {
		s, err = w.mgr.Get(runCtx, sessionID)
	}); derr != nil {
		return model.Session{}, derr
	}
	return s, err
}

// Rename changes a session's display name.
func (w *Worker) Rename(ctx context.Context, sessionID, name string) error {
	var err error
	if derr := w.doWait(ctx, func(runCtx context.Context) {
		err = w.mgr.Rename(runCtx, sessionID, name)
	}); derr != nil {
		return derr
	}
	return err
}

// Delete removes a session's store file.
func (w *Worker) Delete(ctx context.Context, sessionID string) error {
	var err error
	if derr := w.doWait(ctx, func(context.Context) {
		err = w.mgr.Delete(sessionID)
	}); derr != nil {
		return derr
	}
	return err
}

// Query runs an analytics closure on the worker goroutine.
func (w *Worker) Query(ctx context.Context, fn func(ctx context.Context, eng *analytics.Engine)) error {
	return w.doWait(ctx, func(runCtx context.Context) {
		fn(runCtx, w.eng)
	})
}

// Formats lists the registered format capabilities.
func (w *Worker) Formats() []FormatCapability {
	descs := w.registry.Descriptors()
	out := make([]FormatCapability, 0, len(descs))
	for _, d := range descs {
		out = append(out, FormatCapability{
			ID:         d.ID,
			Platform:   d.Platform,
			Extensions: append([]string(nil), d.Extensions...),
		})
	}
	return out
}

// doWait submits a request and blocks until it finishes.
func (w *Worker) doWait(ctx context.Context, fn func(ctx context.Context)) error {
	done := make(chan struct{})
	err := w.do(ctx, func(runCtx context.Context) {
		defer close(done)
		fn(runCtx)
	})
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-w.stopped:
		return ErrStopped
	}
}
