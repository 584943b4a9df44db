package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/chattrace/chattrace/internal/logger"
	"github.com/chattrace/chattrace/internal/model"
)

// Manager owns the session directory and a cache of lazily opened
// read-only store connections. It is explicit worker-owned state, torn
// down with CloseAll; never a process-wide singleton.
type Manager struct {
	dataDir string

	mu   sync.Mutex
	open map[string]*Store
}

// NewManager creates the data directory if needed.
func NewManager(dataDir string) (*Manager, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Manager{dataDir: dataDir, open: make(map[string]*Store)}, nil
}

// DataDir returns the session directory.
func (m *Manager) DataDir() string { return m.dataDir }

// Path returns the store file path for a session id.
func (m *Manager) Path(sessionID string) string {
	return filepath.Join(m.dataDir, sessionID+".db")
}

// Acquire returns the cached read-only connection for the session,
// opening it lazily. Returns model.ErrSessionNotFound if the store
// file does not exist.
func (m *Manager) Acquire(sessionID string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.open[sessionID]; ok {
		return s, nil
	}
	s, err := Open(m.Path(sessionID), true)
	if err != nil {
		return nil, err
	}
	m.open[sessionID] = s
	return s, nil
}

// List enumerates all sessions by scanning the data directory. Session
// existence is file existence; there is no shared catalog. Stores that
// cannot be opened are skipped with a warning.
func (m *Manager) List(ctx context.Context) ([]model.Session, error) {
	entries, err := os.ReadDir(m.dataDir)
	if err != nil {
		return nil, fmt.Errorf("scan data dir: %w", err)
	}

	var sessions []model.Session
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".db") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".db")
		s, err := m.Acquire(id)
		if err != nil {
			logger.Warn("skipping unreadable session store", "file", e.Name(), "error", err)
			continue
		}
		sess, err := s.Session(ctx)
		if err != nil {
			logger.Warn("skipping session store without metadata", "file", e.Name(), "error", err)
			continue
		}
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ImportedAt.After(sessions[j].ImportedAt)
	})
	return sessions, nil
}

// Get returns one session's metadata.
func (m *Manager) Get(ctx context.Context, sessionID string) (model.Session, error) {
	s, err := m.Acquire(sessionID)
	if err != nil {
		return model.Session{}, err
	}
	return s.Session(ctx)
}

// Rename updates a session's display name. It requires a read-write
// open, so any cached read-only handle is released first.
func (m *Manager) Rename(ctx context.Context, sessionID, name string) error {
	m.release(sessionID)

	s, err := Open(m.Path(sessionID), false)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Rename(ctx, name)
}

// Delete removes a session's store file and WAL siblings. The session
// disappears from the listing the moment the file is gone.
func (m *Manager) Delete(sessionID string) error {
	m.release(sessionID)

	path := m.Path(sessionID)
	if _, err := os.Stat(path); err != nil {
		return model.ErrSessionNotFound
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	os.Remove(path + "-wal")
	os.Remove(path + "-shm")
	return nil
}

// Forget drops a cached handle without touching the file. The importer
// uses it before deleting a partial store.
func (m *Manager) Forget(sessionID string) {
	m.release(sessionID)
}

// CloseAll tears down every cached connection.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.open {
		if err := s.Close(); err != nil {
			logger.Warn("closing session store", "session_id", id, "error", err)
		}
		delete(m.open, id)
	}
}

func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.open[sessionID]; ok {
		s.Close()
		delete(m.open, sessionID)
	}
}
