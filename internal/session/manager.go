// Package session maintains per-(user_id, chat_id) ephemeral runtime state
// and its durable SESSION.json snapshot, using an in-memory map guarded by
// a ref-counted per-key lock, adapted to this project's
// JSON-file persistence contract instead of a pluggable SQL Store.
package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/relaycore/relaycore/internal/store"
	"github.com/relaycore/relaycore/pkg/models"
)

// MaxSnapshotPairs is the cap on {user, assistant} pairs kept in
// SESSION.json, per the persisted-artifact contract.
const MaxSnapshotPairs = 10

// lockEntry is a reference-counted mutex: a session key's lock is only
// removed from the table once nobody is waiting on it, so Manager.locks
// cannot grow unboundedly for long-lived processes with many short-lived
// sessions, and a freshly unlocked session isn't left holding a stale
// entry that a concurrent goroutine is about to block on.
type lockEntry struct {
	mu  sync.Mutex
	ref int
}

// Manager owns the in-memory session map, keyed by "<user_id>:<chat_id>",
// and per-key serialization.
type Manager struct {
	workspaceRoot string
	logger        *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*models.Session

	lockMu sync.Mutex
	locks  map[string]*lockEntry
}

// NewManager creates a Manager rooted at workspaceRoot (each user gets a
// subdirectory workspaceRoot/<user_id>).
func NewManager(workspaceRoot string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		workspaceRoot: workspaceRoot,
		logger:        logger.With("component", "session"),
		sessions:      make(map[string]*models.Session),
		locks:         make(map[string]*lockEntry),
	}
}

func key(userID, chatID string) string {
	return userID + ":" + chatID
}

// Lock serializes turns on the same (user, chat) session; concurrent
// turns on different sessions never block each other. The returned
// function must be called exactly once to release the lock.
func (m *Manager) Lock(userID, chatID string) func() {
	k := key(userID, chatID)

	m.lockMu.Lock()
	le, ok := m.locks[k]
	if !ok {
		le = &lockEntry{}
		m.locks[k] = le
	}
	le.ref++
	m.lockMu.Unlock()

	le.mu.Lock()

	return func() {
		le.mu.Unlock()
		m.lockMu.Lock()
		le.ref--
		if le.ref == 0 {
			delete(m.locks, k)
		}
		m.lockMu.Unlock()
	}
}

// Get returns the session for (userID, chatID), creating it (and its
// on-disk workspace directory) on first touch.
func (m *Manager) Get(userID, chatID string, source models.Source) (*models.Session, error) {
	k := key(userID, chatID)

	m.mu.RLock()
	s, ok := m.sessions[k]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[k]; ok {
		return s, nil
	}

	ws := filepath.Join(m.workspaceRoot, userID)
	if err := os.MkdirAll(ws, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	now := time.Now()
	s = &models.Session{
		UserID:    userID,
		ChatID:    chatID,
		Workspace: ws,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.loadSnapshot(s)
	m.sessions[k] = s
	return s, nil
}

// Clear empties the transcript, history, and security counter for a
// session. The on-disk workspace directory is left untouched.
func (m *Manager) Clear(userID, chatID string) {
	k := key(userID, chatID)
	m.mu.RLock()
	s, ok := m.sessions[k]
	m.mu.RUnlock()
	if !ok {
		return
	}
	unlock := s.Lock()
	defer unlock()
	s.Transcript = nil
	s.History = nil
	s.SecurityCount = 0
	s.UpdatedAt = time.Now()
}

func snapshotPath(ws string) string {
	return filepath.Join(ws, "SESSION.json")
}

// loadSnapshot best-effort restores the advisory History from disk; a
// missing or corrupt snapshot just leaves History empty, matching the
// "snapshot is advisory, never a source of truth" design note.
func (m *Manager) loadSnapshot(s *models.Session) {
	var snap models.Snapshot
	ok, err := store.ReadJSONOrDefault(snapshotPath(s.Workspace), &snap)
	if !ok {
		if err != nil && !os.IsNotExist(err) {
			m.logger.Warn("failed to load session snapshot", "user_id", s.UserID, "error", err)
		}
		return
	}
	s.History = snap.History
}

// PersistSnapshot writes the durable SESSION.json for s. Failure is
// logged, never returned as a turn error, per the persistence contract.
func (m *Manager) PersistSnapshot(s *models.Session) {
	unlock := s.Lock()
	history := append([]models.SnapshotPair(nil), s.History...)
	unlock()

	if err := store.WriteJSON(snapshotPath(s.Workspace), models.Snapshot{History: history}); err != nil {
		m.logger.Error("failed to persist session snapshot", "user_id", s.UserID, "chat_id", s.ChatID, "error", err)
	}
}

// AppendTurn records the {user, assistant} pair for one turn into the
// advisory history, trimming to MaxSnapshotPairs.
func AppendTurn(s *models.Session, userText, assistantText string, at time.Time) {
	pair := models.SnapshotPair{
		User:      fmt.Sprintf("[%s] %s", at.Format("2006-01-02"), userText),
		Assistant: assistantText,
	}
	s.History = append(s.History, pair)
	if len(s.History) > MaxSnapshotPairs {
		s.History = s.History[len(s.History)-MaxSnapshotPairs:]
	}
}
