package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ludoforge/internal/config"
)

// SessionRegistry tracks the active editing sessions, keyed by
// rulebook ID. One writer session exists per rulebook at a time;
// read-only sessions are not registered. A background sweep closes
// sessions that have gone idle.
type SessionRegistry struct {
	sessions map[string]*Session // rulebookID -> session
	mu       sync.RWMutex

	sweepInterval time.Duration
	idleTimeout   time.Duration
	logger        *slog.Logger
}

// NewSessionRegistry creates an empty registry. Call StartSweep to
// enable idle cleanup.
func NewSessionRegistry(sweepInterval, idleTimeout time.Duration, logger *slog.Logger) *SessionRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRegistry{
		sessions:      make(map[string]*Session),
		sweepInterval: sweepInterval,
		idleTimeout:   idleTimeout,
		logger:        logger,
	}
}

// NewDefaultSessionRegistry creates a registry with the standard sweep
// cadence and idle timeout.
func NewDefaultSessionRegistry(logger *slog.Logger) *SessionRegistry {
	return NewSessionRegistry(time.Minute, config.SessionIdleTimeout, logger)
}

// Register claims the rulebook for a session. Returns false when
// another writer session already holds it.
func (r *SessionRegistry) Register(rulebookID string, session *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[rulebookID]; exists {
		return false
	}
	r.sessions[rulebookID] = session
	return true
}

// Get retrieves the session holding a rulebook, or nil.
func (r *SessionRegistry) Get(rulebookID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sessions[rulebookID]
}

// Remove releases a rulebook's session slot. Safe to call when no
// session holds it. The session itself is not closed; callers close it
// first so the final save runs.
func (r *SessionRegistry) Remove(rulebookID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, rulebookID)
}

// Count returns the number of active sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// StartSweep runs the idle cleanup loop until the context is
// cancelled.
func (r *SessionRegistry) StartSweep(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep closes and removes sessions idle past the timeout. Closing
// flushes unsaved changes, so an abandoned session's last edits are
// not lost.
func (r *SessionRegistry) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.idleTimeout)

	var stale []string
	r.mu.RLock()
	for rulebookID, session := range r.sessions {
		if session.LastActivity().Before(cutoff) {
			stale = append(stale, rulebookID)
		}
	}
	r.mu.RUnlock()

	for _, rulebookID := range stale {
		r.mu.Lock()
		session := r.sessions[rulebookID]
		delete(r.sessions, rulebookID)
		r.mu.Unlock()

		if session == nil {
			continue
		}
		if err := session.Close(ctx); err != nil {
			r.logger.Warn("failed to close idle session", "rulebook_id", rulebookID, "error", err)
		}
		r.logger.Info("closed idle session", "rulebook_id", rulebookID)
	}
}
