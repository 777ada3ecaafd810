package browse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/erazemk/sneakerdex/internal/model"
	"github.com/erazemk/sneakerdex/internal/window"
)

// ErrNotFound is returned for unknown, expired or foreign sessions.
var ErrNotFound = errors.New("browse session not found")

// DefaultMaxSessions bounds the number of open sessions.
const DefaultMaxSessions = 256

// Manager holds open sessions. When the limit is reached the least recently
// used session is closed.
type Manager struct {
	load     Loader
	cfg      window.Config
	logger   *slog.Logger
	sessions *lru.Cache[string, *Session]
}

// NewManager creates a manager keeping at most maxSessions sessions.
func NewManager(load Loader, maxSessions int, cfg window.Config, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	m := &Manager{load: load, cfg: cfg, logger: logger}
	cache, err := lru.NewWithEvict(maxSessions, func(id string, s *Session) {
		s.close()
		logger.Debug("browse session closed", "session", id, "owner_id", s.OwnerID)
	})
	if err != nil {
		return nil, fmt.Errorf("creating session cache: %w", err)
	}
	m.sessions = cache
	return m, nil
}

// Open fetches the owner's collection and starts a session over it with no
// filter, the default sort and the given unit.
func (m *Manager) Open(ctx context.Context, ownerID int64, unit model.SizeUnit) (*Session, error) {
	if !unit.Valid() {
		return nil, fmt.Errorf("unknown size unit %q", unit)
	}
	source, err := m.load(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("loading collection: %w", err)
	}

	s := newSession(uuid.NewString(), ownerID, source, unit, m.cfg, m.logger)
	s.start()
	m.sessions.Add(s.ID, s)
	m.logger.Debug("browse session opened", "session", s.ID, "owner_id", ownerID, "items", len(source))
	return s, nil
}

// Get returns the session with id if it belongs to ownerID.
func (m *Manager) Get(id string, ownerID int64) (*Session, error) {
	s, ok := m.sessions.Get(id)
	if !ok || s.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close ends the session with id if it belongs to ownerID.
func (m *Manager) Close(id string, ownerID int64) error {
	s, ok := m.sessions.Peek(id)
	if !ok || s.OwnerID != ownerID {
		return ErrNotFound
	}
	m.sessions.Remove(id)
	return nil
}

// Reload refreshes every session of ownerID after their collection changed.
func (m *Manager) Reload(ctx context.Context, ownerID int64) error {
	var errs []error
	for _, s := range m.sessions.Values() {
		if s.OwnerID != ownerID {
			continue
		}
		if err := s.Reload(ctx, m.load); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	return m.sessions.Len()
}

// Purge closes every session.
func (m *Manager) Purge() {
	m.sessions.Purge()
}
