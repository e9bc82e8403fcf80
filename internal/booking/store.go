package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/careportal/pkg/logging"
)

// DefaultSessionTTL bounds how long an untouched session is kept.
const DefaultSessionTTL = 30 * time.Minute

// submitClaimTTL bounds a confirmation claim so a crashed process cannot
// wedge a session forever.
const submitClaimTTL = 2 * time.Minute

// maxSubmitTimeout keeps a Submit call well inside its claim.
const maxSubmitTimeout = submitClaimTTL / 2

// SessionStore persists wizard sessions for a bounded time.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	// ClaimSubmit reports whether the caller now owns the confirmation for
	// the session. Only one claim per session is held at a time.
	ClaimSubmit(ctx context.Context, id string) (bool, error)
	ReleaseSubmit(ctx context.Context, id string) error
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore keeps sessions in process. Sessions are stored encoded so
// callers never share state with the store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	claims   map[string]time.Time
	ttl      time.Duration
	now      func() time.Time
	logger   *logging.Logger
}

func NewMemoryStore(ttl time.Duration, logger *logging.Logger) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		claims:   make(map[string]time.Time),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("booking: encode session: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = memoryEntry{data: data, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	if ok && !m.now().Before(entry.expires) {
		delete(m.sessions, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	var s Session
	if err := json.Unmarshal(entry.data, &s); err != nil {
		return nil, fmt.Errorf("booking: decode session: %w", err)
	}
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.claims, id)
	return nil
}

func (m *MemoryStore) ClaimSubmit(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if until, held := m.claims[id]; held && now.Before(until) {
		return false, nil
	}
	m.claims[id] = now.Add(submitClaimTTL)
	return true, nil
}

func (m *MemoryStore) ReleaseSubmit(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, id)
	return nil
}

// Sweep drops expired sessions and claims and returns how many sessions
// were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for id, entry := range m.sessions {
		if !now.Before(entry.expires) {
			delete(m.sessions, id)
			removed++
		}
	}
	for id, until := range m.claims {
		if !now.Before(until) {
			delete(m.claims, id)
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("expired booking sessions swept", "count", n)
			}
		}
	}
}
