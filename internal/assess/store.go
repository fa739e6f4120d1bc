package assess

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Store persists assessment sessions. Implementations must serialize
// concurrent Update calls on the same session id.
type Store interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Get returns a copy of the session. ErrSessionNotFound when unknown.
	Get(ctx context.Context, id uuid.UUID) (*Session, error)

	// Update applies fn to the session under the per-session lock and
	// persists the result. fn sees a private copy; returning an error
	// aborts the update without persisting.
	Update(ctx context.Context, id uuid.UUID, fn func(*Session) error) (*Session, error)

	// History lists sessions for an owner, newest first. An empty subject
	// matches all subjects; limit <= 0 means no limit.
	History(ctx context.Context, owner, subject string, limit int) ([]Summary, error)

	// Delete removes a session. Missing ids are a no-op.
	Delete(ctx context.Context, id uuid.UUID) error
}

// MemoryStore is the single-instance in-memory backend. Sessions do not
// survive a restart; production deployments swap in a durable Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionEntry
}

type sessionEntry struct {
	mu      sync.Mutex
	session Session
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]*sessionEntry)}
}

func (m *MemoryStore) Create(_ context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[session.ID]; ok {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	m.sessions[session.ID] = &sessionEntry{session: cloneSession(session)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	entry, err := m.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	copied := cloneSession(&entry.session)
	return &copied, nil
}

func (m *MemoryStore) Update(_ context.Context, id uuid.UUID, fn func(*Session) error) (*Session, error) {
	entry, err := m.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := cloneSession(&entry.session)
	if err := fn(&working); err != nil {
		return nil, err
	}
	entry.session = cloneSession(&working)
	return &working, nil
}

func (m *MemoryStore) History(_ context.Context, owner, subject string, limit int) ([]Summary, error) {
	m.mu.RLock()
	entries := make([]*sessionEntry, 0, len(m.sessions))
	for _, entry := range m.sessions {
		entries = append(entries, entry)
	}
	m.mu.RUnlock()

	var summaries []Summary
	for _, entry := range entries {
		entry.mu.Lock()
		s := entry.session
		entry.mu.Unlock()

		if s.Owner != owner {
			continue
		}
		if subject != "" && s.Subject != subject {
			continue
		}
		summaries = append(summaries, s.summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) entry(id uuid.UUID) (*sessionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return entry, nil
}

func cloneSession(s *Session) Session {
	copied := *s
	copied.Problems = append([]Problem(nil), s.Problems...)
	copied.Gradings = append([]Grading(nil), s.Gradings...)
	return copied
}
