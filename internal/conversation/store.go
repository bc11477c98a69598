package conversation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"faqbot/internal/domain"
)

// Store holds every live session keyed by conversation id and guarantees
// at most one in-flight transition per conversation. The mutual
// exclusion is scoped to the conversation key; transitions for different
// conversations run concurrently.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry

	idleWindow time.Duration
	log        *zap.Logger
	now        func() time.Time
}

type sessionEntry struct {
	mu   sync.Mutex
	sess domain.ConversationSession
}

// NewStore creates a session store evicting sessions idle longer than
// idleWindow.
func NewStore(idleWindow time.Duration, log *zap.Logger) *Store {
	return &Store{
		sessions:   make(map[string]*sessionEntry),
		idleWindow: idleWindow,
		log:        log,
		now:        time.Now,
	}
}

// Get returns a copy of the session, if it exists.
func (s *Store) Get(id string) (domain.ConversationSession, bool) {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return domain.ConversationSession{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.sess, true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Transact runs fn with exclusive access to the session. It returns
// NotFoundError when the conversation id is unknown. Changes made by fn
// survive even when fn returns an error: guard failures still update the
// activity timestamp.
func (s *Store) Transact(id string, fn func(*domain.ConversationSession) error) error {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return &NotFoundError{Kind: "conversation", ID: id}
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(&entry.sess)
}

// TransactOrCreate behaves like Transact but allocates a fresh session
// in the initial state when the id is unknown.
func (s *Store) TransactOrCreate(id string, fn func(*domain.ConversationSession) error) error {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	if !ok {
		entry = &sessionEntry{sess: s.newSession(id)}
		s.sessions[id] = entry
	}
	s.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(&entry.sess)
}

func (s *Store) newSession(id string) domain.ConversationSession {
	now := s.now()
	return domain.ConversationSession{
		ConversationID: id,
		State:          domain.StateInitial,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// RunSweeper evicts idle sessions every interval until ctx is done.
// A session whose lock is currently held is never evicted; it is picked
// up on a later pass once its transition finished.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				s.log.Info("expired idle sessions", zap.Int("count", n))
			}
		}
	}
}

func (s *Store) sweep() int {
	cutoff := s.now().Add(-s.idleWindow)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, entry := range s.sessions {
		if !entry.mu.TryLock() {
			continue // mid-transition
		}
		idle := entry.sess.LastActivityAt.Before(cutoff)
		entry.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}
