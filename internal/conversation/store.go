// Package conversation holds per-identity lifecycle state and dialogue
// history. The store exclusively owns all state; other components pass the
// identity key and mutate through it.
package conversation

import (
	"sync"
	"time"

	"github.com/mkrutov/leobot/internal/domain"
)

// Store manages conversation state and dialogue history keyed by identity.
// Implementations must make Begin an atomic check-and-create: two concurrent
// Begin calls for the same new identity must not both report creation.
type Store interface {
	// Begin creates state for identity in StageAwaitingFirstReply, seeded
	// with the given turns. Returns false if a conversation already exists;
	// in that case nothing is mutated.
	Begin(identity int64, seed []domain.Turn) bool

	// Exists reports whether a conversation exists for identity.
	Exists(identity int64) bool

	// Get returns the conversation state for identity.
	Get(identity int64) (domain.Conversation, bool)

	// Advance moves the conversation to the given stage. No-op for unknown
	// identities.
	Advance(identity int64, stage domain.Stage)

	// Append adds a turn to the identity's dialogue history. History is
	// append-only and never pruned.
	Append(identity int64, turn domain.Turn)

	// History returns the ordered dialogue history for identity.
	History(identity int64) []domain.Turn

	// Identities returns all identities with a conversation.
	Identities() []int64

	// Count returns the number of conversations.
	Count() int
}

// MemoryStore is the in-memory Store. State lives for the process lifetime;
// there is no eviction.
type MemoryStore struct {
	mu      sync.RWMutex
	convos  map[int64]*domain.Conversation
	history map[int64][]domain.Turn
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		convos:  make(map[int64]*domain.Conversation),
		history: make(map[int64][]domain.Turn),
	}
}

func (s *MemoryStore) Begin(identity int64, seed []domain.Turn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convos[identity]; ok {
		return false
	}
	s.convos[identity] = &domain.Conversation{
		Identity:  identity,
		Stage:     domain.StageAwaitingFirstReply,
		StartedAt: time.Now(),
	}
	s.history[identity] = append([]domain.Turn(nil), seed...)
	return true
}

func (s *MemoryStore) Exists(identity int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.convos[identity]
	return ok
}

func (s *MemoryStore) Get(identity int64) (domain.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convos[identity]
	if !ok {
		return domain.Conversation{}, false
	}
	return *c, true
}

func (s *MemoryStore) Advance(identity int64, stage domain.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convos[identity]; ok {
		c.Stage = stage
	}
}

func (s *MemoryStore) Append(identity int64, turn domain.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	s.history[identity] = append(s.history[identity], turn)
}

func (s *MemoryStore) History(identity int64) []domain.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Turn(nil), s.history[identity]...)
}

func (s *MemoryStore) Identities() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.convos))
	for id := range s.convos {
		ids = append(ids, id)
	}
	return ids
}

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convos)
}
