// Package session holds the per-chat ephemeral dialog state and its
// best-effort durable snapshot.
package session

import (
	"sync"

	"birdbot/internal/domain"
)

// Store keeps the conversation state and prompt record for each chat. All
// access goes through the owning orchestrator; the mutex only guards against
// the snapshot timer reading while a handler writes.
type Store struct {
	mu      sync.RWMutex
	states  map[int64]domain.ConversationState
	prompts map[int64]domain.PromptRecord
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		states:  make(map[int64]domain.ConversationState),
		prompts: make(map[int64]domain.PromptRecord),
	}
}

// State returns the conversation state for a chat, if any.
func (s *Store) State(chatID int64) (domain.ConversationState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[chatID]
	return st, ok
}

// SetState overwrites the conversation state for a chat.
func (s *Store) SetState(st domain.ConversationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.ChatID] = st
}

// DeleteState removes the conversation state for a chat.
func (s *Store) DeleteState(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, chatID)
}

// Prompt returns the recovery prompt for a chat, if any.
func (s *Store) Prompt(chatID int64) (domain.PromptRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prompts[chatID]
	return p, ok
}

// SetPrompt overwrites the recovery prompt for a chat.
func (s *Store) SetPrompt(p domain.PromptRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[p.ChatID] = p
}

// DeletePrompt removes the recovery prompt for a chat.
func (s *Store) DeletePrompt(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prompts, chatID)
}

// Len returns the number of stored conversation states.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

func (s *Store) copyMaps() (map[int64]domain.ConversationState, map[int64]domain.PromptRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make(map[int64]domain.ConversationState, len(s.states))
	for k, v := range s.states {
		states[k] = v
	}
	prompts := make(map[int64]domain.PromptRecord, len(s.prompts))
	for k, v := range s.prompts {
		prompts[k] = v
	}
	return states, prompts
}

func (s *Store) replaceMaps(states map[int64]domain.ConversationState, prompts map[int64]domain.PromptRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = states
	s.prompts = prompts
}
