package history

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"gemini-relay/internal/domain"
)

// Memory is a process-local history store. It tracks at most maxChats chats,
// evicting the least recently used, and at most maxTurns turns per chat.
type Memory struct {
	chats    *lru.Cache[int64, []domain.Turn]
	maxTurns int
}

func NewMemory(maxChats, maxTurns int) (*Memory, error) {
	if maxChats <= 0 {
		maxChats = DefaultMaxChats
	}
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	cache, err := lru.New[int64, []domain.Turn](maxChats)
	if err != nil {
		return nil, fmt.Errorf("history: create lru: %w", err)
	}
	return &Memory{chats: cache, maxTurns: maxTurns}, nil
}

// Load returns a copy of the chat's turns, or nil for an unknown chat.
func (m *Memory) Load(_ context.Context, chatID int64) ([]domain.Turn, error) {
	turns, ok := m.chats.Get(chatID)
	if !ok {
		return nil, nil
	}
	return append([]domain.Turn(nil), turns...), nil
}

func (m *Memory) Save(_ context.Context, chatID int64, turns []domain.Turn) error {
	m.chats.Add(chatID, Trim(turns, m.maxTurns))
	return nil
}

func (m *Memory) Delete(_ context.Context, chatID int64) error {
	m.chats.Remove(chatID)
	return nil
}

// Len reports how many chats are tracked.
func (m *Memory) Len() int {
	return m.chats.Len()
}
