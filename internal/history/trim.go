// Package history stores per-chat conversation turns.
package history

import "gemini-relay/internal/domain"

const (
	DefaultMaxTurns = 50
	DefaultMaxChats = 1000

	// MinTurns is the smallest window that still holds one question and its
	// answer besides a leading system turn.
	MinTurns = 2
)

// Trim keeps at most maxTurns turns, dropping the oldest first. A leading
// system turn is always kept, and the retained window never starts with an
// assistant turn whose question was dropped. Besides the system turn at least
// MinTurns turns survive, so the latest exchange is never lost to a small
// cap. The result never aliases turns.
func Trim(turns []domain.Turn, maxTurns int) []domain.Turn {
	if maxTurns <= 0 || len(turns) <= maxTurns {
		return append([]domain.Turn(nil), turns...)
	}

	var head []domain.Turn
	rest := turns
	if turns[0].Role == domain.RoleSystem {
		head = turns[:1]
		rest = turns[1:]
		maxTurns--
	}
	maxTurns = max(maxTurns, MinTurns)
	tail := rest
	if len(rest) > maxTurns {
		tail = rest[len(rest)-maxTurns:]
	}
	for len(tail) > 0 && tail[0].Role == domain.RoleAssistant {
		tail = tail[1:]
	}

	out := make([]domain.Turn, 0, len(head)+len(tail))
	out = append(out, head...)
	return append(out, tail...)
}
