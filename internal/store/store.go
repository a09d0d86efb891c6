// Package store persists sessions and their append-only turn logs. Two
// backends implement the same contract: SQLite for single-node deployments
// and Redis for shared ones.
package store

import (
	"context"

	"helmsman/internal/domain"
)

// Store is the session persistence contract.
//
// Turns are append-only; nothing ever rewrites a committed turn. AppendTurn
// is the single commit point for a completed exchange.
type Store interface {
	// GetOrCreate returns the session, creating an empty one if it does
	// not exist yet.
	GetOrCreate(ctx context.Context, sessionID string) (*domain.Session, error)

	// Get returns the session or domain.ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*domain.Session, error)

	// AppendTurn appends one completed exchange and bumps the turn count.
	AppendTurn(ctx context.Context, sessionID string, turn domain.Turn) error

	// Clear removes the session and its turns. Clearing a session that
	// does not exist is not an error.
	Clear(ctx context.Context, sessionID string) error

	Close() error
}
