// Package repository defines the score store contract and its in-memory
// implementation.
package repository

import (
	"context"

	"github.com/oxbane/podium/internal/domain/model"
)

// Store provides read/write access to score records.
//
// MarkResolved is the only mutation with a strict atomicity guarantee: two
// concurrent resolutions of the same score yield exactly one success and
// one ErrConflict. All operations fail fast when ctx is done instead of
// blocking the caller.
type Store interface {
	// Create validates and persists a new pending score, assigning its id
	// and creation time. Returns ErrValidation on malformed or inconsistent
	// input, including a parent that is missing or is itself a sub-score.
	Create(ctx context.Context, s model.Score) (model.Score, error)

	// Get returns a score by id, or ErrNotFound.
	Get(ctx context.Context, id string) (model.Score, error)

	// List returns all scores matching the filter, ordered by creation time
	// then id for determinism.
	List(ctx context.Context, f model.ScoreFilter) ([]model.Score, error)

	// MarkResolved applies a terminal resolution to a pending score under a
	// guarded state transition. Returns ErrNotFound for an unknown id and
	// ErrConflict when the score is no longer pending.
	MarkResolved(ctx context.Context, id string, res model.Resolution) (model.Score, error)

	// Count returns the number of score records held.
	Count(ctx context.Context) int
}
