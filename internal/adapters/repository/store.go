// Package repository persists the assignments of a report run.
package repository

import (
	"context"

	"github.com/okian/demoreport/internal/domain/model"
)

// Store holds every normalized assignment of a run, before deduplication.
type Store interface {
	// SaveAssignments replaces the stored assignments with recs.
	SaveAssignments(ctx context.Context, runID string, recs []model.NormalizedRecord) error

	// Count returns the number of stored assignments.
	Count(ctx context.Context) (int, error)

	Close() error
}
