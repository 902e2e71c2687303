package domain

import "context"

// PickTicketRunRepository defines the interface for run archive persistence
type PickTicketRunRepository interface {
	// Save persists a run together with its pending domain events
	Save(ctx context.Context, run *PickTicketRun) error

	// FindByRunID retrieves a run by its ID; ErrRunNotFound if absent
	FindByRunID(ctx context.Context, runID string) (*PickTicketRun, error)

	// FindRecent retrieves runs newest first, without their row sets
	FindRecent(ctx context.Context, offset, limit int64) ([]*PickTicketRun, error)

	// Count returns the number of archived runs
	Count(ctx context.Context) (int64, error)
}
