package run

import "context"

// Repository defines the interface for run record persistence.
type Repository interface {
	// Save inserts or replaces a record by ID.
	Save(ctx context.Context, record *Record) error

	// FindByID retrieves a record. Returns ErrRunNotFound if absent.
	FindByID(ctx context.Context, id string) (*Record, error)

	// FindRecent returns up to limit records, newest first.
	FindRecent(ctx context.Context, limit int) ([]*Record, error)
}
