package eventstore

import "context"

// Store defines the interface for persisting and retrieving sync records.
type Store interface {
	// Append adds a record; ID is assigned by the store and Timestamp defaults to now.
	Append(ctx context.Context, rec Record) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// ByRepository returns up to limit records for a working copy path, newest first.
	ByRepository(ctx context.Context, path string, limit int) ([]Record, error)

	// Close closes the store and releases resources.
	Close() error
}

// NopStore discards records (history disabled).
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error                        { return nil }
func (NopStore) Recent(context.Context, int) ([]Record, error)               { return nil, nil }
func (NopStore) ByRepository(context.Context, string, int) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                                { return nil }
