package wallet

import "context"

// Repository is the durable wallet registry.
//
// Get returns (nil, nil) when the user has no record. Upsert inserts or
// replaces the record keyed by UserID atomically and never lets updated_at
// go backwards. List returns every record, newest first.
type Repository interface {
	Get(ctx context.Context, userID int64) (*Record, error)
	Upsert(ctx context.Context, r *Record) error
	List(ctx context.Context) ([]Record, error)
	Ping(ctx context.Context) error
}
