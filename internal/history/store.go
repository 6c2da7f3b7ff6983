package history

import "context"

// Store persists history entries. Append-only: implementations expose no
// update or delete.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	Query(ctx context.Context, filter Filter) ([]Entry, error)
}
