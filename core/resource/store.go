package resource

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no record exists for a given id.
	ErrNotFound = errors.New("record not found")
)

// Ordering names a sort field and direction for Store.Find.
type Ordering struct {
	Field     string
	Ascending bool
}

func (ord Ordering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// Filter is an exact-match map over arbitrary fields, passed through
// verbatim to the store.
type Filter map[string]interface{}

// FindOptions tune a Find call. A zero Limit means unbounded.
type FindOptions struct {
	Sort  []Ordering
	Limit int
}

// Store is the document-store adapter contract. Records are versioned only
// by overwrite; no transactions are assumed.
type Store interface {
	Insert(ctx context.Context, collection string, rec Record) (Record, error)
	InsertMany(ctx context.Context, collection string, recs []Record) ([]Record, error)
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Record, error)
	FindByID(ctx context.Context, collection, id string) (Record, error)
	// Update replaces the stored record's fields and updated_at; created_at
	// and id are immutable. Returns ErrNotFound for an unknown id.
	Update(ctx context.Context, collection string, rec Record) (Record, error)
	// Delete is idempotent; deleting a non-existent id is not an error.
	Delete(ctx context.Context, collection, id string) error
}
