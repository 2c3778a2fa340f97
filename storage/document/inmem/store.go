// Package inmem is a document store kept in process memory, used by tests
// and local development.
package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shulehub/shule/core/resource"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]resource.Record
}

var _ resource.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{collections: make(map[string]map[string]resource.Record)}
}

// collection get-or-creates the named bucket. Callers hold the lock.
func (s *Store) collection(name string) map[string]resource.Record {
	coll, ok := s.collections[name]
	if !ok {
		coll = make(map[string]resource.Record)
		s.collections[name] = coll
	}
	return coll
}

func clone(rec resource.Record) resource.Record {
	rec.Fields = rec.Fields.Clone()
	return rec
}

func (s *Store) Insert(ctx context.Context, collection string, rec resource.Record) (resource.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection(collection)[rec.ID] = clone(rec)
	return rec, nil
}

func (s *Store) InsertMany(ctx context.Context, collection string, recs []resource.Record) ([]resource.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collection(collection)
	for _, rec := range recs {
		coll[rec.ID] = clone(rec)
	}
	return recs, nil
}

func (s *Store) Find(ctx context.Context, collection string, filter resource.Filter, opts resource.FindOptions) ([]resource.Record, error) {
	s.mu.RLock()
	recs := make([]resource.Record, 0, len(s.collections[collection]))
	for _, rec := range s.collections[collection] {
		if matches(rec, filter) {
			recs = append(recs, clone(rec))
		}
	}
	s.mu.RUnlock()

	for i := len(opts.Sort) - 1; i >= 0; i-- {
		ord := opts.Sort[i]
		sort.SliceStable(recs, func(a, b int) bool {
			less := fieldKey(recs[a], ord.Field) < fieldKey(recs[b], ord.Field)
			if ord.Ascending {
				return less
			}
			return fieldKey(recs[b], ord.Field) < fieldKey(recs[a], ord.Field)
		})
	}
	if opts.Limit > 0 && len(recs) > opts.Limit {
		recs = recs[:opts.Limit]
	}
	return recs, nil
}

func (s *Store) FindByID(ctx context.Context, collection, id string) (resource.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.collections[collection][id]; ok {
		return clone(rec), nil
	}
	return resource.Record{}, resource.ErrNotFound
}

func (s *Store) Update(ctx context.Context, collection string, rec resource.Record) (resource.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orig, ok := s.collections[collection][rec.ID]
	if !ok {
		return resource.Record{}, resource.ErrNotFound
	}
	// id and created_at are immutable
	rec.CreatedAt = orig.CreatedAt
	s.collections[collection][rec.ID] = clone(rec)
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

func matches(rec resource.Record, filter resource.Filter) bool {
	for k, want := range filter {
		got, ok := rec.Fields[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// fieldKey renders a sortable key for a record field; timestamps sort by
// their RFC3339 rendering, numbers are zero-padded.
func fieldKey(rec resource.Record, field string) string {
	switch field {
	case "created_at":
		return rec.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000000Z") + rec.ID
	case "updated_at":
		return rec.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000000000Z") + rec.ID
	}
	switch v := rec.Fields[field].(type) {
	case float64:
		return fmt.Sprintf("%020.6f", v)
	case int:
		return fmt.Sprintf("%020.6f", float64(v))
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
