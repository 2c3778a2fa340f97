package resource

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core"
)

// defaultSort is descending creation order.
var defaultSort = []Ordering{{Field: keyCreatedAt, Ascending: false}}

// Service is the generic engine behind every collection. It owns no record
// state; all of it lives in the Store.
type Service struct {
	store  Store
	hooks  map[string]Hook
	logger core.Logger
}

func NewService(store Store, hooks map[string]Hook, logger core.Logger) *Service {
	return &Service{store: store, hooks: hooks, logger: logger}
}

// List returns matching records, newest first unless sort says otherwise.
// No match is an empty slice, not an error.
func (svc *Service) List(ctx context.Context, coll string, filter Filter, sort []Ordering, limit int) ([]Record, error) {
	if len(sort) == 0 {
		sort = defaultSort
	}
	recs, err := svc.store.Find(ctx, coll, filter, FindOptions{Sort: sort, Limit: limit})
	if err != nil {
		return nil, errors.Wrapf(err, "finding %s", coll)
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

func (svc *Service) Get(ctx context.Context, coll, id string) (Record, error) {
	return svc.store.FindByID(ctx, coll, id)
}

// Create assigns id and timestamps, runs any create-time derivation for the
// collection and persists. The engine itself validates no field shapes;
// store rejections surface as ValidationError upstream.
func (svc *Service) Create(ctx context.Context, coll string, fields Fields) (Record, error) {
	if fields == nil {
		fields = Fields{}
	}
	if h, ok := svc.hooks[coll]; ok {
		if cd, ok := h.(CreateDeriver); ok {
			fields = cd.DeriveCreate(fields)
		}
	}
	now := time.Now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec, err := svc.store.Insert(ctx, coll, rec)
	if err != nil {
		return Record{}, errors.Wrapf(err, "inserting into %s", coll)
	}
	return rec, nil
}

// Update merges partial into the existing record and bumps updated_at.
// For hooked collections this is the interception point: the hook derives
// the effective field set before the write and reacts after it. Hook
// reactions (audit entries, notifications) never fail the update.
func (svc *Service) Update(ctx context.Context, coll, id string, partial Fields) (Record, error) {
	before, err := svc.store.FindByID(ctx, coll, id)
	if err != nil {
		return Record{}, err
	}

	hook := svc.hooks[coll]
	merged := before.Fields.Merge(partial)
	if hook != nil {
		merged = hook.Derive(before, partial)
	}

	rec := before
	rec.Fields = merged
	rec.UpdatedAt = time.Now().UTC()
	rec, err = svc.store.Update(ctx, coll, rec)
	if err != nil {
		return Record{}, errors.Wrapf(err, "updating %s/%s", coll, id)
	}

	if hook != nil {
		hook.React(ctx, before, rec)
	}
	return rec, nil
}

func (svc *Service) Delete(ctx context.Context, coll, id string) error {
	return svc.store.Delete(ctx, coll, id)
}

// BulkCreate inserts an ordered sequence of records in one call, each
// stamped with its own timestamps.
func (svc *Service) BulkCreate(ctx context.Context, coll string, fieldSets []Fields) ([]Record, error) {
	recs := make([]Record, 0, len(fieldSets))
	for _, fields := range fieldSets {
		if fields == nil {
			fields = Fields{}
		}
		now := time.Now().UTC()
		recs = append(recs, Record{
			ID:        uuid.NewString(),
			Fields:    fields,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	recs, err := svc.store.InsertMany(ctx, coll, recs)
	if err != nil {
		return nil, errors.Wrapf(err, "bulk inserting into %s", coll)
	}
	return recs, nil
}

// SearchByName does a case-insensitive substring match on the name field,
// capped at max results. Layered on List; the store only knows exact match.
func (svc *Service) SearchByName(ctx context.Context, coll, q string, max int) ([]Record, error) {
	recs, err := svc.List(ctx, coll, nil, nil, 0)
	if err != nil {
		return nil, err
	}
	q = strings.ToLower(core.CleanString(q))
	out := make([]Record, 0, max)
	for _, rec := range recs {
		if q == "" || strings.Contains(strings.ToLower(rec.Fields.String("name")), q) {
			out = append(out, rec)
			if max > 0 && len(out) >= max {
				break
			}
		}
	}
	return out, nil
}

// ListByField is the foreign-key scoped listing (fees by student, marks by
// class, ...).
func (svc *Service) ListByField(ctx context.Context, coll, field, value string) ([]Record, error) {
	return svc.List(ctx, coll, Filter{field: value}, nil, 0)
}

// LowStock lists store items with quantity_in_stock <= threshold.
func (svc *Service) LowStock(ctx context.Context, threshold int) ([]Record, error) {
	recs, err := svc.List(ctx, StoreItems, nil, nil, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if qty, ok := rec.Fields.Int(fldQuantityInStock); ok && qty <= threshold {
			out = append(out, rec)
		}
	}
	return out, nil
}
