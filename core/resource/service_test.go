package resource_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shulehub/shule/core/resource"
	"github.com/shulehub/shule/storage/document/inmem"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

type notification struct {
	Title   string
	Message string
}

// captureNotifier records pushes synchronously so tests can assert on them.
type captureNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *captureNotifier) Push(ctx context.Context, title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{Title: title, Message: message})
}

func (n *captureNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

func newEngine() (*resource.Service, *inmem.Store, *captureNotifier) {
	store := inmem.NewStore()
	notifier := &captureNotifier{}
	auditor := resource.NewAuditor(store, nopLogger{})
	engine := resource.NewService(store, resource.NewHooks(auditor, notifier), nopLogger{})
	return engine, store, notifier
}

// settle keeps creation timestamps strictly ordered for sort assertions.
func settle() { time.Sleep(2 * time.Millisecond) }

func TestEngineCRUD(t *testing.T) {
	engine, _, _ := newEngine()
	ctx := context.Background()

	rec, err := engine.Create(ctx, resource.Students, resource.Fields{
		"name":  "Asha Mwangi",
		"class": "Form 2",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)

	got, err := engine.Get(ctx, resource.Students, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha Mwangi", got.Fields.String("name"))

	// partial update merges; omitted fields keep their old values
	settle()
	updated, err := engine.Update(ctx, resource.Students, rec.ID, resource.Fields{"class": "Form 3"})
	require.NoError(t, err)
	assert.Equal(t, "Asha Mwangi", updated.Fields.String("name"))
	assert.Equal(t, "Form 3", updated.Fields.String("class"))
	assert.Equal(t, rec.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(rec.UpdatedAt))

	_, err = engine.Get(ctx, resource.Students, "nope")
	assert.ErrorIs(t, err, resource.ErrNotFound)

	_, err = engine.Update(ctx, resource.Students, "nope", resource.Fields{"class": "Form 1"})
	assert.ErrorIs(t, err, resource.ErrNotFound)

	require.NoError(t, engine.Delete(ctx, resource.Students, rec.ID))
	_, err = engine.Get(ctx, resource.Students, rec.ID)
	assert.ErrorIs(t, err, resource.ErrNotFound)

	// deleting again is not an error
	assert.NoError(t, engine.Delete(ctx, resource.Students, rec.ID))
}

func TestEngineList(t *testing.T) {
	engine, _, _ := newEngine()
	ctx := context.Background()

	for _, f := range []resource.Fields{
		{"student_id": "s1", "status": "paid", "amount": 300},
		{"student_id": "s2", "status": "unpaid", "amount": 100},
		{"student_id": "s3", "status": "paid", "amount": 200},
	} {
		_, err := engine.Create(ctx, resource.Fees, f)
		require.NoError(t, err)
		settle()
	}

	// no match is an empty slice
	recs, err := engine.List(ctx, resource.Fees, resource.Filter{"status": "waived"}, nil, 0)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	// default ordering is newest first
	recs, err = engine.List(ctx, resource.Fees, nil, nil, 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "s3", recs[0].Fields.String("student_id"))
	assert.Equal(t, "s1", recs[2].Fields.String("student_id"))

	// exact-match filter
	recs, err = engine.List(ctx, resource.Fees, resource.Filter{"status": "paid"}, nil, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	// explicit sort
	recs, err = engine.List(ctx, resource.Fees, nil,
		[]resource.Ordering{{Field: "amount", Ascending: true}}, 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "s2", recs[0].Fields.String("student_id"))
	assert.Equal(t, "s1", recs[2].Fields.String("student_id"))

	// limit caps the result; zero means unbounded
	recs, err = engine.List(ctx, resource.Fees, nil, nil, 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestEngineBulkCreate(t *testing.T) {
	engine, _, _ := newEngine()
	ctx := context.Background()

	recs, err := engine.BulkCreate(ctx, resource.Attendance, []resource.Fields{
		{"student_id": "s1", "date": "2026-02-02", "present": true},
		{"student_id": "s2", "date": "2026-02-02", "present": false},
		{"student_id": "s3", "date": "2026-02-02", "present": true},
	})
	require.NoError(t, err)
	require.Len(t, recs, 3)

	seen := make(map[string]bool, len(recs))
	for _, rec := range recs {
		assert.NotEmpty(t, rec.ID)
		assert.False(t, seen[rec.ID])
		seen[rec.ID] = true
		assert.False(t, rec.CreatedAt.IsZero())
	}

	stored, err := engine.ListByField(ctx, resource.Attendance, "date", "2026-02-02")
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestSearchByName(t *testing.T) {
	engine, _, _ := newEngine()
	ctx := context.Background()

	for _, name := range []string{"Asha Mwangi", "Joseph Asha", "Grace Kimani"} {
		_, err := engine.Create(ctx, resource.Students, resource.Fields{"name": name})
		require.NoError(t, err)
	}

	recs, err := engine.SearchByName(ctx, resource.Students, "ASHA", 20)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	// cap applies
	recs, err = engine.SearchByName(ctx, resource.Students, "", 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = engine.SearchByName(ctx, resource.Students, "zzz", 20)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestLowStock(t *testing.T) {
	engine, _, _ := newEngine()
	ctx := context.Background()

	for _, f := range []resource.Fields{
		{"name": "Chalk", "quantity_in_stock": 5, "reorder_level": 10},
		{"name": "Pens", "quantity_in_stock": 50, "reorder_level": 10},
		{"name": "Rulers", "quantity_in_stock": 10, "reorder_level": 10},
	} {
		_, err := engine.Create(ctx, resource.StoreItems, f)
		require.NoError(t, err)
	}

	recs, err := engine.LowStock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		qty, ok := rec.Fields.Int("quantity_in_stock")
		require.True(t, ok)
		assert.LessOrEqual(t, qty, 10)
	}
}
