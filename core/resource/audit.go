package resource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shulehub/shule/core"
)

type actorCtxKey struct{}

// WithActor attaches the acting user's identity for audit attribution.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, actor)
}

// ActorFromContext returns the acting user, or "" when unauthenticated.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorCtxKey{}).(string)
	return actor
}

// exportColumns is the fixed CSV layout of the assignments export.
var exportColumns = []string{
	"timestamp", "student_id", "student_name", "action",
	"from_dormitory", "to_dormitory", "from_bed", "to_bed", "changed_by",
}

const exportMaxRows = 1000

// Auditor appends immutable records into the append-only history
// collections. It never updates or deletes existing entries, and its write
// failures never propagate: the parent mutation already succeeded and is
// not rolled back. This is an at-most-once audit trail, not a transactional
// one.
type Auditor struct {
	store  Store
	logger core.Logger
}

func NewAuditor(store Store, logger core.Logger) *Auditor {
	return &Auditor{store: store, logger: logger}
}

func (a *Auditor) append(ctx context.Context, coll string, fields Fields) {
	now := time.Now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := a.store.Insert(ctx, coll, rec); err != nil {
		a.logger.Error(fmt.Sprintf("audit: appending to %s: %v", coll, err), err)
	}
}

// LogAssignment appends one reassignment entry.
func (a *Auditor) LogAssignment(ctx context.Context, entry Fields) {
	a.append(ctx, AssignmentLogs, entry)
}

// SnapshotOccupancy captures a dormitory's post-update capacity and
// occupancy.
func (a *Auditor) SnapshotOccupancy(ctx context.Context, dorm Record) {
	capacity, _ := dorm.Fields.Int(fldCapacity)
	occupancy, _ := dorm.Fields.Int(fldCurrentOccupancy)
	a.append(ctx, OccupancySnapshots, Fields{
		"dormitory_id":      dorm.ID,
		"dormitory_name":    dorm.Fields.String(fldName),
		fldCapacity:         capacity,
		fldCurrentOccupancy: occupancy,
	})
}

// ExportAssignments renders the assignment log as CSV, newest first, capped
// at 1000 rows. Every value is quoted.
func (a *Auditor) ExportAssignments(ctx context.Context) (string, error) {
	recs, err := a.store.Find(ctx, AssignmentLogs, nil, FindOptions{
		Sort:  []Ordering{{Field: keyCreatedAt, Ascending: false}},
		Limit: exportMaxRows,
	})
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(recs)+1)
	lines = append(lines, quoteRow(exportColumns))
	for _, rec := range recs {
		row := make([]string, 0, len(exportColumns))
		row = append(row, rec.CreatedAt.UTC().Format(time.RFC3339))
		for _, col := range exportColumns[1:] {
			row = append(row, stringValue(rec.Fields[col]))
		}
		lines = append(lines, quoteRow(row))
	}
	return strings.Join(lines, "\n"), nil
}

func quoteRow(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

func stringValue(v interface{}) string {
	if v == nil {
		return ""
	}
	if f, ok := toFloat(v); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(v)
}
