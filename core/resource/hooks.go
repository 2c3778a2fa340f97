package resource

import (
	"context"
	"fmt"
)

// Stock statuses derived for store items.
const (
	StatusInStock    = "In Stock"
	StatusLowStock   = "Low Stock"
	StatusOutOfStock = "Out of Stock"
)

// Assignment log actions.
const (
	ActionAssignClass   = "assign_class"
	ActionUnassignClass = "unassign_class"
	ActionReassign      = "reassign"
	ActionBedChange     = "bed_change"
)

// field names the hooks care about
const (
	fldName             = "name"
	fldStatus           = "status"
	fldQuantityInStock  = "quantity_in_stock"
	fldReorderLevel     = "reorder_level"
	fldTeacherID        = "teacher_id"
	fldRole             = "role"
	fldEmailConfirmed   = "email_confirmed"
	fldDormitoryID      = "dormitory_id"
	fldDormitory        = "dormitory"
	fldBedNumber        = "bed_number"
	fldCapacity         = "capacity"
	fldCurrentOccupancy = "current_occupancy"
)

type (
	// Hook intercepts the engine's update for one collection. Derive computes
	// the full field set to persist from the prior state and the client's
	// partial update; React runs after the write succeeded and may append
	// audit entries or emit notifications. React must not fail the parent
	// mutation: implementations report their own errors to a logger.
	Hook interface {
		Derive(before Record, partial Fields) Fields
		React(ctx context.Context, before, after Record)
	}

	// CreateDeriver is implemented by hooks whose derivation also applies on
	// create.
	CreateDeriver interface {
		DeriveCreate(fields Fields) Fields
	}

	// Notifier fans a message out to push subscribers without blocking the
	// caller.
	Notifier interface {
		Push(ctx context.Context, title, message string)
	}
)

// NewHooks builds the hook registry: the explicit map from collection
// identity to its side-effect behavior, resolved once at startup.
func NewHooks(auditor *Auditor, notifier Notifier) map[string]Hook {
	return map[string]Hook{
		StoreItems:  &storeItemHook{notifier: notifier},
		Classes:     &classHook{auditor: auditor},
		Users:       &userHook{},
		Students:    &studentHook{auditor: auditor, notifier: notifier},
		Dormitories: &dormitoryHook{auditor: auditor},
	}
}

// mergeDerive is the default derivation: overlay the partial update on the
// prior fields, defaulting any omitted field to its old value.
type mergeDerive struct{}

func (mergeDerive) Derive(before Record, partial Fields) Fields {
	return before.Fields.Merge(partial)
}

// storeItemHook keeps a store item's status the pure function of its
// quantity and reorder level; client-supplied status never survives.
type storeItemHook struct {
	notifier Notifier
}

func (h *storeItemHook) Derive(before Record, partial Fields) Fields {
	return h.DeriveCreate(before.Fields.Merge(partial))
}

func (h *storeItemHook) DeriveCreate(fields Fields) Fields {
	qty, _ := fields.Int(fldQuantityInStock)
	reorder, _ := fields.Int(fldReorderLevel)
	derived := fields.Clone()
	derived[fldStatus] = StockStatus(qty, reorder)
	return derived
}

func (h *storeItemHook) React(ctx context.Context, before, after Record) {
	status := after.Fields.String(fldStatus)
	if status == StatusInStock {
		return
	}
	qty, _ := after.Fields.Int(fldQuantityInStock)
	h.notifier.Push(ctx,
		"Store Alert: "+status,
		fmt.Sprintf("%s is %s (qty: %d)", after.Fields.String(fldName), status, qty),
	)
}

// StockStatus derives a store item's status from its quantity and reorder
// level: qty <= 0 is out of stock, qty <= reorder is low, anything else is
// in stock.
func StockStatus(qty, reorderLevel int) string {
	switch {
	case qty <= 0:
		return StatusOutOfStock
	case qty <= reorderLevel:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// classHook logs teacher reassignments. A partial update that omits
// teacher_id never triggers a log: the merged value defaults to the old one.
type classHook struct {
	mergeDerive
	auditor *Auditor
}

func (h *classHook) React(ctx context.Context, before, after Record) {
	from, to := before.Fields[fldTeacherID], after.Fields[fldTeacherID]
	if eqValue(from, to) {
		return
	}
	action := ActionAssignClass
	if to == nil {
		action = ActionUnassignClass
	}
	h.auditor.LogAssignment(ctx, Fields{
		"class_id":        before.ID,
		"class_name":      after.Fields.String(fldName),
		"from_teacher_id": from,
		"to_teacher_id":   to,
		"action":          action,
		"changed_by":      ActorFromContext(ctx),
	})
}

// userHook cascades activation: confirming a teacher's email activates the
// account in the same write.
type userHook struct{}

func (h *userHook) Derive(before Record, partial Fields) Fields {
	merged := before.Fields.Merge(partial)
	wasConfirmed := before.Fields.Bool(fldEmailConfirmed)
	if merged.String(fldRole) == "teacher" && merged.Bool(fldEmailConfirmed) && !wasConfirmed {
		merged[fldStatus] = "active"
	}
	return merged
}

func (h *userHook) React(ctx context.Context, before, after Record) {}

// studentHook logs dormitory and bed reassignments and notifies subscribers.
type studentHook struct {
	mergeDerive
	auditor  *Auditor
	notifier Notifier
}

func (h *studentHook) React(ctx context.Context, before, after Record) {
	fromDorm := dormValue(before.Fields)
	toDorm := dormValue(after.Fields)
	fromBed := before.Fields[fldBedNumber]
	toBed := after.Fields[fldBedNumber]

	dormChanged := !eqValue(fromDorm, toDorm)
	bedChanged := !eqValue(fromBed, toBed)
	if !dormChanged && !bedChanged {
		return
	}

	action := ActionBedChange
	if dormChanged {
		action = ActionReassign
	}
	name := after.Fields.String(fldName)
	h.auditor.LogAssignment(ctx, Fields{
		"student_id":     before.ID,
		"student_name":   name,
		"from_dormitory": fromDorm,
		"to_dormitory":   toDorm,
		"from_bed":       fromBed,
		"to_bed":         toBed,
		"action":         action,
		"changed_by":     ActorFromContext(ctx),
	})
	h.notifier.Push(ctx,
		"Dormitory Update",
		fmt.Sprintf("%s assigned to dormitory %v, bed %v", name, toDorm, toBed),
	)
}

// dormValue reads whichever dormitory key the client uses.
func dormValue(f Fields) interface{} {
	if f.IsSet(fldDormitoryID) {
		return f[fldDormitoryID]
	}
	return f[fldDormitory]
}

// dormitoryHook snapshots occupancy on every update, changed or not.
type dormitoryHook struct {
	mergeDerive
	auditor *Auditor
}

func (h *dormitoryHook) React(ctx context.Context, before, after Record) {
	h.auditor.SnapshotOccupancy(ctx, after)
}
