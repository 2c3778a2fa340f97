package resource

import (
	"context"
	"time"
)

// Item request statuses. pending is the only non-terminal state.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// CreateItemRequest creates a request in the pending state; any
// client-supplied status is discarded.
func (svc *Service) CreateItemRequest(ctx context.Context, fields Fields) (Record, error) {
	if fields == nil {
		fields = Fields{}
	}
	fields = fields.Clone()
	fields[fldStatus] = RequestPending
	return svc.Create(ctx, ItemRequests, fields)
}

// ApproveItemRequest forces the request into the approved state. There is
// deliberately no guard on the prior state: re-approving an approved or
// rejected request succeeds and overwrites.
func (svc *Service) ApproveItemRequest(ctx context.Context, id, notes string) (Record, error) {
	return svc.Update(ctx, ItemRequests, id, Fields{
		fldStatus:        RequestApproved,
		"approval_notes": notes,
		"approved_at":    time.Now().UTC().Format(time.RFC3339),
	})
}

// RejectItemRequest forces the request into the rejected state; same
// permissive semantics as ApproveItemRequest.
func (svc *Service) RejectItemRequest(ctx context.Context, id, reason string) (Record, error) {
	return svc.Update(ctx, ItemRequests, id, Fields{
		fldStatus:          RequestRejected,
		"rejection_reason": reason,
		"rejected_at":      time.Now().UTC().Format(time.RFC3339),
	})
}

// PendingItemRequests is the default queue view, newest first.
func (svc *Service) PendingItemRequests(ctx context.Context) ([]Record, error) {
	return svc.List(ctx, ItemRequests, Filter{fldStatus: RequestPending}, nil, 0)
}
