package domain

import "time"

// RejectedSentinel is the approval-marker value that encodes a rejected
// profile. Any other non-nil marker is the approving admin's ID.
const RejectedSentinel = "REJECTED"

// ApprovalState is derived from the profile's approval marker.
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// Profile is the durable per-user record in the external store. The store
// owns it; this core only reads it and applies workflow transitions.
type Profile struct {
	ID          string
	Email       string
	DisplayName string
	Role        Role
	ApprovedBy  *string // nil=pending, admin ID=approved, RejectedSentinel=rejected
	RejectedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApprovalState decodes the approval marker.
func (p *Profile) ApprovalState() ApprovalState {
	switch {
	case p.ApprovedBy == nil:
		return ApprovalPending
	case *p.ApprovedBy == RejectedSentinel:
		return ApprovalRejected
	default:
		return ApprovalApproved
	}
}

// Approved reports whether the marker encodes an approving admin.
func (p *Profile) Approved() bool {
	return p.ApprovalState() == ApprovalApproved
}

// ApprovalPatch describes a workflow transition applied to a profile.
// Marker is the new approval marker (nil clears it back to pending).
type ApprovalPatch struct {
	Marker          *string
	RejectedAt      *time.Time
	ClearRejectedAt bool
}
