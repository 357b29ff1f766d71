package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"identity-hub/internal/domain"
)

// pendingPageSize bounds the pending-users listing.
const pendingPageSize = 50

// ApprovalWorkflow applies the legal approval-marker transitions:
// pending → approved, pending → rejected, rejected → pending (reapply).
// Every transition is a conditional update so concurrent duplicate admin
// actions become distinguishable no-ops instead of double-applies.
type ApprovalWorkflow struct {
	profiles domain.ProfileStore
	logger   *slog.Logger
}

// NewApprovalWorkflow creates a new ApprovalWorkflow usecase.
func NewApprovalWorkflow(profiles domain.ProfileStore, logger *slog.Logger) *ApprovalWorkflow {
	return &ApprovalWorkflow{profiles: profiles, logger: logger}
}

// Approve marks a pending user approved by adminID.
func (uc *ApprovalWorkflow) Approve(ctx context.Context, userID, adminID string) error {
	affected, err := uc.profiles.UpdateApproval(ctx, userID,
		domain.ApprovalPatch{Marker: &adminID}, domain.ApprovalPending)
	if err != nil {
		return err
	}
	if affected == 0 {
		return uc.refinePrecondition(ctx, userID, domain.ApprovalPending)
	}
	uc.logger.InfoContext(ctx, "user approved", "user_id", userID, "admin_id", adminID)
	return nil
}

// Reject marks a pending user rejected and stamps the rejection time.
func (uc *ApprovalWorkflow) Reject(ctx context.Context, userID string) error {
	marker := domain.RejectedSentinel
	now := time.Now()
	affected, err := uc.profiles.UpdateApproval(ctx, userID,
		domain.ApprovalPatch{Marker: &marker, RejectedAt: &now}, domain.ApprovalPending)
	if err != nil {
		return err
	}
	if affected == 0 {
		return uc.refinePrecondition(ctx, userID, domain.ApprovalPending)
	}
	uc.logger.InfoContext(ctx, "user rejected", "user_id", userID)
	return nil
}

// Reapply moves a rejected user back to pending, clearing the rejection
// timestamp.
func (uc *ApprovalWorkflow) Reapply(ctx context.Context, userID string) error {
	affected, err := uc.profiles.UpdateApproval(ctx, userID,
		domain.ApprovalPatch{Marker: nil, ClearRejectedAt: true}, domain.ApprovalRejected)
	if err != nil {
		return err
	}
	if affected == 0 {
		return uc.refinePrecondition(ctx, userID, domain.ApprovalRejected)
	}
	uc.logger.InfoContext(ctx, "user reapplied", "user_id", userID)
	return nil
}

// PendingUsers lists profiles awaiting approval, newest first.
func (uc *ApprovalWorkflow) PendingUsers(ctx context.Context) ([]domain.Profile, error) {
	return uc.profiles.ListPending(ctx, pendingPageSize)
}

// refinePrecondition turns a zero-row conditional update into the specific
// outcome: the user does not exist, or the marker already transitioned.
func (uc *ApprovalWorkflow) refinePrecondition(ctx context.Context, userID string, expected domain.ApprovalState) error {
	profile, err := uc.profiles.GetProfile(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return domain.ErrProfileNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: state could not be determined", domain.ErrPreconditionFailed)
	}

	switch profile.ApprovalState() {
	case domain.ApprovalApproved:
		return domain.ErrAlreadyApproved
	case domain.ApprovalRejected:
		return domain.ErrAlreadyRejected
	case domain.ApprovalPending:
		if expected == domain.ApprovalRejected {
			return domain.ErrNotRejected
		}
	}
	return domain.ErrPreconditionFailed
}
