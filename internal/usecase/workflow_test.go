package usecase

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"identity-hub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingProfile(id string) *domain.Profile {
	return &domain.Profile{
		ID:        id,
		Email:     id + "@example.com",
		Role:      domain.RoleUser,
		CreatedAt: time.Now(),
	}
}

func TestApprovalWorkflow_ApproveIsIdempotent(t *testing.T) {
	profiles := newMockProfiles()
	profiles.profiles["user-1"] = pendingProfile("user-1")
	uc := NewApprovalWorkflow(profiles, slog.Default())
	ctx := context.Background()

	require.NoError(t, uc.Approve(ctx, "user-1", "admin-1"))

	// Duplicate admin action: distinguishable no-op, not a double-apply
	err := uc.Approve(ctx, "user-1", "admin-2")
	assert.True(t, errors.Is(err, domain.ErrAlreadyApproved))
	assert.True(t, errors.Is(err, domain.ErrPreconditionFailed))

	profile, getErr := profiles.GetProfile(ctx, "user-1")
	require.NoError(t, getErr)
	require.NotNil(t, profile.ApprovedBy)
	assert.Equal(t, "admin-1", *profile.ApprovedBy, "first admin's approval stands")
}

func TestApprovalWorkflow_RejectThenReapplyRestoresPending(t *testing.T) {
	profiles := newMockProfiles()
	profiles.profiles["user-1"] = pendingProfile("user-1")
	uc := NewApprovalWorkflow(profiles, slog.Default())
	ctx := context.Background()

	require.NoError(t, uc.Reject(ctx, "user-1"))

	profile, err := profiles.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, profile.ApprovalState())
	assert.NotNil(t, profile.RejectedAt)

	require.NoError(t, uc.Reapply(ctx, "user-1"))

	profile, err = profiles.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalPending, profile.ApprovalState())
	assert.Nil(t, profile.RejectedAt, "reapply clears the rejection timestamp")
}

func TestApprovalWorkflow_ApproveRejectedUserFails(t *testing.T) {
	profiles := newMockProfiles()
	profiles.profiles["user-1"] = pendingProfile("user-1")
	uc := NewApprovalWorkflow(profiles, slog.Default())
	ctx := context.Background()

	require.NoError(t, uc.Reject(ctx, "user-1"))

	err := uc.Approve(ctx, "user-1", "admin-1")
	assert.True(t, errors.Is(err, domain.ErrAlreadyRejected))
}

func TestApprovalWorkflow_ReapplyPendingUserFails(t *testing.T) {
	profiles := newMockProfiles()
	profiles.profiles["user-1"] = pendingProfile("user-1")
	uc := NewApprovalWorkflow(profiles, slog.Default())

	err := uc.Reapply(context.Background(), "user-1")
	assert.True(t, errors.Is(err, domain.ErrNotRejected))
}

func TestApprovalWorkflow_UnknownUser(t *testing.T) {
	uc := NewApprovalWorkflow(newMockProfiles(), slog.Default())

	err := uc.Approve(context.Background(), "ghost", "admin-1")
	assert.True(t, errors.Is(err, domain.ErrProfileNotFound))
}

func TestApprovalWorkflow_RejectApprovedUserFails(t *testing.T) {
	profiles := newMockProfiles()
	profiles.profiles["user-1"] = pendingProfile("user-1")
	uc := NewApprovalWorkflow(profiles, slog.Default())
	ctx := context.Background()

	require.NoError(t, uc.Approve(ctx, "user-1", "admin-1"))

	err := uc.Reject(ctx, "user-1")
	assert.True(t, errors.Is(err, domain.ErrAlreadyApproved))
}

func TestApprovalWorkflow_PendingUsers(t *testing.T) {
	profiles := newMockProfiles()
	profiles.profiles["user-1"] = pendingProfile("user-1")
	profiles.profiles["user-2"] = pendingProfile("user-2")
	adminID := "admin-1"
	approved := pendingProfile("user-3")
	approved.ApprovedBy = &adminID
	profiles.profiles["user-3"] = approved

	uc := NewApprovalWorkflow(profiles, slog.Default())

	pending, err := uc.PendingUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	for _, p := range pending {
		assert.Equal(t, domain.ApprovalPending, p.ApprovalState())
	}
}
