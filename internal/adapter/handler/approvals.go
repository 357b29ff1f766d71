package handler

import (
	"log/slog"
	"net/http"
	"time"

	"identity-hub/internal/usecase"

	"github.com/labstack/echo/v4"
)

// adminIDHeader carries the acting admin's user ID on internal approval calls.
const adminIDHeader = "X-Admin-Id"

// ApprovalHandler handles the internal approval-workflow endpoints.
type ApprovalHandler struct {
	uc *usecase.ApprovalWorkflow
}

// NewApprovalHandler creates a new approval handler.
func NewApprovalHandler(uc *usecase.ApprovalWorkflow) *ApprovalHandler {
	return &ApprovalHandler{uc: uc}
}

// HandleApprove processes POST /admin/approvals/:id/approve.
func (h *ApprovalHandler) HandleApprove(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("id")
	adminID := c.Request().Header.Get(adminIDHeader)
	if adminID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "acting admin ID required")
	}

	if err := h.uc.Approve(ctx, userID, adminID); err != nil {
		slog.WarnContext(ctx, "approve failed", "user_id", userID, "error", err)
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// HandleReject processes POST /admin/approvals/:id/reject.
func (h *ApprovalHandler) HandleReject(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("id")

	if err := h.uc.Reject(ctx, userID); err != nil {
		slog.WarnContext(ctx, "reject failed", "user_id", userID, "error", err)
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// HandleReapply processes POST /admin/approvals/:id/reapply.
func (h *ApprovalHandler) HandleReapply(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("id")

	if err := h.uc.Reapply(ctx, userID); err != nil {
		slog.WarnContext(ctx, "reapply failed", "user_id", userID, "error", err)
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// pendingUser represents one entry in the pending-approvals listing.
type pendingUser struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HandlePending processes GET /admin/approvals/pending.
func (h *ApprovalHandler) HandlePending(c echo.Context) error {
	ctx := c.Request().Context()

	profiles, err := h.uc.PendingUsers(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "pending listing failed", "error", err)
		return mapDomainError(err)
	}

	users := make([]pendingUser, 0, len(profiles))
	for _, p := range profiles {
		users = append(users, pendingUser{
			ID:          p.ID,
			Email:       p.Email,
			DisplayName: p.DisplayName,
			CreatedAt:   p.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, map[string][]pendingUser{"users": users})
}
