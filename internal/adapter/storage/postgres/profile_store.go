package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"identity-hub/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProfileStore implements domain.ProfileStore for PostgreSQL.
type ProfileStore struct {
	db     DB
	logger *slog.Logger
}

// NewProfileStore creates a new PostgreSQL profile store.
func NewProfileStore(db DB, logger *slog.Logger) *ProfileStore {
	return &ProfileStore{
		db:     db,
		logger: logger.With("component", "profile_store"),
	}
}

const profileColumns = `id, email, display_name, role, approved_by, rejected_at, created_at, updated_at`

// GetProfile fetches one profile row. Role normalization happens here, the
// single ingestion point.
func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	profile, err := scanProfile(s.db.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		s.logger.Error("profile lookup failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrProfileUnavailable, err)
	}
	return profile, nil
}

// UpdateApproval applies patch only where the profile's current approval
// state equals expect. Zero rows affected means the precondition did not
// hold — the caller decides what that means.
func (s *ProfileStore) UpdateApproval(ctx context.Context, userID string, patch domain.ApprovalPatch, expect domain.ApprovalState) (int64, error) {
	condition, err := approvalCondition(expect)
	if err != nil {
		return 0, err
	}

	query := `UPDATE profiles SET approved_by = $2, updated_at = now() WHERE id = $1 AND ` + condition
	args := []any{userID, patch.Marker}

	if patch.RejectedAt != nil || patch.ClearRejectedAt {
		query = `UPDATE profiles SET approved_by = $2, rejected_at = $3, updated_at = now() WHERE id = $1 AND ` + condition
		if patch.ClearRejectedAt {
			args = append(args, nil)
		} else {
			args = append(args, patch.RejectedAt)
		}
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		s.logger.Error("approval update failed", "user_id", userID, "error", err)
		return 0, fmt.Errorf("%w: %w", domain.ErrProfileUnavailable, err)
	}
	return tag.RowsAffected(), nil
}

// ListPending returns pending profiles, newest first, bounded to limit.
func (s *ProfileStore) ListPending(ctx context.Context, limit int) ([]domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles
		WHERE approved_by IS NULL
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProfileUnavailable, err)
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrProfileUnavailable, err)
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProfileUnavailable, err)
	}
	return profiles, nil
}

// approvalCondition translates an expected state into its marker predicate.
func approvalCondition(expect domain.ApprovalState) (string, error) {
	switch expect {
	case domain.ApprovalPending:
		return `approved_by IS NULL`, nil
	case domain.ApprovalRejected:
		return fmt.Sprintf(`approved_by = '%s'`, domain.RejectedSentinel), nil
	case domain.ApprovalApproved:
		return fmt.Sprintf(`approved_by IS NOT NULL AND approved_by <> '%s'`, domain.RejectedSentinel), nil
	default:
		return "", fmt.Errorf("unknown approval state %q", expect)
	}
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var role string
	if err := row.Scan(&p.ID, &p.Email, &p.DisplayName, &role, &p.ApprovedBy,
		&p.RejectedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Role = domain.NormalizeRole(role)
	return &p, nil
}
