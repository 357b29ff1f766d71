package handler

import (
	"context"
	"log/slog"
	"time"

	"identity-hub/internal/domain"
	"identity-hub/internal/infrastructure/cache"
	"identity-hub/internal/usecase"
)

// stubProvider implements domain.IdentityProvider with canned responses.
type stubProvider struct {
	session *domain.Session
	user    *domain.ProviderUser

	signInErr  error
	signOutErr error

	signOutCalls int
}

func (s *stubProvider) SignIn(context.Context, string, string) (*domain.Session, error) {
	if s.signInErr != nil {
		return nil, s.signInErr
	}
	return s.session, nil
}

func (s *stubProvider) GetSession(context.Context) (*domain.Session, error) {
	return s.session, nil
}

func (s *stubProvider) RefreshSession(context.Context, string) (*domain.Session, error) {
	return s.session, nil
}

func (s *stubProvider) SetSession(context.Context, string, string) (*domain.Session, error) {
	return s.session, nil
}

func (s *stubProvider) SignOut(context.Context) error {
	s.signOutCalls++
	return s.signOutErr
}

func (s *stubProvider) GetUser(context.Context) (*domain.ProviderUser, error) {
	if s.user == nil {
		return nil, domain.ErrNoSession
	}
	return s.user, nil
}

func (s *stubProvider) ResendVerification(context.Context, string) error { return nil }

func (s *stubProvider) Subscribe(func(domain.AuthEvent)) func() { return func() {} }

// stubProfiles implements domain.ProfileStore over a map with the same
// conditional-update semantics as the real store.
type stubProfiles struct {
	profiles map[string]*domain.Profile
	getErr   error
	listErr  error
}

func newStubProfiles() *stubProfiles {
	return &stubProfiles{profiles: make(map[string]*domain.Profile)}
}

func (s *stubProfiles) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	profile, found := s.profiles[userID]
	if !found {
		return nil, domain.ErrProfileNotFound
	}
	copied := *profile
	return &copied, nil
}

func (s *stubProfiles) UpdateApproval(_ context.Context, userID string, patch domain.ApprovalPatch, expect domain.ApprovalState) (int64, error) {
	profile, found := s.profiles[userID]
	if !found || profile.ApprovalState() != expect {
		return 0, nil
	}
	profile.ApprovedBy = patch.Marker
	if patch.ClearRejectedAt {
		profile.RejectedAt = nil
	} else if patch.RejectedAt != nil {
		profile.RejectedAt = patch.RejectedAt
	}
	return 1, nil
}

func (s *stubProfiles) ListPending(_ context.Context, limit int) ([]domain.Profile, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var pending []domain.Profile
	for _, profile := range s.profiles {
		if profile.ApprovalState() == domain.ApprovalPending {
			pending = append(pending, *profile)
		}
		if len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

// stubLimiter implements domain.AttemptLimiter.
type stubLimiter struct {
	allowed  bool
	resetAt  int64
	hasReset bool
}

func (s *stubLimiter) Allow(context.Context, string) (bool, error) { return s.allowed, nil }
func (s *stubLimiter) Clear(context.Context, string) error         { return nil }
func (s *stubLimiter) ResetTime(context.Context, string) (int64, bool) {
	return s.resetAt, s.hasReset
}

func testPolicy() usecase.RetryPolicy {
	return usecase.RetryPolicy{Budget: 100 * time.Millisecond, RetryBudget: 50 * time.Millisecond}
}

func noMasterAdmins(string) bool { return false }

func newTestIdentity(provider *stubProvider, profiles *stubProfiles) *usecase.CurrentIdentity {
	accessor := usecase.NewSessionAccessor(provider, profiles, testPolicy(), slog.Default())
	resolver := usecase.NewResolver(accessor, noMasterAdmins, slog.Default())
	return usecase.NewCurrentIdentity(cache.NewApprovalCache(30*time.Second, resolver.Resolve))
}
