package usecase

import (
	"context"
	"sync"

	"identity-hub/internal/domain"
)

// mockProvider implements domain.IdentityProvider for testing.
type mockProvider struct {
	mu sync.Mutex

	session *domain.Session
	user    *domain.ProviderUser

	signInErr  error
	refreshErr error
	userErr    error
	setErr     error

	// delays simulate a provider that never answers within the budget
	userDelay func(ctx context.Context)

	signInCalls  int
	refreshCalls int
	userCalls    int
	setCalls     int
	signOutCalls int
	resendCalls  int

	refreshed *domain.Session
	subs      []func(domain.AuthEvent)
}

func (m *mockProvider) SignIn(_ context.Context, email, password string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signInCalls++
	if m.signInErr != nil {
		return nil, m.signInErr
	}
	return m.session, nil
}

func (m *mockProvider) GetSession(_ context.Context) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *mockProvider) RefreshSession(_ context.Context, refreshToken string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCalls++
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return m.refreshed, nil
}

func (m *mockProvider) SetSession(_ context.Context, accessToken, refreshToken string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setErr != nil {
		return nil, m.setErr
	}
	return &domain.Session{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresAt: 1<<62 - 1}, nil
}

func (m *mockProvider) SignOut(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signOutCalls++
	m.session = nil
	return nil
}

func (m *mockProvider) GetUser(ctx context.Context) (*domain.ProviderUser, error) {
	m.mu.Lock()
	delay := m.userDelay
	m.userCalls++
	m.mu.Unlock()

	if delay != nil {
		delay(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userErr != nil {
		return nil, m.userErr
	}
	if m.user == nil {
		return nil, domain.ErrNoSession
	}
	return m.user, nil
}

func (m *mockProvider) ResendVerification(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resendCalls++
	return nil
}

func (m *mockProvider) Subscribe(fn func(domain.AuthEvent)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
	return func() {}
}

// mockProfiles implements domain.ProfileStore for testing.
type mockProfiles struct {
	mu sync.Mutex

	profiles map[string]*domain.Profile
	getErr   error
	getDelay func(ctx context.Context)

	updateCalls []string
}

func newMockProfiles() *mockProfiles {
	return &mockProfiles{profiles: make(map[string]*domain.Profile)}
}

func (m *mockProfiles) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	m.mu.Lock()
	delay := m.getDelay
	m.mu.Unlock()
	if delay != nil {
		delay(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	profile, found := m.profiles[userID]
	if !found {
		return nil, domain.ErrProfileNotFound
	}
	copied := *profile
	return &copied, nil
}

func (m *mockProfiles) UpdateApproval(_ context.Context, userID string, patch domain.ApprovalPatch, expect domain.ApprovalState) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls = append(m.updateCalls, userID)

	profile, found := m.profiles[userID]
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

func (m *mockProfiles) ListPending(_ context.Context, limit int) ([]domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []domain.Profile
	for _, profile := range m.profiles {
		if profile.ApprovalState() == domain.ApprovalPending {
			pending = append(pending, *profile)
		}
		if len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

// mockLimiter implements domain.AttemptLimiter for testing.
type mockLimiter struct {
	allowed    bool
	allowErr   error
	resetAt    int64
	hasReset   bool
	allowCalls int
	clearCalls int
}

func (m *mockLimiter) Allow(_ context.Context, identifier string) (bool, error) {
	m.allowCalls++
	return m.allowed, m.allowErr
}

func (m *mockLimiter) Clear(_ context.Context, identifier string) error {
	m.clearCalls++
	return nil
}

func (m *mockLimiter) ResetTime(_ context.Context, identifier string) (int64, bool) {
	return m.resetAt, m.hasReset
}
