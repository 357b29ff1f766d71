package usecase

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"identity-hub/internal/domain"
	"identity-hub/internal/infrastructure/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCSRF_BoundToSession(t *testing.T) {
	provider := &mockProvider{session: &domain.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}}
	accessor := NewSessionAccessor(provider, newMockProfiles(), testPolicy(), slog.Default())
	uc := NewGenerateCSRF(accessor, token.NewHMACCSRFGenerator("csrf-secret"), slog.Default())

	first, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	// Same session, same token
	second, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateCSRF_NoSession(t *testing.T) {
	accessor := NewSessionAccessor(&mockProvider{}, newMockProfiles(), testPolicy(), slog.Default())
	uc := NewGenerateCSRF(accessor, token.NewHMACCSRFGenerator("csrf-secret"), slog.Default())

	_, err := uc.Execute(context.Background())
	assert.True(t, errors.Is(err, domain.ErrNoSession))
}
