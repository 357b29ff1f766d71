package usecase

import (
	"context"
	"log/slog"

	"identity-hub/internal/domain"
)

// GenerateCSRF issues a CSRF token bound to the current session.
type GenerateCSRF struct {
	accessor  *SessionAccessor
	generator domain.CSRFTokenGenerator
	logger    *slog.Logger
}

// NewGenerateCSRF creates a new GenerateCSRF usecase.
func NewGenerateCSRF(accessor *SessionAccessor, generator domain.CSRFTokenGenerator, logger *slog.Logger) *GenerateCSRF {
	return &GenerateCSRF{accessor: accessor, generator: generator, logger: logger}
}

// Execute derives the token from the session's refresh token, which is
// stable for the session's lifetime and rotates on refresh.
func (uc *GenerateCSRF) Execute(ctx context.Context) (string, error) {
	session, err := uc.accessor.Session(ctx)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", domain.ErrNoSession
	}

	token, err := uc.generator.Generate(session.RefreshToken)
	if err != nil {
		uc.logger.ErrorContext(ctx, "failed to generate CSRF token", "error", err)
		return "", err
	}
	return token, nil
}
