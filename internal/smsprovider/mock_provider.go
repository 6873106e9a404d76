package smsprovider

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// MockAdapter logs outbound texts instead of transmitting them and never
// fails. It backs MOCK_SMS mode for local development and tests.
type MockAdapter struct {
	logger *slog.Logger
}

// NewMockAdapter creates a logging-only adapter.
func NewMockAdapter(logger *slog.Logger) *MockAdapter {
	return &MockAdapter{logger: logger.With("provider", "mock")}
}

func (p *MockAdapter) GetName() string { return "mock" }

func (p *MockAdapter) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	p.logger.InfoContext(ctx, "[MOCK SMS]",
		"to", req.To,
		"from", req.From,
		"content", req.Content,
	)
	return &SendResponse{ProviderMessageID: "mock-" + uuid.NewString()}, nil
}
