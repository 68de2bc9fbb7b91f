package analyzer

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/chartquery/chartquery/internal/config"
	"github.com/chartquery/chartquery/internal/llm"
	"github.com/chartquery/chartquery/internal/logging"
)

// MockLLMService is a mock implementation of the LLM service
type MockLLMService struct {
	mock.Mock
}

func (m *MockLLMService) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockLLMService) Configure(cfg llm.Config) error {
	args := m.Called(cfg)
	return args.Error(0)
}

func testLogger() *logging.Logger {
	logger, _ := logging.NewLogger(config.LoggingConfig{
		Level:  "error",
		Format: "text",
		Output: "stderr",
	})

	return logger
}
