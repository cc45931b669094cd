package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Provider adapts one inference backend to the unified request/response types.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	ValidateConfig() error
}

// APIError is a non-2xx response from a provider.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error: status %d: %s", e.Provider, e.Status, e.Message)
}

// IsRetryable reports whether the error is a transient infrastructure
// failure worth retrying with backoff. Malformed requests are not.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}

	// Network-level failures (timeouts, resets) arrive as plain errors.
	return err != nil && !errors.Is(err, context.Canceled)
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
}

// NewProvider builds a provider by name.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.BaseURL), nil
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
}
