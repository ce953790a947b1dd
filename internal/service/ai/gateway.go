package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/ruffie/backend/internal/config"
)

// NoResponseText replaces a successful reply that carried no text.
const NoResponseText = "No response"

// Gateway sends composed messages to a language model and returns its text.
// Implementations make exactly one upstream call per Send and never retry.
type Gateway interface {
	Send(ctx context.Context, messages []*schema.Message) (string, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, messages []*schema.Message) (string, error)

// Send calls f.
func (f GatewayFunc) Send(ctx context.Context, messages []*schema.Message) (string, error) {
	return f(ctx, messages)
}

// ErrMalformedResponse reports a success status whose body could not be decoded.
var ErrMalformedResponse = errors.New("malformed model response")

// NetworkError reports that the model service could not be reached.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("model service unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// UpstreamError reports a non-success status from the model service.
type UpstreamError struct {
	Status  int
	Body    string
	Message string
}

func (e *UpstreamError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = strings.TrimSpace(e.Body)
	}
	if detail == "" {
		detail = http.StatusText(e.Status)
	}
	return fmt.Sprintf("model service returned %d: %s", e.Status, detail)
}

// NewGateway builds the gateway selected by cfg.Provider.
func NewGateway(ctx context.Context, cfg config.AIConfig) (Gateway, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("model provider %q is not configured", cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		return NewAnthropicGateway(cfg.Anthropic, cfg.MaxTokens, cfg.Timeout), nil
	case config.ProviderOpenAI:
		return NewOpenAIGateway(cfg.OpenAI, cfg.MaxTokens, cfg.Timeout), nil
	case config.ProviderArk:
		chatModel, err := cfg.Ark.NewChatModel(ctx, cfg.MaxTokens, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return NewArkGateway(chatModel), nil
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}

// ErrGatewayUnavailable is returned by the gateway used when no provider
// credentials are configured.
var ErrGatewayUnavailable = errors.New("model gateway is not configured")

// Unavailable returns a gateway whose every call fails with
// ErrGatewayUnavailable, so submissions still produce a diagnostic turn.
func Unavailable() Gateway {
	return GatewayFunc(func(context.Context, []*schema.Message) (string, error) {
		return "", ErrGatewayUnavailable
	})
}
