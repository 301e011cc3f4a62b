package conversation

import (
	"context"
	"log/slog"
)

// FallbackLLMClient tries the primary provider and retries once on the
// fallback. It does not retry the primary; a provider that is down stays
// down for the duration of the turn.
type FallbackLLMClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *slog.Logger
}

var _ LLMClient = (*FallbackLLMClient)(nil)

// NewFallbackLLMClient builds the chain. A nil fallback degrades to a plain
// passthrough around the primary.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *slog.Logger) *FallbackLLMClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackLLMClient{primary: primary, fallback: fallback, logger: logger}
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, primaryErr := c.primary.Complete(ctx, req)
	if primaryErr == nil {
		return resp, nil
	}
	if c.fallback == nil {
		return LLMResponse{}, primaryErr
	}

	c.logger.Warn("primary llm failed, trying fallback", "error", primaryErr)

	resp, err := c.fallback.Complete(ctx, req)
	if err != nil {
		c.logger.Error("fallback llm failed too",
			"primary_error", primaryErr, "fallback_error", err)
		return LLMResponse{}, err
	}

	c.logger.Info("fallback llm answered the turn")
	return resp, nil
}
