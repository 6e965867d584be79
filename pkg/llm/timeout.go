package llm

import (
	"context"
	"time"
)

// WithCallTimeout wraps a client so every backend call carries its own
// deadline. A backend that stalls without erroring then surfaces as
// context.DeadlineExceeded, which drives the same degradation path as any
// other call failure. A non-positive timeout returns the client unchanged.
func WithCallTimeout(client LLMClient, timeout time.Duration) LLMClient {
	if timeout <= 0 {
		return client
	}
	return &timeoutClient{client: client, timeout: timeout}
}

type timeoutClient struct {
	client  LLMClient
	timeout time.Duration
}

var _ LLMClient = (*timeoutClient)(nil)

func (c *timeoutClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64, thinking bool) (*GenerateResponseResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.GenerateResponse(ctx, prompt, systemMessage, temperature, thinking)
}

func (c *timeoutClient) CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.CreateEmbedding(ctx, input, model)
}

func (c *timeoutClient) CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.CreateEmbeddings(ctx, inputs, model)
}

func (c *timeoutClient) GetModel() string {
	return c.client.GetModel()
}

func (c *timeoutClient) GetEndpoint() string {
	return c.client.GetEndpoint()
}
