package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/DRSN-tech/conditions-backend/internal/cfg"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/jitter"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	goopenai "github.com/sashabaranov/go-openai"
)

const (
	baseBackoff = 1 * time.Second
	maxBackoff  = 30 * time.Second
)

// EmbeddingClient получает эмбеддинги текста через OpenAI embeddings API.
// Создаётся один раз и переиспользуется всеми вызовами.
type EmbeddingClient struct {
	client     *goopenai.Client
	model      string
	dimensions int
	timeout    time.Duration
	maxRetries int
	logger     logger.Logger
	backoff    jitter.Backoff
}

// NewEmbeddingClient проверяет ключ до любого сетевого вызова.
func NewEmbeddingClient(cfg *cfg.EmbeddingCfg, logger logger.Logger) (*EmbeddingClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, e.NewConfigurationError("OPENAI_API_KEY")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{}

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &EmbeddingClient{
		client:     goopenai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		timeout:    cfg.Timeout,
		maxRetries: maxRetries,
		logger:     logger,
		backoff:    jitter.NewBackoff(baseBackoff, maxBackoff),
	}, nil
}

func (c *EmbeddingClient) Model() string {
	return c.model
}

func (c *EmbeddingClient) Dimensions() int {
	return c.dimensions
}

// Embed возвращает вектор длины Dimensions(). Временные ошибки (429, 5xx, сеть)
// повторяются с экспоненциальной задержкой, остальные возвращаются сразу.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	const op = "EmbeddingClient.Embed"

	if strings.TrimSpace(text) == "" {
		return nil, e.NewEmbeddingServiceError(op, e.ErrEmptyText)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		vector, err := c.embedOnce(ctx, text)
		if err == nil {
			return vector, nil
		}
		lastErr = err

		if !isTransient(ctx, err) || attempt == c.maxRetries-1 {
			break
		}

		sleepTime := c.backoff(attempt)
		c.logger.Warnf("embedding request failed, retrying in %v (attempt %d): %v", sleepTime, attempt+1, err)
		select {
		case <-time.After(sleepTime):
		case <-ctx.Done():
			return nil, e.NewEmbeddingServiceError(op, ctx.Err())
		}
	}

	return nil, e.NewEmbeddingServiceError(op, lastErr)
}

func (c *EmbeddingClient) embedOnce(ctx context.Context, text string) ([]float32, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: goopenai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errMalformedResponse
	}

	vector := resp.Data[0].Embedding
	if len(vector) != c.dimensions {
		return nil, &e.DimensionMismatchError{Left: len(vector), Right: c.dimensions}
	}

	return vector, nil
}

var errMalformedResponse = fmt.Errorf("malformed response: no embedding data")

// isTransient сообщает, имеет ли смысл повторить запрос.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	var dimErr *e.DimensionMismatchError
	if errors.As(err, &dimErr) || errors.Is(err, errMalformedResponse) {
		return false
	}

	// транспортные ошибки и таймаут одного запроса
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
