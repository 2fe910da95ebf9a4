package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/conditions-backend/internal/domain"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
)

// EmbeddingPipeline последовательно получает эмбеддинги для записей с паузой между запросами.
// Параллельных запросов нет: у внешнего API жёсткие лимиты.
type EmbeddingPipeline struct {
	embedder Embedder
	delay    time.Duration
	logger   logger.Logger
}

func NewEmbeddingPipeline(embedder Embedder, delay time.Duration, logger logger.Logger) (*EmbeddingPipeline, error) {
	if delay < 0 {
		return nil, e.Wrap("NewEmbeddingPipeline", e.ErrNegativeDelay)
	}

	return &EmbeddingPipeline{
		embedder: embedder,
		delay:    delay,
		logger:   logger,
	}, nil
}

// Run обрабатывает записи по порядку. Ошибка одной записи логируется, запись пропускается
// и попадает в Failures; повторных попыток нет. Ошибка возвращается только при отмене ctx,
// вместе с уже накопленным результатом.
func (p *EmbeddingPipeline) Run(ctx context.Context, records []ConditionInput) (*BatchResult, error) {
	const op = "EmbeddingPipeline.Run"

	total := len(records)
	result := NewBatchResult(total)

	for i, record := range records {
		if i > 0 {
			if err := p.pause(ctx); err != nil {
				return result, e.Wrap(op, err)
			}
		}

		if err := ctx.Err(); err != nil {
			return result, e.Wrap(op, err)
		}

		vector, err := p.embedder.Embed(ctx, domain.EmbeddingText(record.Name, record.Description))
		if err != nil {
			p.logger.Errorf(err, "[%d/%d] Failed to generate embedding for %s (id=%s)", i+1, total, record.Name, record.ID)
			result.Failures = append(result.Failures, BatchFailure{
				Index: i,
				ID:    record.ID,
				Name:  record.Name,
				Err:   err,
			})
			continue
		}

		result.Successes = append(result.Successes, *domain.NewEmbedding(record.ID, vector))
		p.logger.Infof("[%d/%d] Generated embedding for: %s", i+1, total, record.Name)
	}

	return result, nil
}

// pause выдерживает настроенную паузу между запросами.
func (p *EmbeddingPipeline) pause(ctx context.Context) error {
	if p.delay == 0 {
		return nil
	}

	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
