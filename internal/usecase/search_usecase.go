package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/DRSN-tech/conditions-backend/internal/domain"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"github.com/DRSN-tech/conditions-backend/pkg/vector"
)

const (
	MinThreshold = -1.0
	MaxThreshold = 1.0
	MinLimit     = 1
	MaxLimit     = 100
)

// SearchUseCase выполняет поиск похожих записей по тексту или по сохранённой записи.
type SearchUseCase struct {
	embedder Embedder
	matcher  ConditionMatcher
	reader   ConditionReader
	cache    EmbeddingCacheRepository // nil, если Redis не настроен
	model    string
	logger   logger.Logger
}

func NewSearchUC(
	embedder Embedder,
	matcher ConditionMatcher,
	reader ConditionReader,
	cache EmbeddingCacheRepository,
	model string,
	logger logger.Logger,
) *SearchUseCase {
	return &SearchUseCase{
		embedder: embedder,
		matcher:  matcher,
		reader:   reader,
		cache:    cache,
		model:    model,
		logger:   logger,
	}
}

// ValidateParams проверяет порог и лимит поиска.
func ValidateParams(threshold float64, limit int) error {
	if math.IsNaN(threshold) || threshold < MinThreshold || threshold > MaxThreshold {
		return e.ErrInvalidThreshold
	}
	if limit < MinLimit || limit > MaxLimit {
		return e.ErrInvalidLimit
	}

	return nil
}

// SearchByText встраивает запрос и ищет ближайшие записи.
func (s *SearchUseCase) SearchByText(ctx context.Context, req *SearchReq) (*SearchRes, error) {
	const op = "SearchUseCase.SearchByText"

	if strings.TrimSpace(req.Query) == "" {
		return nil, e.Wrap(op, e.ErrEmptyText)
	}
	if err := ValidateParams(req.Threshold, req.Limit); err != nil {
		return nil, e.Wrap(op, err)
	}

	vec, err := s.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return s.SearchByVector(ctx, vec, req.Threshold, req.Limit)
}

// SimilarTo ищет записи, похожие на сохранённую запись. Сама запись тоже попадает в выдачу.
func (s *SearchUseCase) SimilarTo(ctx context.Context, req *SimilarReq) (*SearchRes, error) {
	const op = "SearchUseCase.SimilarTo"

	if err := ValidateParams(req.Threshold, req.Limit); err != nil {
		return nil, e.Wrap(op, err)
	}

	condition, err := s.reader.GetByID(ctx, req.ConditionID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if !condition.HasEmbedding() {
		return nil, e.Wrap(op, e.ErrConditionNotEmbedded)
	}

	return s.SearchByVector(ctx, condition.Embedding, req.Threshold, req.Limit)
}

// SearchByVector вызывает поиск хранилища и нормализует результат:
// записи ниже порога отбрасываются, выдача обрезается до limit, порядок хранилища сохраняется.
func (s *SearchUseCase) SearchByVector(ctx context.Context, vec []float32, threshold float64, limit int) (*SearchRes, error) {
	const op = "SearchUseCase.SearchByVector"

	matches, err := s.matcher.MatchConditions(ctx, vec, threshold, limit)
	if err != nil {
		var unavailable *e.SearchUnavailableError
		if errors.As(err, &unavailable) {
			return nil, e.Wrap(op, err)
		}
		return nil, e.Wrap(op, &e.SearchUnavailableError{Err: err})
	}

	return NewSearchRes(matches, threshold, limit), nil
}

// EmbedQuery возвращает вектор запроса, сначала проверяя кэш.
func (s *SearchUseCase) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	const op = "SearchUseCase.EmbedQuery"

	if s.cache != nil {
		cached, err := s.cache.GetQueryEmbedding(ctx, s.model, query)
		if err != nil {
			s.logger.Warnf("Failed to read query embedding from cache: %v", err)
		}
		if cached != nil {
			s.logger.Debugf("Query embedding cache hit")
			return cached, nil
		}
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if s.cache != nil {
		// Кэшируем в фоне, чтобы не задерживать ответ
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()

			if err := s.cache.SetQueryEmbedding(ctx, s.model, query, vec); err != nil {
				s.logger.Warnf("Failed to cache query embedding: %v", err)
			}
		}()
	}

	return vec, nil
}

// NewSearchRes отбрасывает записи ниже порога, обрезает до limit и считает среднее сходство.
func NewSearchRes(matches []domain.ConditionMatch, threshold float64, limit int) *SearchRes {
	filtered := make([]domain.ConditionMatch, 0, len(matches))
	for _, m := range matches {
		if m.Similarity < threshold {
			continue
		}
		filtered = append(filtered, m)
		if len(filtered) == limit {
			break
		}
	}

	scores := make([]float64, 0, len(filtered))
	for _, m := range filtered {
		scores = append(scores, m.Similarity)
	}
	avg, _ := vector.Average(scores)

	return &SearchRes{
		Matches:           filtered,
		AverageSimilarity: avg,
	}
}
