package usecase

import (
	"context"

	"github.com/DRSN-tech/conditions-backend/internal/domain"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
)

// IndexMatcher ищет ближайшие записи в векторном индексе и дочитывает их поля из хранилища.
// Используется вместо match_conditions, когда SEARCH_BACKEND=qdrant.
type IndexMatcher struct {
	index  VectorIndexRepository
	reader ConditionReader
}

func NewIndexMatcher(index VectorIndexRepository, reader ConditionReader) *IndexMatcher {
	return &IndexMatcher{
		index:  index,
		reader: reader,
	}
}

func (m *IndexMatcher) MatchConditions(ctx context.Context, vec []float32, threshold float64, limit int) ([]domain.ConditionMatch, error) {
	const op = "IndexMatcher.MatchConditions"

	scored, err := m.index.Search(ctx, vec, threshold, limit)
	if err != nil {
		return nil, e.Wrap(op, &e.SearchUnavailableError{Err: err})
	}
	if len(scored) == 0 {
		return []domain.ConditionMatch{}, nil
	}

	ids := make([]string, 0, len(scored))
	for _, s := range scored {
		ids = append(ids, s.ConditionID)
	}

	conditions, err := m.reader.GetByIDs(ctx, ids)
	if err != nil {
		return nil, e.Wrap(op, &e.SearchUnavailableError{Err: err})
	}

	byID := make(map[string]domain.Condition, len(conditions))
	for _, c := range conditions {
		byID[c.ID] = c
	}

	// порядок индекса (по убыванию сходства); точки без записи пропускаем
	matches := make([]domain.ConditionMatch, 0, len(scored))
	for _, s := range scored {
		c, ok := byID[s.ConditionID]
		if !ok {
			continue
		}
		matches = append(matches, domain.ConditionMatch{
			ID:                c.ID,
			Name:              c.Name,
			DCCode:            c.DCCode,
			Description:       c.Description,
			CategoryID:        c.CategoryID,
			RatingPercentages: c.RatingPercentages,
			Similarity:        s.Score,
		})
	}

	return matches, nil
}
