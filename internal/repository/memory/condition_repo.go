// Package memory реализует хранилище записей в памяти процесса.
// Используется в тестах и для локального прогона без базы данных.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DRSN-tech/conditions-backend/internal/domain"
	"github.com/DRSN-tech/conditions-backend/internal/usecase"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/vector"
)

// ConditionRepo хранит записи в порядке вставки.
type ConditionRepo struct {
	mu         sync.RWMutex
	conditions []domain.Condition
}

func NewConditionRepo(conditions ...domain.Condition) *ConditionRepo {
	r := &ConditionRepo{}
	for _, c := range conditions {
		r.conditions = append(r.conditions, clone(c))
	}

	return r
}

func (r *ConditionRepo) FetchMissingEmbeddings(_ context.Context) ([]usecase.ConditionInput, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]usecase.ConditionInput, 0)
	for _, c := range r.conditions {
		if c.HasEmbedding() {
			continue
		}
		res = append(res, usecase.NewConditionInput(c.ID, c.Name, c.Description))
	}

	return res, nil
}

func (r *ConditionRepo) UpdateEmbedding(_ context.Context, id string, vec []float32) error {
	const op = "memory.ConditionRepo.UpdateEmbedding"

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.conditions {
		if r.conditions[i].ID != id {
			continue
		}
		now := time.Now().UTC()
		r.conditions[i].Embedding = append([]float32(nil), vec...)
		r.conditions[i].UpdatedAt = &now
		return nil
	}

	return e.Wrap(op, e.ErrConditionNotFound)
}

func (r *ConditionRepo) FirstEmbedded(_ context.Context) (*domain.Condition, error) {
	const op = "memory.ConditionRepo.FirstEmbedded"

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.conditions {
		if c.HasEmbedding() {
			res := clone(c)
			return &res, nil
		}
	}

	return nil, e.Wrap(op, e.ErrNoEmbeddedConditions)
}

func (r *ConditionRepo) GetByID(_ context.Context, id string) (*domain.Condition, error) {
	const op = "memory.ConditionRepo.GetByID"

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.conditions {
		if c.ID == id {
			res := clone(c)
			return &res, nil
		}
	}

	return nil, e.Wrap(op, e.ErrConditionNotFound)
}

func (r *ConditionRepo) GetByIDs(_ context.Context, ids []string) ([]domain.Condition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	res := make([]domain.Condition, 0, len(ids))
	for _, c := range r.conditions {
		if _, ok := want[c.ID]; ok {
			res = append(res, clone(c))
		}
	}

	return res, nil
}

// MatchConditions повторяет контракт match_conditions: сходство не ниже порога, по убыванию, не более limit.
func (r *ConditionRepo) MatchConditions(_ context.Context, vec []float32, threshold float64, limit int) ([]domain.ConditionMatch, error) {
	const op = "memory.ConditionRepo.MatchConditions"

	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]domain.ConditionMatch, 0)
	for _, c := range r.conditions {
		if !c.HasEmbedding() {
			continue
		}

		sim, err := vector.Cosine(vec, c.Embedding)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		if sim < threshold {
			continue
		}

		matches = append(matches, domain.ConditionMatch{
			ID:                c.ID,
			Name:              c.Name,
			DCCode:            c.DCCode,
			Description:       c.Description,
			CategoryID:        c.CategoryID,
			RatingPercentages: c.RatingPercentages,
			Similarity:        sim,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	return matches, nil
}

func clone(c domain.Condition) domain.Condition {
	if c.Embedding != nil {
		c.Embedding = append([]float32(nil), c.Embedding...)
	}
	if c.RatingPercentages != nil {
		c.RatingPercentages = append([]int32(nil), c.RatingPercentages...)
	}

	return c
}

// TxManager выполняет fn без транзакции: записи в памяти не откатываются.
type TxManager struct{}

func NewTxManager() *TxManager {
	return &TxManager{}
}

func (TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
