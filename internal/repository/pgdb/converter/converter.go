// Package converter преобразует модели PostgreSQL в сущности domain/usecase и обратно.
package converter

import (
	"github.com/DRSN-tech/conditions-backend/internal/domain"
	"github.com/DRSN-tech/conditions-backend/internal/usecase"
)

type ConditionConverter struct{}

func (ConditionConverter) ToEntity(model *ConditionModel) *domain.Condition {
	entity := &domain.Condition{
		ID:                model.ID,
		Name:              model.Name,
		DCCode:            model.DCCode,
		Description:       derefString(model.Description),
		CategoryID:        model.CategoryID,
		RatingPercentages: model.RatingPercentages,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
	if model.Embedding != nil {
		entity.Embedding = model.Embedding.Slice()
	}

	return entity
}

func (c ConditionConverter) ToArrEntity(models []*ConditionModel) []domain.Condition {
	res := make([]domain.Condition, 0, len(models))
	for _, m := range models {
		res = append(res, *c.ToEntity(m))
	}

	return res
}

func (ConditionConverter) ToInput(model *ConditionModel) usecase.ConditionInput {
	return usecase.NewConditionInput(model.ID, model.Name, derefString(model.Description))
}

func (ConditionConverter) MatchToEntity(model *ConditionMatchModel) domain.ConditionMatch {
	return domain.ConditionMatch{
		ID:                model.ID,
		Name:              model.Name,
		DCCode:            model.DCCode,
		Description:       derefString(model.Description),
		CategoryID:        model.CategoryID,
		RatingPercentages: model.RatingPercentages,
		Similarity:        model.Similarity,
	}
}

type OutboxEventConverter struct{}

func (OutboxEventConverter) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	return &OutboxEventModel{
		ID:          entity.ID,
		EventID:     entity.EventID,
		EventType:   string(entity.EventType),
		ConditionID: entity.ConditionID,
		Payload:     entity.Payload,
		Status:      string(entity.Status),
		CreatedAt:   entity.CreatedAt,
		ProcessedAt: entity.ProcessedAt,
	}
}

func (OutboxEventConverter) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     model.EventID,
		EventType:   usecase.OutboxEventType(model.EventType),
		ConditionID: model.ConditionID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
	}
}

func (c OutboxEventConverter) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	res := make([]*usecase.OutboxEvent, 0, len(models))
	for _, m := range models {
		res = append(res, c.ToEntity(m))
	}

	return res
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
