package domain

import "time"

// EmbeddingEvent фиксирует факт обновления эмбеддинга записи.
type EmbeddingEvent struct {
	EventID     string
	ConditionID string
	Model       string
	Dimensions  int
	OccurredAt  time.Time
}

func NewEmbeddingEvent(eventID string, conditionID string, model string, dimensions int, occurredAt time.Time) *EmbeddingEvent {
	return &EmbeddingEvent{
		EventID:     eventID,
		ConditionID: conditionID,
		Model:       model,
		Dimensions:  dimensions,
		OccurredAt:  occurredAt,
	}
}
