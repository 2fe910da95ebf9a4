package usecase

import (
	"time"

	"github.com/DRSN-tech/conditions-backend/internal/domain"
)

// OutboxStatus - состояние события в таблице outbox_events.
type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
)

// OutboxEventType - тип события outbox.
type OutboxEventType string

const (
	EmbeddingUpdated OutboxEventType = "condition.embedding_updated"
)

// OutboxEvent - событие, записанное в одной транзакции с изменением данных.
type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   OutboxEventType
	ConditionID string
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

func NewEmbeddingUpdatedOutboxEvent(event *domain.EmbeddingEvent, payload []byte) *OutboxEvent {
	return &OutboxEvent{
		EventID:     event.EventID,
		EventType:   EmbeddingUpdated,
		ConditionID: event.ConditionID,
		Payload:     payload,
		Status:      Pending,
		CreatedAt:   event.OccurredAt,
	}
}
