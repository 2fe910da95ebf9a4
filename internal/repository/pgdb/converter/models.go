package converter

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// ConditionModel представляет запись таблицы conditions в PostgreSQL.
type ConditionModel struct {
	ID                string           `db:"id"`
	Name              string           `db:"name"`
	DCCode            string           `db:"dc_code"`
	Description       *string          `db:"description"`
	CategoryID        *string          `db:"category_id"`
	RatingPercentages []int32          `db:"rating_percentages"`
	Embedding         *pgvector.Vector `db:"embedding"`
	CreatedAt         time.Time        `db:"created_at"`
	UpdatedAt         *time.Time       `db:"updated_at"`
}

// ConditionMatchModel представляет строку результата функции match_conditions.
type ConditionMatchModel struct {
	ID                string  `db:"id"`
	Name              string  `db:"name"`
	DCCode            string  `db:"dc_code"`
	Description       *string `db:"description"`
	CategoryID        *string `db:"category_id"`
	RatingPercentages []int32 `db:"rating_percentages"`
	Similarity        float64 `db:"similarity"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID          int64      `db:"id"`
	EventID     string     `db:"event_id"`
	EventType   string     `db:"event_type"`
	ConditionID string     `db:"condition_id"`
	Payload     []byte     `db:"payload"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}
