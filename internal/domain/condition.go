package domain

import "time"

// Condition описывает состояние, по которому ветеран может запросить компенсацию.
type Condition struct {
	ID                string
	Name              string
	DCCode            string // диагностический код, передаётся как есть
	Description       string
	CategoryID        *string
	RatingPercentages []int32
	Embedding         []float32 // nil, пока эмбеддинг не посчитан
	CreatedAt         time.Time
	UpdatedAt         *time.Time
}

// HasEmbedding сообщает, посчитан ли эмбеддинг записи.
func (c *Condition) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// EmbeddingText возвращает текст, который отправляется в модель эмбеддингов.
func EmbeddingText(name string, description string) string {
	return name + ". " + description
}

// ConditionMatch - одна запись из результата поиска ближайших соседей.
type ConditionMatch struct {
	ID                string
	Name              string
	DCCode            string
	Description       string
	CategoryID        *string
	RatingPercentages []int32
	Similarity        float64
}
