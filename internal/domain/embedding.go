package domain

import "time"

// Embedding представляет посчитанный вектор одной записи.
type Embedding struct {
	ID     string
	Vector []float32
}

func NewEmbedding(id string, vector []float32) *Embedding {
	return &Embedding{
		ID:     id,
		Vector: vector,
	}
}

// Payload описывает дополнительную информацию вектора в зеркальном индексе
type Payload map[string]any

func NewPayload(conditionID string, model string) Payload {
	return Payload{
		"condition_id": conditionID,
		"model":        model,
		"created_at":   time.Now().UTC().UnixNano(),
	}
}

// IndexPoint описывает запись в векторном индексе (Qdrant)
type IndexPoint struct {
	ConditionID string
	Vector      []float32
	Payload     Payload
}

func NewIndexPoint(conditionID string, vector []float32, payload Payload) *IndexPoint {
	return &IndexPoint{
		ConditionID: conditionID,
		Vector:      vector,
		Payload:     payload,
	}
}

// ScoredID - идентификатор записи с оценкой сходства из векторного индекса.
type ScoredID struct {
	ConditionID string
	Score       float64
}
