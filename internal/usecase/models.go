package usecase

import (
	"time"

	"github.com/DRSN-tech/conditions-backend/internal/domain"
)

// GENERATION

// ConditionInput - запись без эмбеддинга, поданная на вход пайплайну.
type ConditionInput struct {
	ID          string
	Name        string
	Description string
}

// BatchFailure - запись, для которой не удалось получить эмбеддинг.
type BatchFailure struct {
	Index int // позиция во входном списке, с нуля
	ID    string
	Name  string
	Err   error
}

// BatchResult - результат пайплайна: успехи и ошибки в порядке входа.
type BatchResult struct {
	Total     int
	Successes []domain.Embedding
	Failures  []BatchFailure
}

// FailedIDs возвращает идентификаторы упавших записей в порядке входа.
func (b *BatchResult) FailedIDs() []string {
	ids := make([]string, 0, len(b.Failures))
	for _, f := range b.Failures {
		ids = append(ids, f.ID)
	}

	return ids
}

// SyncFailure - запись, которую не удалось обновить в хранилище.
type SyncFailure struct {
	ID  string
	Err error
}

// SyncSummary - итог синхронизации векторов с хранилищем.
type SyncSummary struct {
	Succeeded   int
	Failed      int
	IndexFailed int // ошибки зеркалирования в векторный индекс
	Failures    []SyncFailure
}

// GenerationRes - итог одного запуска генерации эмбеддингов.
type GenerationRes struct {
	Fetched   int
	Batch     *BatchResult
	Sync      *SyncSummary
	ReportKey string
}

// RunReport - JSON-отчёт о запуске, архивируется в S3.
type RunReport struct {
	RunID       string          `json:"run_id"`
	Model       string          `json:"model"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Fetched     int             `json:"fetched"`
	Embedded    int             `json:"embedded"`
	Updated     int             `json:"updated"`
	UpdateFails int             `json:"update_failures"`
	IndexFails  int             `json:"index_failures"`
	Failures    []ReportFailure `json:"failures"`
}

// ReportFailure - ошибка в отчёте о запуске.
type ReportFailure struct {
	Stage string `json:"stage"` // embedding | update
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

// SEARCH

// SearchReq - поиск по произвольному тексту.
type SearchReq struct {
	Query     string
	Threshold float64
	Limit     int
}

// SimilarReq - поиск записей, похожих на сохранённую запись.
type SimilarReq struct {
	ConditionID string
	Threshold   float64
	Limit       int
}

// SearchRes - ранжированный результат поиска.
type SearchRes struct {
	Matches           []domain.ConditionMatch
	AverageSimilarity float64 // 0, если совпадений нет
}

// VERIFICATION

// VerifyReq - параметры проверочного прогона.
type VerifyReq struct {
	Query     string
	Threshold float64
	Limit     int
}

// SearchRun - один режим проверочного прогона.
type SearchRun struct {
	Label  string
	Query  string
	Result *SearchRes
}

// VerificationReport - диагностика сквозной проверки поиска.
type VerificationReport struct {
	Source                  *domain.Condition
	SelfSimilarity          float64 // локальная проверка: должна быть ≈ 1
	QueryToSourceSimilarity float64
	ByVector                *SearchRun
	ByText                  *SearchRun
}

// INFRASTUCTURE

// WriteRawMessageReq - сообщение для Kafka с готовым payload.
type WriteRawMessageReq struct {
	Key     string
	Payload []byte
}

// MAPPERS

func NewBatchResult(total int) *BatchResult {
	return &BatchResult{
		Total:     total,
		Successes: make([]domain.Embedding, 0, total),
		Failures:  make([]BatchFailure, 0),
	}
}

func NewSyncSummary() *SyncSummary {
	return &SyncSummary{
		Failures: make([]SyncFailure, 0),
	}
}

func NewConditionInput(id string, name string, description string) ConditionInput {
	return ConditionInput{
		ID:          id,
		Name:        name,
		Description: description,
	}
}

func NewSearchReq(query string, threshold float64, limit int) *SearchReq {
	return &SearchReq{
		Query:     query,
		Threshold: threshold,
		Limit:     limit,
	}
}

func NewSimilarReq(conditionID string, threshold float64, limit int) *SimilarReq {
	return &SimilarReq{
		ConditionID: conditionID,
		Threshold:   threshold,
		Limit:       limit,
	}
}

func NewVerifyReq(query string, threshold float64, limit int) *VerifyReq {
	return &VerifyReq{
		Query:     query,
		Threshold: threshold,
		Limit:     limit,
	}
}

func NewWriteRawMessageReq(key string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:     key,
		Payload: payload,
	}
}
