package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/conditions-backend/internal/domain"
)

// ConditionSource отдаёт записи, у которых ещё нет эмбеддинга.
type ConditionSource interface {
	FetchMissingEmbeddings(ctx context.Context) ([]ConditionInput, error)
}

// ConditionWriter обновляет вектор записи по идентификатору.
type ConditionWriter interface {
	UpdateEmbedding(ctx context.Context, id string, vector []float32) error
}

type ConditionReader interface {
	// FirstEmbedded возвращает e.ErrNoEmbeddedConditions, если векторов ещё нет.
	FirstEmbedded(ctx context.Context) (*domain.Condition, error)
	// GetByID возвращает e.ErrConditionNotFound для неизвестного id.
	GetByID(ctx context.Context, id string) (*domain.Condition, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Condition, error)
}

// ConditionMatcher выполняет поиск ближайших соседей на стороне хранилища.
type ConditionMatcher interface {
	MatchConditions(ctx context.Context, vector []float32, threshold float64, limit int) ([]domain.ConditionMatch, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	MarkAsPending(ctx context.Context, id int64) error
	// ReleaseStale возвращает в очередь события, зависшие в processing дольше olderThan.
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type VectorIndexRepository interface {
	Upsert(ctx context.Context, points []domain.IndexPoint) error
	Search(ctx context.Context, vector []float32, threshold float64, limit int) ([]domain.ScoredID, error)
}

type EmbeddingCacheRepository interface {
	// GetQueryEmbedding возвращает nil без ошибки при промахе.
	GetQueryEmbedding(ctx context.Context, model string, text string) ([]float32, error)
	SetQueryEmbedding(ctx context.Context, model string, text string, vector []float32) error
}

type ReportRepository interface {
	Upload(ctx context.Context, report *domain.Report) (string, error)
}
