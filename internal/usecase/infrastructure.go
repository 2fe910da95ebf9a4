package usecase

import (
	"context"

	"github.com/DRSN-tech/conditions-backend/internal/domain"
)

// Embedder превращает текст в вектор фиксированной длины.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TxManager выполняет fn в одной транзакции хранилища.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventEncoder interface {
	EncodeEmbeddingEvent(event *domain.EmbeddingEvent) ([]byte, error)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}

type ReportArchive interface {
	Archive(ctx context.Context, report *RunReport) (string, error)
}
