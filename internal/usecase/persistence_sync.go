package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/conditions-backend/internal/domain"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"github.com/google/uuid"
)

// PersistenceSync записывает посчитанные векторы в хранилище записей.
// Каждое обновление выполняется в своей транзакции; ошибка одного обновления не мешает остальным.
type PersistenceSync struct {
	writer    ConditionWriter
	txManager TxManager
	model     string
	logger    logger.Logger

	// опциональные компоненты
	outbox  OutboxRepository
	encoder EventEncoder
	index   VectorIndexRepository
}

func NewPersistenceSync(writer ConditionWriter, txManager TxManager, model string, logger logger.Logger) *PersistenceSync {
	return &PersistenceSync{
		writer:    writer,
		txManager: txManager,
		model:     model,
		logger:    logger,
	}
}

// WithOutbox включает запись события в outbox в одной транзакции с обновлением.
func (s *PersistenceSync) WithOutbox(outbox OutboxRepository, encoder EventEncoder) *PersistenceSync {
	s.outbox = outbox
	s.encoder = encoder
	return s
}

// WithVectorIndex включает зеркалирование векторов в индекс после коммита.
func (s *PersistenceSync) WithVectorIndex(index VectorIndexRepository) *PersistenceSync {
	s.index = index
	return s
}

// Sync выполняет по одному обновлению на каждую пару {id, vector} и возвращает итог.
func (s *PersistenceSync) Sync(ctx context.Context, embeddings []domain.Embedding) *SyncSummary {
	summary := NewSyncSummary()
	points := make([]domain.IndexPoint, 0, len(embeddings))

	for _, embedding := range embeddings {
		if err := s.persist(ctx, embedding); err != nil {
			persistErr := &e.PersistenceError{ID: embedding.ID, Err: err}
			s.logger.Errorf(persistErr, "Error updating condition %s", embedding.ID)

			summary.Failed++
			summary.Failures = append(summary.Failures, SyncFailure{ID: embedding.ID, Err: persistErr})
			continue
		}

		summary.Succeeded++
		points = append(points, *domain.NewIndexPoint(
			embedding.ID,
			embedding.Vector,
			domain.NewPayload(embedding.ID, s.model),
		))
	}

	if s.index != nil && len(points) > 0 {
		if err := s.index.Upsert(ctx, points); err != nil {
			s.logger.Warnf("Failed to mirror %d vectors into index: %v", len(points), err)
			summary.IndexFailed = len(points)
		}
	}

	s.logger.Infof("=== Summary === Successfully updated: %d conditions, Errors: %d conditions", summary.Succeeded, summary.Failed)
	return summary
}

// persist обновляет вектор и, если включён outbox, пишет событие в той же транзакции.
func (s *PersistenceSync) persist(ctx context.Context, embedding domain.Embedding) error {
	const op = "PersistenceSync.persist"

	return s.txManager.Do(ctx, func(ctx context.Context) error {
		if err := s.writer.UpdateEmbedding(ctx, embedding.ID, embedding.Vector); err != nil {
			return e.Wrap(op, err)
		}

		if s.outbox == nil || s.encoder == nil {
			return nil
		}

		event := domain.NewEmbeddingEvent(uuid.NewString(), embedding.ID, s.model, len(embedding.Vector), time.Now().UTC())
		payload, err := s.encoder.EncodeEmbeddingEvent(event)
		if err != nil {
			return e.Wrap(op, err)
		}

		if _, err := s.outbox.Create(ctx, NewEmbeddingUpdatedOutboxEvent(event, payload)); err != nil {
			return e.Wrap(op, err)
		}

		return nil
	})
}
