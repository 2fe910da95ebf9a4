package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"github.com/google/uuid"
)

// GenerationUseCase выбирает записи без эмбеддингов, считает векторы и сохраняет их.
// Повторный запуск безопасен: обработанные записи больше не попадают в выборку.
type GenerationUseCase struct {
	source   ConditionSource
	pipeline *EmbeddingPipeline
	sync     *PersistenceSync
	archive  ReportArchive // nil, если архив отчётов не настроен
	model    string
	logger   logger.Logger
}

func NewGenerationUC(
	source ConditionSource,
	pipeline *EmbeddingPipeline,
	sync *PersistenceSync,
	archive ReportArchive,
	model string,
	logger logger.Logger,
) *GenerationUseCase {
	return &GenerationUseCase{
		source:   source,
		pipeline: pipeline,
		sync:     sync,
		archive:  archive,
		model:    model,
		logger:   logger,
	}
}

// Run выполняет один проход генерации. Ошибки отдельных записей не прерывают проход;
// ошибка возвращается только если не удалось получить список записей или отменён ctx.
func (g *GenerationUseCase) Run(ctx context.Context) (*GenerationRes, error) {
	const op = "GenerationUseCase.Run"
	startedAt := time.Now().UTC()

	g.logger.Infof("Fetching conditions from database...")
	records, err := g.source.FetchMissingEmbeddings(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	res := &GenerationRes{
		Fetched: len(records),
		Batch:   NewBatchResult(0),
		Sync:    NewSyncSummary(),
	}

	if len(records) == 0 {
		g.logger.Infof("No conditions found without embeddings. All done!")
		return res, nil
	}

	g.logger.Infof("Found %d conditions without embeddings, generating embeddings...", len(records))

	batch, runErr := g.pipeline.Run(ctx, records)
	res.Batch = batch

	// уже посчитанные векторы сохраняем даже при отмене ctx
	persistCtx := context.WithoutCancel(ctx)

	g.logger.Infof("Updating database with %d embeddings...", len(batch.Successes))
	res.Sync = g.sync.Sync(persistCtx, batch.Successes)

	if g.archive != nil {
		report := g.buildReport(startedAt, res)
		key, err := g.archive.Archive(persistCtx, report)
		if err != nil {
			g.logger.Warnf("Failed to archive run report: %v", e.Wrap(op, err))
		} else {
			res.ReportKey = key
		}
	}

	if runErr != nil {
		return res, e.Wrap(op, runErr)
	}

	return res, nil
}

func (g *GenerationUseCase) buildReport(startedAt time.Time, res *GenerationRes) *RunReport {
	failures := make([]ReportFailure, 0, len(res.Batch.Failures)+len(res.Sync.Failures))
	for _, f := range res.Batch.Failures {
		failures = append(failures, ReportFailure{Stage: "embedding", ID: f.ID, Name: f.Name, Error: f.Err.Error()})
	}
	for _, f := range res.Sync.Failures {
		failures = append(failures, ReportFailure{Stage: "update", ID: f.ID, Error: f.Err.Error()})
	}

	return &RunReport{
		RunID:       uuid.NewString(),
		Model:       g.model,
		StartedAt:   startedAt,
		FinishedAt:  time.Now().UTC(),
		Fetched:     res.Fetched,
		Embedded:    len(res.Batch.Successes),
		Updated:     res.Sync.Succeeded,
		UpdateFails: res.Sync.Failed,
		IndexFails:  res.Sync.IndexFailed,
		Failures:    failures,
	}
}
