package app

import (
	"context"
	"time"

	config "github.com/DRSN-tech/conditions-backend/internal/cfg"
	"github.com/DRSN-tech/conditions-backend/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/conditions-backend/internal/infrastructure/minio"
	"github.com/DRSN-tech/conditions-backend/internal/infrastructure/openai"
	s3Repo "github.com/DRSN-tech/conditions-backend/internal/repository/minio"
	"github.com/DRSN-tech/conditions-backend/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/conditions-backend/internal/repository/pgdb/converter"
	qdrantRepo "github.com/DRSN-tech/conditions-backend/internal/repository/qdrant"
	"github.com/DRSN-tech/conditions-backend/internal/repository/redis"
	"github.com/DRSN-tech/conditions-backend/internal/usecase"
	"github.com/DRSN-tech/conditions-backend/pkg/clients"
	"github.com/DRSN-tech/conditions-backend/pkg/closer"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"github.com/DRSN-tech/conditions-backend/pkg/postgres"
	"github.com/DRSN-tech/conditions-backend/pkg/tr"
	"github.com/jimlawless/whereami"
)

const (
	initTimeout     = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

// App собирает зависимости один раз на запуск команды.
// Опциональные компоненты (Qdrant, Redis, Kafka, MinIO) включаются, если задан их адрес.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	db            *postgres.PgDatabase
	embedder      *openai.EmbeddingClient
	conditionRepo *pgdb.ConditionRepo
	txManager     *tr.TxManager

	// nil, если компонент выключен
	index        usecase.VectorIndexRepository
	cache        usecase.EmbeddingCacheRepository
	archive      usecase.ReportArchive
	outboxRepo   *pgdb.OutboxEventRepo
	producer     *kafka.Producer
	outboxWorker *kafka.OutboxWorker
}

// NewApp проверяет ключ OpenAI до любых сетевых вызовов, затем подключается к хранилищам.
func NewApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	embedder, err := openai.NewEmbeddingClient(cfg.Embedding, log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	log.Debugf("embedding model %s, %d dimensions", embedder.Model(), embedder.Dimensions())

	a := &App{
		cfg:      cfg,
		logger:   log,
		closer:   closer.NewCloser(shutdownTimeout),
		embedder: embedder,
	}

	if err := a.init(ctx); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}

	return a, nil
}

func (a *App) init(ctx context.Context) error {
	if err := a.initPGDB(ctx); err != nil {
		return err
	}

	if a.cfg.Qdrant.Enabled {
		if err := a.initQdrant(ctx); err != nil {
			return err
		}
	}

	if a.cfg.Redis.Enabled {
		a.initRedis(ctx)
	}

	if a.cfg.Kafka.Enabled {
		a.initKafka()
	}

	if a.cfg.Minio.Enabled {
		if err := a.initMinio(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) initPGDB(ctx context.Context) error {
	db, err := postgres.Connect(ctx, a.cfg.Db)
	if err != nil {
		a.logger.Errorf(err, "failed to connect to database")
		return e.Wrap(whereami.WhereAmI(), err)
	}
	a.db = db
	a.closer.AddFunc("postgres", db.Close)

	if a.cfg.Db.RunMigrations {
		if err := db.RunMigrations(a.logger); err != nil {
			a.logger.Errorf(err, "failed to run migrations")
			return e.Wrap(whereami.WhereAmI(), err)
		}
	}

	a.conditionRepo = pgdb.NewConditionRepo(db.Pool, pgdbConv.ConditionConverter{})
	a.txManager = tr.NewTxManager(db.Pool)
	return nil
}

func (a *App) initQdrant(ctx context.Context) error {
	qdrantClient, err := clients.NewQdrantClient(a.cfg.Qdrant)
	if err != nil {
		a.logger.Errorf(err, "failed to initialize qdrant")
		return e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("qdrant", func(context.Context) error { return qdrantClient.Close() })

	qdrantCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := clients.EnsureCollection(qdrantCtx, qdrantClient); err != nil {
		a.logger.Errorf(err, "failed to initialize qdrant collection")
		return e.Wrap(whereami.WhereAmI(), err)
	}

	a.index = qdrantRepo.NewEmbeddingRepo(qdrantClient.Client, a.cfg.Qdrant)
	return nil
}

// initRedis не считает недоступный кэш фатальным: поиск работает и без него.
func (a *App) initRedis(ctx context.Context) {
	redisClient := clients.NewRedisClient(a.cfg.Redis)
	a.closer.Add("redis", func(context.Context) error { return redisClient.Close() })

	redisCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(redisCtx); err != nil {
		a.logger.Warnf("redis unavailable, query embedding cache disabled: %v", err)
		return
	}

	a.cache = redis.NewCacheRepo(redisClient, a.cfg.Redis, a.logger)
}

func (a *App) initKafka() {
	producer := kafka.NewProducer(a.logger, a.cfg.Kafka)
	a.closer.Add("kafka producer", func(context.Context) error { return producer.Close() })

	if err := producer.EnsureTopic(initTimeout); err != nil {
		a.logger.Warnf("failed to ensure kafka topic %s: %v", a.cfg.Kafka.Topic, err)
	}

	a.producer = producer
	a.outboxRepo = pgdb.NewOutboxEventRepo(a.db.Pool, pgdbConv.OutboxEventConverter{})
	a.outboxWorker = kafka.NewOutboxWorker(
		a.outboxRepo,
		a.logger,
		producer,
		a.cfg.Kafka.OutboxBatchSize,
		a.db.Pool.Config().ConnConfig.Copy(),
	)
}

func (a *App) initMinio(ctx context.Context) error {
	minioClient, err := clients.NewMinIOClient(a.cfg.Minio)
	if err != nil {
		a.logger.Errorf(err, "failed to initialize minio client")
		return e.Wrap(whereami.WhereAmI(), err)
	}

	minioCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := clients.EnsureBucket(minioCtx, minioClient, a.cfg.Minio.BucketName); err != nil {
		a.logger.Errorf(err, "failed to initialize MinIO bucket")
		return e.Wrap(whereami.WhereAmI(), err)
	}

	a.archive = minioInfra.NewMinioInfrastructure(s3Repo.NewReportRepo(minioClient), a.cfg.Minio.BucketName, a.logger)
	return nil
}

// GenerationUC собирает пайплайн генерации поверх подключённых хранилищ.
func (a *App) GenerationUC() (*usecase.GenerationUseCase, error) {
	pipeline, err := usecase.NewEmbeddingPipeline(a.embedder, a.cfg.Embedding.Delay, a.logger)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	sync := usecase.NewPersistenceSync(a.conditionRepo, a.txManager, a.embedder.Model(), a.logger)
	if a.outboxRepo != nil {
		sync.WithOutbox(a.outboxRepo, kafka.NewEventCodec())
	}
	if a.index != nil {
		sync.WithVectorIndex(a.index)
	}

	return usecase.NewGenerationUC(a.conditionRepo, pipeline, sync, a.archive, a.embedder.Model(), a.logger), nil
}

// SearchUC выбирает бэкенд поиска: match_conditions в PostgreSQL или зеркальный индекс Qdrant.
func (a *App) SearchUC() *usecase.SearchUseCase {
	var matcher usecase.ConditionMatcher = a.conditionRepo
	if a.cfg.Search.Backend == config.SearchBackendQdr && a.index != nil {
		matcher = usecase.NewIndexMatcher(a.index, a.conditionRepo)
	}

	return usecase.NewSearchUC(a.embedder, matcher, a.conditionRepo, a.cache, a.embedder.Model(), a.logger)
}

func (a *App) VerificationUC() *usecase.VerificationUseCase {
	return usecase.NewVerificationUC(a.conditionRepo, a.SearchUC(), a.logger)
}

// DrainOutbox сразу отправляет события, записанные за текущий запуск.
func (a *App) DrainOutbox(ctx context.Context) {
	if a.outboxWorker == nil {
		return
	}

	sent, err := a.outboxWorker.Drain(ctx)
	if err != nil {
		a.logger.Warnf("outbox drain failed, events stay pending: %v", err)
		return
	}
	a.logger.Infof("Published %d embedding events to kafka", sent)
}

func (a *App) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return a.closer.Close(ctx)
}
