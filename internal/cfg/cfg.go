package cfg

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/spf13/viper"
)

const (
	EnvDBURL         = "SUPABASE_DB_URL"
	EnvServiceKey    = "SUPABASE_SERVICE_ROLE_KEY"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	defaultEnvFile   = ".env.local"
	SearchBackendPG  = "postgres"
	SearchBackendQdr = "qdrant"
)

type Config struct {
	Db        *PGDBCfg
	Embedding *EmbeddingCfg
	Search    *SearchCfg
	Http      *HTTPConfig
	Grpc      *GRPCConfig
	Qdrant    *QdrantCfg
	Redis     *RedisCfg
	Kafka     *KafkaCfg
	Minio     *MinIOCfg
}

type PGDBCfg struct {
	URL           string // строка подключения к хранилищу записей
	ServiceKey    string // сервисный ключ, используется как пароль
	RunMigrations bool
	MigrationsURL string
}

type EmbeddingCfg struct {
	APIKey     string
	BaseURL    string // пустое значение - официальный endpoint OpenAI
	Model      string
	Dimensions int
	Timeout    time.Duration // таймаут одного запроса
	MaxRetries int           // попыток на временные ошибки (429, 5xx)
	Delay      time.Duration // пауза между запросами в батче
}

type SearchCfg struct {
	Backend     string
	Threshold   float64
	Limit       int
	VerifyQuery string
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type GRPCConfig struct {
	Port        string
	NetworkMode string
}

type QdrantCfg struct {
	Enabled              bool
	Port                 int
	Host                 string
	ApiKey               string
	QdrantCollectionName string // имя коллекции в Qdrant
	UseTLS               bool
	VectorSize           uint64
}

type RedisCfg struct {
	Enabled      bool
	Addr         string
	Password     string
	User         string
	DB           int
	MaxRetries   int
	DialTimeout  time.Duration
	Timeout      time.Duration
	EmbeddingTTL time.Duration
}

type KafkaCfg struct {
	Enabled           bool
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
	OutboxBatchSize   int
}

type MinIOCfg struct {
	Enabled           bool
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Бакет для отчётов о запусках
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
}

// env читает значения из окружения и, при наличии, из .env.local.
type env struct {
	v *viper.Viper
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
// Отсутствие обязательных значений возвращается одной ошибкой *e.ConfigurationError
// до создания каких-либо клиентов.
func Load(log logger.Logger) (*Config, error) {
	src, err := newEnv(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return load(src, log)
}

func load(src env, log logger.Logger) (*Config, error) {
	if err := src.requireKeys(EnvDBURL, EnvServiceKey, EnvOpenAIKey); err != nil {
		return nil, err
	}

	db, err := loadPGDBCfg(src)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	embedding, err := loadEmbeddingCfg(src, log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	search, err := loadSearchCfg(src, log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(src, log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	qdrant, err := loadQdrantCfg(src, log, embedding.Dimensions)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if search.Backend == SearchBackendQdr && !qdrant.Enabled {
		return nil, e.NewConfigurationError("QDRANT_HOST")
	}

	redis, err := loadRedisCfg(src, log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg(src)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(src, log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Db:        db,
		Embedding: embedding,
		Search:    search,
		Http:      http,
		Grpc:      loadGRPCConfig(src),
		Qdrant:    qdrant,
		Redis:     redis,
		Kafka:     kafka,
		Minio:     minio,
	}, nil
}

func newEnv(log logger.Logger) (env, error) {
	v := viper.New()
	v.AutomaticEnv()

	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = defaultEnvFile
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			log.Errorf(err, "failed to read %s", path)
			return env{}, err
		}
		log.Debugf("loaded configuration file %s", path)
	}

	return env{v: v}, nil
}

func (s env) requireKeys(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if strings.TrimSpace(s.getEnv(key)) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return e.NewConfigurationError(missing...)
	}

	return nil
}

func loadPGDBCfg(src env) (*PGDBCfg, error) {
	const (
		defaultRunMigrations = false
		defaultMigrationsURL = "file://db/migrations"
	)

	runMigrations, err := src.parseBoolEnv("RUN_MIGRATIONS", defaultRunMigrations)
	if err != nil {
		return nil, e.Wrap("RUN_MIGRATIONS", err)
	}

	return &PGDBCfg{
		URL:           src.getEnv(EnvDBURL),
		ServiceKey:    src.getEnv(EnvServiceKey),
		RunMigrations: runMigrations,
		MigrationsURL: src.getEnvOrDefault("MIGRATIONS_URL", defaultMigrationsURL),
	}, nil
}

func loadEmbeddingCfg(src env, log logger.Logger) (*EmbeddingCfg, error) {
	const (
		defaultModel      = "text-embedding-ada-002"
		defaultDimensions = 1536
		defaultTimeout    = 30 * time.Second
		defaultMaxRetries = 1 // один вызов на запись; повторы включаются явно
		defaultDelay      = 100 * time.Millisecond
	)

	dimensions, err := src.parseIntEnv("EMBEDDING_DIMENSIONS", defaultDimensions)
	if err != nil || dimensions <= 0 {
		log.Errorf(e.ErrIncorrectEnvVariable, "invalid EMBEDDING_DIMENSIONS")
		return nil, e.Wrap("EMBEDDING_DIMENSIONS", e.ErrIncorrectEnvVariable)
	}

	timeout, err := src.parseDurationEnv("EMBEDDING_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_TIMEOUT")
		return nil, err
	}

	maxRetries, err := src.parseIntEnv("EMBEDDING_MAX_RETRIES", defaultMaxRetries)
	if err != nil || maxRetries < 1 {
		log.Errorf(e.ErrIncorrectEnvVariable, "invalid EMBEDDING_MAX_RETRIES")
		return nil, e.Wrap("EMBEDDING_MAX_RETRIES", e.ErrIncorrectEnvVariable)
	}

	delay, err := src.parseDurationEnv("EMBEDDING_DELAY", defaultDelay)
	if err != nil || delay < 0 {
		log.Errorf(e.ErrIncorrectEnvVariable, "invalid EMBEDDING_DELAY")
		return nil, e.Wrap("EMBEDDING_DELAY", e.ErrIncorrectEnvVariable)
	}

	return &EmbeddingCfg{
		APIKey:     src.getEnv(EnvOpenAIKey),
		BaseURL:    src.getEnv("OPENAI_BASE_URL"),
		Model:      src.getEnvOrDefault("EMBEDDING_MODEL", defaultModel),
		Dimensions: dimensions,
		Timeout:    timeout,
		MaxRetries: maxRetries,
		Delay:      delay,
	}, nil
}

func loadSearchCfg(src env, log logger.Logger) (*SearchCfg, error) {
	const (
		defaultThreshold   = 0.5
		defaultLimit       = 5
		defaultVerifyQuery = "chronic pain and inflammation in joints"
	)

	backend := strings.ToLower(src.getEnvOrDefault("SEARCH_BACKEND", SearchBackendPG))
	if backend != SearchBackendPG && backend != SearchBackendQdr {
		log.Errorf(e.ErrIncorrectEnvVariable, "invalid SEARCH_BACKEND %q", backend)
		return nil, e.Wrap("SEARCH_BACKEND", e.ErrIncorrectEnvVariable)
	}

	threshold, err := src.parseFloatEnv("SEARCH_THRESHOLD", defaultThreshold)
	if err != nil || threshold < -1 || threshold > 1 {
		log.Errorf(e.ErrIncorrectEnvVariable, "invalid SEARCH_THRESHOLD")
		return nil, e.Wrap("SEARCH_THRESHOLD", e.ErrIncorrectEnvVariable)
	}

	limit, err := src.parseIntEnv("SEARCH_LIMIT", defaultLimit)
	if err != nil || limit < 1 {
		log.Errorf(e.ErrIncorrectEnvVariable, "invalid SEARCH_LIMIT")
		return nil, e.Wrap("SEARCH_LIMIT", e.ErrIncorrectEnvVariable)
	}

	return &SearchCfg{
		Backend:     backend,
		Threshold:   threshold,
		Limit:       limit,
		VerifyQuery: src.getEnvOrDefault("SEARCH_VERIFY_QUERY", defaultVerifyQuery),
	}, nil
}

func loadHTTPConfig(src env, log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 5 * time.Second
		defaultWriteTimeout = 30 * time.Second
		defaultIdleTimeout  = 60 * time.Second
	)

	readTimeout, err := src.parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := src.parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := src.parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:         src.getEnvOrDefault("HTTP_PORT", defaultPort),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadGRPCConfig(src env) *GRPCConfig {
	const (
		defaultPort        = "8091"
		defaultNetworkMode = "tcp"
	)

	return &GRPCConfig{
		Port:        src.getEnvOrDefault("GRPC_PORT", defaultPort),
		NetworkMode: src.getEnvOrDefault("GRPC_NETWORK_MODE", defaultNetworkMode),
	}
}

func loadQdrantCfg(src env, log logger.Logger, dimensions int) (*QdrantCfg, error) {
	const (
		defaultQdrantGRPCPort = 6334
		defaultUseTLS         = false
		defaultCollection     = "conditions"
	)

	port, err := src.parseIntEnv("QDRANT_GRPC_PORT", defaultQdrantGRPCPort)
	if err != nil {
		log.Errorf(err, "invalid QDRANT_GRPC_PORT")
		return nil, err
	}

	useTLS, err := src.parseBoolEnv("QDRANT_USE_TLS", defaultUseTLS)
	if err != nil {
		log.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	host := src.getEnv("QDRANT_HOST")

	return &QdrantCfg{
		Enabled:              host != "",
		Host:                 host,
		Port:                 port,
		ApiKey:               src.getEnv("QDRANT__SERVICE__API_KEY"),
		QdrantCollectionName: src.getEnvOrDefault("COLLECTION_NAME", defaultCollection),
		UseTLS:               useTLS,
		VectorSize:           uint64(dimensions),
	}, nil
}

func loadRedisCfg(src env, log logger.Logger) (*RedisCfg, error) {
	const (
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultEmbeddingTTL = 24 * time.Hour
	)

	addr := src.getEnv("REDIS_ADDR")

	db, err := src.parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := src.parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := src.parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := src.parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := src.parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	embeddingTTL, err := src.parseDurationEnv("EMBEDDING_CACHE_TTL", defaultEmbeddingTTL)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_CACHE_TTL")
		return nil, err
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Enabled:      addr != "",
		Addr:         addr,
		Password:     src.getEnv("REDIS_PASSWORD"),
		User:         src.getEnv("REDIS_USER"),
		DB:           db,
		MaxRetries:   maxRetries,
		DialTimeout:  dialTimeout,
		Timeout:      timeout,
		EmbeddingTTL: embeddingTTL,
	}, nil
}

func loadKafkaCfg(src env) (*KafkaCfg, error) {
	const (
		defaultTopic             = "condition-embeddings"
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultOutboxBatchSize   = 10
	)

	var brokers []string
	for _, broker := range strings.Split(src.getEnv("KAFKA_BROKERS"), ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	partitions, err := src.parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := src.parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	batchSize, err := src.parseIntEnv("OUTBOX_BATCH_SIZE", defaultOutboxBatchSize)
	if err != nil {
		return nil, e.Wrap("OUTBOX_BATCH_SIZE", err)
	}

	return &KafkaCfg{
		Enabled:           len(brokers) > 0,
		Brokers:           brokers,
		Topic:             src.getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       src.getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
		OutboxBatchSize:   batchSize,
	}, nil
}

func loadMinIOCfg(src env, log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL = false
		defaultBucket = "embedding-reports"
	)

	useSSL, err := src.parseBoolEnv("MINIO_USE_SSL", defaultUseSSL)
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	endpoint := src.getEnv("MINIO_ENDPOINT")

	return &MinIOCfg{
		Enabled:           endpoint != "",
		MinioEndpoint:     endpoint,
		BucketName:        src.getEnvOrDefault("BUCKET_NAME", defaultBucket),
		MinioRootUser:     src.getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: src.getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func (s env) getEnv(key string) string {
	return strings.TrimSpace(s.v.GetString(key))
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func (s env) getEnvOrDefault(key, defaultValue string) string {
	if value := s.getEnv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func (s env) parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := s.getEnv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func (s env) parseIntEnv(key string, defaultValue int) (int, error) {
	v := s.getEnv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}

func (s env) parseFloatEnv(key string, defaultValue float64) (float64, error) {
	v := s.getEnv(key)
	if v == "" {
		return defaultValue, nil
	}

	floatValue, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return floatValue, nil
}

func (s env) parseBoolEnv(key string, defaultValue bool) (bool, error) {
	v := s.getEnv(key)
	if v == "" {
		return defaultValue, nil
	}

	return strconv.ParseBool(v)
}
