package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/DRSN-tech/conditions-backend/internal/cfg"
	"github.com/DRSN-tech/conditions-backend/pkg/clients"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

const keyPrefix = "embedding:query:"

// queryEmbeddingModel - JSON-представление вектора запроса в кэше.
type queryEmbeddingModel struct {
	Model  string    `json:"model"`
	Vector []float32 `json:"vector"`
}

// CacheRepo кэширует векторы поисковых запросов, чтобы не платить за повторный вызов модели.
type CacheRepo struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// GetQueryEmbedding возвращает nil без ошибки при промахе или битом значении.
func (c *CacheRepo) GetQueryEmbedding(ctx context.Context, model string, text string) ([]float32, error) {
	key := QueryKey(model, text)

	data, err := c.client.Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, r.Nil) {
			return nil, nil // cache miss
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var cached queryEmbeddingModel
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
		c.drop(key)
		return nil, nil
	}

	if cached.Model != model || len(cached.Vector) == 0 {
		c.logger.Warnf("Cache model mismatch for key %s: %s != %s", key, cached.Model, model)
		c.drop(key)
		return nil, nil
	}

	return cached.Vector, nil
}

func (c *CacheRepo) SetQueryEmbedding(ctx context.Context, model string, text string, vector []float32) error {
	data, err := json.Marshal(queryEmbeddingModel{Model: model, Vector: vector})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := c.client.Client.Set(ctx, QueryKey(model, text), data, c.cfg.EmbeddingTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (c *CacheRepo) drop(key string) {
	if err := c.client.Client.Del(context.Background(), key).Err(); err != nil {
		c.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}
}

// QueryKey возвращает ключ Redis для пары модель + текст запроса.
func QueryKey(model string, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return keyPrefix + hex.EncodeToString(sum[:])
}
