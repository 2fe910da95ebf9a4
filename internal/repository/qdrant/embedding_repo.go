package qdrant

import (
	"context"

	"github.com/DRSN-tech/conditions-backend/internal/cfg"
	"github.com/DRSN-tech/conditions-backend/internal/domain"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

const conditionIDKey = "condition_id"

// pointNamespace - пространство имён для детерминированных UUID точек,
// когда id записи сам не является UUID.
var pointNamespace = uuid.MustParse("6f1c3b1e-8a53-4d8b-9d1e-3f7a2c9e5b40")

// EmbeddingRepo репозиторий для работы с embedding-векторами в Qdrant
type EmbeddingRepo struct {
	client *qdrant.Client
	cfg    *cfg.QdrantCfg
}

func NewEmbeddingRepo(client *qdrant.Client, cfg *cfg.QdrantCfg) *EmbeddingRepo {
	return &EmbeddingRepo{
		client: client,
		cfg:    cfg,
	}
}

// Upsert сохраняет или обновляет векторы записей. Повторная запись той же записи
// перезаписывает точку, так как её id выводится из id записи.
func (q *EmbeddingRepo) Upsert(ctx context.Context, points []domain.IndexPoint) error {
	reqPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, point := range points {
		reqPoints = append(reqPoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(point.ConditionID)),
			Vectors: qdrant.NewVectors(point.Vector...),
			Payload: qdrant.NewValueMap(point.Payload),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Points:         reqPoints,
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Search возвращает id записей по убыванию косинусного сходства, не ниже threshold.
func (q *EmbeddingRepo) Search(ctx context.Context, vector []float32, threshold float64, limit int) ([]domain.ScoredID, error) {
	scoreThreshold := float32(threshold)
	pointsLimit := uint64(limit)

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Query:          qdrant.NewQuery(vector...),
		ScoreThreshold: &scoreThreshold,
		Limit:          &pointsLimit,
		WithPayload:    qdrant.NewWithPayloadInclude(conditionIDKey),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	res := make([]domain.ScoredID, 0, len(points))
	for _, point := range points {
		id := point.GetPayload()[conditionIDKey].GetStringValue()
		if id == "" {
			continue
		}
		res = append(res, domain.ScoredID{
			ConditionID: id,
			Score:       float64(point.GetScore()),
		})
	}

	return res, nil
}

// PointID возвращает UUID точки для id записи.
func PointID(conditionID string) string {
	if id, err := uuid.Parse(conditionID); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(pointNamespace, []byte(conditionID)).String()
}
