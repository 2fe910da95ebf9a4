package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/conditions-backend/internal/domain"
	"github.com/DRSN-tech/conditions-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/conditions-backend/internal/usecase"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
	"github.com/pgvector/pgvector-go"
)

// Вектор читается как text и разбирается pgvector.Vector.Scan,
// поэтому регистрировать тип vector в pgx не нужно.
const conditionColumns = `
	id::text, name, dc_code, description, category_id::text, rating_percentages,
	embedding::text, created_at, updated_at`

// ConditionRepo реализует хранилище записей поверх PostgreSQL с расширением pgvector.
type ConditionRepo struct {
	db   Querier
	conv converter.ConditionConverter
}

func NewConditionRepo(db Querier, conv converter.ConditionConverter) *ConditionRepo {
	return &ConditionRepo{
		db:   db,
		conv: conv,
	}
}

// FetchMissingEmbeddings возвращает записи без эмбеддинга в порядке хранилища.
func (c *ConditionRepo) FetchMissingEmbeddings(ctx context.Context) ([]usecase.ConditionInput, error) {
	query := `
		SELECT id::text, name, description
		FROM conditions
		WHERE embedding IS NULL
		ORDER BY created_at, id
	`

	rows, err := conn(ctx, c.db).Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	res := make([]usecase.ConditionInput, 0)
	for rows.Next() {
		var model converter.ConditionModel
		if err := rows.Scan(&model.ID, &model.Name, &model.Description); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		res = append(res, c.conv.ToInput(&model))
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return res, nil
}

// UpdateEmbedding записывает вектор одной записи. Для неизвестного id возвращает e.ErrConditionNotFound.
func (c *ConditionRepo) UpdateEmbedding(ctx context.Context, id string, vector []float32) error {
	query := `
		UPDATE conditions
		SET embedding = $2::vector, updated_at = NOW()
		WHERE id::text = $1
	`

	tag, err := conn(ctx, c.db).Exec(ctx, query, id, pgvector.NewVector(vector).String())
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrConditionNotFound)
	}

	return nil
}

func (c *ConditionRepo) FirstEmbedded(ctx context.Context) (*domain.Condition, error) {
	query := `SELECT ` + conditionColumns + `
		FROM conditions
		WHERE embedding IS NOT NULL
		ORDER BY created_at, id
		LIMIT 1
	`

	model, err := scanCondition(conn(ctx, c.db).QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrNoEmbeddedConditions)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return c.conv.ToEntity(model), nil
}

func (c *ConditionRepo) GetByID(ctx context.Context, id string) (*domain.Condition, error) {
	query := `SELECT ` + conditionColumns + `
		FROM conditions
		WHERE id::text = $1
	`

	model, err := scanCondition(conn(ctx, c.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrConditionNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return c.conv.ToEntity(model), nil
}

func (c *ConditionRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Condition, error) {
	query := `SELECT ` + conditionColumns + `
		FROM conditions
		WHERE id::text = ANY($1)
	`

	rows, err := conn(ctx, c.db).Query(ctx, query, ids)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	var models []*converter.ConditionModel
	for rows.Next() {
		model, err := scanCondition(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		models = append(models, model)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return c.conv.ToArrEntity(models), nil
}

// MatchConditions вызывает серверную функцию match_conditions.
func (c *ConditionRepo) MatchConditions(ctx context.Context, vector []float32, threshold float64, limit int) ([]domain.ConditionMatch, error) {
	query := `
		SELECT id::text, name, dc_code, description, category_id::text, rating_percentages, similarity
		FROM match_conditions($1::vector, $2, $3)
	`

	rows, err := conn(ctx, c.db).Query(ctx, query, pgvector.NewVector(vector).String(), threshold, limit)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	res := make([]domain.ConditionMatch, 0, limit)
	for rows.Next() {
		var model converter.ConditionMatchModel
		if err := rows.Scan(
			&model.ID, &model.Name, &model.DCCode, &model.Description,
			&model.CategoryID, &model.RatingPercentages, &model.Similarity,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		res = append(res, c.conv.MatchToEntity(&model))
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return res, nil
}

func scanCondition(row pgx.Row) (*converter.ConditionModel, error) {
	var (
		model     converter.ConditionModel
		embedding *string
	)

	if err := row.Scan(
		&model.ID, &model.Name, &model.DCCode, &model.Description, &model.CategoryID,
		&model.RatingPercentages, &embedding, &model.CreatedAt, &model.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if embedding != nil {
		var vec pgvector.Vector
		if err := vec.Scan(*embedding); err != nil {
			return nil, err
		}
		model.Embedding = &vec
	}

	return &model, nil
}
