package pgdb_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DRSN-tech/conditions-backend/internal/repository/pgdb"
	"github.com/DRSN-tech/conditions-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var conditionCols = []string{
	"id", "name", "dc_code", "description", "category_id",
	"rating_percentages", "embedding", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*pgdb.ConditionRepo, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	return pgdb.NewConditionRepo(mock, converter.ConditionConverter{}), mock
}

func strPtr(s string) *string { return &s }

func TestConditionRepo_FetchMissingEmbeddings(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE embedding IS NULL")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description"}).
			AddRow("1", "PTSD", strPtr("Post-traumatic stress disorder")).
			AddRow("2", "Tinnitus", nil))

	got, err := repo.FetchMissingEmbeddings(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "PTSD", got[0].Name)
	assert.Equal(t, "Post-traumatic stress disorder", got[0].Description)
	assert.Equal(t, "2", got[1].ID)
	assert.Empty(t, got[1].Description)
}

func TestConditionRepo_UpdateEmbedding(t *testing.T) {
	query := regexp.QuoteMeta("SET embedding = $2::vector")

	t.Run("updated", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(query).
			WithArgs("1", "[1,0.5]").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdateEmbedding(context.Background(), "1", []float32{1, 0.5}))
	})

	t.Run("unknown id", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(query).
			WithArgs("missing", "[1,0]").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateEmbedding(context.Background(), "missing", []float32{1, 0})
		require.ErrorIs(t, err, e.ErrConditionNotFound)
	})
}

func TestConditionRepo_GetByID(t *testing.T) {
	query := regexp.QuoteMeta("WHERE id::text = $1")

	t.Run("found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		mock.ExpectQuery(query).
			WithArgs("1").
			WillReturnRows(pgxmock.NewRows(conditionCols).AddRow(
				"1", "PTSD", "9411", strPtr("Post-traumatic stress disorder"), strPtr("cat-1"),
				[]int32{0, 10, 30, 50, 70, 100}, strPtr("[1,0,0.25]"), created, nil,
			))

		got, err := repo.GetByID(context.Background(), "1")
		require.NoError(t, err)
		assert.Equal(t, "9411", got.DCCode)
		assert.Equal(t, "cat-1", *got.CategoryID)
		assert.Equal(t, []int32{0, 10, 30, 50, 70, 100}, got.RatingPercentages)
		assert.Equal(t, []float32{1, 0, 0.25}, got.Embedding)
		assert.Equal(t, created, got.CreatedAt)
		assert.Nil(t, got.UpdatedAt)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(query).
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(context.Background(), "missing")
		require.ErrorIs(t, err, e.ErrConditionNotFound)
	})
}

func TestConditionRepo_FirstEmbedded_Empty(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE embedding IS NOT NULL")).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FirstEmbedded(context.Background())
	require.ErrorIs(t, err, e.ErrNoEmbeddedConditions)
}

func TestConditionRepo_GetByIDs(t *testing.T) {
	repo, mock := newMockRepo(t)
	ids := []string{"1", "2"}
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id::text = ANY($1)")).
		WithArgs(ids).
		WillReturnRows(pgxmock.NewRows(conditionCols).
			AddRow("1", "PTSD", "9411", strPtr("Post-traumatic stress disorder"), nil, []int32{0, 10}, nil, created, nil).
			AddRow("2", "Tinnitus", "6260", nil, nil, []int32{10}, strPtr("[0,1]"), created, nil))

	got, err := repo.GetByIDs(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.False(t, got[0].HasEmbedding())
	assert.Equal(t, "Post-traumatic stress disorder", got[0].Description)
	assert.Equal(t, []float32{0, 1}, got[1].Embedding)
	assert.Empty(t, got[1].Description)
}

func TestConditionRepo_MatchConditions(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM match_conditions($1::vector, $2, $3)")).
		WithArgs("[1,0]", 0.8, 5).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "dc_code", "description", "category_id", "rating_percentages", "similarity",
		}).
			AddRow("1", "PTSD", "9411", strPtr("Post-traumatic stress disorder"), strPtr("cat-1"), []int32{0, 10}, 0.93).
			AddRow("2", "Tinnitus", "6260", nil, nil, []int32{10}, 0.81))

	got, err := repo.MatchConditions(context.Background(), []float32{1, 0}, 0.8, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "PTSD", got[0].Name)
	assert.InDelta(t, 0.93, got[0].Similarity, 1e-9)
	assert.Equal(t, "cat-1", *got[0].CategoryID)
	assert.Equal(t, "6260", got[1].DCCode)
	assert.Nil(t, got[1].CategoryID)
}
