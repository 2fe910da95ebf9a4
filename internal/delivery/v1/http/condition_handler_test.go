package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DRSN-tech/conditions-backend/internal/domain"
	"github.com/DRSN-tech/conditions-backend/internal/repository/memory"
	"github.com/DRSN-tech/conditions-backend/internal/usecase"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return s.vector, s.err
}

type brokenMatcher struct{}

func (brokenMatcher) MatchConditions(context.Context, []float32, float64, int) ([]domain.ConditionMatch, error) {
	return nil, errors.New("rpc failed")
}

func newTestRouter(t *testing.T, embedder usecase.Embedder, matcher usecase.ConditionMatcher) http.Handler {
	t.Helper()

	repo := memory.NewConditionRepo(
		domain.Condition{ID: "1", Name: "PTSD", DCCode: "9411", Description: "Post-traumatic stress disorder", Embedding: []float32{1, 0, 0}},
		domain.Condition{ID: "2", Name: "Tinnitus", DCCode: "6260", Description: "Ringing in the ears", Embedding: []float32{0, 1, 0}},
		domain.Condition{ID: "3", Name: "Migraine", DCCode: "8100", Description: "Headaches"},
	)
	if matcher == nil {
		matcher = repo
	}

	log := logger.NewNopLogger()
	searchUC := usecase.NewSearchUC(embedder, matcher, repo, nil, "test-model", log)

	mux := chi.NewRouter()
	NewRouter(mux, log).Init(searchUC, 0.5, 5)
	return mux
}

func doGet(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSearchConditions(t *testing.T) {
	router := newTestRouter(t, stubEmbedder{vector: []float32{1, 0, 0}}, nil)

	rec := doGet(t, router, "/api/v1/conditions/search?q=stress")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count   int `json:"count"`
		Matches []struct {
			ID                string `json:"id"`
			DCCode            string `json:"dc_code"`
			SimilarityPercent string `json:"similarity_percent"`
		} `json:"matches"`
		AverageSimilarityPercent string `json:"average_similarity_percent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Matches, 1)
	assert.Equal(t, "1", body.Matches[0].ID)
	assert.Equal(t, "9411", body.Matches[0].DCCode)
	assert.Equal(t, "100", body.Matches[0].SimilarityPercent)
	assert.Equal(t, "100", body.AverageSimilarityPercent)
}

func TestSearchConditions_Errors(t *testing.T) {
	tests := []struct {
		name     string
		embedder stubEmbedder
		matcher  usecase.ConditionMatcher
		target   string
		wantCode int
		wantMsg  string
	}{
		{"missing q", stubEmbedder{vector: []float32{1, 0, 0}}, nil, "/api/v1/conditions/search", http.StatusBadRequest, e.ErrMissingQuery.Error()},
		{"blank q", stubEmbedder{vector: []float32{1, 0, 0}}, nil, "/api/v1/conditions/search?q=%20%20", http.StatusBadRequest, e.ErrEmptyText.Error()},
		{"bad threshold", stubEmbedder{vector: []float32{1, 0, 0}}, nil, "/api/v1/conditions/search?q=x&threshold=2", http.StatusBadRequest, e.ErrInvalidThreshold.Error()},
		{"unparsable threshold", stubEmbedder{vector: []float32{1, 0, 0}}, nil, "/api/v1/conditions/search?q=x&threshold=abc", http.StatusBadRequest, e.ErrInvalidThreshold.Error()},
		{"bad limit", stubEmbedder{vector: []float32{1, 0, 0}}, nil, "/api/v1/conditions/search?q=x&limit=0", http.StatusBadRequest, e.ErrInvalidLimit.Error()},
		{"embedding failure", stubEmbedder{err: e.NewEmbeddingServiceError("embed", errors.New("401"))}, nil, "/api/v1/conditions/search?q=x", http.StatusBadGateway, e.ErrBadGateway.Error()},
		{"search failure", stubEmbedder{vector: []float32{1, 0, 0}}, brokenMatcher{}, "/api/v1/conditions/search?q=x", http.StatusServiceUnavailable, e.ErrServiceUnavailable.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, tt.embedder, tt.matcher)

			rec := doGet(t, router, tt.target)
			assert.Equal(t, tt.wantCode, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestSimilarConditions(t *testing.T) {
	router := newTestRouter(t, stubEmbedder{}, nil)

	rec := doGet(t, router, "/api/v1/conditions/2/similar?threshold=0.1&limit=3")
	require.Equal(t, http.StatusOK, rec.Code)

	var body SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "Tinnitus", body.Matches[0].Name)
	assert.Equal(t, []int32{}, body.Matches[0].RatingPercentages)

	assert.Equal(t, http.StatusNotFound, doGet(t, router, "/api/v1/conditions/404/similar").Code)
	assert.Equal(t, http.StatusConflict, doGet(t, router, "/api/v1/conditions/3/similar").Code)
}

func TestHealthz(t *testing.T) {
	rec := doGet(t, newTestRouter(t, stubEmbedder{}, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
