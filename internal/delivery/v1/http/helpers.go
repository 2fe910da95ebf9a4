package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/conditions-backend/internal/domain"
	"github.com/DRSN-tech/conditions-backend/internal/usecase"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/format"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MatchResponse - одна найденная запись.
type MatchResponse struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	DCCode            string          `json:"dc_code"`
	Description       string          `json:"description"`
	CategoryID        *string         `json:"category_id"`
	RatingPercentages []int32         `json:"rating_percentages"`
	Similarity        float64         `json:"similarity"`
	SimilarityPercent decimal.Decimal `json:"similarity_percent"`
}

// SearchResponse - результат поиска похожих записей.
type SearchResponse struct {
	Count                    int             `json:"count"`
	AverageSimilarity        float64         `json:"average_similarity"`
	AverageSimilarityPercent decimal.Decimal `json:"average_similarity_percent"`
	Matches                  []MatchResponse `json:"matches"`
}

// searchParams - общие параметры поиска из query string.
type searchParams struct {
	Threshold float64
	Limit     int
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

func ToHTTPResponse(err error) (int, string) {
	var (
		unavailable *e.SearchUnavailableError
		embedErr    *e.EmbeddingServiceError
	)

	switch {
	case errors.Is(err, e.ErrMissingQuery):
		return http.StatusBadRequest, e.ErrMissingQuery.Error()
	case errors.Is(err, e.ErrEmptyText):
		return http.StatusBadRequest, e.ErrEmptyText.Error()
	case errors.Is(err, e.ErrInvalidThreshold):
		return http.StatusBadRequest, e.ErrInvalidThreshold.Error()
	case errors.Is(err, e.ErrInvalidLimit):
		return http.StatusBadRequest, e.ErrInvalidLimit.Error()
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, e.ErrStatusBadRequest.Error()
	case errors.Is(err, e.ErrConditionNotFound):
		return http.StatusNotFound, e.ErrConditionNotFound.Error()
	case errors.Is(err, e.ErrConditionNotEmbedded):
		return http.StatusConflict, e.ErrConditionNotEmbedded.Error()
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable, e.ErrServiceUnavailable.Error()
	case errors.As(err, &embedErr):
		return http.StatusBadGateway, e.ErrBadGateway.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	WriteSuccess(w, code, NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// parseSearchParams читает threshold и limit; отсутствующие значения берутся из defaults.
func parseSearchParams(r *http.Request, defaults searchParams) (searchParams, error) {
	params := defaults
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("threshold")); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return params, e.Wrap(whereami.WhereAmI(), e.ErrInvalidThreshold)
		}
		params.Threshold = threshold
	}

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, e.Wrap(whereami.WhereAmI(), e.ErrInvalidLimit)
		}
		params.Limit = limit
	}

	if err := usecase.ValidateParams(params.Threshold, params.Limit); err != nil {
		return params, e.Wrap(whereami.WhereAmI(), err)
	}

	return params, nil
}

func toMatchResponse(m domain.ConditionMatch) MatchResponse {
	rating := m.RatingPercentages
	if rating == nil {
		rating = []int32{}
	}

	return MatchResponse{
		ID:                m.ID,
		Name:              m.Name,
		DCCode:            m.DCCode,
		Description:       m.Description,
		CategoryID:        m.CategoryID,
		RatingPercentages: rating,
		Similarity:        m.Similarity,
		SimilarityPercent: format.PercentValue(m.Similarity),
	}
}

func toSearchResponse(res *usecase.SearchRes) *SearchResponse {
	matches := make([]MatchResponse, 0, len(res.Matches))
	for _, m := range res.Matches {
		matches = append(matches, toMatchResponse(m))
	}

	return &SearchResponse{
		Count:                    len(matches),
		AverageSimilarity:        res.AverageSimilarity,
		AverageSimilarityPercent: format.PercentValue(res.AverageSimilarity),
		Matches:                  matches,
	}
}
