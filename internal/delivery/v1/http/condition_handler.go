package http

import (
	"net/http"

	"github.com/DRSN-tech/conditions-backend/internal/usecase"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type ConditionHandler struct {
	searchUsecase usecase.SearchUC
	defaults      searchParams
	logger        logger.Logger
}

func NewConditionHandler(searchUsecase usecase.SearchUC, threshold float64, limit int, logger logger.Logger) *ConditionHandler {
	return &ConditionHandler{
		searchUsecase: searchUsecase,
		defaults:      searchParams{Threshold: threshold, Limit: limit},
		logger:        logger,
	}
}

// searchConditions
//
//	@Summary		Поиск состояний по тексту
//	@Description	Встраивает текст запроса и возвращает ближайшие состояния по косинусному сходству
//	@Tags			conditions
//	@Produce		json
//	@Param			q			query		string	true	"Текст запроса"
//	@Param			threshold	query		number	false	"Минимальное сходство, [-1, 1]"
//	@Param			limit		query		integer	false	"Максимум результатов, [1, 100]"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		502			{object}	ErrorResponse	"Сервис эмбеддингов недоступен"
//	@Failure		503			{object}	ErrorResponse	"Поиск недоступен"
//	@Router			/conditions/search [get]
func (c *ConditionHandler) searchConditions(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("q") {
		c.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), e.ErrMissingQuery.Error())
		WriteError(w, e.ErrMissingQuery)
		return
	}

	params, err := parseSearchParams(r, c.defaults)
	if err != nil {
		c.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	res, err := c.searchUsecase.SearchByText(r.Context(), usecase.NewSearchReq(r.URL.Query().Get("q"), params.Threshold, params.Limit))
	if err != nil {
		c.logError(err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSearchResponse(res))
}

// similarConditions
//
//	@Summary		Похожие состояния
//	@Description	Возвращает состояния, ближайшие к сохранённому эмбеддингу состояния id
//	@Tags			conditions
//	@Produce		json
//	@Param			id			path		string	true	"ID состояния"
//	@Param			threshold	query		number	false	"Минимальное сходство, [-1, 1]"
//	@Param			limit		query		integer	false	"Максимум результатов, [1, 100]"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		404			{object}	ErrorResponse	"Состояние не найдено"
//	@Failure		409			{object}	ErrorResponse	"У состояния нет эмбеддинга"
//	@Failure		503			{object}	ErrorResponse	"Поиск недоступен"
//	@Router			/conditions/{id}/similar [get]
func (c *ConditionHandler) similarConditions(w http.ResponseWriter, r *http.Request) {
	params, err := parseSearchParams(r, c.defaults)
	if err != nil {
		c.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	res, err := c.searchUsecase.SimilarTo(r.Context(), usecase.NewSimilarReq(chi.URLParam(r, "id"), params.Threshold, params.Limit))
	if err != nil {
		c.logError(err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSearchResponse(res))
}

func (c *ConditionHandler) logError(err error) {
	code, _ := ToHTTPResponse(err)
	if code >= http.StatusInternalServerError {
		c.logger.Errorf(err, "%d", code)
		return
	}
	c.logger.Warnf("%d %s", code, err.Error())
}
