package http

import (
	"net/http"

	_ "github.com/DRSN-tech/conditions-backend/docs" // Импорт описания API для swagger
	"github.com/DRSN-tech/conditions-backend/internal/usecase"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(searchUC usecase.SearchUC, threshold float64, limit int) {
	r.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		conditionHandler := NewConditionHandler(searchUC, threshold, limit, r.logger)
		registerConditionRoutes(v1, conditionHandler)
	})
}

func registerConditionRoutes(router chi.Router, handler *ConditionHandler) {
	router.Route("/conditions", func(cr chi.Router) {
		cr.Get("/search", handler.searchConditions)
		cr.Get("/{id}/similar", handler.similarConditions)
	})
}
