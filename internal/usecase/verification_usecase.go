package usecase

import (
	"context"
	"strings"

	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"github.com/DRSN-tech/conditions-backend/pkg/vector"
)

// VerificationUseCase выполняет сквозную проверку поиска: по вектору сохранённой записи
// и по произвольному текстовому запросу.
type VerificationUseCase struct {
	reader ConditionReader
	search *SearchUseCase
	logger logger.Logger
}

func NewVerificationUC(reader ConditionReader, search *SearchUseCase, logger logger.Logger) *VerificationUseCase {
	return &VerificationUseCase{
		reader: reader,
		search: search,
		logger: logger,
	}
}

func (v *VerificationUseCase) Run(ctx context.Context, req *VerifyReq) (*VerificationReport, error) {
	const op = "VerificationUseCase.Run"

	if err := ValidateParams(req.Threshold, req.Limit); err != nil {
		return nil, e.Wrap(op, err)
	}

	source, err := v.reader.FirstEmbedded(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	self, err := vector.Cosine(source.Embedding, source.Embedding)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	v.logger.Infof("Using '%s' (%s) as source, self similarity: %.4f", source.Name, source.DCCode, self)

	byVector, err := v.search.SearchByVector(ctx, source.Embedding, req.Threshold, req.Limit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	report := &VerificationReport{
		Source:         source,
		SelfSimilarity: self,
		ByVector: &SearchRun{
			Label:  "similar to " + source.Name,
			Query:  source.Name,
			Result: byVector,
		},
	}

	if strings.TrimSpace(req.Query) == "" {
		return report, nil
	}

	queryVec, err := v.search.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	cross, err := vector.Cosine(queryVec, source.Embedding)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	report.QueryToSourceSimilarity = cross

	byText, err := v.search.SearchByVector(ctx, queryVec, req.Threshold, req.Limit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	report.ByText = &SearchRun{
		Label:  "text query",
		Query:  req.Query,
		Result: byText,
	}

	return report, nil
}
