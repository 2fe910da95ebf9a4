package usecase

import "context"

type SearchUC interface {
	SearchByText(ctx context.Context, req *SearchReq) (*SearchRes, error)
	SimilarTo(ctx context.Context, req *SimilarReq) (*SearchRes, error)
}

type GenerationUC interface {
	Run(ctx context.Context) (*GenerationRes, error)
}

type VerificationUC interface {
	Run(ctx context.Context, req *VerifyReq) (*VerificationReport, error)
}
