package app

import (
	"context"
	"io"

	config "github.com/DRSN-tech/conditions-backend/internal/cfg"
	"github.com/DRSN-tech/conditions-backend/internal/usecase"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"github.com/spf13/cobra"
)

// NewRootCmd собирает CLI. Каждая команда загружает конфигурацию сама,
// поэтому --help работает без окружения.
func NewRootCmd(log logger.Logger, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "conditions",
		Short:         "Semantic search over the conditions catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(
		newGenerateCmd(log, out),
		newVerifyCmd(log, out),
		newServeCmd(log),
	)

	return root
}

func newGenerateCmd(log logger.Logger, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-embeddings",
		Short: "Generate embeddings for conditions that have none",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), log, func(ctx context.Context, a *App) error {
				uc, err := a.GenerationUC()
				if err != nil {
					return err
				}

				res, runErr := uc.Run(ctx)
				if res != nil {
					PrintGeneration(out, res)
					a.DrainOutbox(context.WithoutCancel(ctx))
				}
				return runErr
			})
		},
	}
}

func newVerifyCmd(log logger.Logger, out io.Writer) *cobra.Command {
	var (
		query     string
		threshold float64
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "verify-search",
		Short: "Run a sanity check of the similarity search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), log, func(ctx context.Context, a *App) error {
				req := usecase.NewVerifyReq(a.cfg.Search.VerifyQuery, a.cfg.Search.Threshold, a.cfg.Search.Limit)
				if cmd.Flags().Changed("query") {
					req.Query = query
				}
				if cmd.Flags().Changed("threshold") {
					req.Threshold = threshold
				}
				if cmd.Flags().Changed("limit") {
					req.Limit = limit
				}

				report, err := a.VerificationUC().Run(ctx, req)
				if err != nil {
					return err
				}

				PrintVerification(out, report)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "ad hoc text query (default SEARCH_VERIFY_QUERY)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum similarity (default SEARCH_THRESHOLD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of matches (default SEARCH_LIMIT)")

	return cmd
}

func newServeCmd(log logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the search HTTP API, gRPC health and the outbox relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), log, func(ctx context.Context, a *App) error {
				return a.RunServe(ctx)
			})
		},
	}
}

// withApp загружает конфигурацию, собирает App и закрывает его после fn.
func withApp(ctx context.Context, log logger.Logger, fn func(ctx context.Context, a *App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// ошибки логирует вызывающий код
	cfg, err := config.Load(log)
	if err != nil {
		return e.Wrap("load config", err)
	}

	a, err := NewApp(ctx, cfg, log)
	if err != nil {
		return e.Wrap("initialize app", err)
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			log.Warnf("shutdown: %v", err)
		}
	}()

	return fn(ctx, a)
}
