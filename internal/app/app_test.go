package app

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	config "github.com/DRSN-tech/conditions-backend/internal/cfg"
	"github.com/DRSN-tech/conditions-backend/internal/domain"
	"github.com/DRSN-tech/conditions-backend/internal/usecase"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv(config.EnvDBURL, "")
	t.Setenv(config.EnvServiceKey, "")
	t.Setenv(config.EnvOpenAIKey, "")
}

func TestCommands_MissingCredentials(t *testing.T) {
	for _, name := range []string{"generate-embeddings", "verify-search", "serve"} {
		t.Run(name, func(t *testing.T) {
			clearCredentials(t)

			var out bytes.Buffer
			cmd := NewRootCmd(logger.NewNopLogger(), &out)
			cmd.SetArgs([]string{name})

			err := cmd.ExecuteContext(context.Background())

			var cfgErr *e.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), config.EnvOpenAIKey)
			assert.Empty(t, out.String())
		})
	}
}

func TestCommands_ConfigErrorIsNotLogged(t *testing.T) {
	clearCredentials(t)

	var logs bytes.Buffer
	cmd := NewRootCmd(logger.NewSlogLoggerWithWriter(&logs, "debug", "text"), &bytes.Buffer{})
	cmd.SetArgs([]string{"generate-embeddings"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
	assert.NotContains(t, logs.String(), config.EnvOpenAIKey)
	assert.NotContains(t, logs.String(), "level=ERROR")
}

func TestNewApp_RequiresOpenAIKeyBeforeConnecting(t *testing.T) {
	cfg := &config.Config{
		Db:        &config.PGDBCfg{URL: "postgres://unreachable:1/db"},
		Embedding: &config.EmbeddingCfg{Model: "text-embedding-ada-002", Dimensions: 1536},
	}

	a, err := NewApp(context.Background(), cfg, logger.NewNopLogger())

	require.Nil(t, a)
	var cfgErr *e.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{config.EnvOpenAIKey}, cfgErr.Keys)
}

func TestPrintGeneration_NothingPending(t *testing.T) {
	var out bytes.Buffer
	PrintGeneration(&out, &usecase.GenerationRes{
		Batch: usecase.NewBatchResult(0),
		Sync:  usecase.NewSyncSummary(),
	})

	assert.Equal(t, "No conditions found without embeddings. All done!\n", out.String())
}

func TestPrintGeneration_Summary(t *testing.T) {
	batch := usecase.NewBatchResult(3)
	batch.Successes = append(batch.Successes,
		domain.Embedding{ID: "a", Vector: []float32{1}},
		domain.Embedding{ID: "b", Vector: []float32{1}},
	)
	batch.Failures = append(batch.Failures, usecase.BatchFailure{Index: 2, ID: "c", Err: errors.New("boom")})

	sync := usecase.NewSyncSummary()
	sync.Succeeded = 1
	sync.Failed = 1
	sync.Failures = append(sync.Failures, usecase.SyncFailure{ID: "b", Err: e.ErrConditionNotFound})

	var out bytes.Buffer
	PrintGeneration(&out, &usecase.GenerationRes{Fetched: 3, Batch: batch, Sync: sync, ReportKey: "reports/x.json"})

	s := out.String()
	assert.Contains(t, s, "=== Summary ===")
	assert.Contains(t, s, "Successfully updated: 1 conditions")
	assert.Contains(t, s, "Errors: 2 conditions")
	assert.Contains(t, s, "Failed to embed: c")
	assert.Contains(t, s, "Failed to update b")
	assert.Contains(t, s, "Report: reports/x.json")
}

func TestPrintVerification(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "pain "
	}

	report := &usecase.VerificationReport{
		Source:         &domain.Condition{Name: "Tinnitus", DCCode: "6260"},
		SelfSimilarity: 1,
		ByVector: &usecase.SearchRun{
			Label: "similar to Tinnitus",
			Query: "Tinnitus",
			Result: &usecase.SearchRes{
				Matches: []domain.ConditionMatch{
					{Name: "Tinnitus", DCCode: "6260", Description: long, Similarity: 1},
					{Name: "Hearing loss", DCCode: "6100", Description: "short", Similarity: 0.87346},
				},
				AverageSimilarity: 0.93673,
			},
		},
		ByText: &usecase.SearchRun{
			Label:  "text query",
			Query:  "ringing in ears",
			Result: &usecase.SearchRes{Matches: []domain.ConditionMatch{}},
		},
		QueryToSourceSimilarity: 0.81,
	}

	var out bytes.Buffer
	PrintVerification(&out, report)
	s := out.String()

	assert.Contains(t, s, "1. Tinnitus (DC 6260)")
	assert.Contains(t, s, "2. Hearing loss (DC 6100)")
	assert.Contains(t, s, "Similarity: 100.00%")
	assert.Contains(t, s, "Similarity: 87.35%")
	assert.Contains(t, s, "Average similarity: 93.67%")
	assert.Contains(t, s, long[:100]+"...")
	assert.Contains(t, s, "Query to source similarity: 0.8100")
	assert.Contains(t, s, "No matches above threshold")
}
