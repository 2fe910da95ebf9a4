package minio

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DRSN-tech/conditions-backend/internal/domain"
	"github.com/DRSN-tech/conditions-backend/internal/infrastructure"
	"github.com/DRSN-tech/conditions-backend/internal/usecase"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/jitter"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
)

const (
	uploadAttempts = 3
	baseBackoff    = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// MinioInfrastructure архивирует отчёты о запусках генерации в MinIO.
type MinioInfrastructure struct {
	reportRepo usecase.ReportRepository
	bucket     string
	logger     logger.Logger
	backoff    jitter.Backoff
}

func NewMinioInfrastructure(reportRepo usecase.ReportRepository, bucket string, logger logger.Logger) *MinioInfrastructure {
	return &MinioInfrastructure{
		reportRepo: reportRepo,
		bucket:     bucket,
		logger:     logger,
		backoff:    jitter.NewBackoff(baseBackoff, maxBackoff),
	}
}

// Archive сериализует отчёт в JSON и загружает его, повторяя попытку с экспоненциальной задержкой.
func (m *MinioInfrastructure) Archive(ctx context.Context, report *usecase.RunReport) (string, error) {
	const op = "MinioInfrastructure.Archive"

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", e.Wrap(op, err)
	}

	object := domain.NewReport(
		m.bucket,
		infrastructure.ReportObjectKey(report.RunID, report.StartedAt),
		data,
		infrastructure.ReportContentType,
	)

	var lastErr error
	for attempt := 0; attempt < uploadAttempts; attempt++ {
		key, err := m.reportRepo.Upload(ctx, object)
		if err == nil {
			m.logger.Infof("Run report archived: %s/%s", m.bucket, key)
			return key, nil
		}
		lastErr = err

		if attempt == uploadAttempts-1 {
			break
		}

		sleepTime := m.backoff(attempt)
		m.logger.Warnf("report upload failed, retrying in %v (attempt %d)", sleepTime, attempt+1)
		select {
		case <-time.After(sleepTime):
		case <-ctx.Done():
			return "", e.Wrap(op, ctx.Err())
		}
	}

	return "", e.Wrap(op, fmt.Errorf("all %d attempts failed: %w", uploadAttempts, lastErr))
}
