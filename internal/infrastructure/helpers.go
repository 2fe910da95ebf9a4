package infrastructure

import (
	"fmt"
	"time"
)

const ReportContentType = "application/json"

// ReportObjectKey возвращает ключ объекта отчёта: reports/<yyyy>/<mm>/<dd>/<run_id>.json.
func ReportObjectKey(runID string, startedAt time.Time) string {
	return fmt.Sprintf("reports/%s/%s.json", startedAt.UTC().Format("2006/01/02"), runID)
}
