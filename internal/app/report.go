package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/DRSN-tech/conditions-backend/internal/usecase"
	"github.com/DRSN-tech/conditions-backend/pkg/format"
)

const excerptLen = 100

// PrintGeneration печатает итог запуска генерации.
func PrintGeneration(out io.Writer, res *usecase.GenerationRes) {
	if res.Fetched == 0 {
		fmt.Fprintln(out, "No conditions found without embeddings. All done!")
		return
	}

	fmt.Fprintln(out, "=== Summary ===")
	fmt.Fprintf(out, "Fetched: %d conditions\n", res.Fetched)
	fmt.Fprintf(out, "Embedded: %d conditions\n", len(res.Batch.Successes))
	fmt.Fprintf(out, "Successfully updated: %d conditions\n", res.Sync.Succeeded)
	fmt.Fprintf(out, "Errors: %d conditions\n", len(res.Batch.Failures)+res.Sync.Failed)

	if ids := res.Batch.FailedIDs(); len(ids) > 0 {
		fmt.Fprintf(out, "Failed to embed: %s\n", strings.Join(ids, ", "))
	}
	for _, f := range res.Sync.Failures {
		fmt.Fprintf(out, "Failed to update %s: %v\n", f.ID, f.Err)
	}
	if res.Sync.IndexFailed > 0 {
		fmt.Fprintf(out, "Not mirrored to vector index: %d conditions\n", res.Sync.IndexFailed)
	}
	if res.ReportKey != "" {
		fmt.Fprintf(out, "Report: %s\n", res.ReportKey)
	}
}

// PrintVerification печатает результаты проверочного прогона поиска.
func PrintVerification(out io.Writer, report *usecase.VerificationReport) {
	fmt.Fprintf(out, "Source condition: %s (DC %s)\n", report.Source.Name, report.Source.DCCode)
	fmt.Fprintf(out, "Self similarity: %.4f\n", report.SelfSimilarity)

	printRun(out, report.ByVector)

	if report.ByText == nil {
		return
	}
	fmt.Fprintf(out, "\nQuery to source similarity: %.4f\n", report.QueryToSourceSimilarity)
	printRun(out, report.ByText)
}

func printRun(out io.Writer, run *usecase.SearchRun) {
	fmt.Fprintf(out, "\n=== Search: %s ===\n", run.Label)
	fmt.Fprintf(out, "Query: %s\n", run.Query)
	fmt.Fprintf(out, "Found %d matches\n", len(run.Result.Matches))

	if len(run.Result.Matches) == 0 {
		fmt.Fprintln(out, "No matches above threshold. Try lowering the threshold or check that embeddings were generated.")
		return
	}

	for i, m := range run.Result.Matches {
		fmt.Fprintf(out, "%d. %s (DC %s)\n", i+1, m.Name, m.DCCode)
		fmt.Fprintf(out, "   Similarity: %s\n", format.Percent(m.Similarity))
		fmt.Fprintf(out, "   %s\n", format.Excerpt(m.Description, excerptLen))
	}
	fmt.Fprintf(out, "Average similarity: %s\n", format.Percent(run.Result.AverageSimilarity))
}
