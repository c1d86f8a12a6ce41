package documents

import "sort"

// Summary aggregates a run's documents. EstimatedTotal stays zero here; the
// billing step prices documents once a run is used.
type Summary struct {
	TotalDocuments int     `json:"total_documents"`
	TotalPages     float64 `json:"total_pages"`
	BillablePages  float64 `json:"billable_pages"`
	EstimatedTotal float64 `json:"estimated_total"`
}

// Result is the reconciled view of a run.
type Result struct {
	Documents []Document `json:"documents"`
	Summary   Summary    `json:"summary"`
}

// Reconcile orders rows by position and sums page counts. Missing numbers
// count as zero. The input slice is not modified.
func Reconcile(rows []Document) Result {
	docs := make([]Document, len(rows))
	copy(docs, rows)
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Position < docs[j].Position
	})

	var summary Summary
	summary.TotalDocuments = len(docs)
	for _, d := range docs {
		summary.TotalPages += valueOrZero(d.PageCount)
		summary.BillablePages += valueOrZero(d.BillablePages)
	}
	return Result{Documents: docs, Summary: summary}
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
