// Package billing turns a run's analyzed documents into quote totals.
package billing

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"translation-backend/internal/documents"
	"translation-backend/internal/quotes"
)

// Line is the priced form of one document.
type Line struct {
	DocumentID          string  `json:"document_id"`
	Filename            string  `json:"filename"`
	BillablePages       float64 `json:"billable_pages"`
	UnitRate            float64 `json:"unit_rate"`
	Complexity          float64 `json:"complexity_multiplier"`
	CertificationAmount float64 `json:"certification_amount"`
	LineTotal           float64 `json:"line_total"`
}

// Result is what a run contributes to its quote.
type Result struct {
	Lines              []Line  `json:"lines"`
	Subtotal           float64 `json:"subtotal"`
	CertificationTotal float64 `json:"certification_total"`
	Total              float64 `json:"total"`
}

// Aggregator prices documents and writes the totals onto the quote.
type Aggregator struct {
	Quotes          quotes.Repo
	DefaultPageRate float64
}

// Price computes line totals without side effects. Missing billable pages
// count as zero and a missing complexity multiplier as one.
func Price(docs []documents.Document, defaultRate float64) Result {
	ordered := documents.Reconcile(docs).Documents
	res := Result{Lines: make([]Line, 0, len(ordered))}
	for _, d := range ordered {
		line := Line{
			DocumentID: d.ID,
			Filename:   d.Filename,
			UnitRate:   defaultRate,
			Complexity: 1,
		}
		if d.BillablePages != nil {
			line.BillablePages = *d.BillablePages
		}
		if d.UnitRateOverride != nil {
			line.UnitRate = *d.UnitRateOverride
		}
		if d.ComplexityMultiplier != nil {
			line.Complexity = *d.ComplexityMultiplier
		}
		if d.CertificationAmount != nil {
			line.CertificationAmount = *d.CertificationAmount
		}
		translation := roundCents(line.BillablePages * line.UnitRate * line.Complexity)
		line.LineTotal = roundCents(translation + line.CertificationAmount)

		res.Subtotal += translation
		res.CertificationTotal += line.CertificationAmount
		res.Lines = append(res.Lines, line)
	}
	res.Subtotal = roundCents(res.Subtotal)
	res.CertificationTotal = roundCents(res.CertificationTotal)
	res.Total = roundCents(res.Subtotal + res.CertificationTotal)
	return res
}

// ApplyRun prices the run's documents and stores the totals on the quote.
func (a *Aggregator) ApplyRun(ctx context.Context, quoteID, runID string, docs []documents.Document) (Result, error) {
	res := Price(docs, a.DefaultPageRate)
	err := a.Quotes.UpdateTotals(ctx, quoteID, quotes.Totals{
		Subtotal:           res.Subtotal,
		CertificationTotal: res.CertificationTotal,
		Total:              res.Total,
	})
	if err != nil {
		return Result{}, eris.Wrapf(err, "apply run %s totals to quote %s", runID, quoteID)
	}
	return res, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
