package documents

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidPatch = errors.New("invalid document patch")
)

// Document is one analyzed line item produced by the worker for a run.
// Numeric fields are nil when the worker did not report them.
type Document struct {
	ID                   string    `json:"id"`
	QuoteID              string    `json:"quote_id"`
	RunID                string    `json:"run_id"`
	Position             int       `json:"position"`
	Filename             string    `json:"filename"`
	DocumentType         string    `json:"document_type"`
	SourceLanguage       string    `json:"source_language"`
	TargetLanguage       string    `json:"target_language"`
	PageCount            *float64  `json:"page_count"`
	BillablePages        *float64  `json:"billable_pages"`
	ConfidenceScore      *float64  `json:"confidence_score"`
	ComplexityMultiplier *float64  `json:"complexity_multiplier"`
	CertificationType    *string   `json:"certification_type"`
	CertificationAmount  *float64  `json:"certification_amount"`
	UnitRateOverride     *float64  `json:"unit_rate_override"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Patch is a staff correction to a document. Nil fields are left unchanged.
type Patch struct {
	DocumentType        *string  `json:"document_type,omitempty"`
	BillablePages       *float64 `json:"billable_pages,omitempty"`
	UnitRateOverride    *float64 `json:"unit_rate_override,omitempty"`
	CertificationType   *string  `json:"certification_type,omitempty"`
	CertificationAmount *float64 `json:"certification_amount,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.DocumentType == nil && p.BillablePages == nil && p.UnitRateOverride == nil &&
		p.CertificationType == nil && p.CertificationAmount == nil
}

// Validate rejects empty patches and negative amounts. Billable pages above
// the page count are accepted.
func (p Patch) Validate() error {
	if p.Empty() {
		return ErrInvalidPatch
	}
	for _, v := range []*float64{p.BillablePages, p.UnitRateOverride, p.CertificationAmount} {
		if v != nil && *v < 0 {
			return ErrInvalidPatch
		}
	}
	return nil
}

// Apply returns a copy of doc with the patch applied.
func (p Patch) Apply(doc Document) Document {
	if p.DocumentType != nil {
		doc.DocumentType = *p.DocumentType
	}
	if p.BillablePages != nil {
		doc.BillablePages = float64Ptr(*p.BillablePages)
	}
	if p.UnitRateOverride != nil {
		doc.UnitRateOverride = float64Ptr(*p.UnitRateOverride)
	}
	if p.CertificationType != nil {
		v := *p.CertificationType
		doc.CertificationType = &v
	}
	if p.CertificationAmount != nil {
		doc.CertificationAmount = float64Ptr(*p.CertificationAmount)
	}
	return doc
}

func float64Ptr(v float64) *float64 {
	return &v
}
