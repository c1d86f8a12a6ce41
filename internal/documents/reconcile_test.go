package documents

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestReconcileEmpty(t *testing.T) {
	res := Reconcile(nil)
	require.NotNil(t, res.Documents)
	assert.Empty(t, res.Documents)
	assert.Equal(t, Summary{}, res.Summary)
}

func TestReconcileTreatsMissingNumbersAsZero(t *testing.T) {
	rows := []Document{
		{Position: 0, Filename: "a.pdf", PageCount: f(3), BillablePages: f(2.5)},
		{Position: 1, Filename: "b.pdf"},
		{Position: 2, Filename: "c.pdf", PageCount: f(1)},
	}
	res := Reconcile(rows)

	assert.Equal(t, 3, res.Summary.TotalDocuments)
	assert.InDelta(t, 4.0, res.Summary.TotalPages, 1e-9)
	assert.InDelta(t, 2.5, res.Summary.BillablePages, 1e-9)
	assert.Zero(t, res.Summary.EstimatedTotal)
}

func TestReconcileOrdersByPositionWithoutMutatingInput(t *testing.T) {
	rows := []Document{
		{Position: 2, Filename: "c.pdf"},
		{Position: 0, Filename: "a.pdf"},
		{Position: 1, Filename: "b.pdf"},
	}
	res := Reconcile(rows)

	got := []string{res.Documents[0].Filename, res.Documents[1].Filename, res.Documents[2].Filename}
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, got)
	assert.Equal(t, "c.pdf", rows[0].Filename)
}

func TestReconcileTotalsIndependentOfOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rows := make([]Document, 25)
	for i := range rows {
		rows[i] = Document{Position: i}
		if rng.Intn(3) > 0 {
			rows[i].PageCount = f(float64(rng.Intn(20)))
		}
		if rng.Intn(3) > 0 {
			rows[i].BillablePages = f(float64(rng.Intn(40)) / 2)
		}
	}
	want := Reconcile(rows).Summary

	for trial := 0; trial < 10; trial++ {
		shuffled := make([]Document, len(rows))
		copy(shuffled, rows)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := Reconcile(shuffled).Summary
		assert.Equal(t, want.TotalDocuments, got.TotalDocuments)
		assert.InDelta(t, want.TotalPages, got.TotalPages, 1e-9)
		assert.InDelta(t, want.BillablePages, got.BillablePages, 1e-9)
	}
}

func TestPatchValidateAndApply(t *testing.T) {
	assert.ErrorIs(t, Patch{}.Validate(), ErrInvalidPatch)
	assert.ErrorIs(t, Patch{BillablePages: f(-1)}.Validate(), ErrInvalidPatch)

	// billable pages above page count is not rejected
	over := Patch{BillablePages: f(12)}
	require.NoError(t, over.Validate())

	docType := "birth_certificate"
	doc := Document{DocumentType: "unknown", PageCount: f(2), BillablePages: f(2)}
	patched := Patch{DocumentType: &docType, BillablePages: f(12), CertificationAmount: f(25)}.Apply(doc)
	assert.Equal(t, "birth_certificate", patched.DocumentType)
	assert.InDelta(t, 12.0, *patched.BillablePages, 1e-9)
	assert.InDelta(t, 25.0, *patched.CertificationAmount, 1e-9)
	assert.InDelta(t, 2.0, *doc.BillablePages, 1e-9)
}
