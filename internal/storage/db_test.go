package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wotc/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedPage(t *testing.T, db *DB) (internal.AttachmentRow, internal.PageRow) {
	t.Helper()
	att, created, err := db.UpsertAttachment(nil, "form.pdf", "application/pdf", "hash-1", "data/raw/hash-1.pdf")
	require.NoError(t, err)
	require.True(t, created)
	page, err := db.UpsertPage(att.ID, 1, "pre-screening notice")
	require.NoError(t, err)
	return att, page
}

func TestFormTypeCRUD(t *testing.T) {
	db := openTestDB(t)

	b, err := db.CreateFormType("9061", "ICF", `{"keywords":["9061"]}`)
	require.NoError(t, err)
	a, err := db.CreateFormType("8850", "Pre-screening", `{"keywords":["8850"]}`)
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)

	_, err = db.CreateFormType("8850", "dup", `{}`)
	assert.Error(t, err)

	list, err := db.ListFormTypes()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "8850", list[0].Name)
	assert.Equal(t, "9061", list[1].Name)

	updated, err := db.UpdateFormType(b.ID, "9061", "Individual Characteristics Form", `{"keywords":["icf"]}`)
	require.NoError(t, err)
	assert.Equal(t, "Individual Characteristics Form", updated.Description)
	assert.JSONEq(t, `{"keywords":["icf"]}`, updated.RulesJSON)

	_, err = db.UpdateFormType("missing", "x", "", `{}`)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := db.GetFormTypeByName("9061")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, b.ID, got.ID)

	none, err := db.GetFormTypeByName("NYYF")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, db.DeleteFormType(b.ID))
	assert.ErrorIs(t, db.DeleteFormType(b.ID), ErrNotFound)
}

func TestDeleteFormTypeInUse(t *testing.T) {
	db := openTestDB(t)
	att, page := seedPage(t, db)

	ft, err := db.CreateFormType("8850", "", `{}`)
	require.NoError(t, err)

	_, err = db.SaveClassification(page.ID, att.ID, internal.ClassificationResult{FormTypeID: ft.ID, FormTypeName: "8850", ConfidenceScore: 0.5})
	require.NoError(t, err)

	assert.ErrorIs(t, db.DeleteFormType(ft.ID), ErrFormTypeInUse)
}

func TestUpsertAttachmentDedupesByHash(t *testing.T) {
	db := openTestDB(t)

	email, err := db.UpsertEmail("<m1@example.com>", "Forms", "hr@example.com", "2024-01-02T00:00:00Z", "data/raw/m1.eml")
	require.NoError(t, err)

	first, created, err := db.UpsertAttachment(&email.ID, "a.pdf", "application/pdf", "same", "data/raw/same.pdf")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, internal.AttachmentPending, first.Status)
	require.NotNil(t, first.EmailID)
	assert.Equal(t, email.ID, *first.EmailID)

	second, created, err := db.UpsertAttachment(nil, "b.pdf", "application/pdf", "same", "data/raw/same.pdf")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "a.pdf", second.Filename)

	again, err := db.UpsertEmail("<m1@example.com>", "Forms (fwd)", "hr@example.com", "", "data/raw/m1.eml")
	require.NoError(t, err)
	assert.Equal(t, email.ID, again.ID)
	assert.Equal(t, "Forms (fwd)", again.Subject)
}

func TestAttachmentStatusTransitions(t *testing.T) {
	db := openTestDB(t)
	att, _ := seedPage(t, db)

	pending, err := db.ListAttachmentsByStatus(internal.AttachmentPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, db.MarkAttachmentFailed(att.ID, "broken xref"))
	got, err := db.GetAttachment(att.ID)
	require.NoError(t, err)
	assert.Equal(t, internal.AttachmentFailed, got.Status)
	require.NotNil(t, got.ProcessingError)
	assert.Equal(t, "broken xref", *got.ProcessingError)

	require.NoError(t, db.MarkAttachmentProcessed(att.ID))
	got, err = db.GetAttachment(att.ID)
	require.NoError(t, err)
	assert.Equal(t, internal.AttachmentProcessed, got.Status)
	assert.Nil(t, got.ProcessingError)
	assert.NotNil(t, got.ProcessedAt)

	require.NoError(t, db.UpdateAttachmentStatus(att.ID, internal.AttachmentExported))
	exported, err := db.ListAttachmentsByStatus(internal.AttachmentExported, 10)
	require.NoError(t, err)
	assert.Len(t, exported, 1)

	_, err = db.GetAttachment("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPagesKeepOCRAcrossReextraction(t *testing.T) {
	db := openTestDB(t)
	att, page := seedPage(t, db)
	require.NoError(t, db.MarkAttachmentProcessed(att.ID))

	require.NoError(t, db.SetPageOCR(page.ID, "scanned text"))
	got, err := db.GetAttachment(att.ID)
	require.NoError(t, err)
	assert.Equal(t, internal.AttachmentPending, got.Status)

	again, err := db.UpsertPage(att.ID, 1, "new text layer")
	require.NoError(t, err)
	assert.Equal(t, page.ID, again.ID)
	assert.Equal(t, "new text layer", again.TextContent)
	require.NotNil(t, again.OCRText)
	assert.Equal(t, "scanned text", *again.OCRText)

	_, err = db.UpsertPage(att.ID, 2, "second")
	require.NoError(t, err)
	pages, err := db.ListPages(att.ID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, 2, pages[1].PageNumber)

	byID, err := db.GetPage(page.ID)
	require.NoError(t, err)
	assert.Equal(t, att.ID, byID.AttachmentID)
	assert.Equal(t, "new text layer", byID.TextContent)
	_, err = db.GetPage("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, db.SetPageOCR("missing", "x"), ErrNotFound)
}

func TestManualOverrideSurvivesAutomaticSave(t *testing.T) {
	db := openTestDB(t)
	att, page := seedPage(t, db)

	f8850, err := db.CreateFormType("8850", "", `{}`)
	require.NoError(t, err)
	f9061, err := db.CreateFormType("9061", "", `{}`)
	require.NoError(t, err)

	saved, err := db.SaveClassification(page.ID, att.ID, internal.ClassificationResult{
		FormTypeID:      f8850.ID,
		FormTypeName:    "8850",
		ConfidenceScore: 0.4,
		ExtractedData:   internal.ExtractedData{Source: internal.SourceRules, MatchedKeywords: []string{"pre-screening notice"}},
	})
	require.NoError(t, err)
	assert.True(t, saved)

	row, err := db.OverrideClassification(page.ID, f9061.ID, "reviewer@example.com")
	require.NoError(t, err)
	assert.True(t, row.ManualOverride)
	assert.Equal(t, 1.0, row.ConfidenceScore)
	assert.Equal(t, "9061", row.FormTypeName)
	assert.Equal(t, internal.SourceManual, row.ExtractedData.Source)
	require.NotNil(t, row.LastModifiedBy)
	assert.Equal(t, "reviewer@example.com", *row.LastModifiedBy)

	saved, err = db.SaveClassification(page.ID, att.ID, internal.ClassificationResult{FormTypeID: f8850.ID, FormTypeName: "8850", ConfidenceScore: 0.9})
	require.NoError(t, err)
	assert.False(t, saved)

	require.NoError(t, db.ResetAutomaticClassifications(att.ID))

	got, err := db.GetClassification(page.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f9061.ID, got.FormTypeID)
	assert.True(t, got.ManualOverride)

	pages, err := db.ListPages(att.ID)
	require.NoError(t, err)
	require.NotNil(t, pages[0].FormType)
	assert.Equal(t, "9061", *pages[0].FormType)

	_, err = db.OverrideClassification(page.ID, "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.OverrideClassification("missing", f9061.ID, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResetClearsAutomaticResults(t *testing.T) {
	db := openTestDB(t)
	att, page := seedPage(t, db)
	ft, err := db.CreateFormType("8850", "", `{}`)
	require.NoError(t, err)

	_, err = db.SaveClassification(page.ID, att.ID, internal.ClassificationResult{FormTypeID: ft.ID, FormTypeName: "8850", ConfidenceScore: 0.4})
	require.NoError(t, err)

	require.NoError(t, db.ResetAutomaticClassifications(att.ID))

	got, err := db.GetClassification(page.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	pages, err := db.ListPages(att.ID)
	require.NoError(t, err)
	assert.Nil(t, pages[0].FormType)
	assert.Nil(t, pages[0].Confidence)
}

func TestExportRows(t *testing.T) {
	db := openTestDB(t)
	att, page := seedPage(t, db)
	_, err := db.UpsertPage(att.ID, 2, "unrelated")
	require.NoError(t, err)
	ft, err := db.CreateFormType("8850", "", `{}`)
	require.NoError(t, err)

	_, err = db.SaveClassification(page.ID, att.ID, internal.ClassificationResult{
		FormTypeID:      ft.ID,
		FormTypeName:    "8850",
		ConfidenceScore: 0.55,
		ExtractedData: internal.ExtractedData{
			Source:          internal.SourceRules,
			MatchedKeywords: []string{"pre-screening notice", "work opportunity credit"},
			MatchedFields:   []string{},
		},
	})
	require.NoError(t, err)

	rows, err := db.GetExportRows(att.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, 1, first.PageNumber)
	require.NotNil(t, first.FormType)
	assert.Equal(t, "8850", *first.FormType)
	require.NotNil(t, first.Confidence)
	assert.InDelta(t, 0.55, *first.Confidence, 1e-9)
	require.NotNil(t, first.Source)
	assert.Equal(t, "rules", *first.Source)
	require.NotNil(t, first.MatchedKeywords)
	assert.Equal(t, "pre-screening notice, work opportunity credit", *first.MatchedKeywords)
	assert.Nil(t, first.EmailSubject)

	second := rows[1]
	assert.Equal(t, 2, second.PageNumber)
	assert.Nil(t, second.FormType)
	assert.Nil(t, second.Confidence)
	assert.False(t, second.ManualOverride)

	all, err := db.GetExportRows("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRunsAndMetadata(t *testing.T) {
	db := openTestDB(t)

	counts, err := db.LastRunCounts("att-1")
	require.NoError(t, err)
	assert.Nil(t, counts)

	require.NoError(t, db.InsertRun("trace-1", "att-1", map[string]float64{"total_ms": 12}, map[string]int{"pages": 1}))
	require.NoError(t, db.InsertRun("trace-2", "att-1", map[string]float64{"total_ms": 8}, map[string]int{"pages": 3, "classified": 2}))

	counts, err = db.LastRunCounts("att-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"pages": 3, "classified": 2}, counts)

	value, err := db.GetMetadata("catalog.last_seed")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, db.SetMetadata("catalog.last_seed", "2024-01-01"))
	require.NoError(t, db.SetMetadata("catalog.last_seed", "2024-02-01"))
	value, err = db.GetMetadata("catalog.last_seed")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "2024-02-01", *value)
}
