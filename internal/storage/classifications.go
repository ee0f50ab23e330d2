package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"wotc/internal"
)

// SaveClassification stores an automatic classification for a page and
// mirrors it onto the page row. A page that carries a manual override is
// left untouched; saved reports whether anything was written.
func (d *DB) SaveClassification(pageID, attachmentID string, result internal.ClassificationResult) (bool, error) {
	data, err := json.Marshal(result.ExtractedData)
	if err != nil {
		return false, err
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
INSERT INTO form_classifications (id, pageId, attachmentId, formTypeId, confidenceScore, extractedData, manualOverride)
VALUES (?, ?, ?, ?, ?, ?, 0)
ON CONFLICT(pageId) DO UPDATE SET
  formTypeId=excluded.formTypeId,
  confidenceScore=excluded.confidenceScore,
  extractedData=excluded.extractedData,
  updatedAt=CURRENT_TIMESTAMP
WHERE form_classifications.manualOverride = 0
`, uuid.NewString(), pageID, attachmentID, result.FormTypeID, result.ConfidenceScore, string(data))
	if err != nil {
		return false, fmt.Errorf("save classification for page %s: %w", pageID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	name := result.FormTypeName
	confidence := result.ConfidenceScore
	if _, err := tx.Exec(`UPDATE pdf_pages SET formType = ?, confidence = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, name, confidence, pageID); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// OverrideClassification records a human decision for a page. The override
// is stored with full confidence and survives later automatic runs.
func (d *DB) OverrideClassification(pageID, formTypeID, modifiedBy string) (internal.ClassificationRow, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return internal.ClassificationRow{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var attachmentID string
	err = tx.QueryRow(`SELECT attachmentId FROM pdf_pages WHERE id = ?`, pageID).Scan(&attachmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.ClassificationRow{}, fmt.Errorf("page %s: %w", pageID, ErrNotFound)
	}
	if err != nil {
		return internal.ClassificationRow{}, err
	}

	var formTypeName string
	err = tx.QueryRow(`SELECT name FROM form_types WHERE id = ?`, formTypeID).Scan(&formTypeName)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.ClassificationRow{}, fmt.Errorf("form type %s: %w", formTypeID, ErrNotFound)
	}
	if err != nil {
		return internal.ClassificationRow{}, err
	}

	data, _ := json.Marshal(internal.ExtractedData{
		Source:          internal.SourceManual,
		MatchedKeywords: []string{},
		MatchedFields:   []string{},
	})

	_, err = tx.Exec(`
INSERT INTO form_classifications (id, pageId, attachmentId, formTypeId, confidenceScore, extractedData, manualOverride, lastModifiedBy)
VALUES (?, ?, ?, ?, 1.0, ?, 1, ?)
ON CONFLICT(pageId) DO UPDATE SET
  formTypeId=excluded.formTypeId,
  confidenceScore=1.0,
  extractedData=excluded.extractedData,
  manualOverride=1,
  lastModifiedBy=excluded.lastModifiedBy,
  updatedAt=CURRENT_TIMESTAMP
`, uuid.NewString(), pageID, attachmentID, formTypeID, string(data), modifiedBy)
	if err != nil {
		return internal.ClassificationRow{}, err
	}

	if _, err := tx.Exec(`UPDATE pdf_pages SET formType = ?, confidence = 1.0, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, formTypeName, pageID); err != nil {
		return internal.ClassificationRow{}, err
	}
	if err := tx.Commit(); err != nil {
		return internal.ClassificationRow{}, err
	}

	row, err := d.GetClassification(pageID)
	if err != nil {
		return internal.ClassificationRow{}, err
	}
	return *row, nil
}

func (d *DB) GetClassification(pageID string) (*internal.ClassificationRow, error) {
	var r internal.ClassificationRow
	var data string
	var manual int
	err := d.conn.QueryRow(`
SELECT c.id, c.pageId, c.attachmentId, c.formTypeId, f.name, c.confidenceScore, c.extractedData, c.manualOverride, c.lastModifiedBy, c.updatedAt
FROM form_classifications c
JOIN form_types f ON f.id = c.formTypeId
WHERE c.pageId = ?
`, pageID).Scan(&r.ID, &r.PageID, &r.AttachmentID, &r.FormTypeID, &r.FormTypeName, &r.ConfidenceScore, &data, &manual, &r.LastModifiedBy, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &r.ExtractedData); err != nil {
		return nil, fmt.Errorf("decode extracted data for page %s: %w", pageID, err)
	}
	r.ManualOverride = manual == 1
	return &r, nil
}

// ResetAutomaticClassifications clears the automatic results of an
// attachment before it is reprocessed. Manual overrides and their page
// labels are kept.
func (d *DB) ResetAutomaticClassifications(attachmentID string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM form_classifications WHERE attachmentId = ? AND manualOverride = 0`, attachmentID); err != nil {
		return err
	}
	if _, err := tx.Exec(`
UPDATE pdf_pages
SET formType = NULL, confidence = NULL, updatedAt = CURRENT_TIMESTAMP
WHERE attachmentId = ?
  AND id NOT IN (SELECT pageId FROM form_classifications WHERE manualOverride = 1)
`, attachmentID); err != nil {
		return err
	}
	return tx.Commit()
}

// GetExportRows returns one row per page, with its classification when one
// exists. An empty attachmentID exports everything.
func (d *DB) GetExportRows(attachmentID string) ([]internal.ExportRow, error) {
	query := `
SELECT
  a.id,
  a.filename,
  e.subject,
  e.sender,
  p.pageNumber,
  f.name,
  c.confidenceScore,
  json_extract(c.extractedData, '$.source'),
  COALESCE(c.manualOverride, 0),
  c.lastModifiedBy,
  (SELECT group_concat(value, ', ') FROM json_each(c.extractedData, '$.matchedKeywords'))
FROM pdf_pages p
JOIN attachments a ON a.id = p.attachmentId
LEFT JOIN emails e ON e.id = a.emailId
LEFT JOIN form_classifications c ON c.pageId = p.id
LEFT JOIN form_types f ON f.id = c.formTypeId
`
	var args []any
	if attachmentID != "" {
		query += ` WHERE a.id = ?`
		args = append(args, attachmentID)
	}
	query += ` ORDER BY a.createdAt ASC, a.id ASC, p.pageNumber ASC`

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ExportRow
	for rows.Next() {
		var r internal.ExportRow
		var manual int
		if err := rows.Scan(
			&r.AttachmentID,
			&r.Filename,
			&r.EmailSubject,
			&r.EmailSender,
			&r.PageNumber,
			&r.FormType,
			&r.Confidence,
			&r.Source,
			&manual,
			&r.ModifiedBy,
			&r.MatchedKeywords,
		); err != nil {
			return nil, err
		}
		r.ManualOverride = manual == 1
		out = append(out, r)
	}
	return out, rows.Err()
}
