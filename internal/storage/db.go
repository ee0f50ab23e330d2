package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"wotc/internal"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrFormTypeInUse = errors.New("form type is referenced by classifications")
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS form_types (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  identification_rules TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS emails (
  id TEXT PRIMARY KEY,
  messageId TEXT NOT NULL UNIQUE,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS attachments (
  id TEXT PRIMARY KEY,
  emailId TEXT,
  filename TEXT NOT NULL,
  contentType TEXT NOT NULL,
  hash TEXT NOT NULL UNIQUE,
  rawRef TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  processingError TEXT,
  processedAt TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES emails(id)
);
CREATE INDEX IF NOT EXISTS idx_attachments_status ON attachments(status);

CREATE TABLE IF NOT EXISTS pdf_pages (
  id TEXT PRIMARY KEY,
  attachmentId TEXT NOT NULL,
  pageNumber INTEGER NOT NULL,
  textContent TEXT NOT NULL DEFAULT '',
  ocrText TEXT,
  formType TEXT,
  confidence REAL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(attachmentId, pageNumber),
  FOREIGN KEY(attachmentId) REFERENCES attachments(id)
);

CREATE TABLE IF NOT EXISTS form_classifications (
  id TEXT PRIMARY KEY,
  pageId TEXT NOT NULL UNIQUE,
  attachmentId TEXT NOT NULL,
  formTypeId TEXT NOT NULL,
  confidenceScore REAL NOT NULL,
  extractedData TEXT NOT NULL,
  manualOverride INTEGER NOT NULL DEFAULT 0,
  lastModifiedBy TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(pageId) REFERENCES pdf_pages(id),
  FOREIGN KEY(attachmentId) REFERENCES attachments(id),
  FOREIGN KEY(formTypeId) REFERENCES form_types(id)
);
CREATE INDEX IF NOT EXISTS idx_classifications_attachment ON form_classifications(attachmentId);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  attachmentId TEXT,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertEmail(messageID, subject, sender, receivedAt, rawRef string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (id, messageId, subject, sender, receivedAt, rawRef)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, uuid.NewString(), messageID, subject, sender, receivedAt, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	var row internal.EmailRow
	err = d.conn.QueryRow(`
SELECT id, messageId, subject, sender, receivedAt, rawRef FROM emails WHERE messageId = ?
`, messageID).Scan(&row.ID, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.RawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}
	return row, nil
}

// UpsertAttachment registers an attachment by content hash. created reports
// whether a new row was inserted; an existing row is returned unchanged.
func (d *DB) UpsertAttachment(emailID *string, filename, contentType, hash, rawRef string) (internal.AttachmentRow, bool, error) {
	result, err := d.conn.Exec(`
INSERT INTO attachments (id, emailId, filename, contentType, hash, rawRef, status)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(hash) DO NOTHING
`, uuid.NewString(), emailID, filename, contentType, hash, rawRef, string(internal.AttachmentPending))
	if err != nil {
		return internal.AttachmentRow{}, false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return internal.AttachmentRow{}, false, err
	}

	row, err := d.scanAttachment(d.conn.QueryRow(attachmentSelect+` WHERE hash = ?`, hash))
	if err != nil {
		return internal.AttachmentRow{}, false, err
	}
	return row, affected > 0, nil
}

const attachmentSelect = `
SELECT id, emailId, filename, contentType, hash, rawRef, status, processingError, processedAt
FROM attachments`

func (d *DB) scanAttachment(row interface{ Scan(...any) error }) (internal.AttachmentRow, error) {
	var a internal.AttachmentRow
	var status string
	err := row.Scan(&a.ID, &a.EmailID, &a.Filename, &a.ContentType, &a.Hash, &a.RawRef, &status, &a.ProcessingError, &a.ProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.AttachmentRow{}, ErrNotFound
	}
	if err != nil {
		return internal.AttachmentRow{}, err
	}
	a.Status = internal.AttachmentStatus(status)
	return a, nil
}

func (d *DB) GetAttachment(id string) (internal.AttachmentRow, error) {
	row, err := d.scanAttachment(d.conn.QueryRow(attachmentSelect+` WHERE id = ?`, id))
	if errors.Is(err, ErrNotFound) {
		return internal.AttachmentRow{}, fmt.Errorf("attachment %s: %w", id, ErrNotFound)
	}
	return row, err
}

func (d *DB) ListAttachmentsByStatus(status internal.AttachmentStatus, limit int) ([]internal.AttachmentRow, error) {
	rows, err := d.conn.Query(attachmentSelect+` WHERE status = ? ORDER BY createdAt ASC, id ASC LIMIT ?`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.AttachmentRow
	for rows.Next() {
		a, err := d.scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *DB) UpdateAttachmentStatus(id string, status internal.AttachmentStatus) error {
	_, err := d.conn.Exec(`UPDATE attachments SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, string(status), id)
	return err
}

func (d *DB) MarkAttachmentProcessed(id string) error {
	_, err := d.conn.Exec(`
UPDATE attachments
SET status = ?, processingError = NULL, processedAt = CURRENT_TIMESTAMP, updatedAt = CURRENT_TIMESTAMP
WHERE id = ?`, string(internal.AttachmentProcessed), id)
	return err
}

func (d *DB) MarkAttachmentFailed(id string, reason string) error {
	_, err := d.conn.Exec(`
UPDATE attachments
SET status = ?, processingError = ?, processedAt = CURRENT_TIMESTAMP, updatedAt = CURRENT_TIMESTAMP
WHERE id = ?`, string(internal.AttachmentFailed), reason, id)
	return err
}

// UpsertPage stores the text layer of a page. OCR text and the page's form
// type survive re-extraction.
func (d *DB) UpsertPage(attachmentID string, pageNumber int, textContent string) (internal.PageRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO pdf_pages (id, attachmentId, pageNumber, textContent)
VALUES (?, ?, ?, ?)
ON CONFLICT(attachmentId, pageNumber) DO UPDATE SET
  textContent=excluded.textContent,
  updatedAt=CURRENT_TIMESTAMP
`, uuid.NewString(), attachmentID, pageNumber, textContent)
	if err != nil {
		return internal.PageRow{}, err
	}
	return d.scanPage(d.conn.QueryRow(pageSelect+` WHERE attachmentId = ? AND pageNumber = ?`, attachmentID, pageNumber))
}

const pageSelect = `
SELECT id, attachmentId, pageNumber, textContent, ocrText, formType, confidence
FROM pdf_pages`

func (d *DB) scanPage(row interface{ Scan(...any) error }) (internal.PageRow, error) {
	var p internal.PageRow
	err := row.Scan(&p.ID, &p.AttachmentID, &p.PageNumber, &p.TextContent, &p.OCRText, &p.FormType, &p.Confidence)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.PageRow{}, ErrNotFound
	}
	if err != nil {
		return internal.PageRow{}, err
	}
	return p, nil
}

func (d *DB) GetPage(id string) (internal.PageRow, error) {
	p, err := d.scanPage(d.conn.QueryRow(pageSelect+` WHERE id = ?`, id))
	if errors.Is(err, ErrNotFound) {
		return internal.PageRow{}, fmt.Errorf("page %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (d *DB) ListPages(attachmentID string) ([]internal.PageRow, error) {
	rows, err := d.conn.Query(pageSelect+` WHERE attachmentId = ? ORDER BY pageNumber ASC`, attachmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.PageRow
	for rows.Next() {
		p, err := d.scanPage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetPageOCR stores externally produced OCR text for a page and queues its
// attachment for another classification pass.
func (d *DB) SetPageOCR(pageID, ocrText string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var attachmentID string
	err = tx.QueryRow(`SELECT attachmentId FROM pdf_pages WHERE id = ?`, pageID).Scan(&attachmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("page %s: %w", pageID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`UPDATE pdf_pages SET ocrText = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, ocrText, pageID); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE attachments SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, string(internal.AttachmentPending), attachmentID); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) InsertRun(traceID string, attachmentID string, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, attachmentId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, attachmentID, string(timingsJSON), string(countsJSON))
	return err
}

// LastRunCounts returns the counts of the most recent run for an attachment.
func (d *DB) LastRunCounts(attachmentID string) (map[string]int, error) {
	var countsJSON string
	err := d.conn.QueryRow(`SELECT countsJson FROM runs WHERE attachmentId = ? ORDER BY id DESC LIMIT 1`, attachmentID).Scan(&countsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	if err := json.Unmarshal([]byte(countsJSON), &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
