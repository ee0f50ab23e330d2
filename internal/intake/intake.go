package intake

import (
	"bytes"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/rs/zerolog/log"

	"wotc/internal"
	"wotc/internal/util"
)

var ErrUnsupportedFile = errors.New("unsupported file type")

const pdfContentType = "application/pdf"

// DB is the slice of storage intake writes to.
type DB interface {
	UpsertEmail(messageID, subject, sender, receivedAt, rawRef string) (internal.EmailRow, error)
	UpsertAttachment(emailID *string, filename, contentType, hash, rawRef string) (internal.AttachmentRow, bool, error)
}

type Service struct {
	db    DB
	store *Store
}

type Result struct {
	Files       int
	Emails      int
	Attachments int
	Duplicates  int
	Skipped     int
}

func (r *Result) add(o Result) {
	r.Files += o.Files
	r.Emails += o.Emails
	r.Attachments += o.Attachments
	r.Duplicates += o.Duplicates
	r.Skipped += o.Skipped
}

func NewService(db DB, storeDir string) *Service {
	return &Service{db: db, store: NewStore(storeDir)}
}

// IngestFile registers a PDF, or every PDF attached to a saved .eml message,
// as pending attachments. Content already seen is counted as a duplicate.
func (s *Service) IngestFile(path string) (Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		res := Result{Files: 1}
		if err := s.addAttachment(nil, filepath.Base(path), raw, &res); err != nil {
			return Result{}, err
		}
		return res, nil
	case ".eml":
		return s.ingestEmail(path, raw)
	default:
		return Result{}, fmt.Errorf("%s: %w", path, ErrUnsupportedFile)
	}
}

// IngestDir ingests every regular file directly inside dir, in name order.
// Unsupported files are skipped.
func (s *Service) IngestDir(dir string) (Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var total Result
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		res, err := s.IngestFile(path)
		if errors.Is(err, ErrUnsupportedFile) {
			log.Warn().Str("path", path).Msg("skipping unsupported file")
			total.Skipped++
			continue
		}
		if err != nil {
			return total, fmt.Errorf("ingest %s: %w", path, err)
		}
		total.add(res)
	}
	return total, nil
}

func (s *Service) ingestEmail(path string, raw []byte) (Result, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", path, err)
	}

	_, rawPath, err := s.store.Put(raw, ".eml")
	if err != nil {
		return Result{}, err
	}

	messageID := strings.TrimSpace(env.GetHeader("Message-ID"))
	if messageID == "" {
		messageID = "file:" + filepath.Base(rawPath)
	}

	email, err := s.db.UpsertEmail(messageID, env.GetHeader("Subject"), env.GetHeader("From"), receivedAt(env), rawPath)
	if err != nil {
		return Result{}, err
	}

	res := Result{Files: 1, Emails: 1}
	parts := append([]*enmime.Part{}, env.Attachments...)
	parts = append(parts, env.Inlines...)
	for i, part := range parts {
		if !isPDFPart(part) {
			continue
		}
		filename := strings.TrimSpace(part.FileName)
		if filename == "" {
			filename = fmt.Sprintf("%s-%d.pdf", util.SanitizeFileComponent(messageID), i+1)
		}
		if err := s.addAttachment(&email.ID, filename, part.Content, &res); err != nil {
			return Result{}, err
		}
	}

	log.Debug().
		Str("message_id", messageID).
		Int("attachments", res.Attachments).
		Msg("email ingested")
	return res, nil
}

func (s *Service) addAttachment(emailID *string, filename string, content []byte, res *Result) error {
	hash, rawPath, err := s.store.Put(content, ".pdf")
	if err != nil {
		return err
	}
	att, created, err := s.db.UpsertAttachment(emailID, filename, pdfContentType, hash, rawPath)
	if err != nil {
		return err
	}
	if created {
		res.Attachments++
		log.Info().Str("attachment_id", att.ID).Str("filename", filename).Msg("attachment queued")
	} else {
		res.Duplicates++
	}
	return nil
}

func isPDFPart(part *enmime.Part) bool {
	if strings.EqualFold(part.ContentType, pdfContentType) {
		return true
	}
	return strings.HasSuffix(strings.ToLower(part.FileName), ".pdf")
}

func receivedAt(env *enmime.Envelope) string {
	date := strings.TrimSpace(env.GetHeader("Date"))
	if date == "" {
		return ""
	}
	if t, err := mail.ParseDate(date); err == nil {
		return t.UTC().Format(time.RFC3339)
	}
	return date
}
