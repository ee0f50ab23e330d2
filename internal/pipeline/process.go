package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wotc/internal"
	"wotc/internal/catalog"
	"wotc/internal/classifier"
	"wotc/internal/storage"
)

// Fallback classifies a page the rules could not place. A nil result means
// the fallback had no confident answer either.
type Fallback interface {
	Classify(ctx context.Context, text string, idx *catalog.Index) (*internal.ClassificationResult, error)
}

type ProcessingService struct {
	db       *storage.DB
	preset   classifier.Preset
	fallback Fallback
	extract  func([]byte) ([]PageText, error)
}

// NewProcessingService wires a processor. fallback may be nil.
func NewProcessingService(db *storage.DB, preset classifier.Preset, fallback Fallback) *ProcessingService {
	return &ProcessingService{db: db, preset: preset, fallback: fallback, extract: ExtractPages}
}

type ProcessResult struct {
	AttachmentID string
	Pages        int
	Classified   int
	Unclassified int
	LLM          int
	Manual       int
	Failed       bool
}

type BatchResult struct {
	Attachments int
	Failed      int
	Pages       int
	Classified  int
}

func (s *ProcessingService) ProcessPending(ctx context.Context, limit int) (BatchResult, error) {
	pending, err := s.db.ListAttachmentsByStatus(internal.AttachmentPending, limit)
	if err != nil {
		return BatchResult{}, err
	}

	var batch BatchResult
	for _, att := range pending {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		res, err := s.ProcessAttachment(ctx, att)
		if err != nil {
			return batch, err
		}
		batch.Attachments++
		batch.Pages += res.Pages
		batch.Classified += res.Classified
		if res.Failed {
			batch.Failed++
		}
	}
	return batch, nil
}

func (s *ProcessingService) ProcessAttachmentID(ctx context.Context, id string) (ProcessResult, error) {
	att, err := s.db.GetAttachment(id)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessAttachment(ctx, att)
}

// ProcessAttachment classifies every page of one attachment. A document that
// cannot be read marks the attachment failed and is not returned as an error;
// errors are reserved for storage and cancellation.
func (s *ProcessingService) ProcessAttachment(ctx context.Context, att internal.AttachmentRow) (ProcessResult, error) {
	start := time.Now()
	traceID := uuid.NewString()
	logger := log.With().Str("trace_id", traceID).Str("attachment_id", att.ID).Logger()
	res := ProcessResult{AttachmentID: att.ID}

	if err := s.db.ResetAutomaticClassifications(att.ID); err != nil {
		return res, err
	}

	texts, extractErr := s.readPages(att)
	if extractErr != nil {
		logger.Warn().Err(extractErr).Msg("attachment extraction failed")
		if err := s.db.MarkAttachmentFailed(att.ID, extractErr.Error()); err != nil {
			return res, err
		}
		res.Failed = true
		if err := s.db.InsertRun(traceID, att.ID, timings(start, 0), res.counts()); err != nil {
			logger.Warn().Err(err).Msg("failed to record run")
		}
		return res, nil
	}
	pages, err := s.storePages(att.ID, texts)
	if err != nil {
		return res, err
	}
	extractedAt := time.Now()

	defs, err := catalog.Load(s.db)
	if err != nil {
		return res, err
	}
	idx := catalog.BuildIndex(defs)
	cls := classifier.NewClassifier(s.preset, defs)

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Pages++

		existing, err := s.db.GetClassification(page.ID)
		if err != nil {
			return res, err
		}
		if existing != nil && existing.ManualOverride {
			res.Manual++
			continue
		}

		input := PageInput(page, att.Filename)
		result := cls.Classify(input)
		if zerolog.GlobalLevel() <= zerolog.DebugLevel {
			logCandidates(logger, cls, input, defs)
		}

		if result == nil && s.fallback != nil && input.Text != "" {
			result, err = s.fallback.Classify(ctx, input.Text, idx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return res, err
				}
				logger.Warn().Err(err).Int("page", page.PageNumber).Msg("llm fallback failed")
			}
			if result != nil {
				result.ExtractedData.PageNumber = input.PageNumber
				result.ExtractedData.Filename = att.Filename
			}
		}

		if result == nil {
			res.Unclassified++
			continue
		}

		saved, err := s.db.SaveClassification(page.ID, att.ID, *result)
		if err != nil {
			return res, err
		}
		if !saved {
			res.Manual++
			continue
		}
		res.Classified++
		if result.ExtractedData.Source == internal.SourceLLM {
			res.LLM++
		}
		logger.Info().
			Int("page", page.PageNumber).
			Str("form_type", result.FormTypeName).
			Float64("score", result.ConfidenceScore).
			Str("source", string(result.ExtractedData.Source)).
			Msg("page classified")
	}

	if err := s.db.MarkAttachmentProcessed(att.ID); err != nil {
		return res, err
	}
	t := timings(start, time.Since(extractedAt))
	t["extractMs"] = float64(extractedAt.Sub(start).Milliseconds())
	if err := s.db.InsertRun(traceID, att.ID, t, res.counts()); err != nil {
		return res, err
	}

	logger.Info().
		Int("pages", res.Pages).
		Int("classified", res.Classified).
		Int("unclassified", res.Unclassified).
		Msg("attachment processed")
	return res, nil
}

func (s *ProcessingService) readPages(att internal.AttachmentRow) ([]PageText, error) {
	raw, err := os.ReadFile(att.RawRef)
	if err != nil {
		return nil, err
	}
	return s.extract(raw)
}

// storePages upserts one row per extracted page. The returned rows carry
// any OCR text attached earlier.
func (s *ProcessingService) storePages(attachmentID string, texts []PageText) ([]internal.PageRow, error) {
	for _, p := range texts {
		if _, err := s.db.UpsertPage(attachmentID, p.Number, p.Text); err != nil {
			return nil, fmt.Errorf("store page %d: %w", p.Number, err)
		}
	}
	return s.db.ListPages(attachmentID)
}

func logCandidates(logger zerolog.Logger, cls *classifier.Classifier, input internal.ClassificationInput, defs []internal.FormTypeDefinition) {
	for _, def := range defs {
		scores := cls.Score(input, def)
		logger.Debug().
			Int("page", *input.PageNumber).
			Str("form_type", def.Name).
			Float64("keyword", scores.Keyword).
			Float64("fields", scores.Fields).
			Float64("position", scores.Position).
			Float64("filename", scores.Filename).
			Float64("score", scores.Total()).
			Msg("candidate scored")
	}
}

func (r ProcessResult) counts() map[string]int {
	return map[string]int{
		"pages":        r.Pages,
		"classified":   r.Classified,
		"unclassified": r.Unclassified,
		"llm":          r.LLM,
		"manual":       r.Manual,
	}
}

func timings(start time.Time, classify time.Duration) map[string]float64 {
	return map[string]float64{
		"totalMs":    float64(time.Since(start).Milliseconds()),
		"classifyMs": float64(classify.Milliseconds()),
	}
}
