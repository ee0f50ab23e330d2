package listener

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"wotc/internal"
	"wotc/internal/config"
	"wotc/internal/intake"
	"wotc/internal/pipeline"
	"wotc/internal/storage"
	"wotc/internal/util"
)

const exportScanLimit = 200

type Service struct {
	db        *storage.DB
	cfg       config.Config
	intake    *intake.Service
	processor *pipeline.ProcessingService
}

func NewService(db *storage.DB, cfg config.Config, processor *pipeline.ProcessingService) *Service {
	return &Service{
		db:        db,
		cfg:       cfg,
		intake:    intake.NewService(db, cfg.StoreDir),
		processor: processor,
	}
}

type CycleResult struct {
	Ingested  intake.Result
	Processed pipeline.BatchResult
	Exported  int
}

// Run repeats a cycle every LISTENER_INTERVAL_SEC until ctx is done. A failed
// cycle is logged and the loop carries on.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.ListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	log.Info().Str("inbox", s.cfg.InboxDir).Dur("interval", interval).Msg("listener started")

	for {
		if _, err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("listener cycle failed")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("listener stopped")
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult

	if err := os.MkdirAll(s.cfg.InboxDir, 0o755); err != nil {
		return res, err
	}
	ingested, err := s.intake.IngestDir(s.cfg.InboxDir)
	res.Ingested = ingested
	if err != nil {
		return res, err
	}

	processed, err := s.processor.ProcessPending(ctx, s.cfg.ProcessBatch)
	res.Processed = processed
	if err != nil {
		return res, err
	}

	if s.cfg.ListenerAutoExport {
		exported, err := s.exportProcessed()
		res.Exported = exported
		if err != nil {
			return res, err
		}
	}

	log.Info().
		Int("attachments_new", ingested.Attachments).
		Int("attachments_processed", processed.Attachments).
		Int("pages_classified", processed.Classified).
		Int("exported", res.Exported).
		Msg("listener cycle done")
	return res, nil
}

func (s *Service) exportProcessed() (int, error) {
	attachments, err := s.db.ListAttachmentsByStatus(internal.AttachmentProcessed, exportScanLimit)
	if err != nil {
		return 0, err
	}

	exported := 0
	for _, att := range attachments {
		rows, err := s.db.GetExportRows(att.ID)
		if err != nil {
			return exported, err
		}
		if len(rows) == 0 {
			continue
		}
		outputPath := filepath.Join(s.cfg.OutputDir, "listener", ExportFilename(att))
		if err := pipeline.ExportRowsToXLSX(rows, outputPath); err != nil {
			return exported, fmt.Errorf("export %s: %w", att.ID, err)
		}
		if err := s.db.UpdateAttachmentStatus(att.ID, internal.AttachmentExported); err != nil {
			return exported, err
		}
		exported++
	}
	return exported, nil
}

func ExportFilename(att internal.AttachmentRow) string {
	base := strings.TrimSuffix(att.Filename, filepath.Ext(att.Filename))
	return fmt.Sprintf("%s_%s.xlsx", att.ID, util.SanitizeFileComponent(base))
}
