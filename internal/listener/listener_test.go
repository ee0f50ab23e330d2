package listener

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wotc/internal"
	"wotc/internal/catalog"
	"wotc/internal/classifier"
	"wotc/internal/config"
	"wotc/internal/pipeline"
	"wotc/internal/storage"
	"wotc/internal/testutil"
)

func newTestListener(t *testing.T) (*Service, *storage.DB, config.Config) {
	t.Helper()
	tmp := t.TempDir()
	cfg := config.Config{
		DBPath:              filepath.Join(tmp, "app.db"),
		StoreDir:            filepath.Join(tmp, "raw"),
		InboxDir:            filepath.Join(tmp, "inbox"),
		OutputDir:           filepath.Join(tmp, "out"),
		ProcessBatch:        10,
		ListenerIntervalSec: 1,
		ListenerAutoExport:  true,
	}

	db, err := storage.Open(cfg.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = catalog.NewSeedService(db).Seed(context.Background(), catalog.DefaultDefinitions(), false)
	require.NoError(t, err)

	proc := pipeline.NewProcessingService(db, classifier.Strict, nil)
	return NewService(db, cfg, proc), db, cfg
}

func TestRunCycleIngestsProcessesAndExports(t *testing.T) {
	svc, db, cfg := newTestListener(t)

	require.NoError(t, os.MkdirAll(cfg.InboxDir, 0o755))
	pdf := testutil.BuildPDF([]string{
		"Form 8850 Pre-Screening Notice and Certification Request for the Work Opportunity Credit",
		"Department of the Treasury Internal Revenue Service",
	})
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InboxDir, "f8850 jane.pdf"), pdf, 0o644))

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Ingested.Attachments)
	assert.Equal(t, 1, res.Processed.Attachments)
	assert.Equal(t, 1, res.Processed.Classified)
	assert.Equal(t, 1, res.Exported)

	exported, err := db.ListAttachmentsByStatus(internal.AttachmentExported, 10)
	require.NoError(t, err)
	require.Len(t, exported, 1)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "listener", exported[0].ID+"_f8850_jane.xlsx"))

	again, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, again.Ingested.Duplicates)
	assert.Zero(t, again.Processed.Attachments)
	assert.Zero(t, again.Exported)
}

func TestRunCycleWithoutAutoExport(t *testing.T) {
	svc, db, cfg := newTestListener(t)
	svc.cfg.ListenerAutoExport = false

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Ingested.Files)
	assert.DirExists(t, cfg.InboxDir)

	exported, err := db.ListAttachmentsByStatus(internal.AttachmentExported, 10)
	require.NoError(t, err)
	assert.Empty(t, exported)
}

func TestRunStopsOnCancel(t *testing.T) {
	svc, _, _ := newTestListener(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestExportFilename(t *testing.T) {
	name := ExportFilename(internal.AttachmentRow{ID: "abc", Filename: "Form: 9061?.PDF"})
	assert.Equal(t, "abc_Form__9061_.xlsx", name)
}
