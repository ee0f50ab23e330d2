// Package app wires configuration, storage and the processing pipeline for
// the command line entry points.
package app

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wotc/internal/classifier"
	"wotc/internal/config"
	"wotc/internal/llm"
	"wotc/internal/pipeline"
	"wotc/internal/storage"
)

type App struct {
	Cfg    config.Config
	DB     *storage.DB
	Preset classifier.Preset
}

// SetupLogging points the global logger at a console writer on stderr.
func SetupLogging(cfg config.Config, debug bool) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level := cfg.ZerologLevel()
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}

func Open(cfg config.Config) (*App, error) {
	preset, err := classifier.PresetByName(cfg.ClassifierPreset)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return &App{Cfg: cfg, DB: db, Preset: preset}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// Fallback returns the LLM fallback when it is enabled, or nil.
func (a *App) Fallback(ctx context.Context) (pipeline.Fallback, error) {
	if !a.Cfg.LLMFallbackEnabled {
		return nil, nil
	}
	provider, err := llm.NewProvider(ctx, a.Cfg)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("provider", provider.Name()).
		Str("model", a.Cfg.LLMModel).
		Msg("llm fallback enabled")
	return llm.NewFallbackClassifier(provider, a.Cfg), nil
}

// Processor builds a processing service, overriding the configured preset
// when presetName is set.
func (a *App) Processor(ctx context.Context, presetName string) (*pipeline.ProcessingService, error) {
	preset := a.Preset
	if strings.TrimSpace(presetName) != "" {
		p, err := classifier.PresetByName(presetName)
		if err != nil {
			return nil, err
		}
		preset = p
	}
	fallback, err := a.Fallback(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.NewProcessingService(a.DB, preset, fallback), nil
}
