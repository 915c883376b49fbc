package listener

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"carbonequip/internal/config"
	"carbonequip/internal/dataset"
	"carbonequip/internal/extract"
	"carbonequip/internal/pipeline"
)

type Reloader interface {
	Reload(ctx context.Context) dataset.State
}

type Crawler interface {
	Run(ctx context.Context, seeds []extract.Seed) (extract.RunResult, error)
}

// Service refreshes the catalog on a fixed interval. With a crawler it first
// re-runs extraction over the seeds file; with RefreshExport it writes the
// reloaded rows to OutputDir.
type Service struct {
	cfg     config.Config
	catalog Reloader
	crawler Crawler
	logger  *zerolog.Logger
}

func NewService(cfg config.Config, catalog Reloader, crawler Crawler, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{cfg: cfg, catalog: catalog, crawler: crawler, logger: logger}
}

func (s *Service) Run(ctx context.Context) error {
	if s.cfg.RefreshInterval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			s.logger.Error().Err(err).Msg("refresh cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.RefreshInterval):
		}
	}
}

// RunCron runs a refresh cycle on every tick of the RefreshCron schedule
// (standard five-field syntax) until ctx is done. A tick that fires while the
// previous cycle is still running is skipped.
func (s *Service) RunCron(ctx context.Context) error {
	c, err := s.scheduler(ctx)
	if err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Service) scheduler(ctx context.Context) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.cfg.RefreshCron, func() {
		if _, err := s.RunCycle(ctx); err != nil {
			s.logger.Error().Err(err).Msg("refresh cycle failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", s.cfg.RefreshCron, err)
	}
	return c, nil
}

// Start picks the cron schedule when one is configured, else the fixed
// interval loop.
func (s *Service) Start(ctx context.Context) error {
	if s.cfg.RefreshCron != "" {
		return s.RunCron(ctx)
	}
	return s.Run(ctx)
}

// RunCycle performs one refresh and returns the reloaded state.
func (s *Service) RunCycle(ctx context.Context) (dataset.State, error) {
	if s.crawler != nil {
		seeds, err := extract.LoadSeeds(s.cfg.SeedsPath)
		if err != nil {
			return dataset.State{}, err
		}
		res, err := s.crawler.Run(ctx, seeds)
		if err != nil {
			return dataset.State{}, err
		}
		s.logger.Info().Int("pages", res.Pages).Int("added", res.Merge.Added).Msg("crawl done")
	}

	state := s.catalog.Reload(ctx)

	if s.cfg.RefreshExport && state.Diagnostic == "" {
		if err := s.export(state); err != nil {
			return state, err
		}
	}

	s.logger.Info().
		Int("rows", len(state.Rows)).
		Bool("failed", state.Diagnostic != "").
		Msg("refresh cycle done")
	return state, nil
}

func (s *Service) export(state dataset.State) error {
	dir := filepath.Join(s.cfg.OutputDir, "refresh")
	if err := pipeline.ExportRowsToCSV(state.Rows, filepath.Join(dir, pipeline.CSVFileName)); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	if err := pipeline.ExportRowsToXLSX(state.Rows, filepath.Join(dir, pipeline.XLSXFileName)); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	return nil
}
