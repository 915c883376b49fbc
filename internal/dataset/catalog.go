package dataset

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"carbonequip/internal"
	"carbonequip/internal/pipeline"
)

// State is one load cycle's outcome. Loaded distinguishes "not yet loaded"
// from a loaded dataset with no rows.
type State struct {
	Loaded     bool
	Source     string
	Rows       []internal.CanonicalRow
	Diagnostic string
	LoadedAt   time.Time
}

// LoadObserver is notified after every load attempt.
type LoadObserver interface {
	ObserveLoad(rows int, err error)
}

// Catalog caches the normalized rows for the session. Rows are derived once
// per load; filtering and export read the cached slice.
type Catalog struct {
	loader   *Loader
	source   string
	logger   *zerolog.Logger
	observer LoadObserver

	loadMu sync.Mutex
	mu     sync.RWMutex
	state  State
}

func NewCatalog(loader *Loader, source string, logger *zerolog.Logger) *Catalog {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Catalog{loader: loader, source: source, logger: logger, state: State{Source: source}}
}

func (c *Catalog) SetObserver(o LoadObserver) {
	c.observer = o
}

func (c *Catalog) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Ensure loads the dataset once and returns the cached state afterwards.
func (c *Catalog) Ensure(ctx context.Context) State {
	if s := c.Snapshot(); s.Loaded {
		return s
	}
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if s := c.Snapshot(); s.Loaded {
		return s
	}
	return c.reloadLocked(ctx)
}

// Reload fetches and normalizes the dataset again. Load and shape failures
// never escape: they yield an empty loaded state carrying a diagnostic. A
// cancelled ctx leaves the previous state in place.
func (c *Catalog) Reload(ctx context.Context) State {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	return c.reloadLocked(ctx)
}

func (c *Catalog) reloadLocked(ctx context.Context) State {
	next := State{Loaded: true, Source: c.source, LoadedAt: time.Now().UTC()}

	records, err := c.loader.Load(ctx, c.source)
	if err != nil && ctx.Err() != nil {
		// The caller went away; the dataset itself did not fail.
		c.logger.Debug().Err(err).Str("source", c.source).Msg("dataset load cancelled")
		return c.Snapshot()
	}
	if err != nil {
		next.Rows = []internal.CanonicalRow{}
		next.Diagnostic = Diagnose(err)
		c.logger.Warn().Err(err).Str("source", c.source).Msg("dataset load failed")
	} else {
		next.Rows = pipeline.NormalizeRecords(records)
		c.logger.Info().Str("source", c.source).Int("rows", len(next.Rows)).Msg("dataset loaded")
	}

	if c.observer != nil {
		c.observer.ObserveLoad(len(next.Rows), err)
	}

	c.mu.Lock()
	c.state = next
	c.mu.Unlock()
	return next
}

// Diagnose turns a loader failure into the user-facing message.
func Diagnose(err error) string {
	var loadErr *LoadError
	var shapeErr *ShapeError
	switch {
	case errors.As(err, &loadErr):
		return "Cannot load data: " + loadErr.Error()
	case errors.As(err, &shapeErr):
		return "Data file has an unexpected shape: " + shapeErr.Error()
	case err != nil:
		return "Cannot load data: " + err.Error()
	default:
		return ""
	}
}

// ErrorKind labels a loader failure for metrics.
func ErrorKind(err error) string {
	var shapeErr *ShapeError
	if errors.As(err, &shapeErr) {
		return "shape"
	}
	return "load"
}
