package dataset

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"carbonequip/internal"
	"carbonequip/internal/config"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls int
	rows  int
	err   error
}

func (o *recordingObserver) ObserveLoad(rows int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	o.rows = rows
	o.err = err
}

func TestCatalogEnsureLoadsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machines.json")
	if err := os.WriteFile(path, []byte(`{"rows":[{"type":"Excavator","class_tons":"20"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _ := config.Load()
	c := NewCatalog(NewLoader(cfg), path, nil)
	obs := &recordingObserver{}
	c.SetObserver(obs)

	if c.Snapshot().Loaded {
		t.Fatal("loaded before first Ensure")
	}
	s := c.Ensure(context.Background())
	if !s.Loaded || len(s.Rows) != 1 || s.Diagnostic != "" {
		t.Fatalf("state=%+v", s)
	}
	if s.Rows[0].TypeNormalized != internal.TypeExcavator || s.Rows[0].ClassTons != "20" {
		t.Fatalf("row=%+v", s.Rows[0])
	}

	if err := os.WriteFile(path, []byte(`[{"type":"Grader"},{"type":"Grader"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if s := c.Ensure(context.Background()); len(s.Rows) != 1 {
		t.Fatalf("Ensure re-fetched: %d rows", len(s.Rows))
	}
	if obs.calls != 1 {
		t.Fatalf("observer calls=%d", obs.calls)
	}

	if s := c.Reload(context.Background()); len(s.Rows) != 2 {
		t.Fatalf("Reload rows=%d", len(s.Rows))
	}
	if obs.calls != 2 || obs.rows != 2 || obs.err != nil {
		t.Fatalf("observer=%+v", obs)
	}
}

func TestCatalogLoadFailureIsEmptyWithDiagnostic(t *testing.T) {
	cfg, _ := config.Load()
	l := NewLoader(cfg)
	l.httpClient = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return response(http.StatusNotFound, "missing"), nil
	})}
	c := NewCatalog(l, "https://example.test/machines.json", nil)
	obs := &recordingObserver{}
	c.SetObserver(obs)

	s := c.Ensure(context.Background())
	if !s.Loaded {
		t.Fatal("failed load must still mark the state loaded")
	}
	if s.Rows == nil || len(s.Rows) != 0 {
		t.Fatalf("rows=%v", s.Rows)
	}
	if s.Diagnostic == "" {
		t.Fatal("missing diagnostic")
	}
	if obs.err == nil || ErrorKind(obs.err) != "load" {
		t.Fatalf("observer err=%v", obs.err)
	}
}

func TestCatalogShapeFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machines.json")
	if err := os.WriteFile(path, []byte(`{"version":2}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _ := config.Load()
	c := NewCatalog(NewLoader(cfg), path, nil)
	obs := &recordingObserver{}
	c.SetObserver(obs)

	s := c.Reload(context.Background())
	if !s.Loaded || len(s.Rows) != 0 || s.Diagnostic == "" {
		t.Fatalf("state=%+v", s)
	}
	if ErrorKind(obs.err) != "shape" {
		t.Fatalf("kind=%s", ErrorKind(obs.err))
	}
}

func TestCatalogCancelledEnsureDoesNotCacheFailure(t *testing.T) {
	cfg, _ := config.Load()
	l := NewLoader(cfg)
	l.httpClient = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if err := r.Context().Err(); err != nil {
			return nil, err
		}
		return response(http.StatusOK, `[{"oem":"Volvo","type":"Excavator"}]`), nil
	})}
	c := NewCatalog(l, "https://example.test/machines.json", nil)
	obs := &recordingObserver{}
	c.SetObserver(obs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if s := c.Ensure(ctx); s.Loaded || s.Diagnostic != "" {
		t.Fatalf("cancelled load was cached: %+v", s)
	}
	if c.Snapshot().Loaded {
		t.Fatal("snapshot marked loaded after cancelled request")
	}
	if obs.calls != 0 {
		t.Fatalf("observer calls=%d", obs.calls)
	}

	s := c.Ensure(context.Background())
	if !s.Loaded || len(s.Rows) != 1 || s.Diagnostic != "" {
		t.Fatalf("state=%+v", s)
	}
}

func TestCatalogCancelledReloadKeepsPreviousRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machines.json")
	if err := os.WriteFile(path, []byte(`[{"type":"Grader"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _ := config.Load()
	l := NewLoader(cfg)
	c := NewCatalog(l, path, nil)
	if s := c.Ensure(context.Background()); len(s.Rows) != 1 {
		t.Fatalf("rows=%d", len(s.Rows))
	}

	c.source = "https://example.test/machines.json"
	l.httpClient = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, r.Context().Err()
	})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := c.Reload(ctx)
	if len(s.Rows) != 1 || s.Diagnostic != "" {
		t.Fatalf("reload replaced rows after cancel: %+v", s)
	}
}
