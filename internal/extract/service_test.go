package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonequip/internal/config"
	"carbonequip/internal/dataset"
	"carbonequip/internal/pipeline"
	"carbonequip/internal/storage"
)

func TestSameDomainLinks(t *testing.T) {
	page := `<a href="/b">b</a><a href="a#specs">a</a><a href="https://oem.test/a">dup</a>
<a href="https://other.test/x">other</a><a href="mailto:sales@oem.test">mail</a>
<a href="javascript:void(0)">js</a><a href="ftp://oem.test/file">ftp</a><a href="/c">c</a>`

	links, err := SameDomainLinks("https://oem.test/products/", []byte(page), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://oem.test/a",
		"https://oem.test/b",
		"https://oem.test/c",
		"https://oem.test/products/a",
	}, links)

	links, err = SameDomainLinks("https://oem.test/products/", []byte(page), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://oem.test/a", "https://oem.test/b"}, links)
}

func newTestService(t *testing.T, dir string) *Service {
	t.Helper()
	cfg, _ := config.Load()
	cfg.FetchRateRPS = 1000
	cfg.FetchMaxLinks = 30
	store, err := storage.Open(dir)
	require.NoError(t, err)
	return NewService(cfg, store, nil)
}

func TestServiceRunCrawlsAndMerges(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<html><body><a href="/ev-excavator">EV</a><a href="/careers">Jobs</a><a href="/gone">Gone</a><a href="https://elsewhere.test/">x</a></body></html>`))
	})
	mux.HandleFunc("/ev-excavator", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("User-Agent") != "CarbonEquipmentBot/1.0" {
			t.Errorf("user agent %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(productPage))
	})
	mux.HandleFunc("/careers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>Join our team</p></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	svc := newTestService(t, dir)
	svc.cfg.FetchUserAgent = "CarbonEquipmentBot/1.0"
	seeds := []Seed{{OEM: "Volvo", Country: "Sweden", DevelopmentStatus: "Commercial", StartURLs: []string{srv.URL + "/", ""}}}

	res, err := svc.Run(context.Background(), seeds)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Relevant)
	assert.Equal(t, storage.MergeResult{Total: 1, Added: 1, Updated: 0}, res.Merge)

	res, err = svc.Run(context.Background(), seeds)
	require.NoError(t, err)
	assert.Equal(t, storage.MergeResult{Total: 1, Added: 0, Updated: 1}, res.Merge)
	assert.Equal(t, int32(2), hits.Load())
}

func TestExtractedDatasetFeedsCatalogAndExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(productPage))
	}))
	defer srv.Close()

	dir := t.TempDir()
	svc := newTestService(t, dir)
	_, err := svc.Run(context.Background(), []Seed{{OEM: "Volvo", Country: "Sweden", StartURLs: []string{srv.URL}}})
	require.NoError(t, err)

	cfg, _ := config.Load()
	catalog := dataset.NewCatalog(dataset.NewLoader(cfg), filepath.Join(dir, storage.JSONFileName), nil)
	state := catalog.Ensure(context.Background())
	require.Empty(t, state.Diagnostic)
	require.Len(t, state.Rows, 1)

	row := state.Rows[0]
	assert.Equal(t, "Volvo", row.OEM)
	assert.Equal(t, "Excavator", string(row.TypeNormalized))
	assert.Equal(t, "Battery", row.PowerSource)
	assert.Equal(t, "120", row.EnginePowerKW)

	out := filepath.Join(t.TempDir(), pipeline.CSVFileName)
	require.NoError(t, pipeline.ExportRowsToCSV(state.Rows, out))
	blob, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"Volvo","Sweden"`)
}

func TestLoadSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`seeds:
  - oem: Komatsu
    country: Japan
    type_hint: Excavator
    development_status: Prototype
    start_urls:
      - https://komatsu.test/electric
  - oem: Liebherr
`), 0o644))

	seeds, err := LoadSeeds(path)
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, Seed{OEM: "Komatsu", Country: "Japan", TypeHint: "Excavator", DevelopmentStatus: "Prototype", StartURLs: []string{"https://komatsu.test/electric"}}, seeds[0])
	assert.Empty(t, seeds[1].StartURLs)

	require.NoError(t, os.WriteFile(path, []byte("seeds: [oops"), 0o644))
	_, err = LoadSeeds(path)
	assert.Error(t, err)
}
