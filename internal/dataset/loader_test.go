package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"carbonequip/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testLoader(t *testing.T, rt roundTripFunc) *Loader {
	t.Helper()
	cfg, _ := config.Load()
	cfg.LoadMaxAttempts = 3
	l := NewLoader(cfg)
	l.httpClient = &http.Client{Transport: rt}
	l.sleep = func(context.Context, time.Duration) error { return nil }
	return l
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestLoadRemoteWithRetry(t *testing.T) {
	attempt := 0
	l := testLoader(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/data/machines.json" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("_ts") == "" || r.Header.Get("Cache-Control") != "no-cache" {
			t.Fatalf("request is cacheable: %s %v", r.URL, r.Header)
		}
		attempt++
		if attempt == 1 {
			return response(http.StatusServiceUnavailable, `busy`), nil
		}
		return response(http.StatusOK, `{"rows":[{"oem":"Volvo","class_t":23.5},{"oem":"Cat"}]}`), nil
	})

	records, err := l.Load(context.Background(), "https://example.test/data/machines.json")
	if err != nil {
		t.Fatal(err)
	}
	if attempt != 2 {
		t.Fatalf("attempts=%d", attempt)
	}
	if len(records) != 2 {
		t.Fatalf("len=%d", len(records))
	}
	if v := records[0]["class_t"]; v != json.Number("23.5") {
		t.Fatalf("class_t=%v", v)
	}
}

func TestLoadRemoteNotFound(t *testing.T) {
	attempt := 0
	l := testLoader(t, func(r *http.Request) (*http.Response, error) {
		attempt++
		return response(http.StatusNotFound, `nope`), nil
	})

	records, err := l.Load(context.Background(), "http://example.test/machines.json")
	if records != nil {
		t.Fatalf("records=%v", records)
	}
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Status != http.StatusNotFound {
		t.Fatalf("err=%v", err)
	}
	if attempt != 1 {
		t.Fatalf("404 retried %d times", attempt)
	}
}

func TestLoadRemoteTransportError(t *testing.T) {
	l := testLoader(t, func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	_, err := l.Load(context.Background(), "http://example.test/machines.json")
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Err == nil {
		t.Fatalf("err=%v", err)
	}
}

func TestLoadRemoteTransportErrorBacksOff(t *testing.T) {
	attempt := 0
	l := testLoader(t, func(r *http.Request) (*http.Response, error) {
		attempt++
		if attempt < 3 {
			return nil, errors.New("connection reset")
		}
		return response(http.StatusOK, `[{"oem":"Volvo"}]`), nil
	})
	waits := []time.Duration{}
	l.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	records, err := l.Load(context.Background(), "https://example.test/machines.json")
	if err != nil {
		t.Fatal(err)
	}
	if attempt != 3 || len(records) != 1 {
		t.Fatalf("attempts=%d records=%d", attempt, len(records))
	}
	if len(waits) != 2 {
		t.Fatalf("waits=%v", waits)
	}
	if waits[0] < 250*time.Millisecond || waits[1] < 500*time.Millisecond {
		t.Fatalf("backoff too short: %v", waits)
	}
}

func TestLoadRemoteTransportErrorStopsWhenBackoffCancelled(t *testing.T) {
	attempt := 0
	l := testLoader(t, func(r *http.Request) (*http.Response, error) {
		attempt++
		return nil, errors.New("connection reset")
	})
	l.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	_, err := l.Load(context.Background(), "https://example.test/machines.json")
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("err=%v", err)
	}
	if attempt != 1 {
		t.Fatalf("attempts=%d", attempt)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machines.json")
	if err := os.WriteFile(path, []byte(`[{"oem":"Komatsu"}, 5, "x"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _ := config.Load()
	records, err := NewLoader(cfg).Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0]["oem"] != "Komatsu" {
		t.Fatalf("records=%v", records)
	}

	_, err = NewLoader(cfg).Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("err=%v", err)
	}
}

func TestUnwrap(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{name: "bare array", body: `[{"a":1},{"a":2}]`, want: 2},
		{name: "rows wrapper", body: `{"rows":[{"a":1}]}`, want: 1},
		{name: "machines wrapper", body: `{"generated":"2024","machines":[{"a":1},{"b":2},{"c":3}]}`, want: 3},
		{name: "empty array", body: `[]`, want: 0},
		{name: "object without array", body: `{"rows":"nope"}`, wantErr: true},
		{name: "scalar", body: `42`, wantErr: true},
		{name: "invalid", body: `{`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := Unwrap([]byte(tc.body))
			if tc.wantErr {
				var shapeErr *ShapeError
				if !errors.As(err, &shapeErr) {
					t.Fatalf("err=%v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(records) != tc.want {
				t.Fatalf("len=%d", len(records))
			}
		})
	}
}
