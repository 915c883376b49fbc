package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"carbonequip/internal"
	"carbonequip/internal/config"
)

// WrapperKeys are the object properties that may hold the record array, in
// lookup order.
var WrapperKeys = []string{"rows", "machines", "records", "data", "items"}

// LoadError reports a dataset that could not be fetched: a transport or file
// failure, or a non-success HTTP status.
type LoadError struct {
	Source string
	Status int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("cannot load data from %s: status=%d", e.Source, e.Status)
	}
	return fmt.Sprintf("cannot load data from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ShapeError reports a decoded body that is neither an array nor an object
// wrapping an array under one of WrapperKeys.
type ShapeError struct {
	Source string
	Kind   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unexpected data shape from %s: %s", e.Source, e.Kind)
}

type Loader struct {
	cfg        config.Config
	httpClient *http.Client
	now        func() time.Time
	sleep      func(context.Context, time.Duration) error
}

func NewLoader(cfg config.Config) *Loader {
	return &Loader{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.LoadTimeoutMs) * time.Millisecond},
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Load reads the dataset at source (http(s) URL or file path) and unwraps it
// into raw records. It fails with *LoadError or *ShapeError.
func (l *Loader) Load(ctx context.Context, source string) ([]internal.RawRecord, error) {
	body, err := l.read(ctx, source)
	if err != nil {
		return nil, err
	}
	records, err := Unwrap(body)
	if err != nil {
		var shape *ShapeError
		if errors.As(err, &shape) {
			shape.Source = source
			return nil, shape
		}
		return nil, &ShapeError{Source: source, Kind: err.Error()}
	}
	return records, nil
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	if isRemote(source) {
		return l.fetch(ctx, source)
	}
	body, err := os.ReadFile(source)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	return body, nil
}

func (l *Loader) fetch(ctx context.Context, source string) ([]byte, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	q := u.Query()
	q.Set("_ts", strconv.FormatInt(l.now().UnixNano(), 10))
	u.RawQuery = q.Encode()

	attempts := l.cfg.LoadMaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, &LoadError{Source: source, Err: err}
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")

		resp, err := l.httpClient.Do(req)
		if err != nil {
			lastErr = &LoadError{Source: source, Err: err}
			if ctx.Err() != nil {
				return nil, lastErr
			}
			if attempt < attempts {
				if err := l.sleep(ctx, backoff(attempt)); err != nil {
					return nil, lastErr
				}
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = &LoadError{Source: source, Err: readErr}
			if attempt < attempts {
				if err := l.sleep(ctx, backoff(attempt)); err != nil {
					return nil, lastErr
				}
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = &LoadError{Source: source, Status: resp.StatusCode}
			if isRetryableStatus(resp.StatusCode) && attempt < attempts {
				if err := l.sleep(ctx, backoff(attempt)); err != nil {
					return nil, lastErr
				}
				continue
			}
			return nil, lastErr
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = &LoadError{Source: source, Err: errors.New("request failed")}
	}
	return nil, lastErr
}

// Unwrap decodes a dataset body. Numbers keep their literal text and array
// elements that are not objects are skipped.
func Unwrap(body []byte) ([]internal.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &ShapeError{Kind: "invalid json: " + err.Error()}
	}

	switch t := doc.(type) {
	case []any:
		return toRecords(t), nil
	case map[string]any:
		for _, key := range WrapperKeys {
			if arr, ok := t[key].([]any); ok {
				return toRecords(arr), nil
			}
		}
		return nil, &ShapeError{Kind: "object without " + strings.Join(WrapperKeys, "/") + " array"}
	default:
		return nil, &ShapeError{Kind: fmt.Sprintf("%T", doc)}
	}
}

func toRecords(arr []any) []internal.RawRecord {
	out := make([]internal.RawRecord, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, internal.RawRecord(m))
		}
	}
	return out
}

func isRemote(source string) bool {
	low := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(low, "http://") || strings.HasPrefix(low, "https://")
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func backoff(attempt int) time.Duration {
	return time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
