package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"carbonequip/internal"
	"carbonequip/internal/config"
	"carbonequip/internal/storage"
)

type seedFile struct {
	Seeds []Seed `yaml:"seeds"`
}

// LoadSeeds reads the seeds list from a sources file. Seeds without start
// URLs are kept; they simply produce no pages.
func LoadSeeds(path string) ([]Seed, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f seedFile
	if err := yaml.Unmarshal(blob, &f); err != nil {
		return nil, fmt.Errorf("parse seeds %s: %w", path, err)
	}
	return f.Seeds, nil
}

// Service crawls seed pages, extracts machine records from the relevant ones
// and merges them into the on-disk dataset.
type Service struct {
	cfg        config.Config
	store      *storage.Store
	httpClient *http.Client
	limiter    *RateLimiter
	logger     *zerolog.Logger
	now        func() time.Time
}

type RunResult struct {
	RunID    string
	Pages    int
	Relevant int
	Failed   int
	Merge    storage.MergeResult
}

func NewService(cfg config.Config, store *storage.Store, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		cfg:        cfg,
		store:      store,
		httpClient: &http.Client{Timeout: time.Duration(cfg.FetchTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.FetchRateRPS),
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Service) Run(ctx context.Context, seeds []Seed) (RunResult, error) {
	res := RunResult{RunID: uuid.NewString()}
	records := []internal.RawRecord{}
	logger := s.logger.With().Str("run_id", res.RunID).Logger()

	for _, seed := range seeds {
		for _, start := range seed.StartURLs {
			start = strings.TrimSpace(start)
			if start == "" {
				continue
			}
			found, pages, failed, err := s.crawlSeed(ctx, &logger, seed, start)
			res.Pages += pages
			res.Failed += failed
			records = append(records, found...)
			if err != nil {
				return res, err
			}
		}
	}

	res.Relevant = len(records)
	merged, err := s.store.Merge(records)
	if err != nil {
		return res, err
	}
	res.Merge = merged
	logger.Info().
		Int("pages", res.Pages).
		Int("relevant", res.Relevant).
		Int("failed", res.Failed).
		Int("total", merged.Total).
		Int("added", merged.Added).
		Int("updated", merged.Updated).
		Msg("extract run done")
	return res, nil
}

// crawlSeed visits the start page and its same-domain links. Only context
// cancellation aborts; page failures are counted and skipped.
func (s *Service) crawlSeed(ctx context.Context, logger *zerolog.Logger, seed Seed, start string) ([]internal.RawRecord, int, int, error) {
	logger.Info().Str("oem", seed.OEM).Str("url", start).Msg("crawl seed")

	body, err := s.fetch(ctx, start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, 0, ctx.Err()
		}
		logger.Warn().Err(err).Str("url", start).Msg("seed fetch failed")
		return nil, 0, 1, nil
	}

	out := []internal.RawRecord{}
	pages, failed := 1, 0
	if rec, ok := s.extractPage(logger, seed, start, body); ok {
		out = append(out, rec)
	}

	links, err := SameDomainLinks(start, body, s.cfg.FetchMaxLinks)
	if err != nil {
		logger.Warn().Err(err).Str("url", start).Msg("link scan failed")
		return out, pages, failed, nil
	}

	for _, link := range links {
		if link == start {
			continue
		}
		page, err := s.fetch(ctx, link)
		if err != nil {
			if ctx.Err() != nil {
				return out, pages, failed, ctx.Err()
			}
			logger.Debug().Err(err).Str("url", link).Msg("page fetch failed")
			failed++
			continue
		}
		pages++
		if rec, ok := s.extractPage(logger, seed, link, page); ok {
			out = append(out, rec)
		}
	}
	return out, pages, failed, nil
}

func (s *Service) extractPage(logger *zerolog.Logger, seed Seed, link string, body []byte) (internal.RawRecord, bool) {
	doc, text, err := ParseHTML(body)
	if err != nil {
		return nil, false
	}
	detect := DetectRelevance(text)
	if !detect.Relevant {
		logger.Debug().Str("url", link).Msg("page not relevant")
		return nil, false
	}
	return BuildRecord(text, doc, seed, link, s.now()), true
}

func (s *Service) fetch(ctx context.Context, target string) ([]byte, error) {
	const maxAttempts = 3
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.limiter.WaitTurn(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", s.cfg.FetchUserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return body, nil
		}
		lastErr = fmt.Errorf("fetch %s failed: status=%d", target, resp.StatusCode)
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return nil, lastErr
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}

// SameDomainLinks returns the absolute, sorted, de-duplicated links on page
// that stay on base's host, at most limit of them.
func SameDomainLinks(base string, page []byte, limit int) ([]string, error) {
	root, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page)))
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		low := strings.ToLower(href)
		if href == "" || strings.HasPrefix(low, "mailto:") || strings.HasPrefix(low, "javascript:") || strings.HasPrefix(low, "tel:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := root.ResolveReference(ref)
		abs.Fragment = ""
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if abs.Hostname() != root.Hostname() {
			return
		}
		seen[abs.String()] = struct{}{}
	})

	links := make([]string, 0, len(seen))
	for link := range seen {
		links = append(links, link)
	}
	sort.Strings(links)
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}
