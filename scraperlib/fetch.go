package scraperlib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"goLexicon/cachelib"
	"goLexicon/configlib"
)

// ErrNotFound is returned when the dictionary has no page for a word
var ErrNotFound = errors.New("page not found")

// maxPageSize caps how much of a response body is read
const maxPageSize = 8 << 20

// StatusError is a non-2xx answer
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

// Fetcher downloads pages through the page cache, retrying transient failures
type Fetcher struct {
	client     *http.Client
	userAgent  string
	retries    int
	cache      cachelib.PageCache
	metrics    *Metrics
	log        logrus.FieldLogger
	newBackOff func() backoff.BackOff
}

// NewFetcher builds the HTTP client, going through a proxy when one is configured
func NewFetcher(cfg configlib.Scraper, pages cachelib.PageCache, metrics *Metrics, log logrus.FieldLogger) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.Workers
	if cfg.ProxyHost != "" {
		transport.Proxy = http.ProxyURL(&url.URL{
			Scheme: "http",
			User:   url.UserPassword(cfg.ProxyUser, cfg.ProxyPass),
			Host:   cfg.ProxyHost,
		})
	}
	if pages == nil {
		pages = cachelib.None{}
	}

	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		userAgent: cfg.UserAgent,
		retries:   cfg.Retries,
		cache:     pages,
		metrics:   metrics,
		log:       log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxElapsedTime = 2 * time.Minute
			return b
		},
	}
}

// Fetch returns the body of urlLink, from cache when available
func (f *Fetcher) Fetch(ctx context.Context, urlLink string) ([]byte, error) {
	page, found, err := f.cache.Get(urlLink)
	if err != nil {
		f.log.WithError(err).WithField("url", urlLink).Warn("page cache read failed")
	}
	if found {
		f.metrics.cacheHit()
		f.log.WithFields(logrus.Fields{"url": urlLink, "bytes": len(page.Body)}).Debug("cached")
		return page.Body, nil
	}

	start := time.Now()
	var body []byte
	var status int
	op := func() error {
		var err error
		body, status, err = f.get(ctx, urlLink)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(f.newBackOff(), uint64(f.retries)), ctx)
	err = backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		f.log.WithError(err).WithFields(logrus.Fields{"url": urlLink, "wait": wait}).Debug("retrying")
	})
	elapsed := time.Since(start)
	f.metrics.observe(err, elapsed)

	entry := f.log.WithFields(logrus.Fields{"url": urlLink, "status": status, "elapsed": elapsed})
	switch {
	case errors.Is(err, ErrNotFound):
		entry.Info("not found")
		return nil, err
	case err != nil:
		entry.WithError(err).Warn("download failed")
		return nil, err
	}
	entry.WithFields(logrus.Fields{"bytes": len(body), "text": PlainText(body, 200)}).Info("downloaded")

	if err := f.cache.Set(urlLink, cachelib.CachedPage{Body: body, FetchedAt: time.Now()}); err != nil {
		f.log.WithError(err).Warn("page cache write failed")
	}
	return body, nil
}

// get performs one request and returns the body and the status code, 0 when no
// response came back
func (f *Fetcher) get(ctx context.Context, urlLink string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlLink, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, &StatusError{URL: urlLink, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func retryable(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}
