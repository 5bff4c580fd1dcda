// Package scraperlib harvests dictionary definitions for a word list with a bounded
// pool of workers.
//
// Each word is fetched from the configured dictionary URL, parsed into senses and
// stored in a Dictionary. Words whose page has no definition section are kept with
// a null entry so later runs do not fetch them again. Failed fetches are reported
// but never stop the run.
package scraperlib

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jackdanger/collectlinks"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"goLexicon/configlib"
)

// Report summarizes a run
type Report struct {
	Requested   int
	Found       int
	Missing     int
	FailedWords []string
	Discovered  int
}

// Scraper fills a Dictionary from dictionary pages
type Scraper struct {
	cfg     configlib.Scraper
	fetcher *Fetcher
	log     logrus.FieldLogger

	browse browsePattern
}

// New returns a scraper downloading through fetcher
func New(cfg configlib.Scraper, fetcher *Fetcher, log logrus.FieldLogger) (*Scraper, error) {
	bp, err := newBrowsePattern(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return &Scraper{cfg: cfg, fetcher: fetcher, log: log, browse: bp}, nil
}

// URLFor is the dictionary page address of word
func (s *Scraper) URLFor(word string) string {
	return fmt.Sprintf(s.cfg.BaseURL, url.PathEscape(word))
}

// GetDefs downloads and parses the page of a single word. A nil slice with a nil
// error means the page exists but holds no definition section, or does not exist.
func (s *Scraper) GetDefs(ctx context.Context, word string) ([]Sense, []string, error) {
	pageURL := s.URLFor(word)
	body, err := s.fetcher.Fetch(ctx, pageURL)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	senses, found, err := ParseDefinitions(body, s.cfg.Selectors)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		s.log.WithFields(logrus.Fields{"word": word, "text": PlainText(body, 200)}).Debug("no definition section")
	}

	var links []string
	if s.cfg.FollowLinks {
		links = s.linkedWords(pageURL, body)
	}
	return senses, links, nil
}

// Run scrapes every word not already in into (which may be nil) and returns the
// merged dictionary. When the context is cancelled, Run returns what was
// collected so far together with the context error.
func (s *Scraper) Run(ctx context.Context, words []string, into Dictionary) (Dictionary, Report, error) {
	if into == nil {
		into = make(Dictionary)
	}
	var rep Report

	seen := make(map[string]bool, len(words))
	for w := range into {
		seen[w] = true
	}
	var wave []string
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			wave = append(wave, w)
		}
	}
	if skipped := len(words) - len(wave); skipped > 0 {
		s.log.WithField("skipped", skipped).Info("words already scraped")
	}

	var mu sync.Mutex
	for len(wave) > 0 {
		discovered, err := s.runWave(ctx, wave, into, &mu, &rep)
		if err != nil {
			return into, rep.sorted(), err
		}

		wave = wave[:0]
		for _, w := range discovered {
			if seen[w] {
				continue
			}
			if s.cfg.MaxWords > 0 && len(seen) >= s.cfg.MaxWords {
				break
			}
			seen[w] = true
			wave = append(wave, w)
		}
		rep.Discovered += len(wave)
		if len(wave) > 0 {
			s.log.WithField("words", len(wave)).Info("following links")
		}
	}

	return into, rep.sorted(), nil
}

func (s *Scraper) runWave(ctx context.Context, wave []string, into Dictionary, mu *sync.Mutex, rep *Report) ([]string, error) {
	total := len(wave)
	step := total / 20
	if step < 1 {
		step = 1
	}
	var done int64
	var discovered []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, word := range wave {
		if gctx.Err() != nil {
			break
		}
		word := word
		g.Go(func() error {
			senses, links, err := s.GetDefs(gctx, word)

			mu.Lock()
			rep.Requested++
			switch {
			case err != nil && gctx.Err() != nil:
				// cancelled mid-flight: leave the word for a later run
			case err != nil:
				rep.FailedWords = append(rep.FailedWords, word)
				s.log.WithError(err).WithField("word", word).Warn("download failed")
			case senses == nil:
				into[word] = nil
				rep.Missing++
			default:
				into[word] = senses
				rep.Found++
			}
			discovered = append(discovered, links...)
			mu.Unlock()

			if n := atomic.AddInt64(&done, 1); n%int64(step) == 0 || n == int64(total) {
				s.log.WithFields(logrus.Fields{"done": n, "total": total}).Info("scraping progress")
			}
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return discovered, nil
}

func (r Report) sorted() Report {
	sort.Strings(r.FailedWords)
	return r
}

/***************************************************************************************************************
* Link following ***********************************************************************************************
****************************************************************************************************************/

// browsePattern recognizes links pointing at another word's dictionary page
type browsePattern struct {
	host   string
	prefix string
}

func newBrowsePattern(baseURL string) (browsePattern, error) {
	const marker = "goLexiconWordMarker"
	u, err := url.Parse(fmt.Sprintf(baseURL, marker))
	if err != nil {
		return browsePattern{}, fmt.Errorf("parse base url: %w", err)
	}
	i := strings.Index(u.Path, marker)
	if i < 0 {
		// the word goes in the query string; links cannot be mapped back to words
		return browsePattern{}, nil
	}
	return browsePattern{host: trimWWW(u.Hostname()), prefix: u.Path[:i]}, nil
}

func trimWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// word returns the headword a link points at, or "" when it is not a browse link
func (bp browsePattern) word(page *url.URL, link string) string {
	if bp.prefix == "" {
		return ""
	}
	ref, err := url.Parse(link)
	if err != nil {
		return ""
	}
	abs := page.ResolveReference(ref)
	if trimWWW(abs.Hostname()) != bp.host || !strings.HasPrefix(abs.Path, bp.prefix) {
		return ""
	}
	w := strings.TrimSuffix(abs.Path[len(bp.prefix):], "/")
	if w == "" || strings.Contains(w, "/") {
		return ""
	}
	return w
}

func (s *Scraper) linkedWords(pageURL string, body []byte) []string {
	page, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	var words []string
	for _, link := range collectlinks.All(bytes.NewReader(body)) {
		if w := s.browse.word(page, link); w != "" {
			words = append(words, w)
		}
	}
	return words
}
