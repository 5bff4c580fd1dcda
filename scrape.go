package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"goLexicon/cachelib"
	"goLexicon/iolib"
	"goLexicon/loglib"
	"goLexicon/scraperlib"
)

func (a *app) scrapeCmd() *cobra.Command {
	var wordsFile, outFile string
	var resume bool

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Download and parse the dictionary entry of every word",
		Long: `Scrape reads a word list (JSON array or one word per line), downloads the
dictionary page of every word with a bounded pool of workers and writes a JSON
object word -> [[pos, definition], ...], null for words without an entry.

Words that could not be downloaded are listed in <out>.failed.json. With --resume
words already present in <out> are not downloaded again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return a.scrape(ctx, cmd, wordsFile, outFile, resume)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&wordsFile, "words", "w", "words.json", "word list")
	f.StringVarP(&outFile, "out", "o", "dictionary.json", "output dictionary")
	f.BoolVar(&resume, "resume", false, "keep the entries of an existing output and skip their words")
	f.Int("workers", 20, "concurrent downloads")
	f.Bool("follow-links", false, "also scrape the words linked from fetched pages")
	f.Int("max-words", 0, "stop following links past this many words (0 = no limit)")
	f.String("cache", "file", "page cache backend (file, redis, none)")
	f.String("metrics-addr", "", "serve prometheus metrics on this address")
	a.bind(cmd, "scraper.workers", "workers")
	a.bind(cmd, "scraper.followLinks", "follow-links")
	a.bind(cmd, "scraper.maxWords", "max-words")
	a.bind(cmd, "cache.backend", "cache")
	a.bind(cmd, "metrics.addr", "metrics-addr")
	return cmd
}

func (a *app) scrape(ctx context.Context, cmd *cobra.Command, wordsFile, outFile string, resume bool) error {
	words, err := iolib.ReadWordList(wordsFile)
	if err != nil {
		return fmt.Errorf("word list: %w", err)
	}

	var into scraperlib.Dictionary
	if resume && iolib.FileExists(outFile) {
		if into, err = scraperlib.LoadDictionary(outFile); err != nil {
			return err
		}
		a.log.WithField("entries", len(into)).Info("resuming")
	}

	downloadLog, closer, err := loglib.FileLogger(a.cfg.Log, "download")
	if err != nil {
		return err
	}
	defer closer.Close()

	cc := a.cfg.Cache
	pages, err := cachelib.Open(cc.Backend, cc.File, cc.SaveEvery, cc.RedisAddr, a.log)
	if err != nil {
		return fmt.Errorf("page cache: %w", err)
	}
	defer func() {
		if err := pages.Close(); err != nil {
			a.log.WithError(err).Error("closing page cache")
		}
	}()

	metrics, stop := a.serveMetrics()
	defer stop()

	fetcher := scraperlib.NewFetcher(a.cfg.Scraper, pages, metrics, downloadLog)
	s, err := scraperlib.New(a.cfg.Scraper, fetcher, a.log)
	if err != nil {
		return err
	}

	a.log.WithFields(logrus.Fields{"words": len(words), "workers": a.cfg.Scraper.Workers}).Info("scraping")
	dict, rep, runErr := s.Run(ctx, words, into)

	if err := dict.Save(outFile); err != nil {
		return err
	}
	if err := pages.Flush(); err != nil {
		a.log.WithError(err).Error("saving page cache")
	}
	if len(rep.FailedWords) > 0 {
		if err := iolib.WriteJSON(outFile+".failed.json", rep.FailedWords); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "requested %d, found %d, missing %d, failed %d, discovered %d, entries %d\n",
		rep.Requested, rep.Found, rep.Missing, len(rep.FailedWords), rep.Discovered, len(dict))
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if runErr != nil {
		a.log.Warn("interrupted, partial dictionary saved")
	}
	return nil
}

// serveMetrics starts the prometheus endpoint when metrics.addr is set
func (a *app) serveMetrics() (*scraperlib.Metrics, func()) {
	if a.cfg.MetricsAddr == "" {
		return nil, func() {}
	}
	reg := prometheus.NewRegistry()
	metrics := scraperlib.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("metrics server")
		}
	}()
	a.log.WithField("addr", a.cfg.MetricsAddr).Info("serving metrics")

	return metrics, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
