package scraperlib

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goLexicon/cachelib"
	"goLexicon/configlib"
	"goLexicon/loglib"
)

const walkPage = `<html><head><title>walk</title></head><body>
<section class="css-1748arg e1wu7xq20">
  <section class="css-1sdcacc e10vl5dg0">
    <span class="luna-pos">verb (used without object),</span>
    <ol>
      <li class="css-2oywg7 e10vl5dg5"><style>.x{color:red}</style>to advance or travel on <a href="/browse/foot">foot</a> at a moderate speed;
        <span class="luna-example italic">He walked to the store.</span></li>
      <li class="css-2oywg7 e10vl5dg5">to move about <b>aimlessly</b> in town:</li>
    </ol>
  </section>
  <section class="css-1sdcacc e10vl5dg0">
    <span class="luna-pos">noun</span>
    <ol><li class="css-2oywg7 e10vl5dg5">an act or instance of walking</li></ol>
  </section>
  <section class="css-1sdcacc e10vl5dg0">
    <ol><li class="css-2oywg7 e10vl5dg5">unlabelled sense;</li></ol>
  </section>
</section>
<a href="https://www.dictionary.com/browse/stride">stride</a>
<a href="/browse/walk/">walk</a>
<a href="/thesaurus/walk">thesaurus</a>
</body></html>`

func testSelectors() configlib.Selectors {
	return viperDefaults().Scraper.Selectors
}

func viperDefaults() *configlib.Config {
	v := viper.New()
	configlib.SetDefaults(v)
	cfg, err := configlib.Load(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func TestParseDefinitions(t *testing.T) {
	senses, found, err := ParseDefinitions([]byte(walkPage), testSelectors())
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, []Sense{
		{POS: "verb", Definition: "to advance or travel on foot at a moderate speed."},
		{POS: "verb", Definition: "to move about aimlessly in town."},
		{POS: "noun", Definition: "an act or instance of walking."},
		{POS: "", Definition: "unlabelled sense."},
	}, senses)
}

func TestParseDefinitionsWithoutRoot(t *testing.T) {
	senses, found, err := ParseDefinitions([]byte(`<html><body><p>No results found</p></body></html>`), testSelectors())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, senses)
}

func TestSenseJSON(t *testing.T) {
	d := Dictionary{
		"walk":  {{POS: "verb", Definition: "to go on foot."}, {Definition: "café."}},
		"xyzzy": nil,
		"empty": {},
	}
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"walk":[["verb","to go on foot."],[null,"café."]],"xyzzy":null,"empty":[]}`, string(b))

	var back Dictionary
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d["walk"], back["walk"])
	assert.Nil(t, back["xyzzy"])
	assert.NotNil(t, back["empty"])

	assert.Error(t, json.Unmarshal([]byte(`[["verb"]]`), &[]Sense{}))
}

func TestSameEntry(t *testing.T) {
	d := Dictionary{
		"walk":    {{POS: "verb", Definition: "a."}},
		"walking": {{POS: "verb", Definition: "a."}},
		"run":     {{POS: "verb", Definition: "b."}},
		"nada":    nil,
	}
	assert.True(t, d.SameEntry("walk", "walking"))
	assert.False(t, d.SameEntry("walk", "run"))
	assert.True(t, d.SameEntry("nada", "absent"))
	assert.False(t, d.SameEntry("walk", "absent"))
	assert.Equal(t, []string{"nada", "run", "walk", "walking"}, d.Words())
}

type dictServer struct {
	*httptest.Server
	hits  int64
	flaky int64
}

func newDictServer(t *testing.T) *dictServer {
	ds := &dictServer{}
	ds.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&ds.hits, 1)
		word := strings.TrimPrefix(r.URL.Path, "/browse/")
		switch word {
		case "walk":
			fmt.Fprint(w, walkPage)
		case "stride", "foot":
			fmt.Fprintf(w, `<section class="css-1748arg e1wu7xq20"><section class="css-1sdcacc e10vl5dg0"><span class="luna-pos">noun</span><li class="css-2oywg7 e10vl5dg5">%s sense;</li></section></section>`, word)
		case "blank":
			fmt.Fprint(w, `<html><body>nothing here</body></html>`)
		case "flaky":
			if atomic.AddInt64(&ds.flaky, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, `<section class="css-1748arg e1wu7xq20"></section>`)
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "forbidden":
			w.WriteHeader(http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ds.Close)
	return ds
}

func newTestScraper(t *testing.T, baseURL string, pages cachelib.PageCache, reg prometheus.Registerer, mutate func(*configlib.Scraper)) *Scraper {
	cfg := viperDefaults().Scraper
	cfg.BaseURL = baseURL + "/browse/%s"
	cfg.Workers = 4
	cfg.Timeout = 5 * time.Second
	cfg.Retries = 3
	if mutate != nil {
		mutate(&cfg)
	}

	var metrics *Metrics
	if reg != nil {
		metrics = NewMetrics(reg)
	}
	f := NewFetcher(cfg, pages, metrics, loglib.Discard())
	f.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	s, err := New(cfg, f, loglib.Discard())
	require.NoError(t, err)
	return s
}

func TestRun(t *testing.T) {
	ds := newDictServer(t)
	reg := prometheus.NewRegistry()
	s := newTestScraper(t, ds.URL, nil, reg, nil)

	words := []string{"walk", "blank", "unknown", "flaky", "broken", "forbidden", "walk"}
	dict, rep, err := s.Run(context.Background(), words, nil)
	require.NoError(t, err)

	assert.Len(t, dict["walk"], 4)
	assert.Contains(t, dict, "blank")
	assert.Nil(t, dict["blank"])
	assert.Contains(t, dict, "unknown")
	assert.Nil(t, dict["unknown"])
	assert.NotNil(t, dict["flaky"])
	assert.Empty(t, dict["flaky"])
	assert.NotContains(t, dict, "broken")
	assert.NotContains(t, dict, "forbidden")

	assert.Equal(t, 6, rep.Requested)
	assert.Equal(t, 2, rep.Found)
	assert.Equal(t, 2, rep.Missing)
	assert.Equal(t, []string{"broken", "forbidden"}, rep.FailedWords)

	assert.Equal(t, float64(3), testutil.ToFloat64(s.fetcher.metrics.requests.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.fetcher.metrics.requests.WithLabelValues("not_found")))
	assert.Equal(t, float64(2), testutil.ToFloat64(s.fetcher.metrics.requests.WithLabelValues("error")))
}

func TestRunSkipsKnownWordsAndUsesCache(t *testing.T) {
	ds := newDictServer(t)
	pages, err := cachelib.OpenFile(filepath.Join(t.TempDir(), "pages.dat"), 0, loglib.Discard())
	require.NoError(t, err)
	s := newTestScraper(t, ds.URL, pages, prometheus.NewRegistry(), nil)

	known := Dictionary{"blank": nil}
	dict, rep, err := s.Run(context.Background(), []string{"walk", "blank"}, known)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Requested)
	assert.Len(t, dict, 2)
	assert.Equal(t, int64(1), atomic.LoadInt64(&ds.hits))

	_, _, err = s.Run(context.Background(), []string{"walk"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&ds.hits), "second run is served by the cache")
	assert.Equal(t, float64(1), testutil.ToFloat64(s.fetcher.metrics.cacheHits))
}

func TestRunFollowsLinks(t *testing.T) {
	ds := newDictServer(t)
	s := newTestScraper(t, ds.URL, nil, nil, func(c *configlib.Scraper) {
		c.FollowLinks = true
	})

	dict, rep, err := s.Run(context.Background(), []string{"walk"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Discovered)
	assert.Equal(t, []Sense{{POS: "noun", Definition: "foot sense."}}, dict["foot"])
	assert.Len(t, dict, 2, "stride lives on another host and is not followed")
}

func TestRunFollowsLinksUpToMaxWords(t *testing.T) {
	ds := newDictServer(t)
	s := newTestScraper(t, ds.URL, nil, nil, func(c *configlib.Scraper) {
		c.FollowLinks = true
		c.MaxWords = 1
	})

	dict, rep, err := s.Run(context.Background(), []string{"walk"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Discovered)
	assert.Len(t, dict, 1)
}

func TestRunCancelled(t *testing.T) {
	ds := newDictServer(t)
	s := newTestScraper(t, ds.URL, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := s.Run(ctx, []string{"walk", "foot"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBrowsePattern(t *testing.T) {
	bp, err := newBrowsePattern("http://www.dictionary.com/browse/%s?s=t")
	require.NoError(t, err)
	page, _ := url.Parse("https://www.dictionary.com/browse/walk?s=t")

	tests := []struct {
		link, want string
	}{
		{"/browse/stride", "stride"},
		{"https://dictionary.com/browse/foot/", "foot"},
		{"/browse/ice%20cream", "ice cream"},
		{"/thesaurus/walk", ""},
		{"https://example.com/browse/walk", ""},
		{"/browse/a/b", ""},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			assert.Equal(t, tt.want, bp.word(page, tt.link))
		})
	}

	query, err := newBrowsePattern("http://example.com/lookup?q=%s")
	require.NoError(t, err)
	assert.Equal(t, "", query.word(page, "/lookup?q=walk"))
}

func TestFetchLogsDownloads(t *testing.T) {
	ds := newDictServer(t)
	cfg := viperDefaults().Scraper
	cfg.Timeout = 5 * time.Second
	cfg.Retries = 0
	log, hook := test.NewNullLogger()
	f := NewFetcher(cfg, cachelib.None{}, nil, log)

	body, err := f.Fetch(context.Background(), ds.URL+"/browse/walk")
	require.NoError(t, err)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "downloaded", entry.Message)
	assert.Equal(t, 200, entry.Data["status"])
	assert.Equal(t, len(body), entry.Data["bytes"])
	assert.Contains(t, entry.Data["text"], "to advance")

	_, err = f.Fetch(context.Background(), ds.URL+"/browse/nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "not found", hook.LastEntry().Message)
	assert.Equal(t, 404, hook.LastEntry().Data["status"])

	_, err = f.Fetch(context.Background(), ds.URL+"/browse/forbidden")
	assert.Error(t, err)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, 403, hook.LastEntry().Data["status"])
}

func TestPlainText(t *testing.T) {
	text := PlainText([]byte(`<html><body><h1>No results</h1><p>for xyzzy</p></body></html>`), 0)
	assert.Contains(t, text, "No results")
	assert.Contains(t, text, "xyzzy")
	assert.Len(t, PlainText([]byte("<p>"+strings.Repeat("a", 50)+"</p>"), 10), 14)
	assert.Equal(t, "é ...", PlainText([]byte("<p>ééééé</p>"), 3), "never splits a rune")
}
