// Package configlib loads the YAML configuration shared by every command
package configlib

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"goLexicon/loglib"
	"goLexicon/stringlib"
)

// Selectors are the CSS selectors locating definitions on a dictionary page
type Selectors struct {
	Root    string
	Section string
	POS     string
	Entry   string
	Example string
}

// Scraper holds the dictionary scraper settings
type Scraper struct {
	BaseURL     string
	Workers     int
	Timeout     time.Duration
	Retries     int
	UserAgent   string
	ProxyHost   string
	ProxyUser   string
	ProxyPass   string
	FollowLinks bool
	MaxWords    int
	Selectors   Selectors
}

// Cache holds the page cache settings
type Cache struct {
	Backend   string
	File      string
	SaveEvery int
	RedisAddr string
}

// Eval holds the benchmark locations
type Eval struct {
	WordsimHome   string
	AnalogiesHome string
	Distance      string
}

// Encoder holds the definition encoder hyper-parameters
type Encoder struct {
	Hidden          int
	Layers          int
	Bidirectional   bool
	Cell            string
	MaxLen          int
	InputDropout    float64
	Dropout         float64
	VariableLengths bool
	BatchSize       int
	Seed            int64
	EmbeddingStd    float64
}

// Config is the whole configuration tree
type Config struct {
	Log         loglib.Config
	Scraper     Scraper
	Cache       Cache
	MetricsAddr string
	MaxDefs     int
	CorpusFile  string
	Eval        Eval
	Encoder     Encoder
}

// SetDefaults registers every key with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.dir", "./logs")

	v.SetDefault("scraper.baseURL", "http://www.dictionary.com/browse/%s?s=t")
	v.SetDefault("scraper.workers", 20)
	v.SetDefault("scraper.timeout", 30)
	v.SetDefault("scraper.retries", 3)
	v.SetDefault("scraper.userAgent", "Mozilla/5.0 (compatible; goLexicon/1.0)")
	v.SetDefault("scraper.followLinks", false)
	v.SetDefault("scraper.maxWords", 0)
	v.SetDefault("scraper.selectors.root", "section.css-1748arg.e1wu7xq20")
	v.SetDefault("scraper.selectors.section", "section.css-1sdcacc.e10vl5dg0")
	v.SetDefault("scraper.selectors.pos", "span.luna-pos")
	v.SetDefault("scraper.selectors.entry", "li.css-2oywg7.e10vl5dg5")
	v.SetDefault("scraper.selectors.example", "span.luna-example.italic")

	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.file", "./cache/pages.dat")
	v.SetDefault("cache.saveEvery", 50)
	v.SetDefault("cache.redisAddr", ":6379")

	v.SetDefault("metrics.addr", "")
	v.SetDefault("tabularize.maxDefs", 0)
	v.SetDefault("corpus.file", "./goCorpusFreqLib/all.num")

	v.SetDefault("eval.wordsimHome", "vsmdata/wordsim")
	v.SetDefault("eval.analogiesHome", "vsmdata/question-data")
	v.SetDefault("eval.distance", "cosine")

	v.SetDefault("encoder.hidden", 128)
	v.SetDefault("encoder.layers", 1)
	v.SetDefault("encoder.bidirectional", false)
	v.SetDefault("encoder.cell", "lstm")
	v.SetDefault("encoder.maxLen", 40)
	v.SetDefault("encoder.inputDropout", 0.0)
	v.SetDefault("encoder.dropout", 0.0)
	v.SetDefault("encoder.variableLengths", true)
	v.SetDefault("encoder.batchSize", 64)
	v.SetDefault("encoder.seed", 1)
	v.SetDefault("encoder.embeddingStd", 0.5)
}

// ReadInConfig looks for <name>.yaml in the working directory and ./config.
// A missing file is not an error: defaults, env and flags still apply.
func ReadInConfig(v *viper.Viper, name string) error {
	v.SetConfigName(name)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("LEXICON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", name, err)
	}
	return nil
}

// Load builds the configuration tree from v
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Log: loglib.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Dir:    v.GetString("log.dir"),
		},
		Scraper: Scraper{
			BaseURL:     v.GetString("scraper.baseURL"),
			Workers:     v.GetInt("scraper.workers"),
			Timeout:     time.Duration(v.GetInt("scraper.timeout")) * time.Second,
			Retries:     v.GetInt("scraper.retries"),
			UserAgent:   v.GetString("scraper.userAgent"),
			ProxyHost:   v.GetString("scraper.proxyHost"),
			ProxyUser:   v.GetString("scraper.proxyUser"),
			ProxyPass:   v.GetString("scraper.proxyPass"),
			FollowLinks: v.GetBool("scraper.followLinks"),
			MaxWords:    v.GetInt("scraper.maxWords"),
			Selectors: Selectors{
				Root:    stringlib.RmNewLines(v.GetString("scraper.selectors.root")),
				Section: stringlib.RmNewLines(v.GetString("scraper.selectors.section")),
				POS:     stringlib.RmNewLines(v.GetString("scraper.selectors.pos")),
				Entry:   stringlib.RmNewLines(v.GetString("scraper.selectors.entry")),
				Example: stringlib.RmNewLines(v.GetString("scraper.selectors.example")),
			},
		},
		Cache: Cache{
			Backend:   v.GetString("cache.backend"),
			File:      v.GetString("cache.file"),
			SaveEvery: v.GetInt("cache.saveEvery"),
			RedisAddr: v.GetString("cache.redisAddr"),
		},
		MetricsAddr: v.GetString("metrics.addr"),
		MaxDefs:     v.GetInt("tabularize.maxDefs"),
		CorpusFile:  v.GetString("corpus.file"),
		Eval: Eval{
			WordsimHome:   v.GetString("eval.wordsimHome"),
			AnalogiesHome: v.GetString("eval.analogiesHome"),
			Distance:      v.GetString("eval.distance"),
		},
		Encoder: Encoder{
			Hidden:          v.GetInt("encoder.hidden"),
			Layers:          v.GetInt("encoder.layers"),
			Bidirectional:   v.GetBool("encoder.bidirectional"),
			Cell:            v.GetString("encoder.cell"),
			MaxLen:          v.GetInt("encoder.maxLen"),
			InputDropout:    v.GetFloat64("encoder.inputDropout"),
			Dropout:         v.GetFloat64("encoder.dropout"),
			VariableLengths: v.GetBool("encoder.variableLengths"),
			BatchSize:       v.GetInt("encoder.batchSize"),
			Seed:            v.GetInt64("encoder.seed"),
			EmbeddingStd:    v.GetFloat64("encoder.embeddingStd"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no command could run with
func (c *Config) Validate() error {
	if c.Scraper.Workers < 1 {
		return fmt.Errorf("scraper.workers must be positive, got %d", c.Scraper.Workers)
	}
	if strings.Count(c.Scraper.BaseURL, "%s") != 1 {
		return fmt.Errorf("scraper.baseURL must contain exactly one %%s: %q", c.Scraper.BaseURL)
	}
	if c.Scraper.Retries < 0 {
		return fmt.Errorf("scraper.retries must not be negative")
	}
	switch c.Cache.Backend {
	case "file", "redis", "none":
	default:
		return fmt.Errorf("cache.backend must be file, redis or none, got %q", c.Cache.Backend)
	}
	switch c.Encoder.Cell {
	case "lstm", "gru", "rnn":
	default:
		return fmt.Errorf("encoder.cell must be lstm, gru or rnn, got %q", c.Encoder.Cell)
	}
	if c.Encoder.Hidden < 1 || c.Encoder.Layers < 1 || c.Encoder.MaxLen < 1 || c.Encoder.BatchSize < 1 {
		return fmt.Errorf("encoder.hidden, layers, maxLen and batchSize must be positive")
	}
	if c.MaxDefs < 0 {
		return fmt.Errorf("tabularize.maxDefs must not be negative")
	}
	return nil
}
