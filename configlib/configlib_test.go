package configlib

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Scraper.Workers)
	assert.Equal(t, 30*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, "http://www.dictionary.com/browse/%s?s=t", cfg.Scraper.BaseURL)
	assert.Equal(t, "span.luna-pos", cfg.Scraper.Selectors.POS)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, "lstm", cfg.Encoder.Cell)
	assert.Equal(t, "cosine", cfg.Eval.Distance)
}

func TestReadInConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "scraper:\n  workers: 4\n  selectors:\n    root: |\n      section.defs\nencoder:\n  cell: gru\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lexicon.yaml"), []byte(yaml), 0644))

	v := viper.New()
	SetDefaults(v)
	v.AddConfigPath(dir)
	require.NoError(t, ReadInConfig(v, "lexicon"))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Scraper.Workers)
	assert.Equal(t, "section.defs", cfg.Scraper.Selectors.Root)
	assert.Equal(t, "gru", cfg.Encoder.Cell)
}

func TestReadInConfigMissingFileIsFine(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	require.NoError(t, ReadInConfig(v, "does-not-exist-anywhere"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  interface{}
	}{
		{"no workers", "scraper.workers", 0},
		{"bad base url", "scraper.baseURL", "http://example.com/"},
		{"bad backend", "cache.backend", "memcached"},
		{"bad cell", "encoder.cell", "transformer"},
		{"negative maxDefs", "tabularize.maxDefs", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}
