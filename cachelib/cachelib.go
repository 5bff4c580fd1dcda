// Package cachelib keeps downloaded pages so repeated runs avoid repeated HTTP calls
package cachelib

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"goLexicon/iolib"
	"goLexicon/redislib"
)

// CachedPage is what gets stored per URL
type CachedPage struct {
	Body      []byte
	FetchedAt time.Time
}

func init() {
	// Allow go interfaces be expanded into custom structs of our cache implementation
	gob.Register(CachedPage{})
}

// PageCache stores page bodies by URL. Implementations are safe for concurrent use.
type PageCache interface {
	Get(url string) (CachedPage, bool, error)
	Set(url string, page CachedPage) error
	// Flush persists pending writes
	Flush() error
	Close() error
}

/***************************************************************************************************************
* File backend: go-cache persisted with gob ********************************************************************
****************************************************************************************************************/

// FileCache is an in-memory go-cache snapshotted into a gob file every saveEvery writes
type FileCache struct {
	c         *cache.Cache
	path      string
	saveEvery int
	log       logrus.FieldLogger

	mu        sync.Mutex
	dirty     int
	saveCount int
}

// OpenFile loads a serialized cache from path if it exists, otherwise starts empty
func OpenFile(path string, saveEvery int, log logrus.FieldLogger) (*FileCache, error) {
	fc := &FileCache{path: path, saveEvery: saveEvery, log: log}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		fc.c = cache.New(cache.NoExpiration, 10*time.Minute)
		return fc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", path, err)
	}

	decodedMap := make(map[string]cache.Item, 500)
	if err := gob.NewDecoder(bytes.NewBuffer(b)).Decode(&decodedMap); err != nil {
		return nil, fmt.Errorf("decode cache %s: %w", path, err)
	}
	fc.c = cache.NewFrom(cache.NoExpiration, 10*time.Minute, decodedMap)
	log.WithField("entries", len(decodedMap)).Info("page cache loaded")
	return fc, nil
}

// Get returns the cached page for url
func (fc *FileCache) Get(url string) (CachedPage, bool, error) {
	v, found := fc.c.Get(url)
	if !found {
		return CachedPage{}, false, nil
	}
	page, ok := v.(CachedPage)
	if !ok {
		return CachedPage{}, false, fmt.Errorf("cache entry %s has type %T", url, v)
	}
	return page, true, nil
}

// Set stores page and saves the cache once saveEvery writes have piled up
func (fc *FileCache) Set(url string, page CachedPage) error {
	fc.c.Set(url, page, cache.NoExpiration)

	fc.mu.Lock()
	fc.dirty++
	due := fc.saveEvery > 0 && fc.dirty >= fc.saveEvery
	fc.mu.Unlock()

	if due {
		return fc.Flush()
	}
	return nil
}

// Flush stores the cache into its persistent file, keeping a backup from time to time
func (fc *FileCache) Flush() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.dirty == 0 {
		return nil
	}

	fc.saveCount++
	if fc.saveCount%10 == 0 && iolib.FileExists(fc.path) {
		backup := fc.path + ".backup"
		if err := iolib.CopyFileContents(fc.path, backup); err != nil {
			return fmt.Errorf("backup cache: %w", err)
		}
		fc.log.WithField("backup", backup).Debug("page cache backup written")
	}

	b := new(bytes.Buffer)
	if err := gob.NewEncoder(b).Encode(fc.c.Items()); err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := iolib.WriteFileAtomic(fc.path, b.Bytes()); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	fc.dirty = 0
	return nil
}

// Close flushes pending writes
func (fc *FileCache) Close() error {
	return fc.Flush()
}

// Len is the number of cached pages
func (fc *FileCache) Len() int {
	return fc.c.ItemCount()
}

/***************************************************************************************************************
* Redis backend ************************************************************************************************
****************************************************************************************************************/

// RedisCache stores pages in redis as JSON
type RedisCache struct {
	client *redislib.Client
}

// OpenRedis connects to addr and checks the server answers
func OpenRedis(addr string) (*RedisCache, error) {
	client := redislib.New(addr, "goLexicon:page:")
	if err := client.Ping(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

// Get returns the cached page for url
func (rc *RedisCache) Get(url string) (CachedPage, bool, error) {
	var page CachedPage
	found, err := rc.client.GetInterface(url, &page)
	if err != nil || !found {
		return CachedPage{}, false, err
	}
	return page, true, nil
}

// Set stores page under url
func (rc *RedisCache) Set(url string, page CachedPage) error {
	return rc.client.SetInterface(url, page)
}

// Flush is a no-op: redis writes are immediate
func (rc *RedisCache) Flush() error { return nil }

// Close releases the redis pool
func (rc *RedisCache) Close() error { return rc.client.Close() }

/***************************************************************************************************************
* No cache *****************************************************************************************************
****************************************************************************************************************/

// None never stores anything
type None struct{}

func (None) Get(string) (CachedPage, bool, error) { return CachedPage{}, false, nil }
func (None) Set(string, CachedPage) error         { return nil }
func (None) Flush() error                         { return nil }
func (None) Close() error                         { return nil }

// Open picks the backend by name: "file", "redis" or "none"
func Open(backend, file string, saveEvery int, redisAddr string, log logrus.FieldLogger) (PageCache, error) {
	switch backend {
	case "file":
		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return nil, err
		}
		return OpenFile(file, saveEvery, log)
	case "redis":
		return OpenRedis(redisAddr)
	case "none", "":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
