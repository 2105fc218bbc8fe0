// Package cache memoizes dataset loads per file version.
//
// A version is identified by path, modification time and size, so editing
// the file on disk is picked up on the next lookup without a restart.
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"popdash/internal/engine"
)

// Key identifies one version of a dataset file.
type Key struct {
	Path    string
	ModTime time.Time
	Size    int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%d:%d", k.Path, k.ModTime.UnixNano(), k.Size)
}

// Store holds loaded datasets.
type Store interface {
	Get(key Key) (*engine.Dataset, bool)
	// Put stores ds under key and drops any other version of key.Path.
	Put(key Key, ds *engine.Dataset)
	// Purge drops every version of path.
	Purge(path string)
	Reset()
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	key Key
	ds  *engine.Dataset
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry)}
}

func (s *MemoryStore) Get(key Key) (*engine.Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key.Path]
	if !ok || !e.key.ModTime.Equal(key.ModTime) || e.key.Size != key.Size {
		return nil, false
	}
	return e.ds, true
}

func (s *MemoryStore) Put(key Key, ds *engine.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key.Path] = entry{key: key, ds: ds}
}

func (s *MemoryStore) Purge(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, path)
}

func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
}

// Len reports how many paths are cached.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// NopStore never caches. Every lookup reloads the file.
type NopStore struct{}

func (NopStore) Get(Key) (*engine.Dataset, bool) { return nil, false }
func (NopStore) Put(Key, *engine.Dataset)        {}
func (NopStore) Purge(string)                    {}
func (NopStore) Reset()                          {}

// LoadFunc reads a dataset from disk.
type LoadFunc func(path string) (*engine.Dataset, error)

// Loader returns the dataset for a path, loading each file version at most once.
type Loader struct {
	store  Store
	load   LoadFunc
	logger *zap.Logger
	group  singleflight.Group
}

type Option func(*Loader)

func WithStore(s Store) Option {
	return func(l *Loader) { l.store = s }
}

func WithLoadFunc(fn LoadFunc) Option {
	return func(l *Loader) { l.load = fn }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		store:  NewMemoryStore(),
		load:   engine.LoadDataset,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Store returns the backing store.
func (l *Loader) Store() Store {
	return l.store
}

// Dataset returns the dataset for the current version of path.
// Concurrent callers for the same version share a single load. Failed loads are not cached.
func (l *Loader) Dataset(ctx context.Context, path string) (*engine.Dataset, error) {
	path = normalize(path)

	fi, err := os.Stat(path)
	if err != nil {
		return nil, &engine.LoadError{Path: path, Err: err}
	}
	key := Key{Path: path, ModTime: fi.ModTime(), Size: fi.Size()}

	if ds, ok := l.store.Get(key); ok {
		return ds, nil
	}

	ch := l.group.DoChan(key.String(), func() (interface{}, error) {
		if ds, ok := l.store.Get(key); ok {
			return ds, nil
		}

		start := time.Now()
		ds, err := l.load(path)
		if err != nil {
			l.logger.Error("dataset load failed", zap.String("path", path), zap.Error(err))
			return nil, err
		}
		l.store.Put(key, ds)
		l.logger.Info("dataset loaded",
			zap.String("path", path),
			zap.Int("rows", ds.Len()),
			zap.Int("provinces", len(ds.Provinces())),
			zap.Duration("took", time.Since(start)))
		return ds, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*engine.Dataset), nil
	}
}

// normalize makes paths from the loader and the watcher comparable.
func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
