// Package fixtures caches test fixture data loaded from YAML, TOML or
// JSON files. The cache mirrors a module loader: the first Get of a file
// parses it, later calls share the parsed value until the entry is
// invalidated, which is what the after-scenario hook does so every
// scenario starts from the data on disk.
package fixtures

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/scenariokit"
)

var (
	ErrPatternNil        = errors.New("fixture pattern is nil")
	ErrUnsupportedFormat = errors.New("unsupported fixture format")
	ErrFixtureRead       = errors.New("failed to read fixture")
	ErrFixtureDecode     = errors.New("failed to decode fixture")
)

const formatMemory = "memory"

type entry struct {
	raw    []byte
	format string
	value  any
}

// Store is a concurrency-safe fixture cache keyed by slash-separated
// absolute file path. It satisfies scenariokit.FixtureStore.
type Store struct {
	mu      sync.RWMutex
	root    string
	entries map[string]*entry

	// gen is bumped by every invalidation; a load that started under an
	// older generation returns its value without caching it.
	gen      uint64
	readFile func(string) ([]byte, error)
	logger   scenariokit.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger scenariokit.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a Store resolving relative fixture names against root.
func NewStore(root string, opts ...Option) *Store {
	s := &Store{
		root:     root,
		entries:  make(map[string]*entry),
		readFile: os.ReadFile,
		logger:   scenariokit.NewSlogLogger(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the fixture root directory.
func (s *Store) Root() string { return s.root }

// Key returns the cache key for a fixture name.
func (s *Store) Key(name string) string {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, name)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.ToSlash(path)
}

// Get returns the parsed value of fixture name, reading and caching the
// file on first use. The returned value is shared by every caller until
// the entry is invalidated; mutations made by one scenario are visible
// to later callers in the same scenario.
func (s *Store) Get(name string) (any, error) {
	e, err := s.load(name)
	if err != nil {
		return nil, err
	}
	return e.value, nil
}

// Load decodes fixture name into target. The file is read once and cached;
// each call decodes a fresh copy from the cached bytes. Entries added with
// Set are copied through a YAML round trip.
func (s *Store) Load(name string, target any) error {
	e, err := s.load(name)
	if err != nil {
		return err
	}
	format, raw := e.format, e.raw
	if format == formatMemory {
		if raw, err = yaml.Marshal(e.value); err != nil {
			return fmt.Errorf("%w %s: %w", ErrFixtureDecode, name, err)
		}
		format = "yaml"
	}
	if err := decode(format, raw, target); err != nil {
		return fmt.Errorf("%w %s: %w", ErrFixtureDecode, name, err)
	}
	return nil
}

func (s *Store) load(name string) (*entry, error) {
	key := s.Key(name)

	s.mu.RLock()
	e, ok := s.entries[key]
	gen := s.gen
	s.mu.RUnlock()
	if ok {
		return e, nil
	}

	format, err := formatOf(key)
	if err != nil {
		return nil, err
	}
	raw, err := s.readFile(filepath.FromSlash(key))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrFixtureRead, name, err)
	}
	var value any
	if err := decode(format, raw, &value); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrFixtureDecode, name, err)
	}

	e = &entry{raw: raw, format: format, value: value}

	s.mu.Lock()
	// Another goroutine may have loaded the same key meanwhile; keep the
	// first so callers share one value.
	existing, ok := s.entries[key]
	stale := s.gen != gen
	switch {
	case ok:
		e = existing
	case !stale:
		s.entries[key] = e
	}
	s.mu.Unlock()

	if stale && !ok {
		s.logger.Debug("Fixture invalidated while loading, not cached", "key", key)
		return e, nil
	}
	s.logger.Debug("Fixture loaded", "key", key, "format", format)
	return e, nil
}

// Set caches value under the key for name without touching the disk. Get
// returns value itself; Load decodes a copy of it.
func (s *Store) Set(name string, value any) {
	key := s.Key(name)
	s.mu.Lock()
	s.entries[key] = &entry{value: value, format: formatMemory}
	s.mu.Unlock()
}

// Cached reports whether the fixture name is currently cached.
func (s *Store) Cached(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[s.Key(name)]
	return ok
}

// Keys returns the cached keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Invalidate removes every cached entry whose key matches pattern and
// returns the removed keys, sorted. Keys that do not match are kept.
// Invalidating keys that are not cached is a no-op.
func (s *Store) Invalidate(pattern *regexp.Regexp) ([]string, error) {
	if pattern == nil {
		return nil, ErrPatternNil
	}

	s.mu.Lock()
	s.gen++
	var removed []string
	for key := range s.entries {
		if pattern.MatchString(key) {
			delete(s.entries, key)
			removed = append(removed, key)
		}
	}
	s.mu.Unlock()

	slices.Sort(removed)
	if len(removed) > 0 {
		s.logger.Debug("Fixtures invalidated", "pattern", pattern.String(), "keys", removed)
	}
	return removed, nil
}

// invalidateKey drops a single key.
func (s *Store) invalidateKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

func formatOf(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".toml":
		return "toml", nil
	case ".json":
		return "json", nil
	default:
		return "", fmt.Errorf("%w %q: %s", ErrUnsupportedFormat, ext, path)
	}
}

func decode(format string, raw []byte, target any) error {
	switch format {
	case "yaml":
		return yaml.Unmarshal(raw, target)
	case "toml":
		_, err := toml.NewDecoder(bytes.NewReader(raw)).Decode(target)
		return err
	case "json":
		return json.Unmarshal(raw, target)
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
}
