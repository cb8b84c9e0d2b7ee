// Package cache is the content-addressed media store.
//
// Entries are opaque blobs named by the source key. Writes go through a
// temporary file that is renamed into place, so a reader never observes a
// partially written entry.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmevideo/bmevideo/filesystem"
	"github.com/bmevideo/bmevideo/log"
	"github.com/bmevideo/bmevideo/metrics"
	"github.com/bmevideo/bmevideo/source"
	"github.com/spf13/afero"
)

// ErrStorage wraps every filesystem failure reported by the cache.
var ErrStorage = errors.New("storage error")

const (
	tempSuffix = ".tmp"
	// staleAfter is how old a staging file must be before Clear and Prune consider it abandoned.
	staleAfter = time.Hour
)

// Entry describes a committed artifact.
type Entry struct {
	Key     string
	Path    string
	Size    int64
	ModTime time.Time
}

// Cache stores media artifacts under a single directory.
type Cache struct {
	dir     string
	recency *Recency
}

// Option configures a Cache.
type Option func(*Cache)

// WithRecency records every cache hit in r so that Prune can evict by recency.
func WithRecency(r *Recency) Option {
	return func(c *Cache) {
		c.recency = r
	}
}

// New returns a cache rooted at dir. The directory is created lazily.
func New(dir string, options ...Option) *Cache {
	c := &Cache{dir: dir}
	for _, option := range options {
		option(c)
	}
	return c
}

// Dir returns the directory the cache is rooted at.
func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key)
}

// Path returns where the artifact for src lives, whether or not it exists.
func (c *Cache) Path(src source.Source) string {
	return c.path(src.Key())
}

// Exists reports whether a committed entry exists for src.
func (c *Cache) Exists(src source.Source) bool {
	info, err := filesystem.API().Stat(c.Path(src))
	return err == nil && info.Mode().IsRegular()
}

// Resolve returns the artifact path when src is cached, and src itself otherwise.
// It never touches the network.
func (c *Cache) Resolve(src source.Source) source.Location {
	if !c.Exists(src) {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return source.Location{URI: src.String()}
	}

	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	if c.recency != nil {
		if err := c.recency.Touch(src.Key()); err != nil {
			log.With(log.Fields{"key": src.Key()}).Warnf("recency index: %v", err)
		}
	}

	return source.Location{URI: c.Path(src), Cached: true}
}

// Store atomically writes data as the entry for src, replacing any prior entry.
func (c *Cache) Store(src source.Source, data []byte) error {
	staged, err := c.Stage(src)
	if err != nil {
		return err
	}

	if _, err := staged.Write(data); err != nil {
		staged.Discard()
		return err
	}

	return staged.Commit()
}

// Stage opens a temporary file for streaming the entry of src.
// The caller must finish with exactly one of Commit or Discard.
func (c *Cache) Stage(src source.Source) (*Staged, error) {
	api := filesystem.API()
	if err := api.MkdirAll(c.dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	file, err := api.TempFile(c.dir, src.Key()+"-*"+tempSuffix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return &Staged{file: file, target: c.Path(src)}, nil
}

// Entries lists committed artifacts. Staging files are never reported.
func (c *Cache) Entries() ([]Entry, error) {
	infos, err := filesystem.API().ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if !info.Mode().IsRegular() || strings.HasSuffix(info.Name(), tempSuffix) {
			continue
		}

		entries = append(entries, Entry{
			Key:     info.Name(),
			Path:    c.path(info.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return entries, nil
}

// Size sums the sizes of all committed entries.
func (c *Cache) Size() (int64, error) {
	entries, err := c.Entries()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total, nil
}

// Remove deletes the entry with the given key. Missing entries are not an error.
func (c *Cache) Remove(key string) error {
	err := filesystem.API().Remove(c.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if c.recency != nil {
		_ = c.recency.Forget(key)
	}
	return nil
}

// Clear removes every committed entry and abandoned staging files.
// Transfers that are still writing keep their staging files and re-populate the cache when they commit.
func (c *Cache) Clear() error {
	entries, err := c.Entries()
	if err != nil {
		return err
	}

	var errs []error
	for _, e := range entries {
		if err := c.Remove(e.Key); err != nil {
			errs = append(errs, err)
		}
	}

	if _, err := c.sweep(); err != nil {
		errs = append(errs, err)
	}

	if c.recency != nil {
		if err := c.recency.Reset(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// sweep removes staging files older than staleAfter and returns how many were removed.
func (c *Cache) sweep() (int, error) {
	api := filesystem.API()
	infos, err := api.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	var removed int
	for _, info := range infos {
		if !strings.HasSuffix(info.Name(), tempSuffix) || time.Since(info.ModTime()) < staleAfter {
			continue
		}

		if err := api.Remove(c.path(info.Name())); err == nil {
			removed++
		}
	}

	return removed, nil
}

// Staged is an in-progress entry.
type Staged struct {
	file   afero.File
	target string
	done   bool
}

func (s *Staged) Write(p []byte) (int, error) {
	n, err := s.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return n, nil
}

// Commit closes the staging file and renames it into place, replacing any prior entry.
func (s *Staged) Commit() error {
	if s.done {
		return nil
	}
	s.done = true

	api := filesystem.API()
	if err := s.file.Close(); err != nil {
		_ = api.Remove(s.file.Name())
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if err := api.Rename(s.file.Name(), s.target); err != nil {
		_ = api.Remove(s.file.Name())
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	metrics.CacheStoresTotal.Inc()
	return nil
}

// Discard drops the staging file. Calling it after Commit is a no-op.
func (s *Staged) Discard() {
	if s.done {
		return
	}
	s.done = true

	_ = s.file.Close()
	_ = filesystem.API().Remove(s.file.Name())
}
