package pipeline

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/YuminosukeSato/demandcast/core/model"
	"github.com/YuminosukeSato/demandcast/pkg/errors"
	"github.com/YuminosukeSato/demandcast/pkg/log"
)

// DefaultCacheSize is the number of artifacts a CachedLoader keeps by default.
const DefaultCacheSize = 16

// CachedLoader keeps recently loaded models in memory, keyed by absolute path.
// Cached models are shared between callers and must not be mutated.
//
// With WatchFiles, an entry is dropped as soon as its file is written, replaced
// or removed, so the next Load reads the new artifact.
type CachedLoader struct {
	next   ArtifactLoader
	cache  *lru.Cache[string, model.Predictor]
	logger log.Logger

	watch   bool
	watcher *fsnotify.Watcher

	mu   sync.Mutex
	dirs map[string]struct{} // directories added to watcher
	// gens counts invalidations per loaded key. A load only fills the cache when
	// the count did not move while it was reading the file.
	gens map[string]uint64

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// CacheOption configures a CachedLoader.
type CacheOption func(*CachedLoader)

// WatchFiles evicts cached models when their artifact changes on disk.
func WatchFiles() CacheOption {
	return func(c *CachedLoader) {
		c.watch = true
	}
}

// WithCacheLogger sets the logger for cache hits, misses and evictions.
func WithCacheLogger(l log.Logger) CacheOption {
	return func(c *CachedLoader) {
		c.logger = l
	}
}

// NewCachedLoader wraps next with an LRU cache of size entries. A nil next uses
// DefaultLoader and size <= 0 uses DefaultCacheSize. Call Close when done.
func NewCachedLoader(next ArtifactLoader, size int, opts ...CacheOption) (*CachedLoader, error) {
	if next == nil {
		next = DefaultLoader
	}
	if size <= 0 {
		size = DefaultCacheSize
	}

	c := &CachedLoader{
		next: next,
		dirs: make(map[string]struct{}),
		gens: make(map[string]uint64),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.GetLoggerWithName("pipeline.cache")
	}

	cache, err := lru.New[string, model.Predictor](size)
	if err != nil {
		return nil, errors.Wrap(err, "create artifact cache")
	}
	c.cache = cache

	if c.watch {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, errors.Wrap(err, "create artifact watcher")
		}
		c.watcher = w
		c.wg.Add(1)
		go c.run()
	}
	return c, nil
}

// Load returns the cached model for path, loading it through the wrapped loader on
// a miss. Failed loads are not cached.
func (c *CachedLoader) Load(path string) (model.Predictor, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewArtifactLoadError(path, "", err)
	}

	if m, ok := c.cache.Get(key); ok {
		c.logger.Debug("Artifact cache hit", log.ArtifactPathKey, key, log.CacheHitKey, true)
		return m, nil
	}

	// The directory is watched before the file is read so that a write during the
	// load bumps the generation below.
	if c.watcher != nil {
		if err := c.watchDir(filepath.Dir(key)); err != nil {
			c.logger.Warn("Cannot watch artifact directory", log.ArtifactPathKey, key, log.ErrAttrKey, err)
		}
	}

	c.mu.Lock()
	gen, tracked := c.gens[key]
	if !tracked {
		c.gens[key] = 0
	}
	c.mu.Unlock()

	m, err := c.next.Load(path)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.NewArtifactLoadError(path, "", errors.New("loader returned no model"))
	}

	c.mu.Lock()
	fresh := c.gens[key] == gen
	if fresh {
		c.cache.Add(key, m)
	}
	c.mu.Unlock()

	if !fresh {
		c.logger.Debug("Artifact changed while loading, not cached", log.ArtifactPathKey, key)
	}
	c.logger.Debug("Artifact cache miss", log.ArtifactPathKey, key, log.CacheHitKey, false)
	return m, nil
}

// Len returns the number of cached models.
func (c *CachedLoader) Len() int {
	return c.cache.Len()
}

// Evict drops the cached model for path, if any. A load of path already in flight
// does not cache its result.
func (c *CachedLoader) Evict(path string) {
	if key, err := filepath.Abs(path); err == nil {
		c.invalidate(key)
	}
}

func (c *CachedLoader) invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.gens[key]; ok {
		c.gens[key]++
	}
	return c.cache.Remove(key)
}

// Close stops the file watcher and empties the cache. It is safe to call more than once.
func (c *CachedLoader) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.watcher != nil {
			err = c.watcher.Close()
		}
		c.wg.Wait()
		c.cache.Purge()
	})
	return err
}

func (c *CachedLoader) watchDir(dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.dirs[dir]; ok {
		return nil
	}
	// Directories are watched instead of files so that atomic replace-by-rename is seen.
	if err := c.watcher.Add(dir); err != nil {
		return err
	}
	c.dirs[dir] = struct{}{}
	return nil
}

func (c *CachedLoader) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			key := filepath.Clean(ev.Name)
			if c.invalidate(key) {
				c.logger.Info("Artifact changed, evicted from cache",
					log.ArtifactPathKey, key,
					"fs.event", ev.Op.String(),
				)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("Artifact watcher error", log.ErrAttrKey, err)
		}
	}
}
