// Package clipcache holds pre-recorded clips (intros, outros) in memory so
// that concurrent jobs share a single fetch per clip.
package clipcache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrEmptyName is returned when GetOrLoad is called without a clip name.
var ErrEmptyName = errors.New("clipcache: empty clip name")

// Loader fetches a clip by name.
type Loader func(ctx context.Context, name string) ([]byte, error)

// call is one in-flight load shared by every caller asking for the same key.
type call struct {
	done chan struct{}
	data []byte
	err  error
}

// Cache is a get-or-load cache keyed by clip name. Successful loads are kept
// for the lifetime of the Cache; failed loads are not cached, so the next
// caller retries.
type Cache struct {
	load   Loader
	logger *slog.Logger

	mu       sync.Mutex
	entries  map[string][]byte
	inflight map[string]*call
}

// New creates a Cache backed by load.
// If logger is nil, slog.Default() is used.
func New(load Loader, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		load:     load,
		logger:   logger,
		entries:  make(map[string][]byte),
		inflight: make(map[string]*call),
	}
}

// GetOrLoad returns the cached clip for name, loading it if needed.
// Concurrent callers for the same name wait for one shared load. A caller
// whose ctx ends while waiting returns ctx.Err() without affecting the load.
// The returned slice is shared and must not be modified.
func (c *Cache) GetOrLoad(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	c.mu.Lock()
	if data, ok := c.entries[name]; ok {
		c.mu.Unlock()
		return data, nil
	}
	cl, ok := c.inflight[name]
	if !ok {
		cl = &call{done: make(chan struct{})}
		c.inflight[name] = cl
		c.mu.Unlock()
		// The load is detached from the first caller so that its
		// cancellation does not fail the others.
		go c.run(context.WithoutCancel(ctx), name, cl)
	} else {
		c.mu.Unlock()
	}

	select {
	case <-cl.done:
		return cl.data, cl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) run(ctx context.Context, name string, cl *call) {
	cl.data, cl.err = c.load(ctx, name)

	c.mu.Lock()
	delete(c.inflight, name)
	if cl.err == nil {
		c.entries[name] = cl.data
	}
	c.mu.Unlock()

	if cl.err != nil {
		c.logger.Warn("clip load failed",
			slog.String("clip", name),
			slog.String("error", cl.err.Error()),
		)
	} else {
		c.logger.Debug("clip loaded",
			slog.String("clip", name),
			slog.Int("bytes", len(cl.data)),
		)
	}
	close(cl.done)
}

// Len returns the number of cached clips.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Forget drops name from the cache so the next GetOrLoad reloads it.
func (c *Cache) Forget(name string) {
	c.mu.Lock()
	delete(c.entries, name)
	c.mu.Unlock()
}
