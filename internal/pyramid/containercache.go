package pyramid

import (
	"sync"

	"github.com/pspoerri/rastertiles/internal/container"
	"github.com/pspoerri/rastertiles/internal/errs"
	"github.com/pspoerri/rastertiles/internal/raster"

	"github.com/cespare/xxhash/v2"
)

// containerCache keeps open Container handles alive across requests,
// keyed by path, so a busy tile server doesn't reopen and re-stat the
// same file on every hit. Open containers have no mutable state beyond
// a positional-read-safe file handle and are shared by reference.
type containerCache struct {
	mu    sync.Mutex
	byKey map[uint64]*container.Container
}

func newContainerCache() *containerCache {
	return &containerCache{byKey: make(map[uint64]*container.Container)}
}

func cacheKey(path string) uint64 {
	return xxhash.Sum64String(path)
}

// open returns the cached container for path, opening and caching it on
// first use. geom, tilesWide, tilesHigh, encoding, and mimeType describe
// the container to open and must be the same for every call with a given
// path within one pyramid.
func (c *containerCache) open(path string, tilesWide, tilesHigh int, geom raster.Geometry, encoding, mimeType string) (*container.Container, error) {
	key := cacheKey(path)

	c.mu.Lock()
	if existing, ok := c.byKey[key]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.mu.Unlock()

	opened, err := container.Open(path, tilesWide, tilesHigh, geom, encoding, mimeType)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.byKey[key]; ok {
		opened.Close()
		return existing, nil
	}
	c.byKey[key] = opened
	return opened, nil
}

// closeAll closes every cached container, returning the first error
// encountered (continuing to close the rest regardless).
func (c *containerCache) closeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for _, ct := range c.byKey {
		if err := ct.Close(); err != nil && first == nil {
			first = errs.Wrap(errs.Io, "pyramid.containerCache.closeAll", "%v", err)
		}
	}
	c.byKey = make(map[uint64]*container.Container)
	return first
}
